package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DomeLiquid/alphalend"
	"github.com/DomeLiquid/alphalend/core"
	"github.com/DomeLiquid/alphalend/metrics"
	"github.com/DomeLiquid/alphalend/store"
	"github.com/DomeLiquid/alphalend/wad"
	"github.com/facebookgo/clock"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()
	log := zerolog.Nop()
	registry := prometheus.NewRegistry()

	s := store.NewMemoryStore()
	vault := store.NewMemoryVault()
	oracle := core.NewStaticPriceOracle()
	oracle.SetPrice("bnb", wad.Wads(1))

	lp := alphalend.New("owner", s, vault,
		alphalend.WithClock(clock.NewMock()),
		alphalend.WithLogger(&log),
		alphalend.WithPriceOracle(oracle),
		alphalend.WithMetrics(metrics.New(registry)),
	)
	config := core.NewPoolConfig(wad.Ratio(1, 10), wad.Ratio(2, 10), wad.Ratio(4, 10), wad.Ratio(75, 100), wad.Ratio(105, 100))
	_, err := lp.InitPool(ctx, "owner", &core.Asset{AssetID: "bnb", Symbol: "bnb"}, config)
	require.NoError(t, err)
	require.NoError(t, lp.SetPoolStatus(ctx, "owner", "bnb", core.PoolStatusActive))

	vault.Fund("alice", "bnb", wad.Wads(10))
	_, err = lp.Deposit(ctx, "alice", "bnb", wad.Wads(10))
	require.NoError(t, err)

	srv := httptest.NewServer(NewRouter(lp, s, &log, registry))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, srv *httptest.Server, path string, v any) int {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestPools(t *testing.T) {
	srv := newTestServer(t)

	var pools []map[string]any
	assert.Equal(t, http.StatusOK, get(t, srv, "/pools", &pools))
	require.Len(t, pools, 1)
	assert.Equal(t, "bnb", pools[0]["assetId"])

	var pool map[string]any
	assert.Equal(t, http.StatusOK, get(t, srv, "/pools/bnb", &pool))
	assert.Equal(t, "bnb", pool["assetId"])

	var resp errorResponse
	assert.Equal(t, http.StatusNotFound, get(t, srv, "/pools/doge", &resp))
	assert.Equal(t, "State", resp.Kind)
}

func TestUsers(t *testing.T) {
	srv := newTestServer(t)

	var data map[string]any
	assert.Equal(t, http.StatusOK, get(t, srv, "/users/alice/pools/bnb", &data))
	assert.Equal(t, "alice", data["userId"])
	assert.Equal(t, true, data["useAsCollateral"])

	var summary map[string]any
	assert.Equal(t, http.StatusOK, get(t, srv, "/users/alice/summary", &summary))
	assert.Equal(t, true, summary["healthy"])
}

func TestEvents(t *testing.T) {
	srv := newTestServer(t)

	var events []*core.Event
	assert.Equal(t, http.StatusOK, get(t, srv, "/events?user=alice", &events))
	require.Len(t, events, 1)
	assert.Equal(t, core.EventDeposit, events[0].Type)

	assert.Equal(t, http.StatusOK, get(t, srv, "/events?type=PoolInitialized&limit=1", &events))
	require.Len(t, events, 1)
	assert.Equal(t, "owner", events[0].UserId)

	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/events?limit=-1", nil))
	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/events?before=yesterday", nil))
}

func TestMetrics(t *testing.T) {
	srv := newTestServer(t)
	assert.Equal(t, http.StatusOK, get(t, srv, "/metrics", nil))
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusOf(core.ErrInvalidAmount))
	assert.Equal(t, http.StatusBadRequest, statusOf(errors.Wrap(core.ErrAccountNotHealthy, "can't borrow")))
	assert.Equal(t, http.StatusForbidden, statusOf(core.ErrNotOwner))
	assert.Equal(t, http.StatusNotFound, statusOf(errors.Wrap(core.ErrPoolNotFound, "asset bnb")))
	assert.Equal(t, http.StatusConflict, statusOf(core.ErrDuplicateRequest))
	assert.Equal(t, http.StatusInternalServerError, statusOf(errors.New("disk full")))
}
