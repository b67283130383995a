package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/DomeLiquid/alphalend"
	"github.com/DomeLiquid/alphalend/core"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/pkg/errors"
)

const defaultEventLimit = 50

type routes struct {
	lp      *alphalend.LendingPool
	events  core.EventStore
	log     core.Log
	timeout time.Duration
}

// NewRouter serves the read side of the lending pool and the metrics of gatherer.
func NewRouter(lp *alphalend.LendingPool, events core.EventStore, log core.Log, gatherer prometheus.Gatherer) http.Handler {
	rt := &routes{
		lp:      lp,
		events:  events,
		log:     log,
		timeout: 10 * time.Second,
	}

	r := chi.NewRouter()
	r.Get("/pools", rt.listPools)
	r.Get("/pools/{asset}", rt.getPool)
	r.Get("/users/{user}/pools/{asset}", rt.getUserPool)
	r.Get("/users/{user}/summary", rt.getSummary)
	r.Get("/events", rt.listEvents)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}

func (rt *routes) context(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, rt.timeout)
}

func (rt *routes) listPools(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := rt.context(r.Context())
	defer cancel()

	pools, err := rt.lp.ListPoolData(ctx)
	if err != nil {
		rt.writeError(w, err)
		return
	}
	rt.writeJSON(w, http.StatusOK, pools)
}

func (rt *routes) getPool(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := rt.context(r.Context())
	defer cancel()

	pool, err := rt.lp.GetPoolData(ctx, chi.URLParam(r, "asset"))
	if err != nil {
		rt.writeError(w, err)
		return
	}
	rt.writeJSON(w, http.StatusOK, pool)
}

func (rt *routes) getUserPool(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := rt.context(r.Context())
	defer cancel()

	data, err := rt.lp.GetUserPoolData(ctx, chi.URLParam(r, "user"), chi.URLParam(r, "asset"))
	if err != nil {
		rt.writeError(w, err)
		return
	}
	rt.writeJSON(w, http.StatusOK, data)
}

func (rt *routes) getSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := rt.context(r.Context())
	defer cancel()

	summary, err := rt.lp.GetAccountSummary(ctx, chi.URLParam(r, "user"))
	if err != nil {
		rt.writeError(w, err)
		return
	}
	rt.writeJSON(w, http.StatusOK, summary)
}

// listEvents pages backwards with ?before=<unix>&limit=<n>.
func (rt *routes) listEvents(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := rt.context(r.Context())
	defer cancel()

	query := r.URL.Query()
	before, err := parseInt(query.Get("before"), 0)
	if err != nil {
		rt.writeError(w, errors.Wrap(core.ErrInvalidAmount, "before"))
		return
	}
	limit, err := parseInt(query.Get("limit"), defaultEventLimit)
	if err != nil || limit <= 0 {
		rt.writeError(w, errors.Wrap(core.ErrInvalidAmount, "limit"))
		return
	}

	events, err := rt.events.ListEvents(ctx, query.Get("user"), core.EventType(query.Get("type")), before, limit)
	if err != nil {
		rt.writeError(w, err)
		return
	}
	rt.writeJSON(w, http.StatusOK, events)
}

func parseInt(s string, fallback int64) (int64, error) {
	if s == "" {
		return fallback, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func statusOf(err error) int {
	switch core.KindOf(err) {
	case core.KindValidation, core.KindCollateral, core.KindHealthCheck:
		return http.StatusBadRequest
	case core.KindAuthorization:
		return http.StatusForbidden
	case core.KindState:
		if errors.Is(err, core.ErrPoolNotFound) {
			return http.StatusNotFound
		}
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (rt *routes) writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		rt.log.Error().Err(err).Msg("api")
	}
	rt.writeJSON(w, status, errorResponse{Error: err.Error(), Kind: core.KindOf(err).String()})
}

func (rt *routes) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		rt.log.Warn().Err(err).Msg("write response")
	}
}
