package core

import (
	"context"
	"fmt"
	"time"

	"github.com/DomeLiquid/alphalend/wad"
	"github.com/facebookgo/clock"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type (
	// MarketSource looks up the market quote of a listed asset.
	MarketSource interface {
		GetMarketAsset(ctx context.Context, assetId string) (*MarketAssetInfo, error)
	}

	MarketAssetInfo struct {
		CoinID       string          `json:"coin_id"`
		Name         string          `json:"name"`
		Symbol       string          `json:"symbol"`
		IconURL      string          `json:"icon_url"`
		CurrentPrice decimal.Decimal `json:"current_price"`
		AssetIDS     []string        `json:"asset_ids"`
		UpdatedAt    time.Time       `json:"updated_at"`
	}

	MarketAPIError struct {
		StatusCode  int
		Code        int
		Description string
		RawBody     string
	}
)

func (e *MarketAPIError) Error() string {
	return fmt.Sprintf("API error: status=%d, code=%d, description=%s",
		e.StatusCode, e.Code, e.Description)
}

// MarketPriceOracle turns market quotes into WAD prices and rejects quotes
// older than MaxAge.
type MarketPriceOracle struct {
	clk    clock.Clock
	source MarketSource
	MaxAge time.Duration
}

func NewMarketPriceOracle(clk clock.Clock, source MarketSource, maxAge time.Duration) *MarketPriceOracle {
	return &MarketPriceOracle{
		clk:    clk,
		source: source,
		MaxAge: maxAge,
	}
}

func (o *MarketPriceOracle) GetAssetPrice(ctx context.Context, assetId string) (*uint256.Int, error) {
	info, err := o.source.GetMarketAsset(ctx, assetId)
	if err != nil {
		return nil, errors.Wrapf(ErrPriceUnavailable, "asset %s: %v", assetId, err)
	}
	if o.MaxAge > 0 && o.clk.Now().Sub(info.UpdatedAt) > o.MaxAge {
		return nil, errors.Wrapf(ErrPriceUnavailable, "asset %s: quote updated at %s", assetId, info.UpdatedAt)
	}
	if !info.CurrentPrice.IsPositive() {
		return nil, errors.Wrapf(ErrPriceUnavailable, "asset %s: price %s", assetId, info.CurrentPrice)
	}
	return wad.FromDecimal(info.CurrentPrice)
}
