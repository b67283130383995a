package core

import (
	"context"
	"sync"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// PriceOracle returns WAD scaled prices in a common quote unit.
type PriceOracle interface {
	GetAssetPrice(ctx context.Context, assetId string) (*uint256.Int, error)
}

type StaticPriceOracle struct {
	mu     sync.RWMutex
	prices map[string]*uint256.Int
}

func NewStaticPriceOracle() *StaticPriceOracle {
	return &StaticPriceOracle{prices: make(map[string]*uint256.Int)}
}

func (o *StaticPriceOracle) SetPrice(assetId string, price *uint256.Int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.prices[assetId] = price.Clone()
}

func (o *StaticPriceOracle) GetAssetPrice(_ context.Context, assetId string) (*uint256.Int, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	price, ok := o.prices[assetId]
	if !ok {
		return nil, errors.Wrapf(ErrPriceUnavailable, "asset %s", assetId)
	}
	return price.Clone(), nil
}
