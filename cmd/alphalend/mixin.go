package main

import (
	"encoding/json"
	"os"

	"github.com/DomeLiquid/alphalend/config"
	"github.com/DomeLiquid/alphalend/core"
	"github.com/facebookgo/clock"
	"github.com/fox-one/mixin-sdk-go/v2"
	"github.com/pkg/errors"
)

func newMixinClient(path string) (*mixin.Client, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read keystore")
	}
	var keystore mixin.Keystore
	if err := json.Unmarshal(b, &keystore); err != nil {
		return nil, errors.Wrapf(err, "decode keystore %s", path)
	}
	return mixin.NewFromKeystore(&keystore)
}

// newOracle prices assets from the static table or from mixin market quotes.
func newOracle(cfg *config.Config, market core.MarketSource) (core.PriceOracle, error) {
	if cfg.Mixin.Oracle == config.OracleMixin {
		if market == nil {
			return nil, errors.New("mixin oracle needs a keystore")
		}
		maxAge, err := cfg.Mixin.MaxAge()
		if err != nil {
			return nil, err
		}
		return core.NewMarketPriceOracle(clock.New(), market, maxAge), nil
	}

	prices, err := cfg.PriceWads()
	if err != nil {
		return nil, err
	}
	oracle := core.NewStaticPriceOracle()
	for assetId, price := range prices {
		oracle.SetPrice(assetId, price)
	}
	return oracle, nil
}
