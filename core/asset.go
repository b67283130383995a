package core

import (
	"context"
	"strings"

	"github.com/fox-one/mixin-sdk-go/v2"
	"github.com/shopspring/decimal"
)

type (
	AssetStore interface {
		GetAsset(ctx context.Context, assetId string) (*Asset, error)
		UpsertAsset(ctx context.Context, asset *Asset) error
	}

	// Asset describes a listed token. Amounts of the token are always WAD scaled
	// inside the ledger regardless of Precision.
	Asset struct {
		AssetID   string          `json:"assetId"`
		ChainID   string          `json:"chainId,omitempty"`
		Symbol    string          `json:"symbol"`
		Name      string          `json:"name,omitempty"`
		IconURL   string          `json:"iconUrl,omitempty"`
		Precision int32           `json:"precision,omitempty"`
		Dust      decimal.Decimal `json:"dust,omitempty"`
	}

	// ShareToken names the fungible liquidity share of a pool.
	ShareToken struct {
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
	}
)

func NewAssetFromMixin(asset *mixin.SafeAsset) *Asset {
	return &Asset{
		AssetID:   asset.AssetID,
		ChainID:   asset.ChainID,
		Symbol:    asset.Symbol,
		Name:      asset.Name,
		IconURL:   asset.IconURL,
		Precision: asset.Precision,
		Dust:      asset.Dust,
	}
}

// ShareToken returns the share token of the asset's pool, e.g. AlBNB / alBNB.
func (a *Asset) ShareToken() ShareToken {
	symbol := strings.ToUpper(a.Symbol)
	return ShareToken{
		Name:   "Al" + symbol,
		Symbol: "al" + symbol,
	}
}
