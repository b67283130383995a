package core

import (
	"context"

	"github.com/fox-one/mixin-sdk-go/v2"
	"github.com/pkg/errors"
)

// SafeAssetReader is satisfied by *mixin.Client.
type SafeAssetReader interface {
	SafeReadAsset(ctx context.Context, assetID string) (*mixin.SafeAsset, error)
}

// MixinMarket reads listed assets and their USD quotes from the mixin network.
type MixinMarket struct {
	client SafeAssetReader
}

func NewMixinMarket(client SafeAssetReader) *MixinMarket {
	return &MixinMarket{client: client}
}

func (m *MixinMarket) read(ctx context.Context, assetId string) (*mixin.SafeAsset, error) {
	asset, err := m.client.SafeReadAsset(ctx, assetId)
	if err != nil {
		if mixin.IsErrorCodes(err, mixin.EndpointNotFound) {
			return nil, &MarketAPIError{StatusCode: 404, Code: mixin.EndpointNotFound, Description: err.Error()}
		}
		return nil, errors.Wrapf(err, "read asset %s", assetId)
	}
	return asset, nil
}

func (m *MixinMarket) GetMarketAsset(ctx context.Context, assetId string) (*MarketAssetInfo, error) {
	asset, err := m.read(ctx, assetId)
	if err != nil {
		return nil, err
	}
	return &MarketAssetInfo{
		CoinID:       asset.AssetID,
		Name:         asset.Name,
		Symbol:       asset.Symbol,
		IconURL:      asset.IconURL,
		CurrentPrice: asset.PriceUSD,
		AssetIDS:     []string{asset.AssetID},
		UpdatedAt:    asset.PriceUpdatedAt,
	}, nil
}

// ReadAsset resolves the metadata of an asset about to be listed.
func (m *MixinMarket) ReadAsset(ctx context.Context, assetId string) (*Asset, error) {
	asset, err := m.read(ctx, assetId)
	if err != nil {
		return nil, err
	}
	return NewAssetFromMixin(asset), nil
}
