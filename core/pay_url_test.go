package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePayURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    *PayTx
		wantErr bool
	}{
		{
			name: "valid tx",
			url:  "mixin://mixin.one/pay/0x1234567890abcdef?asset=BTC&amount=1.5&trace=test-trace&memo=test-memo",
			want: &PayTx{
				Trace:  "test-trace",
				Payee:  "0x1234567890abcdef",
				Asset:  "BTC",
				Amount: decimal.RequireFromString("1.5"),
				Memo:   "test-memo",
			},
		},
		{
			name:    "missing payee",
			url:     "mixin://mixin.one/transfer?asset=BTC",
			wantErr: true,
		},
		{
			name:    "bad amount",
			url:     "mixin://mixin.one/pay/abc?amount=lots",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodePayURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Trace, got.Trace)
			assert.Equal(t, tt.want.Payee, got.Payee)
			assert.Equal(t, tt.want.Asset, got.Asset)
			assert.Equal(t, tt.want.Memo, got.Memo)
			assert.True(t, tt.want.Amount.Equal(got.Amount))
		})
	}
}

func TestPayTxURLRoundTrip(t *testing.T) {
	memo, err := EncodeMemo(MemoActionRepayByAmount{MemoAction{MATRepayByAmount}, "busd", decimal.NewFromInt(3)})
	require.NoError(t, err)

	tx := PayTx{Trace: "trace-1", Payee: "pool-bot", Asset: "busd", Amount: decimal.NewFromInt(3), Memo: memo}
	got, err := DecodePayURL(tx.URL())
	require.NoError(t, err)
	assert.Equal(t, tx.Memo, got.Memo)
	assert.Equal(t, tx.Payee, got.Payee)
	assert.True(t, got.Amount.Equal(tx.Amount))
}
