package core

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// PayTx is a payment request a wallet can sign to send an action memo.
type PayTx struct {
	Trace  string          `json:"trace"`
	Payee  string          `json:"payee"`
	Asset  string          `json:"asset"`
	Amount decimal.Decimal `json:"amount"`
	Memo   string          `json:"memo"`
}

// URL renders the request as mixin://mixin.one/pay/{payee}?asset=..&amount=..&memo=..&trace=..
func (p PayTx) URL() string {
	query := url.Values{}
	query.Set("asset", p.Asset)
	query.Set("amount", p.Amount.String())
	query.Set("memo", p.Memo)
	query.Set("trace", p.Trace)
	return fmt.Sprintf("mixin://mixin.one/pay/%s?%s", p.Payee, query.Encode())
}

func DecodePayURL(raw string) (*PayTx, error) {
	tx, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}

	query, err := url.ParseQuery(tx.RawQuery)
	if err != nil {
		return nil, err
	}

	uid := strings.TrimPrefix(tx.Path, "/pay/")
	if uid == "" || uid == tx.Path {
		return nil, fmt.Errorf("invalid uid in path: %s", tx.Path)
	}

	amount := decimal.Zero
	if s := query.Get("amount"); s != "" {
		if amount, err = decimal.NewFromString(s); err != nil {
			return nil, err
		}
	}

	return &PayTx{
		Trace:  query.Get("trace"),
		Payee:  uid,
		Asset:  query.Get("asset"),
		Amount: amount,
		Memo:   query.Get("memo"),
	}, nil
}
