package core

import (
	"github.com/shopspring/decimal"
)

// Snapshot is an inbound transfer carrying an action memo. RequestId makes
// dispatching idempotent.
type Snapshot struct {
	SnapshotId string          `json:"snapshotId"`
	RequestId  string          `json:"requestId"`
	UserId     string          `json:"userId"`
	AssetId    string          `json:"assetId"`
	Amount     decimal.Decimal `json:"amount"`
	Memo       string          `json:"memo"`
	CreatedAt  int64           `json:"createdAt"`
}

// Attached reports whether funds came with the snapshot.
func (s Snapshot) Attached() bool {
	return s.AssetId != "" && s.Amount.IsPositive()
}
