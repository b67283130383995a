package core

import (
	"context"
	"database/sql/driver"
	"encoding/json"

	"github.com/facebookgo/clock"
	"github.com/pkg/errors"
)

type (
	ReceiptStore interface {
		// GetReceiptByRequestId returns ErrReceiptNotFound for an unseen request.
		GetReceiptByRequestId(ctx context.Context, requestId string) (*Receipt, error)
		SaveReceipt(ctx context.Context, receipt *Receipt) error
	}

	Receipt struct {
		RequestId string         `json:"requestId"`
		UserId    string         `json:"userId"`
		AssetId   string         `json:"assetId"`
		Action    MemoActionType `json:"action"`
		Status    ReceiptStatus  `json:"status"`
		Message   string         `json:"message"`

		Extra     ReceiptExtra `json:"extra,omitempty"`
		CreatedAt int64        `json:"createdAt"`
		UpdatedAt int64        `json:"updatedAt"`
	}

	// ReceiptExtra keeps the outcome of a confirmed action as WAD integer strings.
	ReceiptExtra struct {
		Amount          string           `json:"amount,omitempty"`
		Shares          string           `json:"shares,omitempty"`
		LiquidateResult *LiquidateResult `json:"liquidateResult,omitempty"`
	}
)

func NewReceipt(clk clock.Clock, requestId, userId, assetId string, action MemoActionType) *Receipt {
	return &Receipt{
		RequestId: requestId,
		UserId:    userId,
		AssetId:   assetId,
		Action:    action,
		Status:    ReceiptStatusPending,
		CreatedAt: clk.Now().Unix(),
		UpdatedAt: clk.Now().Unix(),
	}
}

func (j ReceiptExtra) Value() (driver.Value, error) {
	valueString, err := json.Marshal(j)
	return string(valueString), err
}

func (j *ReceiptExtra) Scan(value any) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	case nil:
		return nil
	default:
		return errors.Errorf("unsupported receipt extra type %T", value)
	}
}

type ReceiptStatus string

const (
	ReceiptStatusPending   ReceiptStatus = "pending"
	ReceiptStatusConfirmed ReceiptStatus = "confirmed"
	ReceiptStatusFailed    ReceiptStatus = "failed"
)

func (s ReceiptStatus) String() string {
	switch s {
	case ReceiptStatusPending:
		return "pending"
	case ReceiptStatusConfirmed:
		return "confirmed"
	case ReceiptStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (r *Receipt) UpdateStatus(clk clock.Clock, status ReceiptStatus, message string) {
	r.Status = status
	r.Message = message
	r.UpdatedAt = clk.Now().Unix()
}

// IsValid reports whether a stored receipt matches a replayed request.
func (r Receipt) IsValid(userId string, action MemoActionType) bool {
	return r.UserId == userId && r.Action == action
}
