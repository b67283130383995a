package core

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"strconv"

	"github.com/DomeLiquid/alphalend/utils"
	"github.com/facebookgo/clock"
	"github.com/gofrs/uuid"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

type (
	EventStore interface {
		ListEvents(ctx context.Context, userId string, typ EventType, createdBeforeAt, limit int64) ([]*Event, error)
	}

	Event struct {
		Id        uuid.UUID   `json:"id"`
		Seq       int64       `json:"seq"`
		Type      EventType   `json:"type"`
		UserId    string      `json:"userId"`
		AssetId   string      `json:"assetId"`
		Detail    EventDetail `json:"detail"`
		CreatedAt int64       `json:"createdAt"`
	}

	// EventDetail carries WAD integer strings; zero values are omitted.
	EventDetail struct {
		Amount      string            `json:"amount,omitempty"`
		Shares      string            `json:"shares,omitempty"`
		Counterpart string            `json:"counterpart,omitempty"`
		Extra       map[string]string `json:"extra,omitempty"`
	}
)

type EventType string

const (
	EventPoolInitialized       EventType = "PoolInitialized"
	EventPoolStatusUpdated     EventType = "PoolStatusUpdated"
	EventPoolConfigUpdated     EventType = "PoolConfigUpdated"
	EventReservePercentUpdated EventType = "ReservePercentUpdated"
	EventReserveWithdrawn      EventType = "ReserveWithdrawn"
	EventDeposit               EventType = "Deposit"
	EventWithdraw              EventType = "Withdraw"
	EventBorrow                EventType = "Borrow"
	EventRepay                 EventType = "Repay"
	EventLiquidate             EventType = "Liquidate"
	EventSetCollateral         EventType = "SetCollateral"
	EventRewardGiven           EventType = "RewardGiven"
	EventAlphaClaimed          EventType = "AlphaClaimed"
)

// NewEvent ids are derived from the commit sequence so replays stay stable.
func NewEvent(clk clock.Clock, seq int64, typ EventType, userId, assetId string, detail EventDetail) *Event {
	return &Event{
		Id:        utils.DeriveId("event", strconv.FormatInt(seq, 10), string(typ), userId, assetId),
		Seq:       seq,
		Type:      typ,
		UserId:    userId,
		AssetId:   assetId,
		Detail:    detail,
		CreatedAt: clk.Now().Unix(),
	}
}

func AmountDetail(amount, shares *uint256.Int) EventDetail {
	var d EventDetail
	if amount != nil {
		d.Amount = amount.Dec()
	}
	if shares != nil {
		d.Shares = shares.Dec()
	}
	return d
}

func (d EventDetail) With(key, value string) EventDetail {
	extra := make(map[string]string, len(d.Extra)+1)
	for k, v := range d.Extra {
		extra[k] = v
	}
	extra[key] = value
	d.Extra = extra
	return d
}

func (j EventDetail) Value() (driver.Value, error) {
	valueString, err := json.Marshal(j)
	return string(valueString), err
}

func (j *EventDetail) Scan(value any) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	case nil:
		return nil
	default:
		return errors.Errorf("unsupported event detail type %T", value)
	}
}
