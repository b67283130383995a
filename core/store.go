package core

import (
	"context"

	"github.com/holiman/uint256"
)

type (
	Store interface {
		AssetStore
		PoolStore
		PositionStore
		ReceiptStore
		EventStore

		// Commit writes a change set atomically. Nothing is written on error.
		Commit(ctx context.Context, changes *ChangeSet) error
		// NextEventSeq returns the sequence the next committed event should use.
		NextEventSeq(ctx context.Context) (int64, error)
	}

	ChangeSet struct {
		Assets    []*Asset
		Pools     []*Pool
		Positions []*UserPoolPosition
		Events    []*Event
		Receipts  []*Receipt
	}

	// Vault moves tokens between users and the lending pool custody.
	Vault interface {
		Pull(ctx context.Context, from, assetId string, amount *uint256.Int) error
		Push(ctx context.Context, to, assetId string, amount *uint256.Int) error
	}

	// AlphaReceiver takes claimed reward on behalf of a user, e.g. a vesting escrow.
	// RevertAlpha takes back a ReceiveAlpha of a call that failed to commit.
	AlphaReceiver interface {
		ReceiveAlpha(ctx context.Context, userId string, amount *uint256.Int) error
		RevertAlpha(ctx context.Context, userId string, amount *uint256.Int) error
	}
)

func (c *ChangeSet) IsEmpty() bool {
	return len(c.Assets) == 0 && len(c.Pools) == 0 && len(c.Positions) == 0 && len(c.Events) == 0 && len(c.Receipts) == 0
}
