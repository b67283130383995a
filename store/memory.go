package store

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/DomeLiquid/alphalend/core"
	"github.com/DomeLiquid/alphalend/wad"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// MemoryStore keeps everything in maps. Reads and writes work on clones so
// callers never share state with the store.
type MemoryStore struct {
	mu sync.RWMutex

	assets    map[string]*core.Asset
	pools     map[string]*core.Pool
	positions map[string]*core.UserPoolPosition
	receipts  map[string]*core.Receipt
	events    []*core.Event
}

var _ core.Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		assets:    make(map[string]*core.Asset),
		pools:     make(map[string]*core.Pool),
		positions: make(map[string]*core.UserPoolPosition),
		receipts:  make(map[string]*core.Receipt),
	}
}

// positionKey length prefixes the user so no two pairs share a key.
func positionKey(userId, assetId string) string {
	return strconv.Itoa(len(userId)) + ":" + userId + assetId
}

func (s *MemoryStore) GetAsset(_ context.Context, assetId string) (*core.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	asset, ok := s.assets[assetId]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *asset
	return &clone, nil
}

func (s *MemoryStore) UpsertAsset(_ context.Context, asset *core.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *asset
	s.assets[asset.AssetID] = &clone
	return nil
}

func (s *MemoryStore) GetPool(_ context.Context, assetId string) (*core.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pool, ok := s.pools[assetId]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return pool.Clone(), nil
}

func (s *MemoryStore) ListPools(_ context.Context) ([]*core.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pools := make([]*core.Pool, 0, len(s.pools))
	for _, pool := range s.pools {
		pools = append(pools, pool.Clone())
	}
	sort.Slice(pools, func(i, j int) bool {
		return pools[i].CreatedAt < pools[j].CreatedAt ||
			(pools[i].CreatedAt == pools[j].CreatedAt && pools[i].AssetId < pools[j].AssetId)
	})
	return pools, nil
}

func (s *MemoryStore) FindPosition(_ context.Context, userId, assetId string) (*core.UserPoolPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	position, ok := s.positions[positionKey(userId, assetId)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return position.Clone(), nil
}

func (s *MemoryStore) ListPositions(_ context.Context, userId string) ([]*core.UserPoolPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var positions []*core.UserPoolPosition
	for _, position := range s.positions {
		if position.UserId == userId {
			positions = append(positions, position.Clone())
		}
	}
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].AssetId < positions[j].AssetId
	})
	return positions, nil
}

func (s *MemoryStore) GetReceiptByRequestId(_ context.Context, requestId string) (*core.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	receipt, ok := s.receipts[requestId]
	if !ok {
		return nil, core.ErrReceiptNotFound
	}
	clone := *receipt
	return &clone, nil
}

func (s *MemoryStore) SaveReceipt(_ context.Context, receipt *core.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *receipt
	s.receipts[receipt.RequestId] = &clone
	return nil
}

// ListEvents returns the newest events first. Empty userId or typ match all;
// createdBeforeAt <= 0 means no upper bound.
func (s *MemoryStore) ListEvents(_ context.Context, userId string, typ core.EventType, createdBeforeAt, limit int64) ([]*core.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var events []*core.Event
	for i := len(s.events) - 1; i >= 0; i-- {
		e := s.events[i]
		if userId != "" && e.UserId != userId {
			continue
		}
		if typ != "" && e.Type != typ {
			continue
		}
		if createdBeforeAt > 0 && e.CreatedAt >= createdBeforeAt {
			continue
		}
		clone := *e
		events = append(events, &clone)
		if limit > 0 && int64(len(events)) >= limit {
			break
		}
	}
	return events, nil
}

func (s *MemoryStore) NextEventSeq(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.events)) + 1, nil
}

func (s *MemoryStore) Commit(_ context.Context, changes *core.ChangeSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := int64(len(s.events)) + 1
	for _, e := range changes.Events {
		if e.Seq != next {
			return errors.Errorf("event seq %d, want %d", e.Seq, next)
		}
		next++
	}

	for _, asset := range changes.Assets {
		clone := *asset
		s.assets[asset.AssetID] = &clone
	}
	for _, pool := range changes.Pools {
		s.pools[pool.AssetId] = pool.Clone()
	}
	for _, position := range changes.Positions {
		s.positions[positionKey(position.UserId, position.AssetId)] = position.Clone()
	}
	for _, receipt := range changes.Receipts {
		clone := *receipt
		s.receipts[receipt.RequestId] = &clone
	}
	for _, e := range changes.Events {
		clone := *e
		s.events = append(s.events, &clone)
	}
	return nil
}

// MemoryVault tracks user wallets and the pool custody per asset.
type MemoryVault struct {
	mu       sync.Mutex
	balances map[string]*uint256.Int
	custody  map[string]*uint256.Int
}

var _ core.Vault = (*MemoryVault)(nil)

func NewMemoryVault() *MemoryVault {
	return &MemoryVault{
		balances: make(map[string]*uint256.Int),
		custody:  make(map[string]*uint256.Int),
	}
}

// Fund credits a user wallet.
func (v *MemoryVault) Fund(userId, assetId string, amount *uint256.Int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	key := positionKey(userId, assetId)
	v.balances[key] = new(uint256.Int).Add(wad.CloneOrZero(v.balances[key]), amount)
}

// Receive credits custody directly, as a transfer to the pool does.
func (v *MemoryVault) Receive(assetId string, amount *uint256.Int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.custody[assetId] = new(uint256.Int).Add(wad.CloneOrZero(v.custody[assetId]), amount)
}

func (v *MemoryVault) Balance(userId, assetId string) *uint256.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return wad.CloneOrZero(v.balances[positionKey(userId, assetId)])
}

func (v *MemoryVault) Custody(assetId string) *uint256.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return wad.CloneOrZero(v.custody[assetId])
}

func (v *MemoryVault) Pull(_ context.Context, from, assetId string, amount *uint256.Int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	key := positionKey(from, assetId)
	balance := wad.CloneOrZero(v.balances[key])
	if balance.Lt(amount) {
		return errors.Errorf("insufficient balance of %s: %s < %s", assetId, balance.Dec(), amount.Dec())
	}
	v.balances[key] = new(uint256.Int).Sub(balance, amount)
	v.custody[assetId] = new(uint256.Int).Add(wad.CloneOrZero(v.custody[assetId]), amount)
	return nil
}

func (v *MemoryVault) Push(_ context.Context, to, assetId string, amount *uint256.Int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	custody := wad.CloneOrZero(v.custody[assetId])
	if custody.Lt(amount) {
		return errors.Errorf("insufficient custody of %s: %s < %s", assetId, custody.Dec(), amount.Dec())
	}
	key := positionKey(to, assetId)
	v.custody[assetId] = new(uint256.Int).Sub(custody, amount)
	v.balances[key] = new(uint256.Int).Add(wad.CloneOrZero(v.balances[key]), amount)
	return nil
}
