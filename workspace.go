package alphalend

import (
	"context"
	"sort"
	"strconv"

	"github.com/DomeLiquid/alphalend/core"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type (
	transfer struct {
		userId  string
		assetId string
		amount  *uint256.Int
	}

	pendingEvent struct {
		typ     core.EventType
		userId  string
		assetId string
		detail  core.EventDetail
	}

	// workspace holds the clones one call works on. Nothing leaves it until
	// commit.
	workspace struct {
		ctx context.Context
		lp  *LendingPool
		now int64

		pools     map[string]*core.Pool
		positions map[string]*core.UserPoolPosition
		stored    map[string]bool
		assets    []*core.Asset
		events    []pendingEvent
		receipts  []*core.Receipt

		committed []func()

		pulls  []transfer
		pushes []transfer
		alpha  []transfer

		// prefunded is what arrived with a dispatched snapshot and may be
		// consumed by pulls instead of charging the user again.
		prefunded map[string]*transfer
	}
)

func (lp *LendingPool) newWorkspace(ctx context.Context) *workspace {
	return &workspace{
		ctx:       ctx,
		lp:        lp,
		now:       lp.clk.Now().Unix(),
		pools:     make(map[string]*core.Pool),
		positions: make(map[string]*core.UserPoolPosition),
		stored:    make(map[string]bool),
		prefunded: make(map[string]*transfer),
	}
}

// positionKey length prefixes the user so no two pairs share a key.
func positionKey(userId, assetId string) string {
	return strconv.Itoa(len(userId)) + ":" + userId + assetId
}

// pool loads a pool once per call and brings its interest up to date.
func (w *workspace) pool(assetId string) (*core.Pool, error) {
	if pool, ok := w.pools[assetId]; ok {
		return pool, nil
	}
	stored, err := w.lp.store.GetPool(w.ctx, assetId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(core.ErrPoolNotFound, "asset %s", assetId)
		}
		return nil, err
	}
	pool := stored.Clone()
	if err := pool.AccrueInterest(w.lp.log, w.now, w.lp.reservePercent); err != nil {
		return nil, errors.Wrapf(err, "accrue %s", assetId)
	}
	w.pools[assetId] = pool
	return pool, nil
}

// addPool registers a pool created in this call.
func (w *workspace) addPool(pool *core.Pool) {
	w.pools[pool.AssetId] = pool
}

func (w *workspace) position(userId string, pool *core.Pool) (*core.UserPoolPosition, error) {
	key := positionKey(userId, pool.AssetId)
	if position, ok := w.positions[key]; ok {
		return position, nil
	}
	stored, err := w.lp.store.FindPosition(w.ctx, userId, pool.AssetId)
	var position *core.UserPoolPosition
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		position = core.NewUserPoolPosition(w.lp.clk, userId, pool)
	case err != nil:
		return nil, err
	default:
		position = stored.Clone()
		w.stored[key] = true
	}
	w.positions[key] = position
	return position, nil
}

func (w *workspace) account(userId, assetId string) (*core.PoolAccount, error) {
	pool, err := w.pool(assetId)
	if err != nil {
		return nil, err
	}
	position, err := w.position(userId, pool)
	if err != nil {
		return nil, err
	}
	return core.NewPoolAccount(position, pool, core.WithClock(w.lp.clk)), nil
}

// userAccounts returns an account for every pool the user has a position in,
// sorted by asset so health math is stable across calls.
func (w *workspace) userAccounts(userId string) ([]*core.PoolAccount, error) {
	stored, err := w.lp.store.ListPositions(w.ctx, userId)
	if err != nil {
		return nil, err
	}
	assetIds := make(map[string]struct{}, len(stored))
	for _, p := range stored {
		assetIds[p.AssetId] = struct{}{}
	}
	for _, p := range w.positions {
		if p.UserId == userId {
			assetIds[p.AssetId] = struct{}{}
		}
	}

	sorted := make([]string, 0, len(assetIds))
	for assetId := range assetIds {
		sorted = append(sorted, assetId)
	}
	sort.Strings(sorted)

	accounts := make([]*core.PoolAccount, 0, len(sorted))
	for _, assetId := range sorted {
		pa, err := w.account(userId, assetId)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, pa)
	}
	return accounts, nil
}

func (w *workspace) healthEngine(userId string) (*core.HealthEngine, error) {
	accounts, err := w.userAccounts(userId)
	if err != nil {
		return nil, err
	}
	return core.NewHealthEngine(w.ctx, w.lp.oracle, userId, accounts)
}

// checkHealth fails when the user's debt is worth more than their collateral.
// A user without debt is healthy and needs no prices.
func (w *workspace) checkHealth(userId string) error {
	accounts, err := w.userAccounts(userId)
	if err != nil {
		return err
	}
	indebted := false
	for _, pa := range accounts {
		indebted = indebted || pa.Position.HasDebt()
	}
	if !indebted {
		return nil
	}
	engine, err := core.NewHealthEngine(w.ctx, w.lp.oracle, userId, accounts)
	if err != nil {
		return err
	}
	return engine.CheckAccountHealth()
}

// onCommit registers fn to run once the call has been committed.
func (w *workspace) onCommit(fn func()) {
	w.committed = append(w.committed, fn)
}

func (w *workspace) emit(typ core.EventType, userId, assetId string, detail core.EventDetail) {
	w.events = append(w.events, pendingEvent{typ: typ, userId: userId, assetId: assetId, detail: detail})
}

func (w *workspace) pull(from, assetId string, amount *uint256.Int) {
	if amount.IsZero() {
		return
	}
	w.pulls = append(w.pulls, transfer{userId: from, assetId: assetId, amount: amount.Clone()})
}

func (w *workspace) push(to, assetId string, amount *uint256.Int) {
	if amount.IsZero() {
		return
	}
	w.pushes = append(w.pushes, transfer{userId: to, assetId: assetId, amount: amount.Clone()})
}

func (w *workspace) receiveAlpha(userId string, amount *uint256.Int) {
	w.alpha = append(w.alpha, transfer{userId: userId, amount: amount.Clone()})
}

func (w *workspace) prefund(userId, assetId string, amount *uint256.Int) {
	w.prefunded[positionKey(userId, assetId)] = &transfer{userId: userId, assetId: assetId, amount: amount.Clone()}
}

// changes collects the rows to write. A position created in this call that
// still holds nothing is not written.
func (w *workspace) changes() (*core.ChangeSet, error) {
	changes := &core.ChangeSet{
		Assets:   w.assets,
		Receipts: w.receipts,
	}

	assetIds := make([]string, 0, len(w.pools))
	for assetId := range w.pools {
		assetIds = append(assetIds, assetId)
	}
	sort.Strings(assetIds)
	for _, assetId := range assetIds {
		changes.Pools = append(changes.Pools, w.pools[assetId])
	}

	keys := make([]string, 0, len(w.positions))
	for key := range w.positions {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		position := w.positions[key]
		if !w.stored[key] && !position.Initialized && position.IsEmpty() {
			continue
		}
		changes.Positions = append(changes.Positions, position)
	}

	if len(w.events) > 0 {
		seq, err := w.lp.store.NextEventSeq(w.ctx)
		if err != nil {
			return nil, err
		}
		for i, e := range w.events {
			changes.Events = append(changes.Events, core.NewEvent(w.lp.clk, seq+int64(i), e.typ, e.userId, e.assetId, e.detail))
		}
	}
	return changes, nil
}

// commit moves the queued tokens and then writes the change set. A transfer
// or write that fails aborts the call; transfers already made are reversed
// newest first.
func (w *workspace) commit() error {
	changes, err := w.changes()
	if err != nil {
		return err
	}

	var done []func() error
	rollback := func(cause error) error {
		for i := len(done) - 1; i >= 0; i-- {
			if err := done[i](); err != nil {
				w.lp.log.Error().Err(err).AnErr("cause", cause).Msg("reverse transfer")
			}
		}
		return cause
	}

	for _, t := range w.pulls {
		t := t
		if t.amount = w.consumePrefunded(t); t.amount.IsZero() {
			continue
		}
		if err := w.lp.vault.Pull(w.ctx, t.userId, t.assetId, t.amount); err != nil {
			return rollback(errors.Wrapf(err, "pull %s %s from %s", t.amount.Dec(), t.assetId, t.userId))
		}
		done = append(done, func() error { return w.lp.vault.Push(w.ctx, t.userId, t.assetId, t.amount) })
	}

	// anything prefunded and left over goes back to its sender
	for _, key := range sortedKeys(w.prefunded) {
		if t := w.prefunded[key]; !t.amount.IsZero() {
			w.pushes = append(w.pushes, *t)
		}
	}

	for _, t := range w.pushes {
		t := t
		if err := w.lp.vault.Push(w.ctx, t.userId, t.assetId, t.amount); err != nil {
			return rollback(errors.Wrapf(err, "push %s %s to %s", t.amount.Dec(), t.assetId, t.userId))
		}
		done = append(done, func() error { return w.lp.vault.Pull(w.ctx, t.userId, t.assetId, t.amount) })
	}

	for _, t := range w.alpha {
		t := t
		if err := w.lp.alphaReceiver.ReceiveAlpha(w.ctx, t.userId, t.amount); err != nil {
			return rollback(errors.Wrapf(err, "receive alpha for %s", t.userId))
		}
		done = append(done, func() error { return w.lp.alphaReceiver.RevertAlpha(w.ctx, t.userId, t.amount) })
	}

	if changes.IsEmpty() {
		return nil
	}
	if err := w.lp.store.Commit(w.ctx, changes); err != nil {
		return rollback(errors.Wrap(err, "commit"))
	}
	return nil
}

// consumePrefunded returns what still has to be pulled for t.
func (w *workspace) consumePrefunded(t transfer) *uint256.Int {
	funded, ok := w.prefunded[positionKey(t.userId, t.assetId)]
	if !ok {
		return t.amount
	}
	if funded.amount.Lt(t.amount) {
		rest := new(uint256.Int).Sub(t.amount, funded.amount)
		funded.amount = new(uint256.Int)
		return rest
	}
	funded.amount = new(uint256.Int).Sub(funded.amount, t.amount)
	return new(uint256.Int)
}

func sortedKeys(m map[string]*transfer) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
