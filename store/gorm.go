package store

import (
	"context"

	"github.com/DomeLiquid/alphalend/core"
	"github.com/glebarez/sqlite"
	"github.com/gofrs/uuid"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Amounts are stored as base-10 strings of the WAD integer; sqlite and
// postgres integers cannot hold 256 bits.
type (
	assetRow struct {
		AssetID   string `gorm:"primaryKey"`
		ChainID   string
		Symbol    string
		Name      string
		IconURL   string
		Precision int32
		Dust      string
	}

	poolRow struct {
		Id          string `gorm:"primaryKey"`
		AssetId     string `gorm:"uniqueIndex"`
		Status      uint8
		ShareName   string
		ShareSymbol string

		Cash                 string
		TotalBorrows         string
		TotalBorrowShares    string
		TotalLiquidityShares string
		PoolReserves         string

		BaseBorrowRate     string
		Slope1             string
		Slope2             string
		OptimalUtilization string
		ExcessUtilization  string
		CollateralPercent  string
		LiquidationBonus   string

		LendAlphaMultiplier   string
		BorrowAlphaMultiplier string
		AlphaDust             string

		LastUpdateTimestamp int64
		CreatedAt           int64 `gorm:"autoCreateTime:false"`
		UpdatedAt           int64 `gorm:"autoUpdateTime:false"`
	}

	positionRow struct {
		Id      string `gorm:"primaryKey"`
		UserId  string `gorm:"index:idx_position_user_asset,unique"`
		AssetId string `gorm:"index:idx_position_user_asset,unique"`

		LiquidityShares string
		BorrowShares    string
		UseAsCollateral bool
		Initialized     bool

		LastLendAlphaMultiplier   string
		LastBorrowAlphaMultiplier string
		AlphaClaimable            string

		CreatedAt int64 `gorm:"autoCreateTime:false"`
		UpdatedAt int64 `gorm:"autoUpdateTime:false"`
	}

	receiptRow struct {
		RequestId string `gorm:"primaryKey"`
		UserId    string `gorm:"index"`
		AssetId   string
		Action    uint8
		Status    string
		Message   string
		Extra     core.ReceiptExtra `gorm:"type:text"`
		CreatedAt int64             `gorm:"autoCreateTime:false"`
		UpdatedAt int64             `gorm:"autoUpdateTime:false"`
	}

	eventRow struct {
		Id        string `gorm:"primaryKey"`
		Seq       int64  `gorm:"uniqueIndex"`
		Type      string `gorm:"index"`
		UserId    string `gorm:"index"`
		AssetId   string
		Detail    core.EventDetail `gorm:"type:text"`
		CreatedAt int64            `gorm:"autoCreateTime:false"`
	}
)

func (assetRow) TableName() string    { return "assets" }
func (poolRow) TableName() string     { return "pools" }
func (positionRow) TableName() string { return "positions" }
func (receiptRow) TableName() string  { return "receipts" }
func (eventRow) TableName() string    { return "events" }

type GormStore struct {
	db *gorm.DB
}

var _ core.Store = (*GormStore)(nil)

// OpenSQLite opens a pure go sqlite database, e.g. "file:alphalend.db" or
// "file::memory:?cache=shared".
func OpenSQLite(dsn string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Migrate() error {
	return s.db.AutoMigrate(&assetRow{}, &poolRow{}, &positionRow{}, &receiptRow{}, &eventRow{})
}

func (s *GormStore) GetAsset(ctx context.Context, assetId string) (*core.Asset, error) {
	var row assetRow
	if err := s.db.WithContext(ctx).First(&row, "asset_id = ?", assetId).Error; err != nil {
		return nil, err
	}
	return row.toAsset()
}

func (s *GormStore) UpsertAsset(ctx context.Context, asset *core.Asset) error {
	row := newAssetRow(asset)
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(row).Error
}

func (s *GormStore) GetPool(ctx context.Context, assetId string) (*core.Pool, error) {
	var row poolRow
	if err := s.db.WithContext(ctx).First(&row, "asset_id = ?", assetId).Error; err != nil {
		return nil, err
	}
	return row.toPool()
}

func (s *GormStore) ListPools(ctx context.Context) ([]*core.Pool, error) {
	var rows []poolRow
	if err := s.db.WithContext(ctx).Order("created_at, asset_id").Find(&rows).Error; err != nil {
		return nil, err
	}
	pools := make([]*core.Pool, 0, len(rows))
	for i := range rows {
		pool, err := rows[i].toPool()
		if err != nil {
			return nil, err
		}
		pools = append(pools, pool)
	}
	return pools, nil
}

func (s *GormStore) FindPosition(ctx context.Context, userId, assetId string) (*core.UserPoolPosition, error) {
	var row positionRow
	if err := s.db.WithContext(ctx).First(&row, "user_id = ? AND asset_id = ?", userId, assetId).Error; err != nil {
		return nil, err
	}
	return row.toPosition()
}

func (s *GormStore) ListPositions(ctx context.Context, userId string) ([]*core.UserPoolPosition, error) {
	var rows []positionRow
	if err := s.db.WithContext(ctx).Where("user_id = ?", userId).Order("asset_id").Find(&rows).Error; err != nil {
		return nil, err
	}
	positions := make([]*core.UserPoolPosition, 0, len(rows))
	for i := range rows {
		position, err := rows[i].toPosition()
		if err != nil {
			return nil, err
		}
		positions = append(positions, position)
	}
	return positions, nil
}

func (s *GormStore) GetReceiptByRequestId(ctx context.Context, requestId string) (*core.Receipt, error) {
	var row receiptRow
	if err := s.db.WithContext(ctx).First(&row, "request_id = ?", requestId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, core.ErrReceiptNotFound
		}
		return nil, err
	}
	return row.toReceipt(), nil
}

func (s *GormStore) SaveReceipt(ctx context.Context, receipt *core.Receipt) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(newReceiptRow(receipt)).Error
}

func (s *GormStore) ListEvents(ctx context.Context, userId string, typ core.EventType, createdBeforeAt, limit int64) ([]*core.Event, error) {
	tx := s.db.WithContext(ctx).Order("seq DESC")
	if userId != "" {
		tx = tx.Where("user_id = ?", userId)
	}
	if typ != "" {
		tx = tx.Where("type = ?", string(typ))
	}
	if createdBeforeAt > 0 {
		tx = tx.Where("created_at < ?", createdBeforeAt)
	}
	if limit > 0 {
		tx = tx.Limit(int(limit))
	}

	var rows []eventRow
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}
	events := make([]*core.Event, 0, len(rows))
	for i := range rows {
		event, err := rows[i].toEvent()
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

func (s *GormStore) NextEventSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := s.db.WithContext(ctx).Model(&eventRow{}).Select("COALESCE(MAX(seq), 0)").Scan(&seq).Error; err != nil {
		return 0, err
	}
	return seq + 1, nil
}

func (s *GormStore) Commit(ctx context.Context, changes *core.ChangeSet) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		upsert := func(row any) *gorm.DB {
			return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(row)
		}
		for _, asset := range changes.Assets {
			if err := upsert(newAssetRow(asset)).Error; err != nil {
				return errors.Wrapf(err, "save asset %s", asset.AssetID)
			}
		}
		for _, pool := range changes.Pools {
			if err := upsert(newPoolRow(pool)).Error; err != nil {
				return errors.Wrapf(err, "save pool %s", pool.AssetId)
			}
		}
		for _, position := range changes.Positions {
			if err := upsert(newPositionRow(position)).Error; err != nil {
				return errors.Wrapf(err, "save position %s/%s", position.UserId, position.AssetId)
			}
		}
		for _, receipt := range changes.Receipts {
			if err := upsert(newReceiptRow(receipt)).Error; err != nil {
				return errors.Wrapf(err, "save receipt %s", receipt.RequestId)
			}
		}
		// a seq taken by a concurrent writer fails the unique index
		for _, event := range changes.Events {
			if err := tx.Create(newEventRow(event)).Error; err != nil {
				return errors.Wrapf(err, "save event %d", event.Seq)
			}
		}
		return nil
	})
}

func dec(x *uint256.Int) string {
	if x == nil {
		return "0"
	}
	return x.Dec()
}

func parse(s string) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int), nil
	}
	z, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %q", s)
	}
	return z, nil
}

// parseAll fills dst from src in order and stops at the first bad value.
func parseAll(dst []**uint256.Int, src []string) error {
	for i := range dst {
		z, err := parse(src[i])
		if err != nil {
			return err
		}
		*dst[i] = z
	}
	return nil
}

func newAssetRow(a *core.Asset) *assetRow {
	return &assetRow{
		AssetID:   a.AssetID,
		ChainID:   a.ChainID,
		Symbol:    a.Symbol,
		Name:      a.Name,
		IconURL:   a.IconURL,
		Precision: a.Precision,
		Dust:      a.Dust.String(),
	}
}

func (r *assetRow) toAsset() (*core.Asset, error) {
	dust := decimal.Zero
	if r.Dust != "" {
		var err error
		if dust, err = decimal.NewFromString(r.Dust); err != nil {
			return nil, err
		}
	}
	return &core.Asset{
		AssetID:   r.AssetID,
		ChainID:   r.ChainID,
		Symbol:    r.Symbol,
		Name:      r.Name,
		IconURL:   r.IconURL,
		Precision: r.Precision,
		Dust:      dust,
	}, nil
}

func newPoolRow(p *core.Pool) *poolRow {
	return &poolRow{
		Id:                    p.Id.String(),
		AssetId:               p.AssetId,
		Status:                uint8(p.Status),
		ShareName:             p.ShareToken.Name,
		ShareSymbol:           p.ShareToken.Symbol,
		Cash:                  dec(p.Cash),
		TotalBorrows:          dec(p.TotalBorrows),
		TotalBorrowShares:     dec(p.TotalBorrowShares),
		TotalLiquidityShares:  dec(p.TotalLiquidityShares),
		PoolReserves:          dec(p.PoolReserves),
		BaseBorrowRate:        dec(p.Config.BaseBorrowRate),
		Slope1:                dec(p.Config.Slope1),
		Slope2:                dec(p.Config.Slope2),
		OptimalUtilization:    dec(p.Config.OptimalUtilization),
		ExcessUtilization:     dec(p.Config.ExcessUtilization),
		CollateralPercent:     dec(p.Config.CollateralPercent),
		LiquidationBonus:      dec(p.Config.LiquidationBonus),
		LendAlphaMultiplier:   dec(p.LendAlphaMultiplier),
		BorrowAlphaMultiplier: dec(p.BorrowAlphaMultiplier),
		AlphaDust:             dec(p.AlphaDust),
		LastUpdateTimestamp:   p.LastUpdateTimestamp,
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
	}
}

func (r *poolRow) toPool() (*core.Pool, error) {
	id, err := uuid.FromString(r.Id)
	if err != nil {
		return nil, err
	}
	p := &core.Pool{
		Id:                  id,
		AssetId:             r.AssetId,
		Status:              core.PoolStatus(r.Status),
		ShareToken:          core.ShareToken{Name: r.ShareName, Symbol: r.ShareSymbol},
		LastUpdateTimestamp: r.LastUpdateTimestamp,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
	err = parseAll(
		[]**uint256.Int{
			&p.Cash, &p.TotalBorrows, &p.TotalBorrowShares, &p.TotalLiquidityShares, &p.PoolReserves,
			&p.Config.BaseBorrowRate, &p.Config.Slope1, &p.Config.Slope2, &p.Config.OptimalUtilization,
			&p.Config.ExcessUtilization, &p.Config.CollateralPercent, &p.Config.LiquidationBonus,
			&p.LendAlphaMultiplier, &p.BorrowAlphaMultiplier, &p.AlphaDust,
		},
		[]string{
			r.Cash, r.TotalBorrows, r.TotalBorrowShares, r.TotalLiquidityShares, r.PoolReserves,
			r.BaseBorrowRate, r.Slope1, r.Slope2, r.OptimalUtilization,
			r.ExcessUtilization, r.CollateralPercent, r.LiquidationBonus,
			r.LendAlphaMultiplier, r.BorrowAlphaMultiplier, r.AlphaDust,
		},
	)
	if err != nil {
		return nil, errors.Wrapf(err, "pool %s", r.AssetId)
	}
	return p, nil
}

func newPositionRow(p *core.UserPoolPosition) *positionRow {
	return &positionRow{
		Id:                        p.Id.String(),
		UserId:                    p.UserId,
		AssetId:                   p.AssetId,
		LiquidityShares:           dec(p.LiquidityShares),
		BorrowShares:              dec(p.BorrowShares),
		UseAsCollateral:           p.UseAsCollateral,
		Initialized:               p.Initialized,
		LastLendAlphaMultiplier:   dec(p.LastLendAlphaMultiplier),
		LastBorrowAlphaMultiplier: dec(p.LastBorrowAlphaMultiplier),
		AlphaClaimable:            dec(p.AlphaClaimable),
		CreatedAt:                 p.CreatedAt,
		UpdatedAt:                 p.UpdatedAt,
	}
}

func (r *positionRow) toPosition() (*core.UserPoolPosition, error) {
	id, err := uuid.FromString(r.Id)
	if err != nil {
		return nil, err
	}
	p := &core.UserPoolPosition{
		Id:              id,
		UserId:          r.UserId,
		AssetId:         r.AssetId,
		UseAsCollateral: r.UseAsCollateral,
		Initialized:     r.Initialized,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	err = parseAll(
		[]**uint256.Int{&p.LiquidityShares, &p.BorrowShares, &p.LastLendAlphaMultiplier, &p.LastBorrowAlphaMultiplier, &p.AlphaClaimable},
		[]string{r.LiquidityShares, r.BorrowShares, r.LastLendAlphaMultiplier, r.LastBorrowAlphaMultiplier, r.AlphaClaimable},
	)
	if err != nil {
		return nil, errors.Wrapf(err, "position %s/%s", r.UserId, r.AssetId)
	}
	return p, nil
}

func newReceiptRow(r *core.Receipt) *receiptRow {
	return &receiptRow{
		RequestId: r.RequestId,
		UserId:    r.UserId,
		AssetId:   r.AssetId,
		Action:    uint8(r.Action),
		Status:    string(r.Status),
		Message:   r.Message,
		Extra:     r.Extra,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (r *receiptRow) toReceipt() *core.Receipt {
	return &core.Receipt{
		RequestId: r.RequestId,
		UserId:    r.UserId,
		AssetId:   r.AssetId,
		Action:    core.MemoActionType(r.Action),
		Status:    core.ReceiptStatus(r.Status),
		Message:   r.Message,
		Extra:     r.Extra,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func newEventRow(e *core.Event) *eventRow {
	return &eventRow{
		Id:        e.Id.String(),
		Seq:       e.Seq,
		Type:      string(e.Type),
		UserId:    e.UserId,
		AssetId:   e.AssetId,
		Detail:    e.Detail,
		CreatedAt: e.CreatedAt,
	}
}

func (r *eventRow) toEvent() (*core.Event, error) {
	id, err := uuid.FromString(r.Id)
	if err != nil {
		return nil, err
	}
	return &core.Event{
		Id:        id,
		Seq:       r.Seq,
		Type:      core.EventType(r.Type),
		UserId:    r.UserId,
		AssetId:   r.AssetId,
		Detail:    r.Detail,
		CreatedAt: r.CreatedAt,
	}, nil
}
