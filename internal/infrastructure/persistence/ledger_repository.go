package persistence

import (
	"context"

	"github.com/erp/production/internal/domain/inventory"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ledgerOrder is the replay order of the ledger. Entry ids are UUIDv7, so
// they break ties between entries of the same instant in insertion order.
const ledgerOrder = "occurred_at, id"

// GormLedgerRepository appends and reads ledger entries. It has no update or delete.
type GormLedgerRepository struct {
	db *gorm.DB
}

// NewGormLedgerRepository creates a new GormLedgerRepository
func NewGormLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

// Append inserts entries in one statement
func (r *GormLedgerRepository) Append(ctx context.Context, entries ...*inventory.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		if e.ID == uuid.Nil {
			e.ID = uuid.Must(uuid.NewV7())
		}
	}
	return r.db.WithContext(ctx).Create(entries).Error
}

// FindByKey returns the entries of one balance key in ledger order
func (r *GormLedgerRepository) FindByKey(ctx context.Context, itemCode, warehouseCode string) ([]inventory.LedgerEntry, error) {
	var entries []inventory.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("item_code = ? AND warehouse_code = ?", itemCode, warehouseCode).
		Order(ledgerOrder).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// FindByReference returns the entries of a document, optionally restricted to movement types
func (r *GormLedgerRepository) FindByReference(ctx context.Context, table inventory.RefTable, refNo string, types ...inventory.MovementType) ([]inventory.LedgerEntry, error) {
	var entries []inventory.LedgerEntry
	if err := r.referenceQuery(ctx, table, refNo, types...).
		Order(ledgerOrder).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// ExistsByReference reports whether a document already has an entry of the type
func (r *GormLedgerRepository) ExistsByReference(ctx context.Context, table inventory.RefTable, refNo string, movementType inventory.MovementType) (bool, error) {
	var count int64
	if err := r.referenceQuery(ctx, table, refNo, movementType).
		Limit(1).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormLedgerRepository) referenceQuery(ctx context.Context, table inventory.RefTable, refNo string, types ...inventory.MovementType) *gorm.DB {
	query := r.db.WithContext(ctx).
		Model(&inventory.LedgerEntry{}).
		Where("ref_table = ? AND ref_no = ?", table, refNo)
	if len(types) > 0 {
		query = query.Where("movement_type IN ?", types)
	}
	return query
}

// FindHistory returns entries matching the query in ledger order
func (r *GormLedgerRepository) FindHistory(ctx context.Context, q inventory.LedgerQuery) ([]inventory.LedgerEntry, error) {
	query := r.db.WithContext(ctx).Model(&inventory.LedgerEntry{})
	if q.ItemCode != "" {
		query = query.Where("item_code = ?", q.ItemCode)
	}
	if q.WarehouseCode != "" {
		query = query.Where("warehouse_code = ?", q.WarehouseCode)
	}
	if q.To != nil {
		query = query.Where("occurred_at <= ?", *q.To)
	}

	var entries []inventory.LedgerEntry
	if err := query.Order(ledgerOrder).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

var _ inventory.LedgerRepository = (*GormLedgerRepository)(nil)
