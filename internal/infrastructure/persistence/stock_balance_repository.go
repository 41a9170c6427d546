package persistence

import (
	"context"
	"errors"

	"github.com/erp/production/internal/domain/inventory"
	"github.com/erp/production/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStockBalanceRepository persists current balances. Mutations go through
// FindBy...ForUpdate inside a transaction followed by SaveWithLock.
type GormStockBalanceRepository struct {
	db *gorm.DB
}

// NewGormStockBalanceRepository creates a new GormStockBalanceRepository
func NewGormStockBalanceRepository(db *gorm.DB) *GormStockBalanceRepository {
	return &GormStockBalanceRepository{db: db}
}

// FindByKey finds the balance for an item in a warehouse
func (r *GormStockBalanceRepository) FindByKey(ctx context.Context, itemCode, warehouseCode string) (*inventory.StockBalance, error) {
	return r.findByKey(r.db.WithContext(ctx), itemCode, warehouseCode)
}

// FindByKeyForUpdate finds the balance and holds a row lock on it until the
// surrounding transaction ends
func (r *GormStockBalanceRepository) FindByKeyForUpdate(ctx context.Context, itemCode, warehouseCode string) (*inventory.StockBalance, error) {
	return r.findByKey(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), itemCode, warehouseCode)
}

func (r *GormStockBalanceRepository) findByKey(db *gorm.DB, itemCode, warehouseCode string) (*inventory.StockBalance, error) {
	var balance inventory.StockBalance
	if err := db.
		Where("item_code = ? AND warehouse_code = ?", itemCode, warehouseCode).
		First(&balance).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound.
				WithDetail("item", itemCode).
				WithDetail("warehouse", warehouseCode)
		}
		return nil, err
	}
	return &balance, nil
}

// FindByItem returns every warehouse balance of an item ordered by warehouse code
func (r *GormStockBalanceRepository) FindByItem(ctx context.Context, itemCode string) ([]inventory.StockBalance, error) {
	return r.findByItem(r.db.WithContext(ctx), itemCode)
}

// FindByItemForUpdate locks every warehouse balance of an item. Rows are
// locked in warehouse-code order so two allocations of the same item never
// deadlock on each other.
func (r *GormStockBalanceRepository) FindByItemForUpdate(ctx context.Context, itemCode string) ([]inventory.StockBalance, error) {
	return r.findByItem(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), itemCode)
}

func (r *GormStockBalanceRepository) findByItem(db *gorm.DB, itemCode string) ([]inventory.StockBalance, error) {
	var balances []inventory.StockBalance
	if err := db.
		Where("item_code = ?", itemCode).
		Order("warehouse_code").
		Find(&balances).Error; err != nil {
		return nil, err
	}
	return balances, nil
}

// Create inserts a new balance row
func (r *GormStockBalanceRepository) Create(ctx context.Context, balance *inventory.StockBalance) error {
	if err := r.db.WithContext(ctx).Create(balance).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists.
				WithDetail("item", balance.ItemCode).
				WithDetail("warehouse", balance.WarehouseCode)
		}
		return err
	}
	balance.MarkPersisted()
	return nil
}

// SaveWithLock updates the balance only if the stored version is the one it
// was read at (Version-1). A lost race yields ErrConcurrencyConflict.
func (r *GormStockBalanceRepository) SaveWithLock(ctx context.Context, balance *inventory.StockBalance) error {
	result := r.db.WithContext(ctx).
		Model(&inventory.StockBalance{}).
		Where("item_code = ? AND warehouse_code = ? AND version = ?",
			balance.ItemCode, balance.WarehouseCode, balance.Version-1).
		Updates(map[string]interface{}{
			"on_hand":     balance.OnHand,
			"allocated":   balance.Allocated,
			"quarantined": balance.Quarantined,
			"version":     balance.Version,
			"updated_at":  balance.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict.
			WithDetail("item", balance.ItemCode).
			WithDetail("warehouse", balance.WarehouseCode)
	}
	balance.MarkPersisted()
	return nil
}

var _ inventory.StockBalanceRepository = (*GormStockBalanceRepository)(nil)
