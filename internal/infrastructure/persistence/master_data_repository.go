package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/erp/production/internal/domain/catalog"
	"github.com/erp/production/internal/domain/partner"
	"github.com/erp/production/internal/domain/shared"
	"gorm.io/gorm"
)

// Items and warehouses are master data keyed by a code column. The engine
// only reads them; Save exists for seeding.

func findByCode[T any](ctx context.Context, db *gorm.DB, code, kind string) (*T, error) {
	var row T
	err := db.WithContext(ctx).Where("code = ?", strings.TrimSpace(code)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrNotFound.WithDetail(kind, code)
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// findByCodes returns the rows whose code is listed, ordered by code.
// Unknown codes are absent from the result rather than an error.
func findByCodes[T any](ctx context.Context, db *gorm.DB, codes []string) ([]T, error) {
	rows := []T{}
	if len(codes) == 0 {
		return rows, nil
	}
	if err := db.WithContext(ctx).Where("code IN ?", codes).Order("code").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GormItemRepository reads the item master.
type GormItemRepository struct {
	db *gorm.DB
}

func NewGormItemRepository(db *gorm.DB) *GormItemRepository {
	return &GormItemRepository{db: db}
}

func (r *GormItemRepository) FindByCode(ctx context.Context, code string) (*catalog.Item, error) {
	return findByCode[catalog.Item](ctx, r.db, code, "item")
}

func (r *GormItemRepository) FindByCodes(ctx context.Context, codes []string) ([]catalog.Item, error) {
	return findByCodes[catalog.Item](ctx, r.db, codes)
}

func (r *GormItemRepository) Save(ctx context.Context, item *catalog.Item) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// GormWarehouseRepository reads the warehouse master.
type GormWarehouseRepository struct {
	db *gorm.DB
}

func NewGormWarehouseRepository(db *gorm.DB) *GormWarehouseRepository {
	return &GormWarehouseRepository{db: db}
}

func (r *GormWarehouseRepository) FindByCode(ctx context.Context, code string) (*partner.Warehouse, error) {
	return findByCode[partner.Warehouse](ctx, r.db, code, "warehouse")
}

func (r *GormWarehouseRepository) FindByCodes(ctx context.Context, codes []string) ([]partner.Warehouse, error) {
	return findByCodes[partner.Warehouse](ctx, r.db, codes)
}

func (r *GormWarehouseRepository) Save(ctx context.Context, warehouse *partner.Warehouse) error {
	return r.db.WithContext(ctx).Save(warehouse).Error
}

var (
	_ catalog.ItemRepository      = (*GormItemRepository)(nil)
	_ partner.WarehouseRepository = (*GormWarehouseRepository)(nil)
)
