package persistence

import (
	"context"
	"errors"

	"github.com/erp/production/internal/domain/production"
	"github.com/erp/production/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProductionOrderRepository implements ProductionOrderRepository using GORM
type GormProductionOrderRepository struct {
	db *gorm.DB
}

// NewGormProductionOrderRepository creates a new GormProductionOrderRepository
func NewGormProductionOrderRepository(db *gorm.DB) *GormProductionOrderRepository {
	return &GormProductionOrderRepository{db: db}
}

// FindByOrderNo finds an order by its number
func (r *GormProductionOrderRepository) FindByOrderNo(ctx context.Context, orderNo string) (*production.ProductionOrder, error) {
	return r.findByOrderNo(r.db.WithContext(ctx), orderNo)
}

// FindByOrderNoForUpdate finds the order and locks its row for the rest of the transaction
func (r *GormProductionOrderRepository) FindByOrderNoForUpdate(ctx context.Context, orderNo string) (*production.ProductionOrder, error) {
	return r.findByOrderNo(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), orderNo)
}

func (r *GormProductionOrderRepository) findByOrderNo(db *gorm.DB, orderNo string) (*production.ProductionOrder, error) {
	var order production.ProductionOrder
	if err := db.Where("order_no = ?", orderNo).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound.WithDetail("order_no", orderNo)
		}
		return nil, err
	}
	return &order, nil
}

// FindAll lists orders matching the filter and returns the total count
func (r *GormProductionOrderRepository) FindAll(ctx context.Context, filter production.OrderFilter) ([]production.ProductionOrder, int64, error) {
	query := r.db.WithContext(ctx).Model(&production.ProductionOrder{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.TargetItemCode != "" {
		query = query.Where("target_item_code = ?", filter.TargetItemCode)
	}
	if filter.PlannedFrom != nil {
		query = query.Where("planned_date >= ?", *filter.PlannedFrom)
	}
	if filter.PlannedTo != nil {
		query = query.Where("planned_date <= ?", *filter.PlannedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	primary := productionOrderSort.orderBy(filter.OrderBy, filter.OrderDir)
	tieBreak := clause.OrderByColumn{Column: clause.Column{Name: "order_no"}, Desc: primary.Desc}

	var orders []production.ProductionOrder
	if err := query.
		Order(primary).
		Order(tieBreak).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// Create inserts a new order. A duplicate order number yields ErrAlreadyExists
// so the caller can draw a new number.
func (r *GormProductionOrderRepository) Create(ctx context.Context, order *production.ProductionOrder) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists.WithDetail("order_no", order.OrderNo)
		}
		return err
	}
	order.MarkPersisted()
	return nil
}

// SaveWithLock updates the order if its stored version is Version-1
func (r *GormProductionOrderRepository) SaveWithLock(ctx context.Context, order *production.ProductionOrder) error {
	result := r.db.WithContext(ctx).
		Model(&production.ProductionOrder{}).
		Where("order_no = ? AND version = ?", order.OrderNo, order.Version-1).
		Updates(map[string]interface{}{
			"planned_date":     order.PlannedDate,
			"target_item_code": order.TargetItemCode,
			"planned_qty":      order.PlannedQty,
			"status":           order.Status,
			"remark":           order.Remark,
			"updated_by":       order.UpdatedBy,
			"reserved_at":      order.ReservedAt,
			"consumed_at":      order.ConsumedAt,
			"received_at":      order.ReceivedAt,
			"cancelled_at":     order.CancelledAt,
			"version":          order.Version,
			"updated_at":       order.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict.WithDetail("order_no", order.OrderNo)
	}
	order.MarkPersisted()
	return nil
}

var _ production.ProductionOrderRepository = (*GormProductionOrderRepository)(nil)
