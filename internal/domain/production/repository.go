package production

import (
	"context"
	"time"

	"github.com/erp/production/internal/domain/shared"
)

// OrderFilter narrows order listings
type OrderFilter struct {
	shared.Filter
	Status         OrderStatus
	TargetItemCode string
	PlannedFrom    *time.Time
	PlannedTo      *time.Time
}

// ProductionOrderRepository persists production orders
type ProductionOrderRepository interface {
	// FindByOrderNo finds an order by its number
	FindByOrderNo(ctx context.Context, orderNo string) (*ProductionOrder, error)

	// FindByOrderNoForUpdate finds and row-locks an order for the rest of the transaction
	FindByOrderNoForUpdate(ctx context.Context, orderNo string) (*ProductionOrder, error)

	// FindAll lists orders matching the filter and returns the total count
	FindAll(ctx context.Context, filter OrderFilter) ([]ProductionOrder, int64, error)

	// Create inserts a new order; a duplicate number yields ErrAlreadyExists
	Create(ctx context.Context, order *ProductionOrder) error

	// SaveWithLock updates the order if its stored version is the one it was read at
	SaveWithLock(ctx context.Context, order *ProductionOrder) error
}

// ProductionResultRepository persists result lines
type ProductionResultRepository interface {
	// FindByOrderNo returns an order's result lines by sequence
	FindByOrderNo(ctx context.Context, orderNo string) ([]ProductionResult, error)

	// MaxSeq returns the highest sequence recorded for an order, 0 when none
	MaxSeq(ctx context.Context, orderNo string) (int, error)

	// Create inserts a result line
	Create(ctx context.Context, result *ProductionResult) error
}
