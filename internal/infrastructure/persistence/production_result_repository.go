package persistence

import (
	"context"
	"errors"

	"github.com/erp/production/internal/domain/production"
	"github.com/erp/production/internal/domain/shared"
	"gorm.io/gorm"
)

// GormProductionResultRepository persists production result lines
type GormProductionResultRepository struct {
	db *gorm.DB
}

// NewGormProductionResultRepository creates a new GormProductionResultRepository
func NewGormProductionResultRepository(db *gorm.DB) *GormProductionResultRepository {
	return &GormProductionResultRepository{db: db}
}

// FindByOrderNo returns an order's result lines by sequence
func (r *GormProductionResultRepository) FindByOrderNo(ctx context.Context, orderNo string) ([]production.ProductionResult, error) {
	var results []production.ProductionResult
	if err := r.db.WithContext(ctx).
		Where("order_no = ?", orderNo).
		Order("seq").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// MaxSeq returns the highest sequence recorded for an order, 0 when none
func (r *GormProductionResultRepository) MaxSeq(ctx context.Context, orderNo string) (int, error) {
	var maxSeq int
	if err := r.db.WithContext(ctx).
		Model(&production.ProductionResult{}).
		Where("order_no = ?", orderNo).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&maxSeq).Error; err != nil {
		return 0, err
	}
	return maxSeq, nil
}

// Create inserts a result line
func (r *GormProductionResultRepository) Create(ctx context.Context, result *production.ProductionResult) error {
	if err := r.db.WithContext(ctx).Create(result).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists.
				WithDetail("order_no", result.OrderNo).
				WithDetail("seq", result.Seq)
		}
		return err
	}
	return nil
}

var _ production.ProductionResultRepository = (*GormProductionResultRepository)(nil)
