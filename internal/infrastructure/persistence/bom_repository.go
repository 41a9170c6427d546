package persistence

import (
	"context"

	"github.com/erp/production/internal/domain/catalog"
	"gorm.io/gorm"
)

// GormBOMRepository reads bill-of-materials lines
type GormBOMRepository struct {
	db *gorm.DB
}

// NewGormBOMRepository creates a new GormBOMRepository
func NewGormBOMRepository(db *gorm.DB) *GormBOMRepository {
	return &GormBOMRepository{db: db}
}

// FindByParent returns every line of the parent's BOM ordered by sequence.
// A parent without lines yields an empty slice, not an error.
func (r *GormBOMRepository) FindByParent(ctx context.Context, parentCode string) ([]catalog.BOMLine, error) {
	var lines []catalog.BOMLine
	if err := r.db.WithContext(ctx).
		Where("parent_item_code = ?", parentCode).
		Order("sequence, component_item_code").
		Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

// Save creates or updates a BOM line
func (r *GormBOMRepository) Save(ctx context.Context, line *catalog.BOMLine) error {
	return r.db.WithContext(ctx).Save(line).Error
}

var _ catalog.BOMRepository = (*GormBOMRepository)(nil)
