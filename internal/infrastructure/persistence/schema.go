package persistence

import (
	"github.com/erp/production/internal/domain/catalog"
	"github.com/erp/production/internal/domain/inventory"
	"github.com/erp/production/internal/domain/partner"
	"github.com/erp/production/internal/domain/production"
	"gorm.io/gorm"
)

// Models lists every persisted type in dependency order
func Models() []any {
	return []any{
		&catalog.Item{},
		&catalog.BOMLine{},
		&partner.Warehouse{},
		&inventory.StockBalance{},
		&inventory.LedgerEntry{},
		&production.ProductionOrder{},
		&production.ProductionResult{},
	}
}

// AutoMigrate creates or updates the tables from the GORM models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
