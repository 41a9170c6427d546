package partner

import "context"

// WarehouseRepository reads the warehouse master
type WarehouseRepository interface {
	// FindByCode finds a warehouse by its code
	FindByCode(ctx context.Context, code string) (*Warehouse, error)

	// FindByCodes finds all warehouses whose codes are listed
	FindByCodes(ctx context.Context, codes []string) ([]Warehouse, error)

	// Save creates or updates a warehouse (master-data seeding and tests)
	Save(ctx context.Context, warehouse *Warehouse) error
}
