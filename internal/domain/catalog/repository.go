package catalog

import "context"

// ItemRepository reads the item master
type ItemRepository interface {
	// FindByCode finds an item by its code
	FindByCode(ctx context.Context, code string) (*Item, error)

	// FindByCodes finds all items whose codes are listed; missing codes are simply absent
	FindByCodes(ctx context.Context, codes []string) ([]Item, error)

	// Save creates or updates an item (master-data seeding and tests)
	Save(ctx context.Context, item *Item) error
}

// BOMRepository reads bill-of-materials lines
type BOMRepository interface {
	// FindByParent returns every line of the parent's BOM ordered by sequence
	FindByParent(ctx context.Context, parentCode string) ([]BOMLine, error)

	// Save creates or updates a BOM line (master-data seeding and tests)
	Save(ctx context.Context, line *BOMLine) error
}
