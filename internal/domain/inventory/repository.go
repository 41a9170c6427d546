package inventory

import (
	"context"
	"time"
)

// StockBalanceRepository persists balances. The ForUpdate variants take a
// row lock that is held until the surrounding transaction ends.
type StockBalanceRepository interface {
	// FindByKey finds the balance for an item in a warehouse
	FindByKey(ctx context.Context, itemCode, warehouseCode string) (*StockBalance, error)

	// FindByKeyForUpdate finds and locks the balance for an item in a warehouse
	FindByKeyForUpdate(ctx context.Context, itemCode, warehouseCode string) (*StockBalance, error)

	// FindByItem returns every warehouse balance of an item ordered by warehouse code
	FindByItem(ctx context.Context, itemCode string) ([]StockBalance, error)

	// FindByItemForUpdate locks and returns every warehouse balance of an item
	FindByItemForUpdate(ctx context.Context, itemCode string) ([]StockBalance, error)

	// Create inserts a new balance row
	Create(ctx context.Context, balance *StockBalance) error

	// SaveWithLock updates the balance if its stored version is the one it was read at
	SaveWithLock(ctx context.Context, balance *StockBalance) error
}

// LedgerQuery selects ledger entries for history reporting. Exactly one of
// ItemCode or WarehouseCode is usually set; both narrows to a single key.
type LedgerQuery struct {
	ItemCode      string
	WarehouseCode string
	To            *time.Time
}

// LedgerRepository appends and reads ledger entries. There is no update or delete.
type LedgerRepository interface {
	// Append inserts entries
	Append(ctx context.Context, entries ...*LedgerEntry) error

	// FindByKey returns the entries of one balance key in ledger order
	FindByKey(ctx context.Context, itemCode, warehouseCode string) ([]LedgerEntry, error)

	// FindByReference returns the entries of a document, optionally restricted to types
	FindByReference(ctx context.Context, table RefTable, refNo string, types ...MovementType) ([]LedgerEntry, error)

	// ExistsByReference reports whether a document already has an entry of the type
	ExistsByReference(ctx context.Context, table RefTable, refNo string, movementType MovementType) (bool, error)

	// FindHistory returns entries matching the query in ledger order
	FindHistory(ctx context.Context, query LedgerQuery) ([]LedgerEntry, error)
}
