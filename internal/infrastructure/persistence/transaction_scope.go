package persistence

import (
	"context"

	appinv "github.com/erp/production/internal/application/inventory"
	appprod "github.com/erp/production/internal/application/production"
	"github.com/erp/production/internal/domain/inventory"
	"github.com/erp/production/internal/domain/production"
	"gorm.io/gorm"
)

// GormTransactionScope runs a production order transition inside one GORM
// transaction: order row, result lines, balances and ledger entries commit
// or roll back together.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appprod.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// Ledger returns a scope over the same database for ledger-only work
// (inbound and outbound posting, consistency checks).
func (s *GormTransactionScope) Ledger() *GormLedgerTransactionScope {
	return &GormLedgerTransactionScope{db: s.db}
}

// GormLedgerTransactionScope runs stock ledger work inside one GORM transaction.
type GormLedgerTransactionScope struct {
	db *gorm.DB
}

// Execute runs the given function within a database transaction.
func (s *GormLedgerTransactionScope) Execute(ctx context.Context, fn func(repos appinv.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories hands out repositories bound to one transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// BalanceRepo returns the balance repository scoped to the current transaction.
func (r *gormTransactionalRepositories) BalanceRepo() inventory.StockBalanceRepository {
	return NewGormStockBalanceRepository(r.tx)
}

// LedgerRepo returns the ledger repository scoped to the current transaction.
func (r *gormTransactionalRepositories) LedgerRepo() inventory.LedgerRepository {
	return NewGormLedgerRepository(r.tx)
}

// OrderRepo returns the order repository scoped to the current transaction.
func (r *gormTransactionalRepositories) OrderRepo() production.ProductionOrderRepository {
	return NewGormProductionOrderRepository(r.tx)
}

// ResultRepo returns the result repository scoped to the current transaction.
func (r *gormTransactionalRepositories) ResultRepo() production.ProductionResultRepository {
	return NewGormProductionResultRepository(r.tx)
}

var (
	_ appprod.TransactionScope          = (*GormTransactionScope)(nil)
	_ appinv.TransactionScope           = (*GormLedgerTransactionScope)(nil)
	_ appprod.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
