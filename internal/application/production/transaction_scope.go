package production

import (
	"context"

	inventoryapp "github.com/erp/production/internal/application/inventory"
	"github.com/erp/production/internal/domain/inventory"
	"github.com/erp/production/internal/domain/production"
)

// TransactionScope runs one production order transition as a unit: the
// order row, its result lines, the touched balances and the ledger entries
// commit or roll back together.
type TransactionScope interface {
	// Execute runs fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories extends the ledger repositories with the order side.
//   - OrderRepo: production orders, row-locked for the transition.
//   - ResultRepo: result lines.
type TransactionalRepositories interface {
	inventoryapp.TransactionalRepositories
	OrderRepo() production.ProductionOrderRepository
	ResultRepo() production.ProductionResultRepository
}

// NoOpTransactionScope runs fn against plain repositories without a
// transaction. Useful for unit tests.
type NoOpTransactionScope struct {
	balanceRepo inventory.StockBalanceRepository
	ledgerRepo  inventory.LedgerRepository
	orderRepo   production.ProductionOrderRepository
	resultRepo  production.ProductionResultRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	balanceRepo inventory.StockBalanceRepository,
	ledgerRepo inventory.LedgerRepository,
	orderRepo production.ProductionOrderRepository,
	resultRepo production.ProductionResultRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		balanceRepo: balanceRepo,
		ledgerRepo:  ledgerRepo,
		orderRepo:   orderRepo,
		resultRepo:  resultRepo,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// BalanceRepo returns the balance repository.
func (s *NoOpTransactionScope) BalanceRepo() inventory.StockBalanceRepository { return s.balanceRepo }

// LedgerRepo returns the ledger repository.
func (s *NoOpTransactionScope) LedgerRepo() inventory.LedgerRepository { return s.ledgerRepo }

// OrderRepo returns the order repository.
func (s *NoOpTransactionScope) OrderRepo() production.ProductionOrderRepository { return s.orderRepo }

// ResultRepo returns the result repository.
func (s *NoOpTransactionScope) ResultRepo() production.ProductionResultRepository { return s.resultRepo }

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
