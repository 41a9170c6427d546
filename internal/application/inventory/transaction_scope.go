package inventory

import (
	"context"

	"github.com/erp/production/internal/domain/inventory"
)

// TransactionScope provides transactional access to the stock ledger.
// Everything done through the repositories handed to fn commits or rolls
// back together.
type TransactionScope interface {
	// Execute runs fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides the ledger repositories bound to one transaction.
//   - BalanceRepo: current balances; row locks taken here last until commit.
//   - LedgerRepo: append-only ledger entries.
type TransactionalRepositories interface {
	BalanceRepo() inventory.StockBalanceRepository
	LedgerRepo() inventory.LedgerRepository
}

// NoOpTransactionScope runs fn against plain repositories without a
// transaction. Useful for unit tests.
type NoOpTransactionScope struct {
	balanceRepo inventory.StockBalanceRepository
	ledgerRepo  inventory.LedgerRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(balanceRepo inventory.StockBalanceRepository, ledgerRepo inventory.LedgerRepository) *NoOpTransactionScope {
	return &NoOpTransactionScope{balanceRepo: balanceRepo, ledgerRepo: ledgerRepo}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// BalanceRepo returns the balance repository.
func (s *NoOpTransactionScope) BalanceRepo() inventory.StockBalanceRepository {
	return s.balanceRepo
}

// LedgerRepo returns the ledger repository.
func (s *NoOpTransactionScope) LedgerRepo() inventory.LedgerRepository {
	return s.ledgerRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
