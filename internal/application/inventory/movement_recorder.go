package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/erp/production/internal/domain/inventory"
	"github.com/erp/production/internal/domain/shared"
)

// MovementRecorder applies a movement to its balance and appends the matching
// ledger entry, both through the caller's transaction. Production, purchase
// and sales flows all go through it.
type MovementRecorder struct {
	clock func() time.Time
}

// NewMovementRecorder creates a recorder using the wall clock
func NewMovementRecorder() *MovementRecorder {
	return &MovementRecorder{clock: time.Now}
}

// WithClock replaces the clock (tests)
func (r *MovementRecorder) WithClock(clock func() time.Time) *MovementRecorder {
	r.clock = clock
	return r
}

// Record locks the balance row, applies m, saves the balance and appends the
// ledger entry. Inbound movements create the balance row on first use; any
// other movement against a missing row has nothing to draw from.
func (r *MovementRecorder) Record(ctx context.Context, repos TransactionalRepositories, m inventory.Movement) (*inventory.LedgerEntry, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	balance, err := repos.BalanceRepo().FindByKeyForUpdate(ctx, m.ItemCode, m.WarehouseCode)
	isNew := false
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		if !m.Type.IsInbound() {
			return nil, shared.ErrInsufficientStock.
				WithDetail("item", m.ItemCode).
				WithDetail("warehouse", m.WarehouseCode).
				WithDetail("requested", m.Quantity).
				WithDetail("available", "0")
		}
		balance = inventory.NewStockBalance(m.ItemCode, m.WarehouseCode)
		isNew = true
	}

	now := r.clock()
	delta, err := balance.Apply(m, now)
	if err != nil {
		return nil, err
	}

	if isNew {
		err = repos.BalanceRepo().Create(ctx, balance)
	} else {
		err = repos.BalanceRepo().SaveWithLock(ctx, balance)
	}
	if err != nil {
		return nil, err
	}

	entry := inventory.NewLedgerEntry(m, delta, balance, now)
	if err := repos.LedgerRepo().Append(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// HasMovement reports whether the document already has a movement of the type
func (r *MovementRecorder) HasMovement(ctx context.Context, repos TransactionalRepositories, table inventory.RefTable, refNo string, t inventory.MovementType) (bool, error) {
	return repos.LedgerRepo().ExistsByReference(ctx, table, refNo, t)
}

// Movements returns a document's movements of the given types in ledger order
func (r *MovementRecorder) Movements(ctx context.Context, repos TransactionalRepositories, table inventory.RefTable, refNo string, types ...inventory.MovementType) ([]inventory.LedgerEntry, error) {
	return repos.LedgerRepo().FindByReference(ctx, table, refNo, types...)
}
