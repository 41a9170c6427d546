package inventory

import (
	"time"

	"github.com/erp/production/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// StockBalance is the current on-hand and allocated quantity for one
// item in one warehouse. Available is always derived, never stored.
// Invariant: 0 <= Allocated <= OnHand.
type StockBalance struct {
	ItemCode      string          `gorm:"type:varchar(50);primaryKey"`
	WarehouseCode string          `gorm:"type:varchar(50);primaryKey;index"`
	OnHand        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Allocated     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Quarantined   bool            `gorm:"not null;default:false"` // set when replay disagrees with the stored balance
	shared.BaseAggregateRoot
}

// TableName returns the table name for GORM
func (StockBalance) TableName() string {
	return "stock_balances"
}

// NewStockBalance creates an empty balance row for the key
func NewStockBalance(itemCode, warehouseCode string) *StockBalance {
	return &StockBalance{
		ItemCode:          itemCode,
		WarehouseCode:     warehouseCode,
		OnHand:            decimal.Zero,
		Allocated:         decimal.Zero,
		BaseAggregateRoot: shared.NewBaseAggregateRoot(time.Now()),
	}
}

// Available returns on-hand minus allocated
func (b *StockBalance) Available() decimal.Decimal {
	return b.OnHand.Sub(b.Allocated)
}

// Key returns the balance key
func (b *StockBalance) Key() BalanceKey {
	return BalanceKey{ItemCode: b.ItemCode, WarehouseCode: b.WarehouseCode}
}

// Apply mutates the balance for the movement and returns the deltas that
// were actually applied. Unreserve is clamped so allocated never goes
// negative; every other movement either applies fully or fails.
func (b *StockBalance) Apply(m Movement, now time.Time) (Delta, error) {
	if b.Quarantined {
		return Delta{}, b.inconsistent("Balance is quarantined pending reconciliation")
	}
	if !m.Quantity.IsPositive() {
		return Delta{}, shared.NewDomainError(shared.CodeInvalidInput, "Movement quantity must be positive").
			WithDetail("item", b.ItemCode).
			WithDetail("warehouse", b.WarehouseCode)
	}

	var d Delta
	switch m.Type {
	case MovementReserve:
		if m.Quantity.GreaterThan(b.Available()) {
			return Delta{}, b.insufficient(m.Quantity, b.Available())
		}
		d.Allocation = m.Quantity
	case MovementUnreserve:
		d.Allocation = decimal.Min(m.Quantity, b.Allocated).Neg()
	case MovementConsume:
		if m.Quantity.GreaterThan(b.Allocated) {
			return Delta{}, b.insufficient(m.Quantity, b.Allocated).WithDetail("reason", "consume exceeds allocated")
		}
		d.Quantity = m.Quantity.Neg()
		d.Allocation = m.Quantity.Neg()
	case MovementReceipt, MovementIn:
		d.Quantity = m.Quantity
	case MovementOut:
		if m.Quantity.GreaterThan(b.Available()) {
			return Delta{}, b.insufficient(m.Quantity, b.Available())
		}
		d.Quantity = m.Quantity.Neg()
	default:
		return Delta{}, shared.NewDomainError(shared.CodeInvalidInput, "Invalid movement type").WithDetail("type", m.Type)
	}

	onHand := b.OnHand.Add(d.Quantity)
	allocated := b.Allocated.Add(d.Allocation)
	if allocated.IsNegative() || allocated.GreaterThan(onHand) {
		return Delta{}, b.inconsistent("Movement would break the allocated/on-hand invariant")
	}

	b.OnHand = onHand
	b.Allocated = allocated
	b.Touch(now)
	return d, nil
}

// Matches reports whether replayed totals equal the stored balance
func (b *StockBalance) Matches(t Totals) bool {
	return b.OnHand.Equal(t.OnHand) && b.Allocated.Equal(t.Allocated)
}

// Quarantine blocks further mutation of the key
func (b *StockBalance) Quarantine(now time.Time) {
	b.Quarantined = true
	b.Touch(now)
}

// ReleaseQuarantine lifts the quarantine
func (b *StockBalance) ReleaseQuarantine(now time.Time) {
	b.Quarantined = false
	b.Touch(now)
}

func (b *StockBalance) insufficient(requested, available decimal.Decimal) *shared.DomainError {
	return shared.ErrInsufficientStock.
		WithDetail("item", b.ItemCode).
		WithDetail("warehouse", b.WarehouseCode).
		WithDetail("requested", requested).
		WithDetail("available", available)
}

func (b *StockBalance) inconsistent(msg string) *shared.DomainError {
	return shared.NewDomainError(shared.CodeLedgerInconsistent, msg).
		WithDetail("item", b.ItemCode).
		WithDetail("warehouse", b.WarehouseCode)
}
