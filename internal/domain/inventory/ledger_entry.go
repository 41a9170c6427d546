package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerEntry is the single append-only record of a balance-changing event.
// Replaying the deltas of a key rebuilds its balance; the reference and
// warehouse columns answer "what happened for document X" directly.
// Entries are never updated; corrections are new entries.
type LedgerEntry struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ItemCode        string          `gorm:"type:varchar(50);not null;index:idx_ledger_key,priority:1"`
	WarehouseCode   string          `gorm:"type:varchar(50);not null;index:idx_ledger_key,priority:2;index:idx_ledger_warehouse"`
	OccurredAt      time.Time       `gorm:"not null;index:idx_ledger_key,priority:3"`
	MovementType    MovementType    `gorm:"type:varchar(20);not null"`
	Quantity        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	QuantityDelta   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	AllocationDelta decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	OnHandAfter     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	AllocatedAfter  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	RefTable        RefTable        `gorm:"type:varchar(30);not null;index:idx_ledger_ref,priority:1"`
	RefNo           string          `gorm:"type:varchar(50);not null;index:idx_ledger_ref,priority:2"`
	RefSeq          int             `gorm:"not null;default:0"`
	FromWarehouse   string          `gorm:"type:varchar(50)"`
	ToWarehouse     string          `gorm:"type:varchar(50)"`
	CounterpartCode string          `gorm:"type:varchar(50)"`
	Remark          string          `gorm:"type:varchar(500)"`
	ActorID         string          `gorm:"type:varchar(50);not null"`
	ActorName       string          `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

// NewLedgerEntry builds the entry for a movement that was applied to balance.
// IDs are UUIDv7 so they sort in creation order within a timestamp.
func NewLedgerEntry(m Movement, d Delta, balance *StockBalance, at time.Time) *LedgerEntry {
	e := &LedgerEntry{
		ID:              uuid.Must(uuid.NewV7()),
		ItemCode:        m.ItemCode,
		WarehouseCode:   m.WarehouseCode,
		OccurredAt:      at,
		MovementType:    m.Type,
		Quantity:        m.Quantity,
		QuantityDelta:   d.Quantity,
		AllocationDelta: d.Allocation,
		OnHandAfter:     balance.OnHand,
		AllocatedAfter:  balance.Allocated,
		RefTable:        m.Reference.Table,
		RefNo:           m.Reference.No,
		RefSeq:          m.Reference.Seq,
		CounterpartCode: m.CounterpartCode,
		Remark:          m.Remark,
		ActorID:         m.Actor.ID,
		ActorName:       m.Actor.Name,
	}
	switch m.Type {
	case MovementReserve, MovementReceipt, MovementIn:
		e.ToWarehouse = m.WarehouseCode
	default:
		e.FromWarehouse = m.WarehouseCode
	}
	return e
}

// Key returns the balance key the entry belongs to
func (e *LedgerEntry) Key() BalanceKey {
	return BalanceKey{ItemCode: e.ItemCode, WarehouseCode: e.WarehouseCode}
}

// Before orders entries by timestamp, then by id
func (e *LedgerEntry) Before(other *LedgerEntry) bool {
	if !e.OccurredAt.Equal(other.OccurredAt) {
		return e.OccurredAt.Before(other.OccurredAt)
	}
	return e.ID.String() < other.ID.String()
}
