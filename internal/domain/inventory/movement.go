package inventory

import (
	"strings"

	"github.com/erp/production/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MovementType represents the kind of balance-changing event
type MovementType string

const (
	// MovementReserve earmarks on-hand stock for a production order
	MovementReserve MovementType = "RESERVE"
	// MovementUnreserve releases a reservation
	MovementUnreserve MovementType = "UNRESERVE"
	// MovementConsume depletes reserved stock
	MovementConsume MovementType = "CONSUME"
	// MovementReceipt puts finished goods into stock
	MovementReceipt MovementType = "RECEIPT"
	// MovementIn is a plain inbound posting (purchase receiving)
	MovementIn MovementType = "IN"
	// MovementOut is a plain outbound posting (sales shipment)
	MovementOut MovementType = "OUT"
)

// String returns the string representation of MovementType
func (t MovementType) String() string {
	return string(t)
}

// IsValid returns true if the movement type is valid
func (t MovementType) IsValid() bool {
	switch t {
	case MovementReserve, MovementUnreserve, MovementConsume, MovementReceipt, MovementIn, MovementOut:
		return true
	}
	return false
}

// IsInbound returns true for movements that bring stock into the warehouse
func (t MovementType) IsInbound() bool {
	return t == MovementReceipt || t == MovementIn
}

// RefTable names the kind of document a ledger entry originates from
type RefTable string

const (
	RefProductionOrder RefTable = "PRODUCTION_ORDER"
	RefPurchaseOrder   RefTable = "PURCHASE_ORDER"
	RefSalesOrder      RefTable = "SALES_ORDER"
	RefAdjustment      RefTable = "ADJUSTMENT"
)

// IsValid returns true if the reference table is known
func (r RefTable) IsValid() bool {
	switch r {
	case RefProductionOrder, RefPurchaseOrder, RefSalesOrder, RefAdjustment:
		return true
	}
	return false
}

// Reference points back at the document line that caused a movement
type Reference struct {
	Table RefTable
	No    string
	Seq   int
}

// Movement is a request to change one balance. The recorder turns it into a
// balance mutation plus exactly one ledger entry.
type Movement struct {
	Type            MovementType
	ItemCode        string
	WarehouseCode   string
	Quantity        decimal.Decimal
	Reference       Reference
	CounterpartCode string
	Remark          string
	Actor           shared.Actor
}

// Validate checks that the movement is well formed
func (m Movement) Validate() error {
	if !m.Type.IsValid() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Invalid movement type").WithDetail("type", m.Type)
	}
	if strings.TrimSpace(m.ItemCode) == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Item code is required")
	}
	if strings.TrimSpace(m.WarehouseCode) == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Warehouse code is required")
	}
	if !m.Quantity.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Movement quantity must be positive").
			WithDetail("item", m.ItemCode).
			WithDetail("warehouse", m.WarehouseCode).
			WithDetail("quantity", m.Quantity)
	}
	if err := shared.CheckQuantityScale("quantity", m.Quantity); err != nil {
		return err
	}
	if !m.Reference.Table.IsValid() || strings.TrimSpace(m.Reference.No) == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Movement must reference a source document")
	}
	return m.Actor.Validate()
}

// Delta is the change a movement made to a balance
type Delta struct {
	Quantity   decimal.Decimal
	Allocation decimal.Decimal
}
