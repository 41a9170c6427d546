package inventory

import (
	"time"

	"github.com/erp/production/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BalanceResponse represents a stock balance in API responses
type BalanceResponse struct {
	ItemCode      string          `json:"item_code"`
	WarehouseCode string          `json:"warehouse_code"`
	OnHand        decimal.Decimal `json:"on_hand"`
	Allocated     decimal.Decimal `json:"allocated"`
	Available     decimal.Decimal `json:"available"`
	Quarantined   bool            `json:"quarantined"`
	Version       int             `json:"version"`
	UpdatedAt     *time.Time      `json:"updated_at,omitempty"`
}

// LedgerEntryResponse represents a ledger entry in API responses
type LedgerEntryResponse struct {
	ID              uuid.UUID       `json:"id"`
	ItemCode        string          `json:"item_code"`
	WarehouseCode   string          `json:"warehouse_code"`
	OccurredAt      time.Time       `json:"occurred_at"`
	MovementType    string          `json:"movement_type"`
	Quantity        decimal.Decimal `json:"quantity"`
	QuantityDelta   decimal.Decimal `json:"quantity_delta"`
	AllocationDelta decimal.Decimal `json:"allocation_delta"`
	RefTable        string          `json:"ref_table"`
	RefNo           string          `json:"ref_no"`
	RefSeq          int             `json:"ref_seq"`
	FromWarehouse   string          `json:"from_warehouse,omitempty"`
	ToWarehouse     string          `json:"to_warehouse,omitempty"`
	CounterpartCode string          `json:"counterpart_code,omitempty"`
	Remark          string          `json:"remark,omitempty"`
	ActorID         string          `json:"actor_id"`
	ActorName       string          `json:"actor_name,omitempty"`
}

// LedgerLineResponse is a ledger entry with its running balance
type LedgerLineResponse struct {
	LedgerEntryResponse
	RunningOnHand    decimal.Decimal `json:"running_on_hand"`
	RunningAllocated decimal.Decimal `json:"running_allocated"`
}

// LedgerHistoryQuery selects the ledger history to report. At least one of
// ItemCode or WarehouseCode is required; From and To are inclusive.
type LedgerHistoryQuery struct {
	ItemCode      string
	WarehouseCode string
	From          *time.Time
	To            *time.Time
}

// PostStockRequest is an inbound or outbound posting from the purchase or
// sales side. Quantity is checked when the movement is validated.
type PostStockRequest struct {
	ItemCode        string          `json:"item_code" binding:"required"`
	WarehouseCode   string          `json:"warehouse_code" binding:"required"`
	Quantity        decimal.Decimal `json:"quantity"`
	RefTable        string          `json:"ref_table" binding:"omitempty,oneof=PURCHASE_ORDER SALES_ORDER ADJUSTMENT"`
	RefNo           string          `json:"ref_no" binding:"required"`
	RefSeq          int             `json:"ref_seq" binding:"min=0"`
	CounterpartCode string          `json:"counterpart_code"`
	Remark          string          `json:"remark"`
}

// ConsistencyReport is the outcome of replaying one key's ledger
type ConsistencyReport struct {
	ItemCode          string          `json:"item_code"`
	WarehouseCode     string          `json:"warehouse_code"`
	StoredOnHand      decimal.Decimal `json:"stored_on_hand"`
	StoredAllocated   decimal.Decimal `json:"stored_allocated"`
	ReplayedOnHand    decimal.Decimal `json:"replayed_on_hand"`
	ReplayedAllocated decimal.Decimal `json:"replayed_allocated"`
	Entries           int             `json:"entries"`
	Consistent        bool            `json:"consistent"`
	Quarantined       bool            `json:"quarantined"`
}

// ToBalanceResponse converts a domain balance to a response
func ToBalanceResponse(b *inventory.StockBalance) BalanceResponse {
	updated := b.UpdatedAt
	return BalanceResponse{
		ItemCode:      b.ItemCode,
		WarehouseCode: b.WarehouseCode,
		OnHand:        b.OnHand,
		Allocated:     b.Allocated,
		Available:     b.Available(),
		Quarantined:   b.Quarantined,
		Version:       b.Version,
		UpdatedAt:     &updated,
	}
}

// ToLedgerEntryResponse converts a domain ledger entry to a response
func ToLedgerEntryResponse(e *inventory.LedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:              e.ID,
		ItemCode:        e.ItemCode,
		WarehouseCode:   e.WarehouseCode,
		OccurredAt:      e.OccurredAt,
		MovementType:    string(e.MovementType),
		Quantity:        e.Quantity,
		QuantityDelta:   e.QuantityDelta,
		AllocationDelta: e.AllocationDelta,
		RefTable:        string(e.RefTable),
		RefNo:           e.RefNo,
		RefSeq:          e.RefSeq,
		FromWarehouse:   e.FromWarehouse,
		ToWarehouse:     e.ToWarehouse,
		CounterpartCode: e.CounterpartCode,
		Remark:          e.Remark,
		ActorID:         e.ActorID,
		ActorName:       e.ActorName,
	}
}

// ToLedgerEntryResponses converts a slice of ledger entries
func ToLedgerEntryResponses(entries []inventory.LedgerEntry) []LedgerEntryResponse {
	out := make([]LedgerEntryResponse, len(entries))
	for i := range entries {
		out[i] = ToLedgerEntryResponse(&entries[i])
	}
	return out
}

// ToLedgerLineResponses converts running-balance lines
func ToLedgerLineResponses(lines []inventory.LedgerLine) []LedgerLineResponse {
	out := make([]LedgerLineResponse, len(lines))
	for i := range lines {
		out[i] = LedgerLineResponse{
			LedgerEntryResponse: ToLedgerEntryResponse(&lines[i].LedgerEntry),
			RunningOnHand:       lines[i].RunningOnHand,
			RunningAllocated:    lines[i].RunningAllocated,
		}
	}
	return out
}
