package production

import (
	"time"

	inventoryapp "github.com/erp/production/internal/application/inventory"
	"github.com/erp/production/internal/domain/inventory"
	"github.com/erp/production/internal/domain/production"
	"github.com/shopspring/decimal"
)

// ==================== Order DTOs ====================

// CreateOrderRequest represents a request to plan a production order.
// PlannedQty is checked by the order itself: positive, at most 4 places.
type CreateOrderRequest struct {
	TargetItemCode string          `json:"target_item_code" binding:"required,max=50"`
	PlannedDate    *time.Time      `json:"planned_date"`
	PlannedQty     decimal.Decimal `json:"planned_qty"`
	Remark         string          `json:"remark" binding:"max=500"`
}

// UpdateOrderRequest represents a partial order update. Plan fields are only
// accepted while the order is planned.
type UpdateOrderRequest struct {
	TargetItemCode *string          `json:"target_item_code" binding:"omitempty,max=50"`
	PlannedDate    *time.Time       `json:"planned_date"`
	PlannedQty     *decimal.Decimal `json:"planned_qty"`
	Remark         *string          `json:"remark" binding:"omitempty,max=500"`
}

// HasPlanChanges reports whether any plan field is set
func (r UpdateOrderRequest) HasPlanChanges() bool {
	return r.TargetItemCode != nil || r.PlannedDate != nil || r.PlannedQty != nil
}

// OrderListFilter represents order list query parameters
type OrderListFilter struct {
	Status         string     `form:"status"`
	TargetItemCode string     `form:"target_item_code"`
	PlannedFrom    *time.Time `form:"planned_from" time_format:"2006-01-02"`
	PlannedTo      *time.Time `form:"planned_to" time_format:"2006-01-02"`
	Page           int        `form:"page" binding:"omitempty,min=1"`
	PageSize       int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy        string     `form:"order_by" binding:"omitempty,oneof=order_no planned_date created_at"`
	OrderDir       string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// OrderResponse represents a production order in API responses
type OrderResponse struct {
	OrderNo        string          `json:"order_no"`
	PlannedDate    time.Time       `json:"planned_date"`
	TargetItemCode string          `json:"target_item_code"`
	PlannedQty     decimal.Decimal `json:"planned_qty"`
	Status         string          `json:"status"`
	Remark         string          `json:"remark,omitempty"`
	CreatedBy      string          `json:"created_by"`
	UpdatedBy      string          `json:"updated_by"`
	ReservedAt     *time.Time      `json:"reserved_at,omitempty"`
	ConsumedAt     *time.Time      `json:"consumed_at,omitempty"`
	ReceivedAt     *time.Time      `json:"received_at,omitempty"`
	CancelledAt    *time.Time      `json:"cancelled_at,omitempty"`
	Version        int             `json:"version"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ==================== Material DTOs ====================

// PlanLineRequest is one line of an operator-supplied allocation plan.
// Quantity is checked by the allocation engine.
type PlanLineRequest struct {
	ItemCode      string          `json:"item_code" binding:"required"`
	WarehouseCode string          `json:"warehouse_code" binding:"required"`
	Quantity      decimal.Decimal `json:"quantity"`
}

// ReserveRequest carries an optional manual plan. Components without plan
// lines are allocated automatically.
type ReserveRequest struct {
	Lines  []PlanLineRequest `json:"lines" binding:"omitempty,dive"`
	Remark string            `json:"remark"`
}

// PlanLines converts the request lines to domain plan lines
func (r ReserveRequest) PlanLines() []inventory.PlanLine {
	out := make([]inventory.PlanLine, len(r.Lines))
	for i, l := range r.Lines {
		out[i] = inventory.PlanLine{ItemCode: l.ItemCode, WarehouseCode: l.WarehouseCode, Quantity: l.Quantity}
	}
	return out
}

// RemarkRequest carries the remark of unreserve, consume and cancel
type RemarkRequest struct {
	Remark string `json:"remark" binding:"max=500"`
}

// ReservedLine is one committed reservation
type ReservedLine struct {
	ComponentCode string          `json:"component_code"`
	WarehouseCode string          `json:"warehouse_code"`
	Quantity      decimal.Decimal `json:"quantity"`
}

// MovementResponse reports the order and the ledger entries a transition wrote
type MovementResponse struct {
	Order   OrderResponse                      `json:"order"`
	Entries []inventoryapp.LedgerEntryResponse `json:"entries"`
}

// ReservationResponse reports a successful reservation
type ReservationResponse struct {
	OrderNo string         `json:"order_no"`
	Status  string         `json:"status"`
	Lines   []ReservedLine `json:"lines"`
}

// ==================== Result DTOs ====================

// RecordResultRequest represents one reported production result
type RecordResultRequest struct {
	ResultDate    *time.Time      `json:"result_date"`
	WarehouseCode string          `json:"warehouse_code" binding:"required,max=50"`
	GoodQty       decimal.Decimal `json:"good_qty"`
	BadQty        decimal.Decimal `json:"bad_qty"`
	BadReasonCode string          `json:"bad_reason_code" binding:"max=20"`
	Remark        string          `json:"remark" binding:"max=500"`
}

// ResultResponse represents a result line in API responses
type ResultResponse struct {
	OrderNo       string          `json:"order_no"`
	Seq           int             `json:"seq"`
	ResultDate    time.Time       `json:"result_date"`
	WarehouseCode string          `json:"warehouse_code"`
	GoodQty       decimal.Decimal `json:"good_qty"`
	BadQty        decimal.Decimal `json:"bad_qty"`
	BadReasonCode string          `json:"bad_reason_code,omitempty"`
	Remark        string          `json:"remark,omitempty"`
	CreatedBy     string          `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ReceiptLineRequest puts a quantity of finished goods into a warehouse.
// Quantity is checked by ReceiveFinishedGoods.
type ReceiptLineRequest struct {
	WarehouseCode string          `json:"warehouse_code" binding:"required"`
	Quantity      decimal.Decimal `json:"quantity"`
}

// ReceiveRequest represents a finished goods receipt
type ReceiveRequest struct {
	Lines  []ReceiptLineRequest `json:"lines" binding:"required,min=1,dive"`
	Remark string               `json:"remark" binding:"max=500"`
}

// ==================== Converters ====================

// ToOrderResponse converts a domain order to a response
func ToOrderResponse(o *production.ProductionOrder) OrderResponse {
	return OrderResponse{
		OrderNo:        o.OrderNo,
		PlannedDate:    o.PlannedDate,
		TargetItemCode: o.TargetItemCode,
		PlannedQty:     o.PlannedQty,
		Status:         string(o.Status),
		Remark:         o.Remark,
		CreatedBy:      o.CreatedBy,
		UpdatedBy:      o.UpdatedBy,
		ReservedAt:     o.ReservedAt,
		ConsumedAt:     o.ConsumedAt,
		ReceivedAt:     o.ReceivedAt,
		CancelledAt:    o.CancelledAt,
		Version:        o.Version,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}

// ToOrderResponses converts a slice of orders
func ToOrderResponses(orders []production.ProductionOrder) []OrderResponse {
	out := make([]OrderResponse, len(orders))
	for i := range orders {
		out[i] = ToOrderResponse(&orders[i])
	}
	return out
}

// ToResultResponse converts a domain result line to a response
func ToResultResponse(r *production.ProductionResult) ResultResponse {
	return ResultResponse{
		OrderNo:       r.OrderNo,
		Seq:           r.Seq,
		ResultDate:    r.ResultDate,
		WarehouseCode: r.WarehouseCode,
		GoodQty:       r.GoodQty,
		BadQty:        r.BadQty,
		BadReasonCode: r.BadReasonCode,
		Remark:        r.Remark,
		CreatedBy:     r.CreatedBy,
		CreatedAt:     r.CreatedAt,
	}
}

// ToResultResponses converts a slice of result lines
func ToResultResponses(results []production.ProductionResult) []ResultResponse {
	out := make([]ResultResponse, len(results))
	for i := range results {
		out[i] = ToResultResponse(&results[i])
	}
	return out
}

func toEntryResponses(entries []*inventory.LedgerEntry) []inventoryapp.LedgerEntryResponse {
	out := make([]inventoryapp.LedgerEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = inventoryapp.ToLedgerEntryResponse(e)
	}
	return out
}
