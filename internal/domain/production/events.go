package production

import (
	"time"

	"github.com/erp/production/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AggregateTypeProductionOrder is the aggregate type of order events
const AggregateTypeProductionOrder = "ProductionOrder"

// Event type constants
const (
	EventTypeOrderCreated        = "ProductionOrderCreated"
	EventTypeOrderReserved       = "ProductionOrderReserved"
	EventTypeOrderUnreserved     = "ProductionOrderUnreserved"
	EventTypeOrderConsumed       = "ProductionOrderConsumed"
	EventTypeOrderResultRecorded = "ProductionOrderResultRecorded"
	EventTypeOrderReceived       = "ProductionOrderReceived"
	EventTypeOrderCancelled      = "ProductionOrderCancelled"
)

// OrderCreatedEvent is raised when a production order is planned
type OrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderNo        string          `json:"order_no"`
	TargetItemCode string          `json:"target_item_code"`
	PlannedQty     decimal.Decimal `json:"planned_qty"`
}

// NewOrderCreatedEvent creates a new OrderCreatedEvent
func NewOrderCreatedEvent(o *ProductionOrder, actor shared.Actor, at time.Time) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCreated, AggregateTypeProductionOrder, o.OrderNo, actor, at),
		OrderNo:         o.OrderNo,
		TargetItemCode:  o.TargetItemCode,
		PlannedQty:      o.PlannedQty,
	}
}

// OrderMovementEvent is raised by the transitions that write ledger lines
type OrderMovementEvent struct {
	shared.BaseDomainEvent
	OrderNo string      `json:"order_no"`
	Status  OrderStatus `json:"status"`
	Lines   int         `json:"lines"`
}

func newOrderMovementEvent(eventType string, o *ProductionOrder, lines int, actor shared.Actor, at time.Time) *OrderMovementEvent {
	return &OrderMovementEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeProductionOrder, o.OrderNo, actor, at),
		OrderNo:         o.OrderNo,
		Status:          o.Status,
		Lines:           lines,
	}
}

// NewOrderReservedEvent creates the event for a reservation
func NewOrderReservedEvent(o *ProductionOrder, lines int, actor shared.Actor, at time.Time) *OrderMovementEvent {
	return newOrderMovementEvent(EventTypeOrderReserved, o, lines, actor, at)
}

// NewOrderUnreservedEvent creates the event for a released reservation
func NewOrderUnreservedEvent(o *ProductionOrder, lines int, actor shared.Actor, at time.Time) *OrderMovementEvent {
	return newOrderMovementEvent(EventTypeOrderUnreserved, o, lines, actor, at)
}

// NewOrderConsumedEvent creates the event for material consumption
func NewOrderConsumedEvent(o *ProductionOrder, lines int, actor shared.Actor, at time.Time) *OrderMovementEvent {
	return newOrderMovementEvent(EventTypeOrderConsumed, o, lines, actor, at)
}

// OrderResultRecordedEvent is raised for every reported result line
type OrderResultRecordedEvent struct {
	shared.BaseDomainEvent
	OrderNo string          `json:"order_no"`
	Seq     int             `json:"seq"`
	GoodQty decimal.Decimal `json:"good_qty"`
	BadQty  decimal.Decimal `json:"bad_qty"`
}

// NewOrderResultRecordedEvent creates a new OrderResultRecordedEvent
func NewOrderResultRecordedEvent(o *ProductionOrder, r *ProductionResult, actor shared.Actor, at time.Time) *OrderResultRecordedEvent {
	return &OrderResultRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderResultRecorded, AggregateTypeProductionOrder, o.OrderNo, actor, at),
		OrderNo:         o.OrderNo,
		Seq:             r.Seq,
		GoodQty:         r.GoodQty,
		BadQty:          r.BadQty,
	}
}

// OrderReceivedEvent is raised when finished goods are received
type OrderReceivedEvent struct {
	shared.BaseDomainEvent
	OrderNo  string          `json:"order_no"`
	ItemCode string          `json:"item_code"`
	Quantity decimal.Decimal `json:"quantity"`
}

// NewOrderReceivedEvent creates a new OrderReceivedEvent
func NewOrderReceivedEvent(o *ProductionOrder, total decimal.Decimal, actor shared.Actor, at time.Time) *OrderReceivedEvent {
	return &OrderReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderReceived, AggregateTypeProductionOrder, o.OrderNo, actor, at),
		OrderNo:         o.OrderNo,
		ItemCode:        o.TargetItemCode,
		Quantity:        total,
	}
}

// OrderCancelledEvent is raised when an order is cancelled
type OrderCancelledEvent struct {
	shared.BaseDomainEvent
	OrderNo    string      `json:"order_no"`
	FromStatus OrderStatus `json:"from_status"`
	Remark     string      `json:"remark"`
}

// NewOrderCancelledEvent creates a new OrderCancelledEvent
func NewOrderCancelledEvent(o *ProductionOrder, from OrderStatus, actor shared.Actor, at time.Time) *OrderCancelledEvent {
	return &OrderCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCancelled, AggregateTypeProductionOrder, o.OrderNo, actor, at),
		OrderNo:         o.OrderNo,
		FromStatus:      from,
		Remark:          o.Remark,
	}
}
