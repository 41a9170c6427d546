package production

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/production/internal/domain/catalog"
	"github.com/erp/production/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ProductionOrder is the aggregate root for one production run. Its status
// only changes through the transition methods below, each of which is
// checked against the transition table.
type ProductionOrder struct {
	OrderNo        string          `gorm:"type:varchar(30);primaryKey"`
	PlannedDate    time.Time       `gorm:"type:date;not null;index"`
	TargetItemCode string          `gorm:"type:varchar(50);not null;index"`
	PlannedQty     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Status         OrderStatus     `gorm:"type:varchar(20);not null;index"`
	Remark         string          `gorm:"type:varchar(500)"`
	CreatedBy      string          `gorm:"type:varchar(50);not null"`
	UpdatedBy      string          `gorm:"type:varchar(50);not null"`
	ReservedAt     *time.Time
	ConsumedAt     *time.Time
	ReceivedAt     *time.Time
	CancelledAt    *time.Time
	shared.BaseAggregateRoot
}

// TableName returns the table name for GORM
func (ProductionOrder) TableName() string {
	return "production_orders"
}

// NewProductionOrder creates an order in Planned status. The target must be a
// finished product.
func NewProductionOrder(orderNo string, target *catalog.Item, plannedDate time.Time, plannedQty decimal.Decimal, remark string, actor shared.Actor, now time.Time) (*ProductionOrder, error) {
	if strings.TrimSpace(orderNo) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Order number is required")
	}
	if err := validateTarget(target); err != nil {
		return nil, err
	}
	if err := validatePlannedQty(plannedQty); err != nil {
		return nil, err
	}
	if plannedDate.IsZero() {
		plannedDate = now
	}

	o := &ProductionOrder{
		OrderNo:           orderNo,
		PlannedDate:       truncateToDate(plannedDate),
		TargetItemCode:    target.Code,
		PlannedQty:        plannedQty,
		Status:            OrderStatusPlanned,
		Remark:            remark,
		CreatedBy:         actor.ID,
		UpdatedBy:         actor.ID,
		BaseAggregateRoot: shared.NewBaseAggregateRoot(now),
	}
	o.AddDomainEvent(NewOrderCreatedEvent(o, actor, now))
	return o, nil
}

// UpdatePlan changes target, quantity and date. Only legal while Planned,
// since reserved quantities were derived from them.
func (o *ProductionOrder) UpdatePlan(target *catalog.Item, plannedDate time.Time, plannedQty decimal.Decimal, actor shared.Actor, now time.Time) error {
	if o.Status != OrderStatusPlanned {
		return o.illegal("update plan of")
	}
	if err := validateTarget(target); err != nil {
		return err
	}
	if err := validatePlannedQty(plannedQty); err != nil {
		return err
	}
	if !plannedDate.IsZero() {
		o.PlannedDate = truncateToDate(plannedDate)
	}
	o.TargetItemCode = target.Code
	o.PlannedQty = plannedQty
	o.stamp(actor, now)
	return nil
}

// UpdateRemark changes the remark of a non-terminal order
func (o *ProductionOrder) UpdateRemark(remark string, actor shared.Actor, now time.Time) error {
	if o.Status.IsTerminal() {
		return o.illegal("update")
	}
	o.Remark = remark
	o.stamp(actor, now)
	return nil
}

// MarkReserved records a successful reservation
func (o *ProductionOrder) MarkReserved(lines int, actor shared.Actor, now time.Time) error {
	if lines == 0 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Reservation produced no lines").
			WithDetail("order_no", o.OrderNo)
	}
	if err := o.transition(OrderStatusReserved, actor, now); err != nil {
		return err
	}
	o.ReservedAt = &now
	o.AddDomainEvent(NewOrderReservedEvent(o, lines, actor, now))
	return nil
}

// MarkUnreserved records released reservations; the status is unchanged
func (o *ProductionOrder) MarkUnreserved(lines int, actor shared.Actor, now time.Time) error {
	if o.Status != OrderStatusReserved {
		return o.illegal("unreserve")
	}
	o.stamp(actor, now)
	o.AddDomainEvent(NewOrderUnreservedEvent(o, lines, actor, now))
	return nil
}

// MarkConsumed records that reserved material was consumed
func (o *ProductionOrder) MarkConsumed(lines int, actor shared.Actor, now time.Time) error {
	if err := o.transition(OrderStatusConsumed, actor, now); err != nil {
		return err
	}
	o.ConsumedAt = &now
	o.AddDomainEvent(NewOrderConsumedEvent(o, lines, actor, now))
	return nil
}

// RecordResult moves the order to ResultRecorded for the given result line
func (o *ProductionOrder) RecordResult(result *ProductionResult, actor shared.Actor, now time.Time) error {
	if result.OrderNo != o.OrderNo {
		return shared.NewDomainError(shared.CodeInvalidInput, "Result belongs to another order")
	}
	if err := o.transition(OrderStatusResultRecorded, actor, now); err != nil {
		return err
	}
	o.AddDomainEvent(NewOrderResultRecordedEvent(o, result, actor, now))
	return nil
}

// MarkReceived records that finished goods went into stock
func (o *ProductionOrder) MarkReceived(total decimal.Decimal, actor shared.Actor, now time.Time) error {
	if err := o.transition(OrderStatusReceived, actor, now); err != nil {
		return err
	}
	o.ReceivedAt = &now
	o.AddDomainEvent(NewOrderReceivedEvent(o, total, actor, now))
	return nil
}

// Cancel moves the order to Cancelled. Any reservation must have been
// released by the caller in the same transaction.
func (o *ProductionOrder) Cancel(remark string, actor shared.Actor, now time.Time) error {
	from := o.Status
	if err := o.transition(OrderStatusCancelled, actor, now); err != nil {
		return err
	}
	if remark != "" {
		o.Remark = remark
	}
	o.CancelledAt = &now
	o.AddDomainEvent(NewOrderCancelledEvent(o, from, actor, now))
	return nil
}

// CanCancel reports whether the order may still be cancelled
func (o *ProductionOrder) CanCancel() bool {
	return o.Status.CanTransitionTo(OrderStatusCancelled)
}

// CheckTransition reports whether the order may move to target, without moving it
func (o *ProductionOrder) CheckTransition(target OrderStatus) error {
	if !o.Status.CanTransitionTo(target) {
		return shared.ErrInvalidStateTransition.
			WithDetail("order_no", o.OrderNo).
			WithDetail("from", o.Status).
			WithDetail("to", target)
	}
	return nil
}

func (o *ProductionOrder) transition(target OrderStatus, actor shared.Actor, now time.Time) error {
	if err := o.CheckTransition(target); err != nil {
		return err
	}
	o.Status = target
	o.stamp(actor, now)
	return nil
}

func (o *ProductionOrder) stamp(actor shared.Actor, now time.Time) {
	o.UpdatedBy = actor.ID
	o.Touch(now)
}

func (o *ProductionOrder) illegal(op string) error {
	return shared.NewDomainError(shared.CodeInvalidStateTransition, fmt.Sprintf("Cannot %s order in %s status", op, o.Status)).
		WithDetail("order_no", o.OrderNo)
}

func validateTarget(target *catalog.Item) error {
	if target == nil {
		return shared.NewDomainError(shared.CodeInvalidInput, "Target item is required")
	}
	if !target.IsFinishedProduct() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Target item is not a finished product").
			WithDetail("item", target.Code).
			WithDetail("category", target.Category)
	}
	return nil
}

func validatePlannedQty(qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Planned quantity must be positive").
			WithDetail("planned_qty", qty)
	}
	return shared.CheckQuantityScale("planned_qty", qty)
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
