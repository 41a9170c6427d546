package production

import (
	"context"
	"time"

	"github.com/erp/production/internal/domain/inventory"
	"github.com/erp/production/internal/domain/production"
	"github.com/erp/production/internal/domain/shared"
)

// Reserve expands the order's BOM and allocates every component, either
// automatically or from the operator's plan. Components the plan does not
// mention fall back to automatic allocation. Nothing is committed unless
// every component is fully allocated.
func (s *ProductionService) Reserve(ctx context.Context, orderNo string, actor shared.Actor, plan []inventory.PlanLine, remark string) (*ReservationResponse, error) {
	var lines []ReservedLine

	order, err := s.transition(ctx, "reserve", orderNo, actor, func(repos TransactionalRepositories, o *production.ProductionOrder, now time.Time) error {
		done, err := s.recorder.HasMovement(ctx, repos, inventory.RefProductionOrder, o.OrderNo, inventory.MovementReserve)
		if err != nil {
			return err
		}
		if done {
			return shared.ErrAlreadyProcessed.
				WithDetail("order_no", o.OrderNo).
				WithDetail("movement", inventory.MovementReserve)
		}
		if err := o.CheckTransition(production.OrderStatusReserved); err != nil {
			return err
		}

		required, err := s.expander.Expand(ctx, o.TargetItemCode, o.PlannedQty)
		if err != nil {
			return err
		}
		if len(required) == 0 {
			return shared.NewDomainError(shared.CodeNotFound, "Target item has no BOM lines to reserve").
				WithDetail("order_no", o.OrderNo).
				WithDetail("item", o.TargetItemCode)
		}

		grouped, err := inventory.GroupPlan(plan)
		if err != nil {
			return err
		}
		for item := range grouped {
			if _, ok := required[item]; !ok {
				return shared.NewDomainError(shared.CodeInvalidInput, "Plan names an item that is not a BOM component").
					WithDetail("order_no", o.OrderNo).
					WithDetail("item", item)
			}
		}

		seq := 0
		for _, component := range required.Components() {
			balances, err := repos.BalanceRepo().FindByItemForUpdate(ctx, component)
			if err != nil {
				return err
			}
			takes, err := s.engine.Allocate(component, required[component], balances, grouped[component])
			if err != nil {
				return err
			}
			for _, take := range takes {
				seq++
				if _, err := s.recorder.Record(ctx, repos, inventory.Movement{
					Type:          inventory.MovementReserve,
					ItemCode:      component,
					WarehouseCode: take.WarehouseCode,
					Quantity:      take.Quantity,
					Reference:     orderRef(o.OrderNo, seq),
					Remark:        remark,
					Actor:         actor,
				}); err != nil {
					return err
				}
				lines = append(lines, ReservedLine{
					ComponentCode: component,
					WarehouseCode: take.WarehouseCode,
					Quantity:      take.Quantity,
				})
			}
		}

		return o.MarkReserved(len(lines), actor, now)
	})
	if err != nil {
		return nil, err
	}
	for _, l := range lines {
		s.metrics.RecordMovement(ctx, string(inventory.MovementReserve), l.Quantity)
	}
	return &ReservationResponse{OrderNo: order.OrderNo, Status: string(order.Status), Lines: lines}, nil
}

// Unreserve releases every reservation of a reserved order. It is a no-op
// once the reservation has been released; the status does not change.
func (s *ProductionService) Unreserve(ctx context.Context, orderNo string, actor shared.Actor, remark string) (*MovementResponse, error) {
	var entries []*inventory.LedgerEntry

	order, err := s.transition(ctx, "unreserve", orderNo, actor, func(repos TransactionalRepositories, o *production.ProductionOrder, now time.Time) error {
		if o.Status != production.OrderStatusReserved {
			return shared.ErrInvalidStateTransition.
				WithDetail("order_no", o.OrderNo).
				WithDetail("from", o.Status).
				WithDetail("operation", "unreserve")
		}
		released, err := s.releaseReservation(ctx, repos, o, remark, actor)
		if err != nil {
			return err
		}
		entries = released
		if len(released) == 0 {
			return nil
		}
		return o.MarkUnreserved(len(released), actor, now)
	})
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		s.metrics.RecordMovement(ctx, string(e.MovementType), e.Quantity)
	}
	return &MovementResponse{Order: ToOrderResponse(order), Entries: toEntryResponses(entries)}, nil
}

// Consume turns the reservation into real consumption: on-hand and
// allocated both drop by each reserved quantity.
func (s *ProductionService) Consume(ctx context.Context, orderNo string, actor shared.Actor, remark string) (*MovementResponse, error) {
	var entries []*inventory.LedgerEntry

	order, err := s.transition(ctx, "consume", orderNo, actor, func(repos TransactionalRepositories, o *production.ProductionOrder, now time.Time) error {
		done, err := s.recorder.HasMovement(ctx, repos, inventory.RefProductionOrder, o.OrderNo, inventory.MovementConsume)
		if err != nil {
			return err
		}
		if done {
			return shared.ErrAlreadyProcessed.
				WithDetail("order_no", o.OrderNo).
				WithDetail("movement", inventory.MovementConsume)
		}
		if err := o.CheckTransition(production.OrderStatusConsumed); err != nil {
			return err
		}

		reserves, err := s.recorder.Movements(ctx, repos, inventory.RefProductionOrder, o.OrderNo, inventory.MovementReserve)
		if err != nil {
			return err
		}
		if len(reserves) == 0 {
			return shared.NewDomainError(shared.CodeInvalidStateTransition, "Order has no reservation to consume").
				WithDetail("order_no", o.OrderNo)
		}
		released, err := s.recorder.HasMovement(ctx, repos, inventory.RefProductionOrder, o.OrderNo, inventory.MovementUnreserve)
		if err != nil {
			return err
		}
		if released {
			return shared.NewDomainError(shared.CodeInvalidStateTransition, "Order reservation was released").
				WithDetail("order_no", o.OrderNo)
		}

		for i := range reserves {
			r := &reserves[i]
			entry, err := s.recorder.Record(ctx, repos, inventory.Movement{
				Type:          inventory.MovementConsume,
				ItemCode:      r.ItemCode,
				WarehouseCode: r.WarehouseCode,
				Quantity:      r.Quantity,
				Reference:     orderRef(o.OrderNo, r.RefSeq),
				Remark:        remark,
				Actor:         actor,
			})
			if err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return o.MarkConsumed(len(entries), actor, now)
	})
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		s.metrics.RecordMovement(ctx, string(e.MovementType), e.Quantity)
	}
	return &MovementResponse{Order: ToOrderResponse(order), Entries: toEntryResponses(entries)}, nil
}

// releaseReservation writes an UNRESERVE for every RESERVE of the order.
// It returns nothing when the reservation was already released.
func (s *ProductionService) releaseReservation(ctx context.Context, repos TransactionalRepositories, o *production.ProductionOrder, remark string, actor shared.Actor) ([]*inventory.LedgerEntry, error) {
	done, err := s.recorder.HasMovement(ctx, repos, inventory.RefProductionOrder, o.OrderNo, inventory.MovementUnreserve)
	if err != nil || done {
		return nil, err
	}
	reserves, err := s.recorder.Movements(ctx, repos, inventory.RefProductionOrder, o.OrderNo, inventory.MovementReserve)
	if err != nil {
		return nil, err
	}

	entries := make([]*inventory.LedgerEntry, 0, len(reserves))
	for i := range reserves {
		r := &reserves[i]
		entry, err := s.recorder.Record(ctx, repos, inventory.Movement{
			Type:          inventory.MovementUnreserve,
			ItemCode:      r.ItemCode,
			WarehouseCode: r.WarehouseCode,
			Quantity:      r.Quantity,
			Reference:     orderRef(o.OrderNo, r.RefSeq),
			Remark:        remark,
			Actor:         actor,
		})
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func orderRef(orderNo string, seq int) inventory.Reference {
	return inventory.Reference{Table: inventory.RefProductionOrder, No: orderNo, Seq: seq}
}
