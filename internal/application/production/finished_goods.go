package production

import (
	"context"
	"strings"
	"time"

	inventoryapp "github.com/erp/production/internal/application/inventory"
	"github.com/erp/production/internal/domain/inventory"
	"github.com/erp/production/internal/domain/production"
	"github.com/erp/production/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DefaultReceiptRemark is written on receipt entries when the caller gives none
const DefaultReceiptRemark = "finished goods receipt"

// RecordResult appends the next result line to a consumed order. It may be
// called repeatedly for partial reporting.
func (s *ProductionService) RecordResult(ctx context.Context, orderNo string, actor shared.Actor, req RecordResultRequest) (*ResultResponse, error) {
	if err := s.requireWarehouse(ctx, req.WarehouseCode); err != nil {
		return nil, err
	}

	var recorded *production.ProductionResult
	_, err := s.transition(ctx, "record_result", orderNo, actor, func(repos TransactionalRepositories, o *production.ProductionOrder, now time.Time) error {
		if err := o.CheckTransition(production.OrderStatusResultRecorded); err != nil {
			return err
		}
		last, err := repos.ResultRepo().MaxSeq(ctx, o.OrderNo)
		if err != nil {
			return err
		}

		in := production.ResultInput{
			WarehouseCode: req.WarehouseCode,
			GoodQty:       req.GoodQty,
			BadQty:        req.BadQty,
			BadReasonCode: req.BadReasonCode,
			Remark:        req.Remark,
		}
		if req.ResultDate != nil {
			in.ResultDate = *req.ResultDate
		}
		result, err := production.NewProductionResult(o.OrderNo, last+1, in, actor, now)
		if err != nil {
			return err
		}
		if err := repos.ResultRepo().Create(ctx, result); err != nil {
			return err
		}
		recorded = result
		return o.RecordResult(result, actor, now)
	})
	if err != nil {
		return nil, err
	}
	resp := ToResultResponse(recorded)
	return &resp, nil
}

// ReceiveFinishedGoods puts the produced target item into the given
// warehouses and closes the order.
func (s *ProductionService) ReceiveFinishedGoods(ctx context.Context, orderNo string, actor shared.Actor, req ReceiveRequest) (*MovementResponse, error) {
	if len(req.Lines) == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Receipt needs at least one warehouse line")
	}
	codes := make([]string, 0, len(req.Lines))
	for _, l := range req.Lines {
		if !l.Quantity.IsPositive() {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "Receipt quantity must be positive").
				WithDetail("warehouse", l.WarehouseCode).
				WithDetail("quantity", l.Quantity)
		}
		if err := shared.CheckQuantityScale("quantity", l.Quantity); err != nil {
			return nil, err
		}
		codes = append(codes, l.WarehouseCode)
	}
	if err := s.requireWarehouses(ctx, codes); err != nil {
		return nil, err
	}
	remark := strings.TrimSpace(req.Remark)
	if remark == "" {
		remark = DefaultReceiptRemark
	}

	var entries []*inventory.LedgerEntry
	order, err := s.transition(ctx, "receive", orderNo, actor, func(repos TransactionalRepositories, o *production.ProductionOrder, now time.Time) error {
		done, err := s.recorder.HasMovement(ctx, repos, inventory.RefProductionOrder, o.OrderNo, inventory.MovementReceipt)
		if err != nil {
			return err
		}
		if done {
			return shared.ErrAlreadyProcessed.
				WithDetail("order_no", o.OrderNo).
				WithDetail("movement", inventory.MovementReceipt)
		}
		if err := o.CheckTransition(production.OrderStatusReceived); err != nil {
			return err
		}
		results, err := repos.ResultRepo().MaxSeq(ctx, o.OrderNo)
		if err != nil {
			return err
		}
		if results == 0 {
			return shared.NewDomainError(shared.CodeInvalidStateTransition, "Order has no recorded result").
				WithDetail("order_no", o.OrderNo)
		}

		total := decimal.Zero
		for i, l := range req.Lines {
			entry, err := s.recorder.Record(ctx, repos, inventory.Movement{
				Type:          inventory.MovementReceipt,
				ItemCode:      o.TargetItemCode,
				WarehouseCode: strings.TrimSpace(l.WarehouseCode),
				Quantity:      l.Quantity,
				Reference:     orderRef(o.OrderNo, i+1),
				Remark:        remark,
				Actor:         actor,
			})
			if err != nil {
				return err
			}
			entries = append(entries, entry)
			total = total.Add(l.Quantity)
		}
		return o.MarkReceived(total, actor, now)
	})
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		s.metrics.RecordMovement(ctx, string(e.MovementType), e.Quantity)
	}
	return &MovementResponse{Order: ToOrderResponse(order), Entries: toEntryResponses(entries)}, nil
}

// ListResults returns an order's result lines by sequence
func (s *ProductionService) ListResults(ctx context.Context, orderNo string) ([]ResultResponse, error) {
	o, err := s.findOrder(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	results, err := s.results.FindByOrderNo(ctx, o.OrderNo)
	if err != nil {
		return nil, err
	}
	return ToResultResponses(results), nil
}

// GetOrderMovements returns every ledger entry written for the order, in
// ledger order
func (s *ProductionService) GetOrderMovements(ctx context.Context, orderNo string) ([]inventoryapp.LedgerEntryResponse, error) {
	o, err := s.findOrder(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	entries, err := s.ledger.FindByReference(ctx, inventory.RefProductionOrder, o.OrderNo)
	if err != nil {
		return nil, err
	}
	return inventoryapp.ToLedgerEntryResponses(entries), nil
}
