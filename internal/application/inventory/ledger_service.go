package inventory

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/erp/production/internal/domain/catalog"
	"github.com/erp/production/internal/domain/inventory"
	"github.com/erp/production/internal/domain/partner"
	"github.com/erp/production/internal/domain/shared"
	"github.com/erp/production/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// LedgerService is the query and posting surface of the stock ledger
type LedgerService struct {
	scope        TransactionScope
	balances     inventory.StockBalanceRepository
	ledger       inventory.LedgerRepository
	items        catalog.ItemRepository
	warehouses   partner.WarehouseRepository
	recorder     *MovementRecorder
	logger       *zap.Logger
	verifyOnRead bool
	clock        func() time.Time
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	scope TransactionScope,
	balances inventory.StockBalanceRepository,
	ledger inventory.LedgerRepository,
	items catalog.ItemRepository,
	warehouses partner.WarehouseRepository,
	recorder *MovementRecorder,
	logger *zap.Logger,
) *LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{
		scope:      scope,
		balances:   balances,
		ledger:     ledger,
		items:      items,
		warehouses: warehouses,
		recorder:   recorder,
		logger:     logger,
		clock:      time.Now,
	}
}

// SetVerifyOnRead makes GetBalance replay the ledger before answering
func (s *LedgerService) SetVerifyOnRead(enabled bool) {
	s.verifyOnRead = enabled
}

// GetBalance returns the on-hand and allocated quantity of an item in a
// warehouse. A pair that has never moved reports zero.
func (s *LedgerService) GetBalance(ctx context.Context, itemCode, warehouseCode string) (*BalanceResponse, error) {
	if s.verifyOnRead {
		report, err := s.verify(ctx, itemCode, warehouseCode)
		if err != nil {
			return nil, err
		}
		if !report.Consistent {
			return nil, inconsistency(report)
		}
	}

	b, err := s.balances.FindByKey(ctx, itemCode, warehouseCode)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		if err := s.requireItemAndWarehouse(ctx, itemCode, warehouseCode); err != nil {
			return nil, err
		}
		resp := ToBalanceResponse(inventory.NewStockBalance(itemCode, warehouseCode))
		resp.Version = 0
		resp.UpdatedAt = nil
		return &resp, nil
	}
	if b.Quarantined {
		return nil, shared.ErrLedgerInconsistent.
			WithDetail("item", itemCode).
			WithDetail("warehouse", warehouseCode).
			WithDetail("reason", "quarantined")
	}
	resp := ToBalanceResponse(b)
	return &resp, nil
}

// GetLedgerHistory returns ledger entries for an item, a warehouse or both,
// oldest first, each carrying the running balance of its own key.
func (s *LedgerService) GetLedgerHistory(ctx context.Context, q LedgerHistoryQuery) ([]LedgerLineResponse, error) {
	q.ItemCode = strings.TrimSpace(q.ItemCode)
	q.WarehouseCode = strings.TrimSpace(q.WarehouseCode)
	if q.ItemCode == "" && q.WarehouseCode == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Item or warehouse code is required")
	}
	if q.From != nil && q.To != nil && q.From.After(*q.To) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "History start must not be after its end")
	}

	entries, err := s.ledger.FindHistory(ctx, inventory.LedgerQuery{
		ItemCode:      q.ItemCode,
		WarehouseCode: q.WarehouseCode,
		To:            q.To,
	})
	if err != nil {
		return nil, err
	}
	return ToLedgerLineResponses(inventory.RunningBalances(entries, q.From)), nil
}

// PostInbound records an IN movement for purchase receiving and similar flows
func (s *LedgerService) PostInbound(ctx context.Context, actor shared.Actor, req PostStockRequest) (*LedgerEntryResponse, error) {
	return s.post(ctx, actor, req, inventory.MovementIn, inventory.RefPurchaseOrder)
}

// PostOutbound records an OUT movement for sales shipments and similar
// flows. Only available stock can leave; allocated stock stays put.
func (s *LedgerService) PostOutbound(ctx context.Context, actor shared.Actor, req PostStockRequest) (*LedgerEntryResponse, error) {
	return s.post(ctx, actor, req, inventory.MovementOut, inventory.RefSalesOrder)
}

func (s *LedgerService) post(ctx context.Context, actor shared.Actor, req PostStockRequest, t inventory.MovementType, defaultRef inventory.RefTable) (*LedgerEntryResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock_ledger", strings.ToLower(string(t)),
		telemetry.WithAttribute(telemetry.SpanAttrItemCode, req.ItemCode),
		telemetry.WithAttribute(telemetry.SpanAttrWarehouse, req.WarehouseCode),
		telemetry.WithAttribute(telemetry.SpanAttrQuantity, req.Quantity),
	)
	defer span.End()

	if err := actor.Validate(); err != nil {
		return nil, err
	}
	ref := inventory.RefTable(req.RefTable)
	if ref == "" {
		ref = defaultRef
	}
	if ref == inventory.RefProductionOrder {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Production movements are posted by the production service")
	}
	if err := s.requireItemAndWarehouse(ctx, req.ItemCode, req.WarehouseCode); err != nil {
		return nil, err
	}

	m := inventory.Movement{
		Type:            t,
		ItemCode:        req.ItemCode,
		WarehouseCode:   req.WarehouseCode,
		Quantity:        req.Quantity,
		Reference:       inventory.Reference{Table: ref, No: req.RefNo, Seq: req.RefSeq},
		CounterpartCode: req.CounterpartCode,
		Remark:          req.Remark,
		Actor:           actor,
	}

	var entry *inventory.LedgerEntry
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		entry, err = s.recorder.Record(ctx, repos, m)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Warn("stock posting rejected",
			zap.String("movement_type", string(t)),
			zap.String("item", req.ItemCode),
			zap.String("warehouse", req.WarehouseCode),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("stock posted",
		zap.String("movement_type", string(t)),
		zap.String("item", entry.ItemCode),
		zap.String("warehouse", entry.WarehouseCode),
		zap.String("quantity", entry.Quantity.String()),
		zap.String("ref_no", entry.RefNo),
		zap.String("actor", actor.ID),
	)
	resp := ToLedgerEntryResponse(entry)
	return &resp, nil
}

// VerifyConsistency replays the ledger of one key and compares it with the
// stored balance. A mismatch quarantines the key; the report says so.
func (s *LedgerService) VerifyConsistency(ctx context.Context, itemCode, warehouseCode string) (*ConsistencyReport, error) {
	return s.verify(ctx, itemCode, warehouseCode)
}

// ReleaseQuarantine lifts the quarantine on a key once its ledger reconciles
// again after a manual correction.
func (s *LedgerService) ReleaseQuarantine(ctx context.Context, actor shared.Actor, itemCode, warehouseCode string) (*BalanceResponse, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}

	var released *inventory.StockBalance
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		b, err := repos.BalanceRepo().FindByKeyForUpdate(ctx, itemCode, warehouseCode)
		if err != nil {
			return err
		}
		entries, err := repos.LedgerRepo().FindByKey(ctx, itemCode, warehouseCode)
		if err != nil {
			return err
		}
		if err := inventory.VerifyBalance(b, entries); err != nil {
			return err
		}
		if !b.Quarantined {
			released = b
			return nil
		}
		b.ReleaseQuarantine(s.clock())
		if err := repos.BalanceRepo().SaveWithLock(ctx, b); err != nil {
			return err
		}
		released = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("balance quarantine released",
		zap.String("item", itemCode),
		zap.String("warehouse", warehouseCode),
		zap.String("actor", actor.ID),
	)
	resp := ToBalanceResponse(released)
	return &resp, nil
}

// verify replays under the balance row lock so a concurrent posting cannot
// land between reading the balance and reading its entries.
func (s *LedgerService) verify(ctx context.Context, itemCode, warehouseCode string) (*ConsistencyReport, error) {
	report := &ConsistencyReport{ItemCode: itemCode, WarehouseCode: warehouseCode}

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		exists := true
		b, err := repos.BalanceRepo().FindByKeyForUpdate(ctx, itemCode, warehouseCode)
		if err != nil {
			if !errors.Is(err, shared.ErrNotFound) {
				return err
			}
			exists = false
			b = inventory.NewStockBalance(itemCode, warehouseCode)
		}
		entries, err := repos.LedgerRepo().FindByKey(ctx, itemCode, warehouseCode)
		if err != nil {
			return err
		}

		totals := inventory.Replay(entries)[b.Key()]
		report.StoredOnHand = b.OnHand
		report.StoredAllocated = b.Allocated
		report.ReplayedOnHand = totals.OnHand
		report.ReplayedAllocated = totals.Allocated
		report.Entries = len(entries)
		report.Consistent = b.Matches(totals)
		report.Quarantined = b.Quarantined

		if report.Consistent || b.Quarantined || !exists {
			return nil
		}
		b.Quarantine(s.clock())
		if err := repos.BalanceRepo().SaveWithLock(ctx, b); err != nil {
			return err
		}
		report.Quarantined = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !report.Consistent {
		s.logger.Error("ledger does not reconcile with stored balance",
			zap.String("item", itemCode),
			zap.String("warehouse", warehouseCode),
			zap.String("stored_on_hand", report.StoredOnHand.String()),
			zap.String("replayed_on_hand", report.ReplayedOnHand.String()),
			zap.String("stored_allocated", report.StoredAllocated.String()),
			zap.String("replayed_allocated", report.ReplayedAllocated.String()),
			zap.Bool("quarantined", report.Quarantined),
		)
	}
	return report, nil
}

func (s *LedgerService) requireItemAndWarehouse(ctx context.Context, itemCode, warehouseCode string) error {
	if strings.TrimSpace(itemCode) == "" || strings.TrimSpace(warehouseCode) == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Item and warehouse codes are required")
	}
	if _, err := s.items.FindByCode(ctx, itemCode); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError(shared.CodeNotFound, "Item not found").WithDetail("item", itemCode)
		}
		return err
	}
	wh, err := s.warehouses.FindByCode(ctx, warehouseCode)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError(shared.CodeNotFound, "Warehouse not found").WithDetail("warehouse", warehouseCode)
		}
		return err
	}
	if !wh.IsActive() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Warehouse is inactive").WithDetail("warehouse", warehouseCode)
	}
	return nil
}

func inconsistency(r *ConsistencyReport) error {
	return shared.ErrLedgerInconsistent.
		WithDetail("item", r.ItemCode).
		WithDetail("warehouse", r.WarehouseCode).
		WithDetail("stored_on_hand", r.StoredOnHand).
		WithDetail("replayed_on_hand", r.ReplayedOnHand).
		WithDetail("stored_allocated", r.StoredAllocated).
		WithDetail("replayed_allocated", r.ReplayedAllocated)
}
