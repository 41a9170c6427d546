package production

import (
	"context"
	"errors"
	"strings"
	"time"

	inventoryapp "github.com/erp/production/internal/application/inventory"
	"github.com/erp/production/internal/domain/catalog"
	"github.com/erp/production/internal/domain/inventory"
	"github.com/erp/production/internal/domain/partner"
	"github.com/erp/production/internal/domain/production"
	"github.com/erp/production/internal/domain/shared"
	"github.com/erp/production/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	serviceName = "production_order"

	// createAttempts bounds order-number retries when another process
	// generated the same number in the same millisecond.
	createAttempts = 3
)

// Metrics receives operation outcomes
type Metrics interface {
	RecordTransition(ctx context.Context, operation, outcome string, elapsed time.Duration)
	RecordMovement(ctx context.Context, movementType string, quantity decimal.Decimal)
}

type nopMetrics struct{}

func (nopMetrics) RecordTransition(context.Context, string, string, time.Duration) {}
func (nopMetrics) RecordMovement(context.Context, string, decimal.Decimal) {}

// Repositories groups the read-side repositories the service needs outside
// a transaction
type Repositories struct {
	Orders     production.ProductionOrderRepository
	Results    production.ProductionResultRepository
	Ledger     inventory.LedgerRepository
	Items      catalog.ItemRepository
	BOMs       catalog.BOMRepository
	Warehouses partner.WarehouseRepository
}

// ProductionService drives production orders through their lifecycle. Each
// transition runs in one transaction with the order row locked, so the
// idempotency check, the stock movements and the status change commit
// together or not at all.
type ProductionService struct {
	scope      TransactionScope
	orders     production.ProductionOrderRepository
	results    production.ProductionResultRepository
	ledger     inventory.LedgerRepository
	items      catalog.ItemRepository
	warehouses partner.WarehouseRepository
	expander   *catalog.BOMExpander
	engine     *inventory.AllocationEngine
	recorder   *inventoryapp.MovementRecorder
	numbers    production.OrderNumberGenerator
	locker     OrderLocker
	publisher  shared.EventPublisher
	metrics    Metrics
	logger     *zap.Logger
	clock      func() time.Time
}

// NewProductionService creates a new ProductionService
func NewProductionService(scope TransactionScope, repos Repositories, recorder *inventoryapp.MovementRecorder, logger *zap.Logger) *ProductionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductionService{
		scope:      scope,
		orders:     repos.Orders,
		results:    repos.Results,
		ledger:     repos.Ledger,
		items:      repos.Items,
		warehouses: repos.Warehouses,
		expander:   catalog.NewBOMExpander(repos.BOMs, repos.Items),
		engine:     inventory.NewAllocationEngine(),
		recorder:   recorder,
		numbers:    production.NewTimeOrderNumberGenerator(production.DefaultOrderPrefix),
		locker:     NewLocalOrderLocker(),
		metrics:    nopMetrics{},
		logger:     logger,
		clock:      time.Now,
	}
}

// SetEventPublisher sets the publisher that receives events after commit
func (s *ProductionService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// SetOrderLocker replaces the in-process locker, e.g. with a Redis lock
func (s *ProductionService) SetOrderLocker(locker OrderLocker) {
	s.locker = locker
}

// SetOrderNumberGenerator replaces the order number generator
func (s *ProductionService) SetOrderNumberGenerator(numbers production.OrderNumberGenerator) {
	s.numbers = numbers
}

// SetMetrics sets the metrics sink
func (s *ProductionService) SetMetrics(metrics Metrics) {
	s.metrics = metrics
}

// SetClock replaces the clock (tests)
func (s *ProductionService) SetClock(clock func() time.Time) {
	s.clock = clock
}

// CreateOrder plans a new order for a finished product
func (s *ProductionService) CreateOrder(ctx context.Context, actor shared.Actor, req CreateOrderRequest) (*OrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "create",
		telemetry.WithAttribute(telemetry.SpanAttrItemCode, req.TargetItemCode))
	defer span.End()
	start := s.clock()

	order, err := s.createOrder(ctx, actor, req)
	s.finish(ctx, "create", orderNoOf(order), start, err)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, order)

	resp := ToOrderResponse(order)
	return &resp, nil
}

func (s *ProductionService) createOrder(ctx context.Context, actor shared.Actor, req CreateOrderRequest) (*production.ProductionOrder, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	target, err := s.findItem(ctx, req.TargetItemCode)
	if err != nil {
		return nil, err
	}
	var plannedDate time.Time
	if req.PlannedDate != nil {
		plannedDate = *req.PlannedDate
	}

	for attempt := 1; ; attempt++ {
		now := s.clock()
		order, err := production.NewProductionOrder(s.numbers.Next(now), target, plannedDate, req.PlannedQty, req.Remark, actor, now)
		if err != nil {
			return nil, err
		}
		err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			return repos.OrderRepo().Create(ctx, order)
		})
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, shared.ErrAlreadyExists) || attempt >= createAttempts {
			return nil, err
		}
		s.logger.Debug("order number collision, retrying",
			zap.String("order_no", order.OrderNo),
			zap.Int("attempt", attempt),
		)
	}
}

// UpdateOrder changes the plan of a planned order or the remark of any
// open order
func (s *ProductionService) UpdateOrder(ctx context.Context, orderNo string, actor shared.Actor, req UpdateOrderRequest) (*OrderResponse, error) {
	var target *catalog.Item
	if req.TargetItemCode != nil {
		item, err := s.findItem(ctx, *req.TargetItemCode)
		if err != nil {
			return nil, err
		}
		target = item
	}

	order, err := s.transition(ctx, "update", orderNo, actor, func(_ TransactionalRepositories, o *production.ProductionOrder, now time.Time) error {
		if req.HasPlanChanges() {
			t := target
			if t == nil {
				current, err := s.findItem(ctx, o.TargetItemCode)
				if err != nil {
					return err
				}
				t = current
			}
			date := o.PlannedDate
			if req.PlannedDate != nil {
				date = *req.PlannedDate
			}
			qty := o.PlannedQty
			if req.PlannedQty != nil {
				qty = *req.PlannedQty
			}
			if err := o.UpdatePlan(t, date, qty, actor, now); err != nil {
				return err
			}
		}
		if req.Remark != nil {
			return o.UpdateRemark(*req.Remark, actor, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(order)
	return &resp, nil
}

// CancelOrder cancels a planned or reserved order. A reserved order has its
// reservation released in the same transaction.
func (s *ProductionService) CancelOrder(ctx context.Context, orderNo string, actor shared.Actor, remark string) (*OrderResponse, error) {
	order, err := s.transition(ctx, "cancel", orderNo, actor, func(repos TransactionalRepositories, o *production.ProductionOrder, now time.Time) error {
		if err := o.CheckTransition(production.OrderStatusCancelled); err != nil {
			return err
		}
		if o.Status == production.OrderStatusReserved {
			entries, err := s.releaseReservation(ctx, repos, o, remark, actor)
			if err != nil {
				return err
			}
			if len(entries) > 0 {
				if err := o.MarkUnreserved(len(entries), actor, now); err != nil {
					return err
				}
			}
		}
		return o.Cancel(remark, actor, now)
	})
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(order)
	return &resp, nil
}

// GetOrder returns one order
func (s *ProductionService) GetOrder(ctx context.Context, orderNo string) (*OrderResponse, error) {
	o, err := s.findOrder(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// ListOrders lists orders with filtering and pagination
func (s *ProductionService) ListOrders(ctx context.Context, filter OrderListFilter) (*shared.Paginated[OrderResponse], error) {
	f := production.OrderFilter{
		Filter:         shared.DefaultFilter(),
		TargetItemCode: strings.TrimSpace(filter.TargetItemCode),
		PlannedFrom:    filter.PlannedFrom,
		PlannedTo:      filter.PlannedTo,
	}
	if filter.Page > 0 {
		f.Page = filter.Page
	}
	if filter.PageSize > 0 {
		f.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		f.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		f.OrderDir = filter.OrderDir
	}
	if filter.Status != "" {
		status := production.OrderStatus(strings.ToUpper(filter.Status))
		if !status.IsValid() {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "Unknown order status").WithDetail("status", filter.Status)
		}
		f.Status = status
	}

	orders, total, err := s.orders.FindAll(ctx, f)
	if err != nil {
		return nil, err
	}
	page := shared.NewPaginated(ToOrderResponses(orders), total, f.Page, f.Limit())
	return &page, nil
}

// transition loads and locks the order, runs fn, saves the order if fn
// changed it, and publishes its events after commit.
func (s *ProductionService) transition(
	ctx context.Context,
	op, orderNo string,
	actor shared.Actor,
	fn func(repos TransactionalRepositories, o *production.ProductionOrder, now time.Time) error,
) (*production.ProductionOrder, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, op,
		telemetry.WithAttribute(telemetry.SpanAttrOrderNo, orderNo))
	defer span.End()
	start := s.clock()

	order, err := s.runTransition(ctx, orderNo, actor, fn)
	s.finish(ctx, op, orderNo, start, err)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, order)
	return order, nil
}

func (s *ProductionService) runTransition(
	ctx context.Context,
	orderNo string,
	actor shared.Actor,
	fn func(repos TransactionalRepositories, o *production.ProductionOrder, now time.Time) error,
) (*production.ProductionOrder, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	orderNo = strings.TrimSpace(orderNo)
	if orderNo == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Order number is required")
	}

	unlock, err := s.locker.TryLock(ctx, orderLockKey(orderNo))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var order *production.ProductionOrder
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		o, err := repos.OrderRepo().FindByOrderNoForUpdate(ctx, orderNo)
		if err != nil {
			return orderNotFound(err, orderNo)
		}
		if err := fn(repos, o, s.clock()); err != nil {
			return err
		}
		if o.HasChanges() {
			if err := repos.OrderRepo().SaveWithLock(ctx, o); err != nil {
				return err
			}
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *ProductionService) finish(ctx context.Context, op, orderNo string, start time.Time, err error) {
	elapsed := s.clock().Sub(start)
	sp := telemetry.SpanFromContext(ctx)
	if err != nil {
		code := errorCode(err)
		telemetry.RecordError(sp, err)
		s.metrics.RecordTransition(ctx, op, code, elapsed)
		s.logger.Warn("production order operation rejected",
			zap.String("operation", op),
			zap.String("order_no", orderNo),
			zap.String("code", code),
			zap.Error(err),
		)
		return
	}
	telemetry.SetOK(sp)
	s.metrics.RecordTransition(ctx, op, "OK", elapsed)
}

func (s *ProductionService) publish(ctx context.Context, o *production.ProductionOrder) {
	events := o.PullEvents()
	if len(events) == 0 {
		return
	}
	s.logger.Info("production order committed",
		zap.String("order_no", o.OrderNo),
		zap.String("status", string(o.Status)),
		zap.Int("events", len(events)),
	)
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Error("failed to publish production order events",
			zap.String("order_no", o.OrderNo),
			zap.Error(err),
		)
	}
}

func (s *ProductionService) findOrder(ctx context.Context, orderNo string) (*production.ProductionOrder, error) {
	o, err := s.orders.FindByOrderNo(ctx, strings.TrimSpace(orderNo))
	if err != nil {
		return nil, orderNotFound(err, orderNo)
	}
	return o, nil
}

func (s *ProductionService) findItem(ctx context.Context, code string) (*catalog.Item, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Item code is required")
	}
	item, err := s.items.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError(shared.CodeNotFound, "Item not found").WithDetail("item", code)
		}
		return nil, err
	}
	return item, nil
}

func (s *ProductionService) requireWarehouse(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Warehouse code is required")
	}
	wh, err := s.warehouses.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError(shared.CodeNotFound, "Warehouse not found").WithDetail("warehouse", code)
		}
		return err
	}
	if !wh.IsActive() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Warehouse is inactive").WithDetail("warehouse", code)
	}
	return nil
}

// requireWarehouses checks a batch of warehouse codes with one lookup and
// reports the first missing or inactive code in input order.
func (s *ProductionService) requireWarehouses(ctx context.Context, codes []string) error {
	wanted := make([]string, 0, len(codes))
	for _, c := range codes {
		c = strings.TrimSpace(c)
		if c == "" {
			return shared.NewDomainError(shared.CodeInvalidInput, "Warehouse code is required")
		}
		wanted = append(wanted, c)
	}
	found, err := s.warehouses.FindByCodes(ctx, wanted)
	if err != nil {
		return err
	}
	byCode := make(map[string]partner.Warehouse, len(found))
	for _, wh := range found {
		byCode[wh.Code] = wh
	}
	for _, c := range wanted {
		wh, ok := byCode[c]
		if !ok {
			return shared.NewDomainError(shared.CodeNotFound, "Warehouse not found").WithDetail("warehouse", c)
		}
		if !wh.IsActive() {
			return shared.NewDomainError(shared.CodeInvalidInput, "Warehouse is inactive").WithDetail("warehouse", c)
		}
	}
	return nil
}

func orderNotFound(err error, orderNo string) error {
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NewDomainError(shared.CodeNotFound, "Production order not found").WithDetail("order_no", orderNo)
	}
	return err
}

func orderNoOf(o *production.ProductionOrder) string {
	if o == nil {
		return ""
	}
	return o.OrderNo
}

func errorCode(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return "INTERNAL_ERROR"
}
