package handler

import (
	"context"

	inventoryapp "github.com/erp/production/internal/application/inventory"
	productionapp "github.com/erp/production/internal/application/production"
	"github.com/erp/production/internal/domain/inventory"
	"github.com/erp/production/internal/domain/shared"
	"github.com/erp/production/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// ProductionOrderService is the part of the production service the HTTP
// API drives. *productionapp.ProductionService implements it.
type ProductionOrderService interface {
	CreateOrder(ctx context.Context, actor shared.Actor, req productionapp.CreateOrderRequest) (*productionapp.OrderResponse, error)
	UpdateOrder(ctx context.Context, orderNo string, actor shared.Actor, req productionapp.UpdateOrderRequest) (*productionapp.OrderResponse, error)
	CancelOrder(ctx context.Context, orderNo string, actor shared.Actor, remark string) (*productionapp.OrderResponse, error)
	GetOrder(ctx context.Context, orderNo string) (*productionapp.OrderResponse, error)
	ListOrders(ctx context.Context, filter productionapp.OrderListFilter) (*shared.Paginated[productionapp.OrderResponse], error)
	Reserve(ctx context.Context, orderNo string, actor shared.Actor, plan []inventory.PlanLine, remark string) (*productionapp.ReservationResponse, error)
	Unreserve(ctx context.Context, orderNo string, actor shared.Actor, remark string) (*productionapp.MovementResponse, error)
	Consume(ctx context.Context, orderNo string, actor shared.Actor, remark string) (*productionapp.MovementResponse, error)
	RecordResult(ctx context.Context, orderNo string, actor shared.Actor, req productionapp.RecordResultRequest) (*productionapp.ResultResponse, error)
	ReceiveFinishedGoods(ctx context.Context, orderNo string, actor shared.Actor, req productionapp.ReceiveRequest) (*productionapp.MovementResponse, error)
	ListResults(ctx context.Context, orderNo string) ([]productionapp.ResultResponse, error)
	GetOrderMovements(ctx context.Context, orderNo string) ([]inventoryapp.LedgerEntryResponse, error)
}

// ProductionOrderHandler handles production order API endpoints
type ProductionOrderHandler struct {
	BaseHandler
	orders ProductionOrderService
}

// NewProductionOrderHandler creates a new ProductionOrderHandler
func NewProductionOrderHandler(orders ProductionOrderService) *ProductionOrderHandler {
	return &ProductionOrderHandler{orders: orders}
}

// Create creates a planned production order.
// POST /production-orders
func (h *ProductionOrderHandler) Create(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	var req productionapp.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, order)
}

// List returns orders matching the query filter.
// GET /production-orders
func (h *ProductionOrderHandler) List(c *gin.Context) {
	var filter productionapp.OrderListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	page, err := h.orders.ListOrders(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	respondPage(c, page)
}

// Get returns one order.
// GET /production-orders/:orderNo
func (h *ProductionOrderHandler) Get(c *gin.Context) {
	order, err := h.orders.GetOrder(c.Request.Context(), c.Param("orderNo"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Update changes the plan or remark of an order.
// PUT /production-orders/:orderNo
func (h *ProductionOrderHandler) Update(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	var req productionapp.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	order, err := h.orders.UpdateOrder(c.Request.Context(), c.Param("orderNo"), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Reserve allocates the order's components. Lines in the body form a manual
// plan; an empty body allocates every component automatically.
// POST /production-orders/:orderNo/reserve
func (h *ProductionOrderHandler) Reserve(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	var req productionapp.ReserveRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}

	res, err := h.orders.Reserve(c.Request.Context(), c.Param("orderNo"), actor, req.PlanLines(), req.Remark)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// Unreserve releases the reservation of a reserved order.
// POST /production-orders/:orderNo/unreserve
func (h *ProductionOrderHandler) Unreserve(c *gin.Context) {
	h.movement(c, h.orders.Unreserve)
}

// Consume issues the reserved components to production.
// POST /production-orders/:orderNo/consume
func (h *ProductionOrderHandler) Consume(c *gin.Context) {
	h.movement(c, h.orders.Consume)
}

// Cancel cancels an order, releasing any reservation.
// POST /production-orders/:orderNo/cancel
func (h *ProductionOrderHandler) Cancel(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	var req productionapp.RemarkRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}

	order, err := h.orders.CancelOrder(c.Request.Context(), c.Param("orderNo"), actor, req.Remark)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// RecordResult appends a production result line.
// POST /production-orders/:orderNo/results
func (h *ProductionOrderHandler) RecordResult(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	var req productionapp.RecordResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	res, err := h.orders.RecordResult(c.Request.Context(), c.Param("orderNo"), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, res)
}

// ListResults returns the order's result lines.
// GET /production-orders/:orderNo/results
func (h *ProductionOrderHandler) ListResults(c *gin.Context) {
	results, err := h.orders.ListResults(c.Request.Context(), c.Param("orderNo"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, results)
}

// Receive puts finished goods into stock.
// POST /production-orders/:orderNo/receive
func (h *ProductionOrderHandler) Receive(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	var req productionapp.ReceiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	res, err := h.orders.ReceiveFinishedGoods(c.Request.Context(), c.Param("orderNo"), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// Movements returns every ledger entry referencing the order.
// GET /production-orders/:orderNo/movements
func (h *ProductionOrderHandler) Movements(c *gin.Context) {
	entries, err := h.orders.GetOrderMovements(c.Request.Context(), c.Param("orderNo"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entries)
}

type movementFunc func(ctx context.Context, orderNo string, actor shared.Actor, remark string) (*productionapp.MovementResponse, error)

func (h *ProductionOrderHandler) movement(c *gin.Context, run movementFunc) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	var req productionapp.RemarkRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}

	res, err := run(c.Request.Context(), c.Param("orderNo"), actor, req.Remark)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}
