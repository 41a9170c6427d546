package handler

import (
	"context"
	"time"

	inventoryapp "github.com/erp/production/internal/application/inventory"
	"github.com/erp/production/internal/domain/shared"
	"github.com/erp/production/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// StockLedgerService is the part of the ledger service the HTTP API drives.
// *inventoryapp.LedgerService implements it.
type StockLedgerService interface {
	GetBalance(ctx context.Context, itemCode, warehouseCode string) (*inventoryapp.BalanceResponse, error)
	GetLedgerHistory(ctx context.Context, q inventoryapp.LedgerHistoryQuery) ([]inventoryapp.LedgerLineResponse, error)
	PostInbound(ctx context.Context, actor shared.Actor, req inventoryapp.PostStockRequest) (*inventoryapp.LedgerEntryResponse, error)
	PostOutbound(ctx context.Context, actor shared.Actor, req inventoryapp.PostStockRequest) (*inventoryapp.LedgerEntryResponse, error)
	VerifyConsistency(ctx context.Context, itemCode, warehouseCode string) (*inventoryapp.ConsistencyReport, error)
	ReleaseQuarantine(ctx context.Context, actor shared.Actor, itemCode, warehouseCode string) (*inventoryapp.BalanceResponse, error)
}

// StockHandler handles stock balance and ledger endpoints
type StockHandler struct {
	BaseHandler
	ledger StockLedgerService
}

// NewStockHandler creates a new StockHandler
func NewStockHandler(ledger StockLedgerService) *StockHandler {
	return &StockHandler{ledger: ledger}
}

// LedgerQuery represents the ledger history query string
type LedgerQuery struct {
	ItemCode      string `form:"item"`
	WarehouseCode string `form:"warehouse"`
	From          string `form:"from"`
	To            string `form:"to"`
}

// GetBalance returns the balance of one item in one warehouse.
// GET /stock/balances/:item/:warehouse
func (h *StockHandler) GetBalance(c *gin.Context) {
	balance, err := h.ledger.GetBalance(c.Request.Context(), c.Param("item"), c.Param("warehouse"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, balance)
}

// Ledger returns ledger entries with running balances.
// GET /stock/ledger?item=&warehouse=&from=&to=
func (h *StockHandler) Ledger(c *gin.Context) {
	var q LedgerQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	query := inventoryapp.LedgerHistoryQuery{ItemCode: q.ItemCode, WarehouseCode: q.WarehouseCode}
	var err error
	if query.From, err = parseTimeParam(q.From, false); err != nil {
		h.BadRequest(c, "from must be a date (2006-01-02) or RFC3339 time")
		return
	}
	if query.To, err = parseTimeParam(q.To, true); err != nil {
		h.BadRequest(c, "to must be a date (2006-01-02) or RFC3339 time")
		return
	}

	lines, err := h.ledger.GetLedgerHistory(c.Request.Context(), query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, lines)
}

// Inbound posts a purchase or adjustment receipt.
// POST /stock/inbound
func (h *StockHandler) Inbound(c *gin.Context) {
	h.post(c, h.ledger.PostInbound)
}

// Outbound posts a sales or adjustment issue from available stock.
// POST /stock/outbound
func (h *StockHandler) Outbound(c *gin.Context) {
	h.post(c, h.ledger.PostOutbound)
}

type postFunc func(ctx context.Context, actor shared.Actor, req inventoryapp.PostStockRequest) (*inventoryapp.LedgerEntryResponse, error)

func (h *StockHandler) post(c *gin.Context, run postFunc) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	var req inventoryapp.PostStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	entry, err := run(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, entry)
}

// Verify replays the ledger of one key against its stored balance. A
// mismatch quarantines the key; the report carries both sides.
// POST /stock/verify/:item/:warehouse
func (h *StockHandler) Verify(c *gin.Context) {
	report, err := h.ledger.VerifyConsistency(c.Request.Context(), c.Param("item"), c.Param("warehouse"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// Release lifts the quarantine of a key once its ledger reconciles again.
// POST /stock/release/:item/:warehouse
func (h *StockHandler) Release(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	balance, err := h.ledger.ReleaseQuarantine(c.Request.Context(), actor, c.Param("item"), c.Param("warehouse"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, balance)
}

// parseTimeParam accepts a date or an RFC3339 time. A bare date used as an
// upper bound covers the whole day.
func parseTimeParam(s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
