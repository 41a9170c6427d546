package handler

import (
	"context"

	inventoryapp "github.com/erp/production/internal/application/inventory"
	productionapp "github.com/erp/production/internal/application/production"
	"github.com/erp/production/internal/domain/inventory"
	"github.com/erp/production/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

type MockProductionOrderService struct {
	mock.Mock
}

var _ ProductionOrderService = (*MockProductionOrderService)(nil)

func (m *MockProductionOrderService) CreateOrder(ctx context.Context, actor shared.Actor, req productionapp.CreateOrderRequest) (*productionapp.OrderResponse, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*productionapp.OrderResponse), args.Error(1)
}

func (m *MockProductionOrderService) UpdateOrder(ctx context.Context, orderNo string, actor shared.Actor, req productionapp.UpdateOrderRequest) (*productionapp.OrderResponse, error) {
	args := m.Called(ctx, orderNo, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*productionapp.OrderResponse), args.Error(1)
}

func (m *MockProductionOrderService) CancelOrder(ctx context.Context, orderNo string, actor shared.Actor, remark string) (*productionapp.OrderResponse, error) {
	args := m.Called(ctx, orderNo, actor, remark)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*productionapp.OrderResponse), args.Error(1)
}

func (m *MockProductionOrderService) GetOrder(ctx context.Context, orderNo string) (*productionapp.OrderResponse, error) {
	args := m.Called(ctx, orderNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*productionapp.OrderResponse), args.Error(1)
}

func (m *MockProductionOrderService) ListOrders(ctx context.Context, filter productionapp.OrderListFilter) (*shared.Paginated[productionapp.OrderResponse], error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[productionapp.OrderResponse]), args.Error(1)
}

func (m *MockProductionOrderService) Reserve(ctx context.Context, orderNo string, actor shared.Actor, plan []inventory.PlanLine, remark string) (*productionapp.ReservationResponse, error) {
	args := m.Called(ctx, orderNo, actor, plan, remark)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*productionapp.ReservationResponse), args.Error(1)
}

func (m *MockProductionOrderService) Unreserve(ctx context.Context, orderNo string, actor shared.Actor, remark string) (*productionapp.MovementResponse, error) {
	args := m.Called(ctx, orderNo, actor, remark)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*productionapp.MovementResponse), args.Error(1)
}

func (m *MockProductionOrderService) Consume(ctx context.Context, orderNo string, actor shared.Actor, remark string) (*productionapp.MovementResponse, error) {
	args := m.Called(ctx, orderNo, actor, remark)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*productionapp.MovementResponse), args.Error(1)
}

func (m *MockProductionOrderService) RecordResult(ctx context.Context, orderNo string, actor shared.Actor, req productionapp.RecordResultRequest) (*productionapp.ResultResponse, error) {
	args := m.Called(ctx, orderNo, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*productionapp.ResultResponse), args.Error(1)
}

func (m *MockProductionOrderService) ReceiveFinishedGoods(ctx context.Context, orderNo string, actor shared.Actor, req productionapp.ReceiveRequest) (*productionapp.MovementResponse, error) {
	args := m.Called(ctx, orderNo, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*productionapp.MovementResponse), args.Error(1)
}

func (m *MockProductionOrderService) ListResults(ctx context.Context, orderNo string) ([]productionapp.ResultResponse, error) {
	args := m.Called(ctx, orderNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]productionapp.ResultResponse), args.Error(1)
}

func (m *MockProductionOrderService) GetOrderMovements(ctx context.Context, orderNo string) ([]inventoryapp.LedgerEntryResponse, error) {
	args := m.Called(ctx, orderNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventoryapp.LedgerEntryResponse), args.Error(1)
}

type MockStockLedgerService struct {
	mock.Mock
}

var _ StockLedgerService = (*MockStockLedgerService)(nil)

func (m *MockStockLedgerService) GetBalance(ctx context.Context, itemCode, warehouseCode string) (*inventoryapp.BalanceResponse, error) {
	args := m.Called(ctx, itemCode, warehouseCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.BalanceResponse), args.Error(1)
}

func (m *MockStockLedgerService) GetLedgerHistory(ctx context.Context, q inventoryapp.LedgerHistoryQuery) ([]inventoryapp.LedgerLineResponse, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventoryapp.LedgerLineResponse), args.Error(1)
}

func (m *MockStockLedgerService) PostInbound(ctx context.Context, actor shared.Actor, req inventoryapp.PostStockRequest) (*inventoryapp.LedgerEntryResponse, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.LedgerEntryResponse), args.Error(1)
}

func (m *MockStockLedgerService) PostOutbound(ctx context.Context, actor shared.Actor, req inventoryapp.PostStockRequest) (*inventoryapp.LedgerEntryResponse, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.LedgerEntryResponse), args.Error(1)
}

func (m *MockStockLedgerService) VerifyConsistency(ctx context.Context, itemCode, warehouseCode string) (*inventoryapp.ConsistencyReport, error) {
	args := m.Called(ctx, itemCode, warehouseCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.ConsistencyReport), args.Error(1)
}

func (m *MockStockLedgerService) ReleaseQuarantine(ctx context.Context, actor shared.Actor, itemCode, warehouseCode string) (*inventoryapp.BalanceResponse, error) {
	args := m.Called(ctx, actor, itemCode, warehouseCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.BalanceResponse), args.Error(1)
}
