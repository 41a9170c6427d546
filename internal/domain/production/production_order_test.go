package production

import (
	"testing"
	"time"

	"github.com/erp/production/internal/domain/catalog"
	"github.com/erp/production/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testActor = shared.Actor{ID: "u1", Name: "Planner"}
	testNow   = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
)

func finished() *catalog.Item {
	return &catalog.Item{Code: "F", Name: "Widget", Category: catalog.ItemCategoryProduct}
}

func newOrder(t *testing.T) *ProductionOrder {
	t.Helper()
	o, err := NewProductionOrder("P1", finished(), testNow, decimal.NewFromInt(5), "", testActor, testNow)
	require.NoError(t, err)
	return o
}

func result(t *testing.T, o *ProductionOrder, seq int) *ProductionResult {
	t.Helper()
	r, err := NewProductionResult(o.OrderNo, seq, ResultInput{WarehouseCode: "WF", GoodQty: decimal.NewFromInt(5)}, testActor, testNow)
	require.NoError(t, err)
	return r
}

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderStatusPlanned, OrderStatusReserved, true},
		{OrderStatusPlanned, OrderStatusCancelled, true},
		{OrderStatusPlanned, OrderStatusConsumed, false},
		{OrderStatusReserved, OrderStatusConsumed, true},
		{OrderStatusReserved, OrderStatusCancelled, true},
		{OrderStatusReserved, OrderStatusReserved, false},
		{OrderStatusConsumed, OrderStatusResultRecorded, true},
		{OrderStatusConsumed, OrderStatusCancelled, false},
		{OrderStatusResultRecorded, OrderStatusResultRecorded, true},
		{OrderStatusResultRecorded, OrderStatusReceived, true},
		{OrderStatusResultRecorded, OrderStatusCancelled, false},
		{OrderStatusReceived, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusPlanned, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}

	assert.True(t, OrderStatusReceived.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.False(t, OrderStatusConsumed.IsTerminal())
	assert.False(t, OrderStatus("DONE").IsValid())
}

func TestNewProductionOrder(t *testing.T) {
	t.Run("creates a planned order", func(t *testing.T) {
		o := newOrder(t)
		assert.Equal(t, OrderStatusPlanned, o.Status)
		assert.Equal(t, "F", o.TargetItemCode)
		assert.Equal(t, "u1", o.CreatedBy)
		assert.Equal(t, 1, o.GetVersion())
		assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), o.PlannedDate)

		events := o.PendingEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeOrderCreated, events[0].EventType())
		assert.Equal(t, "P1", events[0].AggregateID())
	})

	t.Run("rejects a component as target", func(t *testing.T) {
		component := &catalog.Item{Code: "C", Category: catalog.ItemCategoryComponent}
		_, err := NewProductionOrder("P1", component, testNow, decimal.NewFromInt(1), "", testActor, testNow)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		_, err := NewProductionOrder("P1", finished(), testNow, decimal.Zero, "", testActor, testNow)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("rejects quantity the ledger cannot store", func(t *testing.T) {
		_, err := NewProductionOrder("P1", finished(), testNow, decimal.RequireFromString("0.00004"), "", testActor, testNow)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("defaults planned date to today", func(t *testing.T) {
		o, err := NewProductionOrder("P1", finished(), time.Time{}, decimal.NewFromInt(1), "", testActor, testNow)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), o.PlannedDate)
	})
}

func TestProductionOrder_Lifecycle(t *testing.T) {
	t.Run("walks the happy path", func(t *testing.T) {
		o := newOrder(t)
		require.NoError(t, o.MarkReserved(2, testActor, testNow))
		assert.NotNil(t, o.ReservedAt)
		require.NoError(t, o.MarkConsumed(2, testActor, testNow))
		require.NoError(t, o.RecordResult(result(t, o, 1), testActor, testNow))
		require.NoError(t, o.RecordResult(result(t, o, 2), testActor, testNow))
		assert.Equal(t, OrderStatusResultRecorded, o.Status)
		require.NoError(t, o.MarkReceived(decimal.NewFromInt(5), testActor, testNow))
		assert.Equal(t, OrderStatusReceived, o.Status)
		assert.Len(t, o.PendingEvents(), 6)
	})

	t.Run("reservation with no lines is rejected", func(t *testing.T) {
		o := newOrder(t)
		assert.ErrorIs(t, o.MarkReserved(0, testActor, testNow), shared.ErrInvalidInput)
		assert.Equal(t, OrderStatusPlanned, o.Status)
	})

	t.Run("consume from planned is an invalid transition", func(t *testing.T) {
		o := newOrder(t)
		err := o.MarkConsumed(1, testActor, testNow)
		assert.ErrorIs(t, err, shared.ErrInvalidStateTransition)
		assert.Equal(t, OrderStatusPlanned, o.Status)
	})

	t.Run("cannot record results before consumption", func(t *testing.T) {
		o := newOrder(t)
		require.NoError(t, o.MarkReserved(1, testActor, testNow))
		assert.ErrorIs(t, o.RecordResult(result(t, o, 1), testActor, testNow), shared.ErrInvalidStateTransition)
	})

	t.Run("cannot receive without a result", func(t *testing.T) {
		o := newOrder(t)
		require.NoError(t, o.MarkReserved(1, testActor, testNow))
		require.NoError(t, o.MarkConsumed(1, testActor, testNow))
		assert.ErrorIs(t, o.MarkReceived(decimal.NewFromInt(1), testActor, testNow), shared.ErrInvalidStateTransition)
	})

	t.Run("unreserve keeps the status", func(t *testing.T) {
		o := newOrder(t)
		require.NoError(t, o.MarkReserved(1, testActor, testNow))
		require.NoError(t, o.MarkUnreserved(1, testActor, testNow))
		assert.Equal(t, OrderStatusReserved, o.Status)

		planned := newOrder(t)
		assert.ErrorIs(t, planned.MarkUnreserved(1, testActor, testNow), shared.ErrInvalidStateTransition)
	})
}

func TestProductionOrder_Cancel(t *testing.T) {
	t.Run("from planned", func(t *testing.T) {
		o := newOrder(t)
		require.NoError(t, o.Cancel("no longer needed", testActor, testNow))
		assert.Equal(t, OrderStatusCancelled, o.Status)
		assert.Equal(t, "no longer needed", o.Remark)
		assert.NotNil(t, o.CancelledAt)
	})

	t.Run("from reserved", func(t *testing.T) {
		o := newOrder(t)
		require.NoError(t, o.MarkReserved(1, testActor, testNow))
		assert.True(t, o.CanCancel())
		require.NoError(t, o.Cancel("", testActor, testNow))
	})

	t.Run("not after consumption", func(t *testing.T) {
		o := newOrder(t)
		require.NoError(t, o.MarkReserved(1, testActor, testNow))
		require.NoError(t, o.MarkConsumed(1, testActor, testNow))
		assert.False(t, o.CanCancel())
		assert.ErrorIs(t, o.Cancel("", testActor, testNow), shared.ErrInvalidStateTransition)
		assert.Equal(t, OrderStatusConsumed, o.Status)
	})

	t.Run("cancelled is terminal", func(t *testing.T) {
		o := newOrder(t)
		require.NoError(t, o.Cancel("", testActor, testNow))
		assert.ErrorIs(t, o.Cancel("", testActor, testNow), shared.ErrInvalidStateTransition)
		assert.ErrorIs(t, o.UpdateRemark("x", testActor, testNow), shared.ErrInvalidStateTransition)
	})
}

func TestProductionOrder_Update(t *testing.T) {
	t.Run("plan can change while planned", func(t *testing.T) {
		o := newOrder(t)
		other := &catalog.Item{Code: "G", Category: catalog.ItemCategoryProduct}
		require.NoError(t, o.UpdatePlan(other, time.Time{}, decimal.NewFromInt(7), testActor, testNow))
		assert.Equal(t, "G", o.TargetItemCode)
		assert.True(t, o.PlannedQty.Equal(decimal.NewFromInt(7)))
		assert.Equal(t, 2, o.GetVersion())
	})

	t.Run("plan is frozen once reserved", func(t *testing.T) {
		o := newOrder(t)
		require.NoError(t, o.MarkReserved(1, testActor, testNow))
		err := o.UpdatePlan(finished(), time.Time{}, decimal.NewFromInt(9), testActor, testNow)
		assert.ErrorIs(t, err, shared.ErrInvalidStateTransition)
		require.NoError(t, o.UpdateRemark("rush", testActor, testNow))
		assert.Equal(t, "rush", o.Remark)
	})
}

func TestNewProductionResult(t *testing.T) {
	t.Run("defaults result date to today", func(t *testing.T) {
		r, err := NewProductionResult("P1", 1, ResultInput{WarehouseCode: "WF", GoodQty: decimal.NewFromInt(1)}, testActor, testNow)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), r.ResultDate)
	})

	t.Run("rejects negative quantities", func(t *testing.T) {
		_, err := NewProductionResult("P1", 1, ResultInput{WarehouseCode: "WF", GoodQty: decimal.NewFromInt(-1)}, testActor, testNow)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("rejects quantities finer than four places", func(t *testing.T) {
		_, err := NewProductionResult("P1", 1, ResultInput{WarehouseCode: "WF", GoodQty: decimal.RequireFromString("1.00001")}, testActor, testNow)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("rejects an empty report", func(t *testing.T) {
		_, err := NewProductionResult("P1", 1, ResultInput{WarehouseCode: "WF"}, testActor, testNow)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("bad quantity with or without a reason", func(t *testing.T) {
		r, err := NewProductionResult("P1", 1, ResultInput{WarehouseCode: "WF", GoodQty: decimal.NewFromInt(4), BadQty: decimal.NewFromInt(1)}, testActor, testNow)
		require.NoError(t, err)
		assert.True(t, r.BadQty.Equal(decimal.NewFromInt(1)))
		assert.Empty(t, r.BadReasonCode)

		r, err = NewProductionResult("P1", 1, ResultInput{WarehouseCode: "WF", BadQty: decimal.NewFromInt(1), BadReasonCode: "SCRATCH"}, testActor, testNow)
		require.NoError(t, err)
		assert.Equal(t, "SCRATCH", r.BadReasonCode)
	})
}

func TestProductionOrder_CheckTransition(t *testing.T) {
	o := newOrder(t)

	assert.NoError(t, o.CheckTransition(OrderStatusReserved))
	err := o.CheckTransition(OrderStatusConsumed)
	require.ErrorIs(t, err, shared.ErrInvalidStateTransition)
	assert.Equal(t, OrderStatusPlanned, o.Status, "check must not move the order")

	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "PLANNED", de.Details["from"])
	assert.Equal(t, "CONSUMED", de.Details["to"])
}

func TestProductionOrder_VersionStepsOncePerSave(t *testing.T) {
	o := newOrder(t)
	require.NoError(t, o.MarkReserved(1, testActor, testNow))
	require.NoError(t, o.MarkUnreserved(1, testActor, testNow))
	require.NoError(t, o.Cancel("", testActor, testNow))

	assert.True(t, o.HasChanges())
	assert.Equal(t, 2, o.GetVersion())

	o.MarkPersisted()
	require.False(t, o.HasChanges())
}
