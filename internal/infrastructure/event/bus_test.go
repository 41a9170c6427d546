package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/production/internal/domain/production"
	"github.com/erp/production/internal/domain/shared"
	"github.com/erp/production/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var at = time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

func sampleOrder() *production.ProductionOrder {
	return &production.ProductionOrder{
		OrderNo:        "P20260401080000000",
		TargetItemCode: "F",
		PlannedQty:     testutil.Dec("5"),
		Status:         production.OrderStatusReserved,
	}
}

type panickingHandler struct{}

func (panickingHandler) Handle(context.Context, shared.DomainEvent) error { panic("boom") }
func (panickingHandler) EventTypes() []string                           { return nil }

func TestInMemoryEventBus_Publish(t *testing.T) {
	ctx := context.Background()
	created := production.NewOrderCreatedEvent(sampleOrder(), testutil.TestActor, at)
	reserved := production.NewOrderReservedEvent(sampleOrder(), 2, testutil.TestActor, at)

	t.Run("routes by event type and to wildcard handlers", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		typed := testutil.NewEventRecorder(production.EventTypeOrderReserved)
		all := testutil.NewEventRecorder()
		bus.Subscribe(typed)
		bus.Subscribe(all)

		require.NoError(t, bus.Publish(ctx, created, reserved))

		assert.Equal(t, []string{production.EventTypeOrderReserved}, typed.Types())
		assert.Equal(t, []string{production.EventTypeOrderCreated, production.EventTypeOrderReserved}, all.Types())
	})

	t.Run("explicit types override the handler's own", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		rec := testutil.NewEventRecorder(production.EventTypeOrderReserved)
		bus.Subscribe(rec, production.EventTypeOrderCreated)

		require.NoError(t, bus.Publish(ctx, created, reserved))
		assert.Equal(t, []string{production.EventTypeOrderCreated}, rec.Types())
	})

	t.Run("failing and panicking handlers do not stop delivery", func(t *testing.T) {
		core, logs := observer.New(zapcore.ErrorLevel)
		bus := NewInMemoryEventBus(zap.New(core))
		failing := testutil.NewEventRecorder()
		failing.SetError(errors.New("downstream unavailable"))
		after := testutil.NewEventRecorder()
		bus.Subscribe(failing)
		bus.Subscribe(panickingHandler{})
		bus.Subscribe(after)

		require.NoError(t, bus.Publish(ctx, reserved))

		assert.Equal(t, 1, after.Count())
		require.Equal(t, 2, logs.Len())
		assert.Equal(t, "P20260401080000000", logs.All()[0].ContextMap()["aggregate_id"])
		assert.Contains(t, logs.All()[1].ContextMap()["error"], "handler panicked")
	})

	t.Run("unsubscribed handler receives nothing", func(t *testing.T) {
		bus := NewInMemoryEventBus(nil)
		rec := testutil.NewEventRecorder()
		bus.Subscribe(rec)
		bus.Unsubscribe(rec)

		require.NoError(t, bus.Publish(ctx, created))
		assert.Zero(t, rec.Count())
	})
}

func TestInMemoryEventBus_Lifecycle(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	require.NoError(t, bus.Start(context.Background()))
	assert.True(t, bus.Running())
	require.NoError(t, bus.Stop(context.Background()))
	assert.False(t, bus.Running())
}

func TestHandlerRegistry(t *testing.T) {
	r := NewHandlerRegistry()
	a := testutil.NewEventRecorder()
	b := testutil.NewEventRecorder()
	r.Register(a, production.EventTypeOrderConsumed, production.EventTypeOrderReceived)
	r.Register(b)

	assert.Equal(t, []shared.EventHandler{a, b}, r.GetHandlers(production.EventTypeOrderConsumed))
	assert.Equal(t, []shared.EventHandler{b}, r.GetHandlers(production.EventTypeOrderCreated))

	r.Unregister(a)
	assert.Equal(t, []shared.EventHandler{b}, r.GetHandlers(production.EventTypeOrderReceived))

	r.Unregister(b)
	assert.Empty(t, r.GetHandlers(production.EventTypeOrderCreated))
}

func TestHandlerRegistry_KeepsRegistrationOrder(t *testing.T) {
	r := NewHandlerRegistry()
	all := testutil.NewEventRecorder()
	typed := testutil.NewEventRecorder()
	r.Register(all)
	r.Register(typed, production.EventTypeOrderReserved)

	assert.Equal(t, []shared.EventHandler{all, typed}, r.GetHandlers(production.EventTypeOrderReserved))
}
