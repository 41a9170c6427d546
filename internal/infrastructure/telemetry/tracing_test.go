package telemetry_test

import (
	"context"
	"testing"

	"github.com/erp/production/internal/domain/shared"
	"github.com/erp/production/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func spanAttrs(s sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value, len(s.Attributes()))
	for _, kv := range s.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestStartServiceSpan_NamesAndStartAttributes(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "production_order", "reserve",
		telemetry.WithAttribute(telemetry.SpanAttrOrderNo, "P20261017-0001"),
		telemetry.WithAttribute(telemetry.SpanAttrQuantity, decimal.RequireFromString("12.500")),
	)
	span.End()

	ended := sr.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "production_order.reserve", ended[0].Name())
	assert.Equal(t, trace.SpanKindInternal, ended[0].SpanKind())

	attrs := spanAttrs(ended[0])
	assert.Equal(t, "P20261017-0001", attrs[telemetry.SpanAttrOrderNo].AsString())
	assert.Equal(t, "12.5", attrs[telemetry.SpanAttrQuantity].AsString())
}

func TestStartSpan_WithSpanKind(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "stock_ledger.verify",
		telemetry.WithSpanKind(trace.SpanKindServer))
	span.End()

	require.Len(t, sr.Ended(), 1)
	assert.Equal(t, trace.SpanKindServer, sr.Ended()[0].SpanKind())
}

func TestSetAttributes(t *testing.T) {
	tests := []struct {
		name      string
		keyValues []any
		want      map[attribute.Key]attribute.Value
	}{
		{
			name:      "movement fields",
			keyValues: []any{telemetry.SpanAttrItemCode, "RM-STEEL", telemetry.SpanAttrMovementType, "ISSUE", "lines", 3},
			want: map[attribute.Key]attribute.Value{
				telemetry.SpanAttrItemCode:     attribute.StringValue("RM-STEEL"),
				telemetry.SpanAttrMovementType: attribute.StringValue("ISSUE"),
				"lines":                        attribute.IntValue(3),
			},
		},
		{
			name:      "trailing key dropped",
			keyValues: []any{telemetry.SpanAttrWarehouse, "WH-A", "orphan"},
			want: map[attribute.Key]attribute.Value{
				telemetry.SpanAttrWarehouse: attribute.StringValue("WH-A"),
			},
		},
		{
			name:      "non string key skipped",
			keyValues: []any{42, "ignored", "verify_on_read", true},
			want: map[attribute.Key]attribute.Value{
				"verify_on_read": attribute.BoolValue(true),
			},
		},
		{
			name:      "decimal and slices",
			keyValues: []any{"shortage", decimal.NewFromInt(7), "warehouses", []string{"WH-A", "WH-B"}},
			want: map[attribute.Key]attribute.Value{
				"shortage":   attribute.StringValue("7"),
				"warehouses": attribute.StringSliceValue([]string{"WH-A", "WH-B"}),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sr := setupTestTracer(t)

			_, span := telemetry.StartSpan(context.Background(), "stock_ledger.issue")
			telemetry.SetAttributes(span, tt.keyValues...)
			span.End()

			require.Len(t, sr.Ended(), 1)
			assert.Equal(t, tt.want, spanAttrs(sr.Ended()[0]))
		})
	}
}

func TestRecordError_DomainError(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "production_order", "reserve")
	telemetry.RecordError(span, shared.ErrInsufficientStock)
	span.End()

	ended := sr.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, shared.ErrInsufficientStock.Error(), ended[0].Status().Description)
	require.Len(t, ended[0].Events(), 1)
	assert.Equal(t, "exception", ended[0].Events()[0].Name)
}

func TestSpanHelpers_NilSafe(t *testing.T) {
	sr := setupTestTracer(t)

	assert.NotPanics(t, func() {
		telemetry.RecordError(nil, shared.ErrInsufficientStock)
		telemetry.SetOK(nil)
		telemetry.SetAttributes(nil, "k", "v")
		telemetry.SetAttribute(nil, "k", "v")
		telemetry.AddEvent(nil, "ignored")
	})

	_, span := telemetry.StartSpan(context.Background(), "production_order.consume")
	telemetry.RecordError(span, nil)
	span.End()

	require.Len(t, sr.Ended(), 1)
	assert.Equal(t, codes.Unset, sr.Ended()[0].Status().Code)
	assert.Empty(t, sr.Ended()[0].Events())
}

func TestSetOKAndAddEvent(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "production_order", "reserve")
	telemetry.AddEvent(span, "allocation_planned", telemetry.SpanAttrItemCode, "RM-BOLT", "warehouses", 2)
	telemetry.SetAttribute(span, "strategy", "GREEDY")
	telemetry.SetOK(span)
	span.End()

	ended := sr.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Ok, ended[0].Status().Code)
	assert.Equal(t, "GREEDY", spanAttrs(ended[0])["strategy"].AsString())

	require.Len(t, ended[0].Events(), 1)
	event := ended[0].Events()[0]
	assert.Equal(t, "allocation_planned", event.Name)
	assert.Contains(t, event.Attributes, attribute.String(telemetry.SpanAttrItemCode, "RM-BOLT"))
	assert.Contains(t, event.Attributes, attribute.Int("warehouses", 2))
}

func TestNestedSpans_ShareTrace(t *testing.T) {
	sr := setupTestTracer(t)

	ctx, parent := telemetry.StartServiceSpan(context.Background(), "production_order", "reserve")
	parentTrace := telemetry.GetTraceID(ctx)
	parentSpanID := telemetry.GetSpanID(ctx)

	childCtx, child := telemetry.StartServiceSpan(ctx, "stock_ledger", "reserve")
	assert.Equal(t, parentTrace, telemetry.GetTraceID(childCtx))
	assert.NotEqual(t, parentSpanID, telemetry.GetSpanID(childCtx))
	assert.Equal(t, child, telemetry.SpanFromContext(childCtx))
	child.End()
	parent.End()

	ended := sr.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, "stock_ledger.reserve", ended[0].Name())
	assert.Equal(t, parentSpanID, ended[0].Parent().SpanID().String())
	assert.Len(t, parentTrace, 32)
	assert.Len(t, parentSpanID, 16)
}

func TestTraceIDs_EmptyWithoutSpan(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, telemetry.GetTraceID(ctx))
	assert.Empty(t, telemetry.GetSpanID(ctx))
}

func TestContextWithSpan(t *testing.T) {
	setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "production_order.receive")
	defer span.End()

	ctx := telemetry.ContextWithSpan(context.Background(), span)
	assert.Equal(t, span, telemetry.SpanFromContext(ctx))
	assert.Equal(t, span.SpanContext().TraceID().String(), telemetry.GetTraceID(ctx))
}
