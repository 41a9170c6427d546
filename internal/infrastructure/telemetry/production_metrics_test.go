package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/erp/production/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func TestNewProductionMetrics_NilMeter(t *testing.T) {
	m, err := telemetry.NewProductionMetrics(telemetry.ProductionMetricsConfig{Logger: zap.NewNop()})
	assert.Nil(t, m)
	assert.ErrorIs(t, err, telemetry.ErrMeterNil)
	assert.Equal(t, "NewProductionMetrics: meter cannot be nil", err.Error())
}

func TestProductionMetrics(t *testing.T) {
	reader, provider := newManualMeter(t)
	ctx := context.Background()

	m, err := telemetry.NewProductionMetrics(telemetry.ProductionMetricsConfig{Meter: provider.Meter("production")})
	require.NoError(t, err)

	m.RecordTransition(ctx, "reserve", "OK", 40*time.Millisecond)
	m.RecordTransition(ctx, "reserve", "INSUFFICIENT_STOCK", 10*time.Millisecond)
	m.RecordTransition(ctx, "consume", "OK", 20*time.Millisecond)
	m.RecordMovement(ctx, "RESERVE", decimal.RequireFromString("6.5"))
	m.RecordMovement(ctx, "RESERVE", decimal.RequireFromString("3.5"))
	m.RecordMovement(ctx, "CONSUME", decimal.RequireFromString("-1"))

	got := collect(t, reader)

	transitions := got["production_order_transitions_total"].Data.(metricdata.Sum[int64])
	assert.Len(t, transitions.DataPoints, 3)
	for _, dp := range transitions.DataPoints {
		op, _ := dp.Attributes.Value(attribute.Key("operation"))
		outcome, _ := dp.Attributes.Value(attribute.Key("outcome"))
		assert.Equal(t, int64(1), dp.Value, "%s/%s", op.AsString(), outcome.AsString())
	}

	duration := got["production_order_transition_duration_seconds"].Data.(metricdata.Histogram[float64])
	var reserveCount uint64
	for _, dp := range duration.DataPoints {
		if op, _ := dp.Attributes.Value(attribute.Key("operation")); op.AsString() == "reserve" {
			reserveCount = dp.Count
		}
	}
	assert.Equal(t, uint64(2), reserveCount)

	movements := got["stock_movements_total"].Data.(metricdata.Sum[int64])
	assert.Len(t, movements.DataPoints, 2)

	quantity := got["stock_movement_quantity_total"].Data.(metricdata.Sum[float64])
	require.Len(t, quantity.DataPoints, 1, "negative quantities are not summed")
	assert.InDelta(t, 10.0, quantity.DataPoints[0].Value, 1e-9)
}
