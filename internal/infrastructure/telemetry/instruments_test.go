package telemetry_test

import (
	"context"
	"testing"

	"github.com/erp/production/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newManualMeter returns a meter whose instruments are read on demand
func newManualMeter(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return reader, provider
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestMetricHelpers(t *testing.T) {
	reader, provider := newManualMeter(t)
	meter := provider.Meter("helpers")
	ctx := context.Background()

	counter, err := telemetry.NewCounter(meter, "c_total", "counter", "{op}")
	require.NoError(t, err)
	counter.Inc(ctx, telemetry.AttrOperation.String("reserve"))
	counter.Add(ctx, 2, telemetry.AttrOperation.String("reserve"))

	floats, err := telemetry.NewFloatCounter(meter, "f_total", "float counter", "{unit}")
	require.NoError(t, err)
	floats.Add(ctx, 1.5)
	floats.Add(ctx, -4)

	hist, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:       "h_seconds",
		Unit:       "s",
		Boundaries: telemetry.DBDurationBuckets,
	})
	require.NoError(t, err)
	hist.Record(ctx, 0.02)

	got := collect(t, reader)

	sum := got["c_total"].Data.(metricdata.Sum[int64])
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(3), sum.DataPoints[0].Value)

	fsum := got["f_total"].Data.(metricdata.Sum[float64])
	require.Len(t, fsum.DataPoints, 1)
	assert.InDelta(t, 1.5, fsum.DataPoints[0].Value, 1e-9, "negative adds are dropped")

	h := got["h_seconds"].Data.(metricdata.Histogram[float64])
	require.Len(t, h.DataPoints, 1)
	assert.Equal(t, telemetry.DBDurationBuckets, h.DataPoints[0].Bounds)
}
