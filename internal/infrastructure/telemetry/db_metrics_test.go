package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func newReader(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return reader, provider
}

func collected(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumByAttr(t *testing.T, agg metricdata.Aggregation, key attribute.Key) map[string]int64 {
	t.Helper()
	sum, ok := agg.(metricdata.Sum[int64])
	require.True(t, ok)
	out := map[string]int64{}
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(key)
		out[v.AsString()] = dp.Value
	}
	return out
}

func TestDefaultDBMetricsConfig(t *testing.T) {
	cfg := DefaultDBMetricsConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThreshold)

	_, err := NewDBMetrics(nil, cfg, nil)
	assert.Error(t, err)
}

func TestDBMetrics_RecordQuery(t *testing.T) {
	reader, provider := newReader(t)
	ctx := context.Background()

	m, err := NewDBMetrics(provider.Meter("db"), DBMetricsConfig{SlowQueryThreshold: 100 * time.Millisecond}, zap.NewNop())
	require.NoError(t, err)

	lock := `SELECT * FROM "stock_balances" WHERE item_code = $1 AND warehouse_code = $2 FOR UPDATE`
	m.RecordQuery(ctx, `select * from "stock_balances"`, "stock_balances", 5*time.Millisecond)
	m.RecordQuery(ctx, lock, "stock_balances", 300*time.Millisecond)
	m.RecordQuery(ctx, "", "", 400*time.Millisecond)

	got := collected(t, reader)
	assert.Equal(t, map[string]int64{"SELECT": 2, "UNKNOWN": 1}, sumByAttr(t, got["db_query_total"], AttrDBOperation))
	assert.Equal(t, map[string]int64{"stock_balances": 1, "unknown": 1}, sumByAttr(t, got["db_slow_query_total"], AttrDBTable))
	assert.Equal(t, map[string]int64{"stock_balances": 1}, sumByAttr(t, got["db_row_lock_total"], AttrDBTable))
}

func TestDBMetrics_ObservePool(t *testing.T) {
	reader, provider := newReader(t)

	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()
	mockDB.SetMaxOpenConns(8)

	m, err := NewDBMetrics(provider.Meter("pool"), DefaultDBMetricsConfig(), zap.NewNop())
	require.NoError(t, err)
	assert.Error(t, m.ObservePool(nil))

	require.NoError(t, m.ObservePool(mockDB))
	got := collected(t, reader)
	maxConns := got["db_pool_connections_max"].(metricdata.Gauge[int64])
	require.Len(t, maxConns.DataPoints, 1)
	assert.Equal(t, int64(8), maxConns.DataPoints[0].Value)
	pool := got["db_pool_connections"].(metricdata.Gauge[int64])
	assert.Len(t, pool.DataPoints, 3)

	m.Stop()
	m.Stop()
	if agg, ok := collected(t, reader)["db_pool_connections_max"]; ok {
		assert.Empty(t, agg.(metricdata.Gauge[int64]).DataPoints)
	}
}

func TestDBMetricsPlugin_SQLite(t *testing.T) {
	reader, provider := newReader(t)
	db := setupTestDB(t)

	m, err := NewDBMetrics(provider.Meter("db"), DefaultDBMetricsConfig(), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, db.Use(NewDBMetricsPlugin(m, nil)))

	require.NoError(t, db.Create(&balanceRow{ItemCode: "C", WarehouseCode: "WA", OnHand: "1"}).Error)
	var rows []balanceRow
	require.NoError(t, db.Find(&rows).Error)
	require.NoError(t, db.Exec("UPDATE balance_rows SET on_hand = ?", "2").Error)

	ops := sumByAttr(t, collected(t, reader)["db_query_total"], AttrDBOperation)
	assert.Equal(t, int64(1), ops["INSERT"])
	assert.Equal(t, int64(1), ops["SELECT"])
	assert.Equal(t, int64(1), ops["UPDATE"])
}

func TestDetectOperationType(t *testing.T) {
	cases := map[string]string{
		`SELECT * FROM "stock_balances" FOR UPDATE`: "SELECT",
		"  insert into ledger_entries values (1)":    "INSERT",
		"UPDATE production_orders SET version = 2":   "UPDATE",
		"DELETE FROM bom_lines":                      "DELETE",
		"BEGIN IMMEDIATE":                            "OTHER",
	}
	for query, want := range cases {
		assert.Equal(t, want, detectOperationType(query), query)
	}
}

func TestRegisterDBMetrics_Disabled(t *testing.T) {
	db := setupTestDB(t)

	m, err := RegisterDBMetrics(db, nil, DBMetricsConfig{Enabled: false}, nil)
	assert.NoError(t, err)
	assert.Nil(t, m)

	mp, err := NewMeterProvider(context.Background(), MetricsConfig{}, zap.NewNop())
	require.NoError(t, err)
	m, err = RegisterDBMetrics(db, mp, DefaultDBMetricsConfig(), zap.NewNop())
	assert.NoError(t, err)
	assert.Nil(t, m)
}
