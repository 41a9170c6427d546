package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBMetricsConfig configures query and pool metrics.
type DBMetricsConfig struct {
	Enabled            bool
	SlowQueryThreshold time.Duration
}

// DefaultDBMetricsConfig enables metrics with a 200ms slow query threshold.
func DefaultDBMetricsConfig() DBMetricsConfig {
	return DBMetricsConfig{Enabled: true, SlowQueryThreshold: 200 * time.Millisecond}
}

// DBMetrics counts statements by verb, row locks and slow statements by
// table, and reports pool usage whenever the meter is collected.
type DBMetrics struct {
	queryTotal     *Counter
	queryDuration  *Histogram
	slowQueryTotal *Counter
	rowLockTotal   *Counter

	poolConnections metric.Int64ObservableGauge
	poolMax         metric.Int64ObservableGauge
	meter           metric.Meter

	slowThreshold time.Duration
	logger        *zap.Logger

	mu           sync.Mutex
	registration metric.Registration
}

// NewDBMetrics creates the instruments on meter.
func NewDBMetrics(meter metric.Meter, cfg DBMetricsConfig, logger *zap.Logger) (*DBMetrics, error) {
	if meter == nil {
		return nil, &MetricsError{Op: "NewDBMetrics", Err: "meter cannot be nil"}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = DefaultDBMetricsConfig().SlowQueryThreshold
	}

	m := &DBMetrics{meter: meter, slowThreshold: cfg.SlowQueryThreshold, logger: logger}
	var err error
	if m.queryTotal, err = NewCounter(meter, "db_query_total", "Database statements by verb", "{query}"); err != nil {
		return nil, err
	}
	if m.queryDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database statement latency",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.slowQueryTotal, err = NewCounter(meter, "db_slow_query_total", "Statements slower than the threshold by table", "{query}"); err != nil {
		return nil, err
	}
	if m.rowLockTotal, err = NewCounter(meter, "db_row_lock_total", "SELECT ... FOR UPDATE statements by table", "{query}"); err != nil {
		return nil, err
	}
	if m.poolConnections, err = meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Pool connections by state"), metric.WithUnit("{connection}")); err != nil {
		return nil, err
	}
	if m.poolMax, err = meter.Int64ObservableGauge("db_pool_connections_max",
		metric.WithDescription("Maximum open connections"), metric.WithUnit("{connection}")); err != nil {
		return nil, err
	}
	return m, nil
}

// ObservePool reports sqlDB.Stats() on every collection until Stop.
// Calling it again replaces the observed pool.
func (m *DBMetrics) ObservePool(sqlDB *sql.DB) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registration != nil {
		if err := m.registration.Unregister(); err != nil {
			return err
		}
		m.registration = nil
	}
	if sqlDB == nil {
		return errors.New("observe pool: nil *sql.DB")
	}

	reg, err := m.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := sqlDB.Stats()
		o.ObserveInt64(m.poolMax, int64(stats.MaxOpenConnections))
		o.ObserveInt64(m.poolConnections, int64(stats.Idle), metric.WithAttributes(AttrDBState.String("idle")))
		o.ObserveInt64(m.poolConnections, int64(stats.InUse), metric.WithAttributes(AttrDBState.String("in_use")))
		o.ObserveInt64(m.poolConnections, int64(stats.OpenConnections), metric.WithAttributes(AttrDBState.String("open")))
		return nil
	}, m.poolConnections, m.poolMax)
	if err != nil {
		return err
	}
	m.registration = reg
	return nil
}

// Stop stops pool observation. Safe to call more than once.
func (m *DBMetrics) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.registration == nil {
		return
	}
	if err := m.registration.Unregister(); err != nil {
		m.logger.Warn("Failed to unregister pool metrics callback", zap.Error(err))
	}
	m.registration = nil
}

// RecordQuery records one statement. Row locks are counted on top of the SELECT.
func (m *DBMetrics) RecordQuery(ctx context.Context, query, table string, duration time.Duration) {
	op := detectOperationType(query)
	if strings.TrimSpace(query) == "" {
		op = "UNKNOWN"
	}
	if table == "" {
		table = "unknown"
	}

	m.queryTotal.Inc(ctx, AttrDBOperation.String(op))
	m.queryDuration.RecordDuration(ctx, duration, AttrDBOperation.String(op))
	if isRowLockQuery(query) {
		m.rowLockTotal.Inc(ctx, AttrDBTable.String(table))
	}
	if duration > m.slowThreshold {
		m.slowQueryTotal.Inc(ctx, AttrDBTable.String(table))
	}
}

// detectOperationType reads the statement verb.
func detectOperationType(query string) string {
	query = strings.ToUpper(strings.TrimSpace(query))
	for _, verb := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(query, verb) {
			return verb
		}
	}
	return "OTHER"
}

func isRowLockQuery(query string) bool {
	return strings.Contains(strings.ToUpper(query), "FOR UPDATE")
}

// DBMetricsPlugin feeds every GORM statement into DBMetrics.
type DBMetricsPlugin struct {
	metrics *DBMetrics
	logger  *zap.Logger
}

func NewDBMetricsPlugin(metrics *DBMetrics, logger *zap.Logger) *DBMetricsPlugin {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DBMetricsPlugin{metrics: metrics, logger: logger}
}

func (p *DBMetricsPlugin) Name() string { return "db_metrics" }

// Initialize hooks the timing callbacks around every GORM processor.
func (p *DBMetricsPlugin) Initialize(db *gorm.DB) error {
	return registerAround(db, "db_metrics", markQueryStart, func(tx *gorm.DB) {
		ctx := tx.Statement.Context
		if ctx == nil {
			return
		}
		elapsed, _ := queryElapsed(ctx)
		p.metrics.RecordQuery(ctx, tx.Statement.SQL.String(), tx.Statement.Table, elapsed)
	})
}

// RegisterDBMetrics installs the plugin on db and starts observing its pool.
// It returns nil when metrics are disabled; callers Stop the result on shutdown.
func RegisterDBMetrics(db *gorm.DB, mp *MeterProvider, cfg DBMetricsConfig, logger *zap.Logger) (*DBMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled || mp == nil || !mp.IsEnabled() {
		logger.Debug("Database metrics disabled")
		return nil, nil
	}

	m, err := NewDBMetrics(mp.Meter("db.client"), cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := db.Use(NewDBMetricsPlugin(m, logger)); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := m.ObservePool(sqlDB); err != nil {
		return nil, err
	}

	logger.Info("Database metrics registered", zap.Duration("slow_query_threshold", cfg.SlowQueryThreshold))
	return m, nil
}
