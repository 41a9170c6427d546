package telemetry

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ProductionMetrics records order transitions and stock movements.
type ProductionMetrics struct {
	transitions        *Counter
	transitionDuration *Histogram
	movements          *Counter
	movedQuantity      *FloatCounter
	logger             *zap.Logger
}

// ProductionMetricsConfig holds configuration for ProductionMetrics.
type ProductionMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewProductionMetrics creates the order and movement instruments on the given meter.
func NewProductionMetrics(cfg ProductionMetricsConfig) (*ProductionMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	transitions, err := NewCounter(cfg.Meter,
		"production_order_transitions_total",
		"Production order operations by outcome",
		"{operation}",
	)
	if err != nil {
		return nil, err
	}

	transitionDuration, err := NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "production_order_transition_duration_seconds",
		Description: "Time spent in a production order operation",
		Unit:        "s",
		Boundaries:  TransitionDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	movements, err := NewCounter(cfg.Meter,
		"stock_movements_total",
		"Ledger movements posted by movement type",
		"{movement}",
	)
	if err != nil {
		return nil, err
	}

	movedQuantity, err := NewFloatCounter(cfg.Meter,
		"stock_movement_quantity_total",
		"Quantity moved through the ledger by movement type",
		"{unit}",
	)
	if err != nil {
		return nil, err
	}

	return &ProductionMetrics{
		transitions:        transitions,
		transitionDuration: transitionDuration,
		movements:          movements,
		movedQuantity:      movedQuantity,
		logger:             logger,
	}, nil
}

// RecordTransition counts an operation and its latency. Outcome is "OK" or an error code.
func (m *ProductionMetrics) RecordTransition(ctx context.Context, operation, outcome string, elapsed time.Duration) {
	m.transitions.Inc(ctx, AttrOperation.String(operation), AttrOutcome.String(outcome))
	m.transitionDuration.RecordDuration(ctx, elapsed, AttrOperation.String(operation))
}

// RecordMovement counts one ledger movement and its quantity.
func (m *ProductionMetrics) RecordMovement(ctx context.Context, movementType string, quantity decimal.Decimal) {
	m.movements.Inc(ctx, AttrMovementType.String(movementType))
	if quantity.IsNegative() {
		m.logger.Warn("negative movement quantity not recorded",
			zap.String("movement_type", movementType),
			zap.String("quantity", quantity.String()),
		)
		return
	}
	m.movedQuantity.Add(ctx, quantity.InexactFloat64(), AttrMovementType.String(movementType))
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewProductionMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
