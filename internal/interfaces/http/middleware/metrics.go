package middleware

import (
	"errors"
	"time"

	"github.com/erp/production/internal/domain/shared"
	"github.com/erp/production/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// HTTPMetricsConfig configures HTTPMetrics.
type HTTPMetricsConfig struct {
	MeterProvider *telemetry.MeterProvider
	Enabled       bool
	Logger        *zap.Logger
}

type httpMetrics struct {
	requests     *telemetry.Counter
	latency      *telemetry.Histogram
	inFlight     metric.Int64UpDownCounter
	domainErrors *telemetry.Counter
}

func newHTTPMetrics(meter metric.Meter) (m *httpMetrics, err error) {
	m = &httpMetrics{}
	if m.requests, err = telemetry.NewCounter(meter, "http_server_request_total",
		"HTTP requests by method, route and status", "{request}"); err != nil {
		return nil, err
	}
	if m.latency, err = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_duration_seconds",
		Description: "HTTP request latency",
		Unit:        "s",
		Boundaries:  telemetry.HTTPDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.inFlight, err = meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("Requests being served"), metric.WithUnit("{request}")); err != nil {
		return nil, err
	}
	if m.domainErrors, err = telemetry.NewCounter(meter, "http_server_domain_error_total",
		"Rejected requests by domain error code and route", "{request}"); err != nil {
		return nil, err
	}
	return m, nil
}

// HTTPMetrics is a pass-through unless cfg enables an active meter provider.
func HTTPMetrics(cfg HTTPMetricsConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.MeterProvider == nil || !cfg.MeterProvider.IsEnabled() {
		return passThrough
	}
	return HTTPMetricsWithMeter(cfg.MeterProvider.Meter("http.server"), cfg.Logger)
}

// HTTPMetricsWithMeter records request count, latency and in-flight requests
// on meter. Domain errors attached with c.Error are also counted by code.
func HTTPMetricsWithMeter(meter metric.Meter, logger *zap.Logger) gin.HandlerFunc {
	m, err := newHTTPMetrics(meter)
	if err != nil {
		if logger != nil {
			logger.Warn("HTTP metrics disabled", zap.Error(err))
		}
		return passThrough
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		m.inFlight.Add(ctx, 1)
		defer m.inFlight.Add(ctx, -1)

		c.Next()

		method := telemetry.AttrHTTPMethod.String(c.Request.Method)
		route := telemetry.AttrHTTPRoute.String(routePattern(c))
		m.requests.Inc(ctx, method, route, telemetry.AttrHTTPStatusCode.Int(c.Writer.Status()))
		m.latency.RecordDuration(ctx, time.Since(start), method, route)
		if code := domainErrorCode(c); code != "" {
			m.domainErrors.Inc(ctx, telemetry.AttrErrorCode.String(code), route)
		}
	}
}

func domainErrorCode(c *gin.Context) string {
	last := c.Errors.Last()
	if last == nil {
		return ""
	}
	var de *shared.DomainError
	if errors.As(last.Err, &de) {
		return de.Code
	}
	return ""
}

// routePattern keeps order numbers out of metric labels.
func routePattern(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unknown"
}

func passThrough(c *gin.Context) {
	c.Next()
}
