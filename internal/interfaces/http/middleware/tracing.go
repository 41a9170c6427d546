// Package middleware provides the gin middleware of the production HTTP API.
package middleware

import (
	"net/http"

	"github.com/erp/production/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Limits on header values copied into span attributes.
const (
	MaxRequestIDLength = 128
	MaxActorIDLength   = 64
)

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// DefaultTracingConfig returns default tracing configuration.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName: "erp-production",
		Enabled:     true,
	}
}

// Tracing returns OpenTelemetry tracing middleware with default configuration.
func Tracing() gin.HandlerFunc {
	return TracingWithConfig(DefaultTracingConfig())
}

// TracingWithConfig wraps otelgin. Pair it with TracingAttributeInjector to
// tag the server span with request_id, actor_id and order_no.
//
// The span name follows "HTTP METHOD route_pattern", e.g.
// "POST /api/v1/production-orders/:orderNo/reserve".
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return passThrough
	}

	return otelgin.Middleware(cfg.ServiceName)
}

// TracingAttributeInjector copies request identity onto the active span.
// It must run after Tracing so the span exists.
func TracingAttributeInjector() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			enrichSpanWithAttributes(c, span)
		}
		c.Next()
	}
}

func enrichSpanWithAttributes(c *gin.Context, span trace.Span) {
	if requestID := getRequestID(c); requestID != "" {
		span.SetAttributes(attribute.String("request_id", requestID))
	}
	if actorID := getActorID(c); actorID != "" {
		span.SetAttributes(attribute.String("actor_id", actorID))
	}
	if orderNo := c.Param("orderNo"); orderNo != "" {
		span.SetAttributes(attribute.String("order_no", orderNo))
	}
}

// getRequestID retrieves the request ID from the gin context or header.
func getRequestID(c *gin.Context) string {
	if id := c.GetString(logger.GinRequestIDKey); id != "" {
		return id
	}
	return truncate(c.GetHeader(RequestIDHeader), MaxRequestIDLength)
}

func getActorID(c *gin.Context) string {
	return truncate(c.GetHeader(logger.ActorIDHeader), MaxActorIDLength)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// SpanErrorMarker marks the span as failed for 5xx responses and records
// the status code of every 4xx and 5xx response.
// Place it after Tracing.
//
// otelgin fails the span whenever c.Errors is non-empty, and handlers attach
// business rejections there too. Below 500 the span is set to Ok, which the
// SDK treats as final, so a rejected reservation is not reported as a fault.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}

		statusCode := c.Writer.Status()
		if statusCode >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(statusCode))
		} else if len(c.Errors) > 0 {
			span.SetStatus(codes.Ok, "")
		}
		if statusCode < http.StatusBadRequest {
			return
		}
		span.SetAttributes(attribute.Int("http.status_code", statusCode))
		if len(c.Errors) > 0 {
			span.SetAttributes(attribute.String("error.message", c.Errors.Last().Error()))
		}
	}
}
