package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTestTracer sets up a test tracer provider and returns the span recorder.
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	t.Cleanup(func() {
		_ = tp.Shutdown(t.Context())
	})

	return sr
}

func findSpan(t *testing.T, sr *tracetest.SpanRecorder, name string) sdktrace.ReadOnlySpan {
	t.Helper()
	for _, span := range sr.Ended() {
		if span.Name() == name {
			return span
		}
	}
	require.Failf(t, "span not found", "no ended span named %q", name)
	return nil
}

func spanAttr(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, attr := range span.Attributes() {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return attribute.Value{}, false
}

func tracedRouter(handler gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(RequestID())
	router.Use(TracingWithConfig(TracingConfig{Enabled: true, ServiceName: "test-service"}))
	router.Use(TracingAttributeInjector())
	router.Use(SpanErrorMarker())
	router.POST("/production-orders/:orderNo/reserve", handler)
	return router
}

func TestTracingWithConfig_Disabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sr := setupTestTracer(t)

	router := gin.New()
	router.Use(TracingWithConfig(TracingConfig{Enabled: false}))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/test", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, sr.Ended())
}

func TestTracing_SpanCarriesRequestIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sr := setupTestTracer(t)

	router := tracedRouter(func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "RESERVED"})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/production-orders/P20260401080000000/reserve", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	req.Header.Set("X-User-ID", "planner-7")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	span := findSpan(t, sr, "POST /production-orders/:orderNo/reserve")

	v, ok := spanAttr(span, "request_id")
	require.True(t, ok)
	assert.Equal(t, "req-123", v.AsString())

	v, ok = spanAttr(span, "actor_id")
	require.True(t, ok)
	assert.Equal(t, "planner-7", v.AsString())

	v, ok = spanAttr(span, "order_no")
	require.True(t, ok)
	assert.Equal(t, "P20260401080000000", v.AsString())
}

func TestSpanErrorMarker_BusinessRejectionKeepsStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sr := setupTestTracer(t)

	router := tracedRouter(func(c *gin.Context) {
		_ = c.Error(errors.New("insufficient stock"))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"success": false})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/production-orders/P1/reserve", nil)
	router.ServeHTTP(w, req)

	span := findSpan(t, sr, "POST /production-orders/:orderNo/reserve")
	assert.Equal(t, codes.Ok, span.Status().Code)

	v, ok := spanAttr(span, "http.status_code")
	require.True(t, ok)
	assert.Equal(t, int64(http.StatusUnprocessableEntity), v.AsInt64())

	v, ok = spanAttr(span, "error.message")
	require.True(t, ok)
	assert.Equal(t, "insufficient stock", v.AsString())
}

func TestSpanErrorMarker_ServerError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sr := setupTestTracer(t)

	router := tracedRouter(func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/production-orders/P1/reserve", nil)
	router.ServeHTTP(w, req)

	span := findSpan(t, sr, "POST /production-orders/:orderNo/reserve")
	assert.Equal(t, codes.Error, span.Status().Code)
}

func TestSpanErrorMarker_StatusByResponseClass(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		attach   bool
		expected codes.Code
	}{
		{"rejection with attached error", http.StatusConflict, true, codes.Ok},
		{"bad request without error", http.StatusBadRequest, false, codes.Unset},
		{"server error with attached error", http.StatusInternalServerError, true, codes.Error},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			sr := setupTestTracer(t)

			router := tracedRouter(func(c *gin.Context) {
				if tt.attach {
					_ = c.Error(errors.New("order already reserved"))
				}
				c.JSON(tt.status, gin.H{"success": false})
			})

			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodPost, "/production-orders/P1/reserve", nil)
			router.ServeHTTP(w, req)

			span := findSpan(t, sr, "POST /production-orders/:orderNo/reserve")
			assert.Equal(t, tt.expected, span.Status().Code)
		})
	}
}

func TestSpanErrorMarker_WithNoSpan(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(SpanErrorMarker())
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusBadRequest)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/test", nil)
	assert.NotPanics(t, func() { router.ServeHTTP(w, req) })
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("context wins over header", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Request.Header.Set(RequestIDHeader, "from-header")
		c.Set("request_id", "from-context")
		assert.Equal(t, "from-context", getRequestID(c))
	})

	t.Run("long header is truncated", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Request.Header.Set(RequestIDHeader, strings.Repeat("a", 500))
		assert.Len(t, getRequestID(c), MaxRequestIDLength)
	})
}

func TestGetActorID_Truncated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.Header.Set("X-User-ID", strings.Repeat("u", 100))
	assert.Len(t, getActorID(c), MaxActorIDLength)
}
