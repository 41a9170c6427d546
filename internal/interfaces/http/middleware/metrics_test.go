package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/production/internal/domain/shared"
	"github.com/erp/production/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func setupTestMeter(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = mp.Shutdown(context.Background())
	})
	return mp, reader
}

func collectByName(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestHTTPMetricsWithMeter(t *testing.T) {
	mp, reader := setupTestMeter(t)

	router := gin.New()
	router.Use(HTTPMetricsWithMeter(mp.Meter("test"), zap.NewNop()))
	router.GET("/production-orders/:orderNo", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for _, orderNo := range []string{"P1", "P2", "P3"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/production-orders/"+orderNo, nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	metrics := collectByName(t, reader)

	total, ok := metrics["http_server_request_total"]
	require.True(t, ok)
	sum := total.Data.(metricdata.Sum[int64])
	require.Len(t, sum.DataPoints, 1, "order numbers must not create label sets")
	assert.Equal(t, int64(3), sum.DataPoints[0].Value)
	route, _ := sum.DataPoints[0].Attributes.Value(telemetry.AttrHTTPRoute)
	assert.Equal(t, "/production-orders/:orderNo", route.AsString())

	duration, ok := metrics["http_server_request_duration_seconds"]
	require.True(t, ok)
	hist := duration.Data.(metricdata.Histogram[float64])
	assert.Equal(t, uint64(3), hist.DataPoints[0].Count)

	active := metrics["http_server_active_requests"].Data.(metricdata.Sum[int64])
	assert.Equal(t, int64(0), active.DataPoints[0].Value)
}

func TestHTTPMetricsWithMeter_CountsDomainErrors(t *testing.T) {
	mp, reader := setupTestMeter(t)

	router := gin.New()
	router.Use(HTTPMetricsWithMeter(mp.Meter("test"), zap.NewNop()))
	router.POST("/production-orders/:orderNo/reserve", func(c *gin.Context) {
		_ = c.Error(shared.ErrInsufficientStock.WithDetail("item_code", "RM-1"))
		c.Status(http.StatusUnprocessableEntity)
	})
	router.GET("/plain-failure", func(c *gin.Context) {
		_ = c.Error(errors.New("disk full"))
		c.Status(http.StatusInternalServerError)
	})

	for _, path := range []string{"/production-orders/P1/reserve", "/production-orders/P2/reserve"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, path, nil))
	}
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/plain-failure", nil))

	metrics := collectByName(t, reader)
	errs, ok := metrics["http_server_domain_error_total"]
	require.True(t, ok)
	sum := errs.Data.(metricdata.Sum[int64])
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(2), sum.DataPoints[0].Value)
	code, _ := sum.DataPoints[0].Attributes.Value(telemetry.AttrErrorCode)
	assert.Equal(t, shared.ErrInsufficientStock.Code, code.AsString())
}

func TestHTTPMetrics_DisabledIsPassThrough(t *testing.T) {
	router := gin.New()
	router.Use(HTTPMetrics(HTTPMetricsConfig{Enabled: true}))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusTeapot)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
}

func TestRoutePattern_Unmatched(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/nowhere", nil)
	assert.Equal(t, "unknown", routePattern(c))
}
