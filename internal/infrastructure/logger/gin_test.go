package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newLoggedRouter(logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(GinRequestIDKey, "req-7")
		c.Next()
	})
	r.Use(Recovery(logger), GinMiddleware(logger))
	return r
}

func TestGinMiddleware(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel zapcore.Level
	}{
		{name: "success logs at info", status: http.StatusOK, wantLevel: zapcore.InfoLevel},
		{name: "client error logs at warn", status: http.StatusConflict, wantLevel: zapcore.WarnLevel},
		{name: "server error logs at error", status: http.StatusInternalServerError, wantLevel: zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, recorded := observer.New(zapcore.DebugLevel)
			r := newLoggedRouter(zap.New(core))
			r.POST("/production-orders/:orderNo/reserve", func(c *gin.Context) {
				c.Status(tt.status)
			})

			req := httptest.NewRequest(http.MethodPost, "/production-orders/P1/reserve?dry=1", nil)
			req.Header.Set(ActorIDHeader, "u-100")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, 1, recorded.Len())
			entry := recorded.All()[0]
			assert.Equal(t, tt.wantLevel, entry.Level)
			fields := entry.ContextMap()
			assert.Equal(t, int64(tt.status), fields["status"])
			assert.Equal(t, "req-7", fields["request_id"])
			assert.Equal(t, "u-100", fields["actor_id"])
			assert.Equal(t, "P1", fields["order_no"])
			assert.Equal(t, "/production-orders/:orderNo/reserve", fields["route"])
			assert.Equal(t, "dry=1", fields["query"])
		})
	}
}

func TestGinMiddleware_PropagatesContextLogger(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	r := newLoggedRouter(zap.New(core))
	r.GET("/production-orders/:orderNo", func(c *gin.Context) {
		L(c.Request.Context()).Info("from handler")
		assert.Equal(t, "P9", GetOrderNo(c.Request.Context()))
		assert.NotNil(t, GetGinLogger(c))
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/production-orders/P9", nil))

	require.Equal(t, 2, recorded.Len())
	handlerEntry := recorded.All()[0]
	assert.Equal(t, "from handler", handlerEntry.Message)
	assert.Equal(t, "req-7", handlerEntry.ContextMap()["request_id"])
}

func TestRecovery(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	r := newLoggedRouter(zap.New(core))
	r.GET("/panic", func(c *gin.Context) {
		panic("ledger exploded")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"ERR_INTERNAL"`)
	assert.Contains(t, w.Body.String(), `"request_id":"req-7"`)
	panics := recorded.FilterMessage("Panic recovered").All()
	require.Len(t, panics, 1)
	assert.Equal(t, "req-7", panics[0].ContextMap()["request_id"])
}

func TestGinMiddleware_SkipPaths(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	r := gin.New()
	r.Use(GinMiddleware(zap.New(core), SkipPaths("/health")))
	r.GET("/health", func(c *gin.Context) {
		L(c.Request.Context()).Debug("probe")
		c.Status(http.StatusOK)
	})
	r.GET("/stock/ledger", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/stock/ledger", nil))

	assert.Equal(t, 1, recorded.FilterMessage("probe").Len())
	access := recorded.FilterMessage("HTTP Request").All()
	require.Len(t, access, 1)
	assert.Equal(t, "/stock/ledger", access[0].ContextMap()["path"])
}

func TestGetGinLogger_NotSet(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.NotNil(t, GetGinLogger(c))
}
