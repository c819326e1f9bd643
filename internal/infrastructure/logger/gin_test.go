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

// serveLogged runs a single request through GinMiddleware and returns the
// recorded log entries plus the response recorder.
func serveLogged(t *testing.T, level zapcore.Level, path string, handler gin.HandlerFunc, pre ...gin.HandlerFunc) (*observer.ObservedLogs, *httptest.ResponseRecorder) {
	t.Helper()

	core, recorded := observer.New(level)
	engine := gin.New()
	for _, mw := range pre {
		engine.Use(mw)
	}
	engine.Use(GinMiddleware(zap.New(core)))
	engine.GET("/probe", handler)

	w := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodGet, path, nil)
	require.NoError(t, err)
	engine.ServeHTTP(w, req)
	return recorded, w
}

func requestLog(t *testing.T, recorded *observer.ObservedLogs) observer.LoggedEntry {
	t.Helper()
	entries := recorded.FilterMessage("HTTP Request").All()
	require.Len(t, entries, 1)
	return entries[0]
}

func logField(entry observer.LoggedEntry, key string) (zapcore.Field, bool) {
	for _, f := range entry.Context {
		if f.Key == key {
			return f, true
		}
	}
	return zapcore.Field{}, false
}

func TestGinMiddlewareLogsAtInfoForSuccess(t *testing.T) {
	recorded, w := serveLogged(t, zapcore.InfoLevel, "/probe", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	assert.Equal(t, http.StatusOK, w.Code)
	entry := requestLog(t, recorded)
	assert.Equal(t, zapcore.InfoLevel, entry.Level)

	status, ok := logField(entry, "status")
	require.True(t, ok)
	assert.Equal(t, int64(http.StatusOK), status.Integer)
	_, ok = logField(entry, "latency")
	assert.True(t, ok)
	_, ok = logField(entry, "client_ip")
	assert.True(t, ok)
}

func TestGinMiddlewareCarriesRequestID(t *testing.T) {
	recorded, _ := serveLogged(t, zapcore.InfoLevel, "/probe",
		func(c *gin.Context) { c.Status(http.StatusOK) },
		func(c *gin.Context) {
			c.Set(requestIDContextKey, "req-123")
			c.Next()
		},
	)

	entry := requestLog(t, recorded)
	f, ok := logField(entry, "request_id")
	require.True(t, ok)
	assert.Equal(t, "req-123", f.String)
}

func TestGinMiddlewareWarnsOnClientError(t *testing.T) {
	recorded, _ := serveLogged(t, zapcore.WarnLevel, "/probe", func(c *gin.Context) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
	})

	entry := requestLog(t, recorded)
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
}

func TestGinMiddlewareErrorsOnServerError(t *testing.T) {
	recorded, _ := serveLogged(t, zapcore.InfoLevel, "/probe", func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "boom"})
	})

	entry := requestLog(t, recorded)
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
}

func TestGinMiddlewareIncludesQueryString(t *testing.T) {
	recorded, _ := serveLogged(t, zapcore.InfoLevel, "/probe?page=2&status=POSTED", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	entry := requestLog(t, recorded)
	f, ok := logField(entry, "query")
	require.True(t, ok)
	assert.Equal(t, "page=2&status=POSTED", f.String)
}

func TestRecoveryLogsPanicAndReturns500(t *testing.T) {
	core, recorded := observer.New(zapcore.ErrorLevel)
	engine := gin.New()
	engine.Use(Recovery(zap.New(core)))
	engine.GET("/panic", func(c *gin.Context) {
		panic("handler exploded")
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/panic", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	entries := recorded.FilterMessage("Panic recovered").All()
	require.Len(t, entries, 1)
}

func TestGetGinLogger(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	// Without the middleware a nop logger comes back, never nil
	assert.NotNil(t, GetGinLogger(c))

	planted := zap.NewNop().Named("request")
	c.Set(loggerContextKey, planted)
	assert.Same(t, planted, GetGinLogger(c))
}
