package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"tasktracker/pkg/logger"
)

func serveLogged(t *testing.T, traced bool) observer.LoggedEntry {
	t.Helper()

	core, logs := observer.New(zapcore.InfoLevel)

	gin.SetMode(gin.TestMode)
	router := gin.New()

	if traced {
		router.Use(otelgin.Middleware("tasktracker"))
	}

	router.Use(LoggingMiddleware(logger.FromZap(zap.New(core), "tasktracker")))
	router.GET("/tasks", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/tasks?done=true", nil))

	entries := logs.FilterMessage("HTTP Request").All()
	require.Len(t, entries, 1)

	return entries[0]
}

func TestLoggingMiddleware_AddsTraceFields(t *testing.T) {
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider())
	defer otel.SetTracerProvider(previous)

	fields := serveLogged(t, true).ContextMap()

	assert.Equal(t, "/tasks?done=true", fields["path"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
	assert.Len(t, fields["trace_id"], 32)
	assert.Len(t, fields["span_id"], 16)
}

func TestLoggingMiddleware_WithoutSpan(t *testing.T) {
	fields := serveLogged(t, false).ContextMap()

	assert.Equal(t, "GET", fields["method"])
	assert.NotContains(t, fields, "trace_id")
	assert.NotContains(t, fields, "span_id")
}
