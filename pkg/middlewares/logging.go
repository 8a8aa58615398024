package middlewares

import (
	"time"

	ct "tasktracker/pkg/context"
	"tasktracker/pkg/logger"
	"tasktracker/pkg/tracing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func LoggingMiddleware(l *logger.LokiLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		if raw != "" {
			path = path + "?" + raw
		}

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
			zap.String("request_id", ct.RequestIDFrom(c.Request.Context())),
		}

		if traceID := tracing.GetTraceID(c.Request.Context()); traceID != "" {
			fields = append(fields,
				zap.String("trace_id", traceID),
				zap.String("span_id", tracing.GetSpanID(c.Request.Context())),
			)
		}

		if c.Writer.Status() >= 500 {
			l.Error(c.Request.Context(), "HTTP Request", fields...)
			return
		}

		l.Info(c.Request.Context(), "HTTP Request", fields...)
	}
}
