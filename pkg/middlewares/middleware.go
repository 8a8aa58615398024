package middlewares

import (
	"strconv"
	"time"

	"tasktracker/internal/core/telemetry"
	"tasktracker/pkg/config"
	"tasktracker/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func MetricsMiddleware(metrics *telemetry.AppMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		metrics.IncrementActiveConnections(c.Request.Context())
		defer metrics.DecrementActiveConnections(c.Request.Context())

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		metrics.RecordRequest(
			c.Request.Context(),
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start),
		)
	}
}

// SetupGinMiddleware installs the cross-cutting middlewares in order: HTTPS
// redirect, tracing, request logging, rate limiting and metrics.
func SetupGinMiddleware(router *gin.Engine, cfg *config.AppConfig, metrics *telemetry.AppMetrics, l *logger.LokiLogger) {
	httpsEnforcer := config.NewHTTPSEnforcer(cfg, l.Zap())
	router.Use(httpsEnforcer.HTTPSMiddleware())

	router.Use(otelgin.Middleware(cfg.OTel.ServiceName))

	router.Use(LoggingMiddleware(l))

	if cfg.RateLimitEnabled {
		rateLimiter := config.NewRateLimiter(cfg, l.Zap(), metrics)
		router.Use(rateLimiter.RateLimitMiddleware())
	}

	if metrics != nil {
		router.Use(MetricsMiddleware(metrics))
	}
}
