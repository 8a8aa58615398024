package config

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"tasktracker/internal/core/telemetry"
	. "tasktracker/pkg"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

type RateLimitEndpointConfig struct {
	Requests int
	Window   time.Duration
	KeyFunc  func(*gin.Context) string
}

type RateLimiter struct {
	cache   *cache.Cache
	config  map[string]RateLimitEndpointConfig
	logger  *zap.Logger
	metrics *telemetry.AppMetrics
	mutex   sync.RWMutex
}

type RateLimitEntry struct {
	Count     int
	ResetTime time.Time
}

// NewRateLimiter builds a limiter from the per-route budgets in cfg. Every
// budget is keyed by client IP since requests carry no identity.
func NewRateLimiter(cfg *AppConfig, logger *zap.Logger, metrics *telemetry.AppMetrics) *RateLimiter {
	c := cache.New(5*time.Minute, 10*time.Minute)

	budgets := cfg.RateLimitConfigs
	if budgets == nil {
		budgets = defaultRateLimits()
	}

	configs := make(map[string]RateLimitEndpointConfig, len(budgets))
	for route, budget := range budgets {
		configs[route] = RateLimitEndpointConfig{
			Requests: budget.Requests,
			Window:   budget.Window,
			KeyFunc:  GetClientIP,
		}
	}

	if _, ok := configs["default"]; !ok {
		configs["default"] = RateLimitEndpointConfig{
			Requests: 60,
			Window:   time.Minute,
			KeyFunc:  GetClientIP,
		}
	}

	return &RateLimiter{
		cache:   c,
		config:  configs,
		logger:  logger,
		metrics: metrics,
	}
}

func (rl *RateLimiter) RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = normalizePath(c.Request.URL.Path)
		}

		methodPath := c.Request.Method + " " + path

		rl.mutex.RLock()
		config, exists := rl.config[methodPath]
		if !exists {
			config, exists = rl.config[path]
			if !exists {
				config = rl.config["default"]
			}
		}
		rl.mutex.RUnlock()

		key := rl.generateKey(c, methodPath, config.KeyFunc)

		rl.logger.Debug("Rate limit check",
			zap.String("methodPath", methodPath),
			zap.String("key", key),
			zap.Int("limit", config.Requests),
			zap.Duration("window", config.Window))

		allowed, remaining, resetTime := rl.checkRateLimit(key, config)

		c.Header("X-RateLimit-Limit", strconv.Itoa(config.Requests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

		if !allowed {
			if rl.metrics != nil {
				rl.metrics.RecordRateLimitHit(c.Request.Context(), path)
			}

			rl.logger.Warn("Rate limit exceeded",
				zap.String("key", key),
				zap.String("path", path),
				zap.Int("limit", config.Requests),
				zap.Duration("window", config.Window))

			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"message":     fmt.Sprintf("Too many requests. Limit: %d per %v", config.Requests, config.Window),
				"retry_after": int(time.Until(resetTime).Seconds()),
			})
			c.Abort()
			return
		}

		if rl.metrics != nil {
			rl.metrics.RecordRateLimitAllowed(c.Request.Context(), path)
		}

		c.Next()
	}
}

func (rl *RateLimiter) checkRateLimit(key string, config RateLimitEndpointConfig) (bool, int, time.Time) {
	now := time.Now()

	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	if entry, found := rl.cache.Get(key); found {
		rateLimitEntry := entry.(RateLimitEntry)

		if now.After(rateLimitEntry.ResetTime) {
			resetTime := now.Add(config.Window)
			rl.cache.Set(key, RateLimitEntry{Count: 1, ResetTime: resetTime}, config.Window)
			return true, config.Requests - 1, resetTime
		}

		if rateLimitEntry.Count >= config.Requests {
			return false, 0, rateLimitEntry.ResetTime
		}

		rateLimitEntry.Count++
		rl.cache.Set(key, rateLimitEntry, time.Until(rateLimitEntry.ResetTime))

		return true, config.Requests - rateLimitEntry.Count, rateLimitEntry.ResetTime
	}

	resetTime := now.Add(config.Window)
	rl.cache.Set(key, RateLimitEntry{Count: 1, ResetTime: resetTime}, config.Window)

	return true, config.Requests - 1, resetTime
}

// normalizePath maps unmatched /tasks/<id>/... paths onto their route
// pattern so they share a bucket.
func normalizePath(path string) string {
	parts := strings.Split(path, "/")

	if len(parts) >= 3 && parts[1] == "tasks" {
		parts[2] = ":id"
		return strings.Join(parts, "/")
	}

	return path
}

func (rl *RateLimiter) generateKey(c *gin.Context, path string, keyFunc func(*gin.Context) string) string {
	return fmt.Sprintf("rate_limit:%s:%s", path, keyFunc(c))
}

func (rl *RateLimiter) SetConfig(path string, config RateLimitEndpointConfig) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	rl.config[path] = config
}

func (rl *RateLimiter) GetStats() map[string]interface{} {
	rl.mutex.RLock()
	defer rl.mutex.RUnlock()

	return map[string]interface{}{
		"active_entries": rl.cache.ItemCount(),
		"configs":        len(rl.config),
	}
}
