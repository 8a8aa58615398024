package config

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"tasktracker/internal/core/telemetry"
	. "tasktracker/pkg"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func newTestRateLimiter() *RateLimiter {
	metrics := telemetry.NewAppMetrics(prometheus.NewRegistry())
	return NewRateLimiter(GetDefaultConfig(), zap.NewNop(), metrics)
}

func TestNewRateLimiter(t *testing.T) {
	RegisterTestingT(t)
	rl := newTestRateLimiter()

	Expect(rl).ToNot(BeNil())
	Expect(rl.cache).ToNot(BeNil())
	Expect(rl.config).To(HaveKey("POST /tasks"))
	Expect(rl.config).To(HaveKey("default"))
	Expect(rl.config["POST /tasks"].KeyFunc).ToNot(BeNil())
}

func TestRateLimitMiddleware_AllowedRequests(t *testing.T) {
	RegisterTestingT(t)
	rl := newTestRateLimiter()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(rl.RateLimitMiddleware())

	router.GET("/test", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/test", nil)
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(200))
		Expect(w.Header().Get("X-RateLimit-Limit")).To(Equal("60"))
		Expect(w.Header().Get("X-RateLimit-Remaining")).To(Equal(strconv.Itoa(59 - i)))
	}
}

func TestRateLimitMiddleware_ExceedLimit(t *testing.T) {
	RegisterTestingT(t)
	rl := newTestRateLimiter()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(rl.RateLimitMiddleware())

	router.GET("/test", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	for i := 0; i < 65; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/test", nil)
		router.ServeHTTP(w, req)

		if i < 60 {
			Expect(w.Code).To(Equal(200))
		} else {
			Expect(w.Code).To(Equal(429))
		}
	}
}

func TestRateLimitMiddleware_RouteBudgets(t *testing.T) {
	RegisterTestingT(t)
	rl := newTestRateLimiter()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(rl.RateLimitMiddleware())

	router.POST("/tasks", func(c *gin.Context) {
		c.JSON(201, gin.H{})
	})
	router.PUT("/tasks/:id/done", func(c *gin.Context) {
		c.JSON(200, gin.H{})
	})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/tasks", strings.NewReader(`{"title":"test"}`))
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(201))
		Expect(w.Header().Get("X-RateLimit-Remaining")).To(Equal(strconv.Itoa(19 - i)))
	}

	// different ids share the route bucket
	for i, id := range []string{"1", "2", "3"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("PUT", "/tasks/"+id+"/done", nil)
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(200))
		Expect(w.Header().Get("X-RateLimit-Remaining")).To(Equal(strconv.Itoa(29 - i)))
	}
}

func TestRateLimitMiddleware_KeyedByClientIP(t *testing.T) {
	RegisterTestingT(t)
	rl := newTestRateLimiter()
	rl.SetConfig("GET /test", RateLimitEndpointConfig{Requests: 1, Window: time.Minute, KeyFunc: GetClientIP})

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(rl.RateLimitMiddleware())
	router.GET("/test", func(c *gin.Context) {
		c.Status(200)
	})

	send := func(ip string) int {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/test", nil)
		req.Header.Set("X-Forwarded-For", ip)
		router.ServeHTTP(w, req)
		return w.Code
	}

	Expect(send("10.0.0.1")).To(Equal(200))
	Expect(send("10.0.0.1")).To(Equal(429))
	Expect(send("10.0.0.2")).To(Equal(200))
}

func TestRateLimitMiddleware_WindowReset(t *testing.T) {
	RegisterTestingT(t)
	rl := newTestRateLimiter()
	rl.SetConfig("GET /test", RateLimitEndpointConfig{Requests: 2, Window: 50 * time.Millisecond, KeyFunc: GetClientIP})

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(rl.RateLimitMiddleware())

	router.GET("/test", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/test", nil)
		router.ServeHTTP(w, req)

		if i < 2 {
			Expect(w.Code).To(Equal(200))
		} else {
			Expect(w.Code).To(Equal(429))
		}
	}

	time.Sleep(100 * time.Millisecond)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test", nil)
	router.ServeHTTP(w, req)
	Expect(w.Code).To(Equal(200))
}

func TestRateLimiterGetStats(t *testing.T) {
	RegisterTestingT(t)
	rl := newTestRateLimiter()

	stats := rl.GetStats()
	Expect(stats["active_entries"]).To(Equal(0))
	Expect(stats["configs"]).To(Equal(len(GetDefaultConfig().RateLimitConfigs)))
}

func TestRateLimitMiddleware_NoDoubleCounting(t *testing.T) {
	RegisterTestingT(t)
	rl := newTestRateLimiter()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(rl.RateLimitMiddleware())

	var callCount int
	var callCountMutex sync.Mutex
	router.POST("/tasks", func(c *gin.Context) {
		callCountMutex.Lock()
		callCount++
		callCountMutex.Unlock()
		c.JSON(201, gin.H{})
	})

	numRequests := 10
	results := make([]int, numRequests)
	var wg sync.WaitGroup

	for i := 0; i < numRequests; i++ {
		index := i
		wg.Go(func() {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest("POST", "/tasks", strings.NewReader(`{"title":"test"}`))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			remaining, _ := strconv.Atoi(w.Header().Get("X-RateLimit-Remaining"))
			results[index] = remaining
		})
	}

	wg.Wait()

	Expect(callCount).To(Equal(numRequests))

	expectedRemaining := []int{10, 11, 12, 13, 14, 15, 16, 17, 18, 19}
	sort.Ints(results)

	Expect(results).To(Equal(expectedRemaining))
}

func TestNormalizePath(t *testing.T) {
	RegisterTestingT(t)

	Expect(normalizePath("/tasks/42/done")).To(Equal("/tasks/:id/done"))
	Expect(normalizePath("/tasks/42")).To(Equal("/tasks/:id"))
	Expect(normalizePath("/tasks")).To(Equal("/tasks"))
	Expect(normalizePath("/health")).To(Equal("/health"))
}
