package config

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
)

func TestLoad_Defaults(t *testing.T) {
	RegisterTestingT(t)

	cfg, err := Load()

	Expect(err).To(BeNil())
	Expect(cfg.HTTP.Port).To(Equal("8080"))
	Expect(cfg.HTTP.ReadTimeout).To(Equal(15 * time.Second))
	Expect(cfg.Database.Driver).To(Equal(DriverSQLite))
	Expect(cfg.Redis.TTL).To(Equal(30 * time.Second))
	Expect(cfg.OTel.ServiceName).To(Equal("tasktracker"))
	Expect(cfg.RateLimitConfigs).To(HaveKey("GET /tasks"))
	Expect(cfg.CacheEnabled()).To(BeFalse())
}

func TestLoad_FromEnvironment(t *testing.T) {
	RegisterTestingT(t)

	t.Setenv("PORT", "9000")
	t.Setenv("DATABASE_DRIVER", "memory")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_TTL", "1m")
	t.Setenv("APP_ENV", "production")

	cfg, err := Load()

	Expect(err).To(BeNil())
	Expect(cfg.HTTP.Port).To(Equal("9000"))
	Expect(cfg.Database.Driver).To(Equal(DriverMemory))
	Expect(cfg.CacheEnabled()).To(BeTrue())
	Expect(cfg.Redis.TTL).To(Equal(time.Minute))
	Expect(cfg.EnforceHTTPS).To(BeTrue())
}

func TestLoad_RejectsInvalidDriver(t *testing.T) {
	RegisterTestingT(t)

	t.Setenv("DATABASE_DRIVER", "oracle")

	_, err := Load()

	Expect(err).ToNot(BeNil())
}

func TestValidate_PostgresRequiresURL(t *testing.T) {
	RegisterTestingT(t)

	cfg := GetDefaultConfig()
	cfg.Database.Driver = DriverPostgres

	Expect(cfg.Validate()).ToNot(BeNil())

	cfg.Database.URL = "postgres://localhost/tasks"
	Expect(cfg.Validate()).To(BeNil())
}

func TestMigrationsDir(t *testing.T) {
	RegisterTestingT(t)

	cfg := GetDefaultConfig()

	Expect(cfg.Database.MigrationsDir()).To(Equal(filepath.Join("db", "migrations", "sqlite")))
}

func TestHTTPSEnforcer(t *testing.T) {
	RegisterTestingT(t)
	gin.SetMode(gin.TestMode)

	cfg := GetDefaultConfig()
	cfg.EnforceHTTPS = true
	enforcer := NewHTTPSEnforcer(cfg, zap.NewNop())

	router := gin.New()
	router.Use(enforcer.HTTPSMiddleware())
	router.GET("/tasks", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "http://tasks.example.com/tasks?done=true", nil)
	router.ServeHTTP(w, req)

	Expect(w.Code).To(Equal(http.StatusMovedPermanently))
	Expect(w.Header().Get("Location")).To(Equal("https://tasks.example.com/tasks?done=true"))

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "http://tasks.example.com/tasks", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	router.ServeHTTP(w, req)

	Expect(w.Code).To(Equal(http.StatusOK))

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "http://localhost:8080/tasks", nil)
	router.ServeHTTP(w, req)

	Expect(w.Code).To(Equal(http.StatusOK))

	enforcer.SetEnabled(false)
	Expect(enforcer.IsEnabled()).To(BeFalse())
}
