package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type AppConfig struct {
	Environment string `env:"APP_ENV" env-default:"development"`

	HTTP     HTTPConfig
	Database DatabaseConfig
	Redis    RedisConfig
	OTel     OTelConfig

	RateLimitEnabled bool `env:"RATE_LIMIT_ENABLED" env-default:"true"`
	RateLimitConfigs map[string]RateLimitConfig

	EnforceHTTPS bool `env:"ENFORCE_HTTPS" env-default:"false"`

	LokiURL   string `env:"LOKI_URL"`
	StaticDir string `env:"STATIC_DIR"`
}

type HTTPConfig struct {
	Port         string        `env:"PORT" env-default:"8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"15s"`
}

type DatabaseConfig struct {
	Driver         string `env:"DATABASE_DRIVER" env-default:"sqlite"`
	Path           string `env:"DATABASE_PATH" env-default:"database.db"`
	URL            string `env:"DATABASE_URL"`
	MigrationsPath string `env:"MIGRATIONS_PATH" env-default:"db/migrations"`
	SQLLogLevel    string `env:"SQL_LOG_LEVEL" env-default:"info"`
}

type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" env-default:"0"`
	TTL      time.Duration `env:"REDIS_TTL" env-default:"30s"`
}

type OTelConfig struct {
	ServiceName  string `env:"OTEL_SERVICE_NAME" env-default:"tasktracker"`
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	MetricsPort  string `env:"METRICS_PORT" env-default:"9091"`
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// Load reads the configuration from the environment.
func Load() (*AppConfig, error) {
	var cfg AppConfig

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	cfg.RateLimitConfigs = defaultRateLimits()

	if cfg.IsProduction() {
		cfg.EnforceHTTPS = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func GetDefaultConfig() *AppConfig {
	return &AppConfig{
		Environment: "development",
		HTTP: HTTPConfig{
			Port:         "8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:         DriverSQLite,
			Path:           "database.db",
			MigrationsPath: "db/migrations",
			SQLLogLevel:    "info",
		},
		Redis: RedisConfig{
			TTL: 30 * time.Second,
		},
		OTel: OTelConfig{
			ServiceName: "tasktracker",
			MetricsPort: "9091",
		},
		RateLimitEnabled: true,
		RateLimitConfigs: defaultRateLimits(),
		EnforceHTTPS:     false,
	}
}

func defaultRateLimits() map[string]RateLimitConfig {
	return map[string]RateLimitConfig{
		"GET /tasks": {
			Requests: 100,
			Window:   time.Minute,
		},
		"GET /tasks/:id": {
			Requests: 100,
			Window:   time.Minute,
		},
		"POST /tasks": {
			Requests: 20,
			Window:   time.Minute,
		},
		"PUT /tasks/:id/done": {
			Requests: 30,
			Window:   time.Minute,
		},
		"PUT /tasks/:id/title": {
			Requests: 30,
			Window:   time.Minute,
		},
		"default": {
			Requests: 60,
			Window:   time.Minute,
		},
	}
}

func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

func (c *AppConfig) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite, DriverMemory:
	case DriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s driver", DriverPostgres)
		}
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER: %q", c.Database.Driver)
	}

	return nil
}

// MigrationsDir returns the dialect directory below MigrationsPath.
func (c *DatabaseConfig) MigrationsDir() string {
	return filepath.Join(c.MigrationsPath, c.Driver)
}

func (c *AppConfig) CacheEnabled() bool {
	return c.Redis.Addr != ""
}
