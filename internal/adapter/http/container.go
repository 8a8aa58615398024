package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	cache "tasktracker/internal/adapter/cache/redis"
	"tasktracker/internal/adapter/database/memory"
	"tasktracker/internal/adapter/database/postgres"
	pgrepository "tasktracker/internal/adapter/database/postgres/repository"
	"tasktracker/internal/adapter/database/sqlite"
	sqliterepository "tasktracker/internal/adapter/database/sqlite/repository"
	"tasktracker/internal/adapter/http/handler"
	"tasktracker/internal/core/port"
	"tasktracker/internal/core/service"
	"tasktracker/internal/core/telemetry"
	"tasktracker/pkg"
	"tasktracker/pkg/config"
	"tasktracker/pkg/logger"
)

type Container struct {
	TaskRepo    port.TaskRepository
	TaskService port.TaskService
	TaskHandler *handler.TaskHandler

	closers []func() error
}

// NewContainer opens the configured store, wraps it with the Redis cache when
// one is configured, and wires the service and handler on top.
func NewContainer(ctx context.Context, cfg *config.AppConfig, probe port.Telemetry, metrics *telemetry.AppMetrics, l *logger.LokiLogger) (*Container, error) {
	container := &Container{}

	repo, err := container.openRepository(ctx, cfg.Database, probe)
	if err != nil {
		return nil, err
	}

	if cfg.CacheEnabled() {
		repo = container.withCache(ctx, repo, cfg.Redis, metrics)
	}

	taskSvc := service.NewTaskService(repo, probe)

	container.TaskRepo = repo
	container.TaskService = taskSvc
	container.TaskHandler = handler.NewTaskHandler(taskSvc, l)

	return container, nil
}

func (c *Container) openRepository(ctx context.Context, dbCfg config.DatabaseConfig, probe port.Telemetry) (port.TaskRepository, error) {
	dbCfg.MigrationsPath = pkg.ResolvePath(dbCfg.MigrationsPath)

	switch dbCfg.Driver {
	case config.DriverMemory:
		return memory.NewTaskRepository(), nil

	case config.DriverPostgres:
		db, err := postgres.NewDB(ctx, dbCfg)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}

		c.closers = append(c.closers, func() error {
			db.Close()
			return nil
		})

		return pgrepository.NewTaskRepository(db, probe), nil

	case config.DriverSQLite:
		db, err := sqlite.NewDB(dbCfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}

		c.closers = append(c.closers, db.Close)

		return sqliterepository.NewTaskRepository(db, probe), nil
	}

	return nil, fmt.Errorf("unsupported database driver %q", dbCfg.Driver)
}

func (c *Container) withCache(ctx context.Context, repo port.TaskRepository, redisCfg config.RedisConfig, metrics *telemetry.AppMetrics) port.TaskRepository {
	client := redis.NewClient(&redis.Options{
		Addr:     redisCfg.Addr,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		slog.Warn("Redis unreachable, cache reads will fall through", "addr", redisCfg.Addr, "error", err)
	}

	c.closers = append(c.closers, client.Close)

	return cache.NewTaskRepository(repo, client, redisCfg.TTL, metrics)
}

func (c *Container) Close() error {
	var errs []error

	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
