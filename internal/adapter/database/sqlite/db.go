package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/Masterminds/squirrel"

	_ "github.com/mattn/go-sqlite3"
	sqldblogger "github.com/simukti/sqldb-logger"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"go.opentelemetry.io/otel"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/rs/zerolog"
	"github.com/simukti/sqldb-logger/logadapter/zerologadapter"

	"tasktracker/pkg/config"
)

type DB struct {
	*sql.DB
	QueryBuilder *squirrel.StatementBuilderType
}

// NewDB opens the configured SQLite file and applies pending migrations.
func NewDB(cfg config.DatabaseConfig) (*DB, error) {
	return Open(cfg.Path, cfg.MigrationsDir(), cfg.SQLLogLevel)
}

// Open opens dsn through otelsql and sqldb-logger, then migrates it from
// migrationsDir. SQLite serializes writers, so the pool holds a single
// connection; this also keeps shared in-memory databases alive.
func Open(dsn, migrationsDir, logLevel string) (*DB, error) {
	tracedDB, err := otelsql.Open("sqlite3", dsn,
		otelsql.WithDBSystem("sqlite"),
		otelsql.WithDBName("tasktracker"),
		otelsql.WithTracerProvider(otel.GetTracerProvider()),
	)

	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	level, err := zerolog.ParseLevel(logLevel)
	if err != nil || logLevel == "" {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("component", "sqlite").Logger()

	// only the instrumented driver is kept; sqldb-logger opens the pool
	tracedDriver := tracedDB.Driver()
	if err := tracedDB.Close(); err != nil {
		return nil, fmt.Errorf("close sqlite bootstrap handle: %w", err)
	}

	sqlDB := sqldblogger.OpenDriver(dsn, tracedDriver, zerologadapter.New(logger),
		sqldblogger.WithSQLQueryAsMessage(true),
		sqldblogger.WithLogArguments(false),
	)

	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if err := RunMigrations(sqlDB, migrationsDir); err != nil {
		sqlDB.Close()
		return nil, err
	}

	queryBuilder := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

	return &DB{
		DB:           sqlDB,
		QueryBuilder: &queryBuilder,
	}, nil
}

func RunMigrations(db *sql.DB, migrationsDir string) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})

	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://"+migrationsDir,
		"sqlite3",
		driver,
	)
	if err != nil {
		return fmt.Errorf("create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}

	slog.Debug("SQLite migrations applied", "path", migrationsDir)

	return nil
}
