package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"tasktracker/internal/adapter/database/postgres"
	"tasktracker/internal/adapter/database/postgres/repository"
	"tasktracker/internal/core/port"
	. "tasktracker/pkg/test"
)

type PostgresTaskRepositoryTestSuite struct {
	TaskRepositorySuite
	pgContainer testcontainers.Container
	DB          *postgres.DB
}

func TestPostgresTaskRepositoryTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres suite in short mode")
	}

	testcontainers.SkipIfProviderIsNotHealthy(t)

	s := new(PostgresTaskRepositoryTestSuite)
	s.NewRepository = func() port.TaskRepository {
		return repository.NewTaskRepository(s.DB, nil)
	}
	s.TearDown = func() {
		if _, err := s.DB.Exec(context.Background(), "TRUNCATE tasks RESTART IDENTITY"); err != nil {
			s.T().Fatalf("Failed to truncate tasks: %v", err)
		}
	}

	suite.Run(t, s)
}

func (s *PostgresTaskRepositoryTestSuite) SetupSuite() {
	ctx := context.Background()

	req := testcontainers.GenericContainerRequest{
		Started: true,
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:15-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       "testdb",
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
	}

	pgContainer, err := testcontainers.GenericContainer(ctx, req)
	s.Require().NoError(err)
	s.pgContainer = pgContainer

	host, err := pgContainer.Host(ctx)
	s.Require().NoError(err)

	mapped, err := pgContainer.MappedPort(ctx, "5432")
	s.Require().NoError(err)

	url := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, mapped.Port())

	db, err := postgres.Open(ctx, url, MigrationsDir("postgres"))
	s.Require().NoError(err)

	s.DB = db
}

func (s *PostgresTaskRepositoryTestSuite) TearDownSuite() {
	if s.DB != nil {
		s.DB.Close()
	}

	if s.pgContainer != nil {
		_ = testcontainers.TerminateContainer(s.pgContainer)
	}
}
