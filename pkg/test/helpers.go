package test

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"tasktracker/internal/adapter/database/sqlite"
	"tasktracker/internal/core/domain"
	"tasktracker/internal/core/port"
	"tasktracker/pkg"
)

// MigrationsDir returns the dialect migrations directory of this module.
func MigrationsDir(driver string) string {
	return filepath.Join(pkg.FindProjectRoot(), "db", "migrations", driver)
}

// InitTestDB opens an isolated in-memory SQLite database with migrations
// applied.
func InitTestDB() *sqlite.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())

	db, err := sqlite.Open(dsn, MigrationsDir("sqlite"), "error")

	if err != nil {
		log.Fatal(err)
	}

	return db
}

func CleanDB(t *testing.T, db *sqlite.DB) {
	t.Helper()

	if _, err := db.Exec("DELETE FROM tasks"); err != nil {
		t.Fatalf("Failed to clean tasks: %v", err)
	}
}

// SeedTasks inserts one task per title, in order.
func SeedTasks(t *testing.T, repo port.TaskRepository, titles ...string) []domain.Task {
	t.Helper()

	tasks := make([]domain.Task, 0, len(titles))

	for _, title := range titles {
		task, err := repo.Insert(context.Background(), domain.NewTaskInsert(title))
		if err != nil {
			t.Fatalf("Failed to seed task %q: %v", title, err)
		}

		tasks = append(tasks, task)
	}

	return tasks
}
