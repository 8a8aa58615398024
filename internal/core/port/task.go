package port

import (
	"context"

	"tasktracker/internal/core/domain"
)

// TaskRepository is implemented by every persistence backend. FindByID
// returns a nil task when no row matches; Update returns
// domain.ErrTaskNotFound when the row does not exist.
type TaskRepository interface {
	Insert(ctx context.Context, task domain.TaskInsert) (domain.Task, error)
	Update(ctx context.Context, task domain.TaskUpdate) (domain.Task, error)
	FindByID(ctx context.Context, id int64) (*domain.Task, error)
	Find(ctx context.Context, query domain.TaskQuery) ([]domain.Task, error)
}

// TaskService exposes the task lifecycle. A nil task with a nil error means
// the identifier is unknown.
type TaskService interface {
	Create(ctx context.Context, title string) (domain.Task, error)
	Rename(ctx context.Context, id int64, title string) (*domain.Task, error)
	MarkDone(ctx context.Context, id int64) (*domain.Task, error)
	Get(ctx context.Context, id int64) (*domain.Task, error)
	Query(ctx context.Context, query domain.TaskQuery) ([]domain.Task, error)
	List(ctx context.Context) ([]domain.Task, error)
}
