package domain

import (
	"errors"
	"time"
)

var ErrTaskNotFound = errors.New("task not found")

type Task struct {
	ID        int64
	Title     string
	Done      bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TaskInsert asks the store to create a new row. The store assigns the
// identifier and both timestamps.
type TaskInsert struct {
	Title string
	Done  bool
}

// TaskUpdate replaces title and done of an existing row. The store refreshes
// UpdatedAt and never touches CreatedAt.
type TaskUpdate struct {
	ID    int64
	Title string
	Done  bool
}

func NewTaskInsert(title string) TaskInsert {
	return TaskInsert{Title: title}
}

// UpdateOf captures the current mutable fields of a persisted task.
func UpdateOf(t Task) TaskUpdate {
	return TaskUpdate{
		ID:    t.ID,
		Title: t.Title,
		Done:  t.Done,
	}
}
