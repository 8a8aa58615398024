package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"tasktracker/internal/core/domain"
	"tasktracker/internal/core/port"
	tel "tasktracker/internal/core/telemetry"
)

const serviceName = "task"

type TaskService struct {
	repo      port.TaskRepository
	telemetry port.Telemetry
}

func NewTaskService(repo port.TaskRepository, telemetry port.Telemetry) *TaskService {
	if telemetry == nil {
		telemetry = tel.NewNoOpProbe()
	}

	return &TaskService{
		repo:      repo,
		telemetry: telemetry,
	}
}

func (ts *TaskService) Create(ctx context.Context, title string) (domain.Task, error) {
	ctx, span := ts.telemetry.StartServiceSpan(ctx, serviceName, "Create", map[string]interface{}{
		"task.title_length": len(title),
	})
	defer span.End()

	startTime := time.Now()

	task, err := ts.repo.Insert(ctx, domain.NewTaskInsert(title))
	ts.telemetry.RecordServiceOperation(ctx, serviceName, "Create", time.Since(startTime), err)

	if err != nil {
		slog.ErrorContext(ctx, "Repository insert failed", "error", err, "title", title)
		return domain.Task{}, fmt.Errorf("create task: %w", err)
	}

	ts.telemetry.RecordBusinessEvent(ctx, "created", "task", strconv.FormatInt(task.ID, 10), map[string]interface{}{
		"title": task.Title,
	})

	return task, nil
}

func (ts *TaskService) Rename(ctx context.Context, id int64, title string) (*domain.Task, error) {
	return ts.mutate(ctx, "Rename", id, func(task *domain.Task) {
		task.Title = title
	})
}

// MarkDone sets done unconditionally, so calling it on a done task only
// refreshes UpdatedAt.
func (ts *TaskService) MarkDone(ctx context.Context, id int64) (*domain.Task, error) {
	return ts.mutate(ctx, "MarkDone", id, func(task *domain.Task) {
		task.Done = true
	})
}

func (ts *TaskService) Get(ctx context.Context, id int64) (*domain.Task, error) {
	ctx, span := ts.telemetry.StartServiceSpan(ctx, serviceName, "Get", map[string]interface{}{
		"task.id": id,
	})
	defer span.End()

	startTime := time.Now()

	task, err := ts.repo.FindByID(ctx, id)
	ts.telemetry.RecordServiceOperation(ctx, serviceName, "Get", time.Since(startTime), err)

	if err != nil {
		return nil, fmt.Errorf("get task %d: %w", id, err)
	}

	span.SetAttributes(map[string]interface{}{"task.found": task != nil})

	return task, nil
}

func (ts *TaskService) Query(ctx context.Context, query domain.TaskQuery) ([]domain.Task, error) {
	attrs := map[string]interface{}{
		"query.filtered": !query.Filters.IsEmpty(),
	}

	if query.Sort != nil {
		attrs["query.sort_field"] = string(query.Sort.Field)
		attrs["query.sort_desc"] = query.Sort.Descending()
	}

	ctx, span := ts.telemetry.StartServiceSpan(ctx, serviceName, "Query", attrs)
	defer span.End()

	startTime := time.Now()

	tasks, err := ts.repo.Find(ctx, query)
	ts.telemetry.RecordServiceOperation(ctx, serviceName, "Query", time.Since(startTime), err)

	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}

	if tasks == nil {
		tasks = []domain.Task{}
	}

	span.SetAttributes(map[string]interface{}{"query.results": len(tasks)})

	return tasks, nil
}

func (ts *TaskService) List(ctx context.Context) ([]domain.Task, error) {
	return ts.Query(ctx, domain.TaskQuery{})
}

// mutate loads the task, applies one field change and writes the full row
// back. Nothing spans the read and the write, so concurrent mutations of the
// same task can overwrite each other.
func (ts *TaskService) mutate(ctx context.Context, operation string, id int64, apply func(*domain.Task)) (*domain.Task, error) {
	ctx, span := ts.telemetry.StartServiceSpan(ctx, serviceName, operation, map[string]interface{}{
		"task.id": id,
	})
	defer span.End()

	startTime := time.Now()

	updated, err := ts.loadAndUpdate(ctx, id, apply)
	ts.telemetry.RecordServiceOperation(ctx, serviceName, operation, time.Since(startTime), err)

	if err != nil {
		return nil, fmt.Errorf("update task %d: %w", id, err)
	}

	span.SetAttributes(map[string]interface{}{"task.found": updated != nil})

	if updated != nil {
		ts.telemetry.RecordBusinessEvent(ctx, "updated", "task", strconv.FormatInt(updated.ID, 10), map[string]interface{}{
			"operation": operation,
			"done":      updated.Done,
		})
	}

	return updated, nil
}

func (ts *TaskService) loadAndUpdate(ctx context.Context, id int64, apply func(*domain.Task)) (*domain.Task, error) {
	current, err := ts.repo.FindByID(ctx, id)

	if err != nil {
		return nil, err
	}

	if current == nil {
		return nil, nil
	}

	apply(current)

	updated, err := ts.repo.Update(ctx, domain.UpdateOf(*current))

	if errors.Is(err, domain.ErrTaskNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &updated, nil
}
