package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"tasktracker/internal/adapter/database"
	"tasktracker/internal/adapter/database/sqlite"
	"tasktracker/internal/core/domain"
	"tasktracker/internal/core/port"
	tel "tasktracker/internal/core/telemetry"
)

const entity = "task"

type TaskRepository struct {
	db        *sqlite.DB
	telemetry port.Telemetry
	now       func() time.Time
}

func NewTaskRepository(db *sqlite.DB, telemetry port.Telemetry) *TaskRepository {
	if telemetry == nil {
		telemetry = tel.NewNoOpProbe()
	}

	return &TaskRepository{
		db:        db,
		telemetry: telemetry,
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

func (tr *TaskRepository) Insert(ctx context.Context, task domain.TaskInsert) (domain.Task, error) {
	ctx, span := tr.telemetry.StartRepositorySpan(ctx, "Insert", entity, map[string]interface{}{
		"db.system":    "sqlite",
		"db.table":     database.TasksTable,
		"db.operation": "INSERT",
	})
	defer span.End()

	startTime := time.Now()
	now := tr.now()

	query, args, err := tr.db.QueryBuilder.Insert(database.TasksTable).
		Columns("title", "done", "created_at", "updated_at").
		Values(task.Title, task.Done, now, now).
		ToSql()

	if err != nil {
		tr.telemetry.RecordRepositoryOperation(ctx, "Insert", entity, time.Since(startTime), err)
		return domain.Task{}, err
	}

	tr.telemetry.RecordRepositoryQuery(ctx, "Insert", entity, query, args)

	result, err := tr.db.ExecContext(ctx, query, args...)
	if err != nil {
		tr.telemetry.RecordRepositoryOperation(ctx, "Insert", entity, time.Since(startTime), err)
		return domain.Task{}, fmt.Errorf("insert task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		tr.telemetry.RecordRepositoryOperation(ctx, "Insert", entity, time.Since(startTime), err)
		return domain.Task{}, fmt.Errorf("insert task: %w", err)
	}

	span.SetAttributes(map[string]interface{}{"task.id": id})

	saved, err := tr.findByID(ctx, id)
	if err == nil && saved == nil {
		err = fmt.Errorf("task %d missing after insert", id)
	}

	tr.telemetry.RecordRepositoryOperation(ctx, "Insert", entity, time.Since(startTime), err)

	if err != nil {
		return domain.Task{}, err
	}

	return *saved, nil
}

func (tr *TaskRepository) Update(ctx context.Context, task domain.TaskUpdate) (domain.Task, error) {
	ctx, span := tr.telemetry.StartRepositorySpan(ctx, "Update", entity, map[string]interface{}{
		"db.system":    "sqlite",
		"db.table":     database.TasksTable,
		"db.operation": "UPDATE",
		"task.id":      task.ID,
	})
	defer span.End()

	startTime := time.Now()

	query, args, err := tr.db.QueryBuilder.Update(database.TasksTable).
		SetMap(map[string]interface{}{
			"title":      task.Title,
			"done":       task.Done,
			"updated_at": tr.now(),
		}).
		Where(sq.Eq{"id": task.ID}).
		ToSql()

	if err != nil {
		tr.telemetry.RecordRepositoryOperation(ctx, "Update", entity, time.Since(startTime), err)
		return domain.Task{}, err
	}

	tr.telemetry.RecordRepositoryQuery(ctx, "Update", entity, query, args)

	result, err := tr.db.ExecContext(ctx, query, args...)
	if err != nil {
		tr.telemetry.RecordRepositoryOperation(ctx, "Update", entity, time.Since(startTime), err)
		return domain.Task{}, fmt.Errorf("update task %d: %w", task.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		tr.telemetry.RecordRepositoryOperation(ctx, "Update", entity, time.Since(startTime), err)
		return domain.Task{}, fmt.Errorf("update task %d: %w", task.ID, err)
	}

	span.SetAttributes(map[string]interface{}{"db.rows_affected": rowsAffected})

	if rowsAffected == 0 {
		tr.telemetry.RecordRepositoryOperation(ctx, "Update", entity, time.Since(startTime), nil)
		return domain.Task{}, domain.ErrTaskNotFound
	}

	updated, err := tr.findByID(ctx, task.ID)
	if err == nil && updated == nil {
		err = domain.ErrTaskNotFound
	}

	tr.telemetry.RecordRepositoryOperation(ctx, "Update", entity, time.Since(startTime), err)

	if err != nil {
		return domain.Task{}, err
	}

	return *updated, nil
}

func (tr *TaskRepository) FindByID(ctx context.Context, id int64) (*domain.Task, error) {
	ctx, span := tr.telemetry.StartRepositorySpan(ctx, "FindByID", entity, map[string]interface{}{
		"db.system":    "sqlite",
		"db.table":     database.TasksTable,
		"db.operation": "SELECT",
		"task.id":      id,
	})
	defer span.End()

	startTime := time.Now()

	task, err := tr.findByID(ctx, id)
	tr.telemetry.RecordRepositoryOperation(ctx, "FindByID", entity, time.Since(startTime), err)

	return task, err
}

func (tr *TaskRepository) findByID(ctx context.Context, id int64) (*domain.Task, error) {
	query, args, err := database.SelectTasks(*tr.db.QueryBuilder).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()

	if err != nil {
		return nil, err
	}

	tr.telemetry.RecordRepositoryQuery(ctx, "FindByID", entity, query, args)

	task, err := sqlite.ScanTask(tr.db.QueryRowContext(ctx, query, args...))

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("find task %d: %w", id, err)
	}

	return &task, nil
}

func (tr *TaskRepository) Find(ctx context.Context, q domain.TaskQuery) ([]domain.Task, error) {
	ctx, span := tr.telemetry.StartRepositorySpan(ctx, "Find", entity, map[string]interface{}{
		"db.system":    "sqlite",
		"db.table":     database.TasksTable,
		"db.operation": "SELECT",
		"query.empty":  q.IsEmpty(),
	})
	defer span.End()

	startTime := time.Now()

	query, args, err := database.ApplyTaskQuery(database.SelectTasks(*tr.db.QueryBuilder), q).ToSql()
	if err != nil {
		tr.telemetry.RecordRepositoryOperation(ctx, "Find", entity, time.Since(startTime), err)
		return nil, err
	}

	tr.telemetry.RecordRepositoryQuery(ctx, "Find", entity, query, args)

	rows, err := tr.db.QueryContext(ctx, query, args...)
	if err != nil {
		tr.telemetry.RecordRepositoryOperation(ctx, "Find", entity, time.Since(startTime), err)
		return nil, fmt.Errorf("find tasks: %w", err)
	}
	defer rows.Close()

	tasks, err := sqlite.ScanTasks(rows)
	if err != nil {
		tr.telemetry.RecordRepositoryOperation(ctx, "Find", entity, time.Since(startTime), err)
		return nil, fmt.Errorf("scan tasks: %w", err)
	}

	span.SetAttributes(map[string]interface{}{"db.rows_returned": len(tasks)})
	tr.telemetry.RecordRepositoryOperation(ctx, "Find", entity, time.Since(startTime), nil)

	return tasks, nil
}
