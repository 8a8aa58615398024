package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"tasktracker/internal/adapter/database"
	"tasktracker/internal/adapter/database/postgres"
	"tasktracker/internal/core/domain"
	"tasktracker/internal/core/port"
	tel "tasktracker/internal/core/telemetry"
)

const entity = "task"

var returning = "RETURNING " + strings.Join(database.TaskColumns, ", ")

type TaskRepository struct {
	db        *postgres.DB
	telemetry port.Telemetry
	now       func() time.Time
}

func NewTaskRepository(db *postgres.DB, telemetry port.Telemetry) *TaskRepository {
	if telemetry == nil {
		telemetry = tel.NewNoOpProbe()
	}

	return &TaskRepository{
		db:        db,
		telemetry: telemetry,
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

func scanTask(row pgx.Row) (domain.Task, error) {
	var task domain.Task

	if err := row.Scan(&task.ID, &task.Title, &task.Done, &task.CreatedAt, &task.UpdatedAt); err != nil {
		return domain.Task{}, err
	}

	task.CreatedAt = task.CreatedAt.UTC()
	task.UpdatedAt = task.UpdatedAt.UTC()

	return task, nil
}

func (tr *TaskRepository) Insert(ctx context.Context, task domain.TaskInsert) (domain.Task, error) {
	ctx, span := tr.telemetry.StartRepositorySpan(ctx, "Insert", entity, map[string]interface{}{
		"db.system":    "postgresql",
		"db.table":     database.TasksTable,
		"db.operation": "INSERT",
	})
	defer span.End()

	startTime := time.Now()
	now := tr.now()

	query, args, err := tr.db.QueryBuilder.Insert(database.TasksTable).
		Columns("title", "done", "created_at", "updated_at").
		Values(task.Title, task.Done, now, now).
		Suffix(returning).
		ToSql()

	if err != nil {
		tr.telemetry.RecordRepositoryOperation(ctx, "Insert", entity, time.Since(startTime), err)
		return domain.Task{}, err
	}

	tr.telemetry.RecordRepositoryQuery(ctx, "Insert", entity, query, args)

	saved, err := scanTask(tr.db.QueryRow(ctx, query, args...))
	if err != nil {
		err = fmt.Errorf("insert task: %w", err)
	}

	tr.telemetry.RecordRepositoryOperation(ctx, "Insert", entity, time.Since(startTime), err)

	if err != nil {
		return domain.Task{}, err
	}

	span.SetAttributes(map[string]interface{}{"task.id": saved.ID})

	return saved, nil
}

func (tr *TaskRepository) Update(ctx context.Context, task domain.TaskUpdate) (domain.Task, error) {
	ctx, span := tr.telemetry.StartRepositorySpan(ctx, "Update", entity, map[string]interface{}{
		"db.system":    "postgresql",
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
		Suffix(returning).
		ToSql()

	if err != nil {
		tr.telemetry.RecordRepositoryOperation(ctx, "Update", entity, time.Since(startTime), err)
		return domain.Task{}, err
	}

	tr.telemetry.RecordRepositoryQuery(ctx, "Update", entity, query, args)

	updated, err := scanTask(tr.db.QueryRow(ctx, query, args...))

	if errors.Is(err, pgx.ErrNoRows) {
		tr.telemetry.RecordRepositoryOperation(ctx, "Update", entity, time.Since(startTime), nil)
		return domain.Task{}, domain.ErrTaskNotFound
	}

	if err != nil {
		err = fmt.Errorf("update task %d: %w", task.ID, err)
	}

	tr.telemetry.RecordRepositoryOperation(ctx, "Update", entity, time.Since(startTime), err)

	if err != nil {
		return domain.Task{}, err
	}

	return updated, nil
}

func (tr *TaskRepository) FindByID(ctx context.Context, id int64) (*domain.Task, error) {
	ctx, span := tr.telemetry.StartRepositorySpan(ctx, "FindByID", entity, map[string]interface{}{
		"db.system":    "postgresql",
		"db.table":     database.TasksTable,
		"db.operation": "SELECT",
		"task.id":      id,
	})
	defer span.End()

	startTime := time.Now()

	query, args, err := database.SelectTasks(*tr.db.QueryBuilder).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()

	if err != nil {
		tr.telemetry.RecordRepositoryOperation(ctx, "FindByID", entity, time.Since(startTime), err)
		return nil, err
	}

	tr.telemetry.RecordRepositoryQuery(ctx, "FindByID", entity, query, args)

	task, err := scanTask(tr.db.QueryRow(ctx, query, args...))

	if errors.Is(err, pgx.ErrNoRows) {
		tr.telemetry.RecordRepositoryOperation(ctx, "FindByID", entity, time.Since(startTime), nil)
		return nil, nil
	}

	if err != nil {
		err = fmt.Errorf("find task %d: %w", id, err)
		tr.telemetry.RecordRepositoryOperation(ctx, "FindByID", entity, time.Since(startTime), err)
		return nil, err
	}

	tr.telemetry.RecordRepositoryOperation(ctx, "FindByID", entity, time.Since(startTime), nil)

	return &task, nil
}

func (tr *TaskRepository) Find(ctx context.Context, q domain.TaskQuery) ([]domain.Task, error) {
	ctx, span := tr.telemetry.StartRepositorySpan(ctx, "Find", entity, map[string]interface{}{
		"db.system":    "postgresql",
		"db.table":     database.TasksTable,
		"db.operation": "SELECT",
		"query.empty":  q.IsEmpty(),
	})
	defer span.End()

	startTime := time.Now()

	query, args, err := database.ApplyTaskQuery(database.SelectTasks(*tr.db.QueryBuilder), q, database.WithTitleCollation("C")).ToSql()
	if err != nil {
		tr.telemetry.RecordRepositoryOperation(ctx, "Find", entity, time.Since(startTime), err)
		return nil, err
	}

	tr.telemetry.RecordRepositoryQuery(ctx, "Find", entity, query, args)

	rows, err := tr.db.Query(ctx, query, args...)
	if err != nil {
		err = fmt.Errorf("find tasks: %w", err)
		tr.telemetry.RecordRepositoryOperation(ctx, "Find", entity, time.Since(startTime), err)
		return nil, err
	}
	defer rows.Close()

	tasks := []domain.Task{}

	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			err = fmt.Errorf("scan tasks: %w", err)
			tr.telemetry.RecordRepositoryOperation(ctx, "Find", entity, time.Since(startTime), err)
			return nil, err
		}

		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		tr.telemetry.RecordRepositoryOperation(ctx, "Find", entity, time.Since(startTime), err)
		return nil, err
	}

	span.SetAttributes(map[string]interface{}{"db.rows_returned": len(tasks)})
	tr.telemetry.RecordRepositoryOperation(ctx, "Find", entity, time.Since(startTime), nil)

	return tasks, nil
}
