package sqlite

import (
	"database/sql"

	"tasktracker/internal/core/domain"
)

// RowScanner is satisfied by *sql.Row and *sql.Rows.
type RowScanner interface {
	Scan(dest ...any) error
}

// ScanTask reads one row selected with database.TaskColumns.
func ScanTask(row RowScanner) (domain.Task, error) {
	var task domain.Task

	err := row.Scan(&task.ID, &task.Title, &task.Done, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return domain.Task{}, err
	}

	task.CreatedAt = task.CreatedAt.UTC()
	task.UpdatedAt = task.UpdatedAt.UTC()

	return task, nil
}

// ScanTasks drains rows into a non-nil slice.
func ScanTasks(rows *sql.Rows) ([]domain.Task, error) {
	tasks := []domain.Task{}

	for rows.Next() {
		task, err := ScanTask(rows)
		if err != nil {
			return nil, err
		}

		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tasks, nil
}
