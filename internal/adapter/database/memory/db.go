package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"tasktracker/internal/core/domain"
)

// TaskRepository keeps tasks in a map guarded by a RWMutex. Without a sort
// it returns tasks in id order.
type TaskRepository struct {
	mu     sync.RWMutex
	tasks  map[int64]domain.Task
	nextID int64
	now    func() time.Time
}

func NewTaskRepository() *TaskRepository {
	return &TaskRepository{
		tasks: make(map[int64]domain.Task),
		now:   func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

func (r *TaskRepository) Insert(ctx context.Context, task domain.TaskInsert) (domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return domain.Task{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	now := r.now()

	saved := domain.Task{
		ID:        r.nextID,
		Title:     task.Title,
		Done:      task.Done,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.tasks[saved.ID] = saved

	return saved, nil
}

func (r *TaskRepository) Update(ctx context.Context, task domain.TaskUpdate) (domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return domain.Task{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.tasks[task.ID]
	if !ok {
		return domain.Task{}, domain.ErrTaskNotFound
	}

	current.Title = task.Title
	current.Done = task.Done
	current.UpdatedAt = r.now()
	r.tasks[task.ID] = current

	return current, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id int64) (*domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[id]
	if !ok {
		return nil, nil
	}

	return &task, nil
}

func (r *TaskRepository) Find(ctx context.Context, query domain.TaskQuery) ([]domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	tasks := make([]domain.Task, 0, len(r.tasks))
	for _, task := range r.tasks {
		if query.Filters.Matches(task) {
			tasks = append(tasks, task)
		}
	}
	r.mu.RUnlock()

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].ID < tasks[j].ID
	})

	if query.Sort != nil {
		sort.SliceStable(tasks, func(i, j int) bool {
			return query.Sort.Less(tasks[i], tasks[j])
		})
	}

	return tasks, nil
}
