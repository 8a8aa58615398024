package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"tasktracker/internal/core/domain"
	"tasktracker/internal/core/port"
	"tasktracker/internal/core/telemetry"
	"tasktracker/pkg/tracing"
)

const (
	taskKeyPrefix  = "task:"
	queryKeyPrefix = "tasks:query:"
	queryIndexKey  = "tasks:queries"

	kindTask  = "task"
	kindQuery = "query"
)

// TaskRepository is a read-through cache in front of another repository.
// Reads are cached for ttl; every write drops the task key and all cached
// queries. Redis failures are logged and the call falls through to next.
type TaskRepository struct {
	next    port.TaskRepository
	client  redis.Cmdable
	ttl     time.Duration
	group   singleflight.Group
	metrics *telemetry.AppMetrics
	logger  *slog.Logger
}

func NewTaskRepository(next port.TaskRepository, client redis.Cmdable, ttl time.Duration, metrics *telemetry.AppMetrics) *TaskRepository {
	return &TaskRepository{
		next:    next,
		client:  client,
		ttl:     ttl,
		metrics: metrics,
		logger:  slog.Default().With("component", "task_cache"),
	}
}

func TaskKey(id int64) string {
	return fmt.Sprintf("%s%d", taskKeyPrefix, id)
}

type cachedFilters struct {
	Done          *bool      `json:"done,omitempty"`
	Title         *string    `json:"title,omitempty"`
	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`
	UpdatedAfter  *time.Time `json:"updated_after,omitempty"`
	UpdatedBefore *time.Time `json:"updated_before,omitempty"`
}

type cachedQuery struct {
	Filters *cachedFilters   `json:"filters,omitempty"`
	Sort    *domain.TaskSort `json:"sort,omitempty"`
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	u := t.UTC()
	return &u
}

// QueryKey derives a stable key for a query. Equal instants in different
// zones share a key, and so do a missing direction and the default one.
func QueryKey(query domain.TaskQuery) (string, error) {
	var canonical cachedQuery

	if f := query.Filters; !f.IsEmpty() {
		canonical.Filters = &cachedFilters{
			Done:          f.Done,
			Title:         f.Title,
			CreatedAfter:  utc(f.CreatedAfter),
			CreatedBefore: utc(f.CreatedBefore),
			UpdatedAfter:  utc(f.UpdatedAfter),
			UpdatedBefore: utc(f.UpdatedBefore),
		}
	}

	if s := query.Sort; s != nil {
		direction := domain.SortAsc
		if s.Descending() {
			direction = domain.SortDesc
		}

		canonical.Sort = &domain.TaskSort{Field: s.Field, Direction: direction}
	}

	data, err := json.Marshal(canonical)
	if err != nil {
		return "", err
	}

	return queryKeyPrefix + string(data), nil
}

func (r *TaskRepository) Insert(ctx context.Context, task domain.TaskInsert) (domain.Task, error) {
	saved, err := r.next.Insert(ctx, task)
	if err != nil {
		return domain.Task{}, err
	}

	r.invalidate(ctx, saved.ID)

	return saved, nil
}

func (r *TaskRepository) Update(ctx context.Context, task domain.TaskUpdate) (domain.Task, error) {
	updated, err := r.next.Update(ctx, task)

	r.invalidate(ctx, task.ID)

	return updated, err
}

func (r *TaskRepository) FindByID(ctx context.Context, id int64) (*domain.Task, error) {
	key := TaskKey(id)

	var cached domain.Task
	if r.get(ctx, key, kindTask, &cached) {
		return &cached, nil
	}

	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		task, err := r.next.FindByID(ctx, id)
		if err != nil || task == nil {
			return task, err
		}

		r.set(ctx, key, task)

		return task, nil
	})

	if err != nil {
		return nil, err
	}

	task, _ := v.(*domain.Task)
	if task == nil {
		return nil, nil
	}

	out := *task
	return &out, nil
}

func (r *TaskRepository) Find(ctx context.Context, query domain.TaskQuery) ([]domain.Task, error) {
	key, err := QueryKey(query)
	if err != nil {
		return r.next.Find(ctx, query)
	}

	var cached []domain.Task
	if r.get(ctx, key, kindQuery, &cached) {
		if cached == nil {
			cached = []domain.Task{}
		}
		return cached, nil
	}

	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		tasks, err := r.next.Find(ctx, query)
		if err != nil {
			return nil, err
		}

		if r.set(ctx, key, tasks) {
			r.index(ctx, key)
		}

		return tasks, nil
	})

	if err != nil {
		return nil, err
	}

	shared := v.([]domain.Task)
	out := make([]domain.Task, len(shared))
	copy(out, shared)

	return out, nil
}

func (r *TaskRepository) get(ctx context.Context, key, kind string, dest interface{}) bool {
	data, err := r.client.Get(ctx, key).Bytes()

	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.WarnContext(ctx, "Cache read failed", "key", key, "error", err)
		}

		if r.metrics != nil {
			r.metrics.RecordCacheMiss(ctx, kind)
		}
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		r.logger.WarnContext(ctx, "Cache entry is corrupt", "key", key, "error", err)
		return false
	}

	if r.metrics != nil {
		r.metrics.RecordCacheHit(ctx, kind)
	}

	return true
}

func (r *TaskRepository) set(ctx context.Context, key string, value interface{}) bool {
	data, err := json.Marshal(value)
	if err != nil {
		r.logger.WarnContext(ctx, "Cache encode failed", "key", key, "error", err)
		return false
	}

	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		r.logger.WarnContext(ctx, "Cache write failed", "key", key, "error", err)
		return false
	}

	return true
}

func (r *TaskRepository) index(ctx context.Context, key string) {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, queryIndexKey, key)
		pipe.Expire(ctx, queryIndexKey, r.ttl)
		return nil
	})

	if err != nil {
		r.logger.WarnContext(ctx, "Cache index update failed", "key", key, "error", err)
	}
}

func (r *TaskRepository) invalidate(ctx context.Context, id int64) {
	attrs := []attribute.KeyValue{attribute.Int64("task.id", id)}

	err := tracing.SpanWrapper(ctx, "cache.task.invalidate", attrs, func(ctx context.Context) error {
		keys, err := r.client.SMembers(ctx, queryIndexKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			r.logger.WarnContext(ctx, "Cache index read failed", "error", err)
		}

		keys = append(keys, TaskKey(id), queryIndexKey)

		return r.client.Del(ctx, keys...).Err()
	})

	if err != nil {
		r.logger.WarnContext(ctx, "Cache invalidation failed", "task_id", id, "error", err)
	}
}
