package request

import (
	"time"

	"tasktracker/internal/core/domain"
)

type CreateTaskRequest struct {
	Title string `json:"title"`
}

type RenameTaskRequest struct {
	Title string `json:"title"`
}

// TaskQueryParams is the query-string form of a task query.
type TaskQueryParams struct {
	Done          *bool      `form:"done"`
	Title         *string    `form:"title"`
	CreatedAfter  *time.Time `form:"created_after" time_format:"2006-01-02T15:04:05Z07:00"`
	CreatedBefore *time.Time `form:"created_before" time_format:"2006-01-02T15:04:05Z07:00"`
	UpdatedAfter  *time.Time `form:"updated_after" time_format:"2006-01-02T15:04:05Z07:00"`
	UpdatedBefore *time.Time `form:"updated_before" time_format:"2006-01-02T15:04:05Z07:00"`
	Sort          string     `form:"sort" validate:"omitempty,oneof=created_at updated_at title done"`
	Direction     string     `form:"direction" validate:"omitempty,oneof=asc desc"`
}

// TaskQueryBody is the JSON form of a task query.
type TaskQueryBody struct {
	Filters *TaskFiltersBody `json:"filters"`
	Sort    *TaskSortBody    `json:"sort"`
}

type TaskFiltersBody struct {
	Done          *bool      `json:"done"`
	Title         *string    `json:"title"`
	CreatedAfter  *time.Time `json:"created_after"`
	CreatedBefore *time.Time `json:"created_before"`
	UpdatedAfter  *time.Time `json:"updated_after"`
	UpdatedBefore *time.Time `json:"updated_before"`
}

type TaskSortBody struct {
	Field     string `json:"field" validate:"omitempty,oneof=created_at updated_at title done"`
	Direction string `json:"direction" validate:"omitempty,oneof=asc desc"`
}

func (p TaskQueryParams) ToDomain() (domain.TaskQuery, error) {
	return TaskQueryBody{
		Filters: &TaskFiltersBody{
			Done:          p.Done,
			Title:         p.Title,
			CreatedAfter:  p.CreatedAfter,
			CreatedBefore: p.CreatedBefore,
			UpdatedAfter:  p.UpdatedAfter,
			UpdatedBefore: p.UpdatedBefore,
		},
		Sort: &TaskSortBody{Field: p.Sort, Direction: p.Direction},
	}.ToDomain()
}

// ToDomain converts the body into a domain query. A sort without a field is
// dropped; a direction without a field is ignored.
func (b TaskQueryBody) ToDomain() (domain.TaskQuery, error) {
	var query domain.TaskQuery

	if f := b.Filters; f != nil {
		filters := &domain.TaskFilters{
			Done:          f.Done,
			Title:         f.Title,
			CreatedAfter:  f.CreatedAfter,
			CreatedBefore: f.CreatedBefore,
			UpdatedAfter:  f.UpdatedAfter,
			UpdatedBefore: f.UpdatedBefore,
		}

		if !filters.IsEmpty() {
			query.Filters = filters
		}
	}

	if s := b.Sort; s != nil && s.Field != "" {
		field, err := domain.ParseSortField(s.Field)
		if err != nil {
			return domain.TaskQuery{}, err
		}

		direction, err := domain.ParseSortDirection(s.Direction)
		if err != nil {
			return domain.TaskQuery{}, err
		}

		query.Sort = &domain.TaskSort{Field: field, Direction: direction}
	}

	return query, nil
}
