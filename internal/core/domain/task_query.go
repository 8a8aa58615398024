package domain

import (
	"fmt"
	"strings"
	"time"
)

type SortField string

const (
	SortByCreatedAt SortField = "created_at"
	SortByUpdatedAt SortField = "updated_at"
	SortByTitle     SortField = "title"
	SortByDone      SortField = "done"
)

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// DefaultSortDirection applies when a sort field is given without a direction.
const DefaultSortDirection = SortAsc

var SortFields = []SortField{SortByCreatedAt, SortByUpdatedAt, SortByTitle, SortByDone}

// TaskFilters is a conjunction of optional predicates. A nil field imposes
// no constraint on that dimension.
type TaskFilters struct {
	Done          *bool
	Title         *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	UpdatedAfter  *time.Time
	UpdatedBefore *time.Time
}

type TaskSort struct {
	Field     SortField
	Direction SortDirection
}

type TaskQuery struct {
	Filters *TaskFilters
	Sort    *TaskSort
}

func ParseSortField(s string) (SortField, error) {
	switch SortField(strings.ToLower(s)) {
	case SortByCreatedAt:
		return SortByCreatedAt, nil
	case SortByUpdatedAt:
		return SortByUpdatedAt, nil
	case SortByTitle:
		return SortByTitle, nil
	case SortByDone:
		return SortByDone, nil
	default:
		return "", fmt.Errorf("invalid sort field: %s", s)
	}
}

func ParseSortDirection(s string) (SortDirection, error) {
	switch SortDirection(strings.ToLower(s)) {
	case "":
		return "", nil
	case SortAsc:
		return SortAsc, nil
	case SortDesc:
		return SortDesc, nil
	default:
		return "", fmt.Errorf("invalid sort direction: %s", s)
	}
}

// Descending resolves the effective direction, falling back to
// DefaultSortDirection.
func (s *TaskSort) Descending() bool {
	if s.Direction == "" {
		return DefaultSortDirection == SortDesc
	}

	return s.Direction == SortDesc
}

func (q TaskQuery) IsEmpty() bool {
	return q.Filters.IsEmpty() && q.Sort == nil
}

func (f *TaskFilters) IsEmpty() bool {
	if f == nil {
		return true
	}

	return f.Done == nil && f.Title == nil &&
		f.CreatedAfter == nil && f.CreatedBefore == nil &&
		f.UpdatedAfter == nil && f.UpdatedBefore == nil
}

// Matches evaluates the filters against a task in memory, with the same
// semantics the SQL builders produce: strict time bounds and a
// case-insensitive substring match on the title.
func (f *TaskFilters) Matches(t Task) bool {
	if f == nil {
		return true
	}

	if f.Done != nil && t.Done != *f.Done {
		return false
	}

	if f.Title != nil && !strings.Contains(strings.ToLower(t.Title), strings.ToLower(*f.Title)) {
		return false
	}

	if f.CreatedAfter != nil && !t.CreatedAt.After(*f.CreatedAfter) {
		return false
	}

	if f.CreatedBefore != nil && !t.CreatedAt.Before(*f.CreatedBefore) {
		return false
	}

	if f.UpdatedAfter != nil && !t.UpdatedAt.After(*f.UpdatedAfter) {
		return false
	}

	if f.UpdatedBefore != nil && !t.UpdatedAt.Before(*f.UpdatedBefore) {
		return false
	}

	return true
}

// Less orders a before b by the sort field, honoring the direction.
func (s *TaskSort) Less(a, b Task) bool {
	cmp := compareBy(s.Field, a, b)

	if s.Descending() {
		return cmp > 0
	}

	return cmp < 0
}

func compareBy(field SortField, a, b Task) int {
	switch field {
	case SortByCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case SortByUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case SortByTitle:
		return strings.Compare(a.Title, b.Title)
	case SortByDone:
		switch {
		case a.Done == b.Done:
			return 0
		case !a.Done:
			return -1
		default:
			return 1
		}
	}

	return 0
}
