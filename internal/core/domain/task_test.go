package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T {
	return &v
}

func TestUpdateOf(t *testing.T) {
	task := Task{ID: 3, Title: "Write report", Done: true, CreatedAt: time.Now()}

	update := UpdateOf(task)

	assert.Equal(t, TaskUpdate{ID: 3, Title: "Write report", Done: true}, update)
}

func TestParseSortField(t *testing.T) {
	tests := []struct {
		input    string
		expected SortField
	}{
		{"created_at", SortByCreatedAt},
		{"updated_at", SortByUpdatedAt},
		{"title", SortByTitle},
		{"DONE", SortByDone},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			field, err := ParseSortField(tt.input)

			assert.NoError(t, err)
			assert.Equal(t, tt.expected, field)
		})
	}

	t.Run("should reject unknown field", func(t *testing.T) {
		_, err := ParseSortField("priority")

		assert.Error(t, err)
	})
}

func TestParseSortDirection(t *testing.T) {
	dir, err := ParseSortDirection("")
	assert.NoError(t, err)
	assert.Equal(t, SortDirection(""), dir)

	dir, err = ParseSortDirection("DESC")
	assert.NoError(t, err)
	assert.Equal(t, SortDesc, dir)

	_, err = ParseSortDirection("sideways")
	assert.Error(t, err)
}

func TestTaskSort_Descending(t *testing.T) {
	assert.False(t, (&TaskSort{Field: SortByTitle}).Descending())
	assert.False(t, (&TaskSort{Field: SortByTitle, Direction: SortAsc}).Descending())
	assert.True(t, (&TaskSort{Field: SortByTitle, Direction: SortDesc}).Descending())
}

func TestTaskQuery_IsEmpty(t *testing.T) {
	assert.True(t, TaskQuery{}.IsEmpty())
	assert.True(t, TaskQuery{Filters: &TaskFilters{}}.IsEmpty())
	assert.False(t, TaskQuery{Filters: &TaskFilters{Done: ptr(true)}}.IsEmpty())
	assert.False(t, TaskQuery{Sort: &TaskSort{Field: SortByDone}}.IsEmpty())
}

func TestTaskFilters_Matches(t *testing.T) {
	base := time.Date(2025, 11, 3, 18, 30, 0, 0, time.UTC)

	task := Task{
		ID:        1,
		Title:     "Foo bar",
		Done:      true,
		CreatedAt: base,
		UpdatedAt: base.Add(time.Hour),
	}

	t.Run("nil filters match everything", func(t *testing.T) {
		var filters *TaskFilters

		assert.True(t, filters.Matches(task))
	})

	t.Run("done equality", func(t *testing.T) {
		assert.True(t, (&TaskFilters{Done: ptr(true)}).Matches(task))
		assert.False(t, (&TaskFilters{Done: ptr(false)}).Matches(task))
	})

	t.Run("title is a case-insensitive substring", func(t *testing.T) {
		for _, title := range []string{"Foo bar", "xfoox", "FOO"} {
			candidate := task
			candidate.Title = title

			assert.True(t, (&TaskFilters{Title: ptr("foo")}).Matches(candidate), title)
		}

		candidate := task
		candidate.Title = "bar"

		assert.False(t, (&TaskFilters{Title: ptr("foo")}).Matches(candidate))
	})

	t.Run("time bounds are strict", func(t *testing.T) {
		assert.False(t, (&TaskFilters{CreatedAfter: ptr(base)}).Matches(task))
		assert.True(t, (&TaskFilters{CreatedAfter: ptr(base.Add(-time.Second))}).Matches(task))
		assert.False(t, (&TaskFilters{CreatedBefore: ptr(base)}).Matches(task))
		assert.True(t, (&TaskFilters{CreatedBefore: ptr(base.Add(time.Second))}).Matches(task))
		assert.True(t, (&TaskFilters{UpdatedAfter: ptr(base)}).Matches(task))
		assert.False(t, (&TaskFilters{UpdatedBefore: ptr(base)}).Matches(task))
	})

	t.Run("inverted ranges are accepted and match nothing", func(t *testing.T) {
		filters := &TaskFilters{
			CreatedAfter:  ptr(base.Add(time.Hour)),
			CreatedBefore: ptr(base.Add(-time.Hour)),
		}

		assert.False(t, filters.Matches(task))
	})

	t.Run("predicates combine with AND", func(t *testing.T) {
		assert.True(t, (&TaskFilters{Done: ptr(true), Title: ptr("bar")}).Matches(task))
		assert.False(t, (&TaskFilters{Done: ptr(true), Title: ptr("baz")}).Matches(task))
	})
}

func TestTaskSort_Less(t *testing.T) {
	base := time.Now()
	a := Task{ID: 1, Title: "alpha", Done: false, CreatedAt: base, UpdatedAt: base.Add(2 * time.Minute)}
	b := Task{ID: 2, Title: "beta", Done: true, CreatedAt: base.Add(time.Minute), UpdatedAt: base}

	tests := []struct {
		name     string
		sort     TaskSort
		expected bool
	}{
		{"title asc", TaskSort{Field: SortByTitle}, true},
		{"title desc", TaskSort{Field: SortByTitle, Direction: SortDesc}, false},
		{"created asc", TaskSort{Field: SortByCreatedAt, Direction: SortAsc}, true},
		{"updated asc", TaskSort{Field: SortByUpdatedAt}, false},
		{"done asc puts pending first", TaskSort{Field: SortByDone}, true},
		{"done desc puts done first", TaskSort{Field: SortByDone, Direction: SortDesc}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.sort.Less(a, b))
		})
	}

	assert.False(t, (&TaskSort{Field: SortByTitle}).Less(a, a))
}
