package database

import (
	"strings"

	sq "github.com/Masterminds/squirrel"

	"tasktracker/internal/core/domain"
)

const TasksTable = "tasks"

var TaskColumns = []string{"id", "title", "done", "created_at", "updated_at"}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes LIKE wildcards so the value matches literally.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// TitlePattern returns the LIKE pattern for a case-insensitive substring
// match against LOWER(title).
func TitlePattern(title string) string {
	return "%" + EscapeLike(strings.ToLower(title)) + "%"
}

// SelectTasks starts a SELECT of every task column.
func SelectTasks(builder sq.StatementBuilderType) sq.SelectBuilder {
	return builder.Select(TaskColumns...).From(TasksTable)
}

type queryOptions struct {
	titleCollation string
}

type QueryOption func(*queryOptions)

// WithTitleCollation sorts titles under the named collation. Stores whose
// default collation is locale-aware pass "C" to order titles bytewise.
func WithTitleCollation(collation string) QueryOption {
	return func(o *queryOptions) {
		o.titleCollation = collation
	}
}

// ApplyTaskQuery adds one predicate per populated filter and at most one
// ORDER BY clause. Without a sort the store's natural order is kept.
func ApplyTaskQuery(builder sq.SelectBuilder, query domain.TaskQuery, opts ...QueryOption) sq.SelectBuilder {
	var options queryOptions
	for _, opt := range opts {
		opt(&options)
	}

	if f := query.Filters; f != nil {
		if f.Done != nil {
			builder = builder.Where(sq.Eq{"done": *f.Done})
		}

		if f.Title != nil {
			builder = builder.Where(`LOWER(title) LIKE ? ESCAPE '\'`, TitlePattern(*f.Title))
		}

		if f.CreatedAfter != nil {
			builder = builder.Where(sq.Gt{"created_at": f.CreatedAfter.UTC()})
		}

		if f.CreatedBefore != nil {
			builder = builder.Where(sq.Lt{"created_at": f.CreatedBefore.UTC()})
		}

		if f.UpdatedAfter != nil {
			builder = builder.Where(sq.Gt{"updated_at": f.UpdatedAfter.UTC()})
		}

		if f.UpdatedBefore != nil {
			builder = builder.Where(sq.Lt{"updated_at": f.UpdatedBefore.UTC()})
		}
	}

	if s := query.Sort; s != nil {
		direction := "ASC"
		if s.Descending() {
			direction = "DESC"
		}

		column := string(s.Field)
		if s.Field == domain.SortByTitle && options.titleCollation != "" {
			column += ` COLLATE "` + options.titleCollation + `"`
		}

		builder = builder.OrderBy(column + " " + direction)
	}

	return builder
}
