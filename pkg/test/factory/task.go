package factory

import (
	fab "github.com/Goldziher/fabricator"

	"tasktracker/internal/core/domain"
)

// NewTaskInsert builds an insert intent with a random title. Done defaults
// to false unless overridden.
func NewTaskInsert(customData ...map[string]any) domain.TaskInsert {
	instance := fab.New(domain.TaskInsert{})

	hasDone := false
	for _, data := range customData {
		if _, exists := data["Done"]; exists {
			hasDone = true
			break
		}
	}

	if !hasDone {
		customData = append(customData, map[string]any{"Done": false})
	}

	return instance.Build(customData...)
}

func NewTaskInserts(n int, customData ...map[string]any) []domain.TaskInsert {
	inserts := make([]domain.TaskInsert, n)

	for i := range inserts {
		inserts[i] = NewTaskInsert(customData...)
	}

	return inserts
}
