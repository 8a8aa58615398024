package memory_test

import (
	"context"
	"sync"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/suite"

	"tasktracker/internal/adapter/database/memory"
	"tasktracker/internal/core/domain"
	"tasktracker/internal/core/port"
	. "tasktracker/pkg/test"
)

type MemoryTaskRepositoryTestSuite struct {
	TaskRepositorySuite
}

func TestMemoryTaskRepositoryTestSuite(t *testing.T) {
	s := new(MemoryTaskRepositoryTestSuite)
	s.NewRepository = func() port.TaskRepository {
		return memory.NewTaskRepository()
	}

	suite.Run(t, s)
}

func (s *MemoryTaskRepositoryTestSuite) TestFind_DefaultOrderIsByID() {
	seeded := SeedTasks(s.T(), s.Repo, "c", "a", "b")

	tasks, err := s.Repo.Find(context.Background(), domain.TaskQuery{})

	Expect(err).To(BeNil())
	Expect(tasks).To(HaveLen(3))
	Expect(tasks[0].ID).To(Equal(seeded[0].ID))
	Expect(tasks[1].ID).To(Equal(seeded[1].ID))
	Expect(tasks[2].ID).To(Equal(seeded[2].ID))
}

func (s *MemoryTaskRepositoryTestSuite) TestFind_ReturnsCopies() {
	task := SeedTasks(s.T(), s.Repo, "original")[0]

	found, err := s.Repo.FindByID(context.Background(), task.ID)
	Expect(err).To(BeNil())

	found.Title = "mutated"

	again, err := s.Repo.FindByID(context.Background(), task.ID)
	Expect(err).To(BeNil())
	Expect(again.Title).To(Equal("original"))
}

func (s *MemoryTaskRepositoryTestSuite) TestConcurrentInserts() {
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Go(func() {
			_, _ = s.Repo.Insert(context.Background(), domain.NewTaskInsert("concurrent"))
		})
	}

	wg.Wait()

	tasks, err := s.Repo.Find(context.Background(), domain.TaskQuery{})

	Expect(err).To(BeNil())
	Expect(tasks).To(HaveLen(50))
}

func (s *MemoryTaskRepositoryTestSuite) TestCancelledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Repo.Insert(ctx, domain.NewTaskInsert("late"))

	Expect(err).To(MatchError(context.Canceled))
}
