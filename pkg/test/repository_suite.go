package test

import (
	"context"
	"time"

	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/suite"

	"tasktracker/internal/core/domain"
	"tasktracker/internal/core/port"
	"tasktracker/pkg/test/factory"
)

// TaskRepositorySuite exercises the port.TaskRepository contract. Embed it
// and set NewRepository; TearDown runs after every test when set.
type TaskRepositorySuite struct {
	suite.Suite

	NewRepository func() port.TaskRepository
	TearDown      func()

	Repo port.TaskRepository
	ctx  context.Context
}

func (s *TaskRepositorySuite) SetupTest() {
	RegisterTestingT(s.T())

	s.ctx = context.Background()
	s.Repo = s.NewRepository()
}

func (s *TaskRepositorySuite) TearDownTest() {
	if s.TearDown != nil {
		s.TearDown()
	}
}

func (s *TaskRepositorySuite) seed(titles ...string) []domain.Task {
	return SeedTasks(s.T(), s.Repo, titles...)
}

func (s *TaskRepositorySuite) TestInsert_AssignsIdentityAndTimestamps() {
	before := time.Now().UTC().Add(-time.Second)

	task, err := s.Repo.Insert(s.ctx, factory.NewTaskInsert(map[string]any{"Title": "Write report"}))

	Expect(err).To(BeNil())
	Expect(task.ID).To(BeNumerically(">", 0))
	Expect(task.Title).To(Equal("Write report"))
	Expect(task.Done).To(BeFalse())
	Expect(task.CreatedAt).To(Equal(task.UpdatedAt))
	Expect(task.CreatedAt.After(before)).To(BeTrue())
	Expect(task.CreatedAt.Location()).To(Equal(time.UTC))
}

func (s *TaskRepositorySuite) TestInsert_AssignsDistinctIDs() {
	first, err := s.Repo.Insert(s.ctx, factory.NewTaskInsert())
	Expect(err).To(BeNil())

	second, err := s.Repo.Insert(s.ctx, factory.NewTaskInsert())
	Expect(err).To(BeNil())

	Expect(second.ID).ToNot(Equal(first.ID))
}

func (s *TaskRepositorySuite) TestInsert_AllowsEmptyTitleAndDone() {
	task, err := s.Repo.Insert(s.ctx, domain.TaskInsert{Title: "", Done: true})

	Expect(err).To(BeNil())
	Expect(task.Title).To(BeEmpty())
	Expect(task.Done).To(BeTrue())
}

func (s *TaskRepositorySuite) TestFindByID_RoundTrip() {
	inserted, err := s.Repo.Insert(s.ctx, factory.NewTaskInsert())
	Expect(err).To(BeNil())

	found, err := s.Repo.FindByID(s.ctx, inserted.ID)

	Expect(err).To(BeNil())
	Expect(found).ToNot(BeNil())
	Expect(found.ID).To(Equal(inserted.ID))
	Expect(found.Title).To(Equal(inserted.Title))
	Expect(found.Done).To(Equal(inserted.Done))
	Expect(found.CreatedAt).To(BeTemporally("~", inserted.CreatedAt, time.Millisecond))
	Expect(found.UpdatedAt).To(BeTemporally("~", inserted.UpdatedAt, time.Millisecond))
}

func (s *TaskRepositorySuite) TestFindByID_Missing() {
	found, err := s.Repo.FindByID(s.ctx, 999999)

	Expect(err).To(BeNil())
	Expect(found).To(BeNil())
}

func (s *TaskRepositorySuite) TestUpdate_ReplacesFieldsAndBumpsUpdatedAt() {
	inserted := s.seed("Draft")[0]

	time.Sleep(5 * time.Millisecond)

	updated, err := s.Repo.Update(s.ctx, domain.TaskUpdate{ID: inserted.ID, Title: "Final", Done: true})

	Expect(err).To(BeNil())
	Expect(updated.ID).To(Equal(inserted.ID))
	Expect(updated.Title).To(Equal("Final"))
	Expect(updated.Done).To(BeTrue())
	Expect(updated.CreatedAt).To(BeTemporally("==", inserted.CreatedAt))
	Expect(updated.UpdatedAt).To(BeTemporally(">", inserted.UpdatedAt))

	found, err := s.Repo.FindByID(s.ctx, inserted.ID)
	Expect(err).To(BeNil())
	Expect(found.Title).To(Equal("Final"))
	Expect(found.Done).To(BeTrue())
}

func (s *TaskRepositorySuite) TestUpdate_Missing() {
	_, err := s.Repo.Update(s.ctx, domain.TaskUpdate{ID: 999999, Title: "ghost"})

	Expect(err).To(MatchError(domain.ErrTaskNotFound))
}

func (s *TaskRepositorySuite) TestFind_EmptyStore() {
	tasks, err := s.Repo.Find(s.ctx, domain.TaskQuery{})

	Expect(err).To(BeNil())
	Expect(tasks).ToNot(BeNil())
	Expect(tasks).To(BeEmpty())
}

func (s *TaskRepositorySuite) TestFind_EmptyQueryReturnsAll() {
	seeded := s.seed("a", "b", "c")

	tasks, err := s.Repo.Find(s.ctx, domain.TaskQuery{})

	Expect(err).To(BeNil())
	Expect(ids(tasks)).To(ConsistOf(ids(seeded)))
}

func (s *TaskRepositorySuite) TestFind_ByDone() {
	seeded := s.seed("one", "two", "three")

	_, err := s.Repo.Update(s.ctx, domain.TaskUpdate{ID: seeded[1].ID, Title: "two", Done: true})
	Expect(err).To(BeNil())

	done := true
	tasks, err := s.Repo.Find(s.ctx, domain.TaskQuery{Filters: &domain.TaskFilters{Done: &done}})

	Expect(err).To(BeNil())
	Expect(ids(tasks)).To(ConsistOf(seeded[1].ID))

	pending := false
	tasks, err = s.Repo.Find(s.ctx, domain.TaskQuery{Filters: &domain.TaskFilters{Done: &pending}})

	Expect(err).To(BeNil())
	Expect(ids(tasks)).To(ConsistOf(seeded[0].ID, seeded[2].ID))
}

func (s *TaskRepositorySuite) TestFind_ByTitleIsCaseInsensitiveSubstring() {
	seeded := s.seed("Foo bar", "xfoox", "FOO", "bar")

	title := "foo"
	tasks, err := s.Repo.Find(s.ctx, domain.TaskQuery{Filters: &domain.TaskFilters{Title: &title}})

	Expect(err).To(BeNil())
	Expect(ids(tasks)).To(ConsistOf(seeded[0].ID, seeded[1].ID, seeded[2].ID))
}

func (s *TaskRepositorySuite) TestFind_ByTitleMatchesWildcardsLiterally() {
	seeded := s.seed("100% done", "1000 done", "a_b", "axb")

	percent := "100%"
	tasks, err := s.Repo.Find(s.ctx, domain.TaskQuery{Filters: &domain.TaskFilters{Title: &percent}})

	Expect(err).To(BeNil())
	Expect(ids(tasks)).To(ConsistOf(seeded[0].ID))

	underscore := "a_b"
	tasks, err = s.Repo.Find(s.ctx, domain.TaskQuery{Filters: &domain.TaskFilters{Title: &underscore}})

	Expect(err).To(BeNil())
	Expect(ids(tasks)).To(ConsistOf(seeded[2].ID))
}

func (s *TaskRepositorySuite) TestFind_TimeBoundsAreStrict() {
	first := s.seed("first")[0]
	time.Sleep(5 * time.Millisecond)
	second := s.seed("second")[0]

	after := first.CreatedAt
	tasks, err := s.Repo.Find(s.ctx, domain.TaskQuery{Filters: &domain.TaskFilters{CreatedAfter: &after}})

	Expect(err).To(BeNil())
	Expect(ids(tasks)).To(ConsistOf(second.ID))

	before := second.CreatedAt
	tasks, err = s.Repo.Find(s.ctx, domain.TaskQuery{Filters: &domain.TaskFilters{CreatedBefore: &before}})

	Expect(err).To(BeNil())
	Expect(ids(tasks)).To(ConsistOf(first.ID))

	updatedAfter := first.UpdatedAt.Add(-time.Millisecond)
	updatedBefore := second.UpdatedAt.Add(time.Millisecond)
	tasks, err = s.Repo.Find(s.ctx, domain.TaskQuery{Filters: &domain.TaskFilters{
		UpdatedAfter:  &updatedAfter,
		UpdatedBefore: &updatedBefore,
	}})

	Expect(err).To(BeNil())
	Expect(ids(tasks)).To(ConsistOf(first.ID, second.ID))
}

func (s *TaskRepositorySuite) TestFind_InvertedRangeMatchesNothing() {
	task := s.seed("only")[0]

	after := task.CreatedAt.Add(time.Hour)
	before := task.CreatedAt.Add(-time.Hour)

	tasks, err := s.Repo.Find(s.ctx, domain.TaskQuery{Filters: &domain.TaskFilters{
		CreatedAfter:  &after,
		CreatedBefore: &before,
	}})

	Expect(err).To(BeNil())
	Expect(tasks).To(BeEmpty())
}

func (s *TaskRepositorySuite) TestFind_CombinesFiltersWithAnd() {
	seeded := s.seed("Buy milk", "Buy bread", "Sell car")

	_, err := s.Repo.Update(s.ctx, domain.TaskUpdate{ID: seeded[0].ID, Title: "Buy milk", Done: true})
	Expect(err).To(BeNil())

	done := true
	title := "buy"
	tasks, err := s.Repo.Find(s.ctx, domain.TaskQuery{Filters: &domain.TaskFilters{Done: &done, Title: &title}})

	Expect(err).To(BeNil())
	Expect(ids(tasks)).To(ConsistOf(seeded[0].ID))
}

func (s *TaskRepositorySuite) TestFind_SortByTitle() {
	s.seed("charlie", "alpha", "bravo")

	tasks, err := s.Repo.Find(s.ctx, domain.TaskQuery{Sort: &domain.TaskSort{Field: domain.SortByTitle}})

	Expect(err).To(BeNil())
	Expect(titles(tasks)).To(Equal([]string{"alpha", "bravo", "charlie"}))

	tasks, err = s.Repo.Find(s.ctx, domain.TaskQuery{Sort: &domain.TaskSort{Field: domain.SortByTitle, Direction: domain.SortDesc}})

	Expect(err).To(BeNil())
	Expect(titles(tasks)).To(Equal([]string{"charlie", "bravo", "alpha"}))
}

func (s *TaskRepositorySuite) TestFind_SortByTitleIsBytewise() {
	s.seed("bravo", "Charlie", "alpha", "Bravo")

	tasks, err := s.Repo.Find(s.ctx, domain.TaskQuery{Sort: &domain.TaskSort{Field: domain.SortByTitle}})

	Expect(err).To(BeNil())
	Expect(titles(tasks)).To(Equal([]string{"Bravo", "Charlie", "alpha", "bravo"}))
}

func (s *TaskRepositorySuite) TestFind_SortByCreatedAtDescending() {
	first := s.seed("first")[0]
	time.Sleep(5 * time.Millisecond)
	second := s.seed("second")[0]

	tasks, err := s.Repo.Find(s.ctx, domain.TaskQuery{Sort: &domain.TaskSort{Field: domain.SortByCreatedAt, Direction: domain.SortDesc}})

	Expect(err).To(BeNil())
	Expect(ids(tasks)).To(Equal([]int64{second.ID, first.ID}))
}

func (s *TaskRepositorySuite) TestFind_SortByDone() {
	seeded := s.seed("a", "b")

	_, err := s.Repo.Update(s.ctx, domain.TaskUpdate{ID: seeded[0].ID, Title: "a", Done: true})
	Expect(err).To(BeNil())

	tasks, err := s.Repo.Find(s.ctx, domain.TaskQuery{Sort: &domain.TaskSort{Field: domain.SortByDone}})

	Expect(err).To(BeNil())
	Expect(ids(tasks)).To(Equal([]int64{seeded[1].ID, seeded[0].ID}))
}

func ids(tasks []domain.Task) []int64 {
	out := make([]int64, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func titles(tasks []domain.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Title
	}
	return out
}
