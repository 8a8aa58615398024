package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	. "tasktracker/pkg/test"

	"tasktracker/internal/adapter/database/sqlite"
	"tasktracker/internal/adapter/database/sqlite/repository"
	"tasktracker/internal/adapter/http/middleware"
	"tasktracker/internal/core/domain"
	"tasktracker/internal/core/model/response"
	"tasktracker/internal/core/port"
	"tasktracker/internal/core/service"
	"tasktracker/internal/core/telemetry"
)

type TaskHandlerSuite struct {
	suite.Suite
	TaskRepo port.TaskRepository
	Router   *gin.Engine
	DB       *sqlite.DB
}

var ctx = context.Background()

func (s *TaskHandlerSuite) SetupTest() {
	s.DB = InitTestDB()
	probe := telemetry.NewNoOpProbe()

	s.TaskRepo = repository.NewTaskRepository(s.DB, probe)

	taskService := service.NewTaskService(s.TaskRepo, probe)

	s.Router = setupTaskTestRouter(NewTaskHandler(taskService, nil))
}

func (s *TaskHandlerSuite) TearDownTest() {
	if s.DB != nil {
		s.DB.Close()
	}
}

func TestTaskHandlerSuite(t *testing.T) {
	RegisterTestingT(t)
	suite.Run(t, new(TaskHandlerSuite))
}

func setupTaskTestRouter(taskHandler *TaskHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.CurrentMiddleware())

	router.GET("/health", Health)
	router.GET("/tasks", taskHandler.ListTasks)
	router.POST("/tasks", taskHandler.CreateTask)
	router.GET("/tasks/:id", taskHandler.GetTask)
	router.PUT("/tasks/:id/done", taskHandler.MarkDone)
	router.PUT("/tasks/:id/title", taskHandler.RenameTask)

	return router
}

func (s *TaskHandlerSuite) createTask(title string) domain.Task {
	task, err := s.TaskRepo.Insert(ctx, domain.NewTaskInsert(title))
	s.Require().NoError(err)

	return task
}

func (s *TaskHandlerSuite) serve(method, path string, body io.Reader) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, body)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rr := httptest.NewRecorder()
	s.Router.ServeHTTP(rr, req)

	return rr
}

func decodeTask(rr *httptest.ResponseRecorder) response.TaskResponse {
	var task response.TaskResponse
	Expect(json.Unmarshal(rr.Body.Bytes(), &task)).To(Succeed())

	return task
}

func decodeTasks(rr *httptest.ResponseRecorder) []response.TaskResponse {
	var tasks []response.TaskResponse
	Expect(json.Unmarshal(rr.Body.Bytes(), &tasks)).To(Succeed())

	return tasks
}

func decodeError(rr *httptest.ResponseRecorder) response.ErrorResponse {
	var errorResponse response.ErrorResponse
	Expect(json.Unmarshal(rr.Body.Bytes(), &errorResponse)).To(Succeed())

	return errorResponse
}

func taskTitles(tasks []response.TaskResponse) []string {
	out := make([]string, len(tasks))
	for i, task := range tasks {
		out[i] = task.Title
	}
	return out
}

func (s *TaskHandlerSuite) TestHealth() {
	rr := s.serve("GET", "/health", nil)

	Expect(rr.Code).To(Equal(http.StatusOK))
	Expect(rr.Body.String()).To(MatchJSON(`{"status":"ok"}`))
}

func (s *TaskHandlerSuite) TestCreateTask() {
	rr := s.serve("POST", "/tasks", strings.NewReader(`{"title": "Write report"}`))

	Expect(rr.Code).To(Equal(http.StatusCreated))
	Expect(rr.Header().Get("Content-Type")).To(ContainSubstring("application/json"))
	Expect(rr.Header().Get(middleware.RequestIDHeader)).NotTo(BeEmpty())

	task := decodeTask(rr)

	Expect(task.ID).To(BeNumerically(">", 0))
	Expect(task.Title).To(Equal("Write report"))
	Expect(task.Done).To(BeFalse())
	Expect(task.CreatedAt).To(Equal(task.UpdatedAt))
}

func (s *TaskHandlerSuite) TestCreateTaskWithEmptyTitle() {
	rr := s.serve("POST", "/tasks", strings.NewReader(`{"title": ""}`))

	Expect(rr.Code).To(Equal(http.StatusCreated))
	Expect(decodeTask(rr).Title).To(BeEmpty())
}

func (s *TaskHandlerSuite) TestCreateTaskWithMalformedBody() {
	rr := s.serve("POST", "/tasks", strings.NewReader(`{"title": `))

	Expect(rr.Code).To(Equal(http.StatusBadRequest))
	Expect(decodeError(rr).Error.Code).To(Equal("BAD_REQUEST"))
}

func (s *TaskHandlerSuite) TestGetTask() {
	created := s.createTask("Read book")

	rr := s.serve("GET", fmt.Sprintf("/tasks/%d", created.ID), nil)

	Expect(rr.Code).To(Equal(http.StatusOK))

	task := decodeTask(rr)
	Expect(task.ID).To(Equal(created.ID))
	Expect(task.Title).To(Equal("Read book"))
}

func (s *TaskHandlerSuite) TestGetTaskNotFound() {
	rr := s.serve("GET", "/tasks/9999", nil)

	Expect(rr.Code).To(Equal(http.StatusNotFound))
	Expect(decodeError(rr).Error.Code).To(Equal("NOT_FOUND"))
}

func (s *TaskHandlerSuite) TestGetTaskInvalidID() {
	for _, id := range []string{"abc", "1.5", "99999999999999999999"} {
		rr := s.serve("GET", "/tasks/"+id, nil)

		Expect(rr.Code).To(Equal(http.StatusBadRequest), id)
		Expect(decodeError(rr).Error.Errors[0].Field).To(Equal("id"))
	}
}

func (s *TaskHandlerSuite) TestNonPositiveIDsAreNotFound() {
	s.createTask("Existing")

	for _, id := range []string{"0", "-1", "-3"} {
		get := s.serve("GET", "/tasks/"+id, nil)
		Expect(get.Code).To(Equal(http.StatusNotFound), id)
		Expect(decodeError(get).Error.Code).To(Equal("NOT_FOUND"))

		done := s.serve("PUT", "/tasks/"+id+"/done", nil)
		Expect(done.Code).To(Equal(http.StatusNotFound), id)

		rename := s.serve("PUT", "/tasks/"+id+"/title", strings.NewReader(`{"title": "x"}`))
		Expect(rename.Code).To(Equal(http.StatusNotFound), id)
	}
}

func (s *TaskHandlerSuite) TestSpansCarryResponseStatus() {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	defer otel.SetTracerProvider(previous)

	created := s.createTask("Traced")

	s.serve("GET", fmt.Sprintf("/tasks/%d", created.ID), nil)
	s.serve("GET", "/tasks/4242", nil)

	var spans []sdktrace.ReadOnlySpan
	for _, span := range recorder.Ended() {
		if span.Name() == "handler.task.GetTask" {
			spans = append(spans, span)
		}
	}

	Expect(spans).To(HaveLen(2))

	Expect(spans[0].Attributes()).To(ContainElement(attribute.Int("http.status_code", http.StatusOK)))
	Expect(spans[0].Attributes()).To(ContainElement(attribute.String("http.route", "/tasks/:id")))
	Expect(spans[0].Events()).To(BeEmpty())

	Expect(spans[1].Attributes()).To(ContainElement(attribute.Int("http.status_code", http.StatusNotFound)))
	Expect(spans[1].Events()).To(HaveLen(1))
	Expect(spans[1].Events()[0].Name).To(Equal("task.not_found"))
}

func (s *TaskHandlerSuite) TestMarkDone() {
	created := s.createTask("Ship release")

	rr := s.serve("PUT", fmt.Sprintf("/tasks/%d/done", created.ID), nil)

	Expect(rr.Code).To(Equal(http.StatusOK))

	task := decodeTask(rr)
	Expect(task.Done).To(BeTrue())
	Expect(task.Title).To(Equal("Ship release"))
	Expect(task.CreatedAt).To(BeTemporally("~", created.CreatedAt, time.Millisecond))
	Expect(task.UpdatedAt).To(BeTemporally(">=", created.UpdatedAt.Truncate(time.Millisecond)))

	again := s.serve("PUT", fmt.Sprintf("/tasks/%d/done", created.ID), nil)

	Expect(again.Code).To(Equal(http.StatusOK))
	Expect(decodeTask(again).Done).To(BeTrue())
}

func (s *TaskHandlerSuite) TestMarkDoneNotFound() {
	rr := s.serve("PUT", "/tasks/9999/done", nil)

	Expect(rr.Code).To(Equal(http.StatusNotFound))
}

func (s *TaskHandlerSuite) TestRenameTask() {
	created := s.createTask("Old title")

	rr := s.serve("PUT", fmt.Sprintf("/tasks/%d/title", created.ID), strings.NewReader(`{"title": "New title"}`))

	Expect(rr.Code).To(Equal(http.StatusOK))

	task := decodeTask(rr)
	Expect(task.ID).To(Equal(created.ID))
	Expect(task.Title).To(Equal("New title"))
	Expect(task.Done).To(BeFalse())
}

func (s *TaskHandlerSuite) TestRenameTaskNotFound() {
	rr := s.serve("PUT", "/tasks/9999/title", strings.NewReader(`{"title": "New title"}`))

	Expect(rr.Code).To(Equal(http.StatusNotFound))
}

func (s *TaskHandlerSuite) TestRenameTaskMalformedBody() {
	created := s.createTask("Old title")

	rr := s.serve("PUT", fmt.Sprintf("/tasks/%d/title", created.ID), strings.NewReader(`[]`))

	Expect(rr.Code).To(Equal(http.StatusBadRequest))
}

func (s *TaskHandlerSuite) TestListTasksEmpty() {
	rr := s.serve("GET", "/tasks", nil)

	Expect(rr.Code).To(Equal(http.StatusOK))
	Expect(rr.Body.String()).To(MatchJSON(`[]`))
}

func (s *TaskHandlerSuite) TestListTasksWithQueryParameters() {
	s.createTask("Foo bar")
	s.createTask("xfoox")
	done := s.createTask("FOO")
	s.createTask("bar")

	_, err := s.TaskRepo.Update(ctx, domain.TaskUpdate{ID: done.ID, Title: done.Title, Done: true})
	s.Require().NoError(err)

	rr := s.serve("GET", "/tasks?title=foo&sort=title&direction=asc", nil)

	Expect(rr.Code).To(Equal(http.StatusOK))
	Expect(taskTitles(decodeTasks(rr))).To(Equal([]string{"FOO", "Foo bar", "xfoox"}))

	rr = s.serve("GET", "/tasks?done=true", nil)

	Expect(rr.Code).To(Equal(http.StatusOK))
	Expect(taskTitles(decodeTasks(rr))).To(Equal([]string{"FOO"}))
}

func (s *TaskHandlerSuite) TestListTasksWithTimeBounds() {
	s.createTask("Recent")

	past := url.Values{"created_after": {time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)}}
	rr := s.serve("GET", "/tasks?"+past.Encode(), nil)

	Expect(rr.Code).To(Equal(http.StatusOK))
	Expect(decodeTasks(rr)).To(HaveLen(1))

	future := url.Values{"created_after": {time.Now().Add(time.Hour).UTC().Format(time.RFC3339)}}
	rr = s.serve("GET", "/tasks?"+future.Encode(), nil)

	Expect(rr.Code).To(Equal(http.StatusOK))
	Expect(decodeTasks(rr)).To(BeEmpty())
}

func (s *TaskHandlerSuite) TestListTasksWithBody() {
	s.createTask("beta")
	s.createTask("alpha")
	s.createTask("gamma")

	body := `{"filters": {"done": false}, "sort": {"field": "title", "direction": "desc"}}`

	// the body wins over the query string
	rr := s.serve("GET", "/tasks?sort=title&direction=asc", strings.NewReader(body))

	Expect(rr.Code).To(Equal(http.StatusOK))
	Expect(taskTitles(decodeTasks(rr))).To(Equal([]string{"gamma", "beta", "alpha"}))
}

func (s *TaskHandlerSuite) TestListTasksInvalidSort() {
	rr := s.serve("GET", "/tasks?sort=priority", nil)

	Expect(rr.Code).To(Equal(http.StatusBadRequest))

	errorResponse := decodeError(rr)
	Expect(errorResponse.Error.Code).To(Equal("VALIDATION_ERROR"))
	Expect(errorResponse.Error.Errors[0].Field).To(Equal("sort"))

	rr = s.serve("GET", "/tasks", strings.NewReader(`{"sort": {"field": "title", "direction": "up"}}`))

	Expect(rr.Code).To(Equal(http.StatusBadRequest))
	Expect(decodeError(rr).Error.Code).To(Equal("VALIDATION_ERROR"))
}

func (s *TaskHandlerSuite) TestListTasksUnparsableQuery() {
	rr := s.serve("GET", "/tasks?done=maybe", nil)

	Expect(rr.Code).To(Equal(http.StatusBadRequest))
	Expect(decodeError(rr).Error.Code).To(Equal("BAD_REQUEST"))

	rr = s.serve("GET", "/tasks?created_after=yesterday", nil)

	Expect(rr.Code).To(Equal(http.StatusBadRequest))
}

func (s *TaskHandlerSuite) TestListTasksMalformedBody() {
	rr := s.serve("GET", "/tasks", strings.NewReader(`{"filters": `))

	Expect(rr.Code).To(Equal(http.StatusBadRequest))
}

type failingService struct{}

var errStoreDown = errors.New("store down")

func (failingService) Create(context.Context, string) (domain.Task, error) {
	return domain.Task{}, errStoreDown
}

func (failingService) Rename(context.Context, int64, string) (*domain.Task, error) {
	return nil, errStoreDown
}

func (failingService) MarkDone(context.Context, int64) (*domain.Task, error) {
	return nil, errStoreDown
}

func (failingService) Get(context.Context, int64) (*domain.Task, error) {
	return nil, errStoreDown
}

func (failingService) Query(context.Context, domain.TaskQuery) ([]domain.Task, error) {
	return nil, errStoreDown
}

func (failingService) List(context.Context) ([]domain.Task, error) {
	return nil, errStoreDown
}

func TestTaskHandler_StoreFailuresAreInternalErrors(t *testing.T) {
	g := NewWithT(t)
	router := setupTaskTestRouter(NewTaskHandler(failingService{}, nil))

	requests := []struct {
		method string
		path   string
		body   string
	}{
		{"GET", "/tasks", ""},
		{"POST", "/tasks", `{"title": "x"}`},
		{"GET", "/tasks/1", ""},
		{"PUT", "/tasks/1/done", ""},
		{"PUT", "/tasks/1/title", `{"title": "x"}`},
	}

	for _, r := range requests {
		var body io.Reader
		if r.body != "" {
			body = strings.NewReader(r.body)
		}

		req, _ := http.NewRequest(r.method, r.path, body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		g.Expect(rr.Code).To(Equal(http.StatusInternalServerError), r.method+" "+r.path)

		var errorResponse response.ErrorResponse
		g.Expect(json.Unmarshal(rr.Body.Bytes(), &errorResponse)).To(Succeed())
		g.Expect(errorResponse.Error.Code).To(Equal("INTERNAL_ERROR"))
		g.Expect(rr.Body.String()).NotTo(ContainSubstring("store down"))
	}
}
