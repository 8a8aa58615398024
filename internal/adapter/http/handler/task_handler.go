package handler

import (
	"net/http"

	. "tasktracker/internal/adapter/http/helper"
	. "tasktracker/internal/adapter/http/validation"
	"tasktracker/internal/core/domain"
	"tasktracker/internal/core/model/request"
	"tasktracker/internal/core/model/response"
	"tasktracker/internal/core/port"
	"tasktracker/internal/core/util"
	ct "tasktracker/pkg/context"
	"tasktracker/pkg/logger"
	. "tasktracker/pkg/tracing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type TaskHandler struct {
	svc    port.TaskService
	Logger *logger.LokiLogger
}

func NewTaskHandler(svc port.TaskService, l *logger.LokiLogger) *TaskHandler {
	if l == nil {
		l = logger.NewNopLogger()
	}

	return &TaskHandler{
		svc:    svc,
		Logger: l,
	}
}

// startSpan opens a handler span and carries it on the request context.
func (t *TaskHandler) startSpan(c *gin.Context, operation string) trace.Span {
	ctx, span := CreateChildSpan(c.Request.Context(), "handler.task."+operation, []attribute.KeyValue{
		attribute.String("handler.operation", operation),
		attribute.String("handler.method", c.Request.Method),
		attribute.String("handler.path", c.FullPath()),
	})

	c.Request = c.Request.WithContext(ctx)

	return span
}

// endSpan tags the span with the final response status and ends it.
func (t *TaskHandler) endSpan(c *gin.Context, span trace.Span) {
	AddHTTPAttributes(span, c.Request.Method, c.FullPath(), c.Writer.Status())
	span.End()
}

// ListTasks answers GET /tasks. A JSON body in the shape
// {"filters":{...},"sort":{...}} takes precedence over query parameters.
func (t *TaskHandler) ListTasks(c *gin.Context) {
	span := t.startSpan(c, "ListTasks")
	defer t.endSpan(c, span)

	query, ok := t.bindTaskQuery(c)
	if !ok {
		return
	}

	tasks, err := t.svc.Query(c.Request.Context(), query)

	if err != nil {
		t.internalError(c, span, "Failed to query tasks", err)
		return
	}

	span.SetAttributes(attribute.Int("tasks.count", len(tasks)))

	SendSuccess(c, http.StatusOK, response.NewTaskListResponse(tasks))
}

func (t *TaskHandler) bindTaskQuery(c *gin.Context) (domain.TaskQuery, bool) {
	body, hasBody, err := util.OptionalJSON[request.TaskQueryBody](c)

	if err != nil {
		SendBadRequestError(c, "request", "Invalid query body")
		return domain.TaskQuery{}, false
	}

	if hasBody {
		if err := Validator.Struct(body); err != nil {
			SendValidationError(c, err)
			return domain.TaskQuery{}, false
		}

		return t.toDomain(c, body.ToDomain)
	}

	var params request.TaskQueryParams

	if err := c.ShouldBindQuery(&params); err != nil {
		SendBadRequestError(c, "query", "Invalid query parameters")
		return domain.TaskQuery{}, false
	}

	if err := Validator.Struct(params); err != nil {
		SendValidationError(c, err)
		return domain.TaskQuery{}, false
	}

	return t.toDomain(c, params.ToDomain)
}

func (t *TaskHandler) toDomain(c *gin.Context, convert func() (domain.TaskQuery, error)) (domain.TaskQuery, bool) {
	query, err := convert()

	if err != nil {
		SendBadRequestError(c, "sort", err.Error())
		return domain.TaskQuery{}, false
	}

	return query, true
}

func (t *TaskHandler) CreateTask(c *gin.Context) {
	span := t.startSpan(c, "CreateTask")
	defer t.endSpan(c, span)

	params, err := util.ParamsToMap[request.CreateTaskRequest](c)

	if err != nil {
		SendBadRequestError(c, "request", "Invalid request parameters")
		return
	}

	if err := Validator.Struct(params); err != nil {
		SendValidationError(c, err)
		return
	}

	task, err := t.svc.Create(c.Request.Context(), params.Title)

	if err != nil {
		t.internalError(c, span, "Failed to create task", err)
		return
	}

	span.SetAttributes(attribute.Int64("task.id", task.ID))

	SendSuccess(c, http.StatusCreated, response.NewTaskResponse(task))
}

func (t *TaskHandler) GetTask(c *gin.Context) {
	span := t.startSpan(c, "GetTask")
	defer t.endSpan(c, span)

	id, ok := taskID(c)
	if !ok {
		return
	}

	span.SetAttributes(attribute.Int64("task.id", id))

	task, err := t.svc.Get(c.Request.Context(), id)
	t.respondWithTask(c, span, task, err, "Failed to get task")
}

func (t *TaskHandler) MarkDone(c *gin.Context) {
	span := t.startSpan(c, "MarkDone")
	defer t.endSpan(c, span)

	id, ok := taskID(c)
	if !ok {
		return
	}

	span.SetAttributes(attribute.Int64("task.id", id))

	task, err := t.svc.MarkDone(c.Request.Context(), id)
	t.respondWithTask(c, span, task, err, "Failed to mark task as done")
}

func (t *TaskHandler) RenameTask(c *gin.Context) {
	span := t.startSpan(c, "RenameTask")
	defer t.endSpan(c, span)

	id, ok := taskID(c)
	if !ok {
		return
	}

	params, err := util.ParamsToMap[request.RenameTaskRequest](c)

	if err != nil {
		SendBadRequestError(c, "request", "Invalid request parameters")
		return
	}

	if err := Validator.Struct(params); err != nil {
		SendValidationError(c, err)
		return
	}

	span.SetAttributes(attribute.Int64("task.id", id))

	task, err := t.svc.Rename(c.Request.Context(), id, params.Title)
	t.respondWithTask(c, span, task, err, "Failed to rename task")
}

func (t *TaskHandler) respondWithTask(c *gin.Context, span trace.Span, task *domain.Task, err error, failure string) {
	if err != nil {
		t.internalError(c, span, failure, err)
		return
	}

	if task == nil {
		span.SetAttributes(attribute.Bool("task.found", false))
		AddSpanEvent(span, "task.not_found", []attribute.KeyValue{
			attribute.String("task.id", c.Param("id")),
		})
		SendNotFoundError(c, "Task not found")
		return
	}

	SendSuccess(c, http.StatusOK, response.NewTaskResponse(*task))
}

func (t *TaskHandler) internalError(c *gin.Context, span trace.Span, message string, err error) {
	ctx := c.Request.Context()

	AddSpanError(span, err)

	t.Logger.Error(ctx, message,
		zap.Error(err),
		zap.String("request_id", ct.RequestIDFrom(ctx)),
		zap.String("path", c.Request.URL.Path),
	)

	SendInternalError(c, message)
}

func taskID(c *gin.Context) (int64, bool) {
	id, err := util.IDParam(c, "id")

	if err != nil {
		SendBadRequestError(c, "id", "Task id must be an integer")
		return 0, false
	}

	return id, true
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, response.HealthResponse{Status: "ok"})
}
