package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tasktracker/internal/core/domain"
	"tasktracker/internal/core/model/request"
	"tasktracker/internal/core/model/response"
)

// StatusError is returned for any non-2xx answer other than 404.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d %s: %s", e.StatusCode, e.Code, e.Message)
	}

	return fmt.Sprintf("api error %d", e.StatusCode)
}

// Client talks to the task HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: 10 * time.Second})
}

func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// ListTasks runs a query through the GET /tasks query-string encoding.
func (c *Client) ListTasks(ctx context.Context, query domain.TaskQuery) ([]domain.Task, error) {
	var tasks []response.TaskResponse

	if err := c.do(ctx, http.MethodGet, "/tasks?"+encodeQuery(query).Encode(), nil, &tasks); err != nil {
		return nil, err
	}

	out := make([]domain.Task, len(tasks))
	for i, task := range tasks {
		out[i] = task.ToDomain()
	}

	return out, nil
}

func (c *Client) CreateTask(ctx context.Context, title string) (domain.Task, error) {
	var task response.TaskResponse

	if err := c.do(ctx, http.MethodPost, "/tasks", request.CreateTaskRequest{Title: title}, &task); err != nil {
		return domain.Task{}, err
	}

	return task.ToDomain(), nil
}

// GetTask returns domain.ErrTaskNotFound when the id is unknown.
func (c *Client) GetTask(ctx context.Context, id int64) (domain.Task, error) {
	return c.taskCall(ctx, http.MethodGet, taskPath(id), nil)
}

func (c *Client) MarkDone(ctx context.Context, id int64) (domain.Task, error) {
	return c.taskCall(ctx, http.MethodPut, taskPath(id)+"/done", nil)
}

func (c *Client) RenameTask(ctx context.Context, id int64, title string) (domain.Task, error) {
	return c.taskCall(ctx, http.MethodPut, taskPath(id)+"/title", request.RenameTaskRequest{Title: title})
}

func (c *Client) taskCall(ctx context.Context, method, path string, body any) (domain.Task, error) {
	var task response.TaskResponse

	if err := c.do(ctx, method, path, body, &task); err != nil {
		return domain.Task{}, err
	}

	return task.ToDomain(), nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrTaskNotFound
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func decodeError(resp *http.Response) error {
	statusErr := &StatusError{StatusCode: resp.StatusCode}

	var envelope response.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil {
		statusErr.Code = envelope.Error.Code

		if len(envelope.Error.Errors) > 0 {
			statusErr.Message = envelope.Error.Errors[0].Message
		}
	}

	return statusErr
}

func taskPath(id int64) string {
	return "/tasks/" + strconv.FormatInt(id, 10)
}

func encodeQuery(query domain.TaskQuery) url.Values {
	values := url.Values{}

	if f := query.Filters; f != nil {
		if f.Done != nil {
			values.Set("done", strconv.FormatBool(*f.Done))
		}
		if f.Title != nil {
			values.Set("title", *f.Title)
		}

		setTime(values, "created_after", f.CreatedAfter)
		setTime(values, "created_before", f.CreatedBefore)
		setTime(values, "updated_after", f.UpdatedAfter)
		setTime(values, "updated_before", f.UpdatedBefore)
	}

	if s := query.Sort; s != nil {
		values.Set("sort", string(s.Field))

		if s.Direction != "" {
			values.Set("direction", string(s.Direction))
		}
	}

	return values
}

func setTime(values url.Values, key string, t *time.Time) {
	if t != nil {
		values.Set(key, t.UTC().Format(time.RFC3339Nano))
	}
}
