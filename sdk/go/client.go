package tasklinesdk

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
)

// Client is a minimal Taskline HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v1",
		Timeout:  10 * time.Second,
	}
}

// Task represents the API task model.
type Task struct {
	ID             int64   `json:"id"`
	OwnerID        int64   `json:"owner_id"`
	OwnerName      string  `json:"owner_name,omitempty"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Priority       string  `json:"priority"`
	Status         string  `json:"status"`
	Overdue        bool    `json:"overdue"`
	DueDate        string  `json:"due_date"`
	CreatedAt      string  `json:"created_at"`
	CompletedAt    *string `json:"completed_at,omitempty"`
	AssignedByName string  `json:"assigned_by_name,omitempty"`
	Instructions   string  `json:"instructions,omitempty"`
	Version        int     `json:"version"`
}

// NewTask is the payload of CreateTask.
type NewTask struct {
	OwnerID      int64  `json:"owner_id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Priority     string `json:"priority,omitempty"`
	DueDate      string `json:"due_date"`
	Instructions string `json:"instructions,omitempty"`
}

// Attachment is attachment metadata.
type Attachment struct {
	ID         int64  `json:"id"`
	TaskID     int64  `json:"task_id"`
	FileName   string `json:"file_name"`
	MediaType  string `json:"media_type"`
	SizeBytes  int64  `json:"size_bytes"`
	SHA256     string `json:"sha256"`
	UploadedAt string `json:"uploaded_at"`
}

type Statistics struct {
	Total          int     `json:"total"`
	Pending        int     `json:"pending"`
	InProgress     int     `json:"in_progress"`
	Completed      int     `json:"completed"`
	Overdue        int     `json:"overdue"`
	HighPriority   int     `json:"high_priority"`
	MediumPriority int     `json:"medium_priority"`
	LowPriority    int     `json:"low_priority"`
	CompletionRate float64 `json:"completion_rate"`
}

// Filters narrow task listings. Zero values are omitted.
type Filters struct {
	Status   string
	Priority string
	OwnerID  int64
	DateFrom string
	DateTo   string
}

func (f Filters) query() url.Values {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("status", f.Status)
	set("priority", f.Priority)
	set("date_from", f.DateFrom)
	set("date_to", f.DateTo)
	if f.OwnerID != 0 {
		q.Set("owner_id", strconv.FormatInt(f.OwnerID, 10))
	}
	return q
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// NotFound reports a 404, which is also what a task owned by someone else looks like.
func (e *APIError) NotFound() bool { return e.StatusCode == http.StatusNotFound }

type taskList struct {
	Tasks []Task `json:"tasks"`
}

// CreateTask creates a task (admin).
func (c *Client) CreateTask(ctx context.Context, t NewTask) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPost, "tasks", t, &resp)
	return resp, err
}

// AssignPredefined assigns a catalog task (admin).
func (c *Client) AssignPredefined(ctx context.Context, category, title string, ownerID int64, dueDate string) (Task, error) {
	body := map[string]any{
		"category": category,
		"title":    title,
		"owner_id": ownerID,
		"due_date": dueDate,
	}
	var resp Task
	err := c.do(ctx, http.MethodPost, "tasks/predefined", body, &resp)
	return resp, err
}

// GetTask fetches a task by id.
func (c *Client) GetTask(ctx context.Context, id int64) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("tasks/%d", id), nil, &resp)
	return resp, err
}

// MyTasks lists the caller's tasks by due date.
func (c *Client) MyTasks(ctx context.Context, status, priority string) ([]Task, error) {
	var resp taskList
	err := c.do(ctx, http.MethodGet, withQuery("me/tasks", Filters{Status: status, Priority: priority}.query()), nil, &resp)
	return resp.Tasks, err
}

// ListTasks lists every task, newest first (admin).
func (c *Client) ListTasks(ctx context.Context, f Filters) ([]Task, error) {
	var resp taskList
	err := c.do(ctx, http.MethodGet, withQuery("tasks", f.query()), nil, &resp)
	return resp.Tasks, err
}

// Overdue lists the caller's overdue tasks.
func (c *Client) Overdue(ctx context.Context) ([]Task, error) {
	var resp taskList
	err := c.do(ctx, http.MethodGet, "me/tasks/overdue", nil, &resp)
	return resp.Tasks, err
}

// DueSoon lists the caller's pending tasks due within days.
func (c *Client) DueSoon(ctx context.Context, days int) ([]Task, error) {
	var resp taskList
	err := c.do(ctx, http.MethodGet, withQuery("me/tasks/due-soon", url.Values{"days": {strconv.Itoa(days)}}), nil, &resp)
	return resp.Tasks, err
}

// UpdateStatus moves a task to status.
func (c *Client) UpdateStatus(ctx context.Context, id int64, status string) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("tasks/%d/status", id), map[string]string{"status": status}, &resp)
	return resp, err
}

// UpdateFields edits title, description, priority, due_date or instructions.
func (c *Client) UpdateFields(ctx context.Context, id int64, fields map[string]any) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("tasks/%d", id), fields, &resp)
	return resp, err
}

func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("tasks/%d", id), nil, nil)
}

// MyStatistics returns statistics over the caller's tasks.
func (c *Client) MyStatistics(ctx context.Context, dateFrom, dateTo string) (Statistics, error) {
	var resp Statistics
	err := c.do(ctx, http.MethodGet, withQuery("me/statistics", Filters{DateFrom: dateFrom, DateTo: dateTo}.query()), nil, &resp)
	return resp, err
}

// Statistics returns statistics across owners (admin).
func (c *Client) Statistics(ctx context.Context, f Filters) (Statistics, error) {
	var resp Statistics
	q := Filters{OwnerID: f.OwnerID, DateFrom: f.DateFrom, DateTo: f.DateTo}.query()
	err := c.do(ctx, http.MethodGet, withQuery("statistics", q), nil, &resp)
	return resp, err
}

// Upload attaches data to a task under name.
func (c *Client) Upload(ctx context.Context, taskID int64, name, contentType string, data []byte) (Attachment, error) {
	var resp Attachment
	endpoint := withQuery(fmt.Sprintf("tasks/%d/attachments", taskID), url.Values{"file_name": {name}})
	err := c.send(ctx, http.MethodPost, endpoint, contentType, bytes.NewReader(data), func(res *http.Response) error {
		return json.NewDecoder(res.Body).Decode(&resp)
	})
	return resp, err
}

// Attachments lists a task's attachments, newest first.
func (c *Client) Attachments(ctx context.Context, taskID int64) ([]Attachment, error) {
	var resp struct {
		Attachments []Attachment `json:"attachments"`
	}
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("tasks/%d/attachments", taskID), nil, &resp)
	return resp.Attachments, err
}

// Download returns an attachment's bytes and media type.
func (c *Client) Download(ctx context.Context, taskID, attachmentID int64) ([]byte, string, error) {
	var data []byte
	var mediaType string
	err := c.send(ctx, http.MethodGet, fmt.Sprintf("tasks/%d/attachments/%d", taskID, attachmentID), "", nil, func(res *http.Response) error {
		mediaType = res.Header.Get("Content-Type")
		var err error
		data, err = io.ReadAll(res.Body)
		return err
	})
	return data, mediaType, err
}

func (c *Client) DeleteAttachment(ctx context.Context, taskID, attachmentID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("tasks/%d/attachments/%d", taskID, attachmentID), nil, nil)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	var reader io.Reader
	contentType := ""
	if body != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
		reader = &buf
		contentType = "application/json"
	}
	return c.send(ctx, method, endpoint, contentType, reader, func(res *http.Response) error {
		if out == nil || res.StatusCode == http.StatusNoContent {
			return nil
		}
		return json.NewDecoder(res.Body).Decode(out)
	})
}

func (c *Client) send(ctx context.Context, method, endpoint, contentType string, body io.Reader, read func(*http.Response) error) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base()+"/"+strings.TrimLeft(endpoint, "/"), body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}
	return read(resp)
}

func withQuery(endpoint string, q url.Values) string {
	if len(q) == 0 {
		return endpoint
	}
	return endpoint + "?" + q.Encode()
}

func (c *Client) base() string {
	base := strings.TrimRight(c.BaseURL, "/")
	if p := strings.Trim(c.BasePath, "/"); p != "" {
		base += "/" + p
	}
	return base
}
