package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/xpresstask/core/internal/domain/entities"
	"github.com/xpresstask/core/internal/infrastructure/logger"
	"github.com/xpresstask/core/internal/ports"
)

var (
	// ErrLoginRequired is returned when a call needs a token and none is stored
	ErrLoginRequired = errors.New("login required")
	// ErrDeleteCancelled is returned when the confirmation was declined
	ErrDeleteCancelled = errors.New("delete cancelled")
)

// APIError is a non-2xx answer from the API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the API
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// Client talks to the XpressTask HTTP API on behalf of one session
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *Session
	logger     *logger.Logger
}

// New creates a client for the API at baseURL
func New(baseURL string, session *Session, log *logger.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		session:    session,
		logger:     log.WithComponent("client"),
	}
}

// Session returns the session the client acts for
func (c *Client) Session() *Session {
	return c.session
}

// Signup registers an account and stores the returned token
func (c *Client) Signup(ctx context.Context, username, password string) (*ports.AuthResponse, error) {
	return c.authenticate(ctx, "/signup", username, password)
}

// Login authenticates and stores the returned token
func (c *Client) Login(ctx context.Context, username, password string) (*ports.AuthResponse, error) {
	return c.authenticate(ctx, "/login", username, password)
}

func (c *Client) authenticate(ctx context.Context, path, username, password string) (*ports.AuthResponse, error) {
	var resp ports.AuthResponse
	err := c.do(ctx, http.MethodPost, path, false, ports.CredentialsRequest{Username: username, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	if err := c.session.SetToken(resp.Token); err != nil {
		return nil, fmt.Errorf("save token: %w", err)
	}
	return &resp, nil
}

// Logout forgets the stored token
func (c *Client) Logout() error {
	return c.session.Logout()
}

// AllTasks fetches the public task list. A rejected token is dropped
// without asking for a new login.
func (c *Client) AllTasks(ctx context.Context) ([]entities.Task, error) {
	var tasks []entities.Task
	err := c.do(ctx, http.MethodGet, "/", true, nil, &tasks)
	if err != nil {
		if IsUnauthorized(err) {
			c.session.Discard()
		}
		c.logger.Errorw("Error fetching tasks", "error", err)
		return nil, err
	}
	return tasks, nil
}

// MyTasks fetches the caller's tasks. Any failure ends the session and asks
// for a login after the grace period.
func (c *Client) MyTasks(ctx context.Context) ([]entities.Task, error) {
	if !c.session.LoggedIn() {
		c.session.RequireLogin()
		return nil, ErrLoginRequired
	}

	var tasks []entities.Task
	if err := c.do(ctx, http.MethodGet, "/user/tasks", true, nil, &tasks); err != nil {
		c.logger.Errorw("Error fetching own tasks", "error", err)
		c.session.Reject()
		return nil, err
	}
	return tasks, nil
}

// Revalidate re-checks the session, for example when the user returns to
// the dashboard
func (c *Client) Revalidate(ctx context.Context) error {
	_, err := c.MyTasks(ctx)
	return err
}

// CreateTask creates a task owned by the logged-in user
func (c *Client) CreateTask(ctx context.Context, req ports.TaskRequest) (*entities.Task, error) {
	var task entities.Task
	if err := c.do(ctx, http.MethodPost, "/tasks", true, req, &task); err != nil {
		c.logger.Errorw("Error creating task", "error", err)
		return nil, err
	}
	return &task, nil
}

// UpdateTask overwrites a task's fields
func (c *Client) UpdateTask(ctx context.Context, id int64, req ports.TaskRequest) (*entities.Task, error) {
	var task entities.Task
	if err := c.do(ctx, http.MethodPut, taskPath(id), false, req, &task); err != nil {
		c.logger.Errorw("Error updating task", "task_id", id, "error", err)
		return nil, err
	}
	return &task, nil
}

// DeleteTask removes a task once confirm agrees; nothing is sent otherwise
func (c *Client) DeleteTask(ctx context.Context, id int64, confirm func() bool) error {
	if confirm == nil || !confirm() {
		return ErrDeleteCancelled
	}

	if err := c.do(ctx, http.MethodDelete, taskPath(id), false, nil, nil); err != nil {
		c.logger.Errorw("Error deleting task", "task_id", id, "error", err)
		return err
	}
	return nil
}

func taskPath(id int64) string {
	return "/tasks/" + strconv.FormatInt(id, 10)
}

func (c *Client) do(ctx context.Context, method, path string, withToken bool, body, out interface{}) error {
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
	if withToken {
		c.session.Authorize(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errBody struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &errBody) == nil {
			apiErr.Message = errBody.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
