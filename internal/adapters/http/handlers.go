package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/xpresstask/core/internal/domain/entities"
	"github.com/xpresstask/core/internal/infrastructure/logger"
	"github.com/xpresstask/core/internal/infrastructure/metrics"
	"github.com/xpresstask/core/internal/ports"
)

// MessageResponse is a plain acknowledgement body
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// AuthHandler handles signup and login
type AuthHandler struct {
	authService ports.AuthService
	metrics     *metrics.Metrics
	logger      *logger.Logger
}

// NewAuthHandler creates a new auth handler. m may be nil.
func NewAuthHandler(authService ports.AuthService, m *metrics.Metrics, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		metrics:     m,
		logger:      logger.WithComponent("auth_handler"),
	}
}

// Signup handles account registration
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param body body ports.CredentialsRequest true "Credentials"
// @Success 201 {object} ports.AuthResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	var req ports.CredentialsRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(err)
	}

	if err := c.Validate(&req); err != nil {
		h.metrics.RecordAuthAttempt("signup", metrics.OutcomeRejected)
		return entities.ErrCredentialsRequired
	}

	response, err := h.authService.Signup(c.Request().Context(), req)
	if err != nil {
		h.record("signup", err)
		if entities.KindOf(err) == entities.KindConflict {
			h.logger.LogSecurityEvent("signup_conflict", req.Username, c.RealIP(), nil)
		}
		return err
	}

	h.metrics.RecordAuthAttempt("signup", metrics.OutcomeSuccess)
	return c.JSON(http.StatusCreated, response)
}

// Login handles user login
// @Summary Log in
// @Tags auth
// @Accept json
// @Produce json
// @Param body body ports.CredentialsRequest true "Credentials"
// @Success 200 {object} ports.AuthResponse
// @Failure 401 {object} ErrorResponse
// @Router /login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req ports.CredentialsRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(err)
	}

	// Blank fields fall through to the service, which rejects them with the
	// same error as a wrong password.
	response, err := h.authService.Login(c.Request().Context(), req)
	if err != nil {
		h.record("login", err)
		if entities.KindOf(err) == entities.KindUnauthorized {
			h.logger.LogSecurityEvent("login_failed", req.Username, c.RealIP(), nil)
		}
		return err
	}

	h.metrics.RecordAuthAttempt("login", metrics.OutcomeSuccess)
	return c.JSON(http.StatusOK, response)
}

func (h *AuthHandler) record(operation string, err error) {
	if entities.KindOf(err) == entities.KindInternal {
		h.metrics.RecordAuthAttempt(operation, metrics.OutcomeError)
		return
	}
	h.metrics.RecordAuthAttempt(operation, metrics.OutcomeRejected)
}

// TaskHandler handles task-related requests
type TaskHandler struct {
	taskService ports.TaskService
	logger      *logger.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskService ports.TaskService, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		logger:      logger.WithComponent("task_handler"),
	}
}

// ListAll handles the public task listing
// @Summary List every task
// @Tags tasks
// @Produce json
// @Success 200 {array} entities.Task
// @Router / [get]
func (h *TaskHandler) ListAll(c echo.Context) error {
	tasks, err := h.taskService.ListAll(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tasks)
}

// ListMine handles listing the caller's tasks
// @Summary List the caller's tasks
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Success 200 {array} entities.Task
// @Failure 401 {object} ErrorResponse
// @Router /user/tasks [get]
func (h *TaskHandler) ListMine(c echo.Context) error {
	identity, ok := IdentityFromContext(c)
	if !ok {
		return entities.ErrMissingToken
	}

	tasks, err := h.taskService.ListMine(c.Request().Context(), identity)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tasks)
}

// Create handles task creation
// @Summary Create a task owned by the caller
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body ports.TaskRequest true "Task"
// @Success 201 {object} entities.Task
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /tasks [post]
func (h *TaskHandler) Create(c echo.Context) error {
	identity, ok := IdentityFromContext(c)
	if !ok {
		return entities.ErrMissingToken
	}

	req, err := h.bindTask(c)
	if err != nil {
		return err
	}

	task, err := h.taskService.Create(c.Request().Context(), identity, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, task)
}

// Update handles task updates
// @Summary Update a task
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path int true "Task ID"
// @Param body body ports.TaskRequest true "Task"
// @Success 200 {object} entities.Task
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /tasks/{id} [put]
func (h *TaskHandler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	req, err := h.bindTask(c)
	if err != nil {
		return err
	}

	task, err := h.taskService.Update(c.Request().Context(), id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, task)
}

// Delete handles task deletion
// @Summary Delete a task
// @Tags tasks
// @Produce json
// @Param id path int true "Task ID"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /tasks/{id} [delete]
func (h *TaskHandler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	if err := h.taskService.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "task deleted"})
}

func (h *TaskHandler) bindTask(c echo.Context) (ports.TaskRequest, error) {
	var req ports.TaskRequest
	if err := c.Bind(&req); err != nil {
		return req, invalidBody(err)
	}
	if err := c.Validate(&req); err != nil {
		return req, entities.ErrTitleRequired
	}
	return req, nil
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, entities.NewValidationError("invalid task id")
	}
	return id, nil
}

func invalidBody(err error) error {
	return &entities.Error{Kind: entities.KindValidation, Message: "invalid request body", Err: err}
}
