package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Celestial-0/Taskly/internal/application/services"
	"github.com/Celestial-0/Taskly/internal/domain/entities"
	"github.com/Celestial-0/Taskly/internal/infrastructure/logger"
	"github.com/Celestial-0/Taskly/internal/ports"
)

// MessageResponse is a generic message payload
type MessageResponse struct {
	Message string `json:"message"`
}

// httpError maps domain errors onto HTTP status codes
func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, entities.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Not found")
	case entities.IsValidation(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, entities.ErrSessionActive),
		errors.Is(err, entities.ErrSessionEnded),
		errors.Is(err, entities.ErrSyncInProgress):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal error")
	}
}

// TaskHandler handles task-related requests
type TaskHandler struct {
	taskService *services.TaskService
	logger      *logger.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskService *services.TaskService, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		logger:      logger,
	}
}

// CreateTask handles task creation
func (h *TaskHandler) CreateTask(c echo.Context) error {
	var req ports.CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	task, err := h.taskService.CreateTask(c.Request().Context(), req)
	if err != nil {
		h.logger.Errorw("Create task failed", "error", err)
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, task)
}

// GetTask handles getting a task by ID
func (h *TaskHandler) GetTask(c echo.Context) error {
	task, err := h.taskService.GetTask(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, task)
}

// ListTasks handles task listing with query filters
func (h *TaskHandler) ListTasks(c echo.Context) error {
	var filter ports.TaskFilter

	if v := c.QueryParam("completed"); v != "" {
		completed := v == "true" || v == "1"
		filter.Completed = &completed
	}
	if v := c.QueryParam("priority"); v != "" {
		priority := entities.Priority(v)
		if !priority.Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid priority")
		}
		filter.Priority = &priority
	}
	if v := c.QueryParam("category_id"); v != "" {
		filter.CategoryID = &v
	}
	if v := c.QueryParam("search"); v != "" {
		filter.Search = &v
	}
	if v := c.QueryParam("due_from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid due_from")
		}
		filter.DueFrom = &t
	}
	if v := c.QueryParam("due_to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid due_to")
		}
		filter.DueTo = &t
	}

	tasks, err := h.taskService.ListTasks(c.Request().Context(), filter)
	if err != nil {
		// Fail soft on reads: the client shows "no data" instead of an error page.
		h.logger.Errorw("List tasks failed", "error", err)
		return c.JSON(http.StatusOK, []*entities.Task{})
	}
	if tasks == nil {
		tasks = []*entities.Task{}
	}

	return c.JSON(http.StatusOK, tasks)
}

// UpdateTask handles partial task updates
func (h *TaskHandler) UpdateTask(c echo.Context) error {
	var req ports.UpdateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	task, err := h.taskService.UpdateTask(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		h.logger.Errorw("Update task failed", "error", err, "task_id", c.Param("id"))
		return httpError(err)
	}

	return c.JSON(http.StatusOK, task)
}

// DeleteTask handles task deletion
func (h *TaskHandler) DeleteTask(c echo.Context) error {
	if err := h.taskService.DeleteTask(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Task deleted"})
}

// ToggleTask handles completion toggling
func (h *TaskHandler) ToggleTask(c echo.Context) error {
	task, err := h.taskService.ToggleCompletion(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, task)
}

// TaskStats handles the task statistics endpoint
func (h *TaskHandler) TaskStats(c echo.Context) error {
	stats, err := h.taskService.Stats(c.Request().Context())
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, stats)
}

// SuggestCategory handles categorization suggestions
func (h *TaskHandler) SuggestCategory(c echo.Context) error {
	var req struct {
		Title       string `json:"title" validate:"required"`
		Description string `json:"description"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	suggestion, err := h.taskService.Suggest(c.Request().Context(), req.Title, req.Description)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, suggestion)
}

// CategoryHandler handles category-related requests
type CategoryHandler struct {
	categoryService *services.CategoryService
	logger          *logger.Logger
}

// NewCategoryHandler creates a new category handler
func NewCategoryHandler(categoryService *services.CategoryService, logger *logger.Logger) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
		logger:          logger,
	}
}

// CreateCategory handles category creation
func (h *CategoryHandler) CreateCategory(c echo.Context) error {
	var req ports.CreateCategoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	category, err := h.categoryService.CreateCategory(c.Request().Context(), req)
	if err != nil {
		h.logger.Errorw("Create category failed", "error", err)
		if entities.IsValidation(err) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, category)
}

// ListCategories handles category listing
func (h *CategoryHandler) ListCategories(c echo.Context) error {
	categories, err := h.categoryService.ListCategories(c.Request().Context())
	if err != nil {
		h.logger.Errorw("List categories failed", "error", err)
		return c.JSON(http.StatusOK, []*entities.Category{})
	}
	if categories == nil {
		categories = []*entities.Category{}
	}

	return c.JSON(http.StatusOK, categories)
}

// GetCategory handles getting a category by ID
func (h *CategoryHandler) GetCategory(c echo.Context) error {
	category, err := h.categoryService.GetCategory(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, category)
}

// RenameCategory handles category renaming
func (h *CategoryHandler) RenameCategory(c echo.Context) error {
	var req struct {
		Name string `json:"name" validate:"required,min=1,max=100"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	category, err := h.categoryService.RenameCategory(c.Request().Context(), c.Param("id"), req.Name)
	if err != nil {
		if entities.IsValidation(err) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return httpError(err)
	}

	return c.JSON(http.StatusOK, category)
}

// DeleteCategory handles category deletion with optional task reassignment
func (h *CategoryHandler) DeleteCategory(c echo.Context) error {
	var reassignTo *string
	if v := c.QueryParam("reassign_to"); v != "" {
		reassignTo = &v
	}

	if err := h.categoryService.DeleteCategory(c.Request().Context(), c.Param("id"), reassignTo); err != nil {
		h.logger.Errorw("Delete category failed", "error", err, "category_id", c.Param("id"))
		return httpError(err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Category deleted"})
}

// CategoryStats handles the per-category statistics endpoint
func (h *CategoryHandler) CategoryStats(c echo.Context) error {
	stats, err := h.categoryService.Stats(c.Request().Context())
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, stats)
}
