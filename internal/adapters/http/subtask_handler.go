package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Celestial-0/Taskly/internal/application/services"
	"github.com/Celestial-0/Taskly/internal/domain/entities"
	"github.com/Celestial-0/Taskly/internal/infrastructure/logger"
	"github.com/Celestial-0/Taskly/internal/ports"
)

// SubtaskHandler handles subtask-related requests
type SubtaskHandler struct {
	subtaskService *services.SubtaskService
	logger         *logger.Logger
}

// NewSubtaskHandler creates a new subtask handler
func NewSubtaskHandler(subtaskService *services.SubtaskService, logger *logger.Logger) *SubtaskHandler {
	return &SubtaskHandler{
		subtaskService: subtaskService,
		logger:         logger,
	}
}

// CreateSubtask handles subtask creation under a task
func (h *SubtaskHandler) CreateSubtask(c echo.Context) error {
	var req ports.CreateSubtaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	req.TaskID = c.Param("id")

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	subtask, err := h.subtaskService.CreateSubtask(c.Request().Context(), req)
	if err != nil {
		h.logger.Errorw("Create subtask failed", "error", err, "task_id", req.TaskID)
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, subtask)
}

// ListSubtasks handles listing a task's subtasks
func (h *SubtaskHandler) ListSubtasks(c echo.Context) error {
	subtasks, err := h.subtaskService.ListSubtasks(c.Request().Context(), c.Param("id"))
	if err != nil {
		h.logger.Errorw("List subtasks failed", "error", err)
		return c.JSON(http.StatusOK, []*entities.Subtask{})
	}
	if subtasks == nil {
		subtasks = []*entities.Subtask{}
	}

	return c.JSON(http.StatusOK, subtasks)
}

// ToggleSubtask handles subtask completion toggling
func (h *SubtaskHandler) ToggleSubtask(c echo.Context) error {
	subtask, err := h.subtaskService.ToggleCompletion(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, subtask)
}

// MoveSubtask handles reordering; direction is "up" or "down"
func (h *SubtaskHandler) MoveSubtask(c echo.Context) error {
	id := c.Param("id")

	var err error
	switch c.Param("direction") {
	case "up":
		err = h.subtaskService.MoveUp(c.Request().Context(), id)
	case "down":
		err = h.subtaskService.MoveDown(c.Request().Context(), id)
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "Direction must be up or down")
	}
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Subtask moved"})
}

// DeleteSubtask handles subtask deletion
func (h *SubtaskHandler) DeleteSubtask(c echo.Context) error {
	if err := h.subtaskService.DeleteSubtask(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Subtask deleted"})
}
