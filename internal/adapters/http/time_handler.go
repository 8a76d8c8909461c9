package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Celestial-0/Taskly/internal/application/services"
	"github.com/Celestial-0/Taskly/internal/domain/entities"
	"github.com/Celestial-0/Taskly/internal/infrastructure/logger"
	"github.com/Celestial-0/Taskly/internal/ports"
)

// TimeHandler handles time tracking requests
type TimeHandler struct {
	timeService *services.TimeService
	logger      *logger.Logger
}

// NewTimeHandler creates a new time tracking handler
func NewTimeHandler(timeService *services.TimeService, logger *logger.Logger) *TimeHandler {
	return &TimeHandler{
		timeService: timeService,
		logger:      logger,
	}
}

// StartSession handles starting a session for a task
func (h *TimeHandler) StartSession(c echo.Context) error {
	var req ports.StartSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	req.TaskID = c.Param("id")

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	session, err := h.timeService.StartSession(c.Request().Context(), req)
	if err != nil {
		h.logger.Errorw("Start session failed", "error", err, "task_id", req.TaskID)
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, session)
}

// EndSession handles ending a session
func (h *TimeHandler) EndSession(c echo.Context) error {
	session, err := h.timeService.EndSession(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, session)
}

// ListSessions handles listing a task's sessions
func (h *TimeHandler) ListSessions(c echo.Context) error {
	sessions, err := h.timeService.ListSessions(c.Request().Context(), c.Param("id"))
	if err != nil {
		h.logger.Errorw("List sessions failed", "error", err)
		return c.JSON(http.StatusOK, []*entities.TimeSession{})
	}
	if sessions == nil {
		sessions = []*entities.TimeSession{}
	}

	return c.JSON(http.StatusOK, sessions)
}

// ActiveSession handles fetching the currently running session for a task
func (h *TimeHandler) ActiveSession(c echo.Context) error {
	session, err := h.timeService.ActiveSession(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, session)
}

// SessionStats handles the per-task time statistics endpoint
func (h *TimeHandler) SessionStats(c echo.Context) error {
	stats, err := h.timeService.Stats(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, struct {
		*entities.TimeStats
		Human string `json:"human_total"`
	}{stats, stats.HumanTotal()})
}

// StopAllSessions handles the stop-everything endpoint
func (h *TimeHandler) StopAllSessions(c echo.Context) error {
	stopped, err := h.timeService.StopAll(c.Request().Context())
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, map[string]int{"stopped": stopped})
}
