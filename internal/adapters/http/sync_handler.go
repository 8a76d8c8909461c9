package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Celestial-0/Taskly/internal/infrastructure/database"
	"github.com/Celestial-0/Taskly/internal/infrastructure/logger"
	"github.com/Celestial-0/Taskly/internal/ports"
	"github.com/Celestial-0/Taskly/internal/sync"
)

// SyncHandler exposes the sync coordinator over HTTP
type SyncHandler struct {
	coordinator *sync.Coordinator
	records     ports.SyncRecordRepository
	db          *database.DB
	logger      *logger.Logger
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(coordinator *sync.Coordinator, records ports.SyncRecordRepository, db *database.DB, logger *logger.Logger) *SyncHandler {
	return &SyncHandler{
		coordinator: coordinator,
		records:     records,
		db:          db,
		logger:      logger,
	}
}

// TriggerSync handles a manual sync request. A sync already in flight
// maps to 409 through the shared error translator.
func (h *SyncHandler) TriggerSync(c echo.Context) error {
	result, err := h.coordinator.PerformSync(c.Request().Context())
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, result)
}

// ForceSyncRecord handles re-pushing every queued change for one record
func (h *SyncHandler) ForceSyncRecord(c echo.Context) error {
	result, err := h.coordinator.ForceSyncRecord(c.Request().Context(), c.Param("table"), c.Param("id"))
	if err != nil {
		h.logger.Errorw("Force sync failed", "error", err, "table", c.Param("table"), "record_id", c.Param("id"))
		return httpError(err)
	}

	return c.JSON(http.StatusOK, result)
}

// SyncStatus handles reporting the coordinator state and queue depth
func (h *SyncHandler) SyncStatus(c echo.Context) error {
	pending, err := h.records.Count(c.Request().Context())
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"state":   h.coordinator.State(),
		"pending": pending,
	})
}

// Health handles the liveness endpoint
func (h *SyncHandler) Health(c echo.Context) error {
	if err := h.db.HealthCheck(); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}
