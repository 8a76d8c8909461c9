package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	httpHandlers "github.com/Celestial-0/Taskly/internal/adapters/http"
	"github.com/Celestial-0/Taskly/internal/adapters/repository"
	"github.com/Celestial-0/Taskly/internal/application/services"
	"github.com/Celestial-0/Taskly/internal/infrastructure/config"
	"github.com/Celestial-0/Taskly/internal/infrastructure/database"
	"github.com/Celestial-0/Taskly/internal/infrastructure/logger"
	"github.com/Celestial-0/Taskly/internal/sync"
)

// Server represents the HTTP server
type Server struct {
	echo        *echo.Echo
	config      *config.Config
	logger      *logger.Logger
	db          *database.DB
	autoSyncer  *sync.AutoSyncer
	timeService *services.TimeService
}

// CustomValidator wraps the validator
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates structs
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// New creates a new server instance
func New(cfg *config.Config, db *database.DB, appLogger *logger.Logger) (*Server, error) {
	e := echo.New()

	// Set custom validator
	e.Validator = &CustomValidator{validator: validator.New()}

	// Configure Echo
	e.HideBanner = true
	e.HidePort = true

	// Custom error handler
	e.HTTPErrorHandler = customErrorHandler(appLogger)

	// Initialize repositories
	syncRecordRepo := repository.NewSyncRecordRepository(db, appLogger)
	taskRepo := repository.NewTaskRepository(db, syncRecordRepo, appLogger)
	categoryRepo := repository.NewCategoryRepository(db, syncRecordRepo, appLogger)
	subtaskRepo := repository.NewSubtaskRepository(db, syncRecordRepo, appLogger)
	sessionRepo := repository.NewTimeSessionRepository(db, syncRecordRepo, appLogger)

	// Initialize services
	categorizer := services.NewKeywordCategorizer()
	taskService := services.NewTaskService(taskRepo, categoryRepo, categorizer, appLogger)
	categoryService := services.NewCategoryService(categoryRepo, appLogger)
	subtaskService := services.NewSubtaskService(subtaskRepo, appLogger)
	timeService := services.NewTimeService(sessionRepo, appLogger)

	// Initialize sync coordinator
	pusher := sync.NewLocalPusher(taskRepo, categoryRepo, subtaskRepo, sessionRepo)
	coordinator := sync.NewCoordinator(syncRecordRepo, pusher, appLogger)

	// Initialize handlers
	taskHandler := httpHandlers.NewTaskHandler(taskService, appLogger)
	categoryHandler := httpHandlers.NewCategoryHandler(categoryService, appLogger)
	subtaskHandler := httpHandlers.NewSubtaskHandler(subtaskService, appLogger)
	timeHandler := httpHandlers.NewTimeHandler(timeService, appLogger)
	syncHandler := httpHandlers.NewSyncHandler(coordinator, syncRecordRepo, db, appLogger)

	server := &Server{
		echo:        e,
		config:      cfg,
		logger:      appLogger,
		db:          db,
		timeService: timeService,
	}

	if cfg.Sync.Auto {
		server.autoSyncer = sync.NewAutoSyncer(coordinator, cfg.Sync.Interval)
	}

	// Setup middleware
	server.setupMiddleware()

	// Setup routes
	server.setupRoutes(taskHandler, categoryHandler, subtaskHandler, timeHandler, syncHandler)

	// Setup metrics
	if cfg.Metrics.Enabled {
		server.setupMetrics()
	}

	return server, nil
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.echo.Use(middleware.Recover())

	// Logger middleware
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogError:     true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			fields := []interface{}{
				"method", values.Method,
				"uri", values.URI,
				"status", values.Status,
				"latency_ms", float64(values.Latency.Nanoseconds()) / 1000000,
				"remote_ip", values.RemoteIP,
				"user_agent", values.UserAgent,
			}

			if values.Error != nil {
				fields = append(fields, "error", values.Error.Error())
				s.logger.Errorw("HTTP request failed", fields...)
			} else {
				s.logger.Infow("HTTP request", fields...)
			}

			return nil
		},
	}))

	// CORS middleware
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: strings.Split(s.config.Security.CORSAllowedOrigins, ","),
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		AllowMethods: []string{echo.GET, echo.HEAD, echo.PUT, echo.PATCH, echo.POST, echo.DELETE},
	}))

	// Rate limiting middleware
	s.echo.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{Rate: rate.Limit(s.config.Security.RateLimitRequests), Burst: s.config.Security.RateLimitRequests, ExpiresIn: s.config.Security.RateLimitWindow},
		),
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			id := ctx.RealIP()
			return id, nil
		},
		ErrorHandler: func(context echo.Context, err error) error {
			return context.JSON(http.StatusForbidden, map[string]string{"message": "rate limit exceeded"})
		},
		DenyHandler: func(context echo.Context, identifier string, err error) error {
			return context.JSON(http.StatusTooManyRequests, map[string]string{"message": "rate limit exceeded"})
		},
	}))

	// Security headers
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
	}))

	// Request ID middleware
	s.echo.Use(middleware.RequestID())

	// Timeout middleware
	s.echo.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: 30 * time.Second,
	}))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(taskHandler *httpHandlers.TaskHandler, categoryHandler *httpHandlers.CategoryHandler, subtaskHandler *httpHandlers.SubtaskHandler, timeHandler *httpHandlers.TimeHandler, syncHandler *httpHandlers.SyncHandler) {
	// Health check routes
	s.echo.GET("/health", syncHandler.Health)
	s.echo.GET("/ready", s.readinessCheck)

	// API v1 routes
	v1 := s.echo.Group("/api/v1")

	// Task routes
	taskGroup := v1.Group("/tasks")
	taskGroup.GET("", taskHandler.ListTasks)
	taskGroup.POST("", taskHandler.CreateTask)
	taskGroup.GET("/stats", taskHandler.TaskStats)
	taskGroup.POST("/suggest-category", taskHandler.SuggestCategory)
	taskGroup.GET("/:id", taskHandler.GetTask)
	taskGroup.PUT("/:id", taskHandler.UpdateTask)
	taskGroup.DELETE("/:id", taskHandler.DeleteTask)
	taskGroup.POST("/:id/toggle", taskHandler.ToggleTask)

	// Subtask routes nested under their task
	taskGroup.GET("/:id/subtasks", subtaskHandler.ListSubtasks)
	taskGroup.POST("/:id/subtasks", subtaskHandler.CreateSubtask)

	subtaskGroup := v1.Group("/subtasks")
	subtaskGroup.POST("/:id/toggle", subtaskHandler.ToggleSubtask)
	subtaskGroup.POST("/:id/move/:direction", subtaskHandler.MoveSubtask)
	subtaskGroup.DELETE("/:id", subtaskHandler.DeleteSubtask)

	// Time tracking routes
	taskGroup.GET("/:id/sessions", timeHandler.ListSessions)
	taskGroup.POST("/:id/sessions", timeHandler.StartSession)
	taskGroup.GET("/:id/sessions/active", timeHandler.ActiveSession)
	taskGroup.GET("/:id/sessions/stats", timeHandler.SessionStats)

	sessionGroup := v1.Group("/sessions")
	sessionGroup.POST("/:id/end", timeHandler.EndSession)
	sessionGroup.POST("/stop-all", timeHandler.StopAllSessions)

	// Category routes
	categoryGroup := v1.Group("/categories")
	categoryGroup.GET("", categoryHandler.ListCategories)
	categoryGroup.POST("", categoryHandler.CreateCategory)
	categoryGroup.GET("/stats", categoryHandler.CategoryStats)
	categoryGroup.GET("/:id", categoryHandler.GetCategory)
	categoryGroup.PUT("/:id", categoryHandler.RenameCategory)
	categoryGroup.DELETE("/:id", categoryHandler.DeleteCategory)

	// Sync routes
	syncGroup := v1.Group("/sync")
	syncGroup.POST("", syncHandler.TriggerSync)
	syncGroup.GET("/status", syncHandler.SyncStatus)
	syncGroup.POST("/:table/:id", syncHandler.ForceSyncRecord)
}

// setupMetrics configures Prometheus metrics
func (s *Server) setupMetrics() {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	registry.MustRegister(requestsTotal, requestDuration)
	sync.RegisterMetrics(registry)

	// Custom metrics middleware
	s.echo.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			duration := time.Since(start)
			status := c.Response().Status

			requestsTotal.WithLabelValues(
				c.Request().Method,
				c.Path(),
				fmt.Sprintf("%d", status),
			).Inc()

			requestDuration.WithLabelValues(
				c.Request().Method,
				c.Path(),
			).Observe(duration.Seconds())

			return err
		}
	})

	// Metrics endpoint
	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	s.echo.GET("/metrics", echo.WrapHandler(metricsHandler))
}

func (s *Server) readinessCheck(c echo.Context) error {
	if err := s.db.HealthCheck(); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": "database_not_ready",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Start starts the HTTP server
func (s *Server) Start(address string) error {
	if s.autoSyncer != nil {
		s.autoSyncer.Start()
	}

	s.logger.Infow("Starting server", "address", address)
	return s.echo.Start(address)
}

// Shutdown gracefully shuts down the server. Active time sessions are
// closed so restarts never leave phantom running timers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server")

	if s.autoSyncer != nil {
		s.autoSyncer.Stop()
	}

	if _, err := s.timeService.StopAll(ctx); err != nil {
		s.logger.WithError(err).Warn("Failed to stop active time sessions")
	}

	return s.echo.Shutdown(ctx)
}

// customErrorHandler handles HTTP errors
func customErrorHandler(logger *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		var (
			code = http.StatusInternalServerError
			msg  interface{}
		)

		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			msg = he.Message
			if he.Internal != nil {
				err = fmt.Errorf("%v, %v", err, he.Internal)
			}
		} else if e, ok := err.(validator.ValidationErrors); ok {
			code = http.StatusBadRequest
			msg = map[string]string{"message": "validation failed", "details": e.Error()}
		} else {
			msg = map[string]string{"message": http.StatusText(code)}
		}

		if code == http.StatusInternalServerError {
			logger.Errorw("Internal server error", "error", err, "path", c.Request().URL.Path)
		}

		// Send response
		if !c.Response().Committed {
			if c.Request().Method == echo.HEAD {
				err = c.NoContent(code)
			} else {
				err = c.JSON(code, msg)
			}
			if err != nil {
				logger.Errorw("Error sending response", "error", err)
			}
		}
	}
}
