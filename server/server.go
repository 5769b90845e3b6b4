package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/existflow/taskboard/internal/auth"
	"github.com/existflow/taskboard/internal/config"
	"github.com/existflow/taskboard/internal/logger"
	"github.com/existflow/taskboard/internal/metrics"
	"github.com/existflow/taskboard/internal/service"
	"github.com/existflow/taskboard/internal/store"
)

// Server is the taskboard REST API
type Server struct {
	cfg     *config.Config
	store   store.Store
	svc     *service.Services
	tokens  *auth.TokenManager
	metrics *metrics.Metrics
	echo    *echo.Echo
}

// New creates a server over an opened, migrated store
func New(cfg *config.Config, st store.Store) *Server {
	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.ExpiresIn, cfg.JWT.Issuer)
	m := metrics.New()

	s := &Server{
		cfg:     cfg,
		store:   st,
		svc:     service.New(st, tokens, m, cfg.Seed.Value),
		tokens:  tokens,
		metrics: m,
	}
	s.setupEcho()
	return s
}

func (s *Server) setupEcho() {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.requestLogger)
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     s.cfg.Server.CORSOrigins,
		AllowCredentials: true,
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	e.GET("/health", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))

	api := e.Group("/api")
	api.GET("/health", s.handleHealth)

	// Auth endpoints (public). Middleware is attached per route so unknown
	// paths still reach the 404 handler.
	limit := s.rateLimiter()
	api.POST("/auth/register", s.handleRegister, limit)
	api.POST("/auth/login", s.handleLogin, limit)
	api.POST("/auth/logout", s.handleLogout)

	if s.cfg.Seed.Enabled {
		api.POST("/seed", s.handleSeed)
	}

	// Protected endpoints
	authed := s.authMiddleware
	api.GET("/auth/me", s.handleMe, authed)
	api.PUT("/auth/profile", s.handleUpdateProfile, authed)
	api.PUT("/auth/password", s.handleChangePassword, authed)

	api.GET("/projects", s.handleListProjects, authed)
	api.POST("/projects", s.handleCreateProject, authed)
	api.GET("/projects/:id", s.handleGetProject, authed)
	api.PUT("/projects/:id", s.handleUpdateProject, authed)
	api.DELETE("/projects/:id", s.handleDeleteProject, authed)

	api.GET("/tasks", s.handleListTasks, authed)
	api.POST("/tasks", s.handleCreateTask, authed)
	api.GET("/tasks/:id", s.handleGetTask, authed)
	api.PUT("/tasks/:id", s.handleUpdateTask, authed)
	api.DELETE("/tasks/:id", s.handleDeleteTask, authed)
	api.PATCH("/tasks/:id/subtasks/:subtaskId/toggle", s.handleToggleSubtask, authed)

	api.GET("/tasks/:id/comments", s.handleListComments, authed)
	api.POST("/tasks/:id/comments", s.handleCreateComment, authed)
	api.DELETE("/comments/:id", s.handleDeleteComment, authed)

	api.GET("/users", s.handleListUsers, authed)
	api.GET("/users/:id", s.handleGetUser, authed)

	api.GET("/analytics", s.handleAnalytics, authed)
	api.GET("/search", s.handleSearch, authed)
	api.GET("/activity", s.handleActivity, authed)
	api.GET("/activity/project/:projectId", s.handleProjectActivity, authed)

	s.echo = e
}

// Router returns the HTTP handler
func (s *Server) Router() http.Handler {
	return s.echo
}

// Start listens on the configured port and blocks until the server stops
func (s *Server) Start() error {
	logger.Info("Server starting",
		logger.F("addr", s.cfg.Addr()),
		logger.F("environment", s.cfg.Environment),
		logger.F("seed_endpoint", s.cfg.Seed.Enabled))
	return s.echo.Start(s.cfg.Addr())
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	database := "ok"
	if err := s.store.Ping(ctx); err != nil {
		logger.Warn("Health check failed", logger.Err(err))
		status = http.StatusServiceUnavailable
		database = "unavailable"
	}
	return c.JSON(status, envelope{
		Success: status == http.StatusOK,
		Message: "Server is running",
		Data: echo.Map{
			"database":  database,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}
