package server

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/existflow/taskboard/internal/apperr"
	"github.com/existflow/taskboard/internal/logger"
)

func (s *Server) handleAnalytics(c echo.Context) error {
	overview, err := s.svc.Analytics.Overview(c.Request().Context(), identity(c))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", overview)
}

func (s *Server) handleSearch(c echo.Context) error {
	result, err := s.svc.Search.Search(c.Request().Context(), identity(c), c.QueryParam("q"))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", result)
}

func (s *Server) handleActivity(c echo.Context) error {
	limit, err := limitParam(c)
	if err != nil {
		return err
	}

	entries, err := s.svc.Activity.Feed(c.Request().Context(), identity(c), limit)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", echo.Map{"activities": entries})
}

func (s *Server) handleProjectActivity(c echo.Context) error {
	limit, err := limitParam(c)
	if err != nil {
		return err
	}

	entries, err := s.svc.Activity.ProjectFeed(c.Request().Context(), identity(c), c.Param("projectId"), limit)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", echo.Map{"activities": entries})
}

// limitParam reads the optional limit query parameter. Zero selects the
// feed's default.
func limitParam(c echo.Context) (int, error) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.Invalid("Validation error", apperr.FieldError{Field: "limit", Message: "limit must be a positive number"})
	}
	return n, nil
}

// handleSeed replaces all data with the demo data set
func (s *Server) handleSeed(c echo.Context) error {
	summary, err := s.svc.Seeder.Seed(c.Request().Context())
	if err != nil {
		return err
	}
	logger.Info("Database seeded",
		logger.F("users", summary.Users),
		logger.F("projects", summary.Projects),
		logger.F("tasks", summary.Tasks))
	return ok(c, http.StatusOK, "Database seeded successfully", summary)
}
