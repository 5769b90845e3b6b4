package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/existflow/taskboard/internal/service"
)

func (s *Server) handleListProjects(c echo.Context) error {
	var in service.ProjectListInput
	if err := bind(c, &in); err != nil {
		return err
	}

	projects, err := s.svc.Projects.List(c.Request().Context(), identity(c), in)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", echo.Map{"projects": projects, "count": len(projects)})
}

func (s *Server) handleGetProject(c echo.Context) error {
	project, err := s.svc.Projects.Get(c.Request().Context(), identity(c), c.Param("id"))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", echo.Map{"project": project})
}

func (s *Server) handleCreateProject(c echo.Context) error {
	var in service.CreateProjectInput
	if err := bind(c, &in); err != nil {
		return err
	}

	project, err := s.svc.Projects.Create(c.Request().Context(), identity(c), in)
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, "Project created successfully", echo.Map{"project": project})
}

func (s *Server) handleUpdateProject(c echo.Context) error {
	var in service.UpdateProjectInput
	if err := bind(c, &in); err != nil {
		return err
	}

	project, err := s.svc.Projects.Update(c.Request().Context(), identity(c), c.Param("id"), in)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Project updated successfully", echo.Map{"project": project})
}

// handleDeleteProject removes a project with its tasks, their comments and
// the project's activity
func (s *Server) handleDeleteProject(c echo.Context) error {
	removed, err := s.svc.Projects.Delete(c.Request().Context(), identity(c), c.Param("id"))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Project and all associated data deleted successfully", echo.Map{"deleted": removed})
}
