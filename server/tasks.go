package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/existflow/taskboard/internal/service"
)

// handleListTasks returns the tasks visible to the caller, filtered by the
// query string
func (s *Server) handleListTasks(c echo.Context) error {
	var in service.TaskListInput
	if err := bind(c, &in); err != nil {
		return err
	}

	tasks, err := s.svc.Tasks.List(c.Request().Context(), identity(c), in)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", echo.Map{"tasks": tasks, "count": len(tasks)})
}

func (s *Server) handleGetTask(c echo.Context) error {
	task, err := s.svc.Tasks.Get(c.Request().Context(), identity(c), c.Param("id"))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", echo.Map{"task": task})
}

func (s *Server) handleCreateTask(c echo.Context) error {
	var in service.CreateTaskInput
	if err := bind(c, &in); err != nil {
		return err
	}

	task, err := s.svc.Tasks.Create(c.Request().Context(), identity(c), in)
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, "Task created successfully", echo.Map{"task": task})
}

func (s *Server) handleUpdateTask(c echo.Context) error {
	var in service.UpdateTaskInput
	if err := bind(c, &in); err != nil {
		return err
	}

	task, err := s.svc.Tasks.Update(c.Request().Context(), identity(c), c.Param("id"), in)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Task updated successfully", echo.Map{"task": task})
}

func (s *Server) handleToggleSubtask(c echo.Context) error {
	task, err := s.svc.Tasks.ToggleSubtask(c.Request().Context(), identity(c), c.Param("id"), c.Param("subtaskId"))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", echo.Map{"task": task})
}

func (s *Server) handleDeleteTask(c echo.Context) error {
	if err := s.svc.Tasks.Delete(c.Request().Context(), identity(c), c.Param("id")); err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Task deleted successfully", nil)
}
