package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// handleListUsers returns the user directory, optionally filtered by
// name or email
func (s *Server) handleListUsers(c echo.Context) error {
	users, err := s.svc.Users.List(c.Request().Context(), c.QueryParam("search"))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", echo.Map{"users": users, "count": len(users)})
}

func (s *Server) handleGetUser(c echo.Context) error {
	detail, err := s.svc.Users.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", detail)
}
