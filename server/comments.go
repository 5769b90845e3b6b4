package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/existflow/taskboard/internal/service"
)

func (s *Server) handleListComments(c echo.Context) error {
	comments, err := s.svc.Comments.List(c.Request().Context(), identity(c), c.Param("id"))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", echo.Map{"comments": comments})
}

func (s *Server) handleCreateComment(c echo.Context) error {
	var in service.CommentInput
	if err := bind(c, &in); err != nil {
		return err
	}

	comment, err := s.svc.Comments.Create(c.Request().Context(), identity(c), c.Param("id"), in)
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, "Comment added", echo.Map{"comment": comment})
}

func (s *Server) handleDeleteComment(c echo.Context) error {
	if err := s.svc.Comments.Delete(c.Request().Context(), identity(c), c.Param("id")); err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Comment deleted", nil)
}
