package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/existflow/taskboard/internal/apperr"
	"github.com/existflow/taskboard/internal/logger"
)

// envelope wraps every API response
type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Data    interface{}         `json:"data,omitempty"`
	Errors  []apperr.FieldError `json:"errors,omitempty"`
	Stack   string              `json:"stack,omitempty"`
}

func ok(c echo.Context, status int, msg string, data interface{}) error {
	return c.JSON(status, envelope{Success: true, Message: msg, Data: data})
}

// bind decodes the request into v, reporting malformed input as a 400
func bind(c echo.Context, v interface{}) error {
	if err := c.Bind(v); err != nil {
		return apperr.Wrap(err, apperr.Validation, "Invalid request body")
	}
	return nil
}

// handleError is the echo HTTPErrorHandler. Application errors keep their
// message; anything else is logged and answered with a generic 500.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := s.errorBody(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			logger.F("method", c.Request().Method),
			logger.F("path", c.Request().URL.Path),
			logger.F("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			logger.F("error", fmt.Sprintf("%+v", err)))
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		logger.Warn("Failed to write error response", logger.Err(err))
	}
}

func (s *Server) errorBody(err error) (int, envelope) {
	if e, ok := apperr.As(err); ok && e.Kind != apperr.Internal {
		return e.Kind.Status(), envelope{Message: e.Message, Errors: e.Fields}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) && he.Code < http.StatusInternalServerError {
		switch he.Code {
		case http.StatusNotFound:
			return he.Code, envelope{Message: "Route not found"}
		case http.StatusMethodNotAllowed:
			return he.Code, envelope{Message: "Method not allowed"}
		}
		return he.Code, envelope{Message: fmt.Sprint(he.Message)}
	}

	body := envelope{Message: "Internal Server Error"}
	if s.cfg.IsDevelopment() {
		body.Stack = fmt.Sprintf("%+v", err)
	}
	return http.StatusInternalServerError, body
}
