package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/existflow/taskboard/internal/logger"
	"github.com/existflow/taskboard/internal/service"
)

// handleRegister creates an account and starts a session
func (s *Server) handleRegister(c echo.Context) error {
	var in service.RegisterInput
	if err := bind(c, &in); err != nil {
		return err
	}

	sess, err := s.svc.Auth.Register(c.Request().Context(), in)
	if err != nil {
		return err
	}
	s.setTokenCookie(c, sess.Token, sess.ExpiresAt)

	logger.Info("User registered", logger.F("user_id", sess.User.ID))
	return ok(c, http.StatusCreated, "User registered successfully", sess)
}

// handleLogin checks credentials and starts a session
func (s *Server) handleLogin(c echo.Context) error {
	var in service.LoginInput
	if err := bind(c, &in); err != nil {
		return err
	}

	sess, err := s.svc.Auth.Login(c.Request().Context(), in)
	if err != nil {
		return err
	}
	s.setTokenCookie(c, sess.Token, sess.ExpiresAt)

	return ok(c, http.StatusOK, "Login successful", sess)
}

// handleLogout clears the session cookie. Bearer tokens stay valid until
// they expire.
func (s *Server) handleLogout(c echo.Context) error {
	s.clearTokenCookie(c)
	return ok(c, http.StatusOK, "Logged out successfully", nil)
}

func (s *Server) handleMe(c echo.Context) error {
	user, err := s.svc.Auth.Me(c.Request().Context(), identity(c))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", echo.Map{"user": user})
}

func (s *Server) handleUpdateProfile(c echo.Context) error {
	var in service.ProfileInput
	if err := bind(c, &in); err != nil {
		return err
	}

	user, err := s.svc.Auth.UpdateProfile(c.Request().Context(), identity(c), in)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Profile updated successfully", echo.Map{"user": user})
}

func (s *Server) handleChangePassword(c echo.Context) error {
	var in service.PasswordInput
	if err := bind(c, &in); err != nil {
		return err
	}

	if err := s.svc.Auth.ChangePassword(c.Request().Context(), identity(c), in); err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Password changed successfully", nil)
}
