package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/existflow/taskboard/internal/apperr"
	"github.com/existflow/taskboard/internal/auth"
	"github.com/existflow/taskboard/internal/logger"
)

const tokenCookie = "token"

// requestLogger logs one line per request and feeds the request metrics
func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		req := c.Request()

		err := next(c)
		if err != nil {
			// resolve the final status before logging
			c.Error(err)
		}

		res := c.Response()
		duration := time.Since(start)
		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.ObserveRequest(req.Method, route, res.Status, duration)

		logger.Info("HTTP Request",
			logger.F("method", req.Method),
			logger.F("uri", req.RequestURI),
			logger.F("status", res.Status),
			logger.F("size", res.Size),
			logger.F("duration", duration.String()),
			logger.F("request_id", res.Header().Get(echo.HeaderXRequestID)))
		return nil
	}
}

// authMiddleware resolves the caller from a bearer token or the token cookie
func (s *Server) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, found := auth.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if !found {
			if cookie, err := c.Cookie(tokenCookie); err == nil && cookie.Value != "" {
				token, found = cookie.Value, true
			}
		}
		if !found {
			return apperr.Unauthenticated("Authentication required. Please log in.")
		}

		id, err := s.tokens.Validate(token)
		if err != nil {
			return apperr.Wrap(err, apperr.Unauthorized, "Invalid or expired token. Please log in again.")
		}

		req := c.Request()
		c.SetRequest(req.WithContext(auth.WithIdentity(req.Context(), id)))
		return next(c)
	}
}

// identity returns the caller resolved by authMiddleware
func identity(c echo.Context) auth.Identity {
	id, _ := auth.IdentityFrom(c.Request().Context())
	return id
}

// rateLimiter throttles the credential endpoints per client IP
func (s *Server) rateLimiter() echo.MiddlewareFunc {
	cfg := s.cfg.RateLimit
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: func(echo.Context) bool { return !cfg.Enabled },
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(cfg.Rate),
			Burst:     cfg.Burst,
			ExpiresIn: 3 * time.Minute,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return apperr.Wrap(err, apperr.Validation, "Could not identify client")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			logger.Warn("Rate limit exceeded", logger.F("client", identifier), logger.F("path", c.Path()))
			return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests, please try again later")
		},
	})
}

// setTokenCookie stores the session token for browser clients
func (s *Server) setTokenCookie(c echo.Context, token string, expires time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     tokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.cfg.Server.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearTokenCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     tokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.Server.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
