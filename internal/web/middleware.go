package web

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/docqa/internal/auth"
	"github.com/fyrsmithlabs/docqa/internal/logging"
)

const sessionCookie = "docqa_session"

const sessionContextKey = "docqa.session"

// currentSession returns the session attached by sessionMiddleware, or nil.
func currentSession(c echo.Context) *auth.Session {
	s, _ := c.Get(sessionContextKey).(*auth.Session)
	return s
}

// sessionMiddleware resolves the session cookie and, when valid, attaches
// the session to the request context and tags the request logger with the
// username. Requests without a session pass through untouched.
func (s *Server) sessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cookie, err := c.Cookie(sessionCookie)
		if err != nil || cookie.Value == "" {
			return next(c)
		}

		session, err := s.sessions.Get(cookie.Value)
		if err != nil {
			// Expired or forged token: drop the cookie.
			s.clearSessionCookie(c)
			return next(c)
		}

		c.Set(sessionContextKey, session)
		ctx := logging.WithUsername(c.Request().Context(), session.Username)
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// requireUser redirects anonymous requests to the login page.
func requireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if currentSession(c) == nil {
			return c.Redirect(http.StatusSeeOther, "/login")
		}
		return next(c)
	}
}

// requireAdmin rejects non-admin sessions.
func requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		session := currentSession(c)
		if session == nil {
			return c.Redirect(http.StatusSeeOther, "/login")
		}
		if !session.IsAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "admin access required")
		}
		return next(c)
	}
}

func (s *Server) setSessionCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
