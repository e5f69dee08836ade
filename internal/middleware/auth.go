package middleware

import (
	"errors"
	"net/http"
	"strings"

	"bomserver/internal/model"
	"bomserver/pkg/database"
	"bomserver/pkg/logger"
	"bomserver/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SessionMiddleware resolves the session cookie (or a Bearer token carrying
// the same opaque value) to a user and stores it in the request context.
// A missing, unknown or expired token leaves the request anonymous; it is up
// to RequireAuth to reject anonymous access where needed.
func SessionMiddleware(cookieName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			token := sessionToken(c, cookieName)
			if token == "" {
				return next(c)
			}

			var session model.Session
			err := database.GetDB().Where("token = ?", token).First(&session).Error
			if err != nil {
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					log.Error("Failed to look up session", zap.Error(err))
				}
				return next(c)
			}

			if session.Expired() {
				log.Info("Session expired", zap.Uint("user_id", session.UserID))
				return next(c)
			}

			var user model.User
			if err := database.GetDB().First(&user, session.UserID).Error; err != nil {
				log.Warn("Session points at missing user",
					zap.Uint("user_id", session.UserID))
				return next(c)
			}

			c.Set("user", &user)
			c.Set("user_id", user.ID)
			c.Set("session", &session)

			return next(c)
		}
	}
}

// RequireAuth rejects anonymous requests. It must run after SessionMiddleware.
func RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := CurrentUser(c); !ok {
			prometheus.RecordAuthError("unauthenticated")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
		}
		return next(c)
	}
}

// RequireAdmin rejects requests from non-admin users. It must run after
// SessionMiddleware.
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, ok := CurrentUser(c)
		if !ok {
			prometheus.RecordAuthError("unauthenticated")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
		}
		if !user.IsAdmin() {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "admin access required"})
		}
		return next(c)
	}
}

// CurrentUser retrieves the authenticated user from the context
func CurrentUser(c echo.Context) (*model.User, bool) {
	user, ok := c.Get("user").(*model.User)
	return user, ok
}

// sessionToken extracts the opaque session token from the cookie or, as a
// fallback, from an Authorization: Bearer header
func sessionToken(c echo.Context, cookieName string) string {
	if cookie, err := c.Cookie(cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}
