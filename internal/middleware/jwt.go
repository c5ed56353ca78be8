package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/coder-ph/m-fua-services/internal/apperr"
	"github.com/coder-ph/m-fua-services/internal/token"
)

// JWTMiddleware authenticates bearer tokens and stores the caller's id and
// role on the request context. Missing, invalid and expired tokens all
// produce 401, but with distinct messages.
func JWTMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get("Authorization")
		if header == "" {
			return apperr.Authentication("missing authorization header")
		}

		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenStr == "" {
			return apperr.Authentication("invalid token")
		}

		userID, role, err := token.Parse(tokenStr, "access")
		if err != nil {
			return err
		}

		c.Set("user_id", userID)
		c.Set("role", role)
		return next(c)
	}
}

// UserID returns the authenticated caller's id, zero if unauthenticated.
func UserID(c echo.Context) int64 {
	id, _ := c.Get("user_id").(int64)
	return id
}

// Role returns the authenticated caller's role claim.
func Role(c echo.Context) string {
	role, _ := c.Get("role").(string)
	return role
}
