package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/coder-ph/m-fua-services/internal/apperr"
)

// RequireRoles ensures the requester's role is one of the allowed roles.
// Usage: route(..., RequireRoles("provider"))
func RequireRoles(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role := Role(c)
			if role == "" {
				return apperr.Authorization("role missing")
			}

			for _, r := range roles {
				if role == r {
					return next(c)
				}
			}
			return apperr.Authorization("access denied")
		}
	}
}

// AdminGuard ensures only admin users can access admin routes.
func AdminGuard(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if Role(c) != "admin" {
			return apperr.Authorization("admin access only")
		}
		return next(c)
	}
}
