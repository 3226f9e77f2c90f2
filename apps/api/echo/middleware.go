package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ebivilapaula/backend/core/user"
)

// roleMiddleware only lets through requests whose token carries one of
// the given roles. Core services re-check authorization on their own;
// this keeps obviously unauthorized requests out early.
func roleMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			for _, role := range roles {
				if claims.Role == role {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

// staffMiddleware admits any authenticated staff member.
func staffMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(user.AllRoles...)
}

// managementMiddleware admits coordinators and administrators.
func managementMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(user.RoleAdministrator, user.RoleCoordinator)
}
