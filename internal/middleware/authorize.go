package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/backoffice-api/internal/authz"
	"github.com/iliyamo/backoffice-api/internal/model"
)

// Authorize runs the gate on the Authorization header and stores the
// caller's id and role in the context.  Failures are returned as
// apperr errors and rendered by ErrorHandler.
func Authorize(gate *authz.Gate, roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, err := gate.Authorize(c.Request().Header.Get(echo.HeaderAuthorization), roles)
			if err != nil {
				return err
			}
			c.Set(CtxUserID, p.UserID)
			c.Set(CtxRole, p.Role)
			return next(c)
		}
	}
}
