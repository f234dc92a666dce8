package middleware

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// RequireSelf restricts a route to the authenticated customer's own record:
// the path parameter param must equal the token subject.  It must run after
// RequireCustomer.  A malformed id is a 400 so it is not confused with an
// ownership failure.
func RequireSelf(param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			caller, ok := CustomerID(c)
			if !ok {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "token_missing", "message": "bearer token required"})
			}
			target, err := strconv.ParseUint(c.Param(param), 10, 64)
			if err != nil || target == 0 {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_id", "message": "invalid " + param})
			}
			if target != caller {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "message": "customers may only modify their own record"})
			}
			return next(c)
		}
	}
}
