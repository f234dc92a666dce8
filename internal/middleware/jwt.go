package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mechanic-shop/internal/service"
)

// RequireCustomer validates the Bearer token on every request and stores the
// token's subject under CustomerIDKey.  Any credential failure ends the
// request with 403 and a structured body; the wrapped handler never runs.
func RequireCustomer(creds *service.CredentialService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := service.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if err == nil {
				var id uint64
				if id, err = creds.ValidateToken(raw); err == nil {
					c.Set(CustomerIDKey, id)
					return next(c)
				}
			}
			code, msg := "token_invalid", "token is invalid"
			switch {
			case errors.Is(err, service.ErrTokenMissing):
				code, msg = "token_missing", "bearer token required"
			case errors.Is(err, service.ErrTokenExpired):
				code, msg = "token_expired", "token has expired"
			}
			return c.JSON(http.StatusForbidden, echo.Map{"error": code, "message": msg})
		}
	}
}

// IdentifyCustomer records the subject of a valid Bearer token, if one is
// present, and always continues.  It runs ahead of the rate limiter so
// per-customer keys see the caller; protection is still RequireCustomer's job.
func IdentifyCustomer(creds *service.CredentialService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := service.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return next(c)
			}
			if id, err := creds.ValidateToken(raw); err == nil {
				c.Set(CustomerIDKey, id)
			}
			return next(c)
		}
	}
}
