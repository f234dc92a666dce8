package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mechanic-shop/internal/repository"
	"github.com/iliyamo/mechanic-shop/internal/utils"
)

// badRequest is a client input problem detected by a handler itself, such as
// a malformed path id or pagination parameter.
type badRequest struct {
	code, message string
}

func (e badRequest) Error() string { return e.message }

func errBadRequest(code, message string) error { return badRequest{code: code, message: message} }

// responder maps errors onto the API's error bodies.  Every body carries a
// machine-readable "error" and a human "message".
type responder struct {
	log *slog.Logger
}

func newResponder(log *slog.Logger) responder {
	if log == nil {
		log = slog.Default()
	}
	return responder{log: log}
}

// fail writes the response for err.  Unrecognised errors become a generic
// 500; the underlying error is only logged.
func (r responder) fail(c echo.Context, err error) error {
	var (
		ve validator.ValidationErrors
		br badRequest
		he *echo.HTTPError
	)
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":   "validation_failed",
			"message": "request validation failed",
			"fields":  fieldErrors(ve),
		})
	case errors.Is(err, utils.ErrPasswordTooLong):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":   "validation_failed",
			"message": "request validation failed",
			"fields":  map[string]string{"password": "password must be at most 72 bytes long"},
		})
	case errors.As(err, &br):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": br.code, "message": br.message})
	case errors.As(err, &he) && he.Code < http.StatusInternalServerError:
		// binder failures: malformed JSON or wrong field types
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_body", "message": "request body is malformed"})
	case errors.Is(err, repository.ErrCustomerNotFound),
		errors.Is(err, repository.ErrMechanicNotFound),
		errors.Is(err, repository.ErrTicketNotFound),
		errors.Is(err, repository.ErrItemNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": err.Error()})
	case errors.Is(err, repository.ErrEmailExists),
		errors.Is(err, repository.ErrMechanicNameExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflict", "message": err.Error()})
	}
	r.log.Error("request failed",
		"method", c.Request().Method, "path", c.Path(), "error", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{
		"error":   "internal_error",
		"message": "internal server error",
	})
}
