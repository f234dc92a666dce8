package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// CustomerIDKey is the echo context key under which RequireCustomer stores
// the authenticated customer's id as a uint64.
const CustomerIDKey = "customer_id"

// CustomerID returns the authenticated caller, if any.
func CustomerID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(CustomerIDKey).(uint64)
	return id, ok && id != 0
}

// callerKey identifies the caller for rate-limit keys; "anon" when the
// request is not authenticated.
func callerKey(c echo.Context) string {
	if id, ok := CustomerID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
