package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mechanic-shop/internal/handler"
	"github.com/iliyamo/mechanic-shop/internal/middleware"
)

// RegisterCustomers registers /customers.  Registration, login, listing and
// lookup are public; profile needs a token, and update/delete additionally
// require the path id to be the caller's own.
func RegisterCustomers(e *echo.Echo, h *handler.CustomerHandler, health *handler.HealthHandler, a auth, cache *middleware.ResponseCache) {
	// deleting a customer deletes tickets, which moves the busiest mechanic
	g := e.Group("/customers", cache.Invalidate(cacheMechanics))
	g.GET("/health", health.Check)

	g.POST("", h.Create)
	g.GET("", h.List)
	g.POST("/login", h.Login)
	g.GET("/profile", h.Profile, a.customer)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update, a.customer, a.self)
	g.DELETE("/:id", h.Delete, a.customer, a.self)
}
