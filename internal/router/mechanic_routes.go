package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mechanic-shop/internal/handler"
	"github.com/iliyamo/mechanic-shop/internal/middleware"
)

// RegisterMechanics registers /mechanics.  The busiest-mechanic aggregate
// is served from the response cache.
func RegisterMechanics(e *echo.Echo, h *handler.MechanicHandler, health *handler.HealthHandler, cache *middleware.ResponseCache) {
	g := e.Group("/mechanics", cache.Invalidate(cacheMechanics))
	g.GET("/health", health.Check)

	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/most-tickets", h.MostTickets, cache.Cache(cacheMechanics))
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}
