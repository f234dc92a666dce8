package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mechanic-shop/internal/handler"
	"github.com/iliyamo/mechanic-shop/internal/middleware"
)

// RegisterInventory registers /inventory with a cached listing.
func RegisterInventory(e *echo.Echo, h *handler.InventoryHandler, health *handler.HealthHandler, cache *middleware.ResponseCache) {
	g := e.Group("/inventory", cache.Invalidate(cacheInventory))
	g.GET("/health", health.Check)

	g.POST("", h.Create)
	g.GET("", h.List, cache.Cache(cacheInventory))
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}
