package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mechanic-shop/internal/handler"
	"github.com/iliyamo/mechanic-shop/internal/middleware"
)

// RegisterTickets registers /tickets.  Creating a ticket and listing "my"
// tickets take the customer from the token.
func RegisterTickets(e *echo.Echo, h *handler.TicketHandler, health *handler.HealthHandler, a auth, cache *middleware.ResponseCache) {
	g := e.Group("/tickets", cache.Invalidate(cacheMechanics))
	g.GET("/health", health.Check)

	g.POST("", h.Create, a.customer)
	g.GET("", h.List)
	g.GET("/my-tickets", h.MyTickets, a.customer)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)

	g.PUT("/:id/assign-mechanic/:mechanic_id", h.AssignMechanic)
	g.PUT("/:id/remove-mechanic/:mechanic_id", h.RemoveMechanic)
	g.PUT("/:id/add-item/:item_id", h.AddItem)
	g.PUT("/:id/remove-item/:item_id", h.RemoveItem)
	g.PUT("/:id/edit", h.Edit)
}
