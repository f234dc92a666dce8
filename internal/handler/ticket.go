package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mechanic-shop/internal/middleware"
	"github.com/iliyamo/mechanic-shop/internal/model"
	"github.com/iliyamo/mechanic-shop/internal/repository"
	"github.com/iliyamo/mechanic-shop/internal/service"
)

// TicketHandler serves /tickets.  Reads go straight to the repository;
// every mutation goes through the ticket service so it is transactional
// and emits an event.
type TicketHandler struct {
	responder
	Tickets *repository.TicketRepo
	Service *service.TicketService
}

func NewTicketHandler(tickets *repository.TicketRepo, svc *service.TicketService, log *slog.Logger) *TicketHandler {
	return &TicketHandler{responder: newResponder(log), Tickets: tickets, Service: svc}
}

// createTicketReq has no customer_id: the owner always comes from the token.
type createTicketReq struct {
	Description string     `json:"description" validate:"required,max=2000"`
	Date        *time.Time `json:"date"`
}

type updateTicketReq struct {
	Description *string    `json:"description" validate:"omitnil,min=1,max=2000"`
	Date        *time.Time `json:"date"`
}

type editTicketReq struct {
	AddIDs        []uint64 `json:"add_ids"`
	RemoveIDs     []uint64 `json:"remove_ids"`
	AddItemIDs    []uint64 `json:"add_item_ids"`
	RemoveItemIDs []uint64 `json:"remove_item_ids"`
}

// Create opens a ticket owned by the authenticated customer.
func (h *TicketHandler) Create(c echo.Context) error {
	customerID, _ := middleware.CustomerID(c)
	var req createTicketReq
	if err := bindAndValidate(c, &req, func() { req.Description = cleanText(req.Description) }); err != nil {
		return h.fail(c, err)
	}
	var date time.Time
	if req.Date != nil {
		date = *req.Date
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.Service.Create(ctx, customerID, req.Description, date)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *TicketHandler) List(c echo.Context) error {
	page, err := parsePage(c)
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	tickets, total, err := h.Tickets.List(ctx, page)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, listResponse("tickets", tickets, page, total))
}

func (h *TicketHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.Tickets.GetByID(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

// MyTickets lists only the authenticated customer's tickets.
func (h *TicketHandler) MyTickets(c echo.Context) error {
	customerID, _ := middleware.CustomerID(c)
	ctx, cancel := reqCtx(c)
	defer cancel()

	tickets, err := h.Tickets.ListByCustomer(ctx, customerID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"customer_id": customerID, "tickets": tickets, "total": len(tickets)})
}

func (h *TicketHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	var req updateTicketReq
	if err := bindAndValidate(c, &req, func() { req.Description = cleanTextPtr(req.Description) }); err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.Service.Update(ctx, id, model.TicketPatch{Description: req.Description, Date: req.Date})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *TicketHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Service.Delete(ctx, id); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "ticket deleted", "id": id})
}

// AssignMechanic handles PUT /tickets/:id/assign-mechanic/:mechanic_id.
func (h *TicketHandler) AssignMechanic(c echo.Context) error {
	return h.link(c, "mechanic_id", h.Service.AssignMechanic)
}

// RemoveMechanic handles PUT /tickets/:id/remove-mechanic/:mechanic_id.
func (h *TicketHandler) RemoveMechanic(c echo.Context) error {
	return h.link(c, "mechanic_id", h.Service.RemoveMechanic)
}

// AddItem handles PUT /tickets/:id/add-item/:item_id.
func (h *TicketHandler) AddItem(c echo.Context) error {
	return h.link(c, "item_id", h.Service.AttachItem)
}

// RemoveItem handles PUT /tickets/:id/remove-item/:item_id.
func (h *TicketHandler) RemoveItem(c echo.Context) error {
	return h.link(c, "item_id", h.Service.DetachItem)
}

func (h *TicketHandler) link(c echo.Context, param string,
	op func(ctx context.Context, ticketID, otherID uint64) (model.ServiceTicket, error)) error {
	ticketID, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	otherID, err := parseID(c, param)
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := op(ctx, ticketID, otherID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

// Edit applies a bulk change to the ticket's mechanics and items.  Ids that
// do not exist are skipped.
func (h *TicketHandler) Edit(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	var req editTicketReq
	if err := bindAndValidate(c, &req, nil); err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.Service.BulkEdit(ctx, id, model.TicketEdit{
		AddMechanicIDs:    req.AddIDs,
		RemoveMechanicIDs: req.RemoveIDs,
		AddItemIDs:        req.AddItemIDs,
		RemoveItemIDs:     req.RemoveItemIDs,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, t)
}
