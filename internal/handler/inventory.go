package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mechanic-shop/internal/model"
	"github.com/iliyamo/mechanic-shop/internal/repository"
)

// InventoryHandler serves /inventory.
type InventoryHandler struct {
	responder
	Items *repository.InventoryRepo
}

func NewInventoryHandler(items *repository.InventoryRepo, log *slog.Logger) *InventoryHandler {
	return &InventoryHandler{responder: newResponder(log), Items: items}
}

type createItemReq struct {
	Name     string   `json:"name" validate:"required,max=255"`
	Quantity *int     `json:"quantity" validate:"required,gte=0"`
	Price    *float64 `json:"price" validate:"required,gte=0"`
}

type updateItemReq struct {
	Name     *string  `json:"name" validate:"omitnil,min=1,max=255"`
	Quantity *int     `json:"quantity" validate:"omitnil,gte=0"`
	Price    *float64 `json:"price" validate:"omitnil,gte=0"`
}

func (h *InventoryHandler) Create(c echo.Context) error {
	var req createItemReq
	if err := bindAndValidate(c, &req, func() { req.Name = cleanText(req.Name) }); err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	it := model.InventoryItem{Name: req.Name, Quantity: *req.Quantity, Price: *req.Price}
	if err := h.Items.Create(ctx, &it); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, it)
}

func (h *InventoryHandler) List(c echo.Context) error {
	page, err := parsePage(c)
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	items, total, err := h.Items.List(ctx, page)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, listResponse("items", items, page, total))
}

func (h *InventoryHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	it, err := h.Items.GetByID(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, it)
}

func (h *InventoryHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	var req updateItemReq
	if err := bindAndValidate(c, &req, func() { req.Name = cleanTextPtr(req.Name) }); err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	it, err := h.Items.Update(ctx, id, model.InventoryPatch{Name: req.Name, Quantity: req.Quantity, Price: req.Price})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, it)
}

// Delete removes an item and detaches it from every ticket.
func (h *InventoryHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Items.Delete(ctx, id); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "item deleted", "id": id})
}
