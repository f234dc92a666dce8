package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mechanic-shop/internal/model"
	"github.com/iliyamo/mechanic-shop/internal/repository"
)

// MechanicHandler serves /mechanics.
type MechanicHandler struct {
	responder
	Mechanics *repository.MechanicRepo
}

func NewMechanicHandler(mechanics *repository.MechanicRepo, log *slog.Logger) *MechanicHandler {
	return &MechanicHandler{responder: newResponder(log), Mechanics: mechanics}
}

type createMechanicReq struct {
	Name    string   `json:"name" validate:"required,max=255"`
	Address string   `json:"address" validate:"required,max=255"`
	Salary  *float64 `json:"salary" validate:"required,gte=0"`
}

func (r *createMechanicReq) normalize() {
	r.Name = cleanText(r.Name)
	r.Address = cleanText(r.Address)
}

type updateMechanicReq struct {
	Name    *string  `json:"name" validate:"omitnil,min=1,max=255"`
	Address *string  `json:"address" validate:"omitnil,min=1,max=255"`
	Salary  *float64 `json:"salary" validate:"omitnil,gte=0"`
}

func (r *updateMechanicReq) normalize() {
	r.Name = cleanTextPtr(r.Name)
	r.Address = cleanTextPtr(r.Address)
}

// Create adds a mechanic; a name already in use is a 409.
func (h *MechanicHandler) Create(c echo.Context) error {
	var req createMechanicReq
	if err := bindAndValidate(c, &req, req.normalize); err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	m := model.Mechanic{Name: req.Name, Address: req.Address, Salary: *req.Salary}
	if err := h.Mechanics.Create(ctx, &m); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *MechanicHandler) List(c echo.Context) error {
	page, err := parsePage(c)
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	mechanics, total, err := h.Mechanics.List(ctx, page)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, listResponse("mechanics", mechanics, page, total))
}

func (h *MechanicHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	m, err := h.Mechanics.GetByID(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *MechanicHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	var req updateMechanicReq
	if err := bindAndValidate(c, &req, req.normalize); err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	m, err := h.Mechanics.Update(ctx, id, model.MechanicPatch{Name: req.Name, Address: req.Address, Salary: req.Salary})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

// Delete removes a mechanic and unassigns them from every ticket.
func (h *MechanicHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Mechanics.Delete(ctx, id); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "mechanic deleted", "id": id})
}

// MostTickets reports the mechanic assigned to the most tickets.
func (h *MechanicHandler) MostTickets(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	top, err := h.Mechanics.MostTickets(ctx)
	if errors.Is(err, repository.ErrMechanicNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": "No mechanics or tickets found"})
	}
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, top)
}
