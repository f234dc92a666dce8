package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mechanic-shop/internal/middleware"
	"github.com/iliyamo/mechanic-shop/internal/model"
	"github.com/iliyamo/mechanic-shop/internal/repository"
	"github.com/iliyamo/mechanic-shop/internal/service"
	"github.com/iliyamo/mechanic-shop/internal/utils"
)

// CustomerHandler serves /customers: registration, login, profile and the
// self-only update and delete.
type CustomerHandler struct {
	responder
	Customers  *repository.CustomerRepo
	Creds      *service.CredentialService
	BcryptCost int
}

func NewCustomerHandler(customers *repository.CustomerRepo, creds *service.CredentialService, bcryptCost int, log *slog.Logger) *CustomerHandler {
	return &CustomerHandler{responder: newResponder(log), Customers: customers, Creds: creds, BcryptCost: bcryptCost}
}

// ----- DTOs -----

type createCustomerReq struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Address  string `json:"address" validate:"required,max=255"`
	Phone    string `json:"phone" validate:"required,max=20"`
	Password string `json:"password" validate:"required,maxbytes=72"`
}

func (r *createCustomerReq) normalize() {
	r.Name = cleanText(r.Name)
	r.Email = repository.NormalizeEmail(r.Email)
	r.Address = cleanText(r.Address)
	r.Phone = cleanText(r.Phone)
}

// updateCustomerReq fields are optional; only supplied ones change.
type updateCustomerReq struct {
	Name     *string `json:"name" validate:"omitnil,min=1,max=255"`
	Email    *string `json:"email" validate:"omitnil,email,max=255"`
	Address  *string `json:"address" validate:"omitnil,min=1,max=255"`
	Phone    *string `json:"phone" validate:"omitnil,min=1,max=20"`
	Password *string `json:"password" validate:"omitnil,min=1,maxbytes=72"`
}

func (r *updateCustomerReq) normalize() {
	r.Name = cleanTextPtr(r.Name)
	r.Address = cleanTextPtr(r.Address)
	r.Phone = cleanTextPtr(r.Phone)
	if r.Email != nil {
		e := repository.NormalizeEmail(*r.Email)
		r.Email = &e
	}
}

type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResp struct {
	Token      string `json:"token"`
	ExpiresAt  string `json:"expires_at"`
	CustomerID uint64 `json:"customer_id"`
}

// Create registers a customer.  The password is stored only as a bcrypt hash.
func (h *CustomerHandler) Create(c echo.Context) error {
	var req createCustomerReq
	if err := bindAndValidate(c, &req, req.normalize); err != nil {
		return h.fail(c, err)
	}
	hash, err := utils.HashPassword(req.Password, h.BcryptCost)
	if err != nil {
		return h.fail(c, err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	cust := model.Customer{Name: req.Name, Email: req.Email, Address: req.Address, Phone: req.Phone, PasswordHash: hash}
	if err := h.Customers.Create(ctx, &cust); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, cust)
}

// List returns one page of customers.
func (h *CustomerHandler) List(c echo.Context) error {
	page, err := parsePage(c)
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	customers, total, err := h.Customers.List(ctx, page)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, listResponse("customers", customers, page, total))
}

func (h *CustomerHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	cust, err := h.Customers.GetByID(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, cust)
}

// Update changes the caller's own record.  RequireSelf has already matched
// the path id against the token.
func (h *CustomerHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	var req updateCustomerReq
	if err := bindAndValidate(c, &req, req.normalize); err != nil {
		return h.fail(c, err)
	}
	patch := model.CustomerPatch{Name: req.Name, Email: req.Email, Address: req.Address, Phone: req.Phone}
	if req.Password != nil {
		hash, err := utils.HashPassword(*req.Password, h.BcryptCost)
		if err != nil {
			return h.fail(c, err)
		}
		patch.PasswordHash = &hash
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	cust, err := h.Customers.Update(ctx, id, patch)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, cust)
}

// Delete removes the caller's own record and, with it, all their tickets.
func (h *CustomerHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Customers.Delete(ctx, id); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "customer deleted", "id": id})
}

// Login verifies credentials and issues a bearer token.  Unknown email and
// wrong password are indistinguishable to the caller.
func (h *CustomerHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bindAndValidate(c, &req, nil); err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	cust, err := h.Customers.GetByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, repository.ErrCustomerNotFound) {
		return h.fail(c, err)
	}
	if err != nil || !utils.VerifyPassword(cust.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_credentials", "message": "invalid email or password"})
	}

	tok, err := h.Creds.IssueToken(cust.ID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, loginResp{
		Token:      tok.Value,
		ExpiresAt:  tok.ExpiresAt.Format(time.RFC3339),
		CustomerID: cust.ID,
	})
}

// Profile returns the record of the token's subject.
func (h *CustomerHandler) Profile(c echo.Context) error {
	id, _ := middleware.CustomerID(c)
	ctx, cancel := reqCtx(c)
	defer cancel()

	cust, err := h.Customers.GetByID(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, cust)
}
