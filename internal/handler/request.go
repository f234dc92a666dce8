package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mechanic-shop/internal/model"
)

const (
	defaultPerPage = 10
	maxPerPage     = 100
	requestTimeout = 5 * time.Second
)

// reqCtx bounds a handler's database work.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// bindAndValidate decodes the body into req and runs struct validation.
// prepare, when non-nil, normalises fields between the two steps.
func bindAndValidate(c echo.Context, req any, prepare func()) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	if prepare != nil {
		prepare()
	}
	return c.Validate(req)
}

// parseID reads a positive integer path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errBadRequest("invalid_id", "invalid "+name)
	}
	return id, nil
}

// parsePage reads ?page and ?per_page.  Missing values take the defaults;
// values below 1 are rejected and per_page is capped.
func parsePage(c echo.Context) (model.Page, error) {
	p := model.Page{Number: 1, Size: defaultPerPage}
	if s := c.QueryParam("page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return p, errBadRequest("invalid_page", "page must be a positive integer")
		}
		p.Number = n
	}
	if s := c.QueryParam("per_page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return p, errBadRequest("invalid_page", "per_page must be a positive integer")
		}
		p.Size = min(n, maxPerPage)
	}
	return p, nil
}

// pageMeta is merged into every paginated listing.
func pageMeta(p model.Page, total int64) echo.Map {
	return echo.Map{
		"total":        total,
		"pages":        p.TotalPages(total),
		"current_page": p.Number,
		"per_page":     p.Size,
	}
}

func listResponse(key string, items any, p model.Page, total int64) echo.Map {
	m := pageMeta(p, total)
	m[key] = items
	return m
}
