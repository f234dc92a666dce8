// Package router assembles the echo instance: global middleware, the
// liveness probe and one route group per resource.
package router

import (
	"database/sql"
	"log/slog"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/mechanic-shop/internal/config"
	"github.com/iliyamo/mechanic-shop/internal/handler"
	"github.com/iliyamo/mechanic-shop/internal/middleware"
	"github.com/iliyamo/mechanic-shop/internal/repository"
	"github.com/iliyamo/mechanic-shop/internal/service"
)

// Deps carries everything the HTTP layer is built from.  Redis and Events
// are optional: without Redis rate limiting and caching are disabled,
// without Events ticket events are dropped.
type Deps struct {
	Config    config.Config
	DB        *sql.DB
	Redis     *redis.Client
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Events    service.EventPublisher
	Log       *slog.Logger
}

// Cache groups.  Writes to a resource bump the groups whose cached reads
// they can change.
const (
	cacheMechanics = "mechanics"
	cacheInventory = "inventory"
)

// auth bundles the two protection levels used by the route files.
type auth struct {
	customer echo.MiddlewareFunc
	self     echo.MiddlewareFunc
}

// New wires repositories, services and handlers and registers every route.
func New(d Deps) *echo.Echo {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}

	customers := repository.NewCustomerRepo(d.DB)
	mechanics := repository.NewMechanicRepo(d.DB)
	items := repository.NewInventoryRepo(d.DB)
	tickets := repository.NewTicketRepo(d.DB, repository.DialectFor(d.Config.Database.Driver))

	creds := service.NewCredentialService(d.Config.Auth)
	ticketSvc := service.NewTicketService(tickets, customers, mechanics, items, d.Events, log)
	cache := middleware.NewResponseCache(d.Cache, d.Redis, log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()

	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.BodyLimit("1M"))
	e.Use(middleware.IdentifyCustomer(creds))
	e.Use(middleware.NewTokenBucket(d.RateLimit, d.Redis, log))

	e.GET("/healthz", handler.Health)

	health := handler.NewHealthHandler(d.DB)
	a := auth{customer: middleware.RequireCustomer(creds), self: middleware.RequireSelf("id")}

	RegisterCustomers(e, handler.NewCustomerHandler(customers, creds, d.Config.Auth.BcryptCost, log), health, a, cache)
	RegisterMechanics(e, handler.NewMechanicHandler(mechanics, log), health, cache)
	RegisterTickets(e, handler.NewTicketHandler(tickets, ticketSvc, log), health, a, cache)
	RegisterInventory(e, handler.NewInventoryHandler(items, log), health, cache)
	return e
}
