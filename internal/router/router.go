// Package router declares every HTTP route of the API in one table.
package router

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/backoffice-api/internal/authz"
	"github.com/iliyamo/backoffice-api/internal/config"
	"github.com/iliyamo/backoffice-api/internal/handler"
	"github.com/iliyamo/backoffice-api/internal/middleware"
	"github.com/iliyamo/backoffice-api/internal/model"
)

// Route is one entry of the route table.  A nil Roles slice marks a
// public route; an empty non-nil slice admits any authenticated role.
type Route struct {
	Method     string
	Path       string
	Roles      []model.Role
	Handler    echo.HandlerFunc
	Middleware []echo.MiddlewareFunc
}

// Handlers bundles the handler sets the table refers to.
type Handlers struct {
	Auth      *handler.AuthHandler
	Users     *handler.UserHandler
	Catalog   *handler.CatalogHandler
	Orders    *handler.OrderHandler
	Returns   *handler.ReturnHandler
	Delivery  *handler.DeliveryHandler
	Inventory *handler.InventoryHandler
}

// Deps carries what the route-level middleware needs.  Rdb may be nil, in
// which case rate limiting and caching are skipped.
type Deps struct {
	Gate      *authz.Gate
	Rdb       *redis.Client
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Logger    *slog.Logger
}

var (
	admin = []model.Role{model.RoleAdmin}
	staff = []model.Role{model.RoleAdmin, model.RoleManager}
)

// Routes returns the /v1 route table.
func Routes(h Handlers, d Deps) []Route {
	limit := middleware.NewTokenBucket(d.RateLimit, d.Rdb, d.Logger)
	cached := middleware.NewRedisCache(d.Cache, d.Rdb, d.Logger)
	invalidate := middleware.InvalidateCache(d.Cache, d.Rdb, d.Logger)

	mw := func(m ...echo.MiddlewareFunc) []echo.MiddlewareFunc { return m }

	return []Route{
		// ---- auth ----
		{http.MethodPost, "/v1/auth/register", nil, h.Auth.Register, mw(limit)},
		{http.MethodPost, "/v1/auth/login", nil, h.Auth.Login, mw(limit)},
		{http.MethodPut, "/v1/auth/refresh", nil, h.Auth.Refresh, mw(limit)},
		{http.MethodGet, "/v1/auth/me", staff, h.Auth.Me, nil},
		{http.MethodPatch, "/v1/auth/update-password", staff, h.Auth.UpdatePassword, nil},
		{http.MethodDelete, "/v1/auth/logout", staff, h.Auth.Logout, nil},
		{http.MethodDelete, "/v1/auth/logout/all", staff, h.Auth.LogoutAll, nil},

		// ---- users ----
		{http.MethodGet, "/v1/users", admin, h.Users.List, nil},
		{http.MethodGet, "/v1/users/:id", admin, h.Users.Get, nil},
		{http.MethodPatch, "/v1/users/:id", admin, h.Users.Update, nil},
		{http.MethodPatch, "/v1/users/:id/update-password", admin, h.Users.SetPassword, nil},
		{http.MethodPost, "/v1/users/:id/promote", admin, h.Users.Promote, nil},
		{http.MethodDelete, "/v1/users/:id", admin, h.Users.Delete, nil},

		// ---- categories ----
		{http.MethodGet, "/v1/categories", nil, h.Catalog.ListCategories, mw(cached)},
		{http.MethodGet, "/v1/categories/:id", nil, h.Catalog.GetCategory, mw(cached)},
		{http.MethodPost, "/v1/categories", staff, h.Catalog.CreateCategory, mw(invalidate)},
		{http.MethodPatch, "/v1/categories/:id", staff, h.Catalog.UpdateCategory, mw(invalidate)},
		{http.MethodDelete, "/v1/categories/:id", admin, h.Catalog.DeleteCategory, mw(invalidate)},

		// ---- products ----
		{http.MethodGet, "/v1/products", staff, h.Catalog.ListProducts, nil},
		{http.MethodGet, "/v1/products/:id", staff, h.Catalog.GetProduct, nil},
		{http.MethodGet, "/v1/products/:id/returns", staff, h.Catalog.ProductReturns, nil},
		{http.MethodGet, "/v1/products/:id/inventory-logs/last", staff, h.Catalog.LastInventoryLog, nil},
		{http.MethodPost, "/v1/products", staff, h.Catalog.CreateProduct, nil},
		{http.MethodPost, "/v1/products/:id/stock", staff, h.Catalog.AdjustStock, nil},
		{http.MethodPatch, "/v1/products/:id", staff, h.Catalog.UpdateProduct, nil},
		{http.MethodDelete, "/v1/products/:id", admin, h.Catalog.DeleteProduct, nil},

		// ---- orders ----
		{http.MethodPost, "/v1/orders", staff, h.Orders.Create, nil},
		{http.MethodGet, "/v1/orders", staff, h.Orders.List, nil},
		{http.MethodGet, "/v1/orders/statistics", admin, h.Orders.Statistics, nil},
		{http.MethodGet, "/v1/orders/:id", staff, h.Orders.Get, nil},
		{http.MethodGet, "/v1/orders/:id/deliveries", staff, h.Orders.Deliveries, nil},
		{http.MethodPatch, "/v1/orders/:id/status", staff, h.Orders.UpdateStatus, nil},
		{http.MethodPost, "/v1/orders/:id/cancel", admin, h.Orders.Cancel, nil},

		// ---- returns ----
		{http.MethodPost, "/v1/returns", staff, h.Returns.Create, nil},
		{http.MethodGet, "/v1/returns", staff, h.Returns.List, nil},
		{http.MethodGet, "/v1/returns/statistics", staff, h.Returns.Statistics, nil},
		{http.MethodGet, "/v1/returns/:id", staff, h.Returns.Get, nil},
		{http.MethodPatch, "/v1/returns/:id", staff, h.Returns.Process, nil},
		{http.MethodPost, "/v1/returns/:id/refund", admin, h.Returns.Refund, nil},

		// ---- deliveries ----
		{http.MethodPost, "/v1/deliveries", staff, h.Delivery.Create, nil},
		{http.MethodGet, "/v1/deliveries", staff, h.Delivery.List, nil},
		{http.MethodGet, "/v1/deliveries/:id", staff, h.Delivery.Get, nil},
		{http.MethodPatch, "/v1/deliveries/:id", staff, h.Delivery.UpdateStatus, nil},

		// ---- inventory ledger ----
		{http.MethodGet, "/v1/inventory-logs", staff, h.Inventory.List, nil},
		{http.MethodGet, "/v1/inventory-logs/:id", staff, h.Inventory.Get, nil},
	}
}

// Register mounts the route table on e.  Authorization runs first so that
// rate limiting and caching see the caller's identity.
func Register(e *echo.Echo, gate *authz.Gate, routes []Route) {
	for _, r := range routes {
		var chain []echo.MiddlewareFunc
		if r.Roles != nil {
			chain = append(chain, middleware.Authorize(gate, r.Roles...))
		}
		chain = append(chain, r.Middleware...)
		e.Add(r.Method, r.Path, r.Handler, chain...)
	}
}

// RegisterOps mounts the health check and the Prometheus endpoint.
func RegisterOps(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}
