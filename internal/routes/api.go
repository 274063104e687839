package routes

import (
	"net/http"

	"github.com/dukerupert/tramhuong/internal/handler/api"
	"github.com/dukerupert/tramhuong/internal/middleware"
	"github.com/dukerupert/tramhuong/internal/router"
)

// RegisterAPIRoutes registers the storefront API. Sessions are identified by
// the path; there is no authentication.
func RegisterAPIRoutes(r *router.Router, deps APIDeps) {
	r.Get("/api/{$}", api.Root)

	// Catalog
	r.Get("/api/products", deps.ProductHandler.List)
	r.Post("/api/products", deps.ProductHandler.Create)
	r.Get("/api/products/{product_id}", deps.ProductHandler.Get)
	r.Put("/api/products/{product_id}", deps.ProductHandler.Update)
	r.Delete("/api/products/{product_id}", deps.ProductHandler.Delete)

	// Cart
	r.Get("/api/cart/{session_id}", deps.CartHandler.Get)
	r.Post("/api/cart/{session_id}/add", deps.CartHandler.Add)
	r.Put("/api/cart/{session_id}/update", deps.CartHandler.Update)
	r.Delete("/api/cart/{session_id}/remove", deps.CartHandler.Remove)
	r.Delete("/api/cart/{session_id}/clear", deps.CartHandler.Clear)

	// Orders. Only placement is rate limited.
	placing := r
	if deps.OrderLimiter != nil {
		placing = r.Group(deps.OrderLimiter.Middleware)
	}
	placing.Post("/api/orders", deps.OrderHandler.Create)
	r.Get("/api/orders/{order_id}", deps.OrderHandler.Get)
	r.Get("/api/orders/number/{order_number}", deps.OrderHandler.GetByNumber)
}

// RegisterOpsRoutes registers health and metrics endpoints.
func RegisterOpsRoutes(r *router.Router, deps OpsDeps) {
	if deps.HealthHandler != nil {
		r.Get("/health", deps.HealthHandler.Health)
	}
	if deps.Gatherer != nil {
		r.Handle(http.MethodGet, "/metrics", middleware.Handler(deps.Gatherer))
	}
}
