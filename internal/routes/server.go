package routes

import (
	"net/http"

	"github.com/dukerupert/tramhuong/internal/handler"
	"github.com/dukerupert/tramhuong/internal/middleware"
	"github.com/dukerupert/tramhuong/internal/router"
	"github.com/dukerupert/tramhuong/internal/telemetry"
)

// NewHandler builds the router with the global middleware chain and every
// route registered. CORS wraps the router so preflight requests are answered
// before routing.
func NewHandler(deps ServerDeps) http.Handler {
	chain := []router.Middleware{
		router.Recovery(deps.Logger),
		middleware.RequestID,
		middleware.WithRequestLogger(deps.Logger),
	}
	if deps.HTTPMetrics != nil {
		chain = append(chain, deps.HTTPMetrics.Middleware)
	}
	chain = append(chain,
		telemetry.SentryMiddleware(),
		router.Logger(deps.Logger),
		middleware.MaxBodySize(deps.MaxBodyBytes),
		middleware.Timeout(deps.RequestTimeout),
	)

	r := router.New(chain...)
	RegisterOpsRoutes(r, deps.Ops)
	RegisterAPIRoutes(r, deps.API)
	r.NotFound(handler.NotFoundResponse)

	return router.CORS(deps.AllowedOrigins)(r)
}
