package routes

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/dukerupert/tramhuong/internal/handler/api"
	"github.com/dukerupert/tramhuong/internal/middleware"
)

// APIDeps contains dependencies for the /api routes
type APIDeps struct {
	ProductHandler *api.ProductHandler
	CartHandler    *api.CartHandler
	OrderHandler   *api.OrderHandler

	// OrderLimiter throttles checkout per client. Nil disables it.
	OrderLimiter *middleware.RateLimiter
}

// OpsDeps contains dependencies for health and metrics routes
type OpsDeps struct {
	HealthHandler *api.HealthHandler

	// Gatherer backs /metrics. Nil leaves the route unregistered.
	Gatherer prometheus.Gatherer
}

// ServerDeps is everything NewHandler needs to assemble the HTTP stack.
type ServerDeps struct {
	Logger zerolog.Logger

	// HTTPMetrics records per-route request metrics. Nil disables them.
	HTTPMetrics *middleware.Metrics

	MaxBodyBytes   int64
	RequestTimeout time.Duration
	AllowedOrigins []string

	API APIDeps
	Ops OpsDeps
}
