// Package api holds the JSON handlers of the storefront API.
package api

import (
	"context"
	"net/http"

	"github.com/dukerupert/tramhuong/internal/domain"
	"github.com/dukerupert/tramhuong/internal/handler"
)

// apiName is returned by the API root so clients can check they reached the
// right backend.
const apiName = "Khang Trầm Hương API"

type messageResponse struct {
	Message string `json:"message"`
}

// Root handles GET /api/
func Root(w http.ResponseWriter, r *http.Request) {
	handler.WriteJSON(w, http.StatusOK, messageResponse{Message: apiName})
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler answers liveness and readiness probes.
type HealthHandler struct {
	db Pinger
}

// NewHealthHandler creates a health handler. A nil db is always healthy.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			handler.ErrorResponse(w, r, domain.WrapError(err, domain.EUNAVAILABLE, "health", "database unreachable"))
			return
		}
	}
	handler.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
