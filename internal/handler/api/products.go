package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dukerupert/tramhuong/internal/catalog"
	"github.com/dukerupert/tramhuong/internal/domain"
	"github.com/dukerupert/tramhuong/internal/handler"
)

// Catalog is the product catalog as seen by the API.
type Catalog interface {
	List(ctx context.Context, f catalog.Filter) ([]catalog.Product, error)
	Get(ctx context.Context, id string) (*catalog.Product, error)
	Create(ctx context.Context, in catalog.ProductInput) (*catalog.Product, error)
	Update(ctx context.Context, id string, upd catalog.ProductUpdate) (*catalog.Product, error)
	Delete(ctx context.Context, id string) error
}

// ProductHandler handles the product routes.
type ProductHandler struct {
	catalog Catalog
}

// NewProductHandler creates a new product handler
func NewProductHandler(c Catalog) *ProductHandler {
	return &ProductHandler{catalog: c}
}

// List handles GET /api/products?featured=true&category=...
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := catalog.Filter{Category: q.Get("category")}

	if raw := q.Get("featured"); raw != "" {
		featured, err := strconv.ParseBool(raw)
		if err != nil {
			handler.ErrorResponse(w, r, domain.NewValidationError("product.list", "featured", "Giá trị không hợp lệ"))
			return
		}
		f.Featured = &featured
	}

	products, err := h.catalog.List(r.Context(), f)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if products == nil {
		products = []catalog.Product{}
	}
	handler.WriteJSON(w, http.StatusOK, products)
}

// Get handles GET /api/products/{product_id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.Get(r.Context(), r.PathValue("product_id"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, p)
}

// Create handles POST /api/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in catalog.ProductInput
	if err := handler.DecodeJSON(r, &in); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	p, err := h.catalog.Create(r.Context(), in)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, p)
}

// Update handles PUT /api/products/{product_id}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	var upd catalog.ProductUpdate
	if err := handler.DecodeJSON(r, &upd); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	p, err := h.catalog.Update(r.Context(), r.PathValue("product_id"), upd)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, p)
}

// Delete handles DELETE /api/products/{product_id}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Delete(r.Context(), r.PathValue("product_id")); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, messageResponse{Message: "Product deleted successfully"})
}
