package api

import (
	"net/http"

	"github.com/dukerupert/tramhuong/internal/cart"
	"github.com/dukerupert/tramhuong/internal/domain"
	"github.com/dukerupert/tramhuong/internal/handler"
	"github.com/dukerupert/tramhuong/internal/service"
)

// CartHandler handles the cart routes. The session is always taken from the
// path; the API never issues sessions itself.
type CartHandler struct {
	carts service.CartService
}

// NewCartHandler creates a new cart handler
func NewCartHandler(carts service.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

// lineRequest is the body of add, update and remove. Quantity is a pointer so
// an omitted quantity on add can default to one.
type lineRequest struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Quantity  *int   `json:"quantity"`
}

type cartResponse struct {
	Message string        `json:"message"`
	Cart    cart.Snapshot `json:"cart"`
}

func sessionFrom(r *http.Request) cart.SessionID {
	return cart.SessionID(r.PathValue("session_id"))
}

// Get handles GET /api/cart/{session_id}
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.carts.GetCart(r.Context(), sessionFrom(r))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, snap)
}

// Add handles POST /api/cart/{session_id}/add
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req lineRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	snap, err := h.carts.AddItem(r.Context(), sessionFrom(r), service.AddItemParams{
		ProductID: req.ProductID,
		Size:      req.Size,
		Quantity:  quantity,
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, cartResponse{Message: "Đã thêm vào giỏ hàng", Cart: snap})
}

// Update handles PUT /api/cart/{session_id}/update
func (h *CartHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req lineRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if req.Quantity == nil {
		handler.ValidationErrorResponse(w, r, missingQuantity())
		return
	}

	snap, err := h.carts.UpdateItem(r.Context(), sessionFrom(r), req.ProductID, req.Size, *req.Quantity)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, cartResponse{Message: "Đã cập nhật giỏ hàng", Cart: snap})
}

// Remove handles DELETE /api/cart/{session_id}/remove
//
// The line is read from the JSON body, or from the product_id and size query
// parameters when there is no body.
func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	var req lineRequest
	if r.ContentLength != 0 {
		if err := handler.DecodeJSON(r, &req); err != nil {
			handler.ErrorResponse(w, r, err)
			return
		}
	}
	if req.ProductID == "" {
		q := r.URL.Query()
		req.ProductID = q.Get("product_id")
		req.Size = q.Get("size")
	}

	snap, err := h.carts.RemoveItem(r.Context(), sessionFrom(r), req.ProductID, req.Size)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, cartResponse{Message: "Đã xóa sản phẩm khỏi giỏ hàng", Cart: snap})
}

// Clear handles DELETE /api/cart/{session_id}/clear
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	if err := h.carts.ClearCart(r.Context(), session); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, cartResponse{Message: "Đã xóa giỏ hàng", Cart: cart.EmptySnapshot(session)})
}

func missingQuantity() error {
	return domain.NewValidationError("cart.update", "quantity", "Vui lòng nhập số lượng")
}
