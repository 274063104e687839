package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/dukerupert/tramhuong/internal/cart"
	"github.com/dukerupert/tramhuong/internal/domain"
	"github.com/dukerupert/tramhuong/internal/handler"
	"github.com/dukerupert/tramhuong/internal/service"
)

// OrderHandler handles checkout and order lookups.
type OrderHandler struct {
	orders service.OrderService
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type orderItemRequest struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

// createOrderRequest is the checkout form. Items echo the storefront cart;
// only product, size and quantity are read, prices come from the catalog.
// A discount sent by the shopper is ignored.
type createOrderRequest struct {
	SessionID     string              `json:"session_id"`
	Customer      domain.CustomerInfo `json:"customer_info"`
	Items         []orderItemRequest  `json:"items"`
	PaymentMethod string              `json:"payment_method"`
}

// Create handles POST /api/orders
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	params := service.PlaceOrderParams{
		SessionID:     cart.SessionID(req.SessionID),
		Customer:      req.Customer,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
	}
	for _, it := range req.Items {
		params.Items = append(params.Items, service.AddItemParams{
			ProductID: it.ProductID,
			Size:      it.Size,
			Quantity:  it.Quantity,
		})
	}

	order, err := h.orders.PlaceOrder(r.Context(), params)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, order)
}

// Get handles GET /api/orders/{order_id}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("order_id"))
	if err != nil {
		handler.ErrorResponse(w, r, &domain.Error{
			Code:    domain.ErrOrderNotFound.Code,
			Op:      "order.get",
			Message: domain.ErrOrderNotFound.Message,
			Err:     err,
		})
		return
	}

	order, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, order)
}

// GetByNumber handles GET /api/orders/number/{order_number}
func (h *OrderHandler) GetByNumber(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.GetOrderByNumber(r.Context(), r.PathValue("order_number"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, order)
}
