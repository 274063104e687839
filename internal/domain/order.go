package domain

import (
	"time"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound        = &Error{Code: ENOTFOUND, Message: "Order not found"}
	ErrProductNotFound      = &Error{Code: ENOTFOUND, Message: "Product not found"}
	ErrSizeNotFound         = &Error{Code: EINVALID, Message: "Kích thước không hợp lệ"}
	ErrDiscountExceedsTotal = &Error{Code: EINVALID, Message: "Discount must be between 0 and the order total"}
)

// PaymentMethod is how the shopper pays for an order.
type PaymentMethod string

const (
	PaymentCOD          PaymentMethod = "cod"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
)

// OrderStatus tracks fulfilment. New orders start pending.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

// PaymentStatus tracks payment collection. New orders start pending.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// CustomerInfo is the shipping contact collected at checkout.
type CustomerInfo struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Address  string `json:"address"`
	City     string `json:"city"`
	District string `json:"district"`
	Ward     string `json:"ward"`
	Notes    string `json:"notes,omitempty"`
}

// OrderItem is a frozen copy of a cart line at the moment of checkout.
type OrderItem struct {
	ProductID     string `json:"product_id"`
	ProductName   string `json:"product_name"`
	ProductImage  string `json:"product_image"`
	Size          string `json:"size"`
	UnitPrice     int64  `json:"size_price"`
	OriginalPrice *int64 `json:"original_price,omitempty"`
	Quantity      int    `json:"quantity"`
	LineTotal     int64  `json:"total_price"`
}

// Order is a placed order. Nothing mutates it after creation.
type Order struct {
	ID            uuid.UUID     `json:"id"`
	OrderNumber   string        `json:"order_number"`
	SessionID     string        `json:"session_id"`
	Customer      CustomerInfo  `json:"customer_info"`
	Items         []OrderItem   `json:"items"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	OrderStatus   OrderStatus   `json:"order_status"`
	Subtotal      int64         `json:"subtotal"`
	ShippingFee   int64         `json:"shipping_fee"`
	Discount      int64         `json:"discount"`
	TotalAmount   int64         `json:"total_amount"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
