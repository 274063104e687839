// Package checkout turns a cart snapshot and the shopper's details into an
// order request. Everything here is pure: no I/O, no clock.
package checkout

import (
	"maps"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/tramhuong/internal/cart"
	"github.com/dukerupert/tramhuong/internal/domain"
)

// Fees maps each accepted payment method to its shipping fee in VND.
// A method absent from the table is not accepted.
type Fees map[domain.PaymentMethod]int64

// DefaultFees is the storefront's fee table: cash on delivery carries a flat
// delivery charge, bank transfer ships free.
func DefaultFees() Fees {
	return Fees{
		domain.PaymentCOD:          30000,
		domain.PaymentBankTransfer: 0,
	}
}

// Builder assembles order requests. It is safe for concurrent use.
type Builder struct {
	fees     Fees
	validate *validator.Validate
}

// NewBuilder returns a Builder using fees. A nil table means DefaultFees.
func NewBuilder(fees Fees) *Builder {
	if fees == nil {
		fees = DefaultFees()
	}
	return &Builder{
		fees:     maps.Clone(fees),
		validate: newValidate(),
	}
}

// OrderRequest is the priced, validated input for creating an order. Its
// lines are copies; nothing it holds is shared with the source snapshot.
type OrderRequest struct {
	SessionID     cart.SessionID
	Items         []domain.OrderItem
	Customer      domain.CustomerInfo
	PaymentMethod domain.PaymentMethod
	TotalItems    int
	Subtotal      int64
	ShippingFee   int64
	Discount      int64
	TotalAmount   int64
}

// ShippingFee returns the fee for method.
func (b *Builder) ShippingFee(method domain.PaymentMethod) (int64, error) {
	fee, ok := b.fees[method]
	if !ok {
		return 0, domain.NewValidationError("checkout.shipping_fee", "payment_method", "Phương thức thanh toán không hợp lệ")
	}
	return fee, nil
}

// Total is subtotal + shippingFee - discount. A negative discount, or one
// larger than subtotal + shippingFee, is rejected.
func (b *Builder) Total(subtotal, shippingFee, discount int64) (int64, error) {
	gross := subtotal + shippingFee
	if discount < 0 || discount > gross {
		return 0, &domain.Error{
			Code:    domain.ErrDiscountExceedsTotal.Code,
			Op:      "checkout.total",
			Message: domain.ErrDiscountExceedsTotal.Message,
		}
	}
	return gross - discount, nil
}

// Build validates the checkout and prices the order. An empty snapshot is
// reported as ErrEmptyCart before the customer details are looked at.
// Otherwise all field problems, including an unknown payment method, come
// back together in one ValidationError.
func (b *Builder) Build(snap cart.Snapshot, info domain.CustomerInfo, method domain.PaymentMethod, discount int64) (*OrderRequest, error) {
	const op = "checkout.build"

	if snap.Empty() {
		return nil, &domain.Error{Code: domain.ErrEmptyCart.Code, Op: op, Message: domain.ErrEmptyCart.Message}
	}

	fields := b.Validate(info)
	fee, err := b.ShippingFee(method)
	if err != nil {
		maps.Copy(fields, domain.GetValidationFields(err))
	}
	if len(fields) > 0 {
		return nil, &domain.ValidationError{Op: op, Fields: fields}
	}

	items := make([]domain.OrderItem, len(snap.Items))
	var subtotal int64
	var count int
	for i, it := range snap.Items {
		items[i] = orderItem(it)
		subtotal += items[i].LineTotal
		count += items[i].Quantity
	}

	total, err := b.Total(subtotal, fee, discount)
	if err != nil {
		return nil, err
	}

	return &OrderRequest{
		SessionID:     snap.SessionID,
		Items:         items,
		Customer:      info,
		PaymentMethod: method,
		TotalItems:    count,
		Subtotal:      subtotal,
		ShippingFee:   fee,
		Discount:      discount,
		TotalAmount:   total,
	}, nil
}

func orderItem(it cart.Item) domain.OrderItem {
	oi := domain.OrderItem{
		ProductID:    it.ProductID,
		ProductName:  it.ProductName,
		ProductImage: it.ProductImage,
		Size:         it.Size,
		UnitPrice:    it.UnitPrice,
		Quantity:     it.Quantity,
		LineTotal:    it.UnitPrice * int64(it.Quantity),
	}
	if it.OriginalPrice != nil {
		p := *it.OriginalPrice
		oi.OriginalPrice = &p
	}
	return oi
}
