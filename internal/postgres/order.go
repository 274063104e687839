package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dukerupert/tramhuong/internal/domain"
)

// OrderRepository stores placed orders. Orders are insert-only.
type OrderRepository struct {
	db DBTX
}

func NewOrderRepository(db DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `id, order_number, session_id, customer_info, items, payment_method,
	payment_status, order_status, subtotal, shipping_fee, discount, total_amount, created_at, updated_at`

func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	customer, err := json.Marshal(o.Customer)
	if err != nil {
		return fmt.Errorf("marshal customer info: %w", err)
	}
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshal order items: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		o.ID, o.OrderNumber, o.SessionID, customer, items, string(o.PaymentMethod),
		string(o.PaymentStatus), string(o.OrderStatus), o.Subtotal, o.ShippingFee, o.Discount,
		o.TotalAmount, o.CreatedAt, o.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.Conflict("order.create", "order number already exists")
	}
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	row := r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row, "order.get")
}

func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	row := r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_number = $1`, number)
	return scanOrder(row, "order.get_by_number")
}

func scanOrder(row pgx.Row, op string) (*domain.Order, error) {
	var o domain.Order
	var customer, items []byte
	var method, payStatus, orderStatus string

	err := row.Scan(&o.ID, &o.OrderNumber, &o.SessionID, &customer, &items, &method,
		&payStatus, &orderStatus, &o.Subtotal, &o.ShippingFee, &o.Discount, &o.TotalAmount,
		&o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &domain.Error{Code: domain.ENOTFOUND, Op: op, Message: domain.ErrOrderNotFound.Message}
	}
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}

	if err := json.Unmarshal(customer, &o.Customer); err != nil {
		return nil, fmt.Errorf("decode customer info: %w", err)
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("decode order items: %w", err)
	}
	o.PaymentMethod = domain.PaymentMethod(method)
	o.PaymentStatus = domain.PaymentStatus(payStatus)
	o.OrderStatus = domain.OrderStatus(orderStatus)
	return &o, nil
}
