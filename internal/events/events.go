// Package events publishes order and cart events to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dukerupert/tramhuong/internal/cart"
	"github.com/dukerupert/tramhuong/internal/domain"
)

const (
	SubjectOrderCreated = "orders.created"
	SubjectCartCleared  = "carts.cleared"
)

// Publisher announces state changes to other services.
type Publisher interface {
	OrderCreated(ctx context.Context, order *domain.Order) error
	CartCleared(ctx context.Context, session cart.SessionID) error
}

// OrderCreatedEvent is the payload of SubjectOrderCreated.
type OrderCreatedEvent struct {
	OrderID       string               `json:"order_id"`
	OrderNumber   string               `json:"order_number"`
	SessionID     string               `json:"session_id"`
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
	TotalItems    int                  `json:"total_items"`
	TotalAmount   int64                `json:"total_amount"`
	CreatedAt     time.Time            `json:"created_at"`
}

// CartClearedEvent is the payload of SubjectCartCleared.
type CartClearedEvent struct {
	SessionID string    `json:"session_id"`
	ClearedAt time.Time `json:"cleared_at"`
}

// conn is the part of *nats.Conn the publisher uses.
type conn interface {
	PublishMsg(m *nats.Msg) error
}

// NATSPublisher publishes JSON events. Subjects are prefixed when a prefix is
// configured, e.g. "tramhuong.orders.created".
type NATSPublisher struct {
	nc     conn
	prefix string
	now    func() time.Time
}

// Compile-time check that NATSPublisher implements Publisher.
var _ Publisher = (*NATSPublisher)(nil)

func NewNATSPublisher(nc conn, prefix string) *NATSPublisher {
	return &NATSPublisher{nc: nc, prefix: prefix, now: time.Now}
}

// Connect dials NATS with reconnects enabled.
func Connect(url, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return nc, nil
}

func (p *NATSPublisher) OrderCreated(ctx context.Context, o *domain.Order) error {
	count := 0
	for _, it := range o.Items {
		count += it.Quantity
	}
	return p.publish(ctx, SubjectOrderCreated, OrderCreatedEvent{
		OrderID:       o.ID.String(),
		OrderNumber:   o.OrderNumber,
		SessionID:     o.SessionID,
		PaymentMethod: o.PaymentMethod,
		TotalItems:    count,
		TotalAmount:   o.TotalAmount,
		CreatedAt:     o.CreatedAt,
	})
}

func (p *NATSPublisher) CartCleared(ctx context.Context, session cart.SessionID) error {
	return p.publish(ctx, SubjectCartCleared, CartClearedEvent{
		SessionID: string(session),
		ClearedAt: p.now().UTC(),
	})
}

func (p *NATSPublisher) publish(ctx context.Context, subject string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", subject, err)
	}
	if p.prefix != "" {
		subject = p.prefix + "." + subject
	}

	msg := nats.NewMsg(subject)
	msg.Data = data
	msg.Header.Set("Content-Type", "application/json")
	if err := p.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Nop discards events.
type Nop struct{}

func (Nop) OrderCreated(context.Context, *domain.Order) error { return nil }
func (Nop) CartCleared(context.Context, cart.SessionID) error { return nil }
