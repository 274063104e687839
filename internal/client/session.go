package client

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/dukerupert/tramhuong/internal/cart"
	"github.com/dukerupert/tramhuong/internal/checkout"
	"github.com/dukerupert/tramhuong/internal/domain"
)

// CartAPI is the part of the API a Session uses.
type CartAPI interface {
	GetCart(ctx context.Context, session cart.SessionID) (cart.Snapshot, error)
	AddToCart(ctx context.Context, session cart.SessionID, productID, size string, quantity int) (cart.Snapshot, error)
	UpdateCartItem(ctx context.Context, session cart.SessionID, productID, size string, quantity int) (cart.Snapshot, error)
	RemoveCartItem(ctx context.Context, session cart.SessionID, productID, size string) (cart.Snapshot, error)
	ClearCart(ctx context.Context, session cart.SessionID) (cart.Snapshot, error)
	CreateOrder(ctx context.Context, sub OrderSubmission) (*domain.Order, error)
}

// Session is one shopper's view of the server-held cart. Calls are
// serialized, so at most one request per session is in flight, and the local
// cart only changes when the server accepted the change.
type Session struct {
	mu      sync.Mutex
	id      cart.SessionID
	api     CartAPI
	builder *checkout.Builder
	cart    cart.Snapshot
}

// NewSession creates a session with an empty local cart. A nil builder uses
// the default fee table.
func NewSession(api CartAPI, id cart.SessionID, builder *checkout.Builder) *Session {
	if builder == nil {
		builder = checkout.NewBuilder(nil)
	}
	return &Session{
		id:      id,
		api:     api,
		builder: builder,
		cart:    cart.EmptySnapshot(id),
	}
}

// ID returns the session identifier.
func (s *Session) ID() cart.SessionID {
	return s.id
}

// Cart returns a copy of the last cart the server confirmed.
func (s *Session) Cart() cart.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

// Refresh reloads the cart from the server.
func (s *Session) Refresh(ctx context.Context) (cart.Snapshot, error) {
	return s.apply(func() (cart.Snapshot, error) {
		return s.api.GetCart(ctx, s.id)
	})
}

func (s *Session) Add(ctx context.Context, productID, size string, quantity int) (cart.Snapshot, error) {
	return s.apply(func() (cart.Snapshot, error) {
		return s.api.AddToCart(ctx, s.id, productID, size, quantity)
	})
}

func (s *Session) Update(ctx context.Context, productID, size string, quantity int) (cart.Snapshot, error) {
	return s.apply(func() (cart.Snapshot, error) {
		return s.api.UpdateCartItem(ctx, s.id, productID, size, quantity)
	})
}

func (s *Session) Remove(ctx context.Context, productID, size string) (cart.Snapshot, error) {
	return s.apply(func() (cart.Snapshot, error) {
		return s.api.RemoveCartItem(ctx, s.id, productID, size)
	})
}

func (s *Session) Clear(ctx context.Context) (cart.Snapshot, error) {
	return s.apply(func() (cart.Snapshot, error) {
		return s.api.ClearCart(ctx, s.id)
	})
}

// apply runs call under the session lock and keeps its result only on
// success.
func (s *Session) apply(call func() (cart.Snapshot, error)) (cart.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := call()
	if err != nil {
		return s.cart.Clone(), err
	}
	if snap.Items == nil {
		snap.Items = []cart.Item{}
	}
	s.cart = snap
	return snap.Clone(), nil
}

// Checkout validates the local cart and customer details, then submits the
// order. Nothing is sent when the cart is empty or a field is invalid. The
// local cart is emptied once the order is accepted.
func (s *Session) Checkout(ctx context.Context, info domain.CustomerInfo, method domain.PaymentMethod) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, err := s.builder.Build(s.cart, info, method, 0)
	if err != nil {
		return nil, err
	}

	sub := OrderSubmission{
		SessionID:     s.id,
		Customer:      req.Customer,
		PaymentMethod: req.PaymentMethod,
		Items:         make([]OrderLine, len(req.Items)),
	}
	for i, it := range req.Items {
		sub.Items[i] = OrderLine{ProductID: it.ProductID, Size: it.Size, Quantity: it.Quantity}
	}

	order, err := s.api.CreateOrder(ctx, sub)
	if err != nil {
		return nil, err
	}
	s.cart = cart.EmptySnapshot(s.id)
	return order, nil
}

const sessionAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewSessionID returns a fresh identifier shaped like the ones the storefront
// issues: session_{unix millis}_{9 base36 chars}.
func NewSessionID() cart.SessionID {
	return newSessionID(time.Now())
}

func newSessionID(now time.Time) cart.SessionID {
	var b strings.Builder
	base := big.NewInt(int64(len(sessionAlphabet)))
	for range 9 {
		n, err := rand.Int(rand.Reader, base)
		if err != nil {
			panic(fmt.Sprintf("client: read random: %v", err))
		}
		b.WriteByte(sessionAlphabet[n.Int64()])
	}
	return cart.SessionID(fmt.Sprintf("session_%d_%s", now.UnixMilli(), b.String()))
}
