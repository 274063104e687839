package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/tramhuong/internal/cart"
	"github.com/dukerupert/tramhuong/internal/catalog"
	"github.com/dukerupert/tramhuong/internal/domain"
	"github.com/dukerupert/tramhuong/internal/service"
)

// serve routes req through a mux registered with pattern so path values are
// populated the way the router does it.
func serve(pattern string, h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, h)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func newRequest(method, target, body string) *http.Request {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

type errorEnvelope struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
	Detail string `json:"detail"`
}

// mockCartService implements service.CartService for testing
type mockCartService struct {
	getCartFunc    func(ctx context.Context, session cart.SessionID) (cart.Snapshot, error)
	addItemFunc    func(ctx context.Context, session cart.SessionID, params service.AddItemParams) (cart.Snapshot, error)
	updateItemFunc func(ctx context.Context, session cart.SessionID, productID, size string, quantity int) (cart.Snapshot, error)
	removeItemFunc func(ctx context.Context, session cart.SessionID, productID, size string) (cart.Snapshot, error)
	clearCartFunc  func(ctx context.Context, session cart.SessionID) error
	checkoutFunc   func(ctx context.Context, session cart.SessionID, place service.PlaceFunc) error
}

func (m *mockCartService) GetCart(ctx context.Context, session cart.SessionID) (cart.Snapshot, error) {
	if m.getCartFunc != nil {
		return m.getCartFunc(ctx, session)
	}
	return cart.EmptySnapshot(session), nil
}

func (m *mockCartService) AddItem(ctx context.Context, session cart.SessionID, params service.AddItemParams) (cart.Snapshot, error) {
	if m.addItemFunc != nil {
		return m.addItemFunc(ctx, session, params)
	}
	return cart.EmptySnapshot(session), nil
}

func (m *mockCartService) UpdateItem(ctx context.Context, session cart.SessionID, productID, size string, quantity int) (cart.Snapshot, error) {
	if m.updateItemFunc != nil {
		return m.updateItemFunc(ctx, session, productID, size, quantity)
	}
	return cart.EmptySnapshot(session), nil
}

func (m *mockCartService) RemoveItem(ctx context.Context, session cart.SessionID, productID, size string) (cart.Snapshot, error) {
	if m.removeItemFunc != nil {
		return m.removeItemFunc(ctx, session, productID, size)
	}
	return cart.EmptySnapshot(session), nil
}

func (m *mockCartService) ClearCart(ctx context.Context, session cart.SessionID) error {
	if m.clearCartFunc != nil {
		return m.clearCartFunc(ctx, session)
	}
	return nil
}

func (m *mockCartService) Checkout(ctx context.Context, session cart.SessionID, place service.PlaceFunc) error {
	if m.checkoutFunc != nil {
		return m.checkoutFunc(ctx, session, place)
	}
	_, err := place(cart.EmptySnapshot(session))
	return err
}

// mockOrderService implements service.OrderService for testing
type mockOrderService struct {
	placeOrderFunc       func(ctx context.Context, params service.PlaceOrderParams) (*domain.Order, error)
	getOrderFunc         func(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	getOrderByNumberFunc func(ctx context.Context, number string) (*domain.Order, error)
}

func (m *mockOrderService) PlaceOrder(ctx context.Context, params service.PlaceOrderParams) (*domain.Order, error) {
	if m.placeOrderFunc != nil {
		return m.placeOrderFunc(ctx, params)
	}
	return nil, nil
}

func (m *mockOrderService) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	if m.getOrderFunc != nil {
		return m.getOrderFunc(ctx, id)
	}
	return nil, domain.ErrOrderNotFound
}

func (m *mockOrderService) GetOrderByNumber(ctx context.Context, number string) (*domain.Order, error) {
	if m.getOrderByNumberFunc != nil {
		return m.getOrderByNumberFunc(ctx, number)
	}
	return nil, domain.ErrOrderNotFound
}

// mockCatalog implements Catalog for testing
type mockCatalog struct {
	listFunc   func(ctx context.Context, f catalog.Filter) ([]catalog.Product, error)
	getFunc    func(ctx context.Context, id string) (*catalog.Product, error)
	createFunc func(ctx context.Context, in catalog.ProductInput) (*catalog.Product, error)
	updateFunc func(ctx context.Context, id string, upd catalog.ProductUpdate) (*catalog.Product, error)
	deleteFunc func(ctx context.Context, id string) error
}

func (m *mockCatalog) List(ctx context.Context, f catalog.Filter) ([]catalog.Product, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, f)
	}
	return nil, nil
}

func (m *mockCatalog) Get(ctx context.Context, id string) (*catalog.Product, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	return nil, domain.ErrProductNotFound
}

func (m *mockCatalog) Create(ctx context.Context, in catalog.ProductInput) (*catalog.Product, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, in)
	}
	return nil, nil
}

func (m *mockCatalog) Update(ctx context.Context, id string, upd catalog.ProductUpdate) (*catalog.Product, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, upd)
	}
	return nil, domain.ErrProductNotFound
}

func (m *mockCatalog) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}
