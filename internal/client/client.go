// Package client is a typed client for the storefront API. Every failure to
// get a 2xx answer comes back as a *domain.TransportError, and all calls go
// through a circuit breaker so a failing backend is not hammered.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/dukerupert/tramhuong/internal/cart"
	"github.com/dukerupert/tramhuong/internal/catalog"
	"github.com/dukerupert/tramhuong/internal/domain"
)

const (
	DefaultTimeout          = 15 * time.Second
	DefaultFailureThreshold = 5
	DefaultOpenTimeout      = 30 * time.Second

	// maxErrorBody bounds how much of an error response is read.
	maxErrorBody = 64 << 10
)

const unavailableMessage = "Không thể kết nối tới máy chủ. Vui lòng thử lại sau."

// Config configures a Client.
type Config struct {
	BaseURL string

	// Timeout applies to each request. Zero means DefaultTimeout.
	Timeout time.Duration

	// FailureThreshold is the number of consecutive failures that opens the
	// circuit. OpenTimeout is how long it stays open before a probe.
	FailureThreshold uint32
	OpenTimeout      time.Duration

	// HTTPClient overrides the underlying client; Timeout is then ignored.
	HTTPClient *http.Client

	Logger zerolog.Logger
}

// Client calls the storefront API.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[struct{}]
	logger  zerolog.Logger
}

// New creates a Client for cfg.BaseURL.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("client: base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("client: parse base URL: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultFailureThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = DefaultOpenTimeout
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}

	c := &Client{
		baseURL: base,
		http:    hc,
		logger:  cfg.Logger,
	}
	threshold := cfg.FailureThreshold
	c.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:    "tramhuong-api",
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: answered,
		IsExcluded: func(err error) bool {
			return errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
	return c, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// answered reports whether err still means the API is healthy: a 4xx is the
// shopper's problem, not the backend's.
func answered(err error) bool {
	if err == nil {
		return true
	}
	var te *domain.TransportError
	return errors.As(err, &te) && te.StatusCode >= 400 && te.StatusCode < 500
}

// apiError is the error envelope written by the API.
type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Detail string `json:"detail"`
}

// do sends a JSON request and decodes a 2xx response into out.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	_, err := c.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, c.roundTrip(ctx, op, method, path, query, body, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &domain.TransportError{Op: op, Code: domain.EUNAVAILABLE, Message: unavailableMessage, Err: err}
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	u := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		code := domain.EUNAVAILABLE
		if errors.Is(err, context.DeadlineExceeded) {
			code = domain.ETIMEOUT
		}
		return &domain.TransportError{Op: op, Code: code, Message: unavailableMessage, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(op, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.TransportError{Op: op, StatusCode: resp.StatusCode, Code: domain.EINTERNAL, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func statusError(op string, resp *http.Response) error {
	te := &domain.TransportError{
		Op:         op,
		StatusCode: resp.StatusCode,
		Code:       domain.CodeForStatus(resp.StatusCode),
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body apiError
	if json.Unmarshal(raw, &body) == nil {
		te.Message = body.Detail
		if te.Message == "" {
			te.Message = body.Error.Message
		}
	}
	if te.Message == "" {
		te.Message = http.StatusText(resp.StatusCode)
	}
	return te
}

// Ping calls the API root and returns its greeting.
func (c *Client) Ping(ctx context.Context) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, "client.ping", http.MethodGet, "/api/", nil, nil, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// ListProducts returns the catalog, optionally filtered.
func (c *Client) ListProducts(ctx context.Context, f catalog.Filter) ([]catalog.Product, error) {
	q := url.Values{}
	if f.Featured != nil {
		q.Set("featured", strconv.FormatBool(*f.Featured))
	}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	var out []catalog.Product
	if err := c.do(ctx, "client.list_products", http.MethodGet, "/api/products", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetProduct(ctx context.Context, id string) (*catalog.Product, error) {
	var out catalog.Product
	if err := c.do(ctx, "client.get_product", http.MethodGet, "/api/products/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateProduct(ctx context.Context, in catalog.ProductInput) (*catalog.Product, error) {
	var out catalog.Product
	if err := c.do(ctx, "client.create_product", http.MethodPost, "/api/products", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id string, upd catalog.ProductUpdate) (*catalog.Product, error) {
	var out catalog.Product
	if err := c.do(ctx, "client.update_product", http.MethodPut, "/api/products/"+url.PathEscape(id), nil, upd, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.do(ctx, "client.delete_product", http.MethodDelete, "/api/products/"+url.PathEscape(id), nil, nil, nil)
}

// lineRequest mirrors the cart line body accepted by the API.
type lineRequest struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Quantity  *int   `json:"quantity,omitempty"`
}

type cartResponse struct {
	Message string        `json:"message"`
	Cart    cart.Snapshot `json:"cart"`
}

func cartPath(session cart.SessionID, action string) string {
	p := "/api/cart/" + url.PathEscape(string(session))
	if action != "" {
		p += "/" + action
	}
	return p
}

// GetCart returns the server-held cart of session.
func (c *Client) GetCart(ctx context.Context, session cart.SessionID) (cart.Snapshot, error) {
	var out cart.Snapshot
	if err := c.do(ctx, "client.get_cart", http.MethodGet, cartPath(session, ""), nil, nil, &out); err != nil {
		return cart.Snapshot{}, err
	}
	return out, nil
}

// AddToCart adds quantity of productID in size and returns the updated cart.
func (c *Client) AddToCart(ctx context.Context, session cart.SessionID, productID, size string, quantity int) (cart.Snapshot, error) {
	return c.mutateCart(ctx, "client.add_to_cart", http.MethodPost, cartPath(session, "add"),
		lineRequest{ProductID: productID, Size: size, Quantity: &quantity})
}

// UpdateCartItem sets the quantity of a line. Zero removes it.
func (c *Client) UpdateCartItem(ctx context.Context, session cart.SessionID, productID, size string, quantity int) (cart.Snapshot, error) {
	return c.mutateCart(ctx, "client.update_cart_item", http.MethodPut, cartPath(session, "update"),
		lineRequest{ProductID: productID, Size: size, Quantity: &quantity})
}

// RemoveCartItem drops a line.
func (c *Client) RemoveCartItem(ctx context.Context, session cart.SessionID, productID, size string) (cart.Snapshot, error) {
	return c.mutateCart(ctx, "client.remove_cart_item", http.MethodDelete, cartPath(session, "remove"),
		lineRequest{ProductID: productID, Size: size})
}

// ClearCart empties the cart of session.
func (c *Client) ClearCart(ctx context.Context, session cart.SessionID) (cart.Snapshot, error) {
	return c.mutateCart(ctx, "client.clear_cart", http.MethodDelete, cartPath(session, "clear"), nil)
}

func (c *Client) mutateCart(ctx context.Context, op, method, path string, body any) (cart.Snapshot, error) {
	var out cartResponse
	if err := c.do(ctx, op, method, path, nil, body, &out); err != nil {
		return cart.Snapshot{}, err
	}
	return out.Cart, nil
}

// OrderLine is one line of an order submission.
type OrderLine struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

// OrderSubmission is the body of POST /api/orders.
type OrderSubmission struct {
	SessionID     cart.SessionID       `json:"session_id"`
	Customer      domain.CustomerInfo  `json:"customer_info"`
	Items         []OrderLine          `json:"items"`
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
}

// CreateOrder submits an order and returns it as stored.
func (c *Client) CreateOrder(ctx context.Context, sub OrderSubmission) (*domain.Order, error) {
	var out domain.Order
	if err := c.do(ctx, "client.create_order", http.MethodPost, "/api/orders", nil, sub, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	var out domain.Order
	if err := c.do(ctx, "client.get_order", http.MethodGet, "/api/orders/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetOrderByNumber(ctx context.Context, number string) (*domain.Order, error) {
	var out domain.Order
	if err := c.do(ctx, "client.get_order_by_number", http.MethodGet, "/api/orders/number/"+url.PathEscape(number), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
