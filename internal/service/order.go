package service

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dukerupert/tramhuong/internal/cart"
	"github.com/dukerupert/tramhuong/internal/checkout"
	"github.com/dukerupert/tramhuong/internal/domain"
	"github.com/dukerupert/tramhuong/internal/events"
	"github.com/dukerupert/tramhuong/internal/telemetry"
)

// OrderService places and looks up orders.
type OrderService interface {
	PlaceOrder(ctx context.Context, params PlaceOrderParams) (*domain.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetOrderByNumber(ctx context.Context, number string) (*domain.Order, error)
}

// PlaceOrderParams is a checkout submission. When Items is empty the stored
// cart of SessionID is ordered; otherwise the submitted lines are re-priced
// from the catalog and ordered instead.
type PlaceOrderParams struct {
	SessionID     cart.SessionID
	Customer      domain.CustomerInfo
	PaymentMethod domain.PaymentMethod
	Items         []AddItemParams
	Discount      int64
}

// OrderStore persists orders.
type OrderStore interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetByNumber(ctx context.Context, number string) (*domain.Order, error)
}

// DefaultOrderNumberPrefix starts every order number unless configured
// otherwise.
const DefaultOrderNumberPrefix = "KTH"

// maxNumberAttempts bounds retries when a generated order number collides.
const maxNumberAttempts = 3

type orderService struct {
	store   OrderStore
	carts   CartService
	pricer  Pricer
	builder *checkout.Builder
	metrics *telemetry.BusinessMetrics
	events  events.Publisher
	prefix  string
	now     func() time.Time
}

// Compile-time check that orderService implements OrderService.
var _ OrderService = (*orderService)(nil)

// NewOrderService creates an OrderService. An empty prefix means
// DefaultOrderNumberPrefix.
func NewOrderService(store OrderStore, carts CartService, pricer Pricer, builder *checkout.Builder, metrics *telemetry.BusinessMetrics, pub events.Publisher, prefix string) OrderService {
	if builder == nil {
		builder = checkout.NewBuilder(nil)
	}
	if pub == nil {
		pub = events.Nop{}
	}
	if prefix == "" {
		prefix = DefaultOrderNumberPrefix
	}
	return &orderService{
		store:   store,
		carts:   carts,
		pricer:  pricer,
		builder: builder,
		metrics: metrics,
		events:  pub,
		prefix:  prefix,
		now:     time.Now,
	}
}

// PlaceOrder validates the checkout, stores the order and takes the ordered
// lines out of the session cart. The session stays locked from reading the
// cart until the lines are removed. Failing to update the cart or to publish
// the event does not fail the order.
func (s *orderService) PlaceOrder(ctx context.Context, params PlaceOrderParams) (*domain.Order, error) {
	const op = "order.place"
	logger := zerolog.Ctx(ctx).With().Str("session_id", string(params.SessionID)).Logger()

	if params.SessionID == "" {
		return nil, sessionRequired(op)
	}

	var order *domain.Order
	err := s.carts.Checkout(ctx, params.SessionID, func(stored cart.Snapshot) ([]cart.Item, error) {
		snap, err := s.snapshot(ctx, params, stored)
		if err != nil {
			s.metrics.RecordCheckoutRejected(rejectReason(err))
			return nil, err
		}

		req, err := s.builder.Build(snap, params.Customer, params.PaymentMethod, params.Discount)
		if err != nil {
			s.metrics.RecordCheckoutRejected(rejectReason(err))
			logger.Debug().Err(err).Msg("checkout rejected")
			return nil, err
		}

		order, err = s.create(ctx, req, logger)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to create order")
		}
		return snap.Items, nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.events.OrderCreated(ctx, order); err != nil {
		s.metrics.RecordEventFailure(events.SubjectOrderCreated)
		logger.Warn().Err(err).Str("order_number", order.OrderNumber).Msg("failed to publish order created")
	}
	s.metrics.RecordOrder(order)

	logger.Info().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Str("payment_method", string(order.PaymentMethod)).
		Int64("total_amount", order.TotalAmount).
		Msg("order placed")

	return order, nil
}

// create persists the order, drawing a new number when the previous one is
// already taken.
func (s *orderService) create(ctx context.Context, req *checkout.OrderRequest, logger zerolog.Logger) (*domain.Order, error) {
	now := s.now().UTC()
	order := &domain.Order{
		ID:            uuid.New(),
		SessionID:     string(req.SessionID),
		Customer:      req.Customer,
		Items:         req.Items,
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: domain.PaymentPending,
		OrderStatus:   domain.OrderPending,
		Subtotal:      req.Subtotal,
		ShippingFee:   req.ShippingFee,
		Discount:      req.Discount,
		TotalAmount:   req.TotalAmount,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	for attempt := 1; ; attempt++ {
		order.OrderNumber = s.orderNumber(now)
		err := s.store.Create(ctx, order)
		if err == nil {
			return order, nil
		}
		if !domain.IsCode(err, domain.ECONFLICT) || attempt == maxNumberAttempts {
			return nil, err
		}
		logger.Warn().Str("order_number", order.OrderNumber).Msg("order number collision, retrying")
	}
}

func (s *orderService) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	o, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, wrapLookup(err, "order.get")
	}
	return o, nil
}

func (s *orderService) GetOrderByNumber(ctx context.Context, number string) (*domain.Order, error) {
	o, err := s.store.GetByNumber(ctx, number)
	if err != nil {
		return nil, wrapLookup(err, "order.get_by_number")
	}
	return o, nil
}

// snapshot returns the lines to order: the submitted ones priced from the
// catalog, or the stored cart when nothing was submitted.
func (s *orderService) snapshot(ctx context.Context, params PlaceOrderParams, stored cart.Snapshot) (cart.Snapshot, error) {
	const op = "order.place"
	if len(params.Items) == 0 {
		return stored, nil
	}

	c := cart.New(params.SessionID)
	for _, it := range params.Items {
		if it.Quantity <= 0 {
			return cart.Snapshot{}, domain.NewValidationError(op, "quantity", domain.ErrInvalidQuantity.Message)
		}
		pr, err := s.pricer.PriceFor(ctx, it.ProductID, it.Size)
		if err != nil {
			return cart.Snapshot{}, err
		}
		if c.Quantity(pr.ProductID, pr.Size)+it.Quantity > pr.Stock {
			return cart.Snapshot{}, insufficientStock(op)
		}
		if err := c.Add(pr.ProductID, pr.Size, it.Quantity, pr.UnitPrice, pr.OriginalPrice,
			cart.WithProduct(pr.Name, pr.Image)); err != nil {
			return cart.Snapshot{}, err
		}
	}
	return c.Snapshot(), nil
}

// orderNumber formats prefix, the UTC date and eight random hex digits,
// e.g. KTH20261016A1B2C3D4.
func (s *orderService) orderNumber(now time.Time) string {
	id := uuid.New()
	return s.prefix + now.Format("20060102") + strings.ToUpper(hex.EncodeToString(id[:4]))
}

func wrapLookup(err error, op string) error {
	if domain.IsCode(err, domain.ENOTFOUND) {
		return err
	}
	return domain.Internal(err, op, "failed to load order")
}

// rejectReason labels a refused checkout for metrics.
func rejectReason(err error) string {
	switch {
	case domain.IsValidationError(err):
		return "validation"
	case domain.IsCode(err, domain.ENOTFOUND):
		return "not_found"
	case errors.Is(err, domain.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrDiscountExceedsTotal):
		return "discount"
	default:
		return "other"
	}
}
