package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/dukerupert/tramhuong/internal/cache"
	"github.com/dukerupert/tramhuong/internal/cart"
	"github.com/dukerupert/tramhuong/internal/catalog"
	"github.com/dukerupert/tramhuong/internal/domain"
	"github.com/dukerupert/tramhuong/internal/events"
	"github.com/dukerupert/tramhuong/internal/telemetry"
)

// CartService provides the server-side cart for a browsing session.
type CartService interface {
	GetCart(ctx context.Context, session cart.SessionID) (cart.Snapshot, error)
	AddItem(ctx context.Context, session cart.SessionID, params AddItemParams) (cart.Snapshot, error)
	UpdateItem(ctx context.Context, session cart.SessionID, productID, size string, quantity int) (cart.Snapshot, error)
	RemoveItem(ctx context.Context, session cart.SessionID, productID, size string) (cart.Snapshot, error)
	ClearCart(ctx context.Context, session cart.SessionID) error
	Checkout(ctx context.Context, session cart.SessionID, place PlaceFunc) error
}

// PlaceFunc turns the stored cart into an order and returns the lines it
// ordered.
type PlaceFunc func(stored cart.Snapshot) ([]cart.Item, error)

// AddItemParams describes the line to add. Prices come from the catalog,
// never from the caller.
type AddItemParams struct {
	ProductID string
	Size      string
	Quantity  int
}

// CartStore persists cart lines per session.
type CartStore interface {
	Load(ctx context.Context, session cart.SessionID) ([]cart.Item, error)
	Save(ctx context.Context, session cart.SessionID, items []cart.Item) error
	Clear(ctx context.Context, session cart.SessionID) error
}

// Pricer resolves the current price and stock of a product size.
type Pricer interface {
	PriceFor(ctx context.Context, productID, size string) (catalog.Pricing, error)
}

type cartService struct {
	store   CartStore
	pricer  Pricer
	cache   cache.CartCache
	metrics *telemetry.BusinessMetrics
	events  events.Publisher

	locks *SessionLocks
	reads singleflight.Group
}

// Compile-time check that cartService implements CartService.
var _ CartService = (*cartService)(nil)

// NewCartService creates a CartService. A nil cache or publisher disables
// that concern; a nil metrics records nothing.
func NewCartService(store CartStore, pricer Pricer, c cache.CartCache, metrics *telemetry.BusinessMetrics, pub events.Publisher) CartService {
	if c == nil {
		c = cache.Nop{}
	}
	if pub == nil {
		pub = events.Nop{}
	}
	return &cartService{
		store:   store,
		pricer:  pricer,
		cache:   c,
		metrics: metrics,
		events:  pub,
		locks:   NewSessionLocks(),
	}
}

// GetCart returns the cart of session, serving from the cache when it can.
// A session that never added anything has an empty cart.
func (s *cartService) GetCart(ctx context.Context, session cart.SessionID) (cart.Snapshot, error) {
	const op = "cart.get"
	if session == "" {
		return cart.Snapshot{}, sessionRequired(op)
	}

	snap, err := s.cache.Get(ctx, session)
	switch {
	case err == nil:
		s.metrics.RecordCacheLookup("hit")
		return snap.Clone(), nil
	case errors.Is(err, cache.ErrCacheMiss):
		s.metrics.RecordCacheLookup("miss")
	default:
		s.metrics.RecordCacheLookup("error")
		zerolog.Ctx(ctx).Warn().Err(err).Str("session_id", string(session)).Msg("cart cache read failed")
	}

	// The fill is shared by every waiting caller, so it must outlive the
	// caller that started it.
	fillCtx := context.WithoutCancel(ctx)
	v, err, _ := s.reads.Do(string(session), func() (any, error) {
		// Held so a concurrent mutation cannot invalidate before a stale fill.
		unlock := s.locks.Lock(string(session))
		defer unlock()

		c, err := s.load(fillCtx, session)
		if err != nil {
			return nil, err
		}
		snap := c.Snapshot()
		if err := s.cache.Set(fillCtx, snap); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("session_id", string(session)).Msg("cart cache write failed")
		}
		return snap, nil
	})
	if err != nil {
		return cart.Snapshot{}, domain.Internal(err, op, "failed to load cart")
	}
	return v.(cart.Snapshot).Clone(), nil
}

// AddItem adds a line priced from the catalog. The resulting quantity may not
// exceed the stock of the product size.
func (s *cartService) AddItem(ctx context.Context, session cart.SessionID, params AddItemParams) (cart.Snapshot, error) {
	const op = "cart.add"
	if session == "" {
		return cart.Snapshot{}, sessionRequired(op)
	}
	if params.Quantity <= 0 {
		return cart.Snapshot{}, domain.NewValidationError(op, "quantity", domain.ErrInvalidQuantity.Message)
	}

	pr, err := s.pricer.PriceFor(ctx, params.ProductID, params.Size)
	if err != nil {
		return cart.Snapshot{}, err
	}

	return s.mutate(ctx, session, "add", op, func(c *cart.Cart) error {
		if c.Quantity(pr.ProductID, pr.Size)+params.Quantity > pr.Stock {
			return insufficientStock(op)
		}
		return c.Add(pr.ProductID, pr.Size, params.Quantity, pr.UnitPrice, pr.OriginalPrice,
			cart.WithProduct(pr.Name, pr.Image))
	})
}

// UpdateItem sets the quantity of an existing line. Zero removes it. Raising
// a quantity is checked against stock.
func (s *cartService) UpdateItem(ctx context.Context, session cart.SessionID, productID, size string, quantity int) (cart.Snapshot, error) {
	const op = "cart.update"
	if session == "" {
		return cart.Snapshot{}, sessionRequired(op)
	}
	if quantity < 0 {
		return cart.Snapshot{}, domain.NewValidationError(op, "quantity", domain.ErrInvalidQuantity.Message)
	}

	return s.mutate(ctx, session, "update", op, func(c *cart.Cart) error {
		if !c.Contains(productID, size) {
			return &domain.Error{Code: domain.ENOTFOUND, Op: op, Message: domain.ErrCartItemNotFound.Message}
		}
		if quantity > c.Quantity(productID, size) {
			pr, err := s.pricer.PriceFor(ctx, productID, size)
			if err != nil {
				return err
			}
			if quantity > pr.Stock {
				return insufficientStock(op)
			}
		}
		return c.SetQuantity(productID, size, quantity)
	})
}

// RemoveItem drops a line. Removing a line that is not there is not an error.
func (s *cartService) RemoveItem(ctx context.Context, session cart.SessionID, productID, size string) (cart.Snapshot, error) {
	const op = "cart.remove"
	if session == "" {
		return cart.Snapshot{}, sessionRequired(op)
	}
	return s.mutate(ctx, session, "remove", op, func(c *cart.Cart) error {
		c.Remove(productID, size)
		return nil
	})
}

// ClearCart empties the cart of session and announces it.
func (s *cartService) ClearCart(ctx context.Context, session cart.SessionID) error {
	const op = "cart.clear"
	if session == "" {
		return sessionRequired(op)
	}

	unlock := s.locks.Lock(string(session))
	defer unlock()

	if err := s.clear(ctx, session); err != nil {
		return domain.Internal(err, op, "failed to clear cart")
	}
	return nil
}

// Checkout runs place against the stored cart while holding the session
// lock, then takes the ordered quantities out of the cart. Lines that were
// not ordered stay. Nothing is taken out when place fails. Once place has
// succeeded, a failure to persist the removal is only logged.
func (s *cartService) Checkout(ctx context.Context, session cart.SessionID, place PlaceFunc) error {
	const op = "cart.checkout"
	if session == "" {
		return sessionRequired(op)
	}

	unlock := s.locks.Lock(string(session))
	defer unlock()

	c, err := s.load(ctx, session)
	if err != nil {
		return domain.Internal(err, op, "failed to load cart")
	}
	ordered, err := place(c.Snapshot())
	if err != nil {
		return err
	}

	for _, it := range ordered {
		if left := c.Quantity(it.ProductID, it.Size) - it.Quantity; left > 0 {
			_ = c.SetQuantity(it.ProductID, it.Size, left) // present: left > 0
		} else {
			c.Remove(it.ProductID, it.Size)
		}
	}

	logger := zerolog.Ctx(ctx).With().Str("session_id", string(session)).Logger()
	if c.Len() == 0 {
		if err := s.clear(ctx, session); err != nil {
			logger.Warn().Err(err).Msg("failed to clear cart after checkout")
		}
		return nil
	}
	if err := s.store.Save(ctx, session, c.Items()); err != nil {
		logger.Warn().Err(err).Msg("failed to remove ordered lines from cart")
		return nil
	}
	s.invalidate(ctx, session)
	s.metrics.RecordCartMutation("checkout", c.TotalAmount())
	logger.Debug().Int("remaining_items", c.TotalItems()).Msg("ordered lines removed from cart")
	return nil
}

// clear empties the stored cart and announces it. The caller holds the
// session lock.
func (s *cartService) clear(ctx context.Context, session cart.SessionID) error {
	if err := s.store.Clear(ctx, session); err != nil {
		return err
	}
	s.invalidate(ctx, session)
	s.metrics.RecordCartMutation("clear", 0)

	if err := s.events.CartCleared(ctx, session); err != nil {
		s.metrics.RecordEventFailure(events.SubjectCartCleared)
		zerolog.Ctx(ctx).Warn().Err(err).Str("session_id", string(session)).Msg("failed to publish cart cleared")
	}
	zerolog.Ctx(ctx).Debug().Str("session_id", string(session)).Msg("cart cleared")
	return nil
}

// mutate runs fn against the stored cart of session while holding the
// session lock, then persists the result. The stored cart is untouched when
// fn or the save fails.
func (s *cartService) mutate(ctx context.Context, session cart.SessionID, operation, op string, fn func(*cart.Cart) error) (cart.Snapshot, error) {
	unlock := s.locks.Lock(string(session))
	defer unlock()

	c, err := s.load(ctx, session)
	if err != nil {
		return cart.Snapshot{}, domain.Internal(err, op, "failed to load cart")
	}
	if err := fn(c); err != nil {
		return cart.Snapshot{}, err
	}
	if err := s.store.Save(ctx, session, c.Items()); err != nil {
		return cart.Snapshot{}, domain.Internal(err, op, "failed to save cart")
	}
	s.invalidate(ctx, session)

	snap := c.Snapshot()
	s.metrics.RecordCartMutation(operation, snap.TotalAmount)
	zerolog.Ctx(ctx).Debug().
		Str("session_id", string(session)).
		Str("operation", operation).
		Int("total_items", snap.TotalItems).
		Int64("total_amount", snap.TotalAmount).
		Msg("cart updated")
	return snap, nil
}

func (s *cartService) load(ctx context.Context, session cart.SessionID) (*cart.Cart, error) {
	items, err := s.store.Load(ctx, session)
	if err != nil {
		return nil, err
	}
	return cart.Restore(session, items)
}

func (s *cartService) invalidate(ctx context.Context, session cart.SessionID) {
	if err := s.cache.Delete(ctx, session); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("session_id", string(session)).Msg("cart cache invalidation failed")
	}
}

func sessionRequired(op string) error {
	return &domain.Error{Code: domain.ErrSessionRequired.Code, Op: op, Message: domain.ErrSessionRequired.Message}
}

func insufficientStock(op string) error {
	return &domain.Error{Code: domain.ErrInsufficientStock.Code, Op: op, Message: domain.ErrInsufficientStock.Message}
}
