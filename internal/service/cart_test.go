package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/tramhuong/internal/cache"
	"github.com/dukerupert/tramhuong/internal/cart"
	"github.com/dukerupert/tramhuong/internal/catalog"
	"github.com/dukerupert/tramhuong/internal/domain"
	"github.com/dukerupert/tramhuong/internal/telemetry"
)

// mockCartStore keeps carts in memory. The Func fields override a method.
type mockCartStore struct {
	mu    sync.Mutex
	carts map[cart.SessionID][]cart.Item
	loads int

	LoadFunc  func(ctx context.Context, session cart.SessionID) ([]cart.Item, error)
	SaveFunc  func(ctx context.Context, session cart.SessionID, items []cart.Item) error
	ClearFunc func(ctx context.Context, session cart.SessionID) error
}

func newMockCartStore() *mockCartStore {
	return &mockCartStore{carts: make(map[cart.SessionID][]cart.Item)}
}

func (m *mockCartStore) Load(ctx context.Context, session cart.SessionID) ([]cart.Item, error) {
	if m.LoadFunc != nil {
		return m.LoadFunc(ctx, session)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	return append([]cart.Item(nil), m.carts[session]...), nil
}

func (m *mockCartStore) Save(ctx context.Context, session cart.SessionID, items []cart.Item) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, session, items)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[session] = append([]cart.Item(nil), items...)
	return nil
}

func (m *mockCartStore) Clear(ctx context.Context, session cart.SessionID) error {
	if m.ClearFunc != nil {
		return m.ClearFunc(ctx, session)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, session)
	return nil
}

func (m *mockCartStore) stored(session cart.SessionID) []cart.Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.carts[session]
}

// mockPricer prices from a fixed table keyed by product and size.
type mockPricer struct {
	prices map[cart.Key]catalog.Pricing

	PriceForFunc func(ctx context.Context, productID, size string) (catalog.Pricing, error)
}

func (m *mockPricer) PriceFor(ctx context.Context, productID, size string) (catalog.Pricing, error) {
	if m.PriceForFunc != nil {
		return m.PriceForFunc(ctx, productID, size)
	}
	pr, ok := m.prices[cart.Key{ProductID: productID, Size: size}]
	if !ok {
		return catalog.Pricing{}, &domain.Error{Code: domain.ENOTFOUND, Message: domain.ErrProductNotFound.Message}
	}
	return pr, nil
}

// mockPublisher records published events.
type mockPublisher struct {
	mu      sync.Mutex
	orders  []*domain.Order
	cleared []cart.SessionID

	OrderCreatedFunc func(ctx context.Context, o *domain.Order) error
	CartClearedFunc  func(ctx context.Context, session cart.SessionID) error
}

func (m *mockPublisher) OrderCreated(ctx context.Context, o *domain.Order) error {
	if m.OrderCreatedFunc != nil {
		return m.OrderCreatedFunc(ctx, o)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append(m.orders, o)
	return nil
}

func (m *mockPublisher) CartCleared(ctx context.Context, session cart.SessionID) error {
	if m.CartClearedFunc != nil {
		return m.CartClearedFunc(ctx, session)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleared = append(m.cleared, session)
	return nil
}

// mapCache is a CartCache backed by a map.
type mapCache struct {
	mu    sync.Mutex
	snaps map[cart.SessionID]cart.Snapshot
}

func newMapCache() *mapCache {
	return &mapCache{snaps: make(map[cart.SessionID]cart.Snapshot)}
}

func (c *mapCache) Get(_ context.Context, session cart.SessionID) (*cart.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, ok := c.snaps[session]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	out := snap.Clone()
	return &out, nil
}

func (c *mapCache) Set(_ context.Context, snap cart.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snaps[snap.SessionID] = snap.Clone()
	return nil
}

func (c *mapCache) Delete(_ context.Context, session cart.SessionID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.snaps, session)
	return nil
}

const testSession = cart.SessionID("session_1760600000000_k3j9x2m1q")

func int64Ptr(v int64) *int64 { return &v }

func samplePricer() *mockPricer {
	return &mockPricer{prices: map[cart.Key]catalog.Pricing{
		{ProductID: "ky-nam", Size: "Vừa (10g)"}: {
			ProductID: "ky-nam", Name: "Trầm Hương Kỳ Nam", Image: "/img/ky-nam.jpg",
			Size: "Vừa (10g)", UnitPrice: 2500000, OriginalPrice: int64Ptr(3000000), Stock: 5,
		},
		{ProductID: "ky-nam", Size: "Nhỏ (5g)"}: {
			ProductID: "ky-nam", Name: "Trầm Hương Kỳ Nam", Image: "/img/ky-nam.jpg",
			Size: "Nhỏ (5g)", UnitPrice: 1300000, OriginalPrice: int64Ptr(1600000), Stock: 3,
		},
		{ProductID: "sang", Size: ""}: {
			ProductID: "sang", Name: "Nhang Trầm Sáng", Image: "/img/sang.jpg",
			UnitPrice: 600000, Stock: 15,
		},
	}}
}

type cartFixture struct {
	svc     CartService
	store   *mockCartStore
	cache   *mapCache
	events  *mockPublisher
	metrics *telemetry.BusinessMetrics
}

func newCartFixture(t *testing.T) *cartFixture {
	t.Helper()
	f := &cartFixture{
		store:   newMockCartStore(),
		cache:   newMapCache(),
		events:  &mockPublisher{},
		metrics: telemetry.NewBusinessMetrics(prometheus.NewRegistry(), "test"),
	}
	f.svc = NewCartService(f.store, samplePricer(), f.cache, f.metrics, f.events)
	return f
}

func TestCartService_AddItem(t *testing.T) {
	ctx := context.Background()

	t.Run("prices the line from the catalog", func(t *testing.T) {
		f := newCartFixture(t)

		snap, err := f.svc.AddItem(ctx, testSession, AddItemParams{ProductID: "ky-nam", Size: "Vừa (10g)", Quantity: 2})
		require.NoError(t, err)

		require.Len(t, snap.Items, 1)
		it := snap.Items[0]
		assert.Equal(t, "Trầm Hương Kỳ Nam", it.ProductName)
		assert.Equal(t, int64(2500000), it.UnitPrice)
		assert.Equal(t, int64(5000000), it.LineTotal)
		assert.Equal(t, int64(3000000), *it.OriginalPrice)
		assert.Equal(t, 2, snap.TotalItems)
		assert.Equal(t, int64(5000000), snap.TotalAmount)
		assert.Equal(t, snap.Items, f.store.stored(testSession))
	})

	t.Run("same product and size merges", func(t *testing.T) {
		f := newCartFixture(t)

		_, err := f.svc.AddItem(ctx, testSession, AddItemParams{ProductID: "ky-nam", Size: "Vừa (10g)", Quantity: 1})
		require.NoError(t, err)
		_, err = f.svc.AddItem(ctx, testSession, AddItemParams{ProductID: "ky-nam", Size: "Nhỏ (5g)", Quantity: 1})
		require.NoError(t, err)
		snap, err := f.svc.AddItem(ctx, testSession, AddItemParams{ProductID: "ky-nam", Size: "Vừa (10g)", Quantity: 2})
		require.NoError(t, err)

		require.Len(t, snap.Items, 2)
		assert.Equal(t, "Vừa (10g)", snap.Items[0].Size)
		assert.Equal(t, 3, snap.Items[0].Quantity)
		assert.Equal(t, 4, snap.TotalItems)
	})

	t.Run("exceeding stock is rejected and nothing is saved", func(t *testing.T) {
		f := newCartFixture(t)

		_, err := f.svc.AddItem(ctx, testSession, AddItemParams{ProductID: "ky-nam", Size: "Nhỏ (5g)", Quantity: 2})
		require.NoError(t, err)
		_, err = f.svc.AddItem(ctx, testSession, AddItemParams{ProductID: "ky-nam", Size: "Nhỏ (5g)", Quantity: 2})

		assert.ErrorIs(t, err, domain.ErrInsufficientStock)
		assert.Equal(t, 2, f.store.stored(testSession)[0].Quantity)
	})

	t.Run("invalid input", func(t *testing.T) {
		tests := []struct {
			name    string
			session cart.SessionID
			params  AddItemParams
			code    string
		}{
			{"missing session", "", AddItemParams{ProductID: "sang", Quantity: 1}, domain.EINVALID},
			{"zero quantity", testSession, AddItemParams{ProductID: "sang", Quantity: 0}, domain.EINVALID},
			{"negative quantity", testSession, AddItemParams{ProductID: "sang", Quantity: -1}, domain.EINVALID},
			{"unknown product", testSession, AddItemParams{ProductID: "missing", Quantity: 1}, domain.ENOTFOUND},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newCartFixture(t)
				_, err := f.svc.AddItem(ctx, tt.session, tt.params)
				assert.Equal(t, tt.code, domain.ErrorCode(err))
				assert.Empty(t, f.store.stored(tt.session))
			})
		}
	})

	t.Run("save failure is internal", func(t *testing.T) {
		f := newCartFixture(t)
		f.store.SaveFunc = func(context.Context, cart.SessionID, []cart.Item) error {
			return errors.New("connection reset")
		}

		_, err := f.svc.AddItem(ctx, testSession, AddItemParams{ProductID: "sang", Quantity: 1})
		assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))
	})
}

func TestCartService_UpdateItem(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		productID string
		size      string
		quantity  int
		wantCode  string
		wantItems int
		wantQty   int
	}{
		{name: "lower quantity", productID: "ky-nam", size: "Vừa (10g)", quantity: 1, wantItems: 1, wantQty: 1},
		{name: "raise within stock", productID: "ky-nam", size: "Vừa (10g)", quantity: 5, wantItems: 1, wantQty: 5},
		{name: "raise past stock", productID: "ky-nam", size: "Vừa (10g)", quantity: 6, wantCode: domain.EINVALID, wantItems: 1, wantQty: 2},
		{name: "zero removes", productID: "ky-nam", size: "Vừa (10g)", quantity: 0, wantItems: 0},
		{name: "negative rejected", productID: "ky-nam", size: "Vừa (10g)", quantity: -2, wantCode: domain.EINVALID, wantItems: 1, wantQty: 2},
		{name: "missing line", productID: "ky-nam", size: "Lớn (20g)", quantity: 1, wantCode: domain.ENOTFOUND, wantItems: 1, wantQty: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCartFixture(t)
			_, err := f.svc.AddItem(ctx, testSession, AddItemParams{ProductID: "ky-nam", Size: "Vừa (10g)", Quantity: 2})
			require.NoError(t, err)

			_, err = f.svc.UpdateItem(ctx, testSession, tt.productID, tt.size, tt.quantity)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, domain.ErrorCode(err))
			} else {
				require.NoError(t, err)
			}

			stored := f.store.stored(testSession)
			require.Len(t, stored, tt.wantItems)
			if tt.wantItems > 0 {
				assert.Equal(t, tt.wantQty, stored[0].Quantity)
			}
		})
	}
}

func TestCartService_RemoveItemIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture(t)

	_, err := f.svc.AddItem(ctx, testSession, AddItemParams{ProductID: "sang", Quantity: 1})
	require.NoError(t, err)

	snap, err := f.svc.RemoveItem(ctx, testSession, "sang", "")
	require.NoError(t, err)
	assert.True(t, snap.Empty())

	snap, err = f.svc.RemoveItem(ctx, testSession, "sang", "")
	require.NoError(t, err)
	assert.True(t, snap.Empty())
}

func TestCartService_GetCart(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown session is empty", func(t *testing.T) {
		f := newCartFixture(t)
		snap, err := f.svc.GetCart(ctx, testSession)
		require.NoError(t, err)
		assert.Equal(t, testSession, snap.SessionID)
		assert.True(t, snap.Empty())
	})

	t.Run("second read is served from cache", func(t *testing.T) {
		f := newCartFixture(t)
		_, err := f.svc.AddItem(ctx, testSession, AddItemParams{ProductID: "sang", Quantity: 2})
		require.NoError(t, err)
		loadsAfterAdd := f.store.loads

		first, err := f.svc.GetCart(ctx, testSession)
		require.NoError(t, err)
		second, err := f.svc.GetCart(ctx, testSession)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, loadsAfterAdd+1, f.store.loads)
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CartCache.WithLabelValues("hit")))
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CartCache.WithLabelValues("miss")))
	})

	t.Run("mutation invalidates the cache", func(t *testing.T) {
		f := newCartFixture(t)
		_, err := f.svc.AddItem(ctx, testSession, AddItemParams{ProductID: "sang", Quantity: 1})
		require.NoError(t, err)
		_, err = f.svc.GetCart(ctx, testSession)
		require.NoError(t, err)

		_, err = f.svc.AddItem(ctx, testSession, AddItemParams{ProductID: "sang", Quantity: 1})
		require.NoError(t, err)

		snap, err := f.svc.GetCart(ctx, testSession)
		require.NoError(t, err)
		assert.Equal(t, 2, snap.TotalItems)
	})

	t.Run("returned snapshot does not alias the cache", func(t *testing.T) {
		f := newCartFixture(t)
		_, err := f.svc.AddItem(ctx, testSession, AddItemParams{ProductID: "sang", Quantity: 1})
		require.NoError(t, err)

		snap, err := f.svc.GetCart(ctx, testSession)
		require.NoError(t, err)
		snap.Items[0].Quantity = 99

		again, err := f.svc.GetCart(ctx, testSession)
		require.NoError(t, err)
		assert.Equal(t, 1, again.Items[0].Quantity)
	})

	t.Run("shared fill ignores the cancellation of the caller that started it", func(t *testing.T) {
		f := newCartFixture(t)
		_, err := f.svc.AddItem(ctx, testSession, AddItemParams{ProductID: "sang", Quantity: 1})
		require.NoError(t, err)

		load := f.store.Load
		f.store.LoadFunc = func(ctx context.Context, session cart.SessionID) ([]cart.Item, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			f.store.LoadFunc = nil
			return load(ctx, session)
		}

		canceled, cancel := context.WithCancel(ctx)
		cancel()
		snap, err := f.svc.GetCart(canceled, testSession)
		require.NoError(t, err)
		assert.Equal(t, 1, snap.TotalItems)
	})

	t.Run("load failure is internal", func(t *testing.T) {
		f := newCartFixture(t)
		f.store.LoadFunc = func(context.Context, cart.SessionID) ([]cart.Item, error) {
			return nil, errors.New("timeout")
		}
		_, err := f.svc.GetCart(ctx, testSession)
		assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))
	})
}

func TestCartService_ClearCart(t *testing.T) {
	ctx := context.Background()

	t.Run("clears and publishes", func(t *testing.T) {
		f := newCartFixture(t)
		_, err := f.svc.AddItem(ctx, testSession, AddItemParams{ProductID: "sang", Quantity: 1})
		require.NoError(t, err)

		require.NoError(t, f.svc.ClearCart(ctx, testSession))

		assert.Empty(t, f.store.stored(testSession))
		assert.Equal(t, []cart.SessionID{testSession}, f.events.cleared)
		snap, err := f.svc.GetCart(ctx, testSession)
		require.NoError(t, err)
		assert.True(t, snap.Empty())
	})

	t.Run("publish failure does not fail the clear", func(t *testing.T) {
		f := newCartFixture(t)
		f.events.CartClearedFunc = func(context.Context, cart.SessionID) error {
			return errors.New("nats: connection closed")
		}

		require.NoError(t, f.svc.ClearCart(ctx, testSession))
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.EventsFailed.WithLabelValues("carts.cleared")))
	})

	t.Run("missing session", func(t *testing.T) {
		f := newCartFixture(t)
		assert.ErrorIs(t, f.svc.ClearCart(ctx, ""), domain.ErrSessionRequired)
	})
}

func TestCartService_Checkout(t *testing.T) {
	ctx := context.Background()

	fill := func(t *testing.T, f *cartFixture) {
		t.Helper()
		_, err := f.svc.AddItem(ctx, testSession, AddItemParams{ProductID: "sang", Quantity: 2})
		require.NoError(t, err)
		_, err = f.svc.AddItem(ctx, testSession, AddItemParams{ProductID: "ky-nam", Size: "Vừa (10g)", Quantity: 1})
		require.NoError(t, err)
	}

	t.Run("ordering every line clears the cart", func(t *testing.T) {
		f := newCartFixture(t)
		fill(t, f)

		var seen cart.Snapshot
		err := f.svc.Checkout(ctx, testSession, func(stored cart.Snapshot) ([]cart.Item, error) {
			seen = stored
			return stored.Items, nil
		})
		require.NoError(t, err)

		assert.Equal(t, 3, seen.TotalItems)
		assert.Empty(t, f.store.stored(testSession))
		assert.Equal(t, []cart.SessionID{testSession}, f.events.cleared)
	})

	t.Run("only ordered quantities are removed", func(t *testing.T) {
		f := newCartFixture(t)
		fill(t, f)

		err := f.svc.Checkout(ctx, testSession, func(cart.Snapshot) ([]cart.Item, error) {
			return []cart.Item{{ProductID: "sang", Quantity: 1}, {ProductID: "ky-nam", Size: "Vừa (10g)", Quantity: 1}}, nil
		})
		require.NoError(t, err)

		stored := f.store.stored(testSession)
		require.Len(t, stored, 1)
		assert.Equal(t, "sang", stored[0].ProductID)
		assert.Equal(t, 1, stored[0].Quantity)
		assert.Empty(t, f.events.cleared)

		snap, err := f.svc.GetCart(ctx, testSession)
		require.NoError(t, err)
		assert.Equal(t, 1, snap.TotalItems)
	})

	t.Run("failed placement keeps the cart", func(t *testing.T) {
		f := newCartFixture(t)
		fill(t, f)

		err := f.svc.Checkout(ctx, testSession, func(cart.Snapshot) ([]cart.Item, error) {
			return nil, domain.ErrEmptyCart
		})
		assert.ErrorIs(t, err, domain.ErrEmptyCart)
		assert.Len(t, f.store.stored(testSession), 2)
	})

	t.Run("requires session", func(t *testing.T) {
		f := newCartFixture(t)
		err := f.svc.Checkout(ctx, "", func(cart.Snapshot) ([]cart.Item, error) {
			t.Fatal("place must not run without a session")
			return nil, nil
		})
		assert.ErrorIs(t, err, domain.ErrSessionRequired)
	})
}

func TestCartService_ConcurrentAddsAreSerialized(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture(t)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.AddItem(ctx, testSession, AddItemParams{ProductID: "sang", Quantity: 1})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored := f.store.stored(testSession)
	require.Len(t, stored, 1)
	assert.Equal(t, 10, stored[0].Quantity)
	assert.Equal(t, int64(6000000), stored[0].LineTotal)
}
