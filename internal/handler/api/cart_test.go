package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/tramhuong/internal/cart"
	"github.com/dukerupert/tramhuong/internal/domain"
	"github.com/dukerupert/tramhuong/internal/service"
)

const testSession = "session_1760600000000_k3j9x2m1q"

func sampleSnapshot() cart.Snapshot {
	return cart.Snapshot{
		SessionID: testSession,
		Items: []cart.Item{{
			ProductID:   "ky-nam",
			ProductName: "Trầm Hương Kỳ Nam Cao Cấp",
			Size:        "Vừa (10g)",
			UnitPrice:   2500000,
			Quantity:    2,
			LineTotal:   5000000,
		}},
		TotalItems:  2,
		TotalAmount: 5000000,
	}
}

func TestCartHandler_Get(t *testing.T) {
	var gotSession cart.SessionID
	h := NewCartHandler(&mockCartService{
		getCartFunc: func(ctx context.Context, session cart.SessionID) (cart.Snapshot, error) {
			gotSession = session
			return sampleSnapshot(), nil
		},
	})

	rec := serve("GET /api/cart/{session_id}", h.Get, newRequest(http.MethodGet, "/api/cart/"+testSession, ""))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, cart.SessionID(testSession), gotSession)

	snap := decodeBody[cart.Snapshot](t, rec)
	assert.Equal(t, 2, snap.TotalItems)
	assert.Equal(t, int64(5000000), snap.TotalAmount)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "Vừa (10g)", snap.Items[0].Size)
}

func TestCartHandler_Add(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		addErr         error
		expectedStatus int
		expectedParams service.AddItemParams
	}{
		{
			name:           "adds with quantity",
			body:           `{"product_id":"ky-nam","size":"Vừa (10g)","quantity":2}`,
			expectedStatus: http.StatusOK,
			expectedParams: service.AddItemParams{ProductID: "ky-nam", Size: "Vừa (10g)", Quantity: 2},
		},
		{
			name:           "omitted quantity defaults to one",
			body:           `{"product_id":"sang"}`,
			expectedStatus: http.StatusOK,
			expectedParams: service.AddItemParams{ProductID: "sang", Quantity: 1},
		},
		{
			name:           "insufficient stock is a bad request",
			body:           `{"product_id":"ky-nam","size":"Vừa (10g)","quantity":9}`,
			addErr:         domain.ErrInsufficientStock,
			expectedStatus: http.StatusBadRequest,
			expectedParams: service.AddItemParams{ProductID: "ky-nam", Size: "Vừa (10g)", Quantity: 9},
		},
		{
			name:           "unknown product",
			body:           `{"product_id":"missing","quantity":1}`,
			addErr:         domain.ErrProductNotFound,
			expectedStatus: http.StatusNotFound,
			expectedParams: service.AddItemParams{ProductID: "missing", Quantity: 1},
		},
		{
			name:           "malformed body",
			body:           `{"product_id":`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got service.AddItemParams
			h := NewCartHandler(&mockCartService{
				addItemFunc: func(ctx context.Context, session cart.SessionID, params service.AddItemParams) (cart.Snapshot, error) {
					got = params
					if tt.addErr != nil {
						return cart.Snapshot{}, tt.addErr
					}
					return sampleSnapshot(), nil
				},
			})

			rec := serve("POST /api/cart/{session_id}/add", h.Add,
				newRequest(http.MethodPost, "/api/cart/"+testSession+"/add", tt.body))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Equal(t, tt.expectedParams, got)

			if tt.expectedStatus == http.StatusOK {
				resp := decodeBody[cartResponse](t, rec)
				assert.NotEmpty(t, resp.Message)
				assert.Equal(t, cart.SessionID(testSession), resp.Cart.SessionID)
			}
		})
	}
}

func TestCartHandler_Update(t *testing.T) {
	t.Run("passes quantity", func(t *testing.T) {
		var gotQty int
		h := NewCartHandler(&mockCartService{
			updateItemFunc: func(ctx context.Context, session cart.SessionID, productID, size string, quantity int) (cart.Snapshot, error) {
				gotQty = quantity
				return cart.EmptySnapshot(session), nil
			},
		})

		rec := serve("PUT /api/cart/{session_id}/update", h.Update,
			newRequest(http.MethodPut, "/api/cart/"+testSession+"/update", `{"product_id":"ky-nam","size":"Vừa (10g)","quantity":0}`))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 0, gotQty)
	})

	t.Run("missing quantity is rejected", func(t *testing.T) {
		called := false
		h := NewCartHandler(&mockCartService{
			updateItemFunc: func(ctx context.Context, session cart.SessionID, productID, size string, quantity int) (cart.Snapshot, error) {
				called = true
				return cart.Snapshot{}, nil
			},
		})

		rec := serve("PUT /api/cart/{session_id}/update", h.Update,
			newRequest(http.MethodPut, "/api/cart/"+testSession+"/update", `{"product_id":"ky-nam"}`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, called)
		resp := decodeBody[errorEnvelope](t, rec)
		assert.Contains(t, resp.Error.Fields, "quantity")
	})

	t.Run("missing line is not found", func(t *testing.T) {
		h := NewCartHandler(&mockCartService{
			updateItemFunc: func(ctx context.Context, session cart.SessionID, productID, size string, quantity int) (cart.Snapshot, error) {
				return cart.Snapshot{}, domain.ErrCartItemNotFound
			},
		})

		rec := serve("PUT /api/cart/{session_id}/update", h.Update,
			newRequest(http.MethodPut, "/api/cart/"+testSession+"/update", `{"product_id":"x","quantity":1}`))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		resp := decodeBody[errorEnvelope](t, rec)
		assert.Equal(t, domain.ErrCartItemNotFound.Message, resp.Detail)
	})
}

func TestCartHandler_Remove(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		body    string
		product string
		size    string
	}{
		{
			name:    "line from body",
			target:  "/api/cart/" + testSession + "/remove",
			body:    `{"product_id":"ky-nam","size":"Nhỏ (5g)"}`,
			product: "ky-nam",
			size:    "Nhỏ (5g)",
		},
		{
			name:    "line from query",
			target:  "/api/cart/" + testSession + "/remove?product_id=sang",
			product: "sang",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotProduct, gotSize string
			h := NewCartHandler(&mockCartService{
				removeItemFunc: func(ctx context.Context, session cart.SessionID, productID, size string) (cart.Snapshot, error) {
					gotProduct, gotSize = productID, size
					return cart.EmptySnapshot(session), nil
				},
			})

			rec := serve("DELETE /api/cart/{session_id}/remove", h.Remove, newRequest(http.MethodDelete, tt.target, tt.body))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.product, gotProduct)
			assert.Equal(t, tt.size, gotSize)
		})
	}
}

func TestCartHandler_Clear(t *testing.T) {
	t.Run("returns empty cart", func(t *testing.T) {
		h := NewCartHandler(&mockCartService{})

		rec := serve("DELETE /api/cart/{session_id}/clear", h.Clear,
			newRequest(http.MethodDelete, "/api/cart/"+testSession+"/clear", ""))

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeBody[cartResponse](t, rec)
		assert.Equal(t, cart.SessionID(testSession), resp.Cart.SessionID)
		assert.Empty(t, resp.Cart.Items)
		assert.Zero(t, resp.Cart.TotalAmount)
	})

	t.Run("store failure hides details", func(t *testing.T) {
		h := NewCartHandler(&mockCartService{
			clearCartFunc: func(ctx context.Context, session cart.SessionID) error {
				return domain.Internal(nil, "cart.clear", "failed to clear cart")
			},
		})

		rec := serve("DELETE /api/cart/{session_id}/clear", h.Clear,
			newRequest(http.MethodDelete, "/api/cart/"+testSession+"/clear", ""))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		resp := decodeBody[errorEnvelope](t, rec)
		assert.NotContains(t, resp.Detail, "failed to clear cart")
	})
}
