package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dukerupert/tramhuong/internal/cart"
)

// CartRepository stores cart lines per session. Saves replace the whole
// line list in one transaction, so a failed save leaves the previous cart.
type CartRepository struct {
	db DB
}

func NewCartRepository(db DB) *CartRepository {
	return &CartRepository{db: db}
}

var cartItemColumns = []string{
	"session_id", "position", "product_id", "size", "product_name", "product_image",
	"unit_price", "original_price", "quantity",
}

// Load returns the lines of session in display order. A session with no
// stored cart has no lines.
func (r *CartRepository) Load(ctx context.Context, session cart.SessionID) ([]cart.Item, error) {
	rows, err := r.db.Query(ctx, `
		SELECT product_id, size, product_name, product_image, unit_price, original_price, quantity
		FROM cart_items
		WHERE session_id = $1
		ORDER BY position`,
		string(session),
	)
	if err != nil {
		return nil, fmt.Errorf("query cart items: %w", err)
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (cart.Item, error) {
		var it cart.Item
		err := row.Scan(&it.ProductID, &it.Size, &it.ProductName, &it.ProductImage,
			&it.UnitPrice, &it.OriginalPrice, &it.Quantity)
		it.LineTotal = it.UnitPrice * int64(it.Quantity)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan cart items: %w", err)
	}
	return items, nil
}

// Save replaces the stored lines of session with items.
func (r *CartRepository) Save(ctx context.Context, session cart.SessionID, items []cart.Item) error {
	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO carts (session_id) VALUES ($1)
			ON CONFLICT (session_id) DO UPDATE SET updated_at = NOW()`,
			string(session),
		); err != nil {
			return fmt.Errorf("upsert cart: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE session_id = $1`, string(session)); err != nil {
			return fmt.Errorf("delete cart items: %w", err)
		}

		if len(items) == 0 {
			return nil
		}

		_, err := tx.CopyFrom(ctx, pgx.Identifier{"cart_items"}, cartItemColumns,
			pgx.CopyFromSlice(len(items), func(i int) ([]any, error) {
				it := items[i]
				return []any{
					string(session), i, it.ProductID, it.Size, it.ProductName, it.ProductImage,
					it.UnitPrice, it.OriginalPrice, it.Quantity,
				}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("copy cart items: %w", err)
		}
		return nil
	})
}

// Clear deletes the cart of session. Clearing a missing cart is not an error.
func (r *CartRepository) Clear(ctx context.Context, session cart.SessionID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM carts WHERE session_id = $1`, string(session)); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}

// DeleteStale removes carts not touched since before and returns how many
// were deleted. Their lines go with them through the foreign key.
func (r *CartRepository) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM carts WHERE updated_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("delete stale carts: %w", err)
	}
	return tag.RowsAffected(), nil
}
