// Package jobs holds maintenance tasks run by the background worker.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const JobTypeCleanupStaleCarts = "cleanup:stale_carts"

// DefaultCartRetention is how long an untouched cart is kept.
const DefaultCartRetention = 30 * 24 * time.Hour

// StaleCartDeleter removes carts not updated since before.
type StaleCartDeleter interface {
	DeleteStale(ctx context.Context, before time.Time) (int64, error)
}

// CleanupResult holds the result of a cleanup run.
type CleanupResult struct {
	CartsDeleted int64     `json:"carts_deleted"`
	Cutoff       time.Time `json:"cutoff"`
}

// CartCleanup deletes abandoned carts. Orders keep their own copy of the
// lines, so nothing placed is lost.
type CartCleanup struct {
	store     StaleCartDeleter
	retention time.Duration
	now       func() time.Time
}

func NewCartCleanup(store StaleCartDeleter, retention time.Duration) *CartCleanup {
	if retention <= 0 {
		retention = DefaultCartRetention
	}
	return &CartCleanup{store: store, retention: retention, now: time.Now}
}

// Name identifies the job in logs.
func (c *CartCleanup) Name() string { return JobTypeCleanupStaleCarts }

// Run deletes every cart idle for longer than the retention.
func (c *CartCleanup) Run(ctx context.Context) error {
	res, err := c.Cleanup(ctx)
	if err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().
		Int64("carts_deleted", res.CartsDeleted).
		Time("cutoff", res.Cutoff).
		Msg("stale carts cleaned up")
	return nil
}

// Cleanup is Run without the logging; it reports what was removed.
func (c *CartCleanup) Cleanup(ctx context.Context) (*CleanupResult, error) {
	cutoff := c.now().Add(-c.retention)
	n, err := c.store.DeleteStale(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to delete stale carts: %w", err)
	}
	return &CleanupResult{CartsDeleted: n, Cutoff: cutoff}, nil
}
