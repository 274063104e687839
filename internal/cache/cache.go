// Package cache keeps recently read cart snapshots close to the API.
package cache

import (
	"context"
	"errors"

	"github.com/dukerupert/tramhuong/internal/cart"
)

// CartCache stores cart snapshots by session. Entries are dropped on every
// cart mutation and refilled on the next read.
type CartCache interface {
	Get(ctx context.Context, session cart.SessionID) (*cart.Snapshot, error)
	Set(ctx context.Context, snap cart.Snapshot) error
	Delete(ctx context.Context, session cart.SessionID) error
}

var ErrCacheMiss = errors.New("cache miss")

// Nop is a CartCache that never holds anything.
type Nop struct{}

func (Nop) Get(context.Context, cart.SessionID) (*cart.Snapshot, error) { return nil, ErrCacheMiss }
func (Nop) Set(context.Context, cart.Snapshot) error                    { return nil }
func (Nop) Delete(context.Context, cart.SessionID) error                { return nil }
