package domain

import (
	"context"
	"time"
)

// MarkerStore persists the single advisory "user previously authorized a
// wallet connection" marker. Its absence never blocks reconnection and its
// presence never bypasses authorization.
type MarkerStore interface {
	Set(ctx context.Context) error
	Clear(ctx context.Context) error
	IsSet(ctx context.Context) (bool, error)
}

// SnapshotCache holds the last completed market snapshot so a freshly
// started gateway can serve reads while the first refresh cycle runs. The
// cached snapshot carries the account and chain it was fetched under;
// readers must never serve it to a different session.
type SnapshotCache interface {
	Put(ctx context.Context, snap Snapshot) error
	// Get returns ErrNotFound when no snapshot has been cached.
	Get(ctx context.Context) (Snapshot, error)
	Delete(ctx context.Context) error
}

// RateLimiter applies a sliding request budget per key.
type RateLimiter interface {
	// Allow reports whether the caller identified by key may proceed, given
	// a budget of limit calls per window.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// EventBus fans application events out to subscribers (the WebSocket hub).
type EventBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe returns a channel that is closed when ctx is cancelled.
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
