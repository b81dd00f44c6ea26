package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/predictgate/predictgate/internal/domain"
)

// snapshotTTL bounds how stale a served snapshot can be after a restart.
const snapshotTTL = 10 * time.Minute

const snapshotKey = "markets:snapshot"

// SnapshotCache implements domain.SnapshotCache as a single JSON value.
type SnapshotCache struct {
	rdb *redis.Client
}

// NewSnapshotCache creates a SnapshotCache backed by the given Client.
func NewSnapshotCache(c *Client) *SnapshotCache {
	return &SnapshotCache{rdb: c.Underlying()}
}

// Put stores the snapshot, replacing any previous one.
func (sc *SnapshotCache) Put(ctx context.Context, snap domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal snapshot: %w", err)
	}
	if err := sc.rdb.Set(ctx, snapshotKey, data, snapshotTTL).Err(); err != nil {
		return fmt.Errorf("redis: put snapshot: %w", err)
	}
	return nil
}

// Get returns the cached snapshot, or domain.ErrNotFound when none exists.
func (sc *SnapshotCache) Get(ctx context.Context) (domain.Snapshot, error) {
	data, err := sc.rdb.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Snapshot{}, domain.ErrNotFound
		}
		return domain.Snapshot{}, fmt.Errorf("redis: get snapshot: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("redis: unmarshal snapshot: %w", err)
	}
	return snap, nil
}

// Delete removes the cached snapshot. Deleting a missing key is not an
// error.
func (sc *SnapshotCache) Delete(ctx context.Context) error {
	if err := sc.rdb.Del(ctx, snapshotKey).Err(); err != nil {
		return fmt.Errorf("redis: delete snapshot: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.SnapshotCache = (*SnapshotCache)(nil)
