package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/predictgate/predictgate/internal/domain"
)

// markerKey is the advisory "a wallet connection was authorized" flag. No
// TTL: the marker survives restarts until an explicit disconnect clears it.
const markerKey = "wallet:connected"

// MarkerStore implements domain.MarkerStore on a single Redis key.
type MarkerStore struct {
	rdb *redis.Client
}

// NewMarkerStore creates a MarkerStore backed by the given Client.
func NewMarkerStore(c *Client) *MarkerStore {
	return &MarkerStore{rdb: c.Underlying()}
}

// Set persists the marker.
func (ms *MarkerStore) Set(ctx context.Context) error {
	if err := ms.rdb.Set(ctx, markerKey, "true", 0).Err(); err != nil {
		return fmt.Errorf("redis: set connection marker: %w", err)
	}
	return nil
}

// Clear removes the marker. Clearing an absent marker is not an error.
func (ms *MarkerStore) Clear(ctx context.Context) error {
	if err := ms.rdb.Del(ctx, markerKey).Err(); err != nil {
		return fmt.Errorf("redis: clear connection marker: %w", err)
	}
	return nil
}

// IsSet reports whether the marker is present.
func (ms *MarkerStore) IsSet(ctx context.Context) (bool, error) {
	val, err := ms.rdb.Get(ctx, markerKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis: read connection marker: %w", err)
	}
	return val == "true", nil
}

// Compile-time interface check.
var _ domain.MarkerStore = (*MarkerStore)(nil)
