package provisioner

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// idempotencyTTL is the local dedup horizon ("nominally 24h").
const idempotencyTTL = 24 * time.Hour

// IdempotencyStore deduplicates (event_type, order_id) pairs in Redis. This
// is defense in depth alongside the Control Plane's own idempotency rows: a
// hit here means the request never even reaches the Control Plane on a
// retried delivery.
type IdempotencyStore struct {
	rdb *redis.Client
}

// NewIdempotencyStore builds an IdempotencyStore.
func NewIdempotencyStore(rdb *redis.Client) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb}
}

// CheckAndSet returns true if (eventType, orderID) is new within the TTL
// horizon and marks it as seen; false if it was already processed.
func (s *IdempotencyStore) CheckAndSet(ctx context.Context, eventType, orderID string) (bool, error) {
	key := fmt.Sprintf("provisioner:idempotency:%s:%s", eventType, orderID)
	set, err := s.rdb.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), idempotencyTTL).Result()
	if err != nil {
		return false, fmt.Errorf("checking idempotency key %s: %w", key, err)
	}
	return set, nil
}
