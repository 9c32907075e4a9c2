package provisioner

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestIdempotencyStore_CheckAndSet(t *testing.T) {
	rdb := newTestRedis(t)
	store := NewIdempotencyStore(rdb)
	ctx := context.Background()

	isNew, err := store.CheckAndSet(ctx, "order_paid", "order-1")
	if err != nil {
		t.Fatalf("CheckAndSet() error = %v", err)
	}
	if !isNew {
		t.Error("first CheckAndSet() should report new")
	}

	isNew, err = store.CheckAndSet(ctx, "order_paid", "order-1")
	if err != nil {
		t.Fatalf("CheckAndSet() error = %v", err)
	}
	if isNew {
		t.Error("second CheckAndSet() on the same key should report not new")
	}

	isNew, err = store.CheckAndSet(ctx, "order_paid", "order-2")
	if err != nil {
		t.Fatalf("CheckAndSet() error = %v", err)
	}
	if !isNew {
		t.Error("CheckAndSet() on a different order id should report new")
	}

	isNew, err = store.CheckAndSet(ctx, "other_event", "order-1")
	if err != nil {
		t.Fatalf("CheckAndSet() error = %v", err)
	}
	if !isNew {
		t.Error("CheckAndSet() on a different event type should report new")
	}
}
