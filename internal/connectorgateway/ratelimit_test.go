package connectorgateway

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestRateLimiter_AllowsUpToCeiling(t *testing.T) {
	rl := NewRateLimiter(newTestRedis(t), 3)
	bindingID := "binding-1"

	for i := 0; i < 3; i++ {
		allowed, err := rl.Allow(t.Context(), bindingID)
		if err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
		if !allowed {
			t.Fatalf("call %d: expected allowed, got denied", i+1)
		}
	}

	allowed, err := rl.Allow(t.Context(), bindingID)
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if allowed {
		t.Error("4th call within the window should be denied")
	}
}

func TestRateLimiter_SeparateBindingsHaveSeparateBudgets(t *testing.T) {
	rl := NewRateLimiter(newTestRedis(t), 1)

	a1, _ := rl.Allow(t.Context(), "binding-a")
	b1, _ := rl.Allow(t.Context(), "binding-b")
	a2, _ := rl.Allow(t.Context(), "binding-a")

	if !a1 || !b1 {
		t.Fatalf("first call for each binding should be allowed: a1=%v b1=%v", a1, b1)
	}
	if a2 {
		t.Error("second call for binding-a should be denied")
	}
}

func TestRateLimiter_ZeroPerMinuteDisablesLimiting(t *testing.T) {
	rl := NewRateLimiter(newTestRedis(t), 0)
	for i := 0; i < 10; i++ {
		allowed, err := rl.Allow(t.Context(), "binding-unlimited")
		if err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
		if !allowed {
			t.Errorf("call %d should be allowed when rate limiting is disabled", i+1)
		}
	}
}
