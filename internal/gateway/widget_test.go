package gateway

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestWidgetSessions_InitAndResolve(t *testing.T) {
	ws := NewWidgetSessions(newTestRedis(t))
	instanceID := uuid.New()

	token, err := ws.Init(t.Context(), instanceID, "https://widget.example.com", []string{"https://widget.example.com"})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if token == "" {
		t.Fatal("Init() returned an empty token")
	}

	got, err := ws.Resolve(t.Context(), token)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != instanceID {
		t.Errorf("Resolve() = %s, want %s", got, instanceID)
	}
}

func TestWidgetSessions_InitRejectsUnlistedOrigin(t *testing.T) {
	ws := NewWidgetSessions(newTestRedis(t))

	_, err := ws.Init(t.Context(), uuid.New(), "https://evil.example.com", []string{"https://widget.example.com"})
	if err == nil {
		t.Error("expected an error for an origin outside the allowlist")
	}
}

func TestWidgetSessions_ResolveUnknownToken(t *testing.T) {
	ws := NewWidgetSessions(newTestRedis(t))

	if _, err := ws.Resolve(t.Context(), "never-issued"); err == nil {
		t.Error("expected an error resolving a token that was never issued")
	}
}
