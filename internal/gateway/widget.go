package gateway

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// widgetSessionTTL is the widget token lifetime ("nominally 1 hour").
const widgetSessionTTL = time.Hour

// WidgetSessions issues and validates short-lived opaque widget session
// tokens, one per (instance, origin) pair, backed by Redis so any Gateway
// replica can validate a token issued by another.
type WidgetSessions struct {
	rdb *redis.Client
}

// NewWidgetSessions builds a WidgetSessions store.
func NewWidgetSessions(rdb *redis.Client) *WidgetSessions {
	return &WidgetSessions{rdb: rdb}
}

// Init validates origin against allowedOrigins and, if allowed, mints a
// fresh opaque token bound to instanceID ("origin validation against
// an allowlist is required before issuing").
func (w *WidgetSessions) Init(ctx context.Context, instanceID uuid.UUID, origin string, allowedOrigins []string) (string, error) {
	if !slices.Contains(allowedOrigins, origin) {
		return "", fmt.Errorf("origin %q is not in the allowlist", origin)
	}

	entropy := make([]byte, 24)
	if _, err := rand.Read(entropy); err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(entropy)

	key := "widget_session:" + token
	if err := w.rdb.Set(ctx, key, instanceID.String(), widgetSessionTTL).Err(); err != nil {
		return "", fmt.Errorf("persisting widget session: %w", err)
	}
	return token, nil
}

// Resolve returns the instance id a widget session token was issued for, or
// an error if the token is unknown or expired.
func (w *WidgetSessions) Resolve(ctx context.Context, token string) (uuid.UUID, error) {
	key := "widget_session:" + token
	raw, err := w.rdb.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return uuid.UUID{}, fmt.Errorf("widget session not found or expired")
		}
		return uuid.UUID{}, fmt.Errorf("reading widget session: %w", err)
	}
	return uuid.Parse(raw)
}
