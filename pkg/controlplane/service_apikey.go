package controlplane

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

func isExpired(t pgtype.Timestamptz) bool {
	return t.Valid && t.Time.Before(time.Now().UTC())
}

// textOf wraps a Go string as a valid pgtype.Text, used for nullable text
// columns such as Instance.IdempotencyKey.
func textOf(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: true}
}

// APIKeyPrefix is the fixed literal prefix of every generated key.
const APIKeyPrefix = "cmp_sk_"

// apiKeyStoredPrefixLen is the length of the Prefix column: 12 chars.
const apiKeyStoredPrefixLen = 12

// GeneratedAPIKey is returned exactly once, at creation.
type GeneratedAPIKey struct {
	Row    APIKey
	RawKey string
}

// GenerateAPIKey creates and persists a new API key for instanceID. The full
// key has the form cmp_sk_<32 bytes of URL-safe base64 entropy>; only the
// 12-character stored prefix and the SHA-256 hash of the full key persist.
func (s *Service) GenerateAPIKey(ctx context.Context, instanceID uuid.UUID, name string) (GeneratedAPIKey, error) {
	entropy := make([]byte, 32)
	if _, err := rand.Read(entropy); err != nil {
		return GeneratedAPIKey{}, fmt.Errorf("generating key entropy: %w", err)
	}
	raw := APIKeyPrefix + base64.RawURLEncoding.EncodeToString(entropy)

	storedPrefix := raw
	if len(storedPrefix) > apiKeyStoredPrefixLen {
		storedPrefix = storedPrefix[:apiKeyStoredPrefixLen]
	}
	hash := hashAPIKey(raw)

	row, err := s.store.CreateAPIKeyQ(ctx, s.store.pool, instanceID, name, storedPrefix, hash, pgtype.Timestamptz{})
	if err != nil {
		return GeneratedAPIKey{}, err
	}
	return GeneratedAPIKey{Row: row, RawKey: raw}, nil
}

func hashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// ValidateAPIKey rejects unless the candidate starts with the expected
// prefix; computes its hash; requires both the stored prefix and hash to
// match an active, non-expired key; requires the linked instance to be
// ACTIVE; touches last_used_at; returns the instance. Any failure mode
// returns (nil, nil) — validation failure is data, not an exception.
func (s *Service) ValidateAPIKey(ctx context.Context, candidate string) (*Instance, error) {
	if !strings.HasPrefix(candidate, APIKeyPrefix) {
		return nil, nil
	}

	storedPrefix := candidate
	if len(storedPrefix) > apiKeyStoredPrefixLen {
		storedPrefix = storedPrefix[:apiKeyStoredPrefixLen]
	}
	hash := hashAPIKey(candidate)

	candidates, err := s.store.FindActiveAPIKeyByPrefixQ(ctx, s.store.pool, storedPrefix)
	if err != nil {
		return nil, err
	}

	var matched *APIKey
	for i := range candidates {
		if subtle.ConstantTimeCompare([]byte(candidates[i].Hash), []byte(hash)) == 1 {
			matched = &candidates[i]
			break
		}
	}
	if matched == nil {
		return nil, nil
	}
	if isExpired(matched.ExpiresAt) {
		return nil, nil
	}

	instance, err := s.store.GetInstanceQ(ctx, s.store.pool, matched.InstanceID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if instance.State != InstanceActive {
		return nil, nil
	}

	_ = s.store.TouchAPIKeyQ(ctx, s.store.pool, matched.ID)

	return &instance, nil
}
