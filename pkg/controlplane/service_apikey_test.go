package controlplane

import (
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

func TestHashAPIKey(t *testing.T) {
	h1 := hashAPIKey("cmp_sk_abc")
	h2 := hashAPIKey("cmp_sk_abc")
	if h1 != h2 {
		t.Fatalf("same key produced different hashes: %q vs %q", h1, h2)
	}

	h3 := hashAPIKey("cmp_sk_def")
	if h1 == h3 {
		t.Fatal("different keys produced the same hash")
	}

	if len(h1) != 64 {
		t.Fatalf("hash length = %d, want 64 (hex-encoded sha256)", len(h1))
	}
}

func TestIsExpired(t *testing.T) {
	tests := []struct {
		name string
		ts pgtype.Timestamptz
		want bool
	}{
		{"zero value never expires", pgtype.Timestamptz{}, false},
		{"future timestamp not expired", pgtype.Timestamptz{Time: time.Now().Add(time.Hour), Valid: true}, false},
		{"past timestamp expired", pgtype.Timestamptz{Time: time.Now().Add(-time.Hour), Valid: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isExpired(tt.ts); got != tt.want {
				t.Errorf("isExpired(%+v) = %v, want %v", tt.ts, got, tt.want)
			}
		})
	}
}

func TestTextOf(t *testing.T) {
	got := textOf("abc")
	if !got.Valid || got.String != "abc" {
		t.Errorf("textOf(%q) = %+v, want valid text with same string", "abc", got)
	}
}

func TestAPIKeyPrefixFormat(t *testing.T) {
	if !strings.HasPrefix(APIKeyPrefix, "cmp_sk_") {
		t.Errorf("APIKeyPrefix = %q, want prefix cmp_sk_", APIKeyPrefix)
	}
	if apiKeyStoredPrefixLen != 12 {
		t.Errorf("apiKeyStoredPrefixLen = %d, want 12", apiKeyStoredPrefixLen)
	}
}
