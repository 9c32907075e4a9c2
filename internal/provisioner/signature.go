// Package provisioner implements the commerce order-paid webhook intake:
// signature verification, local idempotency, SKU classification, and
// per-line dispatch to the Control Plane.
package provisioner

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifySignature checks an HMAC-SHA256 hex-encoded signature over body
// using secret, constant-time compared. An empty secret skips
// verification — development mode only, the caller is expected to log a
// warning when this happens.
func VerifySignature(body []byte, signature, secret string) bool {
	if secret == "" {
		return true
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
