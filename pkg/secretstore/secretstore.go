// Package secretstore wraps the KV v2 secrets engine used to hold connector
// credentials: Get/Put/Delete over a mount-relative path, grounded on the
// control plane and connector services' own Vault clients.
package secretstore

import (
	"context"
	"fmt"

	vault "github.com/hashicorp/vault/api"
)

// Client stores and retrieves connector credentials in Vault's KV v2 engine.
type Client struct {
	api   *vault.Client
	mount string
}

// New builds a Client against addr, authenticated with token, using mount as
// the KV v2 mount point (e.g. "secret").
func New(addr, token, mount string) (*Client, error) {
	cfg := vault.DefaultConfig()
	cfg.Address = addr
	api, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("constructing vault client: %w", err)
	}
	api.SetToken(token)
	return &Client{api: api, mount: mount}, nil
}

// Put writes data at path, overwriting any existing version.
func (c *Client) Put(ctx context.Context, path string, data map[string]any) error {
	_, err := c.api.KVv2(c.mount).Put(ctx, path, data)
	if err != nil {
		return fmt.Errorf("writing secret %s: %w", path, err)
	}
	return nil
}

// Get reads the current version of the secret at path. A missing secret
// returns (nil, nil), not an error.
func (c *Client) Get(ctx context.Context, path string) (map[string]any, error) {
	secret, err := c.api.KVv2(c.mount).Get(ctx, path)
	if err != nil {
		if vault.IsErrSecretNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading secret %s: %w", path, err)
	}
	return secret.Data, nil
}

// Delete permanently removes all versions and metadata at path. Deleting an
// absent secret is not an error (revoke is idempotent).
func (c *Client) Delete(ctx context.Context, path string) error {
	if err := c.api.KVv2(c.mount).DeleteMetadata(ctx, path); err != nil {
		if vault.IsErrSecretNotFound(err) {
			return nil
		}
		return fmt.Errorf("deleting secret %s: %w", path, err)
	}
	return nil
}
