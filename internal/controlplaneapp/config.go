// Package controlplaneapp wires the Control Plane's HTTP service: config,
// infrastructure, the domain service, and the route tree.
package controlplaneapp

import "github.com/Digitlify-Inc/cmp-platform/internal/config"

// Config is the Control Plane's full configuration.
type Config struct {
	config.Base

	// OIDCAudience is the client id the OIDC authenticator accepts for
	// authenticated Control Plane routes.
	OIDCAudience string `env:"OIDC_AUDIENCE" envDefault:"cmp-control-plane"`

	// DefaultRunBudget funds authorize when the caller sends none.
	DefaultRunBudget int64 `env:"DEFAULT_RUN_BUDGET" envDefault:"10"`
	// TrialCredits funds a newly created wallet.
	TrialCredits int64 `env:"TRIAL_CREDITS" envDefault:"100"`

	// VaultAddr/VaultToken/VaultMount configure the secret store connector
	// bindings are written to.
	VaultAddr  string `env:"VAULT_ADDR" envDefault:"http://127.0.0.1:8200"`
	VaultToken string `env:"VAULT_TOKEN"`
	VaultMount string `env:"VAULT_MOUNT" envDefault:"secret"`
}
