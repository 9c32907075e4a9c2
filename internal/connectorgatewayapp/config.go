// Package connectorgatewayapp wires the Connector Gateway service: config,
// infrastructure, and the route tree for outbound tool-call dispatch.
package connectorgatewayapp

import "github.com/Digitlify-Inc/cmp-platform/internal/config"

// Config is the Connector Gateway's full configuration.
type Config struct {
	config.Base

	// ControlPlaneURL is the base URL of the Control Plane's HTTP API.
	ControlPlaneURL string `env:"CONTROL_PLANE_URL,required"`
	// VaultAddr, VaultToken, VaultMount configure the secret store client.
	VaultAddr  string `env:"VAULT_ADDR,required"`
	VaultToken string `env:"VAULT_TOKEN,required"`
	VaultMount string `env:"VAULT_MOUNT" envDefault:"secret"`
	// ConnectorTimeout bounds a single outbound connector call ("30s for
	// external connectors").
	ConnectorTimeout string `env:"CONNECTOR_TIMEOUT" envDefault:"30s"`
	// RateLimitPerMinute is the configuration-driven per-minute ceiling per
	// binding. 0 disables limiting.
	RateLimitPerMinute int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"60"`
}
