// Package provisionerapp wires the Provisioner service: config,
// infrastructure, and the commerce webhook route.
package provisionerapp

import "github.com/Digitlify-Inc/cmp-platform/internal/config"

// Config is the Provisioner's full configuration.
type Config struct {
	config.Base

	// ControlPlaneURL is the base URL of the Control Plane's HTTP API.
	ControlPlaneURL string `env:"CONTROL_PLANE_URL,required"`
	// WebhookSecret signs inbound commerce webhooks. Empty
	// disables signature verification — development only.
	WebhookSecret string `env:"WEBHOOK_SECRET"`
}
