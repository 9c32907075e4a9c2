// Package gatewayapp wires the Gateway service: config, infrastructure, and
// the route tree for run execution.
package gatewayapp

import "github.com/Digitlify-Inc/cmp-platform/internal/config"

// Config is the Gateway's full configuration.
type Config struct {
	config.Base

	// ControlPlaneURL is the base URL of the Control Plane's HTTP API.
	ControlPlaneURL string `env:"CONTROL_PLANE_URL,required"`
	// OIDCAudience is the client id accepted for bearer-token runs.
	OIDCAudience string `env:"OIDC_AUDIENCE" envDefault:"cmp-gateway"`
	// EngineURL is the flow execution engine's invocation endpoint.
	EngineURL string `env:"ENGINE_URL,required"`
	// EngineTimeout bounds a single engine invocation ("a
	// service-specific larger value for engine invocations").
	EngineTimeout string `env:"ENGINE_TIMEOUT" envDefault:"60s"`
	// WidgetAllowedOrigins is the allowlist widget session:init validates
	// against.
	WidgetAllowedOrigins []string `env:"WIDGET_ALLOWED_ORIGINS" envSeparator:","`
}
