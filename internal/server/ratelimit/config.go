package ratelimit

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string     // Endpoint path pattern (supports prefix matching)
	Method string     // HTTP method (GET, POST, etc.)
	Rate   rate.Limit // Sustained requests per second; rate.Inf is unlimited
	Burst  int        // Burst capacity
}

// Unlimited reports whether requests to the endpoint are never limited.
func (c EndpointConfig) Unlimited() bool {
	return c.Rate == rate.Inf
}

// LoadConfig builds the limiter configuration from the sustained per-client
// rate and burst. A non-positive rps disables limiting.
func LoadConfig(rps float64, burst int) *Config {
	if rps <= 0 {
		return &Config{Enabled: false}
	}
	if burst <= 0 {
		burst = int(rps) + 1
	}

	return &Config{
		Enabled:         true,
		DefaultRate:     rate.Limit(rps),
		DefaultBurst:    burst,
		CleanupInterval: 5 * time.Minute,
		IdleTimeout:     time.Hour,
		EndpointConfigs: DefaultEndpointConfigs(rps, burst),
	}
}

// DefaultEndpointConfigs returns the endpoint-specific configurations.
// Starting sessions is cheaper to abuse than sending turns, so it gets a
// fraction of the turn budget.
func DefaultEndpointConfigs(rps float64, burst int) []EndpointConfig {
	return []EndpointConfig{
		{Path: "/sessions", Method: http.MethodPost, Rate: rate.Limit(rps / 5), Burst: max(1, burst/5)},
		{Path: "/sessions/", Method: http.MethodPost, Rate: rate.Limit(rps), Burst: burst},
		{Path: "/sessions/", Method: http.MethodDelete, Rate: rate.Limit(rps / 5), Burst: max(1, burst/5)},

		// Static documents and snapshots are cheap.
		{Path: "/static/", Method: http.MethodGet, Rate: rate.Limit(rps * 4), Burst: burst * 4},

		// Health, metrics and the WebSocket upgrade are handled by the matcher.
	}
}
