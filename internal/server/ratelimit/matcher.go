package ratelimit

import (
	"net/http"
	"strings"

	"golang.org/x/time/rate"
)

// unlimitedPaths are never rate limited. The WebSocket connection is limited
// per message by its handler instead.
var unlimitedPaths = map[string]bool{
	"/health":        true,
	"/metrics":       true,
	"/ws/cv_builder": true,
}

// MatchEndpoint matches a request path and method to an endpoint configuration.
// Returns the matching EndpointConfig or nil if no match is found.
// Path matching supports prefix matching (e.g., "/sessions/" matches "/sessions/{id}").
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	if unlimitedPaths[path] && method == http.MethodGet {
		return &EndpointConfig{Path: path, Method: method, Rate: rate.Inf}
	}

	// Try exact match first
	for i := range configs {
		config := &configs[i]
		if config.Path == path && config.Method == method {
			return config
		}
	}

	// Try prefix match (for paths ending with "/")
	for i := range configs {
		config := &configs[i]
		if config.Method == method && strings.HasSuffix(config.Path, "/") {
			if strings.HasPrefix(path, config.Path) {
				return config
			}
		}
	}

	// No match found
	return nil
}
