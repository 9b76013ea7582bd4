// Package routes provides shared route registration for the lampd HTTP API.
// Both the main server and the OpenAPI generator use the same route definitions,
// so the published document always matches what the daemon serves.
package routes

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/Lamprichauns/lamp-os/internal/http/mw"
)

// NewHumaConfig creates the shared Huma configuration for the API.
func NewHumaConfig(version, baseURL string) huma.Config {
	cfg := huma.DefaultConfig("lampd API", version)
	cfg.Info.Description = "REST API for inspecting and steering a lamp and the peers it hears over the gossip network."

	// Disable $schema field in responses
	cfg.CreateHooks = nil

	if baseURL != "" {
		cfg.Servers = []*huma.Server{
			{URL: baseURL, Description: "API Server"},
		}
	}

	cfg.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		mw.SecurityScheme: {
			Type:        "http",
			Scheme:      "bearer",
			Description: "Token required on write endpoints when api.token is set. Send `Authorization: Bearer <token>` or `" + mw.TokenHeader + ": <token>`.",
		},
	}

	cfg.Tags = []*huma.Tag{
		{Name: "Lamps", Description: "Peer lamps heard on the network"},
		{Name: "Local", Description: "This lamp's attributes and broadcasts"},
		{Name: "Logging", Description: "Runtime log level and filter management"},
	}

	return cfg
}
