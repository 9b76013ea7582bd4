package routes

import (
	"context"

	"github.com/Lamprichauns/lamp-os/internal/http/handlers"
)

// Handlers aggregates all handler interfaces for route registration.
// For the main server, pass real handler implementations.
// For OpenAPI generation, pass stub implementations.
type Handlers struct {
	HealthCheck  func(context.Context, *handlers.HealthInput) (*handlers.HealthOutput, error)
	VersionCheck func(context.Context, *handlers.VersionInput) (*handlers.VersionOutput, error)
	Lamp         handlers.LampHandlers
	Local        handlers.LocalHandlers
	Logging      handlers.LoggingHandlers
}
