package routes

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/Lamprichauns/lamp-os/internal/http/mw"
)

// Register registers all API routes with the given Huma API instance.
// Pass real handler implementations for the main server, or stub implementations
// for OpenAPI generation.
func Register(api huma.API, h *Handlers) {
	// --- Health ---
	mw.PublicGet(api, "/api/v1/health", h.HealthCheck,
		mw.WithTags("Health"),
		mw.WithSummary("Health check"),
		mw.WithDescription("Returns service health status."),
		mw.WithOperationID("healthCheck"))

	mw.HiddenGet(api, "/healthz", h.HealthCheck)

	// --- Version ---
	mw.PublicGet(api, "/api/v1/version", h.VersionCheck,
		mw.WithTags("Version"),
		mw.WithSummary("Daemon version"),
		mw.WithDescription("Returns the running daemon's version, commit, and build date."),
		mw.WithOperationID("getVersion"))

	// --- Lamps ---
	mw.PublicGet(api, "/api/v1/lamps", h.Lamp.ListLamps,
		mw.WithTags("Lamps"),
		mw.WithSummary("List peer lamps"),
		mw.WithDescription("Returns every peer lamp still tracked, ordered by ID. Set visible=true to drop lamps that have gone quiet."),
		mw.WithOperationID("listLamps"))

	mw.PublicGet(api, "/api/v1/lamps/{id}", h.Lamp.GetLamp,
		mw.WithTags("Lamps"),
		mw.WithSummary("Get a peer lamp"),
		mw.WithOperationID("getLamp"))

	// --- Local ---
	mw.PublicGet(api, "/api/v1/status", h.Local.GetStatus,
		mw.WithTags("Local"),
		mw.WithSummary("Local lamp status"),
		mw.WithDescription("Returns this lamp's identity, effective colours, announced attributes and live messages."),
		mw.WithOperationID("getStatus"))

	mw.PublicGet(api, "/api/v1/attributes", h.Local.ListAttributes,
		mw.WithTags("Local"),
		mw.WithSummary("List announced attributes"),
		mw.WithOperationID("listAttributes"))

	mw.ProtectedPost(api, "/api/v1/attributes", h.Local.AnnounceAttribute,
		mw.WithTags("Local"),
		mw.WithSummary("Announce an attribute"),
		mw.WithDescription("Sets or replaces one of this lamp's persistent attributes. Codes from 0x90 up are broadcasts and are rejected."),
		mw.WithOperationID("announceAttribute"))

	mw.PublicGet(api, "/api/v1/messages", h.Local.ListMessages,
		mw.WithTags("Local"),
		mw.WithSummary("List live broadcast messages"),
		mw.WithDescription("Returns the broadcast messages this lamp is relaying, with their remaining ttl."),
		mw.WithOperationID("listMessages"))

	mw.ProtectedPost(api, "/api/v1/broadcasts", h.Local.SendBroadcast,
		mw.WithTags("Local"),
		mw.WithSummary("Send a broadcast"),
		mw.WithDescription("Starts a broadcast message from this lamp, replacing any message held under the same code."),
		mw.WithOperationID("sendBroadcast"),
		mw.WithDefaultStatus(http.StatusAccepted))

	// --- Logging ---
	mw.PublicGet(api, "/api/v1/logging/filters", h.Logging.ListFilters,
		mw.WithTags("Logging"),
		mw.WithSummary("List log filters and current level"),
		mw.WithDescription("Returns the current global log level and all active log filters."),
		mw.WithOperationID("listLogFilters"))

	mw.ProtectedPut(api, "/api/v1/logging/filters", h.Logging.SetFilters,
		mw.WithTags("Logging"),
		mw.WithSummary("Replace all log filters"),
		mw.WithDescription("Validates and replaces all active log filters. Invalid filters are rejected entirely."),
		mw.WithOperationID("setLogFilters"))

	mw.PublicGet(api, "/api/v1/logging/level", h.Logging.GetLevel,
		mw.WithTags("Logging"),
		mw.WithSummary("Get global log level"),
		mw.WithOperationID("getLogLevel"))

	mw.ProtectedPut(api, "/api/v1/logging/level", h.Logging.SetLevel,
		mw.WithTags("Logging"),
		mw.WithSummary("Set global log level"),
		mw.WithDescription("Changes the global log level at runtime. Valid values: debug, info, warn, error."),
		mw.WithOperationID("setLogLevel"))
}
