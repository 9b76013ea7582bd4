package routes

import (
	"context"

	"github.com/Lamprichauns/lamp-os/internal/http/handlers"
)

// StubHandlers returns a Handlers instance with stub implementations.
// All handlers return nil responses. They are only used for OpenAPI generation,
// where Huma extracts type information from function signatures.
func StubHandlers() *Handlers {
	return &Handlers{
		HealthCheck: func(_ context.Context, _ *handlers.HealthInput) (*handlers.HealthOutput, error) {
			return nil, nil
		},
		VersionCheck: func(_ context.Context, _ *handlers.VersionInput) (*handlers.VersionOutput, error) {
			return nil, nil
		},
		Lamp:    &stubLampHandlers{},
		Local:   &stubLocalHandlers{},
		Logging: &stubLoggingHandlers{},
	}
}

// --- Lamp stubs ---

type stubLampHandlers struct{}

func (s *stubLampHandlers) ListLamps(_ context.Context, _ *handlers.ListLampsInput) (*handlers.ListLampsOutput, error) {
	return nil, nil
}

func (s *stubLampHandlers) GetLamp(_ context.Context, _ *handlers.GetLampInput) (*handlers.GetLampOutput, error) {
	return nil, nil
}

// --- Local stubs ---

type stubLocalHandlers struct{}

func (s *stubLocalHandlers) GetStatus(_ context.Context, _ *handlers.StatusInput) (*handlers.StatusOutput, error) {
	return nil, nil
}

func (s *stubLocalHandlers) ListAttributes(_ context.Context, _ *handlers.ListAttributesInput) (*handlers.ListAttributesOutput, error) {
	return nil, nil
}

func (s *stubLocalHandlers) AnnounceAttribute(_ context.Context, _ *handlers.AnnounceAttributeInput) (*handlers.AnnounceAttributeOutput, error) {
	return nil, nil
}

func (s *stubLocalHandlers) ListMessages(_ context.Context, _ *handlers.ListMessagesInput) (*handlers.ListMessagesOutput, error) {
	return nil, nil
}

func (s *stubLocalHandlers) SendBroadcast(_ context.Context, _ *handlers.SendBroadcastInput) (*handlers.SendBroadcastOutput, error) {
	return nil, nil
}

// --- Logging stubs ---

type stubLoggingHandlers struct{}

func (s *stubLoggingHandlers) ListFilters(_ context.Context, _ *handlers.ListFiltersInput) (*handlers.ListFiltersOutput, error) {
	return nil, nil
}

func (s *stubLoggingHandlers) SetFilters(_ context.Context, _ *handlers.SetFiltersInput) (*handlers.SetFiltersOutput, error) {
	return nil, nil
}

func (s *stubLoggingHandlers) GetLevel(_ context.Context, _ *handlers.GetLevelInput) (*handlers.GetLevelOutput, error) {
	return nil, nil
}

func (s *stubLoggingHandlers) SetLevel(_ context.Context, _ *handlers.SetLevelInput) (*handlers.SetLevelOutput, error) {
	return nil, nil
}
