package handlers

import (
	"context"
)

// --- Health Check ---

// HealthInput is the input for health check endpoints.
type HealthInput struct{}

// HealthOutput is the output for health check endpoints.
type HealthOutput struct {
	Body struct {
		Status string `json:"status" doc:"Service health status"`
	}
}

// HealthCheck returns the service health status.
// This is a public endpoint (no auth required).
func HealthCheck(_ context.Context, _ *HealthInput) (*HealthOutput, error) {
	out := &HealthOutput{}
	out.Body.Status = "ok"
	return out, nil
}

// --- Version ---

// VersionInfo identifies the running daemon build.
type VersionInfo struct {
	Version   string `json:"version" doc:"Release version"`
	Commit    string `json:"commit" doc:"Source commit"`
	BuildDate string `json:"build_date" doc:"Build timestamp"`
}

// VersionInput is the input for the version endpoint.
type VersionInput struct{}

// VersionOutput is the output for the version endpoint.
type VersionOutput struct {
	Body VersionInfo
}

// NewVersionCheck returns a handler reporting info.
func NewVersionCheck(info VersionInfo) func(context.Context, *VersionInput) (*VersionOutput, error) {
	return func(_ context.Context, _ *VersionInput) (*VersionOutput, error) {
		return &VersionOutput{Body: info}, nil
	}
}
