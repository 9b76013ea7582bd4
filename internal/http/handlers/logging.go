package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/Lamprichauns/lamp-os/internal/logging"
)

// --- Log Filter types ---

// LogFilterResponse is the API representation of a log filter.
type LogFilterResponse struct {
	Type    string `json:"type" doc:"Attribute key the filter matches, e.g. component or lamp"`
	Pattern string `json:"pattern" doc:"Glob pattern for the attribute value (exact, prefix*, *suffix, *contains*)"`
	Level   string `json:"level" doc:"Minimum log level for matching records (debug, info, warn, error)"`
	Enabled bool   `json:"enabled" doc:"Whether the filter is active"`
}

// --- List Filters ---

// ListFiltersInput is the input for listing log filters.
type ListFiltersInput struct{}

// ListFiltersOutput is the output for listing log filters.
type ListFiltersOutput struct {
	Body struct {
		Level   string              `json:"level" doc:"Current global log level"`
		Filters []LogFilterResponse `json:"filters" doc:"Active log filters"`
	}
}

// --- Set Filters ---

// SetFiltersInput is the input for replacing all log filters.
type SetFiltersInput struct {
	Body struct {
		Filters []LogFilterResponse `json:"filters" doc:"New filter list to apply" required:"true"`
	}
}

// SetFiltersOutput is the output after replacing filters.
type SetFiltersOutput struct {
	Body struct {
		Level   string              `json:"level" doc:"Current global log level"`
		Filters []LogFilterResponse `json:"filters" doc:"Applied log filters"`
	}
}

// --- Level ---

// GetLevelInput is the input for reading the global log level.
type GetLevelInput struct{}

// GetLevelOutput is the output for reading the global log level.
type GetLevelOutput struct {
	Body struct {
		Level string `json:"level" doc:"Current global log level"`
	}
}

// SetLevelInput is the input for changing the global log level.
type SetLevelInput struct {
	Body struct {
		Level string `json:"level" doc:"New log level (debug, info, warn, error)" minLength:"1"`
	}
}

// SetLevelOutput is the output after changing the log level.
type SetLevelOutput struct {
	Body struct {
		Level string `json:"level" doc:"Updated global log level"`
	}
}

// LoggingHandler implements logging management HTTP handlers.
type LoggingHandler struct {
	Controller *logging.Controller
	Logger     *slog.Logger
}

// ListFilters returns the current log level and active filters.
func (h *LoggingHandler) ListFilters(_ context.Context, _ *ListFiltersInput) (*ListFiltersOutput, error) {
	out := &ListFiltersOutput{}
	out.Body.Level = logging.LevelString(h.Controller.Level())
	out.Body.Filters = filtersToResponse(h.Controller.Filters())
	return out, nil
}

// SetFilters validates and replaces all active log filters.
func (h *LoggingHandler) SetFilters(_ context.Context, input *SetFiltersInput) (*SetFiltersOutput, error) {
	newFilters := responseToFilters(input.Body.Filters)

	// Validate before applying so the error lists every problem
	if errs := logging.ValidateFilters(newFilters); len(errs) > 0 {
		return nil, huma.Error400BadRequest(
			fmt.Sprintf("Invalid filters: %s", logging.FormatErrors(errs)))
	}
	if err := h.Controller.SetFilters(newFilters); err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	h.Logger.Info("Log filters updated via API", "count", len(newFilters))

	out := &SetFiltersOutput{}
	out.Body.Level = logging.LevelString(h.Controller.Level())
	out.Body.Filters = filtersToResponse(h.Controller.Filters())
	return out, nil
}

// GetLevel returns the global log level.
func (h *LoggingHandler) GetLevel(_ context.Context, _ *GetLevelInput) (*GetLevelOutput, error) {
	out := &GetLevelOutput{}
	out.Body.Level = logging.LevelString(h.Controller.Level())
	return out, nil
}

// SetLevel validates and changes the global log level at runtime.
func (h *LoggingHandler) SetLevel(_ context.Context, input *SetLevelInput) (*SetLevelOutput, error) {
	level, err := logging.ParseLevel(input.Body.Level)
	if err != nil {
		return nil, huma.Error400BadRequest(
			fmt.Sprintf("Invalid log level %q; must be debug, info, warn, or error", input.Body.Level))
	}

	h.Controller.SetLevel(level)
	h.Logger.Info("Log level changed via API", "level", logging.LevelString(level))

	out := &SetLevelOutput{}
	out.Body.Level = logging.LevelString(level)
	return out, nil
}

// Ensure LoggingHandler implements the interface at compile time.
var _ LoggingHandlers = (*LoggingHandler)(nil)

// LoggingHandlers defines the interface for logging management operations.
type LoggingHandlers interface {
	ListFilters(ctx context.Context, input *ListFiltersInput) (*ListFiltersOutput, error)
	SetFilters(ctx context.Context, input *SetFiltersInput) (*SetFiltersOutput, error)
	GetLevel(ctx context.Context, input *GetLevelInput) (*GetLevelOutput, error)
	SetLevel(ctx context.Context, input *SetLevelInput) (*SetLevelOutput, error)
}

// --- Conversion helpers ---

func filtersToResponse(filters []logging.Filter) []LogFilterResponse {
	result := make([]LogFilterResponse, len(filters))
	for i, f := range filters {
		result[i] = LogFilterResponse(f)
	}
	return result
}

func responseToFilters(resp []LogFilterResponse) []logging.Filter {
	result := make([]logging.Filter, len(resp))
	for i, r := range resp {
		result[i] = logging.Filter(r)
	}
	return result
}
