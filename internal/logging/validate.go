// Package logging provides runtime level control and per-attribute log
// filters for the lampd structured logging system.
package logging

import (
	"fmt"
	"log/slog"
	"path"
	"strings"
)

// validLevels is the set of accepted log level strings.
var validLevels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// Filter overrides the global level for records carrying an attribute whose
// key is Type and whose value matches the glob Pattern, e.g. Type "component"
// with Pattern "radio*" at Level "debug".
type Filter struct {
	Type    string `json:"type"`
	Pattern string `json:"pattern"`
	Level   string `json:"level"`
	Enabled bool   `json:"enabled"`
}

// FilterError describes a single validation failure for a log filter.
type FilterError struct {
	Index   int    // Position in the filter slice
	Field   string // Which field failed validation
	Message string // Human-readable description
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("filter[%d].%s: %s", e.Index, e.Field, e.Message)
}

// LevelError reports an unrecognised level string.
type LevelError struct {
	Level string
}

func (e *LevelError) Error() string {
	return fmt.Sprintf("invalid log level %q; must be debug, info, warn, or error", e.Level)
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	l, ok := validLevels[strings.ToLower(strings.TrimSpace(level))]
	if !ok {
		return slog.LevelInfo, &LevelError{Level: level}
	}
	return l, nil
}

// ValidateLevel returns a *LevelError when level is not a known level name.
func ValidateLevel(level string) error {
	_, err := ParseLevel(level)
	return err
}

// LevelString converts a slog.Level to its configuration name.
func LevelString(level slog.Level) string {
	switch {
	case level <= slog.LevelDebug:
		return "debug"
	case level <= slog.LevelInfo:
		return "info"
	case level <= slog.LevelWarn:
		return "warn"
	default:
		return "error"
	}
}

// ValidateFilters checks a slice of filters and returns all validation
// errors found. An empty error slice means all filters are valid.
func ValidateFilters(filters []Filter) []FilterError {
	var errs []FilterError

	for i, f := range filters {
		if f.Type == "" {
			errs = append(errs, FilterError{Index: i, Field: "type", Message: "must not be empty"})
		} else if strings.Contains(f.Type, ":") {
			errs = append(errs, FilterError{Index: i, Field: "type",
				Message: fmt.Sprintf("unknown type %q; use a plain attribute key such as component or lamp", f.Type)})
		}

		if f.Pattern == "" {
			errs = append(errs, FilterError{Index: i, Field: "pattern", Message: "must not be empty"})
		} else if _, err := path.Match(f.Pattern, ""); err != nil {
			errs = append(errs, FilterError{Index: i, Field: "pattern",
				Message: fmt.Sprintf("invalid glob %q", f.Pattern)})
		}

		if f.Level == "" {
			errs = append(errs, FilterError{Index: i, Field: "level", Message: "must not be empty"})
		} else if err := ValidateLevel(f.Level); err != nil {
			errs = append(errs, FilterError{Index: i, Field: "level", Message: err.Error()})
		}
	}

	return errs
}

// FormatErrors returns a human-readable summary of filter validation errors.
func FormatErrors(errs []FilterError) string {
	if len(errs) == 0 {
		return ""
	}
	var b strings.Builder
	for i, e := range errs {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(e.Error())
	}
	return b.String()
}
