package logging

import (
	"context"
	"log/slog"
	"path"
	"slices"
	"sync"
)

// Controller holds the runtime log level and filters shared by every handler
// it creates.
type Controller struct {
	level slog.LevelVar

	mu      sync.RWMutex
	filters []compiledFilter
	floor   slog.Level
}

type compiledFilter struct {
	Filter
	level slog.Level
}

// NewController creates a controller at level with no filters.
func NewController(level slog.Level) *Controller {
	c := &Controller{}
	c.level.Set(level)
	c.floor = level
	return c
}

// Level returns the global level.
func (c *Controller) Level() slog.Level {
	return c.level.Level()
}

// SetLevel changes the global level.
func (c *Controller) SetLevel(level slog.Level) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.level.Set(level)
	c.recomputeFloorLocked()
}

// Filters returns a copy of the active filters.
func (c *Controller) Filters() []Filter {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Filter, len(c.filters))
	for i, f := range c.filters {
		out[i] = f.Filter
	}
	return out
}

// SetFilters validates and replaces all filters.
func (c *Controller) SetFilters(filters []Filter) error {
	if errs := ValidateFilters(filters); len(errs) > 0 {
		return &errs[0]
	}
	compiled := make([]compiledFilter, len(filters))
	for i, f := range filters {
		level, _ := ParseLevel(f.Level)
		compiled[i] = compiledFilter{Filter: f, level: level}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters = compiled
	c.recomputeFloorLocked()
	return nil
}

// recomputeFloorLocked finds the lowest level any record could be logged at.
func (c *Controller) recomputeFloorLocked() {
	floor := c.level.Level()
	for _, f := range c.filters {
		if f.Enabled && f.level < floor {
			floor = f.level
		}
	}
	c.floor = floor
}

// threshold returns the level that applies to a record with attrs.
// The first enabled filter matching any attribute wins.
func (c *Controller) threshold(attrs []slog.Attr) slog.Level {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, f := range c.filters {
		if !f.Enabled {
			continue
		}
		for _, a := range attrs {
			if a.Key != f.Type {
				continue
			}
			if ok, _ := path.Match(f.Pattern, a.Value.String()); ok {
				return f.level
			}
		}
	}
	return c.level.Level()
}

func (c *Controller) enabledAt(level slog.Level) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return level >= c.floor
}

// Handler wraps inner so records are filtered by c. inner should accept
// every level down to debug.
func (c *Controller) Handler(inner slog.Handler) slog.Handler {
	return &filterHandler{inner: inner, ctl: c}
}

type filterHandler struct {
	inner slog.Handler
	ctl   *Controller
	attrs []slog.Attr
}

func (h *filterHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.ctl.enabledAt(level) && h.inner.Enabled(ctx, level)
}

func (h *filterHandler) Handle(ctx context.Context, r slog.Record) error {
	attrs := h.attrs
	if r.NumAttrs() > 0 {
		attrs = slices.Clip(attrs)
		r.Attrs(func(a slog.Attr) bool {
			attrs = append(attrs, a)
			return true
		})
	}
	if r.Level < h.ctl.threshold(attrs) {
		return nil
	}
	return h.inner.Handle(ctx, r)
}

func (h *filterHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &filterHandler{
		inner: h.inner.WithAttrs(attrs),
		ctl:   h.ctl,
		attrs: append(slices.Clip(h.attrs), attrs...),
	}
}

func (h *filterHandler) WithGroup(name string) slog.Handler {
	return &filterHandler{
		inner: h.inner.WithGroup(name),
		ctl:   h.ctl,
		attrs: h.attrs,
	}
}
