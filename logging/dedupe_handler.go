package logging

import (
	"context"
	"log/slog"
)

var _ slog.Handler = new(dedupeHandler)

// dedupeHandler keeps one attribute per key. A later attribute replaces an earlier one with the same key,
// whether it was added with Logger.With or on the record itself. Attributes keep their first position.
//
// Child loggers are layered (app, component, monitor), so the same key can otherwise be written twice.
type dedupeHandler struct {
	base slog.Handler

	// attrs is immutable once the handler is built.
	attrs []slog.Attr
}

// NewDedupeHandler wraps base so that every record carries at most one attribute per key.
func NewDedupeHandler(base slog.Handler) slog.Handler {
	return &dedupeHandler{
		base: base,
	}
}

func (d *dedupeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return d.base.Enabled(ctx, level)
}

func (d *dedupeHandler) Handle(ctx context.Context, record slog.Record) error { // nolint:gocritic // Part of an interface
	if len(d.attrs) == 0 {
		return d.base.Handle(ctx, record)
	}

	recordAttrs := make([]slog.Attr, 0, record.NumAttrs())
	record.Attrs(func(a slog.Attr) bool {
		recordAttrs = append(recordAttrs, a)
		return true
	})

	out := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	out.AddAttrs(mergeAttrs(d.attrs, recordAttrs)...)
	return d.base.Handle(ctx, out)
}

func (d *dedupeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &dedupeHandler{
		base:  d.base,
		attrs: mergeAttrs(d.attrs, attrs),
	}
}

// WithGroup passes the group to the base handler. Attributes collected so far stay outside the group.
func (d *dedupeHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return d
	}

	base := d.base
	if len(d.attrs) > 0 {
		base = base.WithAttrs(d.attrs)
	}

	return &dedupeHandler{
		base: base.WithGroup(name),
	}
}

// mergeAttrs returns existing followed by added, keeping one attribute per key.
func mergeAttrs(existing, added []slog.Attr) []slog.Attr {
	merged := make([]slog.Attr, 0, len(existing)+len(added))
	index := make(map[string]int, len(existing)+len(added))

	for _, attrs := range [][]slog.Attr{existing, added} {
		for _, a := range attrs {
			if i, ok := index[a.Key]; ok {
				merged[i] = a
				continue
			}
			index[a.Key] = len(merged)
			merged = append(merged, a)
		}
	}

	return merged
}
