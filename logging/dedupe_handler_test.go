package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newDedupeLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(NewDedupeHandler(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	})))
}

func TestDedupeHandler(t *testing.T) {
	t.Parallel()

	t.Run("later with overrides earlier with", func(t *testing.T) {
		t.Parallel()

		buf := new(bytes.Buffer)
		l := LoggerWithComponent(LoggerWithComponent(newDedupeLogger(buf), "app"), "degrade")
		l.Info("probe")

		require.Equal(t, `{"level":"INFO","msg":"probe","component":"degrade"}`, strings.TrimSpace(buf.String()))
	})

	t.Run("record attribute overrides with", func(t *testing.T) {
		t.Parallel()

		buf := new(bytes.Buffer)
		l := newDedupeLogger(buf).With(slog.String(KeyStatus, "available"), slog.String(KeyMonitor, "account-open"))
		l.Info("availability changed", slog.String(KeyStatus, "degraded"))

		require.Equal(t,
			`{"level":"INFO","msg":"availability changed","status":"degraded","monitor":"account-open"}`,
			strings.TrimSpace(buf.String()),
			"the replaced attribute keeps its position",
		)
	})

	t.Run("group", func(t *testing.T) {
		t.Parallel()

		buf := new(bytes.Buffer)
		l := newDedupeLogger(buf).With(slog.String(KeyMonitor, "account-open")).WithGroup("probe")
		l.Info("done", slog.Int("code", 204))

		got := make(map[string]any)
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		require.Equal(t, "account-open", got[KeyMonitor])
		require.Equal(t, map[string]any{"code": float64(204)}, got["probe"])
	})

	t.Run("level delegated", func(t *testing.T) {
		t.Parallel()

		h := NewDedupeHandler(slog.NewJSONHandler(new(bytes.Buffer), &slog.HandlerOptions{Level: slog.LevelWarn}))
		require.False(t, h.Enabled(t.Context(), slog.LevelInfo))
		require.True(t, h.Enabled(t.Context(), slog.LevelError))
	})
}

func TestMergeAttrs(t *testing.T) {
	t.Parallel()

	got := mergeAttrs(
		[]slog.Attr{slog.String("a", "1"), slog.String("b", "2")},
		[]slog.Attr{slog.String("c", "3"), slog.String("a", "4")},
	)
	want := []slog.Attr{slog.String("a", "4"), slog.String("b", "2"), slog.String("c", "3")}
	require.Len(t, got, len(want))
	for i := range want {
		require.True(t, want[i].Equal(got[i]), "attribute %d: want %s, got %s", i, want[i], got[i])
	}
}
