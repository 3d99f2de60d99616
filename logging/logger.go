package logging

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// NewLogger creates a JSON logger writing to stdout.
func NewLogger(opts ...Option) *slog.Logger {
	return NewLoggerWithWriter(os.Stdout, opts...)
}

// NewLoggerWithWriter creates a JSON logger writing to the given writer.
//
// The level is taken from LOG_LEVEL. Tests pass a buffer here to assert on what a component logged.
func NewLoggerWithWriter(writer io.Writer, opts ...Option) *slog.Logger {
	logCfg := newLoggingConfig()

	l := slog.New(NewDedupeHandler(slog.NewJSONHandler(writer, &slog.HandlerOptions{
		AddSource:   true,
		Level:       logCfg.Level,
		ReplaceAttr: replaceAttrs,
	})))

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// LoggerWithComponent returns a child logger tagged with the given component name.
func LoggerWithComponent(l *slog.Logger, component string) *slog.Logger {
	return l.With(
		slog.String(KeyComponent, component),
	)
}

// LoggerWithMonitor returns a child logger tagged with the monitor name and the endpoint it probes.
func LoggerWithMonitor(l *slog.Logger, name, endpoint string) *slog.Logger {
	return l.With(
		slog.String(KeyMonitor, name),
		slog.String(KeyEndpoint, endpoint),
	)
}

// replaceAttrs trims the source attribute down to "dir/file.go line".
func replaceAttrs(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.SourceKey {
		return a
	}

	valueStr := a.Value.String()
	if src, ok := a.Value.Any().(*slog.Source); ok && src != nil {
		valueStr = src.File + " " + strconv.Itoa(src.Line)
	}

	parts := strings.Split(valueStr, "/")
	idx := len(parts) - 2
	if idx < 0 {
		idx = 0
	}
	valueStr = strings.Join(parts[idx:], "/")

	// Braces break the logstash parser.
	valueStr = strings.ReplaceAll(valueStr, "{", "")
	valueStr = strings.ReplaceAll(valueStr, "}", "")

	a.Value = slog.StringValue(valueStr)
	return a
}
