package logging

import "log/slog"

// Option modifies a slog.Logger in place.
type Option = func(l *slog.Logger)

// WithDefaultLogger sets the logger as the process default logger.
func WithDefaultLogger() Option {
	return func(l *slog.Logger) {
		slog.SetDefault(l)
	}
}

// WithAppName adds the application name to every record.
func WithAppName(appName string) Option {
	return func(l *slog.Logger) {
		*l = *l.With(
			slog.String(KeyAppName, appName),
		)
	}
}

// WithComponent adds a component name to every record.
func WithComponent(component string) Option {
	return func(l *slog.Logger) {
		*l = *LoggerWithComponent(l, component)
	}
}
