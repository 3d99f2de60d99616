package logging

import (
	"log/slog"

	"github.com/caarlos0/env/v10"
)

// loggingConfig is the logging configuration read from the environment.
type loggingConfig struct {
	// Level is the minimum level that is written. Invalid values fall back to info.
	Level slog.Level `env:"LOG_LEVEL" envDefault:"info"`
}

// newLoggingConfig reads the logging configuration from the environment.
func newLoggingConfig() *loggingConfig {
	logCfg := &loggingConfig{
		Level: slog.LevelInfo,
	}

	if err := env.Parse(logCfg); err != nil {
		// A bad LOG_LEVEL should not stop the service from logging at all.
		logCfg.Level = slog.LevelInfo
	}

	return logCfg
}
