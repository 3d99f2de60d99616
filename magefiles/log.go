//go:build mage

package main

import (
	"context"
	"log/slog"
	"os"
	"sync"
)

// magelog writes mage progress as plain text. Debug output is only shown in debug mode.
var magelog = sync.OnceValue(func() *slog.Logger {
	level := slog.LevelInfo
	if isDebugMode() {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
})

func log(level slog.Level, msg string) {
	magelog().Log(context.Background(), level, msg)
}
