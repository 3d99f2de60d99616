package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	availabletrade "github.com/engineering-resilient-systems-on-aws/AvailableTrade"
)

func TestStartOptions(t *testing.T) {
	t.Parallel()

	l := slog.New(slog.DiscardHandler)

	configFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(configFile, []byte(`{"monitors":[]}`), 0o600))

	tests := []struct {
		name   string
		appCfg availabletrade.AppConfig
		cfg    *config
		want   int
	}{
		{
			name:   "servers only",
			appCfg: availabletrade.AppConfig{ConfigLocation: filepath.Join(t.TempDir(), "missing.json")},
			cfg:    new(config),
			want:   2,
		},
		{
			name:   "config file",
			appCfg: availabletrade.AppConfig{ConfigLocation: configFile},
			cfg:    new(config),
			want:   5,
		},
		{
			name: "account open and nats",
			appCfg: availabletrade.AppConfig{
				ConfigLocation:     filepath.Join(t.TempDir(), "missing.json"),
				NewAccountEndpoint: "https://api.example.com/open",
			},
			cfg:  &config{NatsURL: "nats://127.0.0.1:4222", EventsSubject: "trade.availability"},
			want: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Len(t, startOptions(l, tt.appCfg, tt.cfg), tt.want)
		})
	}
}
