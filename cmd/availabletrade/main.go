package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v10"

	availabletrade "github.com/engineering-resilient-systems-on-aws/AvailableTrade"
	"github.com/engineering-resilient-systems-on-aws/AvailableTrade/logging"
)

const appName = "availabletrade"

// config holds the settings only the binary reads. The rest is read by the App, see availabletrade.AppConfig.
type config struct {
	NatsURL       string `env:"NATS_URL"`
	EventsSubject string `env:"EVENTS_SUBJECT_PREFIX" envDefault:"availabletrade.availability"`
}

func main() {
	l := logging.NewLogger(
		logging.WithAppName(appName),
		logging.WithDefaultLogger(),
	)

	cfg := new(config)
	if err := env.Parse(cfg); err != nil {
		l.Error("failed to parse config", slog.Any(logging.KeyError, err))
		os.Exit(1)
	}

	app, err := availabletrade.NewApp(l)
	if err != nil {
		l.Error("failed to create app", slog.Any(logging.KeyError, err))
		os.Exit(1)
	}

	if err := app.Start(startOptions(l, app.Config(), cfg)...); err != nil {
		l.Error("failed to start app", slog.Any(logging.KeyError, err))
		os.Exit(1)
	}

	<-app.Done()
	app.Shutdown()
}

// startOptions enables each optional part of the application whose configuration is present.
func startOptions(l *slog.Logger, appCfg availabletrade.AppConfig, cfg *config) []availabletrade.StartOption {
	opts := []availabletrade.StartOption{
		availabletrade.WithHealthCheck(),
		availabletrade.WithStatusServer(),
	}

	if _, err := os.Stat(appCfg.ConfigLocation); err == nil {
		opts = append(opts,
			availabletrade.WithViperConfig(),
			availabletrade.WithMonitorsFromConfig(),
			availabletrade.WithConfigWatchers(func() {
				l.Warn("config file changed, restart to apply monitor changes")
			}),
		)
	} else if !errors.Is(err, fs.ErrNotExist) {
		l.Warn("config file not readable, skipping", slog.Any(logging.KeyError, err))
	}

	if appCfg.NewAccountEndpoint != "" {
		opts = append(opts, availabletrade.WithAccountOpenMonitor())
	}

	if cfg.NatsURL != "" {
		opts = append(opts,
			availabletrade.WithNatsClient(cfg.NatsURL),
			availabletrade.WithAvailabilityEvents(cfg.EventsSubject),
		)
	}

	return opts
}
