package availabletrade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/nats-io/nats.go"
	"github.com/spf13/viper"

	"github.com/engineering-resilient-systems-on-aws/AvailableTrade/degrade"
	"github.com/engineering-resilient-systems-on-aws/AvailableTrade/events"
	"github.com/engineering-resilient-systems-on-aws/AvailableTrade/health"
	"github.com/engineering-resilient-systems-on-aws/AvailableTrade/logging"
	"github.com/engineering-resilient-systems-on-aws/AvailableTrade/metrics"
)

const (
	// AccountOpenMonitorName is the name of the monitor guarding the account opening service.
	AccountOpenMonitorName = "account-open"

	// monitorsConfigKey is the config file key holding the list of monitors.
	monitorsConfigKey = "monitors"

	// eventsSubscriberName is the transition subscriber that publishes to NATS.
	eventsSubscriberName = "nats-events"
)

// AsyncTaskFunc defines a function type for asynchronous tasks.
type AsyncTaskFunc = func(context.Context)

// StartOption defines a function type for configuring the application during startup.
type StartOption = func(*App) error

// MonitorConfig describes a monitor declared in the config file.
type MonitorConfig struct {
	Name             string        `mapstructure:"name"`
	Endpoint         string        `mapstructure:"endpoint"`
	Origin           string        `mapstructure:"origin"`
	Method           string        `mapstructure:"method"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold *uint         `mapstructure:"failure_threshold"`
	AllowOverlap     bool          `mapstructure:"allow_overlap"`
	NonCritical      bool          `mapstructure:"non_critical"`
}

// options converts the config into prober and monitor options. Zero values keep the defaults.
func (c *MonitorConfig) options() ([]degrade.ProberOption, []degrade.MonitorOption) {
	var proberOpts []degrade.ProberOption
	if c.Origin != "" {
		proberOpts = append(proberOpts, degrade.WithProberOrigin(c.Origin))
	}
	if c.Method != "" {
		proberOpts = append(proberOpts, degrade.WithProberMethod(c.Method))
	}

	var monitorOpts []degrade.MonitorOption
	if c.Interval != 0 {
		monitorOpts = append(monitorOpts, degrade.WithInterval(c.Interval))
	}
	if c.Timeout != 0 {
		monitorOpts = append(monitorOpts, degrade.WithProbeTimeout(c.Timeout))
	}
	if c.FailureThreshold != nil {
		monitorOpts = append(monitorOpts, degrade.WithFailureThreshold(*c.FailureThreshold))
	}
	if c.AllowOverlap {
		monitorOpts = append(monitorOpts, degrade.WithOverlappingProbes())
	}

	return proberOpts, monitorOpts
}

// WithViperConfig is a StartOption that sets up the viper configuration.
func WithViperConfig() StartOption {
	return func(a *App) error {
		vip := viper.New()
		vip.SetConfigFile(a.baseCfg.ConfigLocation)
		if err := vip.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file into viper: %w", err)
		}
		a.vip = vip
		return nil
	}
}

// WithConfigWatchers is a StartOption that registers functions to be called when the config file changes.
func WithConfigWatchers(fn ...func()) StartOption {
	return func(a *App) error {
		vip := a.Viper()
		vip.OnConfigChange(func(e fsnotify.Event) {
			a.l.Info("Config file changed", slog.String(logging.KeyFile, e.Name))
			for _, f := range fn {
				f()
			}
		})
		vip.WatchConfig()
		return nil
	}
}

// WithMetricsEnabled is a StartOption that enables or disables metrics for the application.
func WithMetricsEnabled(metricsEnabled bool) StartOption {
	return func(a *App) error {
		a.metricsEnabled = metricsEnabled
		return nil
	}
}

// WithHealthCheck is a StartOption that serves the health of every monitor on the health port.
//
// Monitors registered by later options are reported as well. On-demand checks are added with
// health.WithCheckerCheck, and WithNatsClient adds one for its connection.
func WithHealthCheck(opts ...health.CheckerOption) StartOption {
	return func(a *App) error {
		if _, exists := a.servers.Load("health"); exists {
			return errors.New("health check server already registered")
		}

		for _, opt := range opts {
			if err := opt(a.checker); err != nil {
				return fmt.Errorf("error applying health checker option: %w", err)
			}
		}

		a.servers.Store("health", &http.Server{
			Addr:              fmt.Sprintf(":%d", HealthPort),
			Handler:           a.checker.Handler(),
			ReadHeaderTimeout: httpReadHeaderTimeout,
		})

		return nil
	}
}

// WithMonitor is a StartOption that registers a monitor using any prober.
func WithMonitor(name string, prober degrade.Prober, opts ...degrade.MonitorOption) StartOption {
	return func(a *App) error {
		m, err := a.newMonitor(name, prober, opts...)
		if err != nil {
			return fmt.Errorf("error creating monitor %s: %w", name, err)
		}
		return a.registerMonitor(m)
	}
}

// WithAvailabilityMonitor is a StartOption that registers a monitor probing endpoint over HTTP.
//
// The origin is sent as the Origin header of every probe when it is not empty.
func WithAvailabilityMonitor(name, endpoint, origin string, opts ...degrade.MonitorOption) StartOption {
	return func(a *App) error {
		cfg := &MonitorConfig{
			Name:     name,
			Endpoint: endpoint,
			Origin:   origin,
		}
		return a.addHTTPMonitor(cfg, opts...)
	}
}

// WithAccountOpenMonitor is a StartOption that registers the account opening monitor, probing the endpoint
// from the NEW_ACCOUNT_ENDPOINT environment variable with the default interval, timeout and threshold.
func WithAccountOpenMonitor(opts ...degrade.MonitorOption) StartOption {
	return func(a *App) error {
		if a.baseCfg.NewAccountEndpoint == "" {
			return errors.New("NEW_ACCOUNT_ENDPOINT is not set")
		}

		return WithAvailabilityMonitor(
			AccountOpenMonitorName,
			a.baseCfg.NewAccountEndpoint,
			a.baseCfg.NewAccountOrigin,
			opts...,
		)(a)
	}
}

// WithMonitorsFromConfig is a StartOption that registers every monitor listed under "monitors" in the
// config file.
//
// Example:
//
//	{
//	  "monitors": [
//	    {"name": "account-open", "endpoint": "https://accounts.example.com/open", "interval": "5s"}
//	  ]
//	}
func WithMonitorsFromConfig() StartOption {
	return func(a *App) error {
		vip := a.Viper()

		var cfgs []*MonitorConfig
		if err := vip.UnmarshalKey(monitorsConfigKey, &cfgs); err != nil {
			return fmt.Errorf("error decoding monitors config: %w", err)
		}

		if len(cfgs) == 0 {
			a.l.Warn("no monitors found in config file", slog.String(logging.KeyFile, vip.ConfigFileUsed()))
			return nil
		}

		for _, cfg := range cfgs {
			if err := a.addHTTPMonitor(cfg); err != nil {
				return err
			}
		}
		return nil
	}
}

// addHTTPMonitor creates and registers a monitor probing the configured endpoint.
func (a *App) addHTTPMonitor(cfg *MonitorConfig, extra ...degrade.MonitorOption) error {
	if cfg == nil {
		return errors.New("monitor config is nil")
	}

	proberOpts, monitorOpts := cfg.options()

	prober, err := degrade.NewHTTPProber(cfg.Endpoint, proberOpts...)
	if err != nil {
		return fmt.Errorf("error creating prober for monitor %s: %w", cfg.Name, err)
	}

	m, err := a.newMonitor(cfg.Name, prober, append(monitorOpts, extra...)...)
	if err != nil {
		return fmt.Errorf("error creating monitor %s: %w", cfg.Name, err)
	}

	var sourceOpts []health.SourceOption
	if cfg.NonCritical {
		sourceOpts = append(sourceOpts, health.WithNonCritical())
	}

	return a.registerMonitor(m, sourceOpts...)
}

// WithStatusServer is a StartOption that serves the availability status API on the status port.
func WithStatusServer() StartOption {
	return func(a *App) error {
		if _, exists := a.servers.Load("status"); exists {
			return errors.New("status server already registered")
		}

		var httpMetrics *metrics.HTTPMetrics
		if a.metricsEnabled {
			var err error
			httpMetrics, err = metrics.NewHTTPMetrics(a.registerer, "status")
			if err != nil {
				return fmt.Errorf("error registering status server metrics: %w", err)
			}
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", StatusPort),
			Handler:           a.statusRouter(httpMetrics),
			ReadHeaderTimeout: httpReadHeaderTimeout,
		}
		applyDefaultHandlers(a.l, srv)

		a.servers.Store("status", srv)
		return nil
	}
}

// WithDependencyBootstrap is a StartOption that bootstraps application dependencies.
//
// This function allows the custom dependency bootstrapping, which is executed during the application startup process.
func WithDependencyBootstrap(fn func(ctx context.Context) error) StartOption {
	return func(a *App) error {
		return fn(a.baseCtx)
	}
}

// WithIndefiniteAsyncTask is a StartOption that sets up an indefinite asynchronous task.
func WithIndefiniteAsyncTask(name string, fn AsyncTaskFunc) StartOption {
	return func(a *App) error {
		a.indefiniteAsyncTasks.Store(name, fn)
		return nil
	}
}

// WithNatsClient is a StartOption that sets up the NATS client.
func WithNatsClient(target string, opts ...nats.Option) StartOption {
	return func(a *App) error {
		if target == "" {
			return errors.New("target cannot be empty")
		}

		opts = append([]nats.Option{nats.Name("availabletrade")}, opts...)
		nc, err := nats.Connect(target, opts...)
		if err != nil {
			return fmt.Errorf("failed to connect to nats: %w", err)
		}

		if err := a.addNatsCheck(nc); err != nil {
			nc.Close()
			return err
		}

		a.natsClient = nc
		return nil
	}
}

// natsStatus is the part of a NATS connection the health check reads.
type natsStatus interface {
	Status() nats.Status
}

// addNatsCheck reports the state of the NATS connection on the health endpoint.
func (a *App) addNatsCheck(conn natsStatus) error {
	check := health.NewCheck("nats", natsConnectionCheck(conn),
		health.WithCheckOnStatusChange(health.StandardStatusListener(logging.LoggerWithComponent(a.l, "health"))),
	)
	if err := a.checker.AddCheck(check); err != nil {
		return fmt.Errorf("error adding nats health check: %w", err)
	}
	return nil
}

// natsConnectionCheck is degraded while the client is re-establishing the connection and down once the
// connection is closed for good.
func natsConnectionCheck(conn natsStatus) health.CheckFunc {
	return func(context.Context) error {
		switch status := conn.Status(); status {
		case nats.CONNECTED:
			return nil
		case nats.CONNECTING, nats.DISCONNECTED, nats.RECONNECTING, nats.DRAINING_SUBS, nats.DRAINING_PUBS:
			return health.NewStatusError(fmt.Errorf("nats connection is %s", status), health.StatusDegraded)
		default:
			return fmt.Errorf("nats connection is %s", status)
		}
	}
}

// WithAvailabilityEvents is a StartOption that publishes every availability transition to NATS under the
// given subject prefix. WithNatsClient must be applied first.
func WithAvailabilityEvents(subjectPrefix string) StartOption {
	return func(a *App) error {
		return a.publishTransitions(a.NatsClient(), subjectPrefix)
	}
}

// publishTransitions subscribes a NATS publisher to the transitions and runs it as an indefinite task.
func (a *App) publishTransitions(conn events.Conn, subjectPrefix string) error {
	pub, err := events.NewPublisher(logging.LoggerWithComponent(a.l, "events"), conn, subjectPrefix)
	if err != nil {
		return fmt.Errorf("error creating availability event publisher: %w", err)
	}

	transitions, err := a.SubscribeAvailability(eventsSubscriberName)
	if err != nil {
		return fmt.Errorf("error subscribing to availability transitions: %w", err)
	}

	return WithIndefiniteAsyncTask("availability-events", func(ctx context.Context) {
		pub.Run(ctx, transitions)
	})(a)
}
