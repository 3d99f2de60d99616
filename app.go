package availabletrade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/gorilla/mux"
	"github.com/jacobbrewer1/uhttp"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/engineering-resilient-systems-on-aws/AvailableTrade/degrade"
	"github.com/engineering-resilient-systems-on-aws/AvailableTrade/health"
	"github.com/engineering-resilient-systems-on-aws/AvailableTrade/logging"
	atsync "github.com/engineering-resilient-systems-on-aws/AvailableTrade/sync"
	"github.com/engineering-resilient-systems-on-aws/AvailableTrade/version"
)

const (
	// httpReadHeaderTimeout specifies the maximum duration allowed to read HTTP request headers.
	httpReadHeaderTimeout = 10 * time.Second

	// shutdownTimeout specifies the maximum duration allowed for the application to shut down gracefully.
	shutdownTimeout = 15 * time.Second

	// transitionBuffer is how many transitions a slow subscriber may fall behind before it misses one.
	transitionBuffer = 32
)

var (
	// MetricsPort defines the port number used by the metrics server.
	MetricsPort = 9090

	// HealthPort defines the port number used by the health server.
	HealthPort = 9091

	// StatusPort defines the port number used by the availability status API.
	StatusPort = 8080
)

var (
	// ErrNilLogger is returned by NewApp when no logger is provided.
	ErrNilLogger = errors.New("logger is nil")

	// ErrMonitorNotFound is returned when no monitor is registered under the requested name.
	ErrMonitorNotFound = errors.New("monitor not found")
)

type (
	// AppConfig holds the settings read from the environment when the application is created.
	AppConfig struct {
		// ConfigLocation is the path of the configuration file read by WithViperConfig.
		ConfigLocation string `env:"CONFIG_LOCATION" envDefault:"config.json"`

		// NewAccountEndpoint is the account opening endpoint probed by WithAccountOpenMonitor.
		NewAccountEndpoint string `env:"NEW_ACCOUNT_ENDPOINT"`

		// NewAccountOrigin is sent as the Origin header of account opening probes.
		NewAccountOrigin string `env:"NEW_ACCOUNT_ORIGIN"`
	}

	// App is the application struct.
	// It owns the availability monitors and everything that serves or publishes their state.
	App struct {
		// l is the logger for the application.
		l *slog.Logger

		// baseCtx is the root context for all operations within the application.
		baseCtx context.Context

		// baseCtxCancel cancels the base context and signals shutdown.
		baseCtxCancel context.CancelFunc

		// baseCfg is the configuration read from the environment.
		baseCfg *AppConfig

		// isStartedChan is closed when the application has completed its startup process.
		isStartedChan chan struct{}

		// startOnce ensures that the start function is only called once.
		startOnce sync.Once

		// vip is the viper instance for the application.
		vip *viper.Viper

		// metricsEnabled enables the metrics server and request metrics.
		metricsEnabled bool

		// registerer is where request metrics are registered.
		registerer prometheus.Registerer

		// servers holds the HTTP servers managed by the application, keyed by name.
		servers sync.Map

		// shutdownOnce ensures that the shutdown function is only called once.
		shutdownOnce sync.Once

		// shutdownWg is used to wait for all shutdown tasks to complete.
		shutdownWg *sync.WaitGroup

		// indefiniteAsyncTasks holds tasks that run until the application shuts down.
		indefiniteAsyncTasks sync.Map

		// monitors holds the registered availability monitors, keyed by name.
		monitors sync.Map

		// monitorHandles holds the handles of the started monitors, keyed by name.
		monitorHandles sync.Map

		// transitions fans availability transitions out to in-process subscribers.
		transitions *atsync.ChannelBroadcaster[degrade.Transition]

		// checker reports the monitors on the health server.
		checker *health.Checker

		// natsClient is the NATS connection availability events are published on.
		natsClient *nats.Conn
	}
)

// NewApp creates a new application with the given logger.
//
// The application configuration is parsed from the environment. An error is returned if the logger is nil
// or the configuration cannot be parsed.
func NewApp(l *slog.Logger) (*App, error) {
	if l == nil {
		return nil, ErrNilLogger
	}

	baseCtx, baseCtxCancel := CoreContext()

	baseCfg := new(AppConfig)
	if err := env.Parse(baseCfg); err != nil {
		baseCtxCancel()
		return nil, fmt.Errorf("failed to parse app config: %w", err)
	}

	checker, err := health.NewChecker()
	if err != nil {
		baseCtxCancel()
		return nil, fmt.Errorf("failed to create health checker: %w", err)
	}

	return &App{
		l:              l,
		baseCfg:        baseCfg,
		baseCtx:        baseCtx,
		baseCtxCancel:  baseCtxCancel,
		isStartedChan:  make(chan struct{}),
		metricsEnabled: true,
		registerer:     prometheus.DefaultRegisterer,
		shutdownWg:     new(sync.WaitGroup),
		transitions: atsync.NewChannelBroadcaster[degrade.Transition](
			logging.LoggerWithComponent(l, "transitions"),
			transitionBuffer,
		),
		checker: checker,
	}, nil
}

// Start starts the application and applies the given options.
//
// Options are applied in order. Once they have all been applied the metrics server is registered, every
// availability monitor performs its first probe, and then the HTTP servers and indefinite tasks are started.
//
// Note: This function is thread-safe. If the function is called from multiple threads,
// it will only execute once. However, it will block all calling threads until the startup is complete.
// If an error occurs, the application will be shut down.
func (a *App) Start(opts ...StartOption) error {
	var startErr error
	a.startOnce.Do(func() {
		defer close(a.isStartedChan)

		info := version.Get()
		a.l.Info("starting application",
			slog.String(logging.KeyGitCommit, info.Commit),
			slog.String(logging.KeyRuntime, fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)),
			slog.String(logging.KeyCommitTimestamp, info.CommitTime.String()),
		)

		for _, opt := range opts {
			if err := opt(a); err != nil { // nolint:revive // Traditional error handling
				startErr = fmt.Errorf("failed to apply option: %w", err)
				return
			}
		}

		if a.metricsEnabled {
			metricsRouter := mux.NewRouter()
			metricsRouter.Handle("/metrics", promhttp.Handler())
			a.servers.Store("metrics", &http.Server{
				Addr:              fmt.Sprintf(":%d", MetricsPort),
				Handler:           metricsRouter,
				ReadHeaderTimeout: httpReadHeaderTimeout,
			})
		}

		if err := a.startMonitors(); err != nil {
			startErr = fmt.Errorf("monitor initialization error: %w", err)
			return
		}

		var serverErr error
		a.servers.Range(func(name, srv any) bool {
			serverName, ok := name.(string)
			if !ok {
				serverErr = errors.New("failed to cast server name to string")
				return false
			}

			server, ok := srv.(*http.Server)
			if !ok {
				serverErr = fmt.Errorf("failed to cast server %s to http.Server", serverName)
				return false
			}

			a.startServer(serverName, server)
			return true
		})
		if serverErr != nil {
			startErr = fmt.Errorf("server initialization error: %w", serverErr)
			return
		}

		var taskErr error
		a.indefiniteAsyncTasks.Range(func(name, fn any) bool {
			taskName, ok := name.(string)
			if !ok {
				taskErr = errors.New("failed to cast task name to string")
				return false
			}

			taskFn, ok := fn.(AsyncTaskFunc)
			if !ok {
				taskErr = fmt.Errorf("failed to cast task function %s to AsyncTaskFunc", taskName)
				return false
			}

			a.startAsyncTask(taskName, true, taskFn)
			return true
		})
		if taskErr != nil { // nolint:revive // Traditional error handling
			startErr = fmt.Errorf("async task initialization error: %w", taskErr)
			return
		}
	})

	a.waitUntilStarted()

	if startErr != nil {
		a.l.Error("error detected in application startup", slog.String(logging.KeyError, startErr.Error()))
		go a.Shutdown()
	}

	return startErr
}

// waitUntilStarted blocks until the startup sequence has finished.
func (a *App) waitUntilStarted() {
	<-a.isStartedChan
}

// startMonitors starts every registered monitor that is not already running. Each monitor probes once
// before this returns.
func (a *App) startMonitors() error {
	var startErrs error
	a.monitors.Range(func(name, m any) bool {
		monitorName, _ := name.(string)
		monitor, ok := m.(*degrade.Monitor)
		if !ok {
			startErrs = multierr.Append(startErrs, fmt.Errorf("failed to cast monitor %s to degrade.Monitor", monitorName))
			return true
		}

		if _, started := a.monitorHandles.Load(monitorName); started {
			return true
		}

		h, err := monitor.Start(a.baseCtx)
		if err != nil {
			startErrs = multierr.Append(startErrs, fmt.Errorf("failed to start monitor %s: %w", monitorName, err))
			return true
		}

		a.monitorHandles.Store(monitorName, h)
		return true
	})
	return startErrs
}

// stopMonitors stops every started monitor and waits for their in-flight probes.
func (a *App) stopMonitors() {
	a.monitorHandles.Range(func(name, h any) bool {
		if handle, ok := h.(*degrade.Handle); ok {
			handle.Stop()
		}
		a.monitorHandles.Delete(name)
		return true
	})
}

// startServer starts the given HTTP server and adds it to the application's shutdown wait group.
func (a *App) startServer(name string, srv *http.Server) {
	l := a.l.With(slog.String(logging.KeyServer, name))

	a.shutdownWg.Add(1)
	go func() {
		defer a.shutdownWg.Done()

		l.Info("server listening")
		if err := srv.ListenAndServe(); errors.Is(err, http.ErrServerClosed) {
			l.Info("server shut down gracefully", slog.Any(logging.KeyError, err))
		} else {
			l.Error("server closed", slog.Any(logging.KeyError, err))
		}
	}()
}

// ChildContext creates and returns a new child context derived from the application's base context.
func (a *App) ChildContext() (context.Context, context.CancelFunc) {
	return context.WithCancel(a.baseCtx)
}

// TimeoutContext returns a child context of the application's base context with a specified timeout.
func (a *App) TimeoutContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(a.baseCtx, timeout)
}

// WaitForEnd blocks until the application's base context is done and then calls each onEnd function.
func (a *App) WaitForEnd(onEnd ...func()) {
	<-a.baseCtx.Done()

	for _, fn := range onEnd {
		fn()
	}
}

// Shutdown gracefully stops the application by performing the following steps:
// 1. Cancels the base context to signal shutdown to all components.
// 2. Stops every availability monitor, discarding probe results that complete afterwards.
// 3. Shuts down all registered HTTP servers.
// 4. Closes the transition subscribers and the NATS connection.
// 5. Waits for all shutdown tasks to complete.
//
// Note: This function is thread-safe and ensures that the shutdown process is executed only once,
// even if called from multiple threads. It blocks all calling threads until the shutdown is complete.
func (a *App) Shutdown() {
	a.shutdownOnce.Do(func() {
		if a.baseCtxCancel != nil {
			a.baseCtxCancel()
		}

		a.stopMonitors()

		// The base context is already cancelled, so the timeout is measured from a fresh context.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(a.baseCtx), shutdownTimeout)
		defer cancel()

		a.servers.Range(func(name, srv any) bool {
			server, ok := srv.(*http.Server)
			if !ok {
				a.l.Error("failed to cast server to http.Server")
				return false
			}

			nameStr, ok := name.(string)
			if !ok {
				a.l.Warn("failed to cast server name to string")
				nameStr = "unknown"
			}

			if err := server.Shutdown(ctx); err != nil {
				a.l.Error("failed to shutdown server",
					slog.String(logging.KeyServer, nameStr),
					slog.Any(logging.KeyError, err),
				)
			}

			return true
		})

		a.transitions.Close()

		if a.natsClient != nil {
			a.natsClient.Close()
		}
	})

	a.shutdownWg.Wait()
}

// Logger returns the logger for the application.
//
// Panics:
//   - If the logger has not been registered.
func (a *App) Logger() *slog.Logger {
	if a.l == nil {
		panic("logger has not been registered")
	}
	return a.l
}

// Config returns a copy of the configuration read from the environment by NewApp.
func (a *App) Config() AppConfig {
	return *a.baseCfg
}

// Viper returns the viper instance for the application.
//
// Panics:
//   - If the viper instance has not been registered.
func (a *App) Viper() *viper.Viper {
	if a.vip == nil {
		a.l.Error("viper instance has not been registered")
		panic("viper instance has not been registered")
	}
	return a.vip
}

// NatsClient returns the NATS client for the application.
//
// Panics:
//   - If the NATS client has not been registered.
func (a *App) NatsClient() *nats.Conn {
	if a.natsClient == nil {
		a.l.Error("nats client has not been registered")
		panic("nats client has not been registered")
	}
	return a.natsClient
}

// HealthChecker returns the checker the monitors are reported on.
func (a *App) HealthChecker() *health.Checker {
	return a.checker
}

// Done returns a channel that is closed when the application's base context is done.
func (a *App) Done() <-chan struct{} {
	return a.baseCtx.Done()
}

// StartServer registers and starts an HTTP server.
//
// Behavior:
//   - If a server with the same name is already registered, it returns an error.
//   - If the server handler is a Gorilla Mux router, it ensures that default
//     "not found" and "method not allowed" handlers are applied if not set.
func (a *App) StartServer(name string, srv *http.Server) error {
	if _, found := a.servers.Load(name); found {
		return fmt.Errorf("server %s already exists", name)
	}

	applyDefaultHandlers(a.l, srv)

	a.servers.Store(name, srv)
	a.startServer(name, srv)
	return nil
}

// applyDefaultHandlers sets the uhttp not found and method not allowed handlers on mux routers that have none.
func applyDefaultHandlers(l *slog.Logger, srv *http.Server) {
	muxRouter, ok := srv.Handler.(*mux.Router)
	if !ok {
		return
	}

	if muxRouter.NotFoundHandler == nil {
		l.Info("not found handler not set for server, applying default handler")
		muxRouter.NotFoundHandler = uhttp.NotFoundHandler()
	}
	if muxRouter.MethodNotAllowedHandler == nil {
		l.Info("method not allowed handler not set for server, applying default handler")
		muxRouter.MethodNotAllowedHandler = uhttp.MethodNotAllowedHandler()
	}
}

// startAsyncTask starts an asynchronous task with the given name and function.
//
// If an indefinite task returns before the application shuts down, the application is shut down.
func (a *App) startAsyncTask(name string, indefinite bool, fn AsyncTaskFunc) {
	a.l.Info("starting async task", slog.String(logging.KeyName, name))
	a.shutdownWg.Add(1)
	go func() {
		defer a.shutdownWg.Done()
		fn(a.baseCtx)

		if indefinite && !errors.Is(a.baseCtx.Err(), context.Canceled) { // nolint:revive // Traditional error handling
			a.l.Error("indefinite async task closed before app shutdown",
				slog.String(logging.KeyName, name),
			)
			a.baseCtxCancel()
		}
	}()
}

// registerMonitor adds a monitor to the registry and the health checker. Monitors registered after Start
// are started immediately.
func (a *App) registerMonitor(m *degrade.Monitor, sourceOpts ...health.SourceOption) error {
	if _, loaded := a.monitors.LoadOrStore(m.Name(), m); loaded {
		return fmt.Errorf("monitor %s already exists", m.Name())
	}

	if err := a.checker.AddSource(m, sourceOpts...); err != nil {
		a.monitors.Delete(m.Name())
		return fmt.Errorf("failed to add monitor %s to health checker: %w", m.Name(), err)
	}

	select {
	case <-a.isStartedChan:
		return a.startMonitors()
	default:
		return nil
	}
}

// newMonitor creates a monitor whose transitions are broadcast to the application's subscribers.
func (a *App) newMonitor(name string, prober degrade.Prober, opts ...degrade.MonitorOption) (*degrade.Monitor, error) {
	opts = append(slices.Clone(opts), degrade.WithTransitionListener(a.broadcastTransition))
	return degrade.NewMonitor(logging.LoggerWithComponent(a.l, "degrade"), name, prober, opts...)
}

// broadcastTransition hands a transition to every subscriber. Drops are logged by the broadcaster.
func (a *App) broadcastTransition(_ context.Context, t degrade.Transition) {
	if err := a.transitions.Broadcast(t); errors.Is(err, atsync.ErrBroadcasterClosed) {
		a.l.Debug("transition after shutdown discarded", slog.String(logging.KeyMonitor, t.Name))
	}
}

// Monitor returns the monitor registered under name.
func (a *App) Monitor(name string) (*degrade.Monitor, error) {
	m, ok := a.monitors.Load(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMonitorNotFound, name)
	}

	monitor, ok := m.(*degrade.Monitor)
	if !ok {
		return nil, fmt.Errorf("failed to cast monitor %s to degrade.Monitor", name)
	}
	return monitor, nil
}

// Monitors returns every registered monitor ordered by name.
func (a *App) Monitors() []*degrade.Monitor {
	var monitors []*degrade.Monitor
	a.monitors.Range(func(_, m any) bool {
		if monitor, ok := m.(*degrade.Monitor); ok {
			monitors = append(monitors, monitor)
		}
		return true
	})

	slices.SortFunc(monitors, func(x, y *degrade.Monitor) int {
		return strings.Compare(x.Name(), y.Name())
	})
	return monitors
}

// IsAvailable returns the cached availability flag of the named monitor.
func (a *App) IsAvailable(name string) (bool, error) {
	m, err := a.Monitor(name)
	if err != nil {
		return false, err
	}
	return m.IsAvailable(), nil
}

// SubscribeAvailability registers a subscriber for availability transitions of every monitor. The channel
// is closed by UnsubscribeAvailability or when the application shuts down.
func (a *App) SubscribeAvailability(subscriber string) (<-chan degrade.Transition, error) {
	return a.transitions.Subscribe(subscriber)
}

// UnsubscribeAvailability removes a subscriber registered with SubscribeAvailability.
func (a *App) UnsubscribeAvailability(subscriber string) {
	a.transitions.Unsubscribe(subscriber)
}
