package availabletrade

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/engineering-resilient-systems-on-aws/AvailableTrade/degrade"
	"github.com/engineering-resilient-systems-on-aws/AvailableTrade/health"
	"github.com/engineering-resilient-systems-on-aws/AvailableTrade/logging"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	app, err := NewApp(logging.NewLoggerWithWriter(io.Discard))
	require.NoError(t, err)
	app.registerer = prometheus.NewRegistry()
	t.Cleanup(app.Shutdown)
	return app
}

var errUnreachable = errors.New("connection refused")

func failingProber(_ context.Context) error {
	return errUnreachable
}

func healthyProber(_ context.Context) error {
	return nil
}

func TestNewApp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		logger  *slog.Logger
		wantErr bool
	}{
		{
			name:    "nil logger",
			logger:  nil,
			wantErr: true,
		},
		{
			name:    "valid logger",
			logger:  logging.NewLoggerWithWriter(io.Discard),
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app, err := NewApp(tt.logger)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrNilLogger)
				require.Nil(t, app)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, app)
			require.NotNil(t, app.baseCtx)
			require.NotNil(t, app.baseCtxCancel)
			require.NotNil(t, app.shutdownWg)
			require.NotNil(t, app.transitions)
			require.NotNil(t, app.HealthChecker())
			require.True(t, app.metricsEnabled)
			app.Shutdown()
		})
	}
}

func TestApp_Shutdown(t *testing.T) {
	t.Parallel()

	t.Run("single shutdown", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t)

		err := app.StartServer("test", &http.Server{
			Addr:              "127.0.0.1:0",
			ReadHeaderTimeout: time.Second,
		})
		require.NoError(t, err)

		// Give the server time to start
		time.Sleep(100 * time.Millisecond)

		app.Shutdown()
		require.ErrorIs(t, app.baseCtx.Err(), context.Canceled)
	})

	t.Run("multiple shutdowns", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t)

		done := make(chan struct{})
		go func() {
			app.Shutdown()
			app.Shutdown()
			app.Shutdown()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("multiple shutdowns timed out")
		}
	})

	t.Run("stops monitors and closes subscribers", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t)

		prober := degrade.ProberFunc(healthyProber)
		err := app.Start(
			WithMetricsEnabled(false),
			WithMonitor("account-open", prober, degrade.WithInterval(10*time.Millisecond)),
		)
		require.NoError(t, err)

		transitions, err := app.SubscribeAvailability("test")
		require.NoError(t, err)

		h, ok := app.monitorHandles.Load("account-open")
		require.True(t, ok)
		handle, ok := h.(*degrade.Handle)
		require.True(t, ok)

		app.Shutdown()

		select {
		case <-handle.Done():
		default:
			t.Fatal("monitor should be stopped once shutdown returns")
		}

		_, open := <-transitions
		require.False(t, open, "subscriber channel should be closed")
	})
}

func TestApp_StartServer(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)

	svr1 := &http.Server{
		Addr:              "127.0.0.1:0",
		ReadHeaderTimeout: time.Second,
	}

	svr2 := &http.Server{
		Addr:              "127.0.0.1:0",
		ReadHeaderTimeout: time.Second,
	}

	err := app.StartServer("test1", svr1)
	require.NoError(t, err)

	err = app.StartServer("test2", svr2)
	require.NoError(t, err)

	// Try and start the same server again
	err = app.StartServer("test1", svr1)
	require.EqualError(t, err, "server test1 already exists")
}

func TestApp_ChildContext(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)

	ctx, cancel := app.ChildContext()
	defer cancel()

	app.baseCtxCancel()
	select {
	case <-ctx.Done():
	case <-time.After(100 * time.Millisecond):
		t.Fatal("child context not cancelled when parent cancelled")
	}
}

func TestApp_TimeoutContext(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)

	ctx, cancel := app.TimeoutContext(10 * time.Millisecond)
	defer cancel()

	select {
	case <-ctx.Done():
		require.ErrorIs(t, ctx.Err(), context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("timeout context did not expire")
	}
}

func TestApp_WaitForEnd(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)

	callbackCalled := make(chan struct{})
	done := make(chan struct{})
	go func() {
		app.WaitForEnd(func() {
			close(callbackCalled)
		})
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	app.baseCtxCancel()

	select {
	case <-done:
		_, open := <-callbackCalled
		require.False(t, open, "callback should have been called")
	case <-time.After(time.Second):
		t.Fatal("WaitForEnd did not complete")
	}
}

func TestApp_Panics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		testFunc func(*App)
		panicMsg string
	}{
		{
			name: "Logger",
			testFunc: func(a *App) {
				a.l = nil
				a.Logger()
			},
			panicMsg: "logger has not been registered",
		},
		{
			name: "Viper",
			testFunc: func(a *App) {
				a.Viper()
			},
			panicMsg: "viper instance has not been registered",
		},
		{
			name: "NatsClient",
			testFunc: func(a *App) {
				a.NatsClient()
			},
			panicMsg: "nats client has not been registered",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app := newTestApp(t)
			l := app.l
			require.PanicsWithValue(t, tt.panicMsg, func() {
				tt.testFunc(app)
			})
			app.l = l
		})
	}
}

func TestApp_Start(t *testing.T) {
	t.Parallel()

	t.Run("successful start", func(t *testing.T) {
		t.Parallel()
		app := newTestApp(t)
		err := app.Start(WithMetricsEnabled(false))
		require.NoError(t, err)
	})

	t.Run("multiple starts - options not executed", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t)

		err := app.Start(WithMetricsEnabled(false))
		require.NoError(t, err)

		optionCalled := false
		err = app.Start(func(a *App) error {
			optionCalled = true
			return nil
		})
		require.NoError(t, err)
		require.False(t, optionCalled, "option should not be called on second start")
	})

	t.Run("failing option aborts startup", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t)

		called := false
		err := app.Start(
			func(a *App) error {
				return errors.New("first error")
			},
			func(a *App) error {
				called = true
				return nil
			},
		)
		require.ErrorContains(t, err, "first error")
		require.False(t, called, "subsequent options should not be called")

		app.WaitForEnd(app.Shutdown)
	})

	t.Run("with async tasks", func(t *testing.T) {
		t.Parallel()
		app := newTestApp(t)

		taskCalled := make(chan struct{})
		err := app.Start(
			WithMetricsEnabled(false),
			WithIndefiniteAsyncTask("test", func(ctx context.Context) {
				close(taskCalled)
				<-ctx.Done()
			}),
		)
		require.NoError(t, err)

		select {
		case <-taskCalled:
		case <-time.After(time.Second):
			t.Fatal("async task should be called")
		}
	})

	t.Run("indefinite task ending early shuts down", func(t *testing.T) {
		t.Parallel()
		app := newTestApp(t)

		err := app.Start(
			WithMetricsEnabled(false),
			WithIndefiniteAsyncTask("short", func(context.Context) {}),
		)
		require.NoError(t, err)

		select {
		case <-app.Done():
		case <-time.After(time.Second):
			t.Fatal("app should end when an indefinite task returns")
		}
	})

	t.Run("monitors probe before start returns", func(t *testing.T) {
		t.Parallel()
		app := newTestApp(t)

		err := app.Start(
			WithMetricsEnabled(false),
			WithMonitor("account-open", degrade.ProberFunc(failingProber), degrade.WithFailureThreshold(0)),
			WithMonitor("quotes", degrade.ProberFunc(healthyProber)),
		)
		require.NoError(t, err)

		available, err := app.IsAvailable("account-open")
		require.NoError(t, err)
		require.False(t, available)

		available, err = app.IsAvailable("quotes")
		require.NoError(t, err)
		require.True(t, available)

		m, err := app.Monitor("quotes")
		require.NoError(t, err)
		require.Equal(t, uint64(1), m.State().Probes)
	})
}

func TestApp_Monitors(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)

	require.NoError(t, WithMonitor("quotes", degrade.ProberFunc(healthyProber))(app))
	require.NoError(t, WithMonitor("account-open", degrade.ProberFunc(healthyProber))(app))

	err := WithMonitor("quotes", degrade.ProberFunc(healthyProber))(app)
	require.EqualError(t, err, "monitor quotes already exists")

	monitors := app.Monitors()
	require.Len(t, monitors, 2)
	require.Equal(t, "account-open", monitors[0].Name())
	require.Equal(t, "quotes", monitors[1].Name())

	_, err = app.Monitor("orders")
	require.ErrorIs(t, err, ErrMonitorNotFound)

	_, err = app.IsAvailable("orders")
	require.ErrorIs(t, err, ErrMonitorNotFound)

	available, err := app.IsAvailable("quotes")
	require.NoError(t, err)
	require.True(t, available, "monitors are available before their first probe")

	result := app.HealthChecker().Check(t.Context())
	require.Equal(t, health.StatusUnknown, result.Status, "critical monitors not probed yet")
	require.Len(t, result.Details, 2)
	require.Equal(t, health.StatusUnknown, result.Details["quotes"].Status, "not probed yet")
}

func TestApp_RegisterMonitorAfterStart(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	require.NoError(t, app.Start(WithMetricsEnabled(false)))

	require.NoError(t, WithMonitor("late", degrade.ProberFunc(failingProber), degrade.WithFailureThreshold(0))(app))

	available, err := app.IsAvailable("late")
	require.NoError(t, err)
	require.False(t, available, "monitors registered after start are started immediately")

	_, started := app.monitorHandles.Load("late")
	require.True(t, started)
}

func TestApp_SubscribeAvailability(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)

	transitions, err := app.SubscribeAvailability("ui")
	require.NoError(t, err)

	_, err = app.SubscribeAvailability("ui")
	require.Error(t, err)

	err = app.Start(
		WithMetricsEnabled(false),
		WithMonitor("account-open", degrade.ProberFunc(failingProber), degrade.WithFailureThreshold(0), degrade.WithInterval(time.Hour)),
	)
	require.NoError(t, err)

	select {
	case tr := <-transitions:
		require.Equal(t, "account-open", tr.Name)
		require.Equal(t, degrade.StatusAvailable, tr.From)
		require.Equal(t, degrade.StatusDegraded, tr.To)
		require.False(t, tr.State.Available)
	case <-time.After(time.Second):
		t.Fatal("expected a transition")
	}

	app.UnsubscribeAvailability("ui")
	_, open := <-transitions
	require.False(t, open)
}
