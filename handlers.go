package availabletrade

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jacobbrewer1/uhttp"

	"github.com/engineering-resilient-systems-on-aws/AvailableTrade/degrade"
	"github.com/engineering-resilient-systems-on-aws/AvailableTrade/logging"
	"github.com/engineering-resilient-systems-on-aws/AvailableTrade/metrics"
	"github.com/engineering-resilient-systems-on-aws/AvailableTrade/version"
)

const contentTypeJSON = "application/json; charset=utf-8"

// monitorStatus is a monitor as served by the status API.
type monitorStatus struct {
	degrade.State
	Endpoint string `json:"endpoint,omitempty"`
}

// availabilityList is the body of the list endpoint.
type availabilityList struct {
	Available bool             `json:"available"`
	Monitors  []*monitorStatus `json:"monitors"`
}

func newMonitorStatus(m *degrade.Monitor) *monitorStatus {
	return &monitorStatus{
		State:    m.State(),
		Endpoint: m.Endpoint(),
	}
}

// WrapHandler wraps an http.HandlerFunc with the provided middlewares.
func WrapHandler(handler http.HandlerFunc, middlewares ...mux.MiddlewareFunc) http.Handler {
	var wrappedHandler http.Handler = handler
	for _, middleware := range middlewares {
		if middleware == nil {
			continue
		}
		wrappedHandler = middleware(wrappedHandler)
	}
	return wrappedHandler
}

// echoRequestID returns the request ID to the caller.
func echoRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := uhttp.RequestIDFromContext(r.Context()); reqID != "" {
			w.Header().Set(uhttp.HeaderRequestID, reqID)
		}
		next.ServeHTTP(w, r)
	})
}

// statusRouter builds the router of the availability status API. Request metrics are recorded when
// httpMetrics is not nil.
func (a *App) statusRouter(httpMetrics *metrics.HTTPMetrics) *mux.Router {
	var metricsMiddleware mux.MiddlewareFunc
	if httpMetrics != nil {
		metricsMiddleware = httpMetrics.Middleware()
	}

	// Listed innermost first.
	middlewares := []mux.MiddlewareFunc{
		echoRequestID,
		uhttp.GenerateOrCopyRequestIDMux(),
		metricsMiddleware,
	}

	// Routes stay on the root router so the default not found and method not allowed handlers apply.
	r := mux.NewRouter()
	r.Handle("/api/availability", WrapHandler(a.listAvailability, middlewares...)).Methods(http.MethodGet)
	r.Handle("/api/availability/{name}", WrapHandler(a.getAvailability, middlewares...)).Methods(http.MethodGet)
	r.Handle("/api/version", WrapHandler(a.getVersion, middlewares...)).Methods(http.MethodGet)
	return r
}

// listAvailability serves every monitor. The top level flag is false when any monitor is degraded.
func (a *App) listAvailability(w http.ResponseWriter, _ *http.Request) {
	resp := &availabilityList{
		Available: true,
		Monitors:  make([]*monitorStatus, 0),
	}

	for _, m := range a.Monitors() {
		status := newMonitorStatus(m)
		resp.Available = resp.Available && status.Available
		resp.Monitors = append(resp.Monitors, status)
	}

	w.Header().Set(uhttp.HeaderContentType, contentTypeJSON)
	uhttp.MustEncode(w, http.StatusOK, resp)
}

// getAvailability serves a single monitor.
func (a *App) getAvailability(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	m, err := a.Monitor(name)
	if errors.Is(err, ErrMonitorNotFound) {
		l := logging.LoggerFromRequest(a.l, r)
		l.Debug("availability requested for unknown monitor", slog.String(logging.KeyMonitor, name))

		httpErr := uhttp.NewHTTPError(http.StatusNotFound, err, fmt.Sprintf("monitor: %s", name))
		httpErr.SetRequestId(uhttp.RequestIDFromContext(r.Context()))
		w.Header().Set(uhttp.HeaderContentType, contentTypeJSON)
		uhttp.MustEncode(w, http.StatusNotFound, httpErr)
		return
	} else if err != nil {
		logging.LoggerFromRequest(a.l, r).Error("failed to load monitor",
			slog.String(logging.KeyMonitor, name),
			slog.Any(logging.KeyError, err),
		)
		uhttp.GenericErrorHandler(w, r, err)
		return
	}

	w.Header().Set(uhttp.HeaderContentType, contentTypeJSON)
	uhttp.MustEncode(w, http.StatusOK, newMonitorStatus(m))
}

// getVersion serves the build info of the running binary.
func (a *App) getVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set(uhttp.HeaderContentType, contentTypeJSON)
	uhttp.MustEncode(w, http.StatusOK, version.Get())
}
