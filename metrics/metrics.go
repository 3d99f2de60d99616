package metrics

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPMetrics holds the request metrics for one HTTP server.
type HTTPMetrics struct {
	duration *prometheus.HistogramVec
	requests *prometheus.CounterVec
	inFlight prometheus.Gauge
}

// NewHTTPMetrics creates the request metrics for the named server and registers them with reg.
func NewHTTPMetrics(reg prometheus.Registerer, server string) (*HTTPMetrics, error) {
	labels := prometheus.Labels{"server": server}

	m := &HTTPMetrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "availabletrade_http_request_duration_seconds",
			Help:        "Duration of HTTP requests served.",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"code", "method"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "availabletrade_http_requests_total",
			Help:        "Total number of HTTP requests served.",
			ConstLabels: labels,
		}, []string{"code", "method"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "availabletrade_http_requests_in_flight",
			Help:        "Number of HTTP requests currently being served.",
			ConstLabels: labels,
		}),
	}

	for _, c := range []prometheus.Collector{m.duration, m.requests, m.inFlight} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Middleware instruments every request with the duration, count and in-flight metrics.
func (m *HTTPMetrics) Middleware() mux.MiddlewareFunc {
	duration := InstrumentDuration(m.duration)
	counter := InstrumentCounter(m.requests)

	return func(next http.Handler) http.Handler {
		return promhttp.InstrumentHandlerInFlight(m.inFlight, duration(counter(next)))
	}
}

// InstrumentDuration records the request duration into metric.
func InstrumentDuration(metric *prometheus.HistogramVec, options ...promhttp.Option) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return promhttp.InstrumentHandlerDuration(metric, next, options...)
	}
}

// InstrumentCounter counts requests into metric.
func InstrumentCounter(metric *prometheus.CounterVec, options ...promhttp.Option) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return promhttp.InstrumentHandlerCounter(metric, next, options...)
	}
}
