package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the video output service.
type Metrics struct {
	registry          *prometheus.Registry
	requestsTotal     prometheus.Counter
	errorsTotal       prometheus.Counter
	operationsTotal   *prometheus.CounterVec
	halErrorsTotal    prometheus.Counter
	settingsReloads   *prometheus.CounterVec
	connectedSinks    prometheus.Gauge
	statusSubscribers prometheus.Gauge
}

// New creates and registers Prometheus metrics for the service.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "videooutput_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "videooutput_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	operationsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "videooutput_operations_total",
		Help: "Service operations by method and result",
	}, []string{"method", "result"})
	halErrorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "videooutput_hal_errors_total",
		Help: "Operations that failed in the video driver",
	})
	settingsReloads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "videooutput_settings_reloads_total",
		Help: "Aspect ratio settings reloads by result",
	}, []string{"result"})
	connectedSinks := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "videooutput_connected_sinks",
		Help: "Number of connected sinks",
	})
	statusSubscribers := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "videooutput_status_subscribers",
		Help: "Number of open status subscriptions",
	})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		operationsTotal,
		halErrorsTotal,
		settingsReloads,
		connectedSinks,
		statusSubscribers,
	)

	return &Metrics{
		registry:          registry,
		requestsTotal:     requestsTotal,
		errorsTotal:       errorsTotal,
		operationsTotal:   operationsTotal,
		halErrorsTotal:    halErrorsTotal,
		settingsReloads:   settingsReloads,
		connectedSinks:    connectedSinks,
		statusSubscribers: statusSubscribers,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// ObserveOperation counts one call of method ending with result ("ok" or an
// error code).
func (m *Metrics) ObserveOperation(method, result string) {
	m.operationsTotal.WithLabelValues(method, result).Inc()
}

// IncHALErrors increments the driver failure counter.
func (m *Metrics) IncHALErrors() {
	m.halErrorsTotal.Inc()
}

// ObserveSettingsReload counts a settings reload.
func (m *Metrics) ObserveSettingsReload(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.settingsReloads.WithLabelValues(result).Inc()
}

// SetConnectedSinks sets the connected sinks gauge.
func (m *Metrics) SetConnectedSinks(n int) {
	m.connectedSinks.Set(float64(n))
}

// SetStatusSubscribers sets the subscribers gauge.
func (m *Metrics) SetStatusSubscribers(n int) {
	m.statusSubscribers.Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
