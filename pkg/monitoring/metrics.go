// Package monitoring exposes server health over Prometheus: event
// throughput, object populations, binding and mirror activity.
package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can run many instances
// without collisions.
type Metrics struct {
	registry *prometheus.Registry

	eventsProcessed prometheus.Counter
	parameterCount  prometheus.Gauge
	conditionCount  prometheus.Gauge
	spectrumCount   prometheus.Gauge
	boundSlots      prometheus.Gauge
	mirrorClients   prometheus.Gauge
	traceClients    prometheus.Gauge
}

// New creates and registers the server metric set.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		eventsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "spectrum_events_processed_total",
			Help: "Decoded events dispatched through the histogram engine",
		}),
		parameterCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "spectrum_parameters",
			Help: "Registered event parameters",
		}),
		conditionCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "spectrum_conditions",
			Help: "Defined conditions",
		}),
		spectrumCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "spectrum_spectra",
			Help: "Defined spectra",
		}),
		boundSlots: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "spectrum_bound_slots",
			Help: "Spectra bound into display shared memory",
		}),
		mirrorClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "spectrum_mirror_clients",
			Help: "Connected mirror clients",
		}),
		traceClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "spectrum_trace_clients",
			Help: "Registered trace clients",
		}),
	}
	m.registry.MustRegister(
		m.eventsProcessed,
		m.parameterCount,
		m.conditionCount,
		m.spectrumCount,
		m.boundSlots,
		m.mirrorClients,
		m.traceClients,
	)
	return m
}

// EventsProcessed implements the engine's Recorder interface.
func (m *Metrics) EventsProcessed(n int) {
	m.eventsProcessed.Add(float64(n))
}

// Population implements the engine's Recorder interface.
func (m *Metrics) Population(params, conds, specs int) {
	m.parameterCount.Set(float64(params))
	m.conditionCount.Set(float64(conds))
	m.spectrumCount.Set(float64(specs))
}

// SetBoundSlots records the bound-slot count after a binder pass.
func (m *Metrics) SetBoundSlots(n int) {
	m.boundSlots.Set(float64(n))
}

// MirrorConnected / MirrorDisconnected track mirror client churn.
func (m *Metrics) MirrorConnected()    { m.mirrorClients.Inc() }
func (m *Metrics) MirrorDisconnected() { m.mirrorClients.Dec() }

// SetTraceClients records the trace client count.
func (m *Metrics) SetTraceClients(n int) {
	m.traceClients.Set(float64(n))
}

// Handler returns the exposition endpoint for this metric set.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve starts the exposition endpoint on addr. It returns the server
// so the caller can shut it down.
func (m *Metrics) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		_ = srv.ListenAndServe()
	}()
	return srv
}
