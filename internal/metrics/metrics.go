// Package metrics exposes the Prometheus collectors of the link pipeline.
//
// All methods are safe to call on a nil *Metrics so components can be built
// without instrumentation (tests, the convert command).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	// MessagesHandled counts handled channel messages.
	// Labels: outcome (converted|unsupported|spam|no_links|error)
	MessagesHandled *prometheus.CounterVec

	// LinksProcessed counts dispatched URLs.
	// Labels: result (valid|invalid)
	LinksProcessed *prometheus.CounterVec

	// AgentParses counts agent parser invocations.
	// Labels: agent, result (ok|miss|panic)
	AgentParses *prometheus.CounterVec

	// NetworkLookups counts resolver calls.
	// Labels: kind (redirect|api), result (ok|fallback_ok|cache_hit|miss|error)
	NetworkLookups *prometheus.CounterVec

	// DispatchDuration measures ProcessAll latency in seconds.
	DispatchDuration prometheus.Histogram

	// TrackedUsers is the number of users with live rate-limit state.
	TrackedUsers prometheus.Gauge
}

// New creates the collectors on a dedicated registry, together with the
// standard Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		MessagesHandled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linkwrap_messages_handled_total",
				Help: "Channel messages handled, by outcome",
			},
			[]string{"outcome"},
		),
		LinksProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linkwrap_links_processed_total",
				Help: "URLs run through the dispatch engine, by result",
			},
			[]string{"result"},
		),
		AgentParses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linkwrap_agent_parses_total",
				Help: "Agent parser invocations, by agent and result",
			},
			[]string{"agent", "result"},
		),
		NetworkLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linkwrap_network_lookups_total",
				Help: "Redirect and API lookups, by kind and result",
			},
			[]string{"kind", "result"},
		),
		DispatchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "linkwrap_dispatch_duration_seconds",
				Help:    "Time spent resolving all URLs of one message",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
		),
		TrackedUsers: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "linkwrap_ratelimit_tracked_users",
				Help: "Users with live rate-limit state",
			},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveMessage(outcome string) {
	if m == nil {
		return
	}
	m.MessagesHandled.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveLinks(valid, invalid int) {
	if m == nil {
		return
	}
	m.LinksProcessed.WithLabelValues("valid").Add(float64(valid))
	m.LinksProcessed.WithLabelValues("invalid").Add(float64(invalid))
}

func (m *Metrics) ObserveAgent(agent, result string) {
	if m == nil {
		return
	}
	m.AgentParses.WithLabelValues(agent, result).Inc()
}

func (m *Metrics) ObserveLookup(kind, result string) {
	if m == nil {
		return
	}
	m.NetworkLookups.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) ObserveDispatch(seconds float64) {
	if m == nil {
		return
	}
	m.DispatchDuration.Observe(seconds)
}

func (m *Metrics) SetTrackedUsers(n int) {
	if m == nil {
		return
	}
	m.TrackedUsers.Set(float64(n))
}
