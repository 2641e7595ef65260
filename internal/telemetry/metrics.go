// Package telemetry provides observability primitives for the arcscout client.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors for the client.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	InFlight         prometheus.Gauge
	CacheFallbacks   *prometheus.CounterVec
	CacheMisses      *prometheus.CounterVec
	CacheEntries     prometheus.Gauge
	BreakerRejects   *prometheus.CounterVec
	Computations     *prometheus.CounterVec
	StaleDiscards    *prometheus.CounterVec
	ControllerIssued *prometheus.CounterVec
}

// Request outcome label values.
const (
	OutcomeOK       = "ok"
	OutcomeFallback = "fallback"
	OutcomeFailed   = "failed"
)

// NewMetrics creates and registers all metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arcscout",
			Name:      "requests_total",
			Help:      "Total API requests by endpoint and outcome.",
		}, []string{"method", "endpoint", "outcome"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:                       "arcscout",
			Name:                            "request_duration_seconds",
			Help:                            "API round-trip duration in seconds.",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 0,
		}, []string{"method", "endpoint"}),

		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "arcscout",
			Name:      "requests_in_flight",
			Help:      "Number of API requests currently awaiting a response.",
		}),

		CacheFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arcscout",
			Name:      "cache_fallbacks_total",
			Help:      "Failed reads answered from the session cache.",
		}, []string{"endpoint"}),

		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arcscout",
			Name:      "cache_misses_total",
			Help:      "Failed reads with no cached payload to fall back to.",
		}, []string{"endpoint"}),

		CacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "arcscout",
			Name:      "cache_entries",
			Help:      "Signatures held by the session cache.",
		}),

		BreakerRejects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arcscout",
			Name:      "breaker_rejects_total",
			Help:      "Reads that skipped the network because the endpoint breaker was open.",
		}, []string{"endpoint"}),

		Computations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arcscout",
			Name:      "loadout_calculations_total",
			Help:      "Loadout calculations by outcome.",
		}, []string{"outcome"}),

		StaleDiscards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arcscout",
			Name:      "stale_responses_discarded_total",
			Help:      "Responses dropped because a newer request had been issued.",
		}, []string{"controller"}),

		ControllerIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arcscout",
			Name:      "controller_requests_issued_total",
			Help:      "Requests issued by list and loadout controllers.",
		}, []string{"controller"}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.InFlight,
		m.CacheFallbacks,
		m.CacheMisses,
		m.CacheEntries,
		m.BreakerRejects,
		m.Computations,
		m.StaleDiscards,
		m.ControllerIssued,
	)

	return m
}
