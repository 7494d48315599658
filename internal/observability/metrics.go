package observability

import (
	"fmt"

	"github.com/benmeehan/fleet-locator/pkg/location"
	"github.com/prometheus/client_golang/prometheus"
)

// ResolverMetrics bundles Prometheus metrics for location resolution.
type ResolverMetrics struct {
	Resolutions *prometheus.CounterVec
	Candidates  prometheus.Histogram
	Ingested    *prometheus.CounterVec
}

// NewResolverMetrics registers resolver metrics against reg, defaulting to
// the global Prometheus registry when nil.
func NewResolverMetrics(reg prometheus.Registerer) (*ResolverMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	resolutions, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "resolutions_total",
		Help: "Total number of client location resolutions, labeled by winning source category.",
	}, []string{"source"}), "resolutions_total")
	if err != nil {
		return nil, err
	}

	candidates, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "resolution_candidates",
		Help:    "Number of valid device candidates seen per resolution.",
		Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
	}), "resolution_candidates")
	if err != nil {
		return nil, err
	}

	ingested, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "telemetry_messages_total",
		Help: "Telemetry messages received, labeled by outcome.",
	}, []string{"outcome"}), "telemetry_messages_total")
	if err != nil {
		return nil, err
	}

	return &ResolverMetrics{
		Resolutions: resolutions,
		Candidates:  candidates,
		Ingested:    ingested,
	}, nil
}

// ObserveResolution records one resolver result. Safe on a nil receiver.
func (m *ResolverMetrics) ObserveResolution(r location.Resolved) {
	if m == nil {
		return
	}
	m.Resolutions.WithLabelValues(r.Source.String()).Inc()
	m.Candidates.Observe(float64(r.Candidates))
}

// ObserveIngest records the outcome of one telemetry message. Safe on a nil receiver.
func (m *ResolverMetrics) ObserveIngest(outcome string) {
	if m == nil {
		return
	}
	m.Ingested.WithLabelValues(outcome).Inc()
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}
