package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AidingCollector exposes visibility-aiding Prometheus metrics.
type AidingCollector struct {
	gatherer prometheus.Gatherer

	PredictionDuration    prometheus.Histogram
	VisibleSatellites     prometheus.Gauge
	PropagationFailures   prometheus.Counter
	CandidatesPrunedTotal prometheus.Counter
}

// NewAidingCollector registers aiding metrics against the provided registerer.
func NewAidingCollector(reg prometheus.Registerer) (*AidingCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	predictHistogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "aiding_prediction_duration_seconds",
		Help:    "Duration of one visibility prediction over the tracked catalog.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	})
	predictHistogram, err := registerHistogram(reg, predictHistogram, "aiding_prediction_duration_seconds")
	if err != nil {
		return nil, err
	}

	visibleGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "aiding_visible_satellites",
		Help: "Satellites above the elevation mask at the last prediction.",
	})
	visibleGauge, err = registerGauge(reg, visibleGauge, "aiding_visible_satellites")
	if err != nil {
		return nil, err
	}

	failures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aiding_propagation_failures_total",
		Help: "Satellites whose orbit could not be propagated.",
	})
	failures, err = registerCounter(reg, failures, "aiding_propagation_failures_total")
	if err != nil {
		return nil, err
	}

	pruned := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aiding_candidates_pruned_total",
		Help: "Candidates removed from a search because they were predicted below the mask.",
	})
	pruned, err = registerCounter(reg, pruned, "aiding_candidates_pruned_total")
	if err != nil {
		return nil, err
	}

	return &AidingCollector{
		gatherer:              gatherer,
		PredictionDuration:    predictHistogram,
		VisibleSatellites:     visibleGauge,
		PropagationFailures:   failures,
		CandidatesPrunedTotal: pruned,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *AidingCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObservePrediction records one prediction pass.
func (c *AidingCollector) ObservePrediction(d time.Duration, visible int) {
	if c == nil {
		return
	}
	if c.PredictionDuration != nil {
		c.PredictionDuration.Observe(d.Seconds())
	}
	if c.VisibleSatellites != nil {
		c.VisibleSatellites.Set(float64(visible))
	}
}

// AddPropagationFailures increments the propagation failure counter.
func (c *AidingCollector) AddPropagationFailures(n int) {
	if c == nil || c.PropagationFailures == nil || n <= 0 {
		return
	}
	c.PropagationFailures.Add(float64(n))
}

// AddPruned counts candidates dropped by visibility aiding.
func (c *AidingCollector) AddPruned(n int) {
	if c == nil || c.CandidatesPrunedTotal == nil || n <= 0 {
		return
	}
	c.CandidatesPrunedTotal.Add(float64(n))
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
