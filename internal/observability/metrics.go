package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signalsfoundry/gnss-acquisition/core"
)

// Candidate outcome label values.
const (
	OutcomeDetected    = "detected"
	OutcomeNotDetected = "not_detected"
	OutcomeDegenerate  = "degenerate"
	OutcomeError       = "error"
)

// Run outcome label values.
const (
	RunCompleted   = "completed"
	RunInterrupted = "interrupted"
	RunFailed      = "failed"
)

// AcquisitionCollector bundles Prometheus metrics for acquisition runs. It
// implements core.Observer so it can be installed directly on an Engine.
type AcquisitionCollector struct {
	gatherer prometheus.Gatherer

	Candidates         *prometheus.CounterVec
	CandidateDurations prometheus.Histogram
	PeakRatios         prometheus.Histogram
	InFlight           prometheus.Gauge
	Runs               *prometheus.CounterVec
	WindowSelections   *prometheus.CounterVec
}

var _ core.Observer = (*AcquisitionCollector)(nil)

// NewAcquisitionCollector registers acquisition metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewAcquisitionCollector(reg prometheus.Registerer) (*AcquisitionCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	candidates, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "acquisition_candidates_total",
		Help: "Evaluated candidate satellites, labeled by outcome.",
	}, []string{"outcome"}), "acquisition_candidates_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "acquisition_candidate_duration_seconds",
		Help:    "Time to search one candidate over every frequency bin.",
		Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}), "acquisition_candidate_duration_seconds")
	if err != nil {
		return nil, err
	}

	ratios, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "acquisition_peak_ratio",
		Help:    "Peak-to-second-peak ratio of evaluated candidates.",
		Buckets: []float64{1, 1.25, 1.5, 2, 2.5, 3, 5, 10, 25, 100},
	}), "acquisition_peak_ratio")
	if err != nil {
		return nil, err
	}

	inFlight, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "acquisition_candidates_in_flight",
		Help: "Candidates currently being searched.",
	}), "acquisition_candidates_in_flight")
	if err != nil {
		return nil, err
	}

	runs, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "acquisition_runs_total",
		Help: "Acquisition runs, labeled by outcome.",
	}, []string{"outcome"}), "acquisition_runs_total")
	if err != nil {
		return nil, err
	}

	windows, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "acquisition_window_selections_total",
		Help: "Frequency bins whose correlation row came from each quarter-period window.",
	}, []string{"window"}), "acquisition_window_selections_total")
	if err != nil {
		return nil, err
	}

	return &AcquisitionCollector{
		gatherer:           gatherer,
		Candidates:         candidates,
		CandidateDurations: durations,
		PeakRatios:         ratios,
		InFlight:           inFlight,
		Runs:               runs,
		WindowSelections:   windows,
	}, nil
}

// CandidateStarted implements core.Observer.
func (c *AcquisitionCollector) CandidateStarted(int) {
	if c == nil || c.InFlight == nil {
		return
	}
	c.InFlight.Inc()
}

// CandidateFinished implements core.Observer.
func (c *AcquisitionCollector) CandidateFinished(r core.CandidateReport) {
	if c == nil {
		return
	}
	if c.InFlight != nil {
		c.InFlight.Dec()
	}
	if c.Candidates != nil {
		c.Candidates.WithLabelValues(CandidateOutcome(r)).Inc()
	}
	if c.CandidateDurations != nil {
		c.CandidateDurations.Observe(r.Duration.Seconds())
	}
	if r.Err != nil {
		return
	}
	if c.PeakRatios != nil {
		c.PeakRatios.Observe(r.Result.PeakMetric)
	}
	if c.WindowSelections != nil {
		for w, n := range r.WindowSelections {
			if n > 0 {
				c.WindowSelections.WithLabelValues(strconv.Itoa(w)).Add(float64(n))
			}
		}
	}
}

// RunFinished counts a completed Engine.Acquire call by its returned error.
func (c *AcquisitionCollector) RunFinished(err error) {
	if c == nil || c.Runs == nil {
		return
	}
	c.Runs.WithLabelValues(RunOutcome(err)).Inc()
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *AcquisitionCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Handler exposes a ready-to-use /metrics handler.
func (c *AcquisitionCollector) Handler() http.Handler {
	gatherer := c.Gatherer()
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// CandidateOutcome maps a report to its outcome label.
func CandidateOutcome(r core.CandidateReport) string {
	switch {
	case r.Err == nil && r.Detected:
		return OutcomeDetected
	case r.Err == nil:
		return OutcomeNotDetected
	case errors.Is(r.Err, core.ErrNumericDegenerate):
		return OutcomeDegenerate
	default:
		return OutcomeError
	}
}

// RunOutcome maps an Acquire error to its run outcome label.
func RunOutcome(err error) string {
	switch {
	case err == nil:
		return RunCompleted
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return RunInterrupted
	default:
		return RunFailed
	}
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

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
