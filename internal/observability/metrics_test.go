package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"

	"github.com/signalsfoundry/gnss-acquisition/core"
	"github.com/signalsfoundry/gnss-acquisition/model"
)

func TestCollectorRecordsCandidateOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewAcquisitionCollector(reg)
	if err != nil {
		t.Fatalf("NewAcquisitionCollector: %v", err)
	}

	reports := []core.CandidateReport{
		{ID: 1, Detected: true, Result: model.AcquisitionResult{PeakMetric: 12}, WindowSelections: [core.WindowCount]int{20, 5, 3, 1}, Duration: 4 * time.Millisecond},
		{ID: 2, Result: model.AcquisitionResult{PeakMetric: 1.3}, WindowSelections: [core.WindowCount]int{0, 0, 0, 29}, Duration: 3 * time.Millisecond},
		{ID: 3, Err: &core.CandidateError{ID: 3, Err: core.ErrNumericDegenerate}},
		{ID: 4, Err: &core.CandidateError{ID: 4, Err: core.ErrReplicaUnavailable}},
	}
	for _, r := range reports {
		collector.CandidateStarted(r.ID)
		collector.CandidateFinished(r)
	}

	for outcome, want := range map[string]float64{
		OutcomeDetected:    1,
		OutcomeNotDetected: 1,
		OutcomeDegenerate:  1,
		OutcomeError:       1,
	} {
		if got := testutil.ToFloat64(collector.Candidates.WithLabelValues(outcome)); got != want {
			t.Fatalf("acquisition_candidates_total{outcome=%q} = %v, want %v", outcome, got, want)
		}
	}
	if got := testutil.ToFloat64(collector.InFlight); got != 0 {
		t.Fatalf("in-flight gauge = %v, want 0", got)
	}
	if got := testutil.ToFloat64(collector.WindowSelections.WithLabelValues("3")); got != 30 {
		t.Fatalf("window 3 selections = %v, want 30", got)
	}
	if got := testutil.ToFloat64(collector.WindowSelections.WithLabelValues("0")); got != 20 {
		t.Fatalf("window 0 selections = %v, want 20", got)
	}

	if count := histogramSampleCount(t, reg, "acquisition_peak_ratio", nil); count != 2 {
		t.Fatalf("acquisition_peak_ratio sample_count = %d, want 2", count)
	}
	if count := histogramSampleCount(t, reg, "acquisition_candidate_duration_seconds", nil); count != 4 {
		t.Fatalf("acquisition_candidate_duration_seconds sample_count = %d, want 4", count)
	}
}

func TestRunOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewAcquisitionCollector(reg)
	if err != nil {
		t.Fatalf("NewAcquisitionCollector: %v", err)
	}
	collector.RunFinished(nil)
	collector.RunFinished(fmt.Errorf("run: %w", context.Canceled))
	collector.RunFinished(core.ErrInsufficientSamples)
	collector.RunFinished(nil)

	for outcome, want := range map[string]float64{RunCompleted: 2, RunInterrupted: 1, RunFailed: 1} {
		if got := testutil.ToFloat64(collector.Runs.WithLabelValues(outcome)); got != want {
			t.Fatalf("acquisition_runs_total{outcome=%q} = %v, want %v", outcome, got, want)
		}
	}
}

func TestCollectorReusesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewAcquisitionCollector(reg)
	if err != nil {
		t.Fatalf("first NewAcquisitionCollector: %v", err)
	}
	second, err := NewAcquisitionCollector(reg)
	if err != nil {
		t.Fatalf("second NewAcquisitionCollector: %v", err)
	}
	first.RunFinished(nil)
	if got := testutil.ToFloat64(second.Runs.WithLabelValues(RunCompleted)); got != 1 {
		t.Fatalf("second collector should share counters, got %v", got)
	}

	clash := prometheus.NewRegistry()
	clash.MustRegister(prometheus.NewGauge(prometheus.GaugeOpts{Name: "acquisition_peak_ratio", Help: "wrong type"}))
	if _, err := NewAcquisitionCollector(clash); err == nil {
		t.Fatalf("expected incompatible registration error")
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *AcquisitionCollector
	c.CandidateStarted(1)
	c.CandidateFinished(core.CandidateReport{ID: 1})
	c.RunFinished(errors.New("x"))

	var a *AidingCollector
	a.ObservePrediction(time.Millisecond, 3)
	a.AddPropagationFailures(1)
	a.AddPruned(2)
}

func TestEngineDrivesCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewAcquisitionCollector(reg)
	if err != nil {
		t.Fatalf("NewAcquisitionCollector: %v", err)
	}

	cfg := model.AcquisitionConfig{
		SamplingFreqHz:        1024,
		ChipRateHz:            256,
		CodeLengthChips:       64,
		CoherentIntegrationMs: 250,
		SearchBandHz:          8,
		Threshold:             2.5,
		Candidates:            []int{1, 2},
	}
	failing := core.ReplicaFunc(func(id int, c model.AcquisitionConfig) ([]float64, error) {
		if id == 2 {
			return nil, errors.New("no code for 2")
		}
		code := make([]float64, c.SamplesPerCode())
		for i := range code {
			code[i] = float64(1 - 2*(i/4%2))
		}
		return code, nil
	})
	eng, err := core.NewEngine(cfg, failing, core.WithObserver(collector))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	_, err = eng.Acquire(context.Background(), make([]complex128, cfg.MinSampleCount()))
	collector.RunFinished(err)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	if got := testutil.ToFloat64(collector.Candidates.WithLabelValues(OutcomeError)); got != 1 {
		t.Fatalf("error outcomes = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(collector.Candidates); got < 2 {
		t.Fatalf("expected at least two outcome series, got %d", got)
	}
	if got := testutil.ToFloat64(collector.Runs.WithLabelValues(RunCompleted)); got != 1 {
		t.Fatalf("completed runs = %v, want 1", got)
	}
}

func TestMetricsHandlerExposesAcquisitionMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewAcquisitionCollector(reg)
	if err != nil {
		t.Fatalf("NewAcquisitionCollector: %v", err)
	}
	aiding, err := NewAidingCollector(reg)
	if err != nil {
		t.Fatalf("NewAidingCollector: %v", err)
	}
	collector.CandidateStarted(5)
	collector.CandidateFinished(core.CandidateReport{ID: 5, Detected: true, Result: model.AcquisitionResult{PeakMetric: 7}})
	collector.RunFinished(nil)
	aiding.ObservePrediction(2*time.Millisecond, 9)
	aiding.AddPruned(4)
	aiding.AddPropagationFailures(1)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"acquisition_candidates_total",
		"acquisition_candidate_duration_seconds",
		"acquisition_peak_ratio",
		"acquisition_runs_total",
		"aiding_prediction_duration_seconds",
		"aiding_visible_satellites 9",
		"aiding_candidates_pruned_total 4",
		"aiding_propagation_failures_total 1",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output", metric)
		}
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
