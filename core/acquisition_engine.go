package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/signalsfoundry/gnss-acquisition/internal/logging"
	"github.com/signalsfoundry/gnss-acquisition/model"
)

const tracerName = "github.com/signalsfoundry/gnss-acquisition/core"

// ReplicaProvider supplies the sampled replica code for a satellite. The
// returned slice must hold exactly cfg.SamplesPerCode() samples.
type ReplicaProvider interface {
	Replica(id int, cfg model.AcquisitionConfig) ([]float64, error)
}

// ReplicaFunc adapts a function to ReplicaProvider.
type ReplicaFunc func(id int, cfg model.AcquisitionConfig) ([]float64, error)

// Replica implements ReplicaProvider.
func (f ReplicaFunc) Replica(id int, cfg model.AcquisitionConfig) ([]float64, error) {
	return f(id, cfg)
}

// Option customises an Engine.
type Option func(*Engine)

// WithWorkers evaluates up to n candidates concurrently. Values below 2 keep
// the sequential order.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n < 1 {
			n = 1
		}
		e.workers = n
	}
}

// WithObserver installs a progress observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// Engine runs the two-dimensional code phase and carrier search for a list of
// candidate satellites over one snapshot of samples.
type Engine struct {
	cfg      model.AcquisitionConfig
	grid     FrequencyGrid
	replicas ReplicaProvider

	workers  int
	observer Observer
	log      logging.Logger
	tracer   trace.Tracer
}

// NewEngine validates cfg and prepares the shared frequency grid.
func NewEngine(cfg model.AcquisitionConfig, replicas ReplicaProvider, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if replicas == nil {
		return nil, fmt.Errorf("%w: replica provider is required", ErrInvalidConfiguration)
	}
	grid, err := NewFrequencyGrid(cfg)
	if err != nil {
		return nil, err
	}

	cfg.Candidates = append([]int(nil), cfg.Candidates...)
	e := &Engine{
		cfg:      cfg,
		grid:     grid,
		replicas: replicas,
		workers:  1,
		observer: NoopObserver{},
		log:      logging.Noop(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the validated configuration.
func (e *Engine) Config() model.AcquisitionConfig { return e.cfg }

// Grid returns the carrier search grid.
func (e *Engine) Grid() FrequencyGrid { return e.grid }

// Acquire evaluates every candidate against samples. Insufficient input fails
// before any candidate is evaluated. Candidate-local failures are logged and
// leave that candidate at its default result. When ctx is cancelled no further
// candidates are started and the partial results are returned with ctx.Err().
func (e *Engine) Acquire(ctx context.Context, samples []complex128) (*model.ResultSet, error) {
	ctx, span := e.tracer.Start(ctx, "acquire", trace.WithAttributes(
		attribute.Int("gnss.candidates", len(e.cfg.Candidates)),
		attribute.Int("gnss.frequency_bins", e.grid.Bins),
		attribute.Int("gnss.samples_per_code", e.cfg.SamplesPerCode()),
	))
	defer span.End()

	n := e.cfg.SamplesPerCode()
	windows, err := ExtractWindows(samples, n)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	e.log.Debug(ctx, "acquisition run started",
		logging.Int("candidates", len(e.cfg.Candidates)),
		logging.Int("frequency_bins", e.grid.Bins),
		logging.Int("samples_per_code", n),
		logging.Int("workers", e.workers),
	)

	cands := e.cfg.Candidates
	results := make([]model.AcquisitionResult, len(cands))
	evaluated := make([]bool, len(cands))

	if e.workers <= 1 || len(cands) <= 1 {
		corr := NewCorrelator(n)
		for i, id := range cands {
			if ctx.Err() != nil {
				break
			}
			results[i] = e.evaluate(ctx, corr, id, windows).Result
			evaluated[i] = true
		}
	} else {
		e.runParallel(ctx, windows, results, evaluated)
	}

	set := model.NewResultSet(e.cfg.Threshold, len(cands))
	detected := 0
	for i, id := range cands {
		if !evaluated[i] {
			continue
		}
		set.Set(id, results[i])
		if results[i].Detected(e.cfg.Threshold) {
			detected++
		}
	}
	span.SetAttributes(attribute.Int("gnss.detected", detected))

	if err := ctx.Err(); err != nil {
		e.log.Warn(ctx, "acquisition run interrupted",
			logging.Int("evaluated", set.Len()),
			logging.Err(err),
		)
		span.SetStatus(codes.Error, err.Error())
		return set, err
	}
	e.log.Debug(ctx, "acquisition run finished", logging.Int("detected", detected))
	return set, nil
}

// runParallel fans candidates out to e.workers goroutines. Each worker owns a
// Correlator; results land in disjoint slots of the pre-allocated slices.
func (e *Engine) runParallel(ctx context.Context, windows [WindowCount]Window, results []model.AcquisitionResult, evaluated []bool) {
	jobs := make(chan int)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		for i := range e.cfg.Candidates {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	workers := min(e.workers, len(e.cfg.Candidates))
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			corr := NewCorrelator(e.cfg.SamplesPerCode())
			for i := range jobs {
				if gctx.Err() != nil {
					continue
				}
				results[i] = e.evaluate(gctx, corr, e.cfg.Candidates[i], windows).Result
				evaluated[i] = true
			}
			return nil
		})
	}
	// Only the producer can fail, and only with the context error that the
	// caller inspects directly.
	_ = g.Wait()
}

// AcquireSatellite evaluates a single candidate against pre-extracted windows.
// It is a pure function of its inputs. Candidate-local failures are returned
// as a *CandidateError together with the default result.
func (e *Engine) AcquireSatellite(ctx context.Context, id int, windows [WindowCount]Window) (model.AcquisitionResult, error) {
	report := e.evaluate(ctx, NewCorrelator(e.cfg.SamplesPerCode()), id, windows)
	return report.Result, report.Err
}

func (e *Engine) evaluate(ctx context.Context, corr *Correlator, id int, windows [WindowCount]Window) CandidateReport {
	start := time.Now()
	e.observer.CandidateStarted(id)

	ctx, span := e.tracer.Start(ctx, "acquire.candidate", trace.WithAttributes(attribute.Int("gnss.prn", id)))
	defer span.End()

	report := e.search(corr, id, windows)
	report.Duration = time.Since(start)

	if report.Err != nil {
		report.Result = model.AcquisitionResult{}
		report.Detected = false
		span.RecordError(report.Err)
		span.SetStatus(codes.Error, report.Err.Error())
		e.log.Warn(ctx, "candidate treated as not detected",
			logging.Int("prn", id),
			logging.Err(report.Err),
		)
	} else {
		span.SetAttributes(
			attribute.Bool("gnss.detected", report.Detected),
			attribute.Float64("gnss.peak_ratio", report.Result.PeakMetric),
		)
		e.log.Debug(ctx, "candidate evaluated",
			logging.Int("prn", id),
			logging.Bool("detected", report.Detected),
			logging.Float64("peak_ratio", report.Result.PeakMetric),
			logging.Int("peak_bin", report.Peak.Bin),
			logging.Int("peak_column", report.Peak.CodePhase),
		)
	}

	e.observer.CandidateFinished(report)
	return report
}

func (e *Engine) search(corr *Correlator, id int, windows [WindowCount]Window) CandidateReport {
	report := CandidateReport{ID: id}
	fail := func(err error) CandidateReport {
		report.Err = &CandidateError{ID: id, Err: err}
		return report
	}

	code, err := e.replicas.Replica(id, e.cfg)
	if err != nil {
		if !errors.Is(err, ErrReplicaUnavailable) {
			err = fmt.Errorf("%w: %w", ErrReplicaUnavailable, err)
		}
		return fail(err)
	}
	if err := corr.PrepareReplica(code); err != nil {
		return fail(err)
	}

	surface, chosen, err := corr.Surface(e.grid, windows, e.cfg.SamplingFreqHz)
	if err != nil {
		return fail(err)
	}
	for _, w := range chosen {
		report.WindowSelections[w]++
	}

	peak, err := FindPeak(surface, e.cfg.SamplesPerChip())
	if err != nil {
		return fail(err)
	}

	report.Peak = peak
	report.Result = Decide(peak, e.grid, e.cfg)
	report.Detected = report.Result.Detected(e.cfg.Threshold)
	report.CN0 = peak.CN0(e.cfg.CodePeriodSec())
	return report
}
