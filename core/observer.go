package core

import (
	"context"
	"time"

	"github.com/signalsfoundry/gnss-acquisition/internal/logging"
	"github.com/signalsfoundry/gnss-acquisition/model"
)

// CandidateReport summarises one candidate evaluation for observers.
type CandidateReport struct {
	ID       int
	Result   model.AcquisitionResult
	Detected bool
	Peak     Peak
	CN0      float64

	// WindowSelections counts how many bins each window won.
	WindowSelections [WindowCount]int

	Duration time.Duration
	Err      error
}

// Observer receives progress notifications from the engine. Calls for a single
// candidate are ordered; with several workers, calls for different candidates
// may arrive concurrently.
type Observer interface {
	CandidateStarted(id int)
	CandidateFinished(report CandidateReport)
}

// NoopObserver ignores every notification.
type NoopObserver struct{}

func (NoopObserver) CandidateStarted(int)              {}
func (NoopObserver) CandidateFinished(CandidateReport) {}

// MultiObserver fans notifications out to every non-nil observer in order.
type MultiObserver []Observer

func (m MultiObserver) CandidateStarted(id int) {
	for _, o := range m {
		if o != nil {
			o.CandidateStarted(id)
		}
	}
}

func (m MultiObserver) CandidateFinished(r CandidateReport) {
	for _, o := range m {
		if o != nil {
			o.CandidateFinished(r)
		}
	}
}

// LoggingObserver writes one structured line per finished candidate.
type LoggingObserver struct {
	Log logging.Logger
}

func (o LoggingObserver) CandidateStarted(id int) {
	if o.Log == nil {
		return
	}
	o.Log.Debug(context.Background(), "candidate started", logging.Int("prn", id))
}

func (o LoggingObserver) CandidateFinished(r CandidateReport) {
	if o.Log == nil {
		return
	}
	fields := []logging.Field{
		logging.Int("prn", r.ID),
		logging.Bool("detected", r.Detected),
		logging.Float64("peak_ratio", r.Result.PeakMetric),
		logging.Duration("elapsed", r.Duration),
	}
	if r.Detected {
		fields = append(fields,
			logging.Int("code_phase", r.Result.CodePhase),
			logging.Float64("carrier_hz", r.Result.CarrierFrequency),
			logging.Float64("cn0_dbhz", r.CN0),
		)
	}
	if r.Err != nil {
		o.Log.Warn(context.Background(), "candidate skipped", append(fields, logging.Err(r.Err))...)
		return
	}
	o.Log.Info(context.Background(), "candidate evaluated", fields...)
}
