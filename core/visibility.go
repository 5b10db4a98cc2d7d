package core

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/signalsfoundry/gnss-acquisition/kb"
	"github.com/signalsfoundry/gnss-acquisition/model"
)

// Prediction is the geometry of one satellite as seen from a receiver.
type Prediction struct {
	PRN          int     `json:"prn" yaml:"prn"`
	ElevationDeg float64 `json:"elevation_deg" yaml:"elevation_deg"`
	RangeKm      float64 `json:"range_km" yaml:"range_km"`
	RangeRateMps float64 `json:"range_rate_mps" yaml:"range_rate_mps"`
	DopplerHz    float64 `json:"doppler_hz" yaml:"doppler_hz"`
}

// VisibilityPredictor tracks catalog satellites with orbits and predicts
// which are above a receiver's elevation mask.
type VisibilityPredictor struct {
	mu     sync.RWMutex
	models map[int]MotionModel

	unsubscribe func()
}

// NewVisibilityPredictor builds SGP4 models for every catalog entry with a
// TLE and follows later catalog changes. A nil catalog yields an empty
// predictor populated through Track.
func NewVisibilityPredictor(cat *kb.Catalog) (*VisibilityPredictor, error) {
	vp := &VisibilityPredictor{models: make(map[int]MotionModel)}
	if cat == nil {
		return vp, nil
	}

	var errs []error
	for _, s := range cat.ListSatellites() {
		if err := vp.trackDefinition(s); err != nil {
			errs = append(errs, err)
		}
	}
	vp.unsubscribe = cat.Subscribe(func(e kb.Event) {
		if e.Type == kb.EventSatelliteRemoved {
			vp.Untrack(e.Satellite.PRN)
			return
		}
		// A definition whose new TLE fails to parse stops being tracked.
		if err := vp.trackDefinition(e.Satellite); err != nil {
			vp.Untrack(e.Satellite.PRN)
		}
	})
	return vp, errors.Join(errs...)
}

// Close stops following the catalog.
func (vp *VisibilityPredictor) Close() {
	if vp.unsubscribe != nil {
		vp.unsubscribe()
	}
}

func (vp *VisibilityPredictor) trackDefinition(s model.SatelliteDefinition) error {
	if !s.HasOrbit() {
		vp.Untrack(s.PRN)
		return nil
	}
	m, err := NewOrbitalModelFromTLE(s.TLELine1, s.TLELine2)
	if err != nil {
		return fmt.Errorf("PRN %d: %w", s.PRN, err)
	}
	vp.Track(s.PRN, m)
	return nil
}

// Track sets the motion model used for prn.
func (vp *VisibilityPredictor) Track(prn int, m MotionModel) {
	vp.mu.Lock()
	defer vp.mu.Unlock()
	vp.models[prn] = m
}

// Untrack forgets prn.
func (vp *VisibilityPredictor) Untrack(prn int) {
	vp.mu.Lock()
	defer vp.mu.Unlock()
	delete(vp.models, prn)
}

// Tracked returns the PRNs with a motion model, ascending.
func (vp *VisibilityPredictor) Tracked() []int {
	vp.mu.RLock()
	defer vp.mu.RUnlock()
	out := make([]int, 0, len(vp.models))
	for prn := range vp.models {
		out = append(out, prn)
	}
	slices.Sort(out)
	return out
}

// Predict returns the geometry of prn at t.
func (vp *VisibilityPredictor) Predict(prn int, t time.Time, receiver model.GeodeticPosition) (Prediction, error) {
	m, ok := vp.model(prn)
	if !ok {
		return Prediction{}, fmt.Errorf("PRN %d is not tracked", prn)
	}
	return predict(prn, m, t, receiver)
}

func (vp *VisibilityPredictor) model(prn int) (MotionModel, bool) {
	vp.mu.RLock()
	defer vp.mu.RUnlock()
	m, ok := vp.models[prn]
	return m, ok
}

func predict(prn int, m MotionModel, t time.Time, receiver model.GeodeticPosition) (Prediction, error) {
	state, err := m.State(t)
	if err != nil {
		return Prediction{}, fmt.Errorf("PRN %d: %w", prn, err)
	}
	rx := GeodeticToECEF(receiver)
	rr := RangeRate(rx, state)
	return Prediction{
		PRN:          prn,
		ElevationDeg: ElevationDegrees(receiver, state.Position),
		RangeKm:      state.Position.DistanceTo(rx),
		RangeRateMps: rr * 1000,
		DopplerHz:    DopplerHz(rr),
	}, nil
}

// Visible returns predictions for tracked satellites at or above maskDeg,
// ordered by PRN. Satellites that fail to propagate are reported in the
// joined error and left out of the result.
func (vp *VisibilityPredictor) Visible(t time.Time, receiver model.GeodeticPosition, maskDeg float64) ([]Prediction, error) {
	var (
		out  []Prediction
		errs []error
	)
	for _, prn := range vp.Tracked() {
		p, err := vp.Predict(prn, t, receiver)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if p.ElevationDeg >= maskDeg {
			out = append(out, p)
		}
	}
	return out, errors.Join(errs...)
}

// CandidateSelection splits a candidate list by predicted visibility.
type CandidateSelection struct {
	Kept   []int // to search, in candidate order
	Above  []int // predicted at or above the mask; also in Kept
	Pruned []int // predicted below the mask
	Failed []int // tracked but not propagated; also in Kept
}

// CandidatesAbove narrows a candidate list to the PRNs predicted at or above
// maskDeg. Candidates without a motion model, or whose orbit fails to
// propagate, are kept since nothing is known about them. Propagation
// failures are listed in Failed and reported in the joined error.
func (vp *VisibilityPredictor) CandidatesAbove(candidates []int, t time.Time, receiver model.GeodeticPosition, maskDeg float64) (CandidateSelection, error) {
	sel := CandidateSelection{Kept: make([]int, 0, len(candidates))}
	var errs []error
	for _, id := range candidates {
		m, ok := vp.model(id)
		if !ok {
			sel.Kept = append(sel.Kept, id)
			continue
		}
		p, err := predict(id, m, t, receiver)
		switch {
		case err != nil:
			errs = append(errs, err)
			sel.Failed = append(sel.Failed, id)
			sel.Kept = append(sel.Kept, id)
		case p.ElevationDeg >= maskDeg:
			sel.Above = append(sel.Above, id)
			sel.Kept = append(sel.Kept, id)
		default:
			sel.Pruned = append(sel.Pruned, id)
		}
	}
	return sel, errors.Join(errs...)
}
