package core

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/signalsfoundry/gnss-acquisition/model"
)

// Peak describes the strongest correlation cell and the competing peak in the
// same frequency row.
type Peak struct {
	Bin        int
	CodePhase  int
	Value      float64
	SecondPeak float64
	Ratio      float64

	// MeanOutside is the mean row power outside the exclusion zone.
	MeanOutside float64
}

// CN0 estimates carrier-to-noise density in dB-Hz from the peak against the
// mean floor, for a coherent period of integrationSec. It is diagnostic only.
func (p Peak) CN0(integrationSec float64) float64 {
	if p.MeanOutside <= 0 || p.Value <= 0 || integrationSec <= 0 {
		return 0
	}
	return 10 * math.Log10(p.Value/p.MeanOutside/integrationSec)
}

// ExclusionZone is the closed circular interval of code phases within one
// chip of a peak column.
type ExclusionZone struct {
	Center  int
	Radius  int
	Samples int
}

// Contains reports whether col lies within Radius of Center on the circular
// code phase axis.
func (z ExclusionZone) Contains(col int) bool {
	d := col - z.Center
	if d < 0 {
		d = -d
	}
	if wrap := z.Samples - d; wrap < d {
		d = wrap
	}
	return d <= z.Radius
}

// FindPeak locates the global maximum of the surface (first occurrence in
// row-major order), then the largest value in the same row outside a
// circular ±samplesPerChip zone around it. A positive peak over a zero (or
// vanishing) second peak gets the ratio math.MaxFloat64, so it still exceeds
// any finite threshold and stays encodable.
func FindPeak(s *Surface, samplesPerChip int) (Peak, error) {
	if s == nil || s.Bins == 0 || s.Samples == 0 {
		return Peak{}, fmt.Errorf("%w: empty surface", ErrNumericDegenerate)
	}
	if 2*samplesPerChip+1 >= s.Samples {
		return Peak{}, fmt.Errorf("%w: exclusion zone covers the whole code period", ErrNumericDegenerate)
	}

	idx := floats.MaxIdx(s.Power)
	peak := Peak{
		Bin:       idx / s.Samples,
		CodePhase: idx % s.Samples,
		Value:     s.Power[idx],
	}
	if math.IsNaN(peak.Value) || math.IsInf(peak.Value, 0) {
		return Peak{}, fmt.Errorf("%w: non-finite peak", ErrNumericDegenerate)
	}

	zone := ExclusionZone{Center: peak.CodePhase, Radius: samplesPerChip, Samples: s.Samples}
	row := s.Row(peak.Bin)
	sum, count := 0.0, 0
	for col, v := range row {
		if zone.Contains(col) {
			continue
		}
		if v > peak.SecondPeak {
			peak.SecondPeak = v
		}
		sum += v
		count++
	}
	if count > 0 {
		peak.MeanOutside = sum / float64(count)
	}

	switch {
	case peak.Value == 0:
		peak.Ratio = 0
	case peak.SecondPeak == 0:
		peak.Ratio = math.MaxFloat64
	default:
		peak.Ratio = math.Min(peak.Value/peak.SecondPeak, math.MaxFloat64)
	}
	if math.IsNaN(peak.Ratio) || math.IsInf(peak.Ratio, 0) {
		return Peak{}, fmt.Errorf("%w: peak ratio undefined (peak %g, second %g)", ErrNumericDegenerate, peak.Value, peak.SecondPeak)
	}
	return peak, nil
}

// Decide turns a peak into a result record. The ratio is always kept as the
// peak metric; code phase and carrier are only filled when the ratio strictly
// exceeds the threshold.
func Decide(p Peak, grid FrequencyGrid, cfg model.AcquisitionConfig) model.AcquisitionResult {
	res := model.AcquisitionResult{PeakMetric: p.Ratio}
	if !res.Detected(cfg.Threshold) {
		return res
	}

	n := cfg.SamplesPerCode()
	phase := (p.CodePhase + cfg.CodePhaseOffset) % n
	if phase < 0 {
		phase += n
	}
	res.CodePhase = phase
	res.CarrierFrequency = grid.Frequency(p.Bin)
	return res
}
