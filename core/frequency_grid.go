package core

import (
	"fmt"
	"math"

	"github.com/signalsfoundry/gnss-acquisition/model"
)

// gridTolerance absorbs floating point error when checking the top bin against
// the band edge.
const gridTolerance = 1e-9

// FrequencyGrid is the set of carrier hypotheses searched for every candidate.
// Bins are spaced by half the reciprocal of the coherent integration time,
// starting at the lower band edge.
type FrequencyGrid struct {
	Start float64
	Step  float64
	Bins  int
}

// NewFrequencyGrid builds the grid spanning IF ± band/2.
func NewFrequencyGrid(cfg model.AcquisitionConfig) (FrequencyGrid, error) {
	if !(cfg.CoherentIntegrationMs > 0) || !(cfg.SearchBandHz > 0) {
		return FrequencyGrid{}, fmt.Errorf("%w: search band and integration time must be positive", ErrInvalidConfiguration)
	}

	step := 1000.0 / (2 * cfg.CoherentIntegrationMs)
	bins := int(math.Round(cfg.SearchBandHz/1000*2*cfg.CoherentIntegrationMs)) + 1

	half := cfg.SearchBandHz / 2
	g := FrequencyGrid{
		Start: cfg.IntermediateFreqHz - half,
		Step:  step,
		Bins:  bins,
	}
	upper := cfg.IntermediateFreqHz + half
	for g.Bins > 1 && g.Frequency(g.Bins-1) > upper+gridTolerance*math.Max(1, math.Abs(upper)) {
		g.Bins--
	}
	return g, nil
}

// Frequency maps a bin index to its carrier frequency in Hz.
func (g FrequencyGrid) Frequency(bin int) float64 {
	return g.Start + float64(bin)*g.Step
}

// Bin maps a frequency to the nearest bin index, clamped to the grid.
func (g FrequencyGrid) Bin(freq float64) int {
	i := int(math.Round((freq - g.Start) / g.Step))
	if i < 0 {
		return 0
	}
	if i >= g.Bins {
		return g.Bins - 1
	}
	return i
}

// Frequencies lists every grid value in ascending order.
func (g FrequencyGrid) Frequencies() []float64 {
	out := make([]float64, g.Bins)
	for i := range out {
		out[i] = g.Frequency(i)
	}
	return out
}
