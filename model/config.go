package model

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfiguration is returned when an AcquisitionConfig cannot drive a search.
var ErrInvalidConfiguration = errors.New("invalid acquisition configuration")

// DefaultCodePhaseOffset is the calibration correction, in samples, added to the
// reported code phase on detection. The correct value is specific to the receiver
// front end and must be measured against real captures; zero leaves the raw
// correlation index untouched.
const DefaultCodePhaseOffset = 0

// AcquisitionConfig is the immutable parameter set for one acquisition run.
type AcquisitionConfig struct {
	SamplingFreqHz        float64
	IntermediateFreqHz    float64
	ChipRateHz            float64
	CodeLengthChips       int
	CoherentIntegrationMs float64
	SearchBandHz          float64 // full width, centred on IntermediateFreqHz
	Threshold             float64 // peak ratio must strictly exceed this
	CodePhaseOffset       int     // receiver-specific calibration, in samples
	Candidates            []int
}

// SamplesPerCode is the number of samples in one code period.
func (c AcquisitionConfig) SamplesPerCode() int {
	return int(math.Round(c.SamplingFreqHz * float64(c.CodeLengthChips) / c.ChipRateHz))
}

// SamplesPerChip is the rounded number of samples spanned by one chip.
func (c AcquisitionConfig) SamplesPerChip() int {
	return int(math.Round(c.SamplingFreqHz / c.ChipRateHz))
}

// MinSampleCount is the shortest buffer that yields four quarter-shifted windows.
func (c AcquisitionConfig) MinSampleCount() int {
	n := c.SamplesPerCode()
	return 3*n/4 + n
}

// CodePeriodSec is the duration of one code period.
func (c AcquisitionConfig) CodePeriodSec() float64 {
	return float64(c.CodeLengthChips) / c.ChipRateHz
}

// Validate checks the configuration invariants. Every failure wraps
// ErrInvalidConfiguration.
func (c AcquisitionConfig) Validate() error {
	positive := []struct {
		name  string
		value float64
	}{
		{"sampling frequency", c.SamplingFreqHz},
		{"chip rate", c.ChipRateHz},
		{"code length", float64(c.CodeLengthChips)},
		{"coherent integration length", c.CoherentIntegrationMs},
		{"search band", c.SearchBandHz},
	}
	for _, p := range positive {
		if !(p.value > 0) || math.IsInf(p.value, 0) {
			return fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidConfiguration, p.name, p.value)
		}
	}
	if math.IsNaN(c.IntermediateFreqHz) || math.IsInf(c.IntermediateFreqHz, 0) {
		return fmt.Errorf("%w: intermediate frequency must be finite", ErrInvalidConfiguration)
	}
	if c.Threshold < 0 || math.IsNaN(c.Threshold) || math.IsInf(c.Threshold, 0) {
		return fmt.Errorf("%w: threshold must be a finite non-negative ratio, got %v", ErrInvalidConfiguration, c.Threshold)
	}

	n := c.SamplesPerCode()
	if n < 2*c.SamplesPerChip()+2 {
		return fmt.Errorf("%w: %d samples per code cannot hold a chip-wide exclusion zone", ErrInvalidConfiguration, n)
	}

	seen := make(map[int]struct{}, len(c.Candidates))
	for _, id := range c.Candidates {
		if id <= 0 {
			return fmt.Errorf("%w: satellite id %d must be positive", ErrInvalidConfiguration, id)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: satellite id %d listed twice", ErrInvalidConfiguration, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
