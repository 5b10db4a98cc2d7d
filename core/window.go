package core

import "fmt"

// WindowCount is the number of quarter-period-shifted windows per search.
const WindowCount = 4

// Window is one code period of input starting at Offset samples into the
// caller's buffer. Samples aliases the caller buffer and must not be written.
type Window struct {
	Offset  int
	Samples []complex128
}

// ExtractWindows slices four one-period windows starting at 0, N/4, 2N/4 and
// 3N/4, spanning 7N/4 samples. A single bit edge at sample e leaves at least
// one window unbroken unless 3N/4 < e < N, where all four straddle it and
// the search keeps whichever window correlates best.
func ExtractWindows(samples []complex128, samplesPerCode int) ([WindowCount]Window, error) {
	var windows [WindowCount]Window
	if samplesPerCode <= 0 {
		return windows, fmt.Errorf("%w: samples per code must be positive, got %d", ErrInvalidConfiguration, samplesPerCode)
	}

	need := (WindowCount-1)*samplesPerCode/WindowCount + samplesPerCode
	if len(samples) < need {
		return windows, fmt.Errorf("%w: have %d, need %d", ErrInsufficientSamples, len(samples), need)
	}

	for i := range windows {
		off := i * samplesPerCode / WindowCount
		windows[i] = Window{
			Offset:  off,
			Samples: samples[off : off+samplesPerCode : off+samplesPerCode],
		}
	}
	return windows, nil
}

// RealToComplex promotes real samples to complex with zero quadrature.
func RealToComplex(samples []float64) []complex128 {
	out := make([]complex128, len(samples))
	for i, v := range samples {
		out[i] = complex(v, 0)
	}
	return out
}
