package core

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Correlator computes frequency-domain circular correlation against one
// replica at a time. It owns its FFT plan and scratch buffers, so a
// Correlator must not be shared between goroutines.
type Correlator struct {
	n   int
	fft *fourier.CmplxFFT

	replica []complex128 // conjugated spectrum of the current replica
	ready   bool

	lo       []complex128
	wiped    []complex128
	spectrum []complex128
	corr     []complex128
	rows     [WindowCount][]float64
}

// NewCorrelator allocates a correlator for code periods of n samples.
func NewCorrelator(n int) *Correlator {
	c := &Correlator{
		n:        n,
		fft:      fourier.NewCmplxFFT(n),
		replica:  make([]complex128, n),
		lo:       make([]complex128, n),
		wiped:    make([]complex128, n),
		spectrum: make([]complex128, n),
		corr:     make([]complex128, n),
	}
	for i := range c.rows {
		c.rows[i] = make([]float64, n)
	}
	return c
}

// Len is the code period length in samples.
func (c *Correlator) Len() int { return c.n }

// PrepareReplica transforms code and keeps its conjugate spectrum for the
// following Surface calls.
func (c *Correlator) PrepareReplica(code []float64) error {
	if len(code) != c.n {
		c.ready = false
		return fmt.Errorf("%w: replica has %d samples, want %d", ErrReplicaUnavailable, len(code), c.n)
	}
	for i, v := range code {
		c.wiped[i] = complex(v, 0)
	}
	c.fft.Coefficients(c.replica, c.wiped)
	for i, v := range c.replica {
		c.replica[i] = cmplx.Conj(v)
	}
	c.ready = true
	return nil
}

// Surface builds the correlation surface for the prepared replica. For every
// bin the strongest of the four windows is kept; the returned slice records
// the chosen window index per bin.
func (c *Correlator) Surface(grid FrequencyGrid, windows [WindowCount]Window, samplingFreqHz float64) (*Surface, []int, error) {
	if !c.ready {
		return nil, nil, fmt.Errorf("%w: no replica prepared", ErrReplicaUnavailable)
	}
	for i, w := range windows {
		if len(w.Samples) != c.n {
			return nil, nil, fmt.Errorf("%w: window %d has %d samples, want %d", ErrInsufficientSamples, i, len(w.Samples), c.n)
		}
	}

	surface := NewSurface(grid.Bins, c.n)
	chosen := make([]int, grid.Bins)
	var peaks [WindowCount]float64

	for bin := 0; bin < grid.Bins; bin++ {
		c.oscillator(grid.Frequency(bin), samplingFreqHz)

		for i, w := range windows {
			peak, err := c.correlate(w, c.rows[i])
			if err != nil {
				return nil, nil, fmt.Errorf("bin %d window %d: %w", bin, i, err)
			}
			peaks[i] = peak
		}

		win := SelectWindow(peaks)
		chosen[bin] = win
		c.rotateInto(surface.Row(bin), c.rows[win], windows[win].Offset)
	}
	return surface, chosen, nil
}

// oscillator fills lo with exp(-j2πfn/fs) on the window timebase.
func (c *Correlator) oscillator(freq, fs float64) {
	cyclesPerSample := freq / fs
	for i := range c.lo {
		_, frac := math.Modf(cyclesPerSample * float64(i))
		s, co := math.Sincos(-2 * math.Pi * frac)
		c.lo[i] = complex(co, s)
	}
}

// correlate wipes off the carrier, correlates against the replica and writes
// the power per code-phase lag into dst, returning its maximum.
func (c *Correlator) correlate(w Window, dst []float64) (float64, error) {
	for i, v := range w.Samples {
		c.wiped[i] = v * c.lo[i]
	}
	c.fft.Coefficients(c.spectrum, c.wiped)
	for i := range c.spectrum {
		c.spectrum[i] *= c.replica[i]
	}
	c.fft.Sequence(c.corr, c.spectrum)

	peak := 0.0
	for i, v := range c.corr {
		p := real(v)*real(v) + imag(v)*imag(v)
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return 0, fmt.Errorf("%w: non-finite power at lag %d", ErrNumericDegenerate, i)
		}
		dst[i] = p
		if p > peak {
			peak = p
		}
	}
	return peak, nil
}

// rotateInto copies a window's lag row into buffer-aligned code phase order.
func (c *Correlator) rotateInto(dst, row []float64, offset int) {
	offset %= c.n
	copy(dst[offset:], row[:c.n-offset])
	copy(dst[:offset], row[c.n-offset:])
}

// SelectWindow is the per-bin window policy: the first window, in evaluation
// order, whose peak strictly exceeds every other window's peak wins. When no
// window is a strict maximum the last window is kept.
func SelectWindow(peaks [WindowCount]float64) int {
	for i, p := range peaks {
		strict := true
		for j, q := range peaks {
			if j != i && !(p > q) {
				strict = false
				break
			}
		}
		if strict {
			return i
		}
	}
	return WindowCount - 1
}
