// Package synth builds deterministic front-end captures with embedded
// satellite signals, for tests and dry runs of the acquisition engine.
package synth

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"

	"github.com/signalsfoundry/gnss-acquisition/model"
)

// ReplicaSource yields the sampled code for a satellite.
type ReplicaSource interface {
	Replica(id int, cfg model.AcquisitionConfig) ([]float64, error)
}

// Signal is one satellite embedded in the capture.
type Signal struct {
	PRN       int
	CodePhase int     // samples from buffer start to the first code epoch
	DopplerHz float64 // offset from the intermediate frequency
	Amplitude float64

	// BitEdge, when positive, inverts the code sign from that sample on,
	// emulating a navigation data bit transition.
	BitEdge int
}

// Capture describes the buffer to generate.
type Capture struct {
	Config     model.AcquisitionConfig
	Samples    int // defaults to Config.MinSampleCount()
	NoiseSigma float64
	Seed       uint64
	Signals    []Signal
}

// Generate renders the capture as complex baseband-at-IF samples.
func Generate(c Capture, replicas ReplicaSource) ([]complex128, error) {
	cfg := c.Config
	n := cfg.SamplesPerCode()
	if n <= 0 {
		return nil, fmt.Errorf("%w: samples per code is %d", model.ErrInvalidConfiguration, n)
	}
	total := c.Samples
	if total <= 0 {
		total = cfg.MinSampleCount()
	}

	re := make([]float64, total)
	im := make([]float64, total)
	for _, s := range c.Signals {
		code, err := replicas.Replica(s.PRN, cfg)
		if err != nil {
			return nil, fmt.Errorf("replica for PRN %d: %w", s.PRN, err)
		}
		if len(code) != n {
			return nil, fmt.Errorf("replica for PRN %d has %d samples, want %d", s.PRN, len(code), n)
		}
		addSignal(re, im, code, s, cfg)
	}

	if c.NoiseSigma > 0 {
		rng := rand.New(rand.NewPCG(c.Seed, c.Seed^0x9e3779b97f4a7c15))
		noiseRe := make([]float64, total)
		noiseIm := make([]float64, total)
		for i := range noiseRe {
			noiseRe[i] = rng.NormFloat64()
			noiseIm[i] = rng.NormFloat64()
		}
		floats.AddScaled(re, c.NoiseSigma, noiseRe)
		floats.AddScaled(im, c.NoiseSigma, noiseIm)
	}

	out := make([]complex128, total)
	for i := range out {
		out[i] = complex(re[i], im[i])
	}
	return out, nil
}

func addSignal(re, im, code []float64, s Signal, cfg model.AcquisitionConfig) {
	n := len(code)
	amp := s.Amplitude
	if amp == 0 {
		amp = 1
	}
	phase0 := ((s.CodePhase % n) + n) % n
	cyclesPerSample := (cfg.IntermediateFreqHz + s.DopplerHz) / cfg.SamplingFreqHz

	for i := range re {
		chip := code[((i-phase0)%n+n)%n]
		if s.BitEdge > 0 && i >= s.BitEdge {
			chip = -chip
		}
		_, frac := math.Modf(cyclesPerSample * float64(i))
		sin, cos := math.Sincos(2 * math.Pi * frac)
		re[i] += amp * chip * cos
		im[i] += amp * chip * sin
	}
}
