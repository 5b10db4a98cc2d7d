package synth

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/gnss-acquisition/model"
)

type constReplica struct{ n int }

func (r constReplica) Replica(id int, cfg model.AcquisitionConfig) ([]float64, error) {
	if id == 0 {
		return nil, errors.New("no code")
	}
	code := make([]float64, r.n)
	for i := range code {
		code[i] = 1
	}
	code[0] = -1
	return code, nil
}

func smallConfig() model.AcquisitionConfig {
	return model.AcquisitionConfig{
		SamplingFreqHz:        16000,
		IntermediateFreqHz:    1000,
		ChipRateHz:            1000,
		CodeLengthChips:       16,
		CoherentIntegrationMs: 16,
		SearchBandHz:          1000,
	}
}

func TestGenerateDefaultsToMinimumLength(t *testing.T) {
	cfg := smallConfig()
	buf, err := Generate(Capture{Config: cfg}, constReplica{n: 256})
	require.NoError(t, err)
	assert.Len(t, buf, cfg.MinSampleCount())
	for _, v := range buf {
		require.Zero(t, v)
	}
}

func TestGeneratePlacesCodeEpochAndCarrier(t *testing.T) {
	cfg := smallConfig()
	buf, err := Generate(Capture{
		Config:  cfg,
		Samples: 512,
		Signals: []Signal{{PRN: 1, CodePhase: 10, Amplitude: 2}},
	}, constReplica{n: 256})
	require.NoError(t, err)

	// The single inverted chip marks each epoch.
	for _, i := range []int{10, 266} {
		want := -2 * cmplx.Exp(complex(0, 2*math.Pi*1000*float64(i)/16000))
		assert.InDelta(t, real(want), real(buf[i]), 1e-9)
		assert.InDelta(t, imag(want), imag(buf[i]), 1e-9)
	}
	assert.InDelta(t, 2, cmplx.Abs(buf[11]), 1e-9)
	assert.InDelta(t, 0, cmplx.Phase(buf[11]*cmplx.Exp(complex(0, -2*math.Pi*1000*11/16000))), 1e-9)
}

func TestGenerateBitEdgeInvertsTail(t *testing.T) {
	cfg := smallConfig()
	clean, err := Generate(Capture{Config: cfg, Signals: []Signal{{PRN: 1}}}, constReplica{n: 256})
	require.NoError(t, err)
	flipped, err := Generate(Capture{Config: cfg, Signals: []Signal{{PRN: 1, BitEdge: 300}}}, constReplica{n: 256})
	require.NoError(t, err)

	assert.Equal(t, clean[299], flipped[299])
	assert.Equal(t, -clean[300], flipped[300])
}

func TestGenerateNoiseIsSeeded(t *testing.T) {
	cfg := smallConfig()
	c := Capture{Config: cfg, NoiseSigma: 0.3, Seed: 7}
	a, err := Generate(c, constReplica{n: 256})
	require.NoError(t, err)
	b, err := Generate(c, constReplica{n: 256})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c.Seed = 8
	other, err := Generate(c, constReplica{n: 256})
	require.NoError(t, err)
	assert.NotEqual(t, a, other)
}

func TestGenerateReplicaErrors(t *testing.T) {
	cfg := smallConfig()
	_, err := Generate(Capture{Config: cfg, Signals: []Signal{{PRN: 0}}}, constReplica{n: 256})
	assert.Error(t, err)

	_, err = Generate(Capture{Config: cfg, Signals: []Signal{{PRN: 1}}}, constReplica{n: 255})
	assert.Error(t, err)

	cfg.SamplingFreqHz = 0
	_, err = Generate(Capture{Config: cfg}, constReplica{n: 256})
	assert.ErrorIs(t, err, model.ErrInvalidConfiguration)
}
