package core

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
)

func randomCode(n int, seed uint64) []float64 {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	code := make([]float64, n)
	for i := range code {
		if rng.IntN(2) == 0 {
			code[i] = -1
		} else {
			code[i] = 1
		}
	}
	return code
}

// shiftedBuffer repeats code so that a code epoch begins at sample tau.
func shiftedBuffer(code []float64, tau, length int) []complex128 {
	n := len(code)
	buf := make([]complex128, length)
	for i := range buf {
		buf[i] = complex(code[((i-tau)%n+n)%n], 0)
	}
	return buf
}

func TestCorrelatorAlignsAllWindowsToBufferStart(t *testing.T) {
	const n, tau = 256, 37
	code := randomCode(n, 7)
	windows, err := ExtractWindows(shiftedBuffer(code, tau, 2*n), n)
	if err != nil {
		t.Fatalf("ExtractWindows: %v", err)
	}

	c := NewCorrelator(n)
	if err := c.PrepareReplica(code); err != nil {
		t.Fatalf("PrepareReplica: %v", err)
	}
	grid := FrequencyGrid{Start: 0, Step: 500, Bins: 1}

	for i := range windows {
		// Force each window in turn by zeroing the others.
		var only [WindowCount]Window
		for j := range only {
			only[j] = Window{Offset: windows[j].Offset, Samples: make([]complex128, n)}
		}
		only[i] = windows[i]

		s, chosen, err := c.Surface(grid, only, 1)
		if err != nil {
			t.Fatalf("window %d: Surface: %v", i, err)
		}
		if chosen[0] != i {
			t.Fatalf("window %d: chosen = %d", i, chosen[0])
		}
		p, err := FindPeak(s, 1)
		if err != nil {
			t.Fatalf("window %d: FindPeak: %v", i, err)
		}
		if p.CodePhase != tau {
			t.Errorf("window %d: code phase = %d, want %d", i, p.CodePhase, tau)
		}
	}
}

func TestCorrelatorWipesCarrier(t *testing.T) {
	const n, tau = 512, 100
	const fs = 512000.0
	code := randomCode(n, 11)
	buf := shiftedBuffer(code, tau, 2*n)
	for i := range buf {
		s, c := math.Sincos(2 * math.Pi * 3000 * float64(i) / fs)
		buf[i] *= complex(c, s)
	}
	windows, err := ExtractWindows(buf, n)
	if err != nil {
		t.Fatalf("ExtractWindows: %v", err)
	}

	c := NewCorrelator(n)
	if err := c.PrepareReplica(code); err != nil {
		t.Fatalf("PrepareReplica: %v", err)
	}
	grid := FrequencyGrid{Start: 0, Step: 1000, Bins: 7}
	s, _, err := c.Surface(grid, windows, fs)
	if err != nil {
		t.Fatalf("Surface: %v", err)
	}
	p, err := FindPeak(s, 1)
	if err != nil {
		t.Fatalf("FindPeak: %v", err)
	}
	if p.Bin != 3 || p.CodePhase != tau {
		t.Fatalf("peak at bin %d phase %d, want bin 3 phase %d", p.Bin, p.CodePhase, tau)
	}
}

func TestCorrelatorFlagsNonFiniteInput(t *testing.T) {
	const n = 64
	code := randomCode(n, 3)
	buf := shiftedBuffer(code, 0, 2*n)
	buf[5] = complex(math.NaN(), 0)
	windows, _ := ExtractWindows(buf, n)

	c := NewCorrelator(n)
	if err := c.PrepareReplica(code); err != nil {
		t.Fatalf("PrepareReplica: %v", err)
	}
	_, _, err := c.Surface(FrequencyGrid{Bins: 1, Step: 1}, windows, 1)
	if !errors.Is(err, ErrNumericDegenerate) {
		t.Fatalf("expected ErrNumericDegenerate, got %v", err)
	}
}

func TestCorrelatorRequiresMatchingReplica(t *testing.T) {
	c := NewCorrelator(32)
	if err := c.PrepareReplica(make([]float64, 31)); !errors.Is(err, ErrReplicaUnavailable) {
		t.Fatalf("expected ErrReplicaUnavailable, got %v", err)
	}
	windows, _ := ExtractWindows(make([]complex128, 64), 32)
	if _, _, err := c.Surface(FrequencyGrid{Bins: 1, Step: 1}, windows, 1); !errors.Is(err, ErrReplicaUnavailable) {
		t.Fatalf("expected ErrReplicaUnavailable without replica, got %v", err)
	}
}

func TestSelectWindowPolicy(t *testing.T) {
	tests := []struct {
		name  string
		peaks [WindowCount]float64
		want  int
	}{
		{"first strict", [WindowCount]float64{9, 1, 2, 3}, 0},
		{"second strict", [WindowCount]float64{1, 9, 2, 3}, 1},
		{"third strict", [WindowCount]float64{1, 2, 9, 3}, 2},
		{"fourth strict", [WindowCount]float64{1, 2, 3, 9}, 3},
		{"all equal falls back to last", [WindowCount]float64{4, 4, 4, 4}, 3},
		{"tied leaders fall back to last", [WindowCount]float64{7, 7, 1, 2}, 3},
		{"tie below a strict winner is irrelevant", [WindowCount]float64{2, 2, 8, 1}, 2},
		{"all zero", [WindowCount]float64{}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SelectWindow(tt.peaks); got != tt.want {
				t.Errorf("SelectWindow(%v) = %d, want %d", tt.peaks, got, tt.want)
			}
		})
	}
}
