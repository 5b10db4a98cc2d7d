// Package replica generates sampled local replica codes for acquisition.
package replica

import (
	"errors"
	"fmt"
	"math"

	"github.com/signalsfoundry/gnss-acquisition/model"
)

const (
	// CALength is the GPS L1 C/A code length in chips.
	CALength = 1023
	// CAChipRateHz is the GPS L1 C/A chipping rate.
	CAChipRateHz = 1.023e6
)

// ErrUnknownPRN is returned for identifiers outside the supported range.
var ErrUnknownPRN = errors.New("unknown PRN")

// g2Delay holds the G2 register delay in chips per PRN (IS-GPS-200, PRN 1-210).
var g2Delay = [...]int{
	5, 6, 7, 8, 17, 18, 139, 140, 141, 251,
	252, 254, 255, 256, 257, 258, 469, 470, 471, 472,
	473, 474, 509, 512, 513, 514, 515, 516, 859, 860,
	861, 862, 863, 950, 947, 948, 950, 67, 103, 91,
	19, 679, 225, 625, 946, 638, 161, 1001, 554, 280,
	710, 709, 775, 864, 558, 220, 397, 55, 898, 759,
	367, 299, 1018, 729, 695, 780, 801, 788, 732, 34,
	320, 327, 389, 407, 525, 405, 221, 761, 260, 326,
	955, 653, 699, 422, 188, 438, 959, 539, 879, 677,
	586, 153, 792, 814, 446, 264, 1015, 278, 536, 819,
	156, 957, 159, 712, 885, 461, 248, 713, 126, 807,
	279, 122, 197, 693, 632, 771, 467, 647, 203, 145,
	175, 52, 21, 237, 235, 886, 657, 634, 762, 355,
	1012, 176, 603, 130, 359, 595, 68, 386, 797, 456,
	499, 883, 307, 127, 211, 121, 118, 163, 628, 853,
	484, 289, 811, 202, 1021, 463, 568, 904, 670, 230,
	911, 684, 309, 644, 932, 12, 314, 891, 212, 185,
	675, 503, 150, 395, 345, 846, 798, 992, 357, 995,
	877, 112, 144, 476, 193, 109, 445, 291, 87, 399,
	292, 901, 339, 208, 711, 189, 263, 537, 663, 942,
	173, 900, 30, 500, 935, 556, 373, 85, 652, 310,
}

// MaxPRN is the highest PRN with a known G2 delay.
const MaxPRN = len(g2Delay)

// CACode returns the ±1 chip sequence for prn.
func CACode(prn int) ([]int8, error) {
	if prn < 1 || prn > MaxPRN {
		return nil, fmt.Errorf("%w: %d (want 1-%d)", ErrUnknownPRN, prn, MaxPRN)
	}

	// Registers hold -1 for a logical one, so XOR becomes multiplication.
	var r1, r2 [10]int8
	for i := range r1 {
		r1[i], r2[i] = -1, -1
	}
	g1 := make([]int8, CALength)
	g2 := make([]int8, CALength)
	for i := 0; i < CALength; i++ {
		g1[i], g2[i] = r1[9], r2[9]
		c1 := r1[2] * r1[9]
		c2 := r2[1] * r2[2] * r2[5] * r2[7] * r2[8] * r2[9]
		copy(r1[1:], r1[:9])
		copy(r2[1:], r2[:9])
		r1[0], r2[0] = c1, c2
	}

	code := make([]int8, CALength)
	j := CALength - g2Delay[prn-1]
	for i := range code {
		code[i] = -g1[i] * g2[j%CALength]
		j++
	}
	return code, nil
}

// Resample stretches a chip sequence to n samples at samplingFreqHz, starting
// at chip zero and taking the chip in effect at each sample instant.
func Resample(code []int8, chipRateHz, samplingFreqHz float64, n int) []float64 {
	out := make([]float64, n)
	if len(code) == 0 {
		return out
	}
	chipsPerSample := chipRateHz / samplingFreqHz
	for i := range out {
		chip := int(math.Floor(float64(i)*chipsPerSample)) % len(code)
		out[i] = float64(code[chip])
	}
	return out
}

// CAProvider supplies GPS L1 C/A replicas resampled to the configured rate.
type CAProvider struct{}

// Replica implements core.ReplicaProvider.
func (CAProvider) Replica(id int, cfg model.AcquisitionConfig) ([]float64, error) {
	if cfg.CodeLengthChips != CALength {
		return nil, fmt.Errorf("L1 C/A replica needs a %d chip code, configuration has %d", CALength, cfg.CodeLengthChips)
	}
	code, err := CACode(id)
	if err != nil {
		return nil, err
	}
	return Resample(code, cfg.ChipRateHz, cfg.SamplingFreqHz, cfg.SamplesPerCode()), nil
}
