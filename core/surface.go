package core

// Surface is the correlation power over (frequency bin, code phase). Column k
// holds the power for a code period starting k samples after the first sample
// of the input buffer.
type Surface struct {
	Bins    int
	Samples int
	Power   []float64 // row-major, Bins*Samples
}

// NewSurface allocates a zeroed surface.
func NewSurface(bins, samples int) *Surface {
	return &Surface{
		Bins:    bins,
		Samples: samples,
		Power:   make([]float64, bins*samples),
	}
}

// Row returns the power row for bin. The slice aliases the surface.
func (s *Surface) Row(bin int) []float64 {
	return s.Power[bin*s.Samples : (bin+1)*s.Samples : (bin+1)*s.Samples]
}

// At returns the power at (bin, col).
func (s *Surface) At(bin, col int) float64 {
	return s.Power[bin*s.Samples+col]
}
