package model

import "sort"

// AcquisitionResult is the outcome for one satellite. The zero value is the
// undetected state.
type AcquisitionResult struct {
	CarrierFrequency float64 `json:"carrier_frequency_hz" yaml:"carrier_frequency_hz"`
	CodePhase        int     `json:"code_phase" yaml:"code_phase"`
	PeakMetric       float64 `json:"peak_metric" yaml:"peak_metric"`
}

// Detected reports whether the peak metric strictly exceeds threshold.
func (r AcquisitionResult) Detected(threshold float64) bool {
	return r.PeakMetric > threshold
}

// ResultSet collects results keyed by satellite identifier. Identifiers that
// were never evaluated read back as the zero AcquisitionResult.
type ResultSet struct {
	Threshold float64
	results   map[int]AcquisitionResult
}

// NewResultSet allocates an empty collection sized for capacity entries.
func NewResultSet(threshold float64, capacity int) *ResultSet {
	return &ResultSet{
		Threshold: threshold,
		results:   make(map[int]AcquisitionResult, capacity),
	}
}

// Set stores the result for id, replacing any earlier entry.
func (s *ResultSet) Set(id int, r AcquisitionResult) {
	s.results[id] = r
}

// Get returns the result for id, or the default record.
func (s *ResultSet) Get(id int) AcquisitionResult {
	if s == nil {
		return AcquisitionResult{}
	}
	return s.results[id]
}

// Has reports whether id was evaluated in this run.
func (s *ResultSet) Has(id int) bool {
	if s == nil {
		return false
	}
	_, ok := s.results[id]
	return ok
}

// IDs returns the evaluated identifiers in ascending order.
func (s *ResultSet) IDs() []int {
	if s == nil {
		return nil
	}
	ids := make([]int, 0, len(s.results))
	for id := range s.results {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Detected returns the identifiers whose result passes the threshold, ascending.
func (s *ResultSet) Detected() []int {
	var out []int
	for _, id := range s.IDs() {
		if s.results[id].Detected(s.Threshold) {
			out = append(out, id)
		}
	}
	return out
}

// Len is the number of evaluated identifiers.
func (s *ResultSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.results)
}
