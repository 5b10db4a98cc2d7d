package model

import "testing"

func TestResultSetDefaultsAndOrdering(t *testing.T) {
	rs := NewResultSet(2.5, 3)
	rs.Set(7, AcquisitionResult{CarrierFrequency: 1500, CodePhase: 10, PeakMetric: 4})
	rs.Set(2, AcquisitionResult{PeakMetric: 1.2})
	rs.Set(30, AcquisitionResult{CarrierFrequency: -500, CodePhase: 3, PeakMetric: 2.6})

	if got := rs.Get(99); got != (AcquisitionResult{}) {
		t.Fatalf("Get(99) = %+v, want default", got)
	}
	if rs.Has(99) || !rs.Has(2) {
		t.Fatalf("Has mismatch")
	}

	ids := rs.IDs()
	want := []int{2, 7, 30}
	if len(ids) != len(want) {
		t.Fatalf("IDs = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("IDs = %v, want %v", ids, want)
		}
	}

	det := rs.Detected()
	if len(det) != 2 || det[0] != 7 || det[1] != 30 {
		t.Fatalf("Detected = %v, want [7 30]", det)
	}
	if rs.Len() != 3 {
		t.Fatalf("Len = %d, want 3", rs.Len())
	}
}

func TestResultSetNilReceiver(t *testing.T) {
	var rs *ResultSet
	if rs.Get(1) != (AcquisitionResult{}) || rs.Has(1) || rs.Len() != 0 || rs.IDs() != nil {
		t.Fatalf("nil ResultSet should behave as empty")
	}
}

func TestDetectedIsStrict(t *testing.T) {
	r := AcquisitionResult{PeakMetric: 2.5}
	if r.Detected(2.5) {
		t.Fatalf("metric equal to threshold must not be detected")
	}
	if !r.Detected(2.4999) {
		t.Fatalf("metric above threshold must be detected")
	}
}
