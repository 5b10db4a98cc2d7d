package kb

import (
	"sync"
	"testing"

	"github.com/signalsfoundry/gnss-acquisition/model"
)

func TestAddAndGetSatellite(t *testing.T) {
	store := NewCatalog()
	if err := store.AddSatellite(model.SatelliteDefinition{PRN: 5, Name: "GPS BIIR-2"}); err != nil {
		t.Fatalf("AddSatellite error: %v", err)
	}
	got, ok := store.GetSatellite(5)
	if !ok || got.Name != "GPS BIIR-2" {
		t.Fatalf("GetSatellite returned %#v, %v", got, ok)
	}
	if _, ok := store.GetSatellite(6); ok {
		t.Fatalf("GetSatellite(6) should miss")
	}
}

func TestAddSatelliteRejectsDuplicateAndNonPositive(t *testing.T) {
	store := NewCatalog()
	if err := store.AddSatellite(model.SatelliteDefinition{PRN: 1}); err != nil {
		t.Fatalf("first AddSatellite error: %v", err)
	}
	if err := store.AddSatellite(model.SatelliteDefinition{PRN: 1}); err == nil {
		t.Fatalf("expected duplicate AddSatellite to fail")
	}
	if err := store.AddSatellite(model.SatelliteDefinition{PRN: 0}); err == nil {
		t.Fatalf("expected PRN 0 to be rejected")
	}
}

func TestListSatellitesIsOrdered(t *testing.T) {
	store := NewCatalog()
	for _, prn := range []int{17, 3, 29, 8} {
		if err := store.AddSatellite(model.SatelliteDefinition{PRN: prn}); err != nil {
			t.Fatalf("AddSatellite(%d): %v", prn, err)
		}
	}
	want := []int{3, 8, 17, 29}
	got := store.PRNs()
	if len(got) != len(want) {
		t.Fatalf("PRNs = %v, want %v", got, want)
	}
	for i, s := range store.ListSatellites() {
		if s.PRN != want[i] || got[i] != want[i] {
			t.Fatalf("order mismatch at %d: list %d, prns %d, want %d", i, s.PRN, got[i], want[i])
		}
	}
	if store.Len() != 4 {
		t.Fatalf("Len = %d, want 4", store.Len())
	}
}

func TestUpdateRemoveAndSubscribe(t *testing.T) {
	store := NewCatalog()
	var (
		mu     sync.Mutex
		events []Event
	)
	unsubscribe := store.Subscribe(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	})

	if err := store.UpdateSatellite(model.SatelliteDefinition{PRN: 9}); err == nil {
		t.Fatalf("expected update of unknown PRN to fail")
	}
	if err := store.AddSatellite(model.SatelliteDefinition{PRN: 9}); err != nil {
		t.Fatalf("AddSatellite error: %v", err)
	}
	updated := model.SatelliteDefinition{PRN: 9, TLELine1: "1 ...", TLELine2: "2 ..."}
	if err := store.UpdateSatellite(updated); err != nil {
		t.Fatalf("UpdateSatellite error: %v", err)
	}
	if err := store.RemoveSatellite(9); err != nil {
		t.Fatalf("RemoveSatellite error: %v", err)
	}
	if err := store.RemoveSatellite(9); err == nil {
		t.Fatalf("expected second removal to fail")
	}

	unsubscribe()
	if err := store.AddSatellite(model.SatelliteDefinition{PRN: 10}); err != nil {
		t.Fatalf("AddSatellite error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	wantTypes := []EventType{EventSatelliteAdded, EventSatelliteUpdated, EventSatelliteRemoved}
	if len(events) != len(wantTypes) {
		t.Fatalf("got %d events, want %d", len(events), len(wantTypes))
	}
	for i, e := range events {
		if e.Type != wantTypes[i] {
			t.Fatalf("event %d type = %v, want %v", i, e.Type, wantTypes[i])
		}
	}
	if !events[1].Satellite.HasOrbit() {
		t.Fatalf("update event should carry the new TLE")
	}
}

func TestConcurrentAccess(t *testing.T) {
	store := NewCatalog()
	if err := store.AddSatellite(model.SatelliteDefinition{PRN: 1}); err != nil {
		t.Fatalf("AddSatellite error: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = store.GetSatellite(1)
			_ = store.ListSatellites()
		}()
		go func() {
			defer wg.Done()
			_ = store.UpdateSatellite(model.SatelliteDefinition{PRN: 1, Name: "x"})
		}()
	}
	wg.Wait()
}
