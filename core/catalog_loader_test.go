package core

import (
	"strings"
	"testing"

	"github.com/signalsfoundry/gnss-acquisition/kb"
)

const catalogJSON = `{
  "satellites": [
    {"prn": 13, "name": "GPS BIIR-2", "norad_id": 24876,
     "tle": ["` + gpsTLE1 + `", "` + gpsTLE2 + `"]},
    {"prn": 5, "name": "GPS BIIRM-8", "system": "GPS"}
  ]
}`

func TestLoadSatelliteCatalog(t *testing.T) {
	cat := kb.NewCatalog()
	added, err := LoadSatelliteCatalog(cat, strings.NewReader(catalogJSON))
	if err != nil {
		t.Fatalf("LoadSatelliteCatalog: %v", err)
	}
	if len(added) != 2 || added[0] != 13 || added[1] != 5 {
		t.Fatalf("added = %v, want [13 5]", added)
	}

	s, ok := cat.GetSatellite(13)
	if !ok || !s.HasOrbit() || s.NoradID != 24876 || s.System != "GPS" {
		t.Fatalf("PRN 13 = %+v", s)
	}
	if s.TLELine1 != gpsTLE1 {
		t.Fatalf("TLE line 1 = %q", s.TLELine1)
	}
	if s, _ := cat.GetSatellite(5); s.HasOrbit() {
		t.Fatalf("PRN 5 should have no orbit")
	}
}

func TestLoadSatelliteCatalogErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"bad json", `{"satellites": [`},
		{"unknown field", `{"satellites": [{"prn": 1, "colour": "red"}]}`},
		{"one tle line", `{"satellites": [{"prn": 1, "tle": ["1 x"]}]}`},
		{"duplicate prn", `{"satellites": [{"prn": 1}, {"prn": 1}]}`},
		{"zero prn", `{"satellites": [{"name": "nameless"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadSatelliteCatalog(kb.NewCatalog(), strings.NewReader(tt.in)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}

	if _, err := LoadSatelliteCatalog(nil, strings.NewReader(catalogJSON)); err == nil {
		t.Fatalf("expected error for nil catalog")
	}
}
