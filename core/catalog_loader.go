package core

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/signalsfoundry/gnss-acquisition/kb"
	"github.com/signalsfoundry/gnss-acquisition/model"
)

// internal JSON shapes, unexported so the file format can evolve.
type satelliteCatalogJSON struct {
	Satellites []satelliteJSON `json:"satellites"`
}

type satelliteJSON struct {
	PRN     int      `json:"prn"`
	Name    string   `json:"name"`
	System  string   `json:"system"` // defaults to "GPS"
	NoradID uint32   `json:"norad_id"`
	TLE     []string `json:"tle"` // optional; two lines
}

// LoadSatelliteCatalog reads a JSON catalog from r into cat and returns the
// PRNs that were added, in file order. Loading stops at the first entry the
// catalog rejects.
func LoadSatelliteCatalog(cat *kb.Catalog, r io.Reader) ([]int, error) {
	if cat == nil {
		return nil, fmt.Errorf("LoadSatelliteCatalog: catalog is nil")
	}

	var payload satelliteCatalogJSON
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("LoadSatelliteCatalog: decode failed: %w", err)
	}

	added := make([]int, 0, len(payload.Satellites))
	for i, s := range payload.Satellites {
		def := model.SatelliteDefinition{
			PRN:     s.PRN,
			Name:    s.Name,
			System:  s.System,
			NoradID: s.NoradID,
		}
		if def.System == "" {
			def.System = "GPS"
		}
		switch len(s.TLE) {
		case 0:
		case 2:
			def.TLELine1 = strings.TrimSpace(s.TLE[0])
			def.TLELine2 = strings.TrimSpace(s.TLE[1])
		default:
			return added, fmt.Errorf("LoadSatelliteCatalog: satellite %d: tle needs 2 lines, got %d", i, len(s.TLE))
		}
		if err := cat.AddSatellite(def); err != nil {
			return added, fmt.Errorf("LoadSatelliteCatalog: satellite %d: %w", i, err)
		}
		added = append(added, def.PRN)
	}
	return added, nil
}
