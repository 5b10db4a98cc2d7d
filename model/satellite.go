package model

// SatelliteDefinition describes a ranging source that can be searched for.
// TLE lines are optional and only used for visibility aiding.
type SatelliteDefinition struct {
	PRN     int
	Name    string
	System  string // e.g. "GPS"
	NoradID uint32

	TLELine1 string
	TLELine2 string
}

// HasOrbit reports whether the definition carries a propagatable TLE.
func (s SatelliteDefinition) HasOrbit() bool {
	return s.TLELine1 != "" && s.TLELine2 != ""
}

// GeodeticPosition is a receiver location on the WGS-84 ellipsoid.
type GeodeticPosition struct {
	LatitudeDeg  float64
	LongitudeDeg float64
	AltitudeM    float64
}
