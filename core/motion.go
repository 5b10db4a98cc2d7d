package core

import (
	"fmt"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
)

// StateVector is an ECEF position (km) and velocity (km/s).
type StateVector struct {
	Position Vec3
	Velocity Vec3
}

// MotionModel yields a satellite's ECEF state at a given time.
type MotionModel interface {
	State(t time.Time) (StateVector, error)
}

// FixedMotionModel always reports the same state.
type FixedMotionModel struct {
	Fixed StateVector
}

// State returns the fixed state.
func (m FixedMotionModel) State(time.Time) (StateVector, error) {
	return m.Fixed, nil
}

// OrbitalSGP4MotionModel uses a TLE and SGP4 to propagate a satellite.
type OrbitalSGP4MotionModel struct {
	sat satellite.Satellite
}

// NewOrbitalModelFromTLE constructs an orbital model from TLE lines.
func NewOrbitalModelFromTLE(line1, line2 string) (m *OrbitalSGP4MotionModel, err error) {
	line1 = strings.TrimRight(line1, " \r\n")
	line2 = strings.TrimRight(line2, " \r\n")
	if len(line1) < 69 || len(line2) < 69 || line1[0] != '1' || line2[0] != '2' {
		return nil, fmt.Errorf("malformed TLE")
	}
	// go-satellite panics on unparsable fields.
	defer func() {
		if r := recover(); r != nil {
			m, err = nil, fmt.Errorf("parse TLE: %v", r)
		}
	}()
	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS72)
	return &OrbitalSGP4MotionModel{sat: sat}, nil
}

// State propagates the satellite to t and rotates the result into ECEF.
// ECEF velocity removes the frame rotation, v - ω×r.
func (m *OrbitalSGP4MotionModel) State(t time.Time) (StateVector, error) {
	t = t.UTC()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	posECI, velECI := satellite.Propagate(m.sat, year, int(month), day, hour, min, sec)
	if posECI.X == 0 && posECI.Y == 0 && posECI.Z == 0 {
		return StateVector{}, fmt.Errorf("SGP4 propagation failed at %s", t.Format(time.RFC3339))
	}
	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	gmst := satellite.ThetaG_JD(jd)

	p := satellite.ECIToECEF(posECI, gmst)
	v := satellite.ECIToECEF(velECI, gmst)
	pos := Vec3{X: p.X, Y: p.Y, Z: p.Z}
	vel := Vec3{
		X: v.X + earthRotationRate*pos.Y,
		Y: v.Y - earthRotationRate*pos.X,
		Z: v.Z,
	}
	return StateVector{Position: pos, Velocity: vel}, nil
}
