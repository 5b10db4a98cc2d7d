package core

import (
	"math"

	"github.com/signalsfoundry/gnss-acquisition/model"
)

// WGS-84 ellipsoid, kilometres to match go-satellite.
const (
	wgs84SemiMajorKm  = 6378.137
	wgs84Flattening   = 1 / 298.257223563
	earthRotationRate = 7.2921151467e-5 // rad/s

	speedOfLightMps = 299792458.0
	// GPSL1FrequencyHz is the L1 carrier used for Doppler prediction.
	GPSL1FrequencyHz = 1575.42e6
)

// Vec3 is an ECEF vector in kilometres (or km/s for velocities).
type Vec3 struct {
	X, Y, Z float64
}

// DistanceTo returns the straight-line distance between two points.
func (v Vec3) DistanceTo(other Vec3) float64 {
	return v.Sub(other).Norm()
}

// Norm returns the Euclidean norm of the vector.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Add returns v + other.
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// Scale returns v multiplied by k.
func (v Vec3) Scale(k float64) Vec3 {
	return Vec3{X: v.X * k, Y: v.Y * k, Z: v.Z * k}
}

// Dot returns the dot product of two vectors.
func (v Vec3) Dot(other Vec3) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// GeodeticToECEF converts a WGS-84 position to ECEF kilometres.
func GeodeticToECEF(p model.GeodeticPosition) Vec3 {
	lat := p.LatitudeDeg * math.Pi / 180
	lon := p.LongitudeDeg * math.Pi / 180
	h := p.AltitudeM / 1000

	e2 := wgs84Flattening * (2 - wgs84Flattening)
	sinLat, cosLat := math.Sincos(lat)
	sinLon, cosLon := math.Sincos(lon)
	n := wgs84SemiMajorKm / math.Sqrt(1-e2*sinLat*sinLat)

	return Vec3{
		X: (n + h) * cosLat * cosLon,
		Y: (n + h) * cosLat * sinLon,
		Z: (n*(1-e2) + h) * sinLat,
	}
}

// localUp is the ellipsoid normal at p.
func localUp(p model.GeodeticPosition) Vec3 {
	sinLat, cosLat := math.Sincos(p.LatitudeDeg * math.Pi / 180)
	sinLon, cosLon := math.Sincos(p.LongitudeDeg * math.Pi / 180)
	return Vec3{X: cosLat * cosLon, Y: cosLat * sinLon, Z: sinLat}
}

// ElevationDegrees returns the elevation angle of target above the local
// horizon at the receiver, in degrees. 0° = horizon, 90° = overhead.
func ElevationDegrees(receiver model.GeodeticPosition, target Vec3) float64 {
	los := target.Sub(GeodeticToECEF(receiver))
	d := los.Norm()
	if d == 0 {
		return 90
	}
	sinEl := los.Dot(localUp(receiver)) / d
	sinEl = math.Max(-1, math.Min(1, sinEl))
	return math.Asin(sinEl) * 180 / math.Pi
}

// RangeRate returns the rate of change of the receiver-to-target distance
// in km/s for a receiver fixed in ECEF. Positive means receding.
func RangeRate(receiver Vec3, state StateVector) float64 {
	los := state.Position.Sub(receiver)
	d := los.Norm()
	if d == 0 {
		return 0
	}
	return state.Velocity.Dot(los) / d
}

// DopplerHz converts a range rate in km/s to an L1 Doppler shift.
func DopplerHz(rangeRateKmps float64) float64 {
	return -rangeRateKmps * 1000 / speedOfLightMps * GPSL1FrequencyHz
}
