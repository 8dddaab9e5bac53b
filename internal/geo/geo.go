// Package geo implements great-circle distance math for tour locations.
package geo

import "math"

// Unit selects the measurement system for distances and search radii.
type Unit string

// Supported units.
const (
	UnitMiles      Unit = "mi"
	UnitKilometers Unit = "km"
)

// Earth radii used to convert a surface distance into radians.
const (
	earthRadiusMiles      = 3963.2
	earthRadiusKilometers = 6378.1
)

// Multipliers converting meters into the requested unit.
const (
	metersToMiles      = 0.000621371
	metersToKilometers = 0.001
)

// Valid reports whether u names a supported unit.
func (u Unit) Valid() bool {
	return u == UnitMiles || u == UnitKilometers
}

// Radians converts a distance in the unit into a central angle, used to
// bound a radius search on a sphere.
func (u Unit) Radians(distance float64) float64 {
	if u == UnitMiles {
		return distance / earthRadiusMiles
	}
	return distance / earthRadiusKilometers
}

// FromMeters converts a distance in meters into the unit.
func (u Unit) FromMeters(meters float64) float64 {
	if u == UnitMiles {
		return meters * metersToMiles
	}
	return meters * metersToKilometers
}

// HaversineMeters returns the great-circle distance in meters between two
// points given as latitude/longitude degrees.
func HaversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusMeters = 6371000.0

	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// WithinRadius reports whether the point at (lat2, lng2) lies inside the
// circle of the given radius (expressed in unit) around (lat1, lng1).
func WithinRadius(lat1, lng1, lat2, lng2, radius float64, unit Unit) bool {
	meters := HaversineMeters(lat1, lng1, lat2, lng2)
	return unit.FromMeters(meters) <= radius
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
