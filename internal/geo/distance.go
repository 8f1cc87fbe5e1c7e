// Package geo resolves free-text locations to approximate coordinates and
// computes great-circle distances between them.
package geo

import "math"

// EarthRadiusMiles is the mean Earth radius in statute miles.
const EarthRadiusMiles = 3959.0

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Lat float64
	Lng float64
}

// Distance returns the haversine great-circle distance between a and b in miles.
func Distance(a, b Point) float64 {
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Lat))*math.Cos(toRadians(b.Lat))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMiles * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
