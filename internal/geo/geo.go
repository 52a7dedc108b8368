// Package geo provides the spatial primitives shared by every engine
// component. All distances in the service come from Miles so that two
// components can never disagree about the same pair of points.
package geo

import (
	"errors"
	"math"
)

// EarthRadiusMiles is the single Earth radius constant used engine-wide.
const EarthRadiusMiles = 3959.0

// Feet per statute mile, for the pricing policy's proximity rings.
const FeetPerMile = 5280.0

var ErrDegeneratePolygon = errors.New("geo: polygon needs at least 3 vertices")

// Miles returns the great-circle distance between two points using the
// haversine formula. Symmetric: Miles(a,b) == Miles(b,a).
func Miles(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMiles * c
}

// PointInPolygon reports whether (lat, lng) falls inside the polygon given
// as (lng, lat) vertices, using the even-odd ray-casting rule. The polygon
// is treated as closed: the last vertex connects back to the first. Points
// exactly on an edge land on whichever side the casting assigns; callers
// must not rely on a particular winner there.
//
// Fewer than 3 vertices indicates a data-loading defect upstream and
// returns ErrDegeneratePolygon.
func PointInPolygon(lat, lng float64, vertices [][2]float64) (bool, error) {
	if len(vertices) < 3 {
		return false, ErrDegeneratePolygon
	}
	inside := false
	j := len(vertices) - 1
	for i := 0; i < len(vertices); i++ {
		xi, yi := vertices[i][0], vertices[i][1]
		xj, yj := vertices[j][0], vertices[j][1]
		if (yi > lat) != (yj > lat) &&
			lng < (xj-xi)*(lat-yi)/(yj-yi)+xi {
			inside = !inside
		}
		j = i
	}
	return inside, nil
}
