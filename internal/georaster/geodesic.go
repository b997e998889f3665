package georaster

import "github.com/golang/geo/s2"

// earthRadiusMeters is the mean radius used by the query engine's
// distance_in_meters so geographic rasters line up with its other geo
// functions.
const earthRadiusMeters = 6372797.560856

// distanceInMeters returns the great-circle distance between two
// longitude/latitude points given in degrees.
func distanceInMeters(fromLon, fromLat, toLon, toLat float64) float64 {
	from := s2.LatLngFromDegrees(fromLat, fromLon)
	to := s2.LatLngFromDegrees(toLat, toLon)
	return from.Distance(to).Radians() * earthRadiusMeters
}
