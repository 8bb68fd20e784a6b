package transit

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Walks the polyline forward from start, consuming points while the
// accumulated great-circle distance stays within target meters.
//
// Returns the index of the first point not consumed, and the consumed
// points, starting point included. A non-positive target consumes
// nothing and leaves the index where it was, as does a start index
// past the end of the polyline.
func Segment(start int, target float64, polyline orb.LineString) (int, []orb.Point) {
	if start < 0 {
		start = 0
	}
	if target <= 0 || start >= len(polyline) {
		return start, []orb.Point{}
	}

	points := []orb.Point{polyline[start]}
	covered := 0.0
	i := start
	for i < len(polyline)-1 {
		step := geo.DistanceHaversine(polyline[i], polyline[i+1])
		if covered+step > target {
			break
		}
		covered += step
		i++
		points = append(points, polyline[i])
	}

	return i + 1, points
}
