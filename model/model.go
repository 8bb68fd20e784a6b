package model

import (
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Holds all external facing types and constants.

// A position as (longitude, latitude). orb.Point stores longitude
// first, and nothing in this module ever stores latitude first.
type Coordinate = orb.Point

// Great-circle distance in meters between two coordinates.
func Distance(a, b Coordinate) float64 {
	return geo.DistanceHaversine(a, b)
}

// A bus stop as seen by a single line, in a single direction.
type Stop struct {
	// Unique across all lines. See StopID.
	ID       string
	Code     string
	Name     string
	Address  string
	Position Coordinate

	// Distance in meters from the previous stop on the same line,
	// as reported by the stops dataset. Zero for the first stop.
	DistPrev float64
}

// Builds a stop identifier from a raw stop code and a line id. The
// same physical stop served by two lines yields two ids.
func StopID(code string, lineID string) string {
	return fmt.Sprintf("%s-%s", code, lineID)
}

// A bus line in one direction of travel. Stops are in physical order,
// Route is the full polyline followed by the vehicle.
type BusLine struct {
	ID    string
	Name  string
	Color string
	Stops []Stop
	Route orb.LineString
}

// A time-stamped event at a location, e.g. a film screening.
type Event struct {
	Title    string
	Cinema   string
	Location Coordinate
	Start    time.Time
	Language string
}

// Screening language variants used by the showtime catalog.
const (
	LanguageOriginal = "Original"
	LanguageDubbed   = "Doblada"
)
