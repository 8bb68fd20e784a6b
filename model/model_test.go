package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	// orb uses the WGS84 equatorial radius, so one degree along the
	// equator or a meridian is 6378137*pi/180 meters.
	const oneDegree = 111319.490793

	assert.InDelta(t, oneDegree, Distance(Coordinate{0, 0}, Coordinate{1, 0}), 0.01)
	assert.InDelta(t, oneDegree, Distance(Coordinate{0, 0}, Coordinate{0, 1}), 0.01)
	assert.InDelta(t, 2*oneDegree, Distance(Coordinate{-1, 0}, Coordinate{1, 0}), 0.01)

	// Same point, and symmetry
	bcn := Coordinate{2.1734, 41.3851}
	sagrada := Coordinate{2.1744, 41.4036}
	assert.Equal(t, 0.0, Distance(bcn, bcn))
	assert.InDelta(t, Distance(bcn, sagrada), Distance(sagrada, bcn), 1e-9)

	// Roughly 2 km between Plaça Catalunya and Sagrada Família
	assert.InDelta(t, 2060, Distance(bcn, sagrada), 30)

	// Longitude first. Swapping the axes lands somewhere else
	// entirely.
	assert.Greater(t, Distance(bcn, Coordinate{41.3851, 2.1734}), 1000000.0)
}

func TestStopID(t *testing.T) {
	assert.Equal(t, "1234-56", StopID("1234", "56"))
	assert.NotEqual(t, StopID("1234", "56"), StopID("1234", "57"))
}
