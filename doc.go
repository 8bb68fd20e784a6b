// Package cinebus finds the earliest film screening a rider can reach
// in time, walking and taking the bus.
//
// A city graph is built by composing a street graph with a transit
// graph (see Compose and BuildCityGraph). A City routes over it, and
// FindEarliestFeasible scans screenings in start time order using the
// City as its travel time oracle. Manager keeps a city graph built from
// the open data datasets, cached in storage.
package cinebus
