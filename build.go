package cinebus

import (
	"fmt"
	"time"

	"github.com/PDelos/CineBus-AP2/graph"
	"github.com/PDelos/CineBus-AP2/parse"
	"github.com/PDelos/CineBus-AP2/transit"
)

// Raw inputs for a city graph.
type Datasets struct {
	// GeoJSON route geometry, one feature per line and direction.
	Routes []byte

	// GeoJSON stops, in physical order per line.
	Stops []byte

	// Street network in node-link JSON.
	Streets []byte
}

type BuildOptions struct {
	WalkingSpeed float64 // m/s
	BusSpeed     float64 // m/s
	WaitPenalty  time.Duration
}

func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		WalkingSpeed: DefaultWalkingSpeed,
		BusSpeed:     transit.DefaultBusSpeed,
		WaitPenalty:  DefaultWaitPenalty,
	}
}

// Parses the datasets and composes the street and transit graphs into
// a city graph.
func BuildCityGraph(data Datasets, opts BuildOptions) (*graph.Graph, error) {
	lines, err := parse.ParseNetwork(data.Routes, data.Stops)
	if err != nil {
		return nil, fmt.Errorf("parsing bus network: %w", err)
	}

	transitGraph, err := transit.BuildGraph(lines, transit.Options{BusSpeed: opts.BusSpeed})
	if err != nil {
		return nil, fmt.Errorf("building transit graph: %w", err)
	}

	street, err := parse.ParseStreets(data.Streets, opts.WalkingSpeed)
	if err != nil {
		return nil, fmt.Errorf("parsing streets: %w", err)
	}

	city, err := Compose(street, transitGraph, ComposeOptions{
		WalkingSpeed: opts.WalkingSpeed,
		WaitPenalty:  opts.WaitPenalty,
	})
	if err != nil {
		return nil, fmt.Errorf("composing: %w", err)
	}

	return city, nil
}
