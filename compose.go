package cinebus

import (
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog/log"

	"github.com/PDelos/CineBus-AP2/graph"
)

const (
	DefaultWalkingSpeed = 1.4 // m/s
	DefaultWaitPenalty  = 3 * time.Minute
)

type ComposeOptions struct {
	// Meters per second, used to turn the length of access edges
	// into travel time.
	WalkingSpeed float64

	// Average wait at a stop, charged when boarding. Zero is fine.
	WaitPenalty time.Duration
}

func DefaultComposeOptions() ComposeOptions {
	return ComposeOptions{
		WalkingSpeed: DefaultWalkingSpeed,
		WaitPenalty:  DefaultWaitPenalty,
	}
}

func (o ComposeOptions) validate() error {
	if o.WalkingSpeed <= 0 {
		return fmt.Errorf("walking speed must be positive, got %f", o.WalkingSpeed)
	}
	if o.WaitPenalty < 0 {
		return fmt.Errorf("wait penalty can't be negative, got %s", o.WaitPenalty)
	}
	return nil
}

// Merges a street graph and a transit graph into a single city graph.
//
// Both inputs are copied unchanged. Each stop is then linked to its
// nearest street node by a pair of edges: street to stop, costing the
// walk plus the wait penalty, and stop to street, costing the walk
// alone. Node ids must not collide between the two graphs.
func Compose(street *graph.Graph, transitGraph *graph.Graph, opts ComposeOptions) (*graph.Graph, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	b := graph.NewBuilder()
	if err := b.Merge(street); err != nil {
		return nil, fmt.Errorf("merging street graph: %w", err)
	}
	if err := b.Merge(transitGraph); err != nil {
		return nil, fmt.Errorf("merging transit graph: %w", err)
	}

	penalty := opts.WaitPenalty.Seconds()
	stops := transitGraph.Nodes(graph.KindStop)
	for _, stop := range stops {
		corner, dist, err := street.Nearest(stop.Position, graph.KindStreet)
		if err != nil {
			return nil, fmt.Errorf("linking stop '%s' to street: %w", stop.ID, err)
		}

		walk := dist / opts.WalkingSpeed

		err = b.AddEdge(graph.Edge{
			From:   corner.ID,
			To:     stop.ID,
			Kind:   graph.EdgeAccess,
			Cost:   walk + penalty,
			Length: dist,
			Path:   orb.LineString{corner.Position, stop.Position},
			Color:  stop.Color,
		})
		if err != nil {
			return nil, fmt.Errorf("adding access edge for '%s': %w", stop.ID, err)
		}

		err = b.AddEdge(graph.Edge{
			From:   stop.ID,
			To:     corner.ID,
			Kind:   graph.EdgeEgress,
			Cost:   walk,
			Length: dist,
			Path:   orb.LineString{stop.Position, corner.Position},
			Color:  stop.Color,
		})
		if err != nil {
			return nil, fmt.Errorf("adding egress edge for '%s': %w", stop.ID, err)
		}
	}

	city := b.Build()
	log.Debug().
		Int("street_nodes", street.NodeCount()).
		Int("stops", len(stops)).
		Int("nodes", city.NodeCount()).
		Int("edges", city.EdgeCount()).
		Msg("composed city graph")

	return city, nil
}
