package transit

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/rs/zerolog/log"

	"github.com/PDelos/CineBus-AP2/graph"
	"github.com/PDelos/CineBus-AP2/model"
)

// 30 km/h
const DefaultBusSpeed = 30.0 * 1000 / 3600

type Options struct {
	// Average bus speed in meters per second.
	BusSpeed float64
}

func (o Options) validate() error {
	if o.BusSpeed <= 0 {
		return fmt.Errorf("bus speed must be positive, got %f", o.BusSpeed)
	}
	return nil
}

// Builds the transit graph: a node per stop and a directed edge per
// consecutive stop pair on a line. Edges carry the polyline section
// between their stops, and cost the stop distance divided by bus
// speed. Lines with fewer than two stops contribute no edges.
func BuildGraph(lines []model.BusLine, opts Options) (*graph.Graph, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	b := graph.NewBuilder()
	for _, line := range lines {
		if err := ValidateLine(line); err != nil {
			return nil, err
		}
		if err := addLine(b, line, opts); err != nil {
			return nil, fmt.Errorf("adding line '%s': %w", line.ID, err)
		}
	}

	g := b.Build()
	log.Debug().
		Int("lines", len(lines)).
		Int("stops", g.NodeCount()).
		Int("edges", g.EdgeCount()).
		Msg("built transit graph")

	return g, nil
}

func addLine(b *graph.Builder, line model.BusLine, opts Options) error {
	// A circular line may pass the same stop twice.
	added := map[string]bool{}
	for _, stop := range line.Stops {
		if added[stop.ID] {
			continue
		}
		err := b.AddNode(graph.Node{
			ID:       stop.ID,
			Kind:     graph.KindStop,
			Position: stop.Position,
			Name:     stop.Name,
			Address:  stop.Address,
			Color:    line.Color,
		})
		if err != nil {
			return err
		}
		added[stop.ID] = true
	}

	index := 0
	for i := 1; i < len(line.Stops); i++ {
		src, dst := line.Stops[i-1], line.Stops[i]

		var between []orb.Point
		if index < len(line.Route) {
			target := dst.DistPrev - geo.DistanceHaversine(src.Position, line.Route[index])
			index, between = Segment(index, target, line.Route)
		}

		err := b.AddEdge(graph.Edge{
			From:   src.ID,
			To:     dst.ID,
			Kind:   graph.EdgeBus,
			Cost:   dst.DistPrev / opts.BusSpeed,
			Length: dst.DistPrev,
			Path:   edgePath(src.Position, dst.Position, between),
			Color:  line.Color,
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// [src] + between + [dst], without repeating the stop positions when
// the polyline passes exactly through them.
func edgePath(src, dst orb.Point, between []orb.Point) orb.LineString {
	for len(between) > 0 && between[0] == src {
		between = between[1:]
	}
	for len(between) > 0 && between[len(between)-1] == dst {
		between = between[:len(between)-1]
	}

	path := make(orb.LineString, 0, len(between)+2)
	path = append(path, src)
	path = append(path, between...)
	path = append(path, dst)
	return path
}
