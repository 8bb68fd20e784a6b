package cinebus

import (
	"fmt"
	"time"

	"github.com/PDelos/CineBus-AP2/graph"
	"github.com/PDelos/CineBus-AP2/model"
)

// Estimates travel time between two arbitrary points.
type Router interface {
	TravelTime(from, to model.Coordinate) (time.Duration, error)
}

// Routing over a composed city graph. Read-only, so a City can serve
// any number of concurrent queries.
type City struct {
	Graph   *graph.Graph
	BuiltAt time.Time
}

func NewCity(g *graph.Graph) *City {
	return &City{
		Graph:   g,
		BuiltAt: time.Now().UTC(),
	}
}

// Snaps a coordinate to the closest node of the city graph, street
// or stop. Fails with graph.ErrNotFound on an empty graph.
func (c *City) NearestNode(p model.Coordinate) (graph.Node, error) {
	n, _, err := c.Graph.Nearest(p)
	if err != nil {
		return graph.Node{}, err
	}
	return n, nil
}

// Snaps both coordinates and returns the cheapest path between them.
// Fails with graph.ErrNoPath if the snapped nodes aren't connected.
func (c *City) ShortestPath(from, to model.Coordinate) (graph.Path, error) {
	src, err := c.NearestNode(from)
	if err != nil {
		return graph.Path{}, fmt.Errorf("snapping origin: %w", err)
	}
	dst, err := c.NearestNode(to)
	if err != nil {
		return graph.Path{}, fmt.Errorf("snapping destination: %w", err)
	}

	return c.Graph.ShortestPath(src.ID, dst.ID)
}

func (c *City) TravelTime(from, to model.Coordinate) (time.Duration, error) {
	path, err := c.ShortestPath(from, to)
	if err != nil {
		return 0, err
	}
	return path.Duration(), nil
}

// Returns stops within radius meters of p, ordered by distance.
//
// If limit is >0, at most limit stops are returned.
func (c *City) NearbyStops(p model.Coordinate, radius float64, limit int) []graph.Node {
	return c.Graph.Within(p, radius, limit, graph.KindStop)
}
