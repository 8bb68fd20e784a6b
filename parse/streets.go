package parse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/PDelos/CineBus-AP2/graph"
	"github.com/PDelos/CineBus-AP2/model"
)

// Node-link JSON as written by networkx for an osmnx street graph.
// Node ids are numeric OSM ids; some exporters quote them.
type streetsJSON struct {
	Directed *bool        `json:"directed"`
	Nodes    []streetNode `json:"nodes"`
	Links    []streetLink `json:"links"`
}

type streetNode struct {
	ID   json.Number `json:"id"`
	X    *float64    `json:"x"`
	Y    *float64    `json:"y"`
	Name string      `json:"name"`
}

type streetLink struct {
	Source json.Number `json:"source"`
	Target json.Number `json:"target"`
	Length *float64    `json:"length"`
}

// Parses a street network in node-link JSON and returns a street
// graph. Each link becomes an edge whose cost is its length divided
// by walkingSpeed (m/s), so costs are walking seconds. Links with no
// length use the great-circle distance between their endpoints.
// Undirected graphs get an edge in each direction.
func ParseStreets(data []byte, walkingSpeed float64) (*graph.Graph, error) {
	if walkingSpeed <= 0 || math.IsNaN(walkingSpeed) || math.IsInf(walkingSpeed, 0) {
		return nil, fmt.Errorf("walking speed must be positive, got %f", walkingSpeed)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	doc := streetsJSON{}
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "unmarshaling streets json")
	}

	directed := true
	if doc.Directed != nil {
		directed = *doc.Directed
	}

	b := graph.NewBuilder()
	positions := make(map[string]orb.Point, len(doc.Nodes))

	for i, n := range doc.Nodes {
		id := n.ID.String()
		if id == "" {
			return nil, fmt.Errorf("missing id (node %d)", i)
		}
		if n.X == nil || n.Y == nil {
			return nil, fmt.Errorf("missing x or y for node '%s' (node %d)", id, i)
		}

		p := orb.Point{*n.X, *n.Y}
		err := b.AddNode(graph.Node{
			ID:       id,
			Kind:     graph.KindStreet,
			Position: p,
			Name:     n.Name,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "node %d", i)
		}
		positions[id] = p
	}

	for i, l := range doc.Links {
		src, dst := l.Source.String(), l.Target.String()
		from, ok := positions[src]
		if !ok {
			return nil, fmt.Errorf("link %d references unknown node '%s'", i, src)
		}
		to, ok := positions[dst]
		if !ok {
			return nil, fmt.Errorf("link %d references unknown node '%s'", i, dst)
		}

		length := model.Distance(from, to)
		if l.Length != nil {
			length = *l.Length
		}
		if length < 0 || math.IsNaN(length) {
			return nil, fmt.Errorf("link %d from '%s' to '%s' has invalid length %f", i, src, dst, length)
		}

		edge := graph.Edge{
			From:   src,
			To:     dst,
			Kind:   graph.EdgeStreet,
			Cost:   length / walkingSpeed,
			Length: length,
			Path:   orb.LineString{from, to},
		}
		if err := b.AddEdge(edge); err != nil {
			return nil, errors.Wrapf(err, "link %d", i)
		}

		if !directed {
			edge.From, edge.To = dst, src
			edge.Path = orb.LineString{to, from}
			if err := b.AddEdge(edge); err != nil {
				return nil, errors.Wrapf(err, "link %d (reverse)", i)
			}
		}
	}

	g := b.Build()
	log.Debug().
		Int("nodes", g.NodeCount()).
		Int("edges", g.EdgeCount()).
		Bool("directed", directed).
		Msg("parsed street graph")

	return g, nil
}
