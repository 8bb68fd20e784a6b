package graph

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

type indexedPoint struct {
	p orb.Point
	i int
}

func (ip indexedPoint) Point() orb.Point {
	return ip.p
}

// Returns the node closest to p by great-circle distance, along with
// that distance in meters. Only nodes of the given kinds are
// considered; with no kinds, all nodes are. Equidistant nodes resolve
// to the one added first.
func (g *Graph) Nearest(p orb.Point, kinds ...NodeKind) (Node, float64, error) {
	if !validPoint(p) {
		return Node{}, 0, fmt.Errorf("invalid position %v", p)
	}
	if len(kinds) == 0 {
		kinds = []NodeKind{KindStreet, KindStop}
	}

	best, bestDist := -1, 0.0
	for _, kind := range kinds {
		i, d, ok := g.nearestOfKind(p, kind)
		if !ok {
			continue
		}
		if best < 0 || d < bestDist || (d == bestDist && i < best) {
			best, bestDist = i, d
		}
	}

	if best < 0 {
		return Node{}, 0, fmt.Errorf("nearest node to %v: %w", p, ErrNotFound)
	}
	return g.nodes[best], bestDist, nil
}

// The quadtree answers planar nearest neighbour queries, which don't
// necessarily agree with haversine. The planar hit gives an upper
// bound on the true distance, and every node within that distance is
// then checked exactly.
func (g *Graph) nearestOfKind(p orb.Point, kind NodeKind) (int, float64, bool) {
	tree, found := g.spatial[kind]
	if !found {
		return 0, 0, false
	}

	candidate := tree.Find(p)
	if candidate == nil {
		return 0, 0, false
	}

	radius := geo.DistanceHaversine(p, candidate.Point())
	bound := geo.NewBoundAroundPoint(p, radius*(1+1e-9)+1e-3)

	best, bestDist := -1, 0.0
	for _, c := range tree.InBound(nil, bound) {
		ip := c.(indexedPoint)
		d := geo.DistanceHaversine(p, ip.p)
		if best < 0 || d < bestDist || (d == bestDist && ip.i < best) {
			best, bestDist = ip.i, d
		}
	}

	if best < 0 {
		// Can't happen unless the bound excludes the candidate itself.
		ip := candidate.(indexedPoint)
		return ip.i, radius, true
	}
	return best, bestDist, true
}

// Returns up to limit nodes of the given kind within radius meters of
// p, closest first. A limit of zero or less means no limit.
func (g *Graph) Within(p orb.Point, radius float64, limit int, kind NodeKind) []Node {
	tree, found := g.spatial[kind]
	if !found {
		return nil
	}

	type hit struct {
		i int
		d float64
	}
	hits := []hit{}
	for _, c := range tree.InBound(nil, geo.NewBoundAroundPoint(p, radius)) {
		ip := c.(indexedPoint)
		d := geo.DistanceHaversine(p, ip.p)
		if d <= radius {
			hits = append(hits, hit{ip.i, d})
		}
	}

	sort.Slice(hits, func(a, b int) bool {
		if hits[a].d != hits[b].d {
			return hits[a].d < hits[b].d
		}
		return hits[a].i < hits[b].i
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	nodes := make([]Node, 0, len(hits))
	for _, h := range hits {
		nodes = append(nodes, g.nodes[h.i])
	}
	return nodes
}
