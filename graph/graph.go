package graph

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/quadtree"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrNoPath        = errors.New("no path found")
	ErrDuplicateNode = errors.New("duplicate node")
)

type NodeKind int

const (
	KindStreet NodeKind = iota
	KindStop
)

func (k NodeKind) String() string {
	switch k {
	case KindStreet:
		return "street"
	case KindStop:
		return "stop"
	}
	return fmt.Sprintf("NodeKind(%d)", int(k))
}

type EdgeKind int

const (
	EdgeStreet EdgeKind = iota
	EdgeBus
	// Street node to stop. Carries the wait penalty.
	EdgeAccess
	// Stop to street node.
	EdgeEgress
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeStreet:
		return "street"
	case EdgeBus:
		return "bus"
	case EdgeAccess:
		return "access"
	case EdgeEgress:
		return "egress"
	}
	return fmt.Sprintf("EdgeKind(%d)", int(k))
}

type Node struct {
	ID       string
	Kind     NodeKind
	Position orb.Point
	Name     string
	Address  string
	Color    string
}

// A directed edge. Cost is travel time in seconds and is what
// shortest path searches minimize. Length is in meters.
type Edge struct {
	From   string
	To     string
	Kind   EdgeKind
	Cost   float64
	Length float64
	Path   orb.LineString
	Color  string
}

// A directed graph with nodes keyed by string ID. Graphs are produced
// by a Builder and are read-only afterwards, so concurrent queries are
// safe.
type Graph struct {
	nodes []Node
	index map[string]int

	edges  []Edge
	edgeTo []int
	out    [][]int

	spatial map[NodeKind]*quadtree.Quadtree
}

func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

func (g *Graph) Node(id string) (Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

// All nodes in insertion order. If kinds are given, only nodes of
// those kinds are included.
func (g *Graph) Nodes(kinds ...NodeKind) []Node {
	if len(kinds) == 0 {
		return slices.Clone(g.nodes)
	}
	nodes := []Node{}
	for _, n := range g.nodes {
		if slices.Contains(kinds, n.Kind) {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// All edges in insertion order.
func (g *Graph) Edges() []Edge {
	return slices.Clone(g.edges)
}

func (g *Graph) OutEdges(id string) []Edge {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	edges := make([]Edge, 0, len(g.out[i]))
	for _, e := range g.out[i] {
		edges = append(edges, g.edges[e])
	}
	return edges
}

// Returns the cheapest edge from -> to, if any.
func (g *Graph) Edge(from, to string) (Edge, bool) {
	i, ok := g.index[from]
	if !ok {
		return Edge{}, false
	}
	j, ok := g.index[to]
	if !ok {
		return Edge{}, false
	}

	best := -1
	for _, e := range g.out[i] {
		if g.edgeTo[e] != j {
			continue
		}
		if best < 0 || g.edges[e].Cost < g.edges[best].Cost {
			best = e
		}
	}
	if best < 0 {
		return Edge{}, false
	}
	return g.edges[best], true
}

// Accumulates nodes and edges, then freezes them into a Graph.
type Builder struct {
	g *Graph
}

func NewBuilder() *Builder {
	return &Builder{
		g: &Graph{
			index: map[string]int{},
		},
	}
}

func validPoint(p orb.Point) bool {
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (b *Builder) AddNode(n Node) error {
	if b.g == nil {
		return fmt.Errorf("builder already built")
	}
	if n.ID == "" {
		return fmt.Errorf("node has empty id")
	}
	if _, found := b.g.index[n.ID]; found {
		return fmt.Errorf("%w: '%s'", ErrDuplicateNode, n.ID)
	}
	if !validPoint(n.Position) {
		return fmt.Errorf("node '%s' has invalid position %v", n.ID, n.Position)
	}

	b.g.index[n.ID] = len(b.g.nodes)
	b.g.nodes = append(b.g.nodes, n)
	b.g.out = append(b.g.out, nil)
	return nil
}

// Adds a directed edge between two existing nodes. If the edge has no
// path, a straight line between the endpoints is used.
func (b *Builder) AddEdge(e Edge) error {
	if b.g == nil {
		return fmt.Errorf("builder already built")
	}
	i, ok := b.g.index[e.From]
	if !ok {
		return fmt.Errorf("edge source '%s': %w", e.From, ErrNotFound)
	}
	j, ok := b.g.index[e.To]
	if !ok {
		return fmt.Errorf("edge target '%s': %w", e.To, ErrNotFound)
	}
	if e.Cost < 0 || math.IsNaN(e.Cost) || math.IsInf(e.Cost, 0) {
		return fmt.Errorf("edge '%s'->'%s' has invalid cost %f", e.From, e.To, e.Cost)
	}

	if len(e.Path) == 0 {
		e.Path = orb.LineString{b.g.nodes[i].Position, b.g.nodes[j].Position}
	}

	b.g.out[i] = append(b.g.out[i], len(b.g.edges))
	b.g.edges = append(b.g.edges, e)
	b.g.edgeTo = append(b.g.edgeTo, j)
	return nil
}

// Copies all nodes and edges of g into the builder, unchanged.
func (b *Builder) Merge(g *Graph) error {
	for _, n := range g.nodes {
		if err := b.AddNode(n); err != nil {
			return err
		}
	}
	for _, e := range g.edges {
		if err := b.AddEdge(e); err != nil {
			return err
		}
	}
	return nil
}

// Freezes the graph and builds its spatial index. The builder can't
// be used afterwards.
func (b *Builder) Build() *Graph {
	g := b.g
	b.g = nil

	bounds := map[NodeKind]orb.Bound{}
	for _, n := range g.nodes {
		if bound, found := bounds[n.Kind]; found {
			bounds[n.Kind] = bound.Extend(n.Position)
		} else {
			bounds[n.Kind] = n.Position.Bound()
		}
	}

	g.spatial = map[NodeKind]*quadtree.Quadtree{}
	for kind, bound := range bounds {
		g.spatial[kind] = quadtree.New(bound.Pad(1e-6))
	}
	for i, n := range g.nodes {
		err := g.spatial[n.Kind].Add(indexedPoint{p: n.Position, i: i})
		if err != nil {
			// Bounds were computed from these very points.
			panic(fmt.Sprintf("indexing node '%s': %v", n.ID, err))
		}
	}

	return g
}
