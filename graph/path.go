package graph

import (
	"container/heap"
	"fmt"
	"math"
	"time"

	"github.com/paulmach/orb"
)

// A path through the graph. Nodes runs from source to destination
// inclusive, Edges holds the edge taken between each consecutive pair.
type Path struct {
	Nodes []string
	Edges []Edge
	Cost  float64
}

// Travel time along the path, to the nearest nanosecond.
func (p Path) Duration() time.Duration {
	return time.Duration(math.Round(p.Cost * float64(time.Second)))
}

// Sum of edge lengths in meters.
func (p Path) Length() float64 {
	total := 0.0
	for _, e := range p.Edges {
		total += e.Length
	}
	return total
}

// The geometry of the path, built by joining the geometry of each
// edge. Consecutive duplicate points are dropped.
func (p Path) Line() orb.LineString {
	line := orb.LineString{}
	for _, e := range p.Edges {
		for _, pt := range e.Path {
			if len(line) > 0 && line[len(line)-1] == pt {
				continue
			}
			line = append(line, pt)
		}
	}
	return line
}

// Cheapest path from src to dst by total edge cost. Returns ErrNotFound
// if either node is missing and ErrNoPath if dst can't be reached.
func (g *Graph) ShortestPath(src, dst string) (Path, error) {
	from, ok := g.index[src]
	if !ok {
		return Path{}, fmt.Errorf("source '%s': %w", src, ErrNotFound)
	}
	to, ok := g.index[dst]
	if !ok {
		return Path{}, fmt.Errorf("destination '%s': %w", dst, ErrNotFound)
	}

	if from == to {
		return Path{Nodes: []string{src}, Edges: []Edge{}, Cost: 0}, nil
	}

	dist := make([]float64, len(g.nodes))
	via := make([]int, len(g.nodes))
	reached := make([]bool, len(g.nodes))
	closed := make([]bool, len(g.nodes))
	for i := range via {
		via[i] = -1
	}

	pq := &priorityQueue{}
	heap.Init(pq)
	reached[from] = true
	heap.Push(pq, &pqItem{node: from, priority: 0})

	seq := 0
	for pq.Len() > 0 {
		current := heap.Pop(pq).(*pqItem).node
		if current == to {
			return g.reconstructPath(via, to, dist[to]), nil
		}
		if closed[current] {
			continue
		}
		closed[current] = true

		for _, e := range g.out[current] {
			neighbor := g.edgeTo[e]
			if closed[neighbor] {
				continue
			}
			tentative := dist[current] + g.edges[e].Cost
			if !reached[neighbor] || tentative < dist[neighbor] {
				reached[neighbor] = true
				dist[neighbor] = tentative
				via[neighbor] = e
				seq++
				heap.Push(pq, &pqItem{node: neighbor, priority: tentative, seq: seq})
			}
		}
	}

	return Path{}, fmt.Errorf("from '%s' to '%s': %w", src, dst, ErrNoPath)
}

func (g *Graph) reconstructPath(via []int, to int, cost float64) Path {
	edges := []Edge{}
	for current := to; via[current] >= 0; {
		e := via[current]
		edges = append(edges, g.edges[e])
		current = g.index[g.edges[e].From]
	}

	path := Path{
		Nodes: make([]string, 0, len(edges)+1),
		Edges: make([]Edge, 0, len(edges)),
		Cost:  cost,
	}
	path.Nodes = append(path.Nodes, edges[len(edges)-1].From)
	for i := len(edges) - 1; i >= 0; i-- {
		path.Edges = append(path.Edges, edges[i])
		path.Nodes = append(path.Nodes, edges[i].To)
	}
	return path
}

type pqItem struct {
	node     int
	priority float64
	seq      int
}

type priorityQueue []*pqItem

func (pq priorityQueue) Len() int { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].priority != pq[j].priority {
		return pq[i].priority < pq[j].priority
	}
	return pq[i].seq < pq[j].seq
}
func (pq priorityQueue) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }

func (pq *priorityQueue) Push(x interface{}) {
	*pq = append(*pq, x.(*pqItem))
}

func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[0 : n-1]
	return item
}
