package graph

import (
	"encoding/gob"
	"fmt"
	"io"
)

const snapshotVersion = 1

type snapshot struct {
	Version int
	Nodes   []Node
	Edges   []Edge
}

// Writes the graph to w in gob format. Decode restores it, spatial
// index included.
func (g *Graph) Encode(w io.Writer) error {
	err := gob.NewEncoder(w).Encode(snapshot{
		Version: snapshotVersion,
		Nodes:   g.nodes,
		Edges:   g.edges,
	})
	if err != nil {
		return fmt.Errorf("encoding graph: %w", err)
	}
	return nil
}

func Decode(r io.Reader) (*Graph, error) {
	s := snapshot{}
	if err := gob.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decoding graph: %w", err)
	}
	if s.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported graph snapshot version %d", s.Version)
	}

	b := NewBuilder()
	for _, n := range s.Nodes {
		if err := b.AddNode(n); err != nil {
			return nil, fmt.Errorf("decoding graph: %w", err)
		}
	}
	for _, e := range s.Edges {
		if err := b.AddEdge(e); err != nil {
			return nil, fmt.Errorf("decoding graph: %w", err)
		}
	}
	return b.Build(), nil
}
