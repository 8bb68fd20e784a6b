package storage

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/PDelos/CineBus-AP2/graph"
)

var ErrGraphNotFound = errors.New("graph not found")

// Persists built graphs as opaque blobs, keyed by name.
type Storage interface {
	// Retrieves metadata for all stored graphs matching the given
	// filter, most recently built first.
	ListGraphs(filter ListGraphsFilter) ([]*GraphMetadata, error)

	// Stores a graph under metadata.Name, replacing any graph
	// already stored under that name. Node and edge counts in
	// metadata are filled in from g.
	WriteGraph(metadata *GraphMetadata, g *graph.Graph) error

	// Updates the metadata of an existing graph, leaving the graph
	// itself alone. Returns ErrGraphNotFound if there's no graph
	// by that name.
	WriteMetadata(metadata *GraphMetadata) error

	// Loads a graph. Returns ErrGraphNotFound if there's no graph by
	// that name.
	ReadGraph(name string) (*graph.Graph, *GraphMetadata, error)

	DeleteGraph(name string) error
}

type ListGraphsFilter struct {
	// If set, only include graphs with one of these names.
	Names []string

	// If set, only include graphs built from sources with this hash.
	Hash string
}

type GraphMetadata struct {
	Name string

	// Hash of the source datasets the graph was built from.
	Hash string

	// When the graph was built, and when its sources were last
	// checked for changes.
	BuiltAt     time.Time
	RefreshedAt time.Time

	Nodes int
	Edges int
}

func (m *GraphMetadata) matches(filter ListGraphsFilter) bool {
	if len(filter.Names) > 0 {
		found := false
		for _, name := range filter.Names {
			if name == m.Name {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.Hash != "" && filter.Hash != m.Hash {
		return false
	}
	return true
}

func encodeGraph(g *graph.Graph) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := g.Encode(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGraph(name string, blob []byte) (*graph.Graph, error) {
	g, err := graph.Decode(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("graph '%s': %w", name, err)
	}
	return g, nil
}

func validateMetadata(metadata *GraphMetadata) error {
	if metadata == nil || metadata.Name == "" {
		return fmt.Errorf("graph metadata must have a name")
	}
	return nil
}
