package storage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/PDelos/CineBus-AP2/graph"
)

// In memory implementation of Storage below. Graphs are kept encoded,
// so reads return a fresh copy like the other backends do.

type memoryRecord struct {
	metadata GraphMetadata
	blob     []byte
}

type MemoryStorage struct {
	mutex  sync.Mutex
	graphs map[string]*memoryRecord
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		graphs: map[string]*memoryRecord{},
	}
}

func (s *MemoryStorage) ListGraphs(filter ListGraphsFilter) ([]*GraphMetadata, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	graphs := []*GraphMetadata{}
	for _, record := range s.graphs {
		if !record.metadata.matches(filter) {
			continue
		}
		metadata := record.metadata
		graphs = append(graphs, &metadata)
	}
	sort.Slice(graphs, func(i, j int) bool {
		return graphs[i].BuiltAt.After(graphs[j].BuiltAt)
	})
	return graphs, nil
}

func (s *MemoryStorage) WriteGraph(metadata *GraphMetadata, g *graph.Graph) error {
	if err := validateMetadata(metadata); err != nil {
		return err
	}

	blob, err := encodeGraph(g)
	if err != nil {
		return fmt.Errorf("writing graph '%s': %w", metadata.Name, err)
	}

	metadata.Nodes = g.NodeCount()
	metadata.Edges = g.EdgeCount()

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.graphs[metadata.Name] = &memoryRecord{
		metadata: *metadata,
		blob:     blob,
	}
	return nil
}

func (s *MemoryStorage) WriteMetadata(metadata *GraphMetadata) error {
	if err := validateMetadata(metadata); err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	record, found := s.graphs[metadata.Name]
	if !found {
		return fmt.Errorf("graph '%s': %w", metadata.Name, ErrGraphNotFound)
	}
	record.metadata.Hash = metadata.Hash
	record.metadata.BuiltAt = metadata.BuiltAt
	record.metadata.RefreshedAt = metadata.RefreshedAt
	return nil
}

func (s *MemoryStorage) ReadGraph(name string) (*graph.Graph, *GraphMetadata, error) {
	s.mutex.Lock()
	record, found := s.graphs[name]
	var metadata GraphMetadata
	var blob []byte
	if found {
		metadata = record.metadata
		blob = record.blob
	}
	s.mutex.Unlock()

	if !found {
		return nil, nil, fmt.Errorf("graph '%s': %w", name, ErrGraphNotFound)
	}

	g, err := decodeGraph(name, blob)
	if err != nil {
		return nil, nil, err
	}

	return g, &metadata, nil
}

func (s *MemoryStorage) DeleteGraph(name string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.graphs, name)
	return nil
}
