package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/PDelos/CineBus-AP2/graph"
)

// Stores each graph as a gob file next to a small JSON metadata file.
type FileStorage struct {
	Directory string
}

type fileMetadata struct {
	Name        string `json:"name"`
	Hash        string `json:"hash"`
	BuiltAt     string `json:"built_at"`
	RefreshedAt string `json:"refreshed_at"`
	Nodes       int    `json:"nodes"`
	Edges       int    `json:"edges"`
}

func NewFileStorage(directory string) (*FileStorage, error) {
	err := os.MkdirAll(directory, 0755)
	if err != nil {
		return nil, fmt.Errorf("creating directory: %w", err)
	}
	return &FileStorage{Directory: directory}, nil
}

func (s *FileStorage) paths(name string) (string, string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", "", fmt.Errorf("invalid graph name '%s'", name)
	}
	base := filepath.Join(s.Directory, name)
	return base + ".gob", base + ".json", nil
}

func (s *FileStorage) ListGraphs(filter ListGraphsFilter) ([]*GraphMetadata, error) {
	matches, err := filepath.Glob(filepath.Join(s.Directory, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("listing graphs: %w", err)
	}

	graphs := []*GraphMetadata{}
	for _, path := range matches {
		metadata, err := readMetadataFile(path)
		if err != nil {
			return nil, err
		}
		if metadata.matches(filter) {
			graphs = append(graphs, metadata)
		}
	}
	sort.Slice(graphs, func(i, j int) bool {
		return graphs[i].BuiltAt.After(graphs[j].BuiltAt)
	})
	return graphs, nil
}

func (s *FileStorage) WriteGraph(metadata *GraphMetadata, g *graph.Graph) error {
	if err := validateMetadata(metadata); err != nil {
		return err
	}
	gobPath, jsonPath, err := s.paths(metadata.Name)
	if err != nil {
		return err
	}

	blob, err := encodeGraph(g)
	if err != nil {
		return fmt.Errorf("writing graph '%s': %w", metadata.Name, err)
	}
	if err := writeFileAtomic(gobPath, blob); err != nil {
		return fmt.Errorf("writing graph '%s': %w", metadata.Name, err)
	}

	metadata.Nodes = g.NodeCount()
	metadata.Edges = g.EdgeCount()
	return writeMetadataFile(jsonPath, metadata)
}

func (s *FileStorage) WriteMetadata(metadata *GraphMetadata) error {
	if err := validateMetadata(metadata); err != nil {
		return err
	}
	_, jsonPath, err := s.paths(metadata.Name)
	if err != nil {
		return err
	}

	existing, err := readMetadataFile(jsonPath)
	if err != nil {
		return err
	}
	existing.Hash = metadata.Hash
	existing.BuiltAt = metadata.BuiltAt
	existing.RefreshedAt = metadata.RefreshedAt
	return writeMetadataFile(jsonPath, existing)
}

func (s *FileStorage) ReadGraph(name string) (*graph.Graph, *GraphMetadata, error) {
	gobPath, jsonPath, err := s.paths(name)
	if err != nil {
		return nil, nil, err
	}

	metadata, err := readMetadataFile(jsonPath)
	if err != nil {
		return nil, nil, err
	}

	blob, err := os.ReadFile(gobPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("graph '%s': %w", name, ErrGraphNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading graph '%s': %w", name, err)
	}

	g, err := decodeGraph(name, blob)
	if err != nil {
		return nil, nil, err
	}
	return g, metadata, nil
}

func (s *FileStorage) DeleteGraph(name string) error {
	gobPath, jsonPath, err := s.paths(name)
	if err != nil {
		return err
	}
	for _, path := range []string{jsonPath, gobPath} {
		err := os.Remove(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("deleting graph '%s': %w", name, err)
		}
	}
	return nil
}

func readMetadataFile(path string) (*GraphMetadata, error) {
	name := strings.TrimSuffix(filepath.Base(path), ".json")

	buf, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("graph '%s': %w", name, ErrGraphNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading metadata for '%s': %w", name, err)
	}

	record := fileMetadata{}
	if err := json.Unmarshal(buf, &record); err != nil {
		return nil, fmt.Errorf("unmarshalling metadata for '%s': %w", name, err)
	}

	builtAt, err := time.Parse(time.RFC3339Nano, record.BuiltAt)
	if err != nil {
		return nil, fmt.Errorf("parsing built_at for '%s': %w", name, err)
	}
	refreshedAt, err := time.Parse(time.RFC3339Nano, record.RefreshedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing refreshed_at for '%s': %w", name, err)
	}

	return &GraphMetadata{
		Name:        record.Name,
		Hash:        record.Hash,
		BuiltAt:     builtAt,
		RefreshedAt: refreshedAt,
		Nodes:       record.Nodes,
		Edges:       record.Edges,
	}, nil
}

func writeMetadataFile(path string, metadata *GraphMetadata) error {
	buf, err := json.Marshal(fileMetadata{
		Name:        metadata.Name,
		Hash:        metadata.Hash,
		BuiltAt:     metadata.BuiltAt.UTC().Format(time.RFC3339Nano),
		RefreshedAt: metadata.RefreshedAt.UTC().Format(time.RFC3339Nano),
		Nodes:       metadata.Nodes,
		Edges:       metadata.Edges,
	})
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}
	if err := writeFileAtomic(path, buf); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}
	return nil
}

// Writes to a temporary file and renames it into place, so readers
// never see a partial file.
func writeFileAtomic(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}
