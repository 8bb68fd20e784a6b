package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/PDelos/CineBus-AP2/graph"
)

type SQLiteConfig struct {
	OnDisk    bool
	Directory string
}

type SQLiteStorage struct {
	SQLiteConfig

	db *sql.DB
}

func NewSQLiteStorage(cfg ...SQLiteConfig) (*SQLiteStorage, error) {
	onDisk := false
	directory := ""
	if len(cfg) > 0 {
		onDisk = cfg[0].OnDisk
		directory = cfg[0].Directory
	}

	sourceName := ":memory:"
	if onDisk {
		sourceName = directory + "/cinebus.db"
	}

	db, err := sql.Open("sqlite3", sourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if !onDisk {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	_, err = db.Exec(`
CREATE TABLE IF NOT EXISTS graph (
    name TEXT NOT NULL,
    hash TEXT NOT NULL,
    built_at TIMESTAMP NOT NULL,
    refreshed_at TIMESTAMP NOT NULL,
    nodes INTEGER NOT NULL,
    edges INTEGER NOT NULL,
    blob BLOB NOT NULL,
PRIMARY KEY (name)
);`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating graph table: %w", err)
	}

	return &SQLiteStorage{
		SQLiteConfig: SQLiteConfig{
			OnDisk:    onDisk,
			Directory: directory,
		},
		db: db,
	}, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) ListGraphs(filter ListGraphsFilter) ([]*GraphMetadata, error) {
	query := `
SELECT
    name,
    hash,
    built_at,
    refreshed_at,
    nodes,
    edges
FROM graph`

	conditions := []string{}
	params := []interface{}{}
	if len(filter.Names) > 0 {
		placeholders := make([]string, len(filter.Names))
		for i, name := range filter.Names {
			placeholders[i] = "?"
			params = append(params, name)
		}
		conditions = append(conditions, fmt.Sprintf("name IN (%s)", strings.Join(placeholders, ", ")))
	}
	if filter.Hash != "" {
		conditions = append(conditions, "hash = ?")
		params = append(params, filter.Hash)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY built_at DESC"

	rows, err := s.db.Query(query, params...)
	if err != nil {
		return nil, fmt.Errorf("listing graphs: %w", err)
	}
	defer rows.Close()

	graphs := []*GraphMetadata{}
	for rows.Next() {
		var metadata GraphMetadata
		err := rows.Scan(
			&metadata.Name,
			&metadata.Hash,
			&metadata.BuiltAt,
			&metadata.RefreshedAt,
			&metadata.Nodes,
			&metadata.Edges,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning graph: %w", err)
		}
		graphs = append(graphs, &metadata)
	}

	return graphs, rows.Err()
}

func (s *SQLiteStorage) WriteGraph(metadata *GraphMetadata, g *graph.Graph) error {
	if err := validateMetadata(metadata); err != nil {
		return err
	}

	blob, err := encodeGraph(g)
	if err != nil {
		return fmt.Errorf("writing graph '%s': %w", metadata.Name, err)
	}

	metadata.Nodes = g.NodeCount()
	metadata.Edges = g.EdgeCount()

	_, err = s.db.Exec(`
INSERT INTO graph (
    name,
    hash,
    built_at,
    refreshed_at,
    nodes,
    edges,
    blob
)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (name) DO UPDATE SET
    hash = excluded.hash,
    built_at = excluded.built_at,
    refreshed_at = excluded.refreshed_at,
    nodes = excluded.nodes,
    edges = excluded.edges,
    blob = excluded.blob
`,
		metadata.Name,
		metadata.Hash,
		metadata.BuiltAt.UTC(),
		metadata.RefreshedAt.UTC(),
		metadata.Nodes,
		metadata.Edges,
		blob,
	)
	if err != nil {
		return fmt.Errorf("writing graph '%s': %w", metadata.Name, err)
	}
	return nil
}

func (s *SQLiteStorage) WriteMetadata(metadata *GraphMetadata) error {
	if err := validateMetadata(metadata); err != nil {
		return err
	}

	res, err := s.db.Exec(`
UPDATE graph SET
    hash = ?,
    built_at = ?,
    refreshed_at = ?
WHERE name = ?`,
		metadata.Hash,
		metadata.BuiltAt.UTC(),
		metadata.RefreshedAt.UTC(),
		metadata.Name,
	)
	if err != nil {
		return fmt.Errorf("writing metadata for '%s': %w", metadata.Name, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("writing metadata for '%s': %w", metadata.Name, err)
	}
	if n == 0 {
		return fmt.Errorf("graph '%s': %w", metadata.Name, ErrGraphNotFound)
	}
	return nil
}

func (s *SQLiteStorage) ReadGraph(name string) (*graph.Graph, *GraphMetadata, error) {
	metadata := &GraphMetadata{}
	var blob []byte
	var builtAt, refreshedAt time.Time

	err := s.db.QueryRow(`
SELECT name, hash, built_at, refreshed_at, nodes, edges, blob
FROM graph
WHERE name = ?`, name).Scan(
		&metadata.Name,
		&metadata.Hash,
		&builtAt,
		&refreshedAt,
		&metadata.Nodes,
		&metadata.Edges,
		&blob,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("graph '%s': %w", name, ErrGraphNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading graph '%s': %w", name, err)
	}
	metadata.BuiltAt = builtAt
	metadata.RefreshedAt = refreshedAt

	g, err := decodeGraph(name, blob)
	if err != nil {
		return nil, nil, err
	}
	return g, metadata, nil
}

func (s *SQLiteStorage) DeleteGraph(name string) error {
	_, err := s.db.Exec(`DELETE FROM graph WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("deleting graph '%s': %w", name, err)
	}
	return nil
}
