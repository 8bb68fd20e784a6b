package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/PDelos/CineBus-AP2/graph"
)

type PSQLStorage struct {
	db *sql.DB
}

// Creates a new Postgres Storage using the provided connection string.
//
// If clearDB is true, the database will be cleared on startup. You
// probably only want this for testing.
func NewPSQLStorage(connStr string, clearDB bool) (*PSQLStorage, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	if clearDB {
		_, err = db.Exec(`DROP TABLE IF EXISTS graph;`)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("clearing db: %w", err)
		}
	}

	_, err = db.Exec(`
CREATE TABLE IF NOT EXISTS graph (
    name TEXT NOT NULL,
    hash TEXT NOT NULL,
    built_at TIMESTAMPTZ NOT NULL,
    refreshed_at TIMESTAMPTZ NOT NULL,
    nodes INTEGER NOT NULL,
    edges INTEGER NOT NULL,
    blob BYTEA NOT NULL,
    PRIMARY KEY (name)
);`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating graph table: %w", err)
	}

	return &PSQLStorage{db: db}, nil
}

func (s *PSQLStorage) Close() error {
	return s.db.Close()
}

func (s *PSQLStorage) ListGraphs(filter ListGraphsFilter) ([]*GraphMetadata, error) {
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
		params = append(params, pq.Array(filter.Names))
		conditions = append(conditions, fmt.Sprintf("name = ANY($%d)", len(params)))
	}
	if filter.Hash != "" {
		params = append(params, filter.Hash)
		conditions = append(conditions, fmt.Sprintf("hash = $%d", len(params)))
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

func (s *PSQLStorage) WriteGraph(metadata *GraphMetadata, g *graph.Graph) error {
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
VALUES ($1, $2, $3, $4, $5, $6, $7)
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

func (s *PSQLStorage) WriteMetadata(metadata *GraphMetadata) error {
	if err := validateMetadata(metadata); err != nil {
		return err
	}

	res, err := s.db.Exec(`
UPDATE graph SET
    hash = $1,
    built_at = $2,
    refreshed_at = $3
WHERE name = $4`,
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

func (s *PSQLStorage) ReadGraph(name string) (*graph.Graph, *GraphMetadata, error) {
	metadata := &GraphMetadata{}
	var blob []byte

	err := s.db.QueryRow(`
SELECT name, hash, built_at, refreshed_at, nodes, edges, blob
FROM graph
WHERE name = $1`, name).Scan(
		&metadata.Name,
		&metadata.Hash,
		&metadata.BuiltAt,
		&metadata.RefreshedAt,
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

	g, err := decodeGraph(name, blob)
	if err != nil {
		return nil, nil, err
	}
	return g, metadata, nil
}

func (s *PSQLStorage) DeleteGraph(name string) error {
	_, err := s.db.Exec(`DELETE FROM graph WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("deleting graph '%s': %w", name, err)
	}
	return nil
}
