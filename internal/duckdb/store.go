// Package duckdb provides an optional DuckDB ledger of scan and extraction
// runs. Each run keeps its hits and per-gene extraction outcomes so results
// for many KOs can be queried together.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection for the run ledger.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database path, empty for in-memory stores.
func (s *Store) Path() string {
	return s.path
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id VARCHAR PRIMARY KEY,
			stage VARCHAR,
			ko VARCHAR,
			input_path VARCHAR,
			input_size BIGINT,
			input_mtime TIMESTAMP,
			started_at TIMESTAMP,
			finished_at TIMESTAMP,
			lines_scanned BIGINT,
			hits_found BIGINT,
			wanted BIGINT,
			extracted BIGINT
		)`,
		`CREATE TABLE IF NOT EXISTS ko_hits (
			run_id VARCHAR,
			ko VARCHAR,
			genome_id VARCHAR,
			gene_id VARCHAR,
			e_value VARCHAR
		)`,
		`CREATE TABLE IF NOT EXISTS extractions (
			run_id VARCHAR,
			ko VARCHAR,
			genome_id VARCHAR,
			gene_id VARCHAR,
			found BOOLEAN,
			seq_length BIGINT
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
