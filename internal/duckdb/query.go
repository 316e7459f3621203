package duckdb

import (
	"database/sql"
	"fmt"
	"time"
)

// RunInfo is one row of the runs table.
type RunInfo struct {
	ID         string
	Stage      string
	KO         string
	InputPath  string
	StartedAt  time.Time
	FinishedAt *time.Time
	RunCounts
}

// ExtractionStats summarizes extraction outcomes for a KO.
type ExtractionStats struct {
	Wanted    int64
	Extracted int64
	Genomes   int64
}

// Runs lists runs for ko, newest first. An empty ko lists every run.
func (s *Store) Runs(ko string) ([]RunInfo, error) {
	query := `SELECT run_id, stage, ko, input_path, started_at, finished_at,
		COALESCE(lines_scanned, 0), COALESCE(hits_found, 0), COALESCE(wanted, 0), COALESCE(extracted, 0)
		FROM runs`
	var args []any
	if ko != "" {
		query += ` WHERE ko = ?`
		args = append(args, ko)
	}
	query += ` ORDER BY started_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var r RunInfo
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.Stage, &r.KO, &r.InputPath, &r.StartedAt, &finished,
			&r.LinesScanned, &r.HitsFound, &r.Wanted, &r.Extracted); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// HitCountsByGenome returns the number of distinct hit genes per genome
// recorded for ko across all scan runs.
func (s *Store) HitCountsByGenome(ko string) (map[string]int64, error) {
	rows, err := s.db.Query(`SELECT genome_id, COUNT(DISTINCT gene_id)
		FROM ko_hits
		WHERE ko = ?
		GROUP BY genome_id`, ko)
	if err != nil {
		return nil, fmt.Errorf("query hit counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var genome string
		var n int64
		if err := rows.Scan(&genome, &n); err != nil {
			return nil, fmt.Errorf("scan hit count: %w", err)
		}
		counts[genome] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hit counts: %w", err)
	}
	return counts, nil
}

// ExtractionStats summarizes the most recent extraction run for ko.
func (s *Store) ExtractionStats(ko string) (ExtractionStats, error) {
	var st ExtractionStats
	err := s.db.QueryRow(`SELECT COUNT(*),
		COUNT(CASE WHEN found THEN 1 END),
		COUNT(DISTINCT genome_id)
		FROM extractions
		WHERE run_id = (
			SELECT run_id FROM runs
			WHERE ko = ? AND stage = ?
			ORDER BY started_at DESC
			LIMIT 1
		)`, ko, StageExtract).Scan(&st.Wanted, &st.Extracted, &st.Genomes)
	if err != nil {
		return ExtractionStats{}, fmt.Errorf("query extraction stats: %w", err)
	}
	return st, nil
}
