package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/koseq/internal/hits"
)

// Stages recorded in the runs table.
const (
	StageScan    = "scan"
	StageExtract = "extract"
)

// RunCounts are the totals stored when a run finishes.
type RunCounts struct {
	LinesScanned int64
	HitsFound    int64
	Wanted       int64
	Extracted    int64
}

type extractionRow struct {
	ko, genomeID, geneID string
	found                bool
	seqLength            int64
}

type hitRow struct {
	ko  string
	hit hits.GeneHit
}

// Run buffers the rows of one scan or extraction and writes them on Finish.
type Run struct {
	ID    string
	Stage string
	KO    string

	store       *Store
	hits        []hitRow
	extractions []extractionRow
	finished    bool
}

// BeginRun inserts a runs row and returns a Run collecting its results.
func (s *Store) BeginRun(stage, ko string, input FileFingerprint) (*Run, error) {
	r := &Run{
		ID:    uuid.NewString(),
		Stage: stage,
		KO:    ko,
		store: s,
	}
	_, err := s.db.Exec(`INSERT INTO runs (run_id, stage, ko, input_path, input_size, input_mtime, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, stage, ko, input.Path, input.Size, input.modTimeValue(), time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return r, nil
}

// AddHit buffers a hit row.
func (r *Run) AddHit(ko string, h hits.GeneHit) error {
	if r.finished {
		return fmt.Errorf("run %s already finished", r.ID)
	}
	r.hits = append(r.hits, hitRow{ko: ko, hit: h})
	return nil
}

// AddExtraction buffers the outcome of extracting one gene.
func (r *Run) AddExtraction(ko, genomeID, geneID string, found bool, seqLength int) error {
	if r.finished {
		return fmt.Errorf("run %s already finished", r.ID)
	}
	r.extractions = append(r.extractions, extractionRow{
		ko: ko, genomeID: genomeID, geneID: geneID,
		found: found, seqLength: int64(seqLength),
	})
	return nil
}

// Finish bulk-writes buffered rows with the Appender API and stores counts.
func (r *Run) Finish(counts RunCounts) error {
	if r.finished {
		return nil
	}
	r.finished = true

	if len(r.hits) > 0 {
		if err := r.store.appendRows("ko_hits", len(r.hits), func(i int) []driver.Value {
			h := r.hits[i]
			return []driver.Value{r.ID, h.ko, h.hit.GenomeID, h.hit.GeneID, h.hit.EValue}
		}); err != nil {
			return fmt.Errorf("write hits: %w", err)
		}
	}
	if len(r.extractions) > 0 {
		if err := r.store.appendRows("extractions", len(r.extractions), func(i int) []driver.Value {
			e := r.extractions[i]
			return []driver.Value{r.ID, e.ko, e.genomeID, e.geneID, e.found, e.seqLength}
		}); err != nil {
			return fmt.Errorf("write extractions: %w", err)
		}
	}

	_, err := r.store.db.Exec(`UPDATE runs SET finished_at=?, lines_scanned=?, hits_found=?, wanted=?, extracted=?
		WHERE run_id=?`,
		time.Now().UTC(), counts.LinesScanned, counts.HitsFound, counts.Wanted, counts.Extracted, r.ID)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	r.hits = nil
	r.extractions = nil
	return nil
}

// appendRows streams n rows into table through a DuckDB appender.
func (s *Store) appendRows(table string, n int, row func(i int) []driver.Value) error {
	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", table)
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for i := 0; i < n; i++ {
		if err := appender.AppendRow(row(i)...); err != nil {
			return fmt.Errorf("append %s row: %w", table, err)
		}
	}

	return appender.Flush()
}
