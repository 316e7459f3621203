package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/koseq/internal/duckdb"
)

func (a *app) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scan for a KO and extract its sequences in one go",
		Long: `Run "scan" followed by "extract" for one KO. The protein directory is checked
before scanning; when the scan finds no hits, extraction is skipped.`,
		Example: `  koseq run --ko K00954`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ko := a.cfg.KO
			if _, err := a.openLayout(); err != nil {
				return err
			}

			hitsPath := a.cfg.HitsPath(ko)
			res, err := a.runScan(cmd.Context(), ko, hitsPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Scanned %d lines, found %d hits for %s\n", res.LinesScanned, res.HitsFound, ko)
			if res.HitsFound == 0 {
				a.logger.Warn("no hits found, skipping extraction", zap.String("ko", ko))
				return nil
			}

			_, err = a.runExtract(cmd.Context(), cmd, ko, hitsPath, a.cfg.SequencesPath(ko))
			return err
		},
	}

	f := cmd.Flags()
	f.String("ko", "", "KO term (default: K00954)")
	f.String("annotation-file", "", "KEGG annotation archive, relative to --db-root unless absolute")
	f.String("protein-dir", "", "Protein FASTA root, relative to --db-root unless absolute")
	f.String("chunk-prefix", "", "Name prefix of chunk directories (default: R226CHUNK)")
	f.String("fasta-suffix", "", "Per-genome FASTA file suffix (default: .faa.gz)")

	return cmd
}

// openLedger opens the configured DuckDB ledger, or returns nil when none is set.
func (a *app) openLedger() (*duckdb.Store, error) {
	if a.cfg.Ledger == "" {
		return nil, nil
	}
	store, err := duckdb.Open(a.cfg.Ledger)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", a.cfg.Ledger, err)
	}
	a.logger.Debug("ledger opened", zap.String("path", a.cfg.Ledger))
	return store, nil
}

func ensureParentDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	return nil
}
