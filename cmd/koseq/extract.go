package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/koseq/internal/duckdb"
	"github.com/inodb/koseq/internal/extract"
	"github.com/inodb/koseq/internal/genomedb"
	"github.com/inodb/koseq/internal/hits"
)

func (a *app) newExtractCmd() *cobra.Command {
	var (
		hitsTSV string
		output  string
	)

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract protein sequences for the genes in a hits TSV",
		Long: `Read a hits TSV produced by "koseq scan", locate each genome's protein FASTA
in the chunk directories under the protein root, and write every listed gene
to <outdir>/<KO>/<KO>_all_sequences.faa.`,
		Example: `  koseq extract --ko K00954
  koseq extract --ko K00954 --hits-tsv outputs/K00954/K00954_hits.tsv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ko := a.cfg.KO
			if hitsTSV == "" {
				hitsTSV = a.cfg.HitsPath(ko)
			}
			if output == "" {
				output = a.cfg.SequencesPath(ko)
			}
			_, err := a.runExtract(cmd.Context(), cmd, ko, hitsTSV, output)
			return err
		},
	}

	f := cmd.Flags()
	f.String("ko", "", "KO term (default: K00954)")
	f.StringVar(&hitsTSV, "hits-tsv", "", "Hits TSV (default: <outdir>/<KO>/<KO>_hits.tsv)")
	f.StringVarP(&output, "output", "o", "", "Combined FASTA path (default: <outdir>/<KO>/<KO>_all_sequences.faa)")
	f.String("protein-dir", "", "Protein FASTA root, relative to --db-root unless absolute")
	f.String("chunk-prefix", "", "Name prefix of chunk directories (default: R226CHUNK)")
	f.String("fasta-suffix", "", "Per-genome FASTA file suffix (default: .faa.gz)")
	f.Bool("strict-header", false, "Require the exact hits TSV header")

	return cmd
}

// runExtract extracts the sequences listed in hitsTSV into output. A hits
// file without rows is not an error; nothing is extracted.
func (a *app) runExtract(ctx context.Context, cmd *cobra.Command, ko, hitsTSV, output string) (extract.Summary, error) {
	if _, err := os.Stat(hitsTSV); err != nil {
		return extract.Summary{}, exitf(ExitMissingInput,
			"hits TSV not found: %s (expected path like %s)", hitsTSV, a.cfg.HitsPath(ko))
	}

	parser := hits.NewParser()
	parser.StrictHeader = a.cfg.StrictHeader
	parser.SetLogger(a.logger)

	idx, err := parser.ParseFile(hitsTSV, ko)
	if errors.Is(err, hits.ErrEmptyHits) {
		return extract.Summary{}, exitf(ExitError, "%s: %v (no header line)", hitsTSV, err)
	}
	if err != nil {
		return extract.Summary{}, exitf(ExitError, "parse hits: %v", err)
	}
	if idx.Len() == 0 {
		a.logger.Warn("no hits found", zap.String("ko", ko), zap.String("hits", hitsTSV))
		return extract.Summary{}, nil
	}

	layout, err := a.openLayout()
	if err != nil {
		return extract.Summary{}, err
	}

	ex := extract.NewExtractor(layout)
	ex.SetLogger(a.logger)

	ledger, err := a.openLedger()
	if err != nil {
		return extract.Summary{}, err
	}
	var run *duckdb.Run
	if ledger != nil {
		defer ledger.Close()
		run, err = ledger.BeginRun(duckdb.StageExtract, ko, duckdb.FingerprintInput(hitsTSV))
		if err != nil {
			return extract.Summary{}, err
		}
		ex.SetSink(run)
	}

	sum, err := ex.ExtractToFile(ctx, idx, ko, output)
	if err != nil {
		return sum, err
	}

	if run != nil {
		counts := duckdb.RunCounts{Wanted: int64(sum.Wanted), Extracted: int64(sum.Extracted)}
		if err := run.Finish(counts); err != nil {
			return sum, fmt.Errorf("ledger: %w", err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Extracted %d/%d sequences (%d warnings)\n", sum.Extracted, sum.Wanted, sum.Warnings())
	fmt.Fprintf(cmd.OutOrStdout(), "Saved to: %s\n", output)
	return sum, nil
}

// openLayout validates the protein root; a missing root is fatal.
func (a *app) openLayout() (*genomedb.Layout, error) {
	root := a.cfg.ProteinRoot()
	layout, err := genomedb.NewLayout(root, a.cfg.ChunkPrefix, a.cfg.FASTASuffix)
	if err != nil {
		return nil, exitf(ExitMissingDatabase, "GlobDB protein directory not found: %s", root)
	}
	a.logger.Info("using protein directory", zap.String("path", root))
	return layout, nil
}
