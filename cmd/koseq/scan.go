package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/koseq/internal/duckdb"
	"github.com/inodb/koseq/internal/scan"
)

func (a *app) newScanCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Find genes annotated with a KO in the KEGG annotation table",
		Long: `Stream the compressed KEGG annotation table and write every gene whose KO
column equals --ko to <outdir>/<KO>/<KO>_hits.tsv.`,
		Example: `  koseq scan --ko K00954
  koseq scan --ko K00954 --annotation-file /data/kegg_all.gz -o hits.tsv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ko := a.cfg.KO
			if output == "" {
				output = a.cfg.HitsPath(ko)
			}
			res, err := a.runScan(cmd.Context(), ko, output)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Scanned %d lines, found %d hits for %s\n", res.LinesScanned, res.HitsFound, ko)
			return nil
		},
	}

	f := cmd.Flags()
	f.String("ko", "", "KO term (default: K00954)")
	f.String("annotation-file", "", "KEGG annotation archive, relative to --db-root unless absolute")
	f.StringVarP(&output, "output", "o", "", "Hits TSV path (default: <outdir>/<KO>/<KO>_hits.tsv)")

	return cmd
}

// runScan scans the annotation archive for ko and writes hits to output.
func (a *app) runScan(ctx context.Context, ko, output string) (scan.Result, error) {
	src := a.cfg.AnnotationPath()
	if src != "-" {
		if _, err := os.Stat(src); err != nil {
			return scan.Result{}, exitf(ExitMissingInput, "annotation archive not found: %s", src)
		}
	}
	a.logger.Info("using annotation archive", zap.String("path", src))

	if err := ensureParentDir(output); err != nil {
		return scan.Result{}, err
	}

	scanner := scan.NewScanner()
	scanner.SetLogger(a.logger)

	ledger, err := a.openLedger()
	if err != nil {
		return scan.Result{}, err
	}
	var run *duckdb.Run
	if ledger != nil {
		defer ledger.Close()
		run, err = ledger.BeginRun(duckdb.StageScan, ko, duckdb.FingerprintInput(src))
		if err != nil {
			return scan.Result{}, err
		}
		scanner.SetSink(run)
	}

	res, err := scanner.ScanFile(ctx, src, ko, output)
	if err != nil {
		return res, err
	}

	if run != nil {
		if err := run.Finish(duckdb.RunCounts{LinesScanned: res.LinesScanned, HitsFound: res.HitsFound}); err != nil {
			return res, fmt.Errorf("ledger: %w", err)
		}
	}
	return res, nil
}
