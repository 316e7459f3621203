package main

import (
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func (a *app) newLedgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Query the DuckDB run ledger",
		Long:  "Inspect runs recorded with --ledger. The ledger path comes from --ledger or the config file.",
		Example: `  koseq --ledger koseq.duckdb ledger runs
  koseq --ledger koseq.duckdb ledger hits --ko K00954`,
	}

	cmd.AddCommand(a.newLedgerRunsCmd())
	cmd.AddCommand(a.newLedgerHitsCmd())
	return cmd
}

func (a *app) newLedgerRunsCmd() *cobra.Command {
	var ko string
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openLedger()
			if err != nil {
				return err
			}
			if store == nil {
				return exitf(ExitUsage, "no ledger configured (use --ledger)")
			}
			defer store.Close()

			runs, err := store.Runs(ko)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tSTAGE\tKO\tSTARTED\tLINES\tHITS\tWANTED\tEXTRACTED")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
					r.ID, r.Stage, r.KO, r.StartedAt.Local().Format(time.DateTime),
					r.LinesScanned, r.HitsFound, r.Wanted, r.Extracted)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&ko, "ko", "", "Only runs for this KO")
	return cmd
}

func (a *app) newLedgerHitsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hits",
		Short: "Show hit counts per genome and the latest extraction result for a KO",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openLedger()
			if err != nil {
				return err
			}
			if store == nil {
				return exitf(ExitUsage, "no ledger configured (use --ledger)")
			}
			defer store.Close()

			ko := a.cfg.KO
			counts, err := store.HitCountsByGenome(ko)
			if err != nil {
				return err
			}
			stats, err := store.ExtractionStats(ko)
			if err != nil {
				return err
			}

			genomes := make([]string, 0, len(counts))
			for g := range counts {
				genomes = append(genomes, g)
			}
			sort.Strings(genomes)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "GENOME\tGENES")
			for _, g := range genomes {
				fmt.Fprintf(tw, "%s\t%d\n", g, counts[g])
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d genomes with hits; last extraction %d/%d sequences from %d genomes\n",
				ko, len(genomes), stats.Extracted, stats.Wanted, stats.Genomes)
			return nil
		},
	}
	cmd.Flags().String("ko", "", "KO term (default: K00954)")
	return cmd
}
