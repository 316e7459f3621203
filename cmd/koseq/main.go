// Package main provides the koseq command-line tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/koseq/internal/config"
	"github.com/inodb/koseq/internal/logging"
)

// Exit codes
const (
	ExitSuccess         = 0
	ExitMissingInput    = 1
	ExitMissingDatabase = 2
	ExitError           = 3
	ExitUsage           = 4
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// exitError carries a process exit code through cobra's error return.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func exitf(code int, format string, args ...any) error {
	return &exitError{code: code, err: fmt.Errorf(format, args...)}
}

// app holds state shared by all subcommands of one invocation.
type app struct {
	cfgFile string
	envFile string

	v      *viper.Viper
	cfg    config.Config
	logger *zap.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{logger: zap.NewNop()}
	root := a.newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	_ = a.logger.Sync()
	if err == nil {
		return ExitSuccess
	}

	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", ee.err)
		}
		return ee.code
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return ExitError
}

func (a *app) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "koseq",
		Short: "Find KO-annotated genes in GlobDB and extract their protein sequences",
		Long: `koseq scans the GlobDB KEGG annotation table for genes carrying a KO term
and pulls their protein sequences out of the per-genome FASTA files.

Outputs for a KO are written to <outdir>/<KO>/:
  <KO>_hits.tsv            genome_id, gene_id, e_value for every hit
  <KO>_all_sequences.faa   combined protein FASTA`,
		Example: `  koseq scan --ko K00954
  koseq extract --ko K00954
  koseq run --ko K00954 --db-root /data/globdb/r226`,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "Config file (default: ~/.koseq.yaml)")
	pf.StringVar(&a.envFile, "env-file", "", "Environment file (default: ./.env if present)")
	pf.String("db-root", "", "GlobDB mirror root")
	pf.String("outdir", "", "Output directory")
	pf.String("ledger", "", "DuckDB ledger path (disabled when empty)")
	pf.String("log-level", "", "Log level: debug, info, warn, error")

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		cmd.PrintErrln(cmd.UsageString())
		return &exitError{code: ExitUsage, err: err}
	})

	root.AddCommand(a.newScanCmd())
	root.AddCommand(a.newExtractCmd())
	root.AddCommand(a.newRunCmd())
	root.AddCommand(a.newLedgerCmd())
	root.AddCommand(a.newConfigCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// flagKeys maps command-line flags to config keys.
var flagKeys = map[string]string{
	"db-root":         config.KeyDBRoot,
	"outdir":          config.KeyOutDir,
	"ledger":          config.KeyLedger,
	"log-level":       config.KeyLogLevel,
	"ko":              config.KeyKO,
	"annotation-file": config.KeyAnnotationFile,
	"protein-dir":     config.KeyProteinDir,
	"chunk-prefix":    config.KeyChunkPrefix,
	"fasta-suffix":    config.KeyFASTASuffix,
	"strict-header":   config.KeyStrictHeader,
}

// setup loads configuration and builds the logger before any subcommand runs.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	v, err := config.NewViper(a.cfgFile, a.envFile)
	if err != nil {
		return &exitError{code: ExitUsage, err: err}
	}
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}
	a.v = v

	cfg, err := config.Load(v)
	if err != nil {
		return &exitError{code: ExitUsage, err: err}
	}
	a.cfg = cfg

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return &exitError{code: ExitUsage, err: err}
	}
	a.logger = logger
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "koseq version %s (%s) built %s\n", version, commit, date)
		},
	}
}
