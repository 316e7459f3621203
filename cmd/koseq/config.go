package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/inodb/koseq/internal/config"
)

func (a *app) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage koseq configuration",
		Long:  "Show, get, or set configuration values. Config is stored in ~/.koseq.yaml unless --config is given.",
		Example: `  koseq config                                   # show effective config
  koseq config set db_root /data/globdb/r226     # point at another mirror
  koseq config get chunk_prefix                  # get a value`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConfigShow(cmd)
		},
	}

	cmd.AddCommand(a.newConfigSetCmd())
	cmd.AddCommand(a.newConfigGetCmd())

	return cmd
}

func (a *app) newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConfigSet(cmd, args[0], args[1])
		},
	}
}

func (a *app) newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConfigGet(cmd, args[0])
		},
	}
}

func (a *app) runConfigShow(cmd *cobra.Command) error {
	out, err := yaml.Marshal(a.cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if used := a.v.ConfigFileUsed(); used != "" {
		if _, err := os.Stat(used); err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "# Config file: %s\n", used)
		}
	}
	fmt.Fprint(cmd.OutOrStdout(), string(out))
	return nil
}

// knownKeys lists the keys accepted by "config set".
var knownKeys = map[string]bool{
	config.KeyDBRoot:         true,
	config.KeyAnnotationFile: true,
	config.KeyProteinDir:     true,
	config.KeyChunkPrefix:    true,
	config.KeyFASTASuffix:    true,
	config.KeyKO:             true,
	config.KeyOutDir:         true,
	config.KeyLedger:         true,
	config.KeyLogLevel:       true,
	config.KeyStrictHeader:   true,
}

func (a *app) runConfigSet(cmd *cobra.Command, key, value string) error {
	if !knownKeys[key] {
		return exitf(ExitUsage, "unknown config key %q", key)
	}

	// Only persist what the file already holds plus the new key, not
	// defaults or environment values.
	file := map[string]any{}
	cfgFile := a.v.ConfigFileUsed()
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		cfgFile = filepath.Join(home, config.DefaultFileName)
	}
	if data, err := os.ReadFile(cfgFile); err == nil {
		if err := yaml.Unmarshal(data, &file); err != nil {
			return fmt.Errorf("parse %s: %w", cfgFile, err)
		}
	}

	switch value {
	case "true", "yes", "on":
		file[key] = true
	case "false", "no", "off":
		file[key] = false
	default:
		file[key] = value
	}

	out, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(cfgFile, out, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s in %s\n", key, value, cfgFile)
	return nil
}

func (a *app) runConfigGet(cmd *cobra.Command, key string) error {
	if !a.v.IsSet(key) {
		return exitf(ExitError, "key %q is not set", key)
	}
	fmt.Fprintln(cmd.OutOrStdout(), a.v.Get(key))
	return nil
}
