// Package config holds the settings shared by the scan and extract commands
// and loads them from defaults, a YAML file, a .env file, the environment
// and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Keys used in the config file and as KOSEQ_<KEY> environment variables.
const (
	KeyDBRoot         = "db_root"
	KeyAnnotationFile = "annotation_file"
	KeyProteinDir     = "protein_dir"
	KeyChunkPrefix    = "chunk_prefix"
	KeyFASTASuffix    = "fasta_suffix"
	KeyKO             = "ko"
	KeyOutDir         = "outdir"
	KeyLedger         = "ledger"
	KeyLogLevel       = "log_level"
	KeyStrictHeader   = "strict_header"
)

// EnvPrefix is prepended to environment variable names.
const EnvPrefix = "KOSEQ"

// DefaultFileName is the config file looked up in the home directory.
const DefaultFileName = ".koseq.yaml"

// Config describes the database mirror layout and output locations.
type Config struct {
	DBRoot         string `mapstructure:"db_root" yaml:"db_root"`
	AnnotationFile string `mapstructure:"annotation_file" yaml:"annotation_file"`
	ProteinDir     string `mapstructure:"protein_dir" yaml:"protein_dir"`
	ChunkPrefix    string `mapstructure:"chunk_prefix" yaml:"chunk_prefix"`
	FASTASuffix    string `mapstructure:"fasta_suffix" yaml:"fasta_suffix"`
	KO             string `mapstructure:"ko" yaml:"ko"`
	OutDir         string `mapstructure:"outdir" yaml:"outdir"`
	Ledger         string `mapstructure:"ledger" yaml:"ledger"`
	LogLevel       string `mapstructure:"log_level" yaml:"log_level"`
	StrictHeader   bool   `mapstructure:"strict_header" yaml:"strict_header"`
}

// Default returns the settings for the GlobDB r226 mirror.
func Default() Config {
	return Config{
		DBRoot:         "/lisc/opt/mirror/globdb/r226",
		AnnotationFile: filepath.Join("combined_files", "globdb_r226_kegg_all.gz"),
		ProteinDir:     "globdb_r226_protein_fasta",
		ChunkPrefix:    "R226CHUNK",
		FASTASuffix:    ".faa.gz",
		KO:             "K00954",
		OutDir:         "outputs",
		LogLevel:       "info",
	}
}

// SetDefaults registers Default values on v.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault(KeyDBRoot, d.DBRoot)
	v.SetDefault(KeyAnnotationFile, d.AnnotationFile)
	v.SetDefault(KeyProteinDir, d.ProteinDir)
	v.SetDefault(KeyChunkPrefix, d.ChunkPrefix)
	v.SetDefault(KeyFASTASuffix, d.FASTASuffix)
	v.SetDefault(KeyKO, d.KO)
	v.SetDefault(KeyOutDir, d.OutDir)
	v.SetDefault(KeyLedger, d.Ledger)
	v.SetDefault(KeyLogLevel, d.LogLevel)
	v.SetDefault(KeyStrictHeader, d.StrictHeader)
}

// NewViper prepares a viper instance with defaults, environment binding,
// an optional .env file and an optional config file. An empty cfgFile
// means ~/.koseq.yaml if it exists; an empty envFile means ./.env.
func NewViper(cfgFile, envFile string) (*viper.Viper, error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
		return v, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return v, nil
	}
	path := filepath.Join(home, DefaultFileName)
	v.SetConfigFile(path)
	if _, err := os.Stat(path); err != nil {
		return v, nil
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return v, nil
}

// loadEnvFile loads KEY=value pairs without overriding the environment.
// A missing default .env is not an error.
func loadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// Load decodes the current settings of v.
func Load(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects settings that make every run meaningless.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.KO) == "":
		return errors.New("config: ko must not be empty")
	case c.ChunkPrefix == "":
		return errors.New("config: chunk_prefix must not be empty")
	case c.FASTASuffix == "":
		return errors.New("config: fasta_suffix must not be empty")
	}
	return nil
}

// underRoot resolves p against DBRoot unless it is absolute or "-".
func (c Config) underRoot(p string) string {
	if p == "-" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DBRoot, p)
}

// AnnotationPath returns the KEGG annotation archive path.
func (c Config) AnnotationPath() string {
	return c.underRoot(c.AnnotationFile)
}

// ProteinRoot returns the directory holding the chunk directories.
func (c Config) ProteinRoot() string {
	return c.underRoot(c.ProteinDir)
}

// KODir returns the per-KO output directory.
func (c Config) KODir(ko string) string {
	return filepath.Join(c.OutDir, ko)
}

// HitsPath returns the hits TSV path for ko.
func (c Config) HitsPath(ko string) string {
	return filepath.Join(c.KODir(ko), ko+"_hits.tsv")
}

// SequencesPath returns the combined FASTA path for ko.
func (c Config) SequencesPath(ko string) string {
	return filepath.Join(c.KODir(ko), ko+"_all_sequences.faa")
}
