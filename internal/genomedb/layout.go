// Package genomedb resolves per-genome protein FASTA files inside the
// chunked directory layout of a GlobDB mirror.
package genomedb

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Defaults for the r226 release layout.
const (
	DefaultChunkPrefix = "R226CHUNK"
	DefaultSuffix      = ".faa.gz"
)

// Layout describes where per-genome FASTA files live: Root holds chunk
// directories named with ChunkPrefix, each holding <genome_id><Suffix> files.
type Layout struct {
	Root        string
	ChunkPrefix string
	Suffix      string
}

// NewLayout validates that root is an existing directory.
func NewLayout(root, chunkPrefix, suffix string) (*Layout, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("protein directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("protein directory %s: not a directory", root)
	}
	if chunkPrefix == "" {
		chunkPrefix = DefaultChunkPrefix
	}
	if suffix == "" {
		suffix = DefaultSuffix
	}
	return &Layout{Root: root, ChunkPrefix: chunkPrefix, Suffix: suffix}, nil
}

// Chunks lists the chunk directories under Root in name order.
func (l *Layout) Chunks() ([]string, error) {
	entries, err := os.ReadDir(l.Root)
	if err != nil {
		return nil, fmt.Errorf("list chunk directories: %w", err)
	}

	var chunks []string
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), l.ChunkPrefix) {
			continue
		}
		path := filepath.Join(l.Root, e.Name())
		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			continue
		}
		chunks = append(chunks, path)
	}
	return chunks, nil
}

// FileName returns the FASTA file name for a genome.
func (l *Layout) FileName(genomeID string) string {
	return genomeID + l.Suffix
}

// Resolve returns the FASTA path for genomeID from the first chunk
// directory that contains it. ok is false when no chunk has the file.
func (l *Layout) Resolve(genomeID string) (path string, ok bool, err error) {
	chunks, err := l.Chunks()
	if err != nil {
		return "", false, err
	}

	name := l.FileName(genomeID)
	for _, chunk := range chunks {
		candidate := filepath.Join(chunk, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		}
	}
	return "", false, nil
}
