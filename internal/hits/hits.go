// Package hits defines the hits TSV shared by the scan and extract stages,
// and the in-memory genome to gene index built from it.
package hits

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
)

// Header is the fixed first line of every hits TSV.
const Header = "genome_id\tgene_id\te_value"

// ErrEmptyHits is returned when a hits TSV has no header line to skip.
var ErrEmptyHits = errors.New("hits TSV is empty")

// GeneHit is one row of the hits TSV.
type GeneHit struct {
	GenomeID string
	GeneID   string
	EValue   string
}

// Writer writes GeneHit rows in hits TSV format.
type Writer struct {
	w *bufio.Writer
}

// NewWriter creates a hits TSV writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// WriteHeader writes the header line.
func (hw *Writer) WriteHeader() error {
	_, err := hw.w.WriteString(Header + "\n")
	return err
}

// Write writes a single hit row.
func (hw *Writer) Write(h GeneHit) error {
	_, err := fmt.Fprintf(hw.w, "%s\t%s\t%s\n", h.GenomeID, h.GeneID, h.EValue)
	return err
}

// Flush flushes buffered rows to the underlying writer.
func (hw *Writer) Flush() error {
	return hw.w.Flush()
}

// Index maps genome IDs to the set of wanted gene IDs in that genome.
// It is built once and only read afterwards.
type Index struct {
	genomes map[string]map[string]struct{}
	total   int
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{genomes: make(map[string]map[string]struct{})}
}

// Add inserts a (genome, gene) pair. Duplicate pairs are ignored.
func (idx *Index) Add(genomeID, geneID string) {
	genes, ok := idx.genomes[genomeID]
	if !ok {
		genes = make(map[string]struct{})
		idx.genomes[genomeID] = genes
	}
	if _, dup := genes[geneID]; dup {
		return
	}
	genes[geneID] = struct{}{}
	idx.total++
}

// Has reports whether the pair is present.
func (idx *Index) Has(genomeID, geneID string) bool {
	_, ok := idx.genomes[genomeID][geneID]
	return ok
}

// Genomes returns genome IDs in lexicographic order.
func (idx *Index) Genomes() []string {
	ids := make([]string, 0, len(idx.genomes))
	for id := range idx.genomes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Genes returns the gene IDs wanted for a genome, sorted.
func (idx *Index) Genes(genomeID string) []string {
	genes := idx.genomes[genomeID]
	ids := make([]string, 0, len(genes))
	for id := range genes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// GeneSet returns the wanted gene IDs for a genome as a fresh set.
func (idx *Index) GeneSet(genomeID string) map[string]struct{} {
	genes := idx.genomes[genomeID]
	set := make(map[string]struct{}, len(genes))
	for id := range genes {
		set[id] = struct{}{}
	}
	return set
}

// Len returns the number of genomes.
func (idx *Index) Len() int {
	return len(idx.genomes)
}

// Total returns the number of distinct (genome, gene) pairs.
func (idx *Index) Total() int {
	return idx.total
}
