// Package extract pulls the protein sequences listed in a hits index out of
// per-genome FASTA files into one combined FASTA file.
package extract

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/inodb/koseq/internal/fasta"
	"github.com/inodb/koseq/internal/hits"
)

// Resolver finds the FASTA file for a genome. ok is false when the genome
// has no file.
type Resolver interface {
	Resolve(genomeID string) (path string, ok bool, err error)
}

// ResultSink receives the outcome of every wanted gene.
type ResultSink interface {
	AddExtraction(ko, genomeID, geneID string, found bool, seqLength int) error
}

// Summary holds totals for one extraction run.
type Summary struct {
	Genomes        int
	Wanted         int
	Extracted      int
	MissingGenomes int
	MissingGenes   int
	EmptySequences int
	Failed         int
}

// Warnings returns the number of logged warnings.
func (s Summary) Warnings() int {
	return s.MissingGenomes + s.MissingGenes + s.EmptySequences + s.Failed
}

// outputError marks failures writing the combined file, which abort the run.
type outputError struct {
	err error
}

func (e *outputError) Error() string { return fmt.Sprintf("write sequences: %v", e.err) }
func (e *outputError) Unwrap() error { return e.err }

// Extractor writes wanted sequences genome by genome.
type Extractor struct {
	resolver Resolver
	logger   *zap.Logger
	sink     ResultSink
}

// NewExtractor creates an extractor using r to locate genome files.
func NewExtractor(r Resolver) *Extractor {
	return &Extractor{
		resolver: r,
		logger:   zap.NewNop(),
	}
}

// SetLogger sets the logger for warning and info messages.
func (e *Extractor) SetLogger(l *zap.Logger) {
	e.logger = l
}

// SetSink registers a sink for per-gene outcomes.
func (e *Extractor) SetSink(sink ResultSink) {
	e.sink = sink
}

// ExtractAll visits genomes in lexicographic order and appends every wanted
// record found to w as "header\nsequence\n". Missing genomes, missing genes
// and unreadable genome files are logged and skipped; only a failure to
// write w or a cancelled ctx stops the run.
func (e *Extractor) ExtractAll(ctx context.Context, idx *hits.Index, ko string, w io.Writer) (Summary, error) {
	sum := Summary{Genomes: idx.Len(), Wanted: idx.Total()}
	e.logger.Info("extracting sequences",
		zap.String("ko", ko),
		zap.Int("genomes", sum.Genomes),
		zap.Int("genes", sum.Wanted))

	bw := bufio.NewWriter(w)
	for _, genome := range idx.Genomes() {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if err := e.extractGenome(idx, genome, ko, bw, &sum); err != nil {
			return sum, err
		}
		if err := bw.Flush(); err != nil {
			return sum, &outputError{err: err}
		}
	}

	e.logger.Info("extraction complete",
		zap.String("ko", ko),
		zap.Int("extracted", sum.Extracted),
		zap.Int("wanted", sum.Wanted),
		zap.Int("warnings", sum.Warnings()))
	return sum, nil
}

func (e *Extractor) extractGenome(idx *hits.Index, genome, ko string, w *bufio.Writer, sum *Summary) error {
	genes := idx.Genes(genome)

	path, ok, err := e.resolver.Resolve(genome)
	if err != nil {
		e.logger.Warn("resolve genome FASTA failed", zap.String("genome", genome), zap.Error(err))
		sum.Failed += len(genes)
		return e.record(ko, genome, genes, nil)
	}
	if !ok {
		e.logger.Warn("FASTA not found for genome", zap.String("genome", genome))
		sum.MissingGenomes++
		return e.record(ko, genome, genes, nil)
	}

	lengths := make(map[string]int, len(genes))
	found, err := fasta.ExtractSet(path, idx.GeneSet(genome), func(rec *fasta.Record) error {
		if rec.Sequence == "" {
			return nil
		}
		if _, err := fmt.Fprintf(w, "%s\n%s\n", rec.Header, rec.Sequence); err != nil {
			return &outputError{err: err}
		}
		lengths[rec.ID()] = len(rec.Sequence)
		return nil
	})

	var outErr *outputError
	if errors.As(err, &outErr) {
		return err
	}

	for _, gene := range genes {
		_, seen := found[gene]
		_, written := lengths[gene]
		switch {
		case written:
			sum.Extracted++
		case seen:
			e.logger.Warn("empty sequence", zap.String("genome", genome), zap.String("gene", gene))
			sum.EmptySequences++
		case err != nil:
			e.logger.Warn("extraction failed",
				zap.String("genome", genome),
				zap.String("gene", gene),
				zap.String("fasta", path),
				zap.Error(err))
			sum.Failed++
		default:
			e.logger.Warn("gene not found in genome FASTA",
				zap.String("genome", genome),
				zap.String("gene", gene),
				zap.String("fasta", path))
			sum.MissingGenes++
		}
	}
	return e.record(ko, genome, genes, lengths)
}

// record forwards per-gene outcomes to the sink, if any.
func (e *Extractor) record(ko, genome string, genes []string, lengths map[string]int) error {
	if e.sink == nil {
		return nil
	}
	for _, gene := range genes {
		n, ok := lengths[gene]
		if err := e.sink.AddExtraction(ko, genome, gene, ok, n); err != nil {
			return fmt.Errorf("record extraction: %w", err)
		}
	}
	return nil
}

// ExtractToFile runs ExtractAll into outPath, creating parent directories
// and replacing any existing file.
func (e *Extractor) ExtractToFile(ctx context.Context, idx *hits.Index, ko, outPath string) (Summary, error) {
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return Summary{}, fmt.Errorf("create output directory: %w", err)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return Summary{}, fmt.Errorf("create sequences file: %w", err)
	}
	defer out.Close()

	sum, err := e.ExtractAll(ctx, idx, ko, out)
	if err != nil {
		return sum, err
	}
	if err := out.Close(); err != nil {
		return sum, fmt.Errorf("close sequences file: %w", err)
	}

	e.logger.Info("sequences saved", zap.String("output", outPath))
	return sum, nil
}
