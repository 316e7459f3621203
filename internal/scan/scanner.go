// Package scan streams a KEGG annotation table and writes the rows that
// carry a given KO to a hits TSV.
package scan

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/koseq/internal/hits"
	"github.com/inodb/koseq/internal/xopen"
)

// GenomeDelimiter separates the genome ID from the gene suffix in gene IDs.
const GenomeDelimiter = "___"

// Annotation table columns.
const (
	colGeneID = 0
	colKO     = 2
	colEValue = 4
	minFields = 5
)

const (
	defaultProgressEvery = 10_000_000
	ctxCheckEvery        = 1 << 16
)

// DeriveGenomeID returns the part of geneID before the last GenomeDelimiter,
// or geneID itself when the delimiter is absent.
func DeriveGenomeID(geneID string) string {
	if i := strings.LastIndex(geneID, GenomeDelimiter); i >= 0 {
		return geneID[:i]
	}
	return geneID
}

// HitSink receives every hit written by the scanner.
type HitSink interface {
	AddHit(ko string, h hits.GeneHit) error
}

// Result holds scan totals.
type Result struct {
	LinesScanned int64
	HitsFound    int64
}

// Scanner filters annotation lines by KO.
type Scanner struct {
	logger        *zap.Logger
	sink          HitSink
	progressEvery int64
}

// NewScanner creates a scanner with logging disabled.
func NewScanner() *Scanner {
	return &Scanner{
		logger:        zap.NewNop(),
		progressEvery: defaultProgressEvery,
	}
}

// SetLogger sets the logger for progress and summary messages.
func (s *Scanner) SetLogger(l *zap.Logger) {
	s.logger = l
}

// SetSink registers a sink that is given each hit as it is written.
func (s *Scanner) SetSink(sink HitSink) {
	s.sink = sink
}

// SetProgressEvery sets how many lines pass between debug progress logs.
// Zero or negative disables progress logging.
func (s *Scanner) SetProgressEvery(n int64) {
	s.progressEvery = n
}

// Scan reads annotation lines from r and writes matching hits to w, header
// first, in input order. Lines with fewer than five fields are counted but
// otherwise ignored.
func (s *Scanner) Scan(ctx context.Context, r io.Reader, ko string, w io.Writer) (Result, error) {
	var res Result

	hw := hits.NewWriter(w)
	if err := hw.WriteHeader(); err != nil {
		return res, fmt.Errorf("write hits header: %w", err)
	}

	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	for scanner.Scan() {
		res.LinesScanned++
		if res.LinesScanned%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return res, err
			}
		}
		if s.progressEvery > 0 && res.LinesScanned%s.progressEvery == 0 {
			s.logger.Debug("scanning",
				zap.Int64("lines", res.LinesScanned),
				zap.Int64("hits", res.HitsFound))
		}

		fields := strings.Split(strings.TrimSpace(scanner.Text()), "\t")
		if len(fields) < minFields || fields[colKO] != ko {
			continue
		}

		hit := hits.GeneHit{
			GenomeID: DeriveGenomeID(fields[colGeneID]),
			GeneID:   fields[colGeneID],
			EValue:   fields[colEValue],
		}
		if err := hw.Write(hit); err != nil {
			return res, fmt.Errorf("write hit: %w", err)
		}
		if s.sink != nil {
			if err := s.sink.AddHit(ko, hit); err != nil {
				return res, fmt.Errorf("record hit: %w", err)
			}
		}
		res.HitsFound++
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("read annotations: %w", err)
	}

	if err := hw.Flush(); err != nil {
		return res, fmt.Errorf("flush hits: %w", err)
	}
	return res, nil
}

// ScanFile scans the annotation archive at src and writes hits to outPath,
// replacing any existing file. The directory of outPath must exist.
func (s *Scanner) ScanFile(ctx context.Context, src, ko, outPath string) (Result, error) {
	s.logger.Info("scanning for KO", zap.String("ko", ko), zap.String("input", src))

	in, err := xopen.Open(src)
	if err != nil {
		return Result{}, fmt.Errorf("open annotation archive: %w", err)
	}
	defer in.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return Result{}, fmt.Errorf("create hits TSV: %w", err)
	}
	defer out.Close()

	res, err := s.Scan(ctx, in, ko, out)
	if err != nil {
		return res, err
	}
	if err := out.Close(); err != nil {
		return res, fmt.Errorf("close hits TSV: %w", err)
	}

	s.logger.Info("scan complete",
		zap.String("ko", ko),
		zap.Int64("lines", res.LinesScanned),
		zap.Int64("hits", res.HitsFound),
		zap.String("output", outPath))
	return res, nil
}
