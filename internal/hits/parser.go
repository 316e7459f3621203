package hits

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
)

// HeaderError reports a header line that does not match Header in strict mode.
type HeaderError struct {
	Got string
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("unexpected hits header %q, want %q", e.Got, Header)
}

// Parser builds an Index from a hits TSV.
type Parser struct {
	// StrictHeader requires the first line to equal Header exactly.
	StrictHeader bool

	logger *zap.Logger
}

// NewParser creates a parser that skips the header without checking it.
func NewParser() *Parser {
	return &Parser{logger: zap.NewNop()}
}

// SetLogger sets the logger for info messages.
func (p *Parser) SetLogger(l *zap.Logger) {
	p.logger = l
}

// ParseFile parses the hits TSV at path.
func (p *Parser) ParseFile(path, ko string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open hits TSV: %w", err)
	}
	defer f.Close()

	p.logger.Info("parsing hits TSV", zap.String("path", path), zap.String("ko", ko))
	return p.Parse(f, ko)
}

// Parse reads a hits TSV. The first line is always skipped; rows with
// fewer than two fields are ignored. ko only labels log output, rows are
// not filtered by it.
func (p *Parser) Parse(r io.Reader, ko string) (*Index, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read hits header: %w", err)
		}
		return nil, ErrEmptyHits
	}
	if p.StrictHeader {
		if got := strings.TrimRight(scanner.Text(), "\r\n"); got != Header {
			return nil, &HeaderError{Got: got}
		}
	}

	idx := NewIndex()
	rows := 0
	for scanner.Scan() {
		rows++
		fields := strings.Split(strings.TrimSpace(scanner.Text()), "\t")
		if len(fields) < 2 {
			continue
		}
		idx.Add(fields[0], fields[1])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read hits TSV: %w", err)
	}

	p.logger.Info("hits parsed",
		zap.String("ko", ko),
		zap.Int("rows", rows),
		zap.Int("genomes", idx.Len()),
		zap.Int("genes", idx.Total()))
	return idx, nil
}

// ParseFile parses path with a default non-strict parser.
func ParseFile(path, ko string) (*Index, error) {
	return NewParser().ParseFile(path, ko)
}
