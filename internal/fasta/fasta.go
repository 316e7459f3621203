// Package fasta streams FASTA records from plain or compressed files.
package fasta

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Record is one FASTA entry. Header keeps the leading '>' and is verbatim
// apart from trailing whitespace; Sequence has all lines joined.
type Record struct {
	Header   string
	Sequence string
}

// ID returns the sequence identifier: the header without '>' up to the
// first whitespace.
func (r *Record) ID() string {
	return HeaderID(r.Header)
}

// HeaderID extracts the identifier from a header line.
func HeaderID(header string) string {
	fields := strings.Fields(strings.TrimPrefix(header, ">"))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

type state int

const (
	awaitingHeader state = iota
	accumulatingSequence
)

const maxLineSize = 64 * 1024 * 1024

// Reader reads records one at a time. Lines before the first header are
// ignored.
type Reader struct {
	scanner *bufio.Scanner
	state   state
	header  string
	seq     strings.Builder
	done    bool
}

// NewReader creates a Reader over uncompressed FASTA text.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxLineSize)
	return &Reader{scanner: scanner}
}

// Next returns the next record, or nil, nil at end of input.
func (r *Reader) Next() (*Record, error) {
	if r.done {
		return nil, nil
	}

	for r.scanner.Scan() {
		line := strings.TrimRightFunc(r.scanner.Text(), isSpace)

		if strings.HasPrefix(line, ">") {
			prev := r.flush()
			r.header = line
			r.state = accumulatingSequence
			if prev != nil {
				return prev, nil
			}
			continue
		}

		if r.state == accumulatingSequence {
			r.seq.WriteString(line)
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan FASTA: %w", err)
	}

	r.done = true
	return r.flush(), nil
}

// flush returns the accumulated record, if any, and resets the buffer.
func (r *Reader) flush() *Record {
	if r.state != accumulatingSequence {
		return nil
	}
	rec := &Record{Header: r.header, Sequence: r.seq.String()}
	r.header = ""
	r.seq.Reset()
	r.state = awaitingHeader
	return rec
}

func isSpace(c rune) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\v', '\f':
		return true
	}
	return false
}
