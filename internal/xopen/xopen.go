// Package xopen opens plain, gzip or zstd compressed text streams.
package xopen

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Format identifies the compression of a stream.
type Format int

const (
	FormatPlain Format = iota
	FormatGzip
	FormatZstd
)

func (f Format) String() string {
	switch f {
	case FormatGzip:
		return "gzip"
	case FormatZstd:
		return "zstd"
	}
	return "plain"
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

const readBufferSize = 1 << 20

// multiReadCloser closes every closer in order when Close is called.
type multiReadCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiReadCloser) Close() error {
	var err error
	for _, c := range m.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Detect reports the compression format by peeking at the magic bytes.
// Peeking does not consume input from br.
func Detect(br *bufio.Reader) (Format, error) {
	sig, err := br.Peek(len(zstdMagic))
	if err != nil && err != io.EOF {
		return FormatPlain, err
	}
	switch {
	case bytes.HasPrefix(sig, gzipMagic):
		return FormatGzip, nil
	case bytes.HasPrefix(sig, zstdMagic):
		return FormatZstd, nil
	}
	return FormatPlain, nil
}

// NewReader wraps r with the decoder matching its magic bytes.
// The returned closer releases the decoder only; r is left open.
func NewReader(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReaderSize(r, readBufferSize)
	format, err := Detect(br)
	if err != nil {
		return nil, fmt.Errorf("detect compression: %w", err)
	}

	switch format {
	case FormatGzip:
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		return gz, nil
	case FormatZstd:
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("open zstd reader: %w", err)
		}
		return dec.IOReadCloser(), nil
	}
	return io.NopCloser(br), nil
}

// Open opens path and returns a reader over its decompressed content.
// Use "-" for stdin. Closing the result closes both decoder and file.
func Open(path string) (io.ReadCloser, error) {
	if path == "-" {
		return NewReader(os.Stdin)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	rc, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &multiReadCloser{Reader: rc, closers: []io.Closer{rc, f}}, nil
}
