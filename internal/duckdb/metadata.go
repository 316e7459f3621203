package duckdb

import (
	"os"
	"time"
)

// FileFingerprint records which input a run consumed.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// FingerprintInput stats path for the runs table. Stdin ("-") and paths
// that cannot be stat'ed keep only Path.
func FingerprintInput(path string) FileFingerprint {
	fp := FileFingerprint{Path: path}
	if path == "-" {
		return fp
	}
	info, err := os.Stat(path)
	if err != nil {
		return fp
	}
	fp.Size = info.Size()
	fp.ModTime = info.ModTime()
	return fp
}

// modTimeValue returns nil for an unknown modification time so the column
// stays NULL.
func (fp FileFingerprint) modTimeValue() any {
	if fp.ModTime.IsZero() {
		return nil
	}
	return fp.ModTime.UTC()
}
