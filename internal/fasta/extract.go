package fasta

import (
	"fmt"

	"github.com/inodb/koseq/internal/xopen"
)

// ExtractSequence scans path for the record whose ID equals geneID and
// returns it, stopping at the first match. It returns nil, nil when the
// file has no such record.
func ExtractSequence(path, geneID string) (*Record, error) {
	rc, err := xopen.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open FASTA: %w", err)
	}
	defer rc.Close()

	r := NewReader(rc)
	for {
		rec, err := r.Next()
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, nil
		}
		if rec.ID() == geneID {
			return rec, nil
		}
	}
}

// ExtractSet scans path once and calls emit for every record whose ID is in
// wanted, in file order. Scanning stops once every wanted ID has been seen.
// Only the first record for a given ID is emitted. The returned set holds
// the IDs that were found, including when an error cuts the scan short.
func ExtractSet(path string, wanted map[string]struct{}, emit func(*Record) error) (map[string]struct{}, error) {
	found := make(map[string]struct{}, len(wanted))
	if len(wanted) == 0 {
		return found, nil
	}

	rc, err := xopen.Open(path)
	if err != nil {
		return found, fmt.Errorf("open FASTA: %w", err)
	}
	defer rc.Close()

	r := NewReader(rc)
	for len(found) < len(wanted) {
		rec, err := r.Next()
		if err != nil {
			return found, err
		}
		if rec == nil {
			break
		}

		id := rec.ID()
		if _, ok := wanted[id]; !ok {
			continue
		}
		if _, dup := found[id]; dup {
			continue
		}
		found[id] = struct{}{}
		if err := emit(rec); err != nil {
			return found, err
		}
	}
	return found, nil
}
