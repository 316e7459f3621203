package scan

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/inodb/koseq/internal/hits"
)

const annotations = "GCA_1___00001\tkofam\tK00954\tpantetheine-phosphate adenylyltransferase\t1.2e-50\n" +
	"GCA_1___00002\tkofam\tK00001\talcohol dehydrogenase\t3e-20\n" +
	"short\tline\n" +
	"GCA_2___00007\tkofam\tK00954\tpantetheine-phosphate adenylyltransferase\t4e-44\textra\tcols\n" +
	"nodelim\tkofam\tK00954\tdesc\t1e-5\n" +
	"GCA_3___00003\tkofam\tk00954\tlowercase KO\t1e-9\n"

func TestDeriveGenomeID(t *testing.T) {
	tests := []struct {
		geneID   string
		expected string
	}{
		{"G1___gene5", "G1"},
		{"gene5", "gene5"},
		{"A___B___C", "A___B"},
		{"G1____x", "G1_"},
		{"___x", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.geneID, func(t *testing.T) {
			assert.Equal(t, tt.expected, DeriveGenomeID(tt.geneID))
		})
	}
}

func TestScan(t *testing.T) {
	var out bytes.Buffer
	res, err := NewScanner().Scan(context.Background(), strings.NewReader(annotations), "K00954", &out)
	require.NoError(t, err)

	assert.Equal(t, int64(6), res.LinesScanned)
	assert.Equal(t, int64(3), res.HitsFound)

	want := "genome_id\tgene_id\te_value\n" +
		"GCA_1\tGCA_1___00001\t1.2e-50\n" +
		"GCA_2\tGCA_2___00007\t4e-44\n" +
		"nodelim\tnodelim\t1e-5\n"
	assert.Equal(t, want, out.String())
}

func TestScan_NoHits(t *testing.T) {
	var out bytes.Buffer
	res, err := NewScanner().Scan(context.Background(), strings.NewReader(annotations), "K99999", &out)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.HitsFound)
	assert.Equal(t, hits.Header+"\n", out.String())
}

func TestScan_EmptyInput(t *testing.T) {
	var out bytes.Buffer
	res, err := NewScanner().Scan(context.Background(), strings.NewReader(""), "K00954", &out)
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
	assert.Equal(t, hits.Header+"\n", out.String())
}

type recordingSink struct {
	hits []hits.GeneHit
	err  error
}

func (s *recordingSink) AddHit(ko string, h hits.GeneHit) error {
	s.hits = append(s.hits, h)
	return s.err
}

func TestScan_Sink(t *testing.T) {
	sink := &recordingSink{}
	s := NewScanner()
	s.SetSink(sink)

	var out bytes.Buffer
	_, err := s.Scan(context.Background(), strings.NewReader(annotations), "K00954", &out)
	require.NoError(t, err)
	require.Len(t, sink.hits, 3)
	assert.Equal(t, hits.GeneHit{GenomeID: "GCA_1", GeneID: "GCA_1___00001", EValue: "1.2e-50"}, sink.hits[0])
}

func TestScan_SinkError(t *testing.T) {
	sink := &recordingSink{err: errors.New("ledger closed")}
	s := NewScanner()
	s.SetSink(sink)

	var out bytes.Buffer
	_, err := s.Scan(context.Background(), strings.NewReader(annotations), "K00954", &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger closed")
}

func TestScan_Cancelled(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < ctxCheckEvery+1; i++ {
		sb.WriteString("g\tkofam\tK00001\td\t1\n")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	_, err := NewScanner().Scan(ctx, strings.NewReader(sb.String()), "K00954", &out)
	assert.ErrorIs(t, err, context.Canceled)
}

// Round trip: every pair written by the scanner is read back by the hits parser.
func TestScan_RoundTripWithHitsParser(t *testing.T) {
	var out bytes.Buffer
	_, err := NewScanner().Scan(context.Background(), strings.NewReader(annotations), "K00954", &out)
	require.NoError(t, err)

	idx, err := hits.NewParser().Parse(&out, "K00954")
	require.NoError(t, err)

	assert.Equal(t, 3, idx.Total())
	assert.True(t, idx.Has("GCA_1", "GCA_1___00001"))
	assert.True(t, idx.Has("GCA_2", "GCA_2___00007"))
	assert.True(t, idx.Has("nodelim", "nodelim"))
}

func writeCompressed(t *testing.T, path string, zst bool) {
	t.Helper()
	var buf bytes.Buffer
	if zst {
		zw, err := zstd.NewWriter(&buf)
		require.NoError(t, err)
		_, err = zw.Write([]byte(annotations))
		require.NoError(t, err)
		require.NoError(t, zw.Close())
	} else {
		zw := gzip.NewWriter(&buf)
		_, err := zw.Write([]byte(annotations))
		require.NoError(t, err)
		require.NoError(t, zw.Close())
	}
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

func TestScanFile(t *testing.T) {
	for _, name := range []string{"kegg_all.gz", "kegg_all.zst"} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			src := filepath.Join(dir, name)
			writeCompressed(t, src, strings.HasSuffix(name, ".zst"))

			outPath := filepath.Join(dir, "K00954_hits.tsv")
			require.NoError(t, os.WriteFile(outPath, []byte("stale content\n"), 0644))

			res, err := NewScanner().ScanFile(context.Background(), src, "K00954", outPath)
			require.NoError(t, err)
			assert.Equal(t, int64(3), res.HitsFound)

			data, err := os.ReadFile(outPath)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(string(data), hits.Header+"\n"))
			assert.NotContains(t, string(data), "stale")
		})
	}
}

func TestScanFile_MissingInput(t *testing.T) {
	dir := t.TempDir()
	_, err := NewScanner().ScanFile(context.Background(), filepath.Join(dir, "none.gz"), "K00954", filepath.Join(dir, "out.tsv"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestScanFile_CorruptArchive(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "bad.gz")
	require.NoError(t, os.WriteFile(src, []byte{0x1f, 0x8b, 0x08, 0x00}, 0644))

	_, err := NewScanner().ScanFile(context.Background(), src, "K00954", filepath.Join(dir, "out.tsv"))
	require.Error(t, err)
}

func TestScan_ProgressLogging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s := NewScanner()
	s.SetLogger(zap.New(core))
	s.SetProgressEvery(2)

	var out bytes.Buffer
	_, err := s.Scan(context.Background(), strings.NewReader(annotations), "K00954", &out)
	require.NoError(t, err)

	progress := logs.FilterMessage("scanning").All()
	require.Len(t, progress, 3)
	assert.Equal(t, int64(6), progress[2].ContextMap()["lines"])

	s.SetProgressEvery(0)
	logs.TakeAll()
	_, err = s.Scan(context.Background(), strings.NewReader(annotations), "K00954", &out)
	require.NoError(t, err)
	assert.Empty(t, logs.FilterMessage("scanning").All())
}
