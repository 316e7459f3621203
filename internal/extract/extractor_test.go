package extract

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/inodb/koseq/internal/genomedb"
	"github.com/inodb/koseq/internal/hits"
)

func writeGenome(t *testing.T, root, chunk, genome, content string) {
	t.Helper()
	dir := filepath.Join(root, chunk)
	require.NoError(t, os.MkdirAll(dir, 0755))

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(filepath.Join(dir, genome+".faa.gz"), buf.Bytes(), 0644))
}

func newLayout(t *testing.T, root string) *genomedb.Layout {
	t.Helper()
	l, err := genomedb.NewLayout(root, "R226CHUNK", ".faa.gz")
	require.NoError(t, err)
	return l
}

func observed() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func TestExtractAll_MissingGenome(t *testing.T) {
	root := t.TempDir()
	writeGenome(t, root, "R226CHUNK01", "G1",
		">G1___a desc a\nMKV\nLL\n>G1___x other\nAAAA\n>G1___b desc b\nMST\n")

	idx := hits.NewIndex()
	idx.Add("G1", "G1___a")
	idx.Add("G1", "G1___b")
	idx.Add("G2", "G2___a")
	idx.Add("G2", "G2___b")

	logger, logs := observed()
	ex := NewExtractor(newLayout(t, root))
	ex.SetLogger(logger)

	var out bytes.Buffer
	sum, err := ex.ExtractAll(context.Background(), idx, "K00954", &out)
	require.NoError(t, err)

	assert.Equal(t, 4, sum.Wanted)
	assert.Equal(t, 2, sum.Extracted)
	assert.Equal(t, 1, sum.MissingGenomes)
	assert.Equal(t, 1, sum.Warnings())
	assert.Equal(t, ">G1___a desc a\nMKVLL\n>G1___b desc b\nMST\n", out.String())

	warns := logs.FilterMessage("FASTA not found for genome").All()
	require.Len(t, warns, 1)
	assert.Equal(t, "G2", warns[0].ContextMap()["genome"])
}

func TestExtractAll_GenomeOrder(t *testing.T) {
	root := t.TempDir()
	writeGenome(t, root, "R226CHUNK02", "GB", ">GB___1\nBB\n")
	writeGenome(t, root, "R226CHUNK01", "GC", ">GC___1\nCC\n")
	writeGenome(t, root, "R226CHUNK03", "GA", ">GA___1\nAA\n")

	idx := hits.NewIndex()
	for _, g := range []string{"GC", "GA", "GB"} {
		idx.Add(g, g+"___1")
	}

	var out bytes.Buffer
	sum, err := NewExtractor(newLayout(t, root)).ExtractAll(context.Background(), idx, "K00954", &out)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Extracted)
	assert.Equal(t, ">GA___1\nAA\n>GB___1\nBB\n>GC___1\nCC\n", out.String())
}

func TestExtractAll_GeneNotFound(t *testing.T) {
	root := t.TempDir()
	writeGenome(t, root, "R226CHUNK01", "G1", ">G1___a\nMK\n")

	idx := hits.NewIndex()
	idx.Add("G1", "G1___a")
	idx.Add("G1", "G1___zz")

	logger, logs := observed()
	ex := NewExtractor(newLayout(t, root))
	ex.SetLogger(logger)

	var out bytes.Buffer
	sum, err := ex.ExtractAll(context.Background(), idx, "K00954", &out)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Extracted)
	assert.Equal(t, 1, sum.MissingGenes)
	assert.Len(t, logs.FilterMessage("gene not found in genome FASTA").All(), 1)
}

func TestExtractAll_EmptySequenceSkipped(t *testing.T) {
	root := t.TempDir()
	writeGenome(t, root, "R226CHUNK01", "G1", ">G1___a\n>G1___b\nMK\n")

	idx := hits.NewIndex()
	idx.Add("G1", "G1___a")
	idx.Add("G1", "G1___b")

	var out bytes.Buffer
	sum, err := NewExtractor(newLayout(t, root)).ExtractAll(context.Background(), idx, "K00954", &out)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Extracted)
	assert.Equal(t, 1, sum.EmptySequences)
	assert.Equal(t, ">G1___b\nMK\n", out.String())
}

func TestExtractAll_CorruptGenomeDoesNotAbort(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "R226CHUNK01")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "G1.faa.gz"), []byte{0x1f, 0x8b, 0x08}, 0644))
	writeGenome(t, root, "R226CHUNK01", "G2", ">G2___a\nMK\n")

	idx := hits.NewIndex()
	idx.Add("G1", "G1___a")
	idx.Add("G2", "G2___a")

	logger, logs := observed()
	ex := NewExtractor(newLayout(t, root))
	ex.SetLogger(logger)

	var out bytes.Buffer
	sum, err := ex.ExtractAll(context.Background(), idx, "K00954", &out)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 1, sum.Extracted)
	assert.Equal(t, ">G2___a\nMK\n", out.String())

	failed := logs.FilterMessage("extraction failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "G1___a", failed[0].ContextMap()["gene"])
}

type stubResolver struct {
	err error
}

func (r stubResolver) Resolve(string) (string, bool, error) {
	return "", false, r.err
}

func TestExtractAll_ResolveError(t *testing.T) {
	idx := hits.NewIndex()
	idx.Add("G1", "G1___a")
	idx.Add("G1", "G1___b")

	var out bytes.Buffer
	sum, err := NewExtractor(stubResolver{err: errors.New("permission denied")}).
		ExtractAll(context.Background(), idx, "K00954", &out)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Failed)
	assert.Empty(t, out.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("no space left") }

func TestExtractAll_OutputErrorAborts(t *testing.T) {
	root := t.TempDir()
	writeGenome(t, root, "R226CHUNK01", "G1", ">G1___a\n"+strings.Repeat("M", 8192)+"\n")

	idx := hits.NewIndex()
	idx.Add("G1", "G1___a")

	_, err := NewExtractor(newLayout(t, root)).ExtractAll(context.Background(), idx, "K00954", failingWriter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no space left")
}

func TestExtractAll_Cancelled(t *testing.T) {
	idx := hits.NewIndex()
	idx.Add("G1", "G1___a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewExtractor(stubResolver{}).ExtractAll(ctx, idx, "K00954", &bytes.Buffer{})
	assert.ErrorIs(t, err, context.Canceled)
}

type outcome struct {
	genome, gene string
	found        bool
	length       int
}

type recordingSink struct {
	outcomes []outcome
}

func (s *recordingSink) AddExtraction(ko, genomeID, geneID string, found bool, seqLength int) error {
	s.outcomes = append(s.outcomes, outcome{genomeID, geneID, found, seqLength})
	return nil
}

func TestExtractAll_Sink(t *testing.T) {
	root := t.TempDir()
	writeGenome(t, root, "R226CHUNK01", "G1", ">G1___a\nMKV\n")

	idx := hits.NewIndex()
	idx.Add("G1", "G1___a")
	idx.Add("G1", "G1___b")
	idx.Add("G2", "G2___a")

	sink := &recordingSink{}
	ex := NewExtractor(newLayout(t, root))
	ex.SetSink(sink)

	_, err := ex.ExtractAll(context.Background(), idx, "K00954", &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, []outcome{
		{"G1", "G1___a", true, 3},
		{"G1", "G1___b", false, 0},
		{"G2", "G2___a", false, 0},
	}, sink.outcomes)
}

func TestExtractToFile(t *testing.T) {
	root := t.TempDir()
	writeGenome(t, root, "R226CHUNK01", "G1", ">G1___a d\nMK\n")

	idx := hits.NewIndex()
	idx.Add("G1", "G1___a")

	outPath := filepath.Join(t.TempDir(), "K00954", "K00954_all_sequences.faa")
	sum, err := NewExtractor(newLayout(t, root)).ExtractToFile(context.Background(), idx, "K00954", outPath)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Extracted)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, ">G1___a d\nMK\n", string(data))
}
