package kmerdb

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ic-timon/kmerdb/kmer"
)

func writeGenome(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func code(t *testing.T, s string) KmerCode {
	t.Helper()
	c, ok := kmer.Encode([]byte(s))
	require.True(t, ok, s)
	return c
}

func TestCounter_GenomeKmers(t *testing.T) {
	dir := t.TempDir()
	// AAAA repeated and its reverse complement TTTT collapse to one canonical k-mer.
	p := writeGenome(t, dir, "g.fa", ">c1\nAAAAAA\n>c2\nTTTT\n")
	c := &Counter{K: 4}
	set, err := c.GenomeKmers(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []uint64{code(t, "AAAA")}, set.ToArray())
}

func TestCounter_CountAll(t *testing.T) {
	dir := t.TempDir()
	a1 := writeGenome(t, dir, "a1.fa", ">x\nACGTAC\n")
	a2 := writeGenome(t, dir, "a2.fa", ">x\nACGTTT\n")
	b1 := writeGenome(t, dir, "b1.fa", ">y\nGGGGGG\n")

	tbl := NewSpeciesTable()
	_, err := tbl.Register("A", 2)
	require.NoError(t, err)
	_, err = tbl.Register("B", 1)
	require.NoError(t, err)

	c := &Counter{K: 4, Workers: 2}
	counts, err := c.CountAll(context.Background(), tbl, [][]string{{a1, a2}, {b1}}, 2)
	require.NoError(t, err)

	assert.Equal(t, []int64{2, 0}, counts.Counts(code(t, "ACGT")))
	assert.Equal(t, []int64{1, 0}, counts.Counts(code(t, "CGTA")))
	assert.Equal(t, []int64{0, 1}, counts.Counts(code(t, "GGGG")))
	for _, v := range [][]int64{counts.Counts(code(t, "GTTT")), counts.Counts(code(t, "CGTT"))} {
		assert.Equal(t, []int64{1, 0}, v)
	}

	cfg := DefaultConfig()
	cfg.Alpha = 0
	cfg.Threshold = 0.9
	out := filepath.Join(dir, "out.db")
	db, err := NewCoordinator(tbl, cfg, nil).Run(context.Background(), counts, out)
	require.NoError(t, err)
	p, ok := db.Lookup(code(t, "ACGT"))
	require.True(t, ok)
	assert.Equal(t, []float32{1, 0}, p)
	_, ok = db.Lookup(code(t, "CGTA"))
	assert.False(t, ok)
}

func TestCounter_Errors(t *testing.T) {
	dir := t.TempDir()
	tbl := NewSpeciesTable()
	_, err := tbl.Register("A", 2)
	require.NoError(t, err)

	c := &Counter{K: 4}
	_, err = c.CountAll(context.Background(), tbl, [][]string{{filepath.Join(dir, "missing.fa")}}, 1)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = c.CountAll(context.Background(), tbl, [][]string{{filepath.Join(dir, "m1.fa"), filepath.Join(dir, "m2.fa")}}, 1)
	assert.Equal(t, KindIO, KindOf(err))
	assert.True(t, IsNotExist(err))

	_, err = c.CountAll(context.Background(), tbl, nil, 1)
	assert.ErrorIs(t, err, ErrMismatchedVectorLength)

	_, err = (&Counter{K: 40}).GenomeKmers(context.Background(), "x")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCounter_CountAllLogsSpecies(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	c := &Counter{K: 4, Log: NewLogger(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))}
	tbl := NewSpeciesTable()
	_, err := tbl.Register("E_coli", 1)
	require.NoError(t, err)
	genome := writeGenome(t, dir, "e.fa", ">e\nACGTAC\n")

	_, err = c.CountAll(context.Background(), tbl, [][]string{{genome}}, 1)
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec))
	assert.Equal(t, "genome counted", rec["msg"])
	assert.Equal(t, "E_coli", rec["species"])
	assert.Equal(t, genome, rec["genome"])
	assert.Equal(t, float64(3), rec["kmers"])
}
