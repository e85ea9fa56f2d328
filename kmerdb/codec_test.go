package kmerdb

import (
	"bytes"
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ic-timon/kmerdb/kmerdb/store"
)

// randomDatabase builds a database with n ascending random codes.
func randomDatabase(t *testing.T, n, speciesNum int, seed int64) *Database {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	species := make([]SpeciesCount, speciesNum)
	for i := range species {
		species[i] = SpeciesCount{Name: string(rune('a'+i)) + "_species", Samples: uint32(rng.Intn(20) + 1), Index: i}
	}
	db := NewDatabase(species)
	code := uint64(0)
	for i := 0; i < n; i++ {
		code += uint64(rng.Intn(1000) + 1)
		probs := make([]float32, speciesNum)
		for j := range probs {
			probs[j] = rng.Float32()
		}
		require.NoError(t, db.Append(code, probs))
	}
	return db
}

func encode(t *testing.T, db *Database) []byte {
	t.Helper()
	var buf bytes.Buffer
	n, err := db.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	return buf.Bytes()
}

func TestCodec_Roundtrip(t *testing.T) {
	db := randomDatabase(t, 500, 4, 42)
	b := encode(t, db)
	assert.Len(t, b, int(db.Header.FileSize()))

	got, err := Decode(bytes.NewReader(b), true)
	require.NoError(t, err)
	assert.Equal(t, db.Header.Species, got.Header.Species)
	assert.Equal(t, db.Header.Offset, got.Header.Offset)
	assert.Equal(t, uint32(500), got.Header.Size)
	assert.Equal(t, db.Codes, got.Codes)
	for i := range db.Probs {
		assert.InDeltaSlice(t, db.Probs[i], got.Probs[i], 1e-7)
	}
}

func TestCodec_Layout(t *testing.T) {
	db := NewDatabase([]SpeciesCount{{Name: "s1", Samples: 2}, {Name: "s2", Samples: 2}})
	require.NoError(t, db.Append(5, []float32{1, 0.5}))
	b := encode(t, db)

	assert.Equal(t, "DBBR", string(b[:4]))
	assert.Equal(t, uint32(1), store.ByteOrder.Uint32(b[4:]))
	assert.Equal(t, uint32(2), store.ByteOrder.Uint32(b[8:]))
	offset := store.ByteOrder.Uint64(b[12:])
	assert.Equal(t, uint64(20+2*68), offset)
	assert.Equal(t, "s1", string(bytes.TrimRight(b[20:84], "\x00")))
	assert.Equal(t, uint32(2), store.ByteOrder.Uint32(b[84:]))
	assert.Equal(t, uint64(5), store.ByteOrder.Uint64(b[offset:]))
	assert.Len(t, b, int(offset)+8+2*4)
}

func TestCodec_ScenarioD_BadMagic(t *testing.T) {
	b := encode(t, randomDatabase(t, 10, 2, 1))
	copy(b, "XXXX")
	p := filepath.Join(t.TempDir(), "bad.db")
	require.NoError(t, os.WriteFile(p, b, 0o644))

	db, err := Load(p, false)
	assert.Nil(t, db)
	assert.ErrorIs(t, err, ErrCorruptHeader)
	assert.Equal(t, KindFormat, KindOf(err))

	r, err := Open(p)
	assert.Nil(t, r)
	assert.Equal(t, KindFormat, KindOf(err))

	h, err := ReadHeader(p)
	assert.Nil(t, h)
	assert.ErrorIs(t, err, ErrCorruptHeader)
}

func TestCodec_OffsetMismatch(t *testing.T) {
	b := encode(t, randomDatabase(t, 3, 2, 1))
	store.ByteOrder.PutUint64(b[12:], 21)
	_, err := Decode(bytes.NewReader(b), false)
	assert.ErrorIs(t, err, ErrCorruptHeader)
	assert.Equal(t, KindConsistency, KindOf(err))
}

func TestCodec_Truncated(t *testing.T) {
	db := randomDatabase(t, 20, 3, 5)
	b := encode(t, db)
	short := b[:len(b)-5]

	got, err := Decode(bytes.NewReader(short), false)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrTruncatedFile)
	assert.Equal(t, KindFormat, KindOf(err))

	p := filepath.Join(t.TempDir(), "short.db")
	require.NoError(t, os.WriteFile(p, short, 0o644))
	r, err := Open(p)
	assert.Nil(t, r)
	assert.ErrorIs(t, err, ErrTruncatedFile)

	_, err = Decode(bytes.NewReader(b[:10]), false)
	assert.ErrorIs(t, err, ErrTruncatedFile)
}

func TestCodec_HugeSpeciesNum(t *testing.T) {
	b := make([]byte, store.HeaderSize)
	copy(b, store.Magic)
	store.ByteOrder.PutUint32(b[8:], 0xFFFFFFFF)
	store.ByteOrder.PutUint64(b[12:], store.DataOffset(0xFFFFFFFF))

	got, err := Decode(bytes.NewReader(b), true)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrTruncatedFile)
	assert.Equal(t, KindFormat, KindOf(err))

	r, err := newReader(&memView{b: b})
	assert.Nil(t, r)
	assert.ErrorIs(t, err, ErrTruncatedFile)

	p := filepath.Join(t.TempDir(), "huge.db")
	require.NoError(t, os.WriteFile(p, b, 0o644))
	_, err = ReadHeader(p)
	assert.ErrorIs(t, err, ErrTruncatedFile)
	_, err = Load(p, false)
	assert.ErrorIs(t, err, ErrTruncatedFile)
	assert.Equal(t, KindFormat, KindOf(err))
	_, err = Open(p)
	assert.ErrorIs(t, err, ErrTruncatedFile)
}

func TestCodec_UnsortedStrict(t *testing.T) {
	db := randomDatabase(t, 5, 2, 9)
	b := encode(t, db)
	stride := store.EntrySize(2)
	off := int(db.Header.Offset)
	// swap the codes of entries 1 and 2
	c1 := store.ByteOrder.Uint64(b[off+stride:])
	c2 := store.ByteOrder.Uint64(b[off+2*stride:])
	store.ByteOrder.PutUint64(b[off+stride:], c2)
	store.ByteOrder.PutUint64(b[off+2*stride:], c1)

	_, err := Decode(bytes.NewReader(b), true)
	assert.ErrorIs(t, err, ErrUnsortedData)
	assert.Equal(t, KindFormat, KindOf(err))

	lenient, err := Decode(bytes.NewReader(b), false)
	require.NoError(t, err)
	assert.Equal(t, 5, lenient.Len())

	p := filepath.Join(t.TempDir(), "unsorted.db")
	require.NoError(t, os.WriteFile(p, b, 0o644))
	r, err := Open(p)
	require.NoError(t, err)
	defer r.Close()
	assert.ErrorIs(t, r.Validate(), ErrUnsortedData)
}

func TestWriteTo_RejectsBrokenInvariants(t *testing.T) {
	db := NewDatabase([]SpeciesCount{{Name: "a", Samples: 1}})
	db.Codes = []KmerCode{2, 1}
	db.Probs = [][]float32{{0.5}, {0.5}}
	var buf bytes.Buffer
	_, err := db.WriteTo(&buf)
	assert.ErrorIs(t, err, ErrUnsortedData)
	assert.Zero(t, buf.Len())

	db.Codes = []KmerCode{1, 2}
	db.Probs = [][]float32{{0.5}, {0.5, 0.1}}
	_, err = db.WriteTo(&buf)
	assert.ErrorIs(t, err, ErrMismatchedVectorLength)

	_, err = NewDatabase(nil).WriteTo(&buf)
	assert.ErrorIs(t, err, ErrEmptyDatabase)
}

func TestDatabase_Append(t *testing.T) {
	db := NewDatabase([]SpeciesCount{{Name: "a", Samples: 1}})
	require.NoError(t, db.Append(3, []float32{1}))
	assert.ErrorIs(t, db.Append(3, []float32{1}), ErrUnsortedData)
	assert.ErrorIs(t, db.Append(4, []float32{1, 1}), ErrMismatchedVectorLength)
	assert.Equal(t, uint32(1), db.Header.Size)
}

func TestLookup_HitAndMiss(t *testing.T) {
	db := randomDatabase(t, 1000, 3, 77)
	p := filepath.Join(t.TempDir(), "lookup.db")
	require.NoError(t, db.SaveToAtomic(context.Background(), p))

	r, err := Open(p)
	require.NoError(t, err)
	defer r.Close()
	require.NoError(t, r.Validate())
	assert.Equal(t, db.Len(), r.Len())
	assert.Equal(t, db.Header.Species, r.Header().Species)

	present := make(map[KmerCode]bool, db.Len())
	for i, code := range db.Codes {
		present[code] = true
		got, ok := r.Lookup(code)
		require.True(t, ok, "code %d", code)
		assert.Equal(t, db.Probs[i], got)
		mem, ok := db.Lookup(code)
		require.True(t, ok)
		assert.Equal(t, db.Probs[i], mem)
	}
	for _, code := range []KmerCode{0, db.Codes[0] - 1, db.Codes[len(db.Codes)-1] + 1, ^uint64(0)} {
		if present[code] {
			continue
		}
		_, ok := r.Lookup(code)
		assert.False(t, ok, "code %d", code)
		_, ok = db.Lookup(code)
		assert.False(t, ok, "code %d", code)
	}
	for i := 1; i < len(db.Codes); i++ {
		if gap := db.Codes[i-1] + 1; gap < db.Codes[i] {
			_, ok := r.Lookup(gap)
			assert.False(t, ok)
		}
	}
}

func TestReader_EmptyDatabase(t *testing.T) {
	db := NewDatabase([]SpeciesCount{{Name: "a", Samples: 1}})
	p := filepath.Join(t.TempDir(), "empty.db")
	require.NoError(t, db.SaveTo(p))
	r, err := Open(p)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, 0, r.Len())
	_, ok := r.Lookup(1)
	assert.False(t, ok)
	assert.Equal(t, 0, r.Search(1))
}

func TestReadHeader(t *testing.T) {
	db := randomDatabase(t, 50, 2, 3)
	p := filepath.Join(t.TempDir(), "hdr.db")
	require.NoError(t, db.SaveTo(p))
	h, err := ReadHeader(p)
	require.NoError(t, err)
	assert.Equal(t, uint32(50), h.Size)
	assert.Equal(t, 2, h.SpeciesNum())
	assert.Equal(t, store.DataOffset(2), h.Offset)

	st, err := os.Stat(p)
	require.NoError(t, err)
	assert.Equal(t, uint64(st.Size()), h.FileSize())
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.db"), true)
	assert.Equal(t, KindIO, KindOf(err))
	assert.True(t, IsNotExist(err))
}
