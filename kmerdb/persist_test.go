package kmerdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersist_SaveToAtomic(t *testing.T) {
	db := randomDatabase(t, 100, 2, 11)
	p := filepath.Join(t.TempDir(), "nested", "atomic.db")
	require.NoError(t, db.SaveToAtomic(context.Background(), p))
	if _, err := os.Stat(TempPath(p)); err == nil {
		t.Error("temp file should be removed after rename")
	}
	got, err := Load(p, true)
	require.NoError(t, err)
	assert.Equal(t, db.Codes, got.Codes)
}

func TestPersist_ReplacesExisting(t *testing.T) {
	p := filepath.Join(t.TempDir(), "replace.db")
	require.NoError(t, randomDatabase(t, 10, 2, 1).SaveToAtomic(context.Background(), p))
	second := randomDatabase(t, 20, 3, 2)
	require.NoError(t, second.SaveToAtomic(context.Background(), p))
	h, err := ReadHeader(p)
	require.NoError(t, err)
	assert.Equal(t, uint32(20), h.Size)
	assert.Equal(t, 3, h.SpeciesNum())
}

func TestPersist_FailureLeavesNoOutput(t *testing.T) {
	p := filepath.Join(t.TempDir(), "never.db")
	db := NewDatabase([]SpeciesCount{{Name: "a", Samples: 1}})
	db.Codes = []KmerCode{2, 1}
	db.Probs = [][]float32{{1}, {1}}
	err := db.SaveToAtomic(context.Background(), p)
	assert.ErrorIs(t, err, ErrUnsortedData)
	assert.NoFileExists(t, p)
	assert.NoFileExists(t, TempPath(p))
}

func TestPersist_VerifyFailureKeepsPrevious(t *testing.T) {
	p := filepath.Join(t.TempDir(), "keep.db")
	require.NoError(t, randomDatabase(t, 10, 2, 1).SaveToAtomic(context.Background(), p))

	next := randomDatabase(t, 30, 2, 2)
	boom := &Error{Kind: KindConsistency, Op: "verify", Err: ErrTruncatedFile}
	err := next.publish(context.Background(), p, func(string) error { return boom })
	assert.ErrorIs(t, err, ErrTruncatedFile)
	assert.NoFileExists(t, TempPath(p))

	h, err := ReadHeader(p)
	require.NoError(t, err)
	assert.Equal(t, uint32(10), h.Size)
}

func TestPersist_LockHeld(t *testing.T) {
	p := filepath.Join(t.TempDir(), "locked.db")
	other := flock.New(LockPath(p))
	locked, err := other.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer other.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = randomDatabase(t, 5, 1, 1).SaveToAtomic(ctx, p)
	assert.Error(t, err)
	assert.Equal(t, KindIO, KindOf(err))
	assert.NoFileExists(t, p)
}
