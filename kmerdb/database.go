package kmerdb

import (
	"fmt"
	"sort"

	"github.com/ic-timon/kmerdb/kmerdb/store"
)

// KmerCode is the fixed-width encoding of a canonical k-mer. See package kmer.
type KmerCode = uint64

// Header is the decoded database header.
type Header struct {
	Size    uint32 // number of k-mer entries
	Offset  uint64 // byte offset of the probability section
	Species []SpeciesCount
}

// SpeciesNum returns the number of species.
func (h *Header) SpeciesNum() int { return len(h.Species) }

// EntrySize returns the stride of one probability entry.
func (h *Header) EntrySize() int { return store.EntrySize(len(h.Species)) }

// FileSize returns the byte length of a complete file with this header.
func (h *Header) FileSize() uint64 {
	return h.Offset + uint64(h.Size)*uint64(h.EntrySize())
}

func headerFromStore(h *store.Header) *Header {
	return &Header{Size: h.Size, Offset: h.Offset, Species: fromStoreSpecies(h.Species)}
}

// Database is the in-memory projection of a database file: the header and the
// k-mer codes in strictly increasing order with their probability vectors.
// Codes[i] maps to Probs[i].
type Database struct {
	Header Header
	Codes  []KmerCode
	Probs  [][]float32
}

// NewDatabase creates an empty database for species. Entries must be appended in
// strictly increasing code order.
func NewDatabase(species []SpeciesCount) *Database {
	return &Database{
		Header: Header{
			Offset:  store.DataOffset(len(species)),
			Species: append([]SpeciesCount(nil), species...),
		},
	}
}

// Append adds an entry. code must be greater than every code already present.
func (db *Database) Append(code KmerCode, probs []float32) error {
	if len(probs) != db.Header.SpeciesNum() {
		return newError(KindConsistency, "append", fmt.Errorf("%w: got %d, want %d", ErrMismatchedVectorLength, len(probs), db.Header.SpeciesNum()))
	}
	if n := len(db.Codes); n > 0 && code <= db.Codes[n-1] {
		return newError(KindFormat, "append", fmt.Errorf("%w: code %d after %d", ErrUnsortedData, code, db.Codes[n-1]))
	}
	db.Codes = append(db.Codes, code)
	db.Probs = append(db.Probs, probs)
	db.Header.Size = uint32(len(db.Codes))
	return nil
}

// Len returns the number of k-mer entries.
func (db *Database) Len() int { return len(db.Codes) }

// Lookup returns the probability vector for code by binary search.
func (db *Database) Lookup(code KmerCode) ([]float32, bool) {
	i := sort.Search(len(db.Codes), func(i int) bool { return db.Codes[i] >= code })
	if i < len(db.Codes) && db.Codes[i] == code {
		return db.Probs[i], true
	}
	return nil, false
}

// validate checks the sorted and vector length invariants.
func (db *Database) validate(op string) error {
	if len(db.Codes) != len(db.Probs) {
		return newError(KindConsistency, op, fmt.Errorf("%w: %d codes, %d vectors", ErrMismatchedVectorLength, len(db.Codes), len(db.Probs)))
	}
	if uint64(len(db.Codes)) > uint64(^uint32(0)) {
		return newError(KindConsistency, op, fmt.Errorf("%d entries exceed the size field", len(db.Codes)))
	}
	n := db.Header.SpeciesNum()
	if n == 0 {
		return newError(KindInvalidParameter, op, ErrEmptyDatabase)
	}
	for i, p := range db.Probs {
		if len(p) != n {
			return newError(KindConsistency, op, fmt.Errorf("%w: entry %d has %d values, want %d", ErrMismatchedVectorLength, i, len(p), n))
		}
		if i > 0 && db.Codes[i] <= db.Codes[i-1] {
			return newError(KindFormat, op, fmt.Errorf("%w: code %d at entry %d after %d", ErrUnsortedData, db.Codes[i], i, db.Codes[i-1]))
		}
	}
	return nil
}
