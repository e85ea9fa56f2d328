package kmerdb

import (
	"fmt"
	"strings"

	"github.com/ic-timon/kmerdb/kmerdb/store"
)

// SpeciesCount is a registered species and its sample genome count.
type SpeciesCount struct {
	Name    string
	Samples uint32 // smoothing denominator
	Index   int    // serialization position; probability vectors follow this order
}

// SpeciesTable is an ordered registry of species. Indices follow insertion order and
// are fixed once Finalize has been called. Not safe for concurrent Register calls.
type SpeciesTable struct {
	species   []SpeciesCount
	byName    map[string]int
	finalized bool
}

// NewSpeciesTable creates an empty table.
func NewSpeciesTable() *SpeciesTable {
	return &SpeciesTable{byName: make(map[string]int)}
}

// Register adds a species and returns its index.
func (t *SpeciesTable) Register(name string, samples uint32) (int, error) {
	const op = "register"
	if t.finalized {
		return 0, invalidf(op, "table is finalized")
	}
	if len(name) > store.NameFieldSize {
		return 0, newError(KindInvalidParameter, op, fmt.Errorf("%w: %d bytes (max %d): %q", ErrNameTooLong, len(name), store.NameFieldSize, name))
	}
	if name == "" || strings.IndexByte(name, 0) >= 0 {
		return 0, invalidf(op, "species name %q", name)
	}
	if samples == 0 {
		return 0, invalidf(op, "species %q has no sample genomes", name)
	}
	if _, ok := t.byName[name]; ok {
		return 0, newError(KindInvalidParameter, op, fmt.Errorf("%w: %q", ErrDuplicateSpecies, name))
	}
	idx := len(t.species)
	t.species = append(t.species, SpeciesCount{Name: name, Samples: samples, Index: idx})
	t.byName[name] = idx
	return idx, nil
}

// Finalize freezes the table and returns the ordered species list.
func (t *SpeciesTable) Finalize() ([]SpeciesCount, error) {
	if len(t.species) == 0 {
		return nil, newError(KindInvalidParameter, "finalize", ErrEmptyDatabase)
	}
	t.finalized = true
	return t.Species(), nil
}

// Finalized reports whether Finalize succeeded.
func (t *SpeciesTable) Finalized() bool { return t.finalized }

// Len returns the number of registered species.
func (t *SpeciesTable) Len() int { return len(t.species) }

// Species returns a copy of the ordered species list.
func (t *SpeciesTable) Species() []SpeciesCount {
	out := make([]SpeciesCount, len(t.species))
	copy(out, t.species)
	return out
}

// Index returns the index of name.
func (t *SpeciesTable) Index(name string) (int, bool) {
	i, ok := t.byName[name]
	return i, ok
}

// Denominators returns the sample counts in index order.
func (t *SpeciesTable) Denominators() []uint32 {
	out := make([]uint32, len(t.species))
	for i, s := range t.species {
		out[i] = s.Samples
	}
	return out
}

func toStoreSpecies(species []SpeciesCount) []store.Species {
	out := make([]store.Species, len(species))
	for i, s := range species {
		out[i] = store.Species{Name: s.Name, Samples: s.Samples}
	}
	return out
}

func fromStoreSpecies(species []store.Species) []SpeciesCount {
	out := make([]SpeciesCount, len(species))
	for i, s := range species {
		out[i] = SpeciesCount{Name: s.Name, Samples: s.Samples, Index: i}
	}
	return out
}
