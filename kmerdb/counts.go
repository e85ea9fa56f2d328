package kmerdb

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

type countShard struct {
	mu     sync.Mutex
	counts map[KmerCode][]int64
}

// CountStore accumulates raw per-species k-mer counts. Codes are sharded by
// code % nShards, each shard behind its own lock. Addition is the only mutation, so the
// final counts do not depend on the order in which contributions arrive.
type CountStore struct {
	shards     []*countShard
	speciesNum int
}

// NewCountStore creates a store for speciesNum species. nShards <= 0 uses NumCPU.
func NewCountStore(speciesNum, nShards int) *CountStore {
	if nShards <= 0 {
		nShards = runtime.NumCPU()
	}
	shards := make([]*countShard, nShards)
	for i := range shards {
		shards[i] = &countShard{counts: make(map[KmerCode][]int64)}
	}
	return &CountStore{shards: shards, speciesNum: speciesNum}
}

// SpeciesNum returns the length of every count vector.
func (s *CountStore) SpeciesNum() int { return s.speciesNum }

func (s *CountStore) shard(code KmerCode) *countShard {
	return s.shards[code%uint64(len(s.shards))]
}

func (s *CountStore) checkSpecies(species int) error {
	if species < 0 || species >= s.speciesNum {
		return invalidf("count", "species index %d outside [0,%d)", species, s.speciesNum)
	}
	return nil
}

// Add adds delta to the count of code for species. Negative deltas are rejected.
func (s *CountStore) Add(code KmerCode, species int, delta int64) error {
	if err := s.checkSpecies(species); err != nil {
		return err
	}
	if delta < 0 {
		return invalidf("count", "negative delta %d", delta)
	}
	sh := s.shard(code)
	sh.mu.Lock()
	sh.add(code, species, delta, s.speciesNum)
	sh.mu.Unlock()
	return nil
}

// AddSet adds one to the count of every code in set for species. This is how a
// genome's k-mer presence set is folded in; each shard is locked once.
func (s *CountStore) AddSet(species int, set *roaring64.Bitmap) error {
	if err := s.checkSpecies(species); err != nil {
		return err
	}
	buckets := make([][]KmerCode, len(s.shards))
	it := set.Iterator()
	for it.HasNext() {
		code := it.Next()
		i := code % uint64(len(s.shards))
		buckets[i] = append(buckets[i], code)
	}
	for i, codes := range buckets {
		if len(codes) == 0 {
			continue
		}
		sh := s.shards[i]
		sh.mu.Lock()
		for _, code := range codes {
			sh.add(code, species, 1, s.speciesNum)
		}
		sh.mu.Unlock()
	}
	return nil
}

func (sh *countShard) add(code KmerCode, species int, delta int64, speciesNum int) {
	v, ok := sh.counts[code]
	if !ok {
		v = make([]int64, speciesNum)
		sh.counts[code] = v
	}
	v[species] += delta
}

// CountsInto copies the counts of code into dst (zeros when the code was never seen).
func (s *CountStore) CountsInto(dst []int64, code KmerCode) error {
	if len(dst) != s.speciesNum {
		return newError(KindConsistency, "count", fmt.Errorf("%w: got %d, want %d", ErrMismatchedVectorLength, len(dst), s.speciesNum))
	}
	sh := s.shard(code)
	sh.mu.Lock()
	v, ok := sh.counts[code]
	if ok {
		copy(dst, v)
	}
	sh.mu.Unlock()
	if !ok {
		clear(dst)
	}
	return nil
}

// Counts returns a copy of the counts of code.
func (s *CountStore) Counts(code KmerCode) []int64 {
	out := make([]int64, s.speciesNum)
	_ = s.CountsInto(out, code)
	return out
}

// Codes returns the set of all codes seen for any species. Iteration is ascending.
func (s *CountStore) Codes() *roaring64.Bitmap {
	bm := roaring64.New()
	for _, sh := range s.shards {
		sh.mu.Lock()
		for code := range sh.counts {
			bm.Add(code)
		}
		sh.mu.Unlock()
	}
	return bm
}

// Len returns the number of distinct codes.
func (s *CountStore) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		n += len(sh.counts)
		sh.mu.Unlock()
	}
	return n
}
