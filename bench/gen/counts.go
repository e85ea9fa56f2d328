// Package gen 提供压测用随机计数生成
package gen

import (
	"fmt"
	"math/rand"

	"github.com/ic-timon/kmerdb/kmer"
	"github.com/ic-timon/kmerdb/kmerdb"
)

// Species 生成 n 个物种，样本数在 [1, maxSamples] 内随机
func Species(n int, maxSamples uint32, seed int64) (*kmerdb.SpeciesTable, error) {
	rng := rand.New(rand.NewSource(seed))
	table := kmerdb.NewSpeciesTable()
	for i := 0; i < n; i++ {
		samples := uint32(rng.Intn(int(maxSamples))) + 1
		if _, err := table.Register(fmt.Sprintf("species_%03d", i), samples); err != nil {
			return nil, err
		}
	}
	return table, nil
}

// RandomCodes 生成 n 个 k 长度的规范 k-mer 编码（可能重复）
func RandomCodes(n, k int, seed int64) []kmerdb.KmerCode {
	rng := rand.New(rand.NewSource(seed))
	mask := uint64(1)<<(2*uint(k)) - 1
	out := make([]kmerdb.KmerCode, n)
	for i := range out {
		out[i] = kmer.Canonical(rng.Uint64()&mask, k)
	}
	return out
}

// RandomCounts 按物种样本数生成计数：每个 k-mer 只出现在少数物种中，计数不超过样本数
func RandomCounts(species []kmerdb.SpeciesCount, codes []kmerdb.KmerCode, seed int64) (*kmerdb.CountStore, error) {
	rng := rand.New(rand.NewSource(seed))
	store := kmerdb.NewCountStore(len(species), 0)
	for _, code := range codes {
		// 1~2 个不同物种
		hits := min(1+rng.Intn(2), len(species))
		for _, s := range rng.Perm(len(species))[:hits] {
			c := int64(rng.Intn(int(species[s].Samples))) + 1
			if err := store.Add(code, s, c); err != nil {
				return nil, err
			}
		}
	}
	return store, nil
}
