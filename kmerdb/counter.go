package kmerdb

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"runtime"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"golang.org/x/sync/errgroup"

	"github.com/ic-timon/kmerdb/fasta"
	"github.com/ic-timon/kmerdb/kmer"
)

// Counter collects canonical k-mers from genome files. A k-mer counts once per genome
// however often it occurs, so a species' count never exceeds its number of genomes.
type Counter struct {
	K       int
	Workers int // concurrent genome readers, default NumCPU
	Log     *Logger
}

// GenomeKmers returns the set of canonical k-mers present in the genome at path.
func (c *Counter) GenomeKmers(ctx context.Context, path string) (*roaring64.Bitmap, error) {
	const op = "count"
	if err := kmer.CheckK(c.K); err != nil {
		return nil, invalidf(op, "%v", err)
	}
	set := roaring64.New()
	batch := make([]uint64, 0, 4096)
	err := fasta.StreamPath(ctx, path, func(r fasta.Record) error {
		kmer.ForEach(r.Seq, c.K, func(code uint64) {
			batch = append(batch, code)
			if len(batch) == cap(batch) {
				set.AddMany(batch)
				batch = batch[:0]
			}
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		var pe *fs.PathError
		if errors.As(err, &pe) {
			return nil, ioError(op, path, pe)
		}
		return nil, &Error{Kind: KindFormat, Op: op, Path: path, Err: err}
	}
	set.AddMany(batch)
	return set, nil
}

// CountGenomes reads every genome in paths concurrently and folds each genome's k-mer
// set into counts under species. The result does not depend on completion order.
func (c *Counter) CountGenomes(ctx context.Context, counts *CountStore, species int, paths []string) error {
	if err := counts.checkSpecies(species); err != nil {
		return err
	}
	log := c.Log
	if log == nil {
		log = NoopLogger()
	}
	workers := c.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, path := range paths {
		path := path
		g.Go(func() error {
			set, err := c.GenomeKmers(ctx, path)
			if err != nil {
				log.LogGenome(ctx, path, 0, err)
				return err
			}
			log.LogGenome(ctx, path, set.GetCardinality(), nil)
			return counts.AddSet(species, set)
		})
	}
	return g.Wait()
}

// CountAll counts every species of table from genomes, which is indexed like the
// species table. It returns a store ready for a Coordinator.
func (c *Counter) CountAll(ctx context.Context, table *SpeciesTable, genomes [][]string, shards int) (*CountStore, error) {
	if len(genomes) != table.Len() {
		return nil, newError(KindConsistency, "count", fmt.Errorf("%w: %d genome lists for %d species", ErrMismatchedVectorLength, len(genomes), table.Len()))
	}
	log := c.Log
	if log == nil {
		log = NoopLogger()
	}
	counts := NewCountStore(table.Len(), shards)
	for i, paths := range genomes {
		if uint64(len(paths)) != uint64(table.species[i].Samples) {
			return nil, invalidf("count", "species %q declares %d samples but has %d genomes", table.species[i].Name, table.species[i].Samples, len(paths))
		}
		sc := *c
		sc.Log = log.WithSpecies(table.species[i].Name)
		if err := sc.CountGenomes(ctx, counts, i, paths); err != nil {
			return nil, err
		}
	}
	return counts, nil
}
