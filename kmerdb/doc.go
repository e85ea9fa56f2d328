// Package kmerdb builds and reads k-mer species probability databases.
//
// Quick start:
//
//	cfg, _ := kmerdb.LoadConfig("run.yaml")
//	table, _ := cfg.SpeciesTable()
//	counter := &kmerdb.Counter{K: cfg.K, Workers: cfg.Workers}
//	counts, _ := counter.CountAll(ctx, table, genomes, cfg.Shards)
//	db, _ := kmerdb.NewCoordinator(table, cfg, nil).Run(ctx, counts, cfg.Output)
//
//	r, _ := kmerdb.Open(cfg.Output)
//	defer r.Close()
//	probs, ok := r.Lookup(code)
//
// Probabilities are p = (count + alpha) / (samples + alpha) per species, and a k-mer is
// kept only if one of its probabilities reaches the threshold.
package kmerdb
