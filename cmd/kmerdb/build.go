package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/ic-timon/kmerdb/kmerdb"
)

var buildFlags struct {
	config    string
	output    string
	alpha     float64
	threshold float64
	k         int
	workers   int
	strict    bool
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Count genomes and publish a probability database",
	Long: `Build reads the run configuration, counts the canonical k-mers of every genome,
merges the counts into probabilities and atomically publishes the database.

Flags override the corresponding configuration values.`,
	Example: `  kmerdb build --config run.yaml
  kmerdb build --config run.yaml --threshold 0.9 --output painted.db`,
	RunE: runBuild,
}

func init() {
	f := buildCmd.Flags()
	f.StringVarP(&buildFlags.config, "config", "c", "", "YAML run configuration (required)")
	f.StringVarP(&buildFlags.output, "output", "o", "", "database path")
	f.Float64Var(&buildFlags.alpha, "alpha", 0, "additive smoothing constant (>= 0)")
	f.Float64Var(&buildFlags.threshold, "threshold", 0, "minimum max-probability to keep a k-mer, in [0,1]")
	f.IntVarP(&buildFlags.k, "kmer-size", "k", 0, "k-mer length (1-32)")
	f.IntVarP(&buildFlags.workers, "workers", "j", 0, "parallel workers (default NumCPU)")
	f.BoolVar(&buildFlags.strict, "strict", false, "validate the staged database before publishing")
	_ = buildCmd.MarkFlagRequired("config")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, _ []string) error {
	cfg, err := kmerdb.LoadConfig(buildFlags.config)
	if err != nil {
		return err
	}
	f := cmd.Flags()
	if f.Changed("output") {
		cfg.Output = buildFlags.output
	}
	if f.Changed("alpha") {
		cfg.Alpha = buildFlags.alpha
	}
	if f.Changed("threshold") {
		cfg.Threshold = buildFlags.threshold
	}
	if f.Changed("kmer-size") {
		cfg.K = buildFlags.k
	}
	if f.Changed("workers") {
		cfg.Workers = buildFlags.workers
	}
	if f.Changed("strict") {
		cfg.Strict = buildFlags.strict
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	return build(ctx, cfg, newLogger())
}

func build(ctx context.Context, cfg *kmerdb.Config, log *kmerdb.Logger) error {
	table, err := cfg.SpeciesTable()
	if err != nil {
		return err
	}
	genomes := make([][]string, len(cfg.Species))
	for i, s := range cfg.Species {
		genomes[i] = s.Genomes
	}
	counter := &kmerdb.Counter{K: cfg.K, Workers: cfg.Workers, Log: log}
	counts, err := counter.CountAll(ctx, table, genomes, cfg.Shards)
	if err != nil {
		return err
	}
	coord := kmerdb.NewCoordinator(table, cfg, log)
	if _, err := coord.Run(ctx, counts, cfg.Output); err != nil {
		return err
	}
	st := coord.Stats()
	fmt.Printf("Wrote %s: %d of %d k-mers kept (%d dropped) in %s\n", cfg.Output, st.Kept, st.Kmers, st.Dropped, st.Elapsed.Round(1e6))
	return nil
}
