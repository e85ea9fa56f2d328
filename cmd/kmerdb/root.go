package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ic-timon/kmerdb/kmerdb"
)

var (
	flagVerbose bool
	flagJSONLog bool
)

var rootCmd = &cobra.Command{
	Use:          "kmerdb",
	Short:        "Build and query k-mer species probability databases",
	SilenceUsage: true, // don't print usage on operational errors
	Long: `kmerdb counts canonical k-mers across sampled genomes of each species, turns the
counts into smoothed per-species probabilities and publishes them as a sorted binary
database that supports point lookups without loading the whole file.`,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagJSONLog, "log-json", false, "log as JSON")
}

func newLogger() *kmerdb.Logger {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	if flagJSONLog {
		return kmerdb.NewJSONLogger(level)
	}
	return kmerdb.NewTextLogger(level)
}

// Execute is called by main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode distinguishes bad input from malformed files and filesystem failures.
func exitCode(err error) int {
	switch kmerdb.KindOf(err) {
	case kmerdb.KindInvalidParameter:
		return 2
	case kmerdb.KindFormat, kmerdb.KindConsistency:
		return 3
	case kmerdb.KindIO:
		return 4
	default:
		return 1
	}
}
