package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ic-timon/kmerdb/kmer"
	"github.com/ic-timon/kmerdb/kmerdb"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <database> <kmer|code>...",
	Short: "Print the species probabilities of k-mers",
	Long: `Lookup binary-searches the database for each argument, given either as a
nucleotide k-mer (either strand) or as a decimal code.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runLookup,
}

func init() {
	rootCmd.AddCommand(lookupCmd)
}

func parseKey(s string) (kmerdb.KmerCode, error) {
	if code, err := strconv.ParseUint(s, 10, 64); err == nil {
		return code, nil
	}
	code, ok := kmer.Encode([]byte(s))
	if !ok {
		return 0, fmt.Errorf("%q is neither a code nor a k-mer of A, C, G, T (max %d bases)", s, kmer.MaxK)
	}
	return code, nil
}

func runLookup(_ *cobra.Command, args []string) error {
	r, err := kmerdb.Open(args[0])
	if err != nil {
		return err
	}
	defer r.Close()

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprint(tw, "KEY\tCODE")
	for _, s := range r.Header().Species {
		fmt.Fprintf(tw, "\t%s", s.Name)
	}
	fmt.Fprintln(tw)
	for _, arg := range args[1:] {
		code, err := parseKey(arg)
		if err != nil {
			return err
		}
		probs, ok := r.Lookup(code)
		fmt.Fprintf(tw, "%s\t%d", arg, code)
		if !ok {
			fmt.Fprint(tw, "\tnot found")
		}
		for _, p := range probs {
			fmt.Fprintf(tw, "\t%.4f", p)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
