package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ic-timon/kmerdb/kmer"
	"github.com/ic-timon/kmerdb/kmerdb"
)

var dumpFlags struct {
	limit int
	k     int
}

var dumpCmd = &cobra.Command{
	Use:   "dump <database>",
	Short: "Print database entries as tab-separated text",
	Args:  cobra.ExactArgs(1),
	RunE:  runDump,
}

func init() {
	dumpCmd.Flags().IntVarP(&dumpFlags.limit, "limit", "n", 0, "stop after this many entries (0 = all)")
	dumpCmd.Flags().IntVarP(&dumpFlags.k, "kmer-size", "k", 0, "decode codes as k-mers of this length")
	rootCmd.AddCommand(dumpCmd)
}

func runDump(_ *cobra.Command, args []string) error {
	r, err := kmerdb.Open(args[0])
	if err != nil {
		return err
	}
	defer r.Close()
	return dump(bufio.NewWriter(os.Stdout), r, dumpFlags.limit, dumpFlags.k)
}

func dump(w *bufio.Writer, r *kmerdb.Reader, limit, k int) error {
	fmt.Fprint(w, "code")
	for _, s := range r.Header().Species {
		fmt.Fprintf(w, "\t%s", s.Name)
	}
	fmt.Fprintln(w)
	n := r.Len()
	if limit > 0 {
		n = min(n, limit)
	}
	for i := 0; i < n; i++ {
		code, probs := r.Entry(i)
		if k > 0 {
			fmt.Fprint(w, kmer.Decode(code, k))
		} else {
			fmt.Fprint(w, code)
		}
		for _, p := range probs {
			fmt.Fprintf(w, "\t%g", p)
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}
