package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ic-timon/kmerdb/kmerdb"
)

var inspectValidate bool

var inspectCmd = &cobra.Command{
	Use:   "inspect <database>",
	Short: "Show the header and species table of a database",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectValidate, "validate", false, "also check that k-mer codes are strictly increasing")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(_ *cobra.Command, args []string) error {
	path := args[0]
	h, err := kmerdb.ReadHeader(path)
	if err != nil {
		return err
	}
	fmt.Printf("File:       %s\n", path)
	fmt.Printf("Entries:    %d\n", h.Size)
	fmt.Printf("Species:    %d\n", h.SpeciesNum())
	fmt.Printf("Offset:     %d\n", h.Offset)
	fmt.Printf("Entry size: %d bytes\n", h.EntrySize())
	fmt.Printf("File size:  %d bytes\n\n", h.FileSize())

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tSPECIES\tSAMPLES")
	for _, s := range h.Species {
		fmt.Fprintf(tw, "%d\t%s\t%d\n", s.Index, s.Name, s.Samples)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if inspectValidate {
		r, err := kmerdb.Open(path)
		if err != nil {
			return err
		}
		defer r.Close()
		if err := r.Validate(); err != nil {
			return err
		}
		fmt.Println("\nValid: codes strictly increasing")
	}
	return nil
}
