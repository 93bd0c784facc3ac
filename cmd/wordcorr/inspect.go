package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"yashubustudio/wordcorr/wordcorr"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <reference>",
	Short: "Show the header and suggested column mapping of a reference dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return inspectReference(cmd.OutOrStdout(), args[0], globalConfig.Reference.Options())
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func inspectReference(w io.Writer, path string, opts wordcorr.ReferenceOptions) error {
	meta, err := wordcorr.ReadReferenceMetadata(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "columns: %s\n", strings.Join(meta.Columns, ", "))
	fmt.Fprintln(w, "suggested:")
	fmt.Fprintf(w, "    word: %s\n", orNone(meta.Suggested.WordColumn))
	fmt.Fprintf(w, "    low:  %s\n", orNone(meta.Suggested.LowColumn))
	fmt.Fprintf(w, "    med:  %s\n", orNone(meta.Suggested.MedColumn))
	fmt.Fprintf(w, "    high: %s\n", orNone(meta.Suggested.HighColumn))

	ref, err := wordcorr.ReadReference(path, opts)
	if err != nil {
		fmt.Fprintf(w, "rows: unreadable (%v)\n", err)
		return nil
	}
	fmt.Fprintf(w, "rows: %d\n", ref.Len())
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
