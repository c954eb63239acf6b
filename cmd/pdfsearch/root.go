// Command pdfsearch searches a local PDF from the terminal and prints the
// matches with the highlight rectangles the viewer would draw.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	outputFormat string
	concurrency  int
)

var rootCmd = &cobra.Command{
	Use:   "pdfsearch",
	Short: "Search PDF text and print highlight rectangles",
	Long: `pdfsearch extracts the text geometry of a PDF, finds every occurrence of
a query and prints where each one sits on its page.

Queries are case-insensitive substrings. Separate alternatives with "|":

  pdfsearch search report.pdf "revenue|profit"`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "text", "output format: text or json",
	)
	rootCmd.PersistentFlags().IntVar(
		&concurrency, "concurrency", 4, "pages extracted in parallel",
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if outputFormat != "text" && outputFormat != "json" {
			return fmt.Errorf("unknown output format %q (want text or json)", outputFormat)
		}
		return nil
	}

	rootCmd.AddCommand(searchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
