// Package main implements the pagekit command line: serving enhanced
// documentation pages, one-shot page rendering, and embeddings indexing.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "pagekit",
		Short: "Server-side behavior runtime for documentation sites",
		Long: `pagekit takes the rendered HTML of a documentation site, discovers the
component markers the templates left behind, runs the component lifecycle
over them, and serves the enhanced pages together with the assistant,
search, and preference APIs.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "pagekit.yml", "config file path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
