package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/milodocs/pagekit/bootstrap"
	"github.com/milodocs/pagekit/config"
)

var renderCmd = &cobra.Command{
	Use:   "render <page.html>",
	Short: "Enhance one rendered page and write it to stdout",
	Long: `Runs component discovery and the full lifecycle over a single rendered
HTML file, then writes the enhanced document to stdout. Useful for
inspecting what the runtime does to a page without starting the server.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		// One-shot rendering has no mutation sources to react to.
		cfg.Runtime.ReactiveDiscovery = false

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening page: %w", err)
		}
		defer f.Close()

		logger := bootstrap.NewLogger(cfg.Logging)

		rt, err := bootstrap.New(cmd.Context(), cfg, f, bootstrap.Options{Logger: logger})
		if err != nil {
			return fmt.Errorf("assembling runtime: %w", err)
		}
		defer rt.Close()

		rt.Start(cmd.Context())

		return rt.Document.Render(os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)
}
