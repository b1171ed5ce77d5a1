// Package main provides the nomcom_agent CLI, which caches NomCom feedback
// from the IETF Datatracker, summarizes it and renders HTML reports.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// rootOptions are shared by every subcommand
type rootOptions struct {
	configPath string
	verbose    bool
	// getenv and newBackend are swapped out by tests
	getenv     func(string) string
	newBackend backendFactory
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	if opts.getenv == nil {
		opts.getenv = os.Getenv
	}
	if opts.newBackend == nil {
		opts.newBackend = llmBackend
	}

	rootCmd := &cobra.Command{
		Use:   "nomcom_agent",
		Short: "NomCom feedback cache, summarizer and report generator",
		Long: `nomcom_agent downloads nominee metadata and private feedback pages from the
IETF Datatracker, parses the feedback into per-position records, summarizes
it with an LLM and renders static HTML pages. Every stage is cached; force
flags recompute a stage and everything that depends on it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a JSON or YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Print detailed debug information")

	rootCmd.AddCommand(
		newRunCmd(opts),
		newNomineesCmd(opts),
		newPositionsCmd(opts),
		newTopicsCmd(opts),
		newSettingsCmd(opts),
	)
	return rootCmd
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd(&rootOptions{}).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
