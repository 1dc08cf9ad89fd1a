// Package cli implements the dashchat command line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/samjmc/dashchat/internal/logger"
)

// version is the build version, overridable at link time.
var version = "0.1.0"

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "dashchat",
	Short: "Dashboard chat assistant",
	Long: `dashchat serves an embeddable chat assistant for Tableau dashboards.

It detects the surrounding dashboard context, retrieves relevant
documentation from a local knowledge base and answers questions with an
LLM grounded in both.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
