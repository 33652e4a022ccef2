// Command fairlens analyzes applicant files offline and drives wizard runs
// against a running fairlens service.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/fairlens/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		logLevel  string
		logFormat string
	)

	rootCmd := &cobra.Command{
		Use:   "fairlens",
		Short: "Fairness dashboard tooling",
		Long: `fairlens profiles tabular datasets for protected attributes and checks
selection-rate parity, either offline on a local file or end to end against
a running service.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(logger.WithFormat(logFormat), logger.WithWriter(cmd.ErrOrStderr())); err != nil {
				return err
			}
			return logger.SetLevelString(logLevel)
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", logger.FormatText, "Log format (text, json)")

	rootCmd.AddCommand(newAnalyzeCmd(), newWizardCmd())
	return rootCmd
}
