package main

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/fairlens/internal/wizardrun"
)

const defaultRunTimeout = 10 * time.Minute

func newWizardCmd() *cobra.Command {
	cfg := wizardrun.Config{}
	var deadline time.Duration

	cmd := &cobra.Command{
		Use:   "wizard",
		Short: "Drive concurrent wizard sessions against a running service",
		Long: `Generate synthetic applicant files, upload them from independent sessions,
and verify the detected attributes and selection-rate report of each session.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), deadline)
			defer cancel()

			stats, _, err := wizardrun.Run(ctx, &cfg)
			if stats != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "sessions=%d uploaded=%d verified=%d failed=%d violations=%d duration=%s\n",
					stats.Sessions, stats.Uploaded, stats.Verified, stats.Failed, stats.Violations, stats.Duration.Round(time.Millisecond))
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "Base URL of the service")
	f.IntVar(&cfg.Sessions, "sessions", wizardrun.DefaultSessions, "Number of wizard sessions")
	f.IntVar(&cfg.Rows, "rows", wizardrun.DefaultRows, "Rows per generated file")
	f.Float64Var(&cfg.Bias, "bias", wizardrun.DefaultBias, "Hiring-rate gap injected against the Female group")
	f.Float64Var(&cfg.Threshold, "threshold", wizardrun.DefaultThreshold, "Tolerated statistical parity gap")
	f.Uint64Var(&cfg.Seed, "seed", 1, "Seed of the first generated file")
	f.IntVar(&cfg.Workers, "workers", runtime.NumCPU(), "Sessions in flight at once")
	f.DurationVar(&cfg.Timeout, "timeout", wizardrun.DefaultTimeout, "HTTP request timeout")
	f.DurationVar(&deadline, "deadline", defaultRunTimeout, "Overall run deadline")
	f.StringVar(&cfg.OutputDir, "output-dir", "", "Directory to keep the generated files in")
	f.BoolVar(&cfg.Verbose, "verbose", false, "Log every verified session")
	return cmd
}
