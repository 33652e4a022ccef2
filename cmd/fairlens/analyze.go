package main

import (
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/fairlens/internal/domain/classify"
	"github.com/okian/fairlens/internal/domain/fairness"
	"github.com/okian/fairlens/internal/domain/ingest"
	"github.com/okian/fairlens/internal/domain/model"
	"github.com/okian/fairlens/pkg/logger"
)

const defaultMaxBytes = 50 << 20

type analyzeOutput struct {
	Dataset        *model.Dataset       `json:"dataset"`
	SelectionRates *fairness.RateReport `json:"selection_rates,omitempty"`
}

func newAnalyzeCmd() *cobra.Command {
	var (
		attribute string
		outcome   string
		threshold float64
		maxBytes  int64
		preview   int
	)

	cmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Profile a CSV, TSV or XLSX file without a server",
		Long: `Parse a local file, classify its columns and flag protected attributes.
With --attribute and --outcome the selection-rate parity check is run as well.
The result is printed as JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (attribute == "") != (outcome == "") {
				return fmt.Errorf("--attribute and --outcome must be given together")
			}

			path := args[0]
			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			if err := ingest.CheckSize(info.Size(), maxBytes); err != nil {
				return err
			}
			payload, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			start := time.Now()
			table, format, err := ingest.Decode(filepath.Base(path), mime.TypeByExtension(filepath.Ext(path)), payload)
			if err != nil {
				return err
			}
			ds, err := classify.Profile(cmd.Context(), table, classify.WithPreviewRows(preview))
			if err != nil {
				return err
			}
			ds.Filename = filepath.Base(path)
			ds.Format = string(format)

			out := analyzeOutput{Dataset: ds}
			if attribute != "" {
				if out.SelectionRates, err = fairness.SelectionRates(ds, attribute, outcome, threshold); err != nil {
					return err
				}
			}

			logger.Named("analyze").Info(cmd.Context(), "dataset analyzed",
				logger.String("file", path),
				logger.String("format", format.Describe()),
				logger.Int("rows", ds.RowCount),
				logger.Int("columns", ds.ColumnCount),
				logger.Duration("took", time.Since(start)))

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringVar(&attribute, "attribute", "", "Protected attribute for the selection-rate check")
	cmd.Flags().StringVar(&outcome, "outcome", "", "Outcome column for the selection-rate check")
	cmd.Flags().Float64Var(&threshold, "threshold", fairness.DefaultThreshold, "Tolerated statistical parity gap")
	cmd.Flags().Int64Var(&maxBytes, "max-bytes", defaultMaxBytes, "Largest file accepted")
	cmd.Flags().IntVar(&preview, "preview", 5, "Preview rows included in the output")
	return cmd
}
