// Package classify infers column types and flags likely protected attributes.
package classify

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"

	"github.com/okian/fairlens/internal/domain/ingest"
	"github.com/okian/fairlens/internal/domain/model"
)

// Profiler turns a parsed table into a dataset snapshot.
type Profiler struct {
	threshold   float64
	previewRows int
	maxUnique   int
	concurrency int
	now         func() time.Time
}

// New returns a Profiler with the given options applied over the defaults.
func New(opts ...Option) *Profiler {
	p := &Profiler{
		threshold:   DefaultTypeThreshold,
		previewRows: DefaultPreviewRows,
		maxUnique:   DefaultMaxUniqueValues,
		concurrency: defaultConcurrency(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Profile is a convenience wrapper around New(opts...).Profile.
func Profile(ctx context.Context, t *ingest.Table, opts ...Option) (*model.Dataset, error) {
	return New(opts...).Profile(ctx, t)
}

// Profile builds one descriptor per header, in header order, plus the row
// preview. Columns are profiled concurrently.
func (p *Profiler) Profile(ctx context.Context, t *ingest.Table) (*model.Dataset, error) {
	if t == nil || len(t.Headers) == 0 {
		return nil, ingest.ErrEmpty
	}
	start := p.now()

	columns := make([]model.Column, len(t.Headers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for j, header := range t.Headers {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			columns[j] = p.Column(header, t.Column(j))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("profile columns: %w", err)
	}

	elapsed := p.now().Sub(start)
	return &model.Dataset{
		RowCount:       len(t.Rows),
		ColumnCount:    len(t.Headers),
		Headers:        append([]string(nil), t.Headers...),
		Columns:        columns,
		Preview:        p.preview(t),
		ProcessingTime: FormatProcessingTime(elapsed),
		Elapsed:        elapsed,
		AIConfidence:   AIConfidence,
		Rows:           t.Rows,
	}, nil
}

// Column classifies a single column from its non-empty values.
func (p *Profiler) Column(name string, values []string) model.Column {
	unique := distinct(values, p.maxUnique)
	typ := DetectType(values, p.threshold)
	verdict := AnalyzeProtected(name, values)

	col := model.Column{
		Name:        name,
		Type:        typ,
		Confidence:  verdict.Confidence,
		Examples:    head(unique, DefaultExamples),
		IsProtected: verdict.IsProtected,
		RiskLevel:   verdict.Risk,
		SampleCount: len(values),
		Included:    verdict.IsProtected,
	}

	switch typ {
	case model.ColumnCategorical:
		col.UniqueValues = unique
	case model.ColumnNumerical:
		if s, ok := summarize(values); ok {
			col.Summary = s
			col.Range = FormatNumber(s.Min) + " - " + FormatNumber(s.Max)
		}
	}
	return col
}

func (p *Profiler) preview(t *ingest.Table) []map[string]string {
	n := min(p.previewRows, len(t.Rows))
	out := make([]map[string]string, 0, n)
	for i := 0; i < n; i++ {
		row := make(map[string]string, len(t.Headers))
		for j, h := range t.Headers {
			row[h] = t.Cell(i, j)
		}
		out = append(out, row)
	}
	return out
}

// summarize computes min/max/mean/median/stddev over the numeric values.
func summarize(values []string) (*model.NumericSummary, bool) {
	data := make(stats.Float64Data, 0, len(values))
	for _, v := range values {
		if f, ok := ParseNumber(v); ok {
			data = append(data, f)
		}
	}
	if data.Len() == 0 {
		return nil, false
	}

	lo, _ := data.Min()
	hi, _ := data.Max()
	mean, _ := data.Mean()
	median, _ := data.Median()
	sd, _ := data.StandardDeviation()
	return &model.NumericSummary{Min: lo, Max: hi, Mean: mean, Median: median, StdDev: sd}, true
}

// FormatNumber renders f in its shortest round-trip form.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// FormatProcessingTime renders d as tenths of a second, e.g. "0.3 seconds".
func FormatProcessingTime(d time.Duration) string {
	return fmt.Sprintf("%.1f seconds", d.Seconds())
}

func distinct(values []string, limit int) []string {
	seen := make(map[string]struct{}, min(len(values), limit))
	out := make([]string, 0, min(len(values), limit))
	for _, v := range values {
		if len(out) == limit {
			break
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func head(values []string, n int) []string {
	out := make([]string, min(n, len(values)))
	copy(out, values)
	return out
}
