// Package model contains domain models passed between layers.
package model

import "time"

// ColumnType is the semantic type inferred for a column.
type ColumnType string

// Inferred column types.
const (
	ColumnNumerical   ColumnType = "numerical"
	ColumnDate        ColumnType = "date"
	ColumnBoolean     ColumnType = "boolean"
	ColumnCategorical ColumnType = "categorical"
	ColumnUnknown     ColumnType = "unknown"
)

// RiskLevel grades how sensitive a protected attribute is.
type RiskLevel string

// Risk tiers.
const (
	RiskHigh   RiskLevel = "high"
	RiskMedium RiskLevel = "medium"
	RiskLow    RiskLevel = "low"
)

// NumericSummary describes the distribution of a numerical column.
type NumericSummary struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"stddev"`
}

// Column is the descriptor produced for one header of an upload.
type Column struct {
	Name         string          `json:"name"`
	Type         ColumnType      `json:"type"`
	UniqueValues []string        `json:"unique_values,omitempty"` // categorical only
	Range        string          `json:"range,omitempty"`         // numerical only, "min - max"
	Summary      *NumericSummary `json:"summary,omitempty"`
	Confidence   float64         `json:"confidence"`
	Examples     []string        `json:"examples"`
	IsProtected  bool            `json:"is_protected"`
	RiskLevel    RiskLevel       `json:"risk_level"`
	SampleCount  int             `json:"sample_count"`
	Included     bool            `json:"included"`
}

// Dataset is the snapshot held for a session after an upload was processed.
type Dataset struct {
	ID             string              `json:"id"`
	Filename       string              `json:"filename"`
	Format         string              `json:"format"`
	RowCount       int                 `json:"row_count"`
	ColumnCount    int                 `json:"column_count"`
	Headers        []string            `json:"columns"`
	Columns        []Column            `json:"identified_attributes"`
	Preview        []map[string]string `json:"preview"`
	ProcessingTime string              `json:"processing_time"` // e.g. "0.2 seconds"
	Elapsed        time.Duration       `json:"-"`
	AIConfidence   float64             `json:"ai_confidence"`
	Seq            uint64              `json:"seq"`
	CreatedAt      time.Time           `json:"created_at"`

	// Rows are retained for selection-rate checks but never serialised.
	Rows [][]string `json:"-"`
}

// Column returns the descriptor with the given name.
func (d *Dataset) Column(name string) (Column, int, bool) {
	for i, c := range d.Columns {
		if c.Name == name {
			return c, i, true
		}
	}
	return Column{}, -1, false
}

// ColumnIndex returns the header position of name, or -1.
func (d *Dataset) ColumnIndex(name string) int {
	for i, h := range d.Headers {
		if h == name {
			return i
		}
	}
	return -1
}

// Protected returns the descriptors flagged as protected attributes.
func (d *Dataset) Protected() []Column {
	var out []Column
	for _, c := range d.Columns {
		if c.IsProtected {
			out = append(out, c)
		}
	}
	return out
}

// Clone returns a copy whose column slice and flags can be mutated safely.
// Rows and preview maps are shared; they are never modified after creation.
func (d *Dataset) Clone() *Dataset {
	if d == nil {
		return nil
	}
	cp := *d
	cp.Columns = make([]Column, len(d.Columns))
	copy(cp.Columns, d.Columns)
	return &cp
}
