package fairness

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/okian/fairlens/internal/domain/model"
)

// Parity check outcomes.
const (
	StatusPass      = "Pass"
	StatusViolation = "Fairness Violation"
)

// DefaultThreshold is the parity gap tolerated when none is given.
const DefaultThreshold = 0.1

// GroupSelection is the positive-outcome rate of one attribute value.
type GroupSelection struct {
	Group string  `json:"group"`
	Rate  float64 `json:"selection_rate"`
	Count int     `json:"count"`
}

// RateReport is the result of a selection-rate parity check.
type RateReport struct {
	Attribute  string           `json:"protected_attribute"`
	Outcome    string           `json:"outcome"`
	Groups     []GroupSelection `json:"selection_rate_per_group"`
	ParityGap  float64          `json:"statistical_parity_gap"`
	Threshold  float64          `json:"threshold"`
	Status     string           `json:"status"`
	Considered int              `json:"rows_considered"`
}

// SelectionRates computes the positive-outcome rate for every value of
// attribute and the demographic parity difference (max - min rate). Rows with
// an empty attribute or outcome cell are skipped.
func SelectionRates(ds *model.Dataset, attribute, outcome string, threshold float64) (*RateReport, error) {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidThreshold, threshold)
	}
	ai := ds.ColumnIndex(attribute)
	if ai < 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, attribute)
	}
	oi := ds.ColumnIndex(outcome)
	if oi < 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, outcome)
	}

	byGroup := make(map[string][]float64)
	considered := 0
	for _, row := range ds.Rows {
		g, o := cell(row, ai), cell(row, oi)
		if g == "" || o == "" {
			continue
		}
		byGroup[g] = append(byGroup[g], indicator(o))
		considered++
	}
	if considered == 0 {
		return nil, ErrNoObservations
	}

	groups := make([]GroupSelection, 0, len(byGroup))
	rates := make([]float64, 0, len(byGroup))
	for g, xs := range byGroup {
		rate := stat.Mean(xs, nil)
		groups = append(groups, GroupSelection{Group: g, Rate: rate, Count: len(xs)})
		rates = append(rates, rate)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Group < groups[j].Group })

	gap := floats.Max(rates) - floats.Min(rates)
	status := StatusPass
	if math.Abs(gap) > threshold {
		status = StatusViolation
	}

	return &RateReport{
		Attribute:  attribute,
		Outcome:    outcome,
		Groups:     groups,
		ParityGap:  gap,
		Threshold:  threshold,
		Status:     status,
		Considered: considered,
	}, nil
}

// IsPositive reports whether an outcome cell counts as selected:
// 1/true/yes/y (any case) or any number greater than zero.
func IsPositive(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y":
		return true
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	return err == nil && f > 0
}

func indicator(v string) float64 {
	if IsPositive(v) {
		return 1
	}
	return 0
}

func cell(row []string, j int) string {
	if j < len(row) {
		return row[j]
	}
	return ""
}
