package fairness

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Benchmark is the target rate drawn next to every group in the report.
const Benchmark = 0.80

// GroupRate is one bar of the report charts.
type GroupRate struct {
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	Benchmark float64 `json:"benchmark,omitempty"`
	Count     int     `json:"count,omitempty"`
	Disparity float64 `json:"disparity_ratio,omitempty"` // intersectional only
}

// Consistency is the share of individual pairs judged fair.
type Consistency struct {
	Fair   int `json:"fair"`
	Unfair int `json:"unfair"`
}

// Report is the bias-metrics view. All numbers are fixed illustrations.
type Report struct {
	OverallScore       int                `json:"overall_score"`
	DemographicParity  []GroupRate        `json:"demographic_parity"`
	EqualOpportunity   []GroupRate        `json:"equal_opportunity"`
	Intersectional     []GroupRate        `json:"intersectional"`
	IntersectionalRef  string             `json:"intersectional_reference"`
	DisparityRatios    map[string]float64 `json:"disparity_ratios"`
	IndividualFairness Consistency        `json:"individual_fairness"`
	MostAffectedGroup  string             `json:"most_affected_group"`
	PrimaryBiasType    string             `json:"primary_bias_type"`
	Findings           []string           `json:"findings"`
	Recommendations    []string           `json:"recommendations"`
	Selection          Selection          `json:"selection,omitempty"`
}

// BiasReport builds the fixed report. Disparity ratios are min/max of each
// chart; intersectional ratios are relative to the first group.
func BiasReport() Report {
	parity := []GroupRate{
		{Name: "Male", Value: 0.82, Benchmark: Benchmark, Count: 450},
		{Name: "Female", Value: 0.76, Benchmark: Benchmark, Count: 380},
		{Name: "Non-binary", Value: 0.71, Benchmark: Benchmark, Count: 45},
	}
	opportunity := []GroupRate{
		{Name: "White", Value: 0.85, Benchmark: Benchmark, Count: 520},
		{Name: "Black", Value: 0.72, Benchmark: Benchmark, Count: 180},
		{Name: "Asian", Value: 0.79, Benchmark: Benchmark, Count: 120},
		{Name: "Hispanic", Value: 0.74, Benchmark: Benchmark, Count: 95},
		{Name: "Other", Value: 0.76, Benchmark: Benchmark, Count: 85},
	}
	intersectional := []GroupRate{
		{Name: "White Male", Value: 0.86},
		{Name: "White Female", Value: 0.82},
		{Name: "Black Male", Value: 0.75},
		{Name: "Black Female", Value: 0.69},
		{Name: "Asian Male", Value: 0.81},
		{Name: "Asian Female", Value: 0.77},
	}
	ref := intersectional[0]
	for i := range intersectional {
		intersectional[i].Disparity = round2(intersectional[i].Value / ref.Value)
	}

	return Report{
		OverallScore:      76,
		DemographicParity: parity,
		EqualOpportunity:  opportunity,
		Intersectional:    intersectional,
		IntersectionalRef: ref.Name,
		DisparityRatios: map[string]float64{
			"gender": DisparityRatio(values(parity)),
			"race":   DisparityRatio(values(opportunity)),
		},
		IndividualFairness: Consistency{Fair: 78, Unfair: 22},
		MostAffectedGroup:  "Black Female",
		PrimaryBiasType:    "Race × Gender interaction",
		Findings: []string{
			"Non-binary individuals: 13% below benchmark",
			"Black individuals: 10% lower true positive rate",
			"Age groups 18-25 and 56+: Reduced precision",
			"Black females: 20% disparity ratio",
		},
		Recommendations: []string{
			"Implement fairness constraints in model training",
			"Apply post-processing bias correction",
			"Increase representation of underrepresented groups",
		},
	}
}

// DisparityRatio is min(rates)/max(rates) rounded to two decimals; 1 means parity.
func DisparityRatio(rates []float64) float64 {
	if len(rates) == 0 {
		return 1
	}
	hi := floats.Max(rates)
	if hi == 0 {
		return 1
	}
	return round2(floats.Min(rates) / hi)
}

func values(rates []GroupRate) []float64 {
	out := make([]float64, len(rates))
	for i, r := range rates {
		out[i] = r.Value
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
