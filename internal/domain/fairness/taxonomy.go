// Package fairness holds the fairness taxonomy, per-session metric
// selections, the bias report and selection-rate parity checks.
package fairness

// Complexity tiers shown next to each metric.
type Complexity string

const (
	Basic        Complexity = "Basic"
	Intermediate Complexity = "Intermediate"
	Advanced     Complexity = "Advanced"
	Expert       Complexity = "Expert"
)

// Metric is one selectable fairness metric.
type Metric struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Complexity  Complexity `json:"complexity"`
}

// Dimension groups related metrics.
type Dimension struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Metrics     []Metric `json:"metrics"`
}

// Dimension IDs.
const (
	DimensionGroup      = "group"
	DimensionIndividual = "individual"
	DimensionSubgroup   = "subgroup"
	DimensionCausal     = "causal"
)

var taxonomy = []Dimension{
	{
		ID:          DimensionGroup,
		Name:        "Group Fairness",
		Description: "Ensures that protected groups receive similar treatment compared to other groups",
		Metrics: []Metric{
			{ID: "demographic_parity", Name: "Demographic Parity", Description: "Ensures equal selection rates across different demographic groups", Complexity: Basic},
			{ID: "equal_opportunity", Name: "Equal Opportunity", Description: "Ensures equal true positive rates across different demographic groups", Complexity: Intermediate},
			{ID: "predictive_parity", Name: "Predictive Parity", Description: "Ensures equal precision across different demographic groups", Complexity: Advanced},
		},
	},
	{
		ID:          DimensionIndividual,
		Name:        "Individual Fairness",
		Description: "Ensures that similar individuals receive similar treatment regardless of protected attributes",
		Metrics: []Metric{
			{ID: "consistency", Name: "Consistency", Description: "Measures if similar individuals receive similar predictions", Complexity: Intermediate},
			{ID: "counterfactual", Name: "Counterfactual Fairness", Description: "Ensures predictions remain the same when protected attributes change", Complexity: Advanced},
		},
	},
	{
		ID:          DimensionSubgroup,
		Name:        "Subgroup Fairness",
		Description: "Ensures fairness across intersections of multiple protected attributes",
		Metrics: []Metric{
			{ID: "intersectional", Name: "Intersectional Fairness", Description: "Measures fairness across intersections of multiple protected attributes", Complexity: Advanced},
			{ID: "multicalibration", Name: "Multicalibration", Description: "Ensures calibration across all subgroups defined by protected attributes", Complexity: Expert},
		},
	},
	{
		ID:          DimensionCausal,
		Name:        "Causal Fairness",
		Description: "Analyzes causal relationships between protected attributes and outcomes",
		Metrics: []Metric{
			{ID: "path_specific", Name: "Path-specific Fairness", Description: "Measures fairness along specific causal paths in the model", Complexity: Expert},
			{ID: "counterfactual_causal", Name: "Counterfactual Causal Fairness", Description: "Ensures fairness based on counterfactual causal reasoning", Complexity: Expert},
		},
	},
}

// Dimensions returns a copy of the taxonomy in display order.
func Dimensions() []Dimension {
	out := make([]Dimension, len(taxonomy))
	for i, d := range taxonomy {
		out[i] = d
		out[i].Metrics = append([]Metric(nil), d.Metrics...)
	}
	return out
}

// LookupDimension returns the dimension with the given ID.
func LookupDimension(id string) (Dimension, bool) {
	for _, d := range taxonomy {
		if d.ID == id {
			return d, true
		}
	}
	return Dimension{}, false
}

// LookupMetric returns a metric of the given dimension.
func LookupMetric(dimension, metric string) (Metric, bool) {
	d, ok := LookupDimension(dimension)
	if !ok {
		return Metric{}, false
	}
	for _, m := range d.Metrics {
		if m.ID == metric {
			return m, true
		}
	}
	return Metric{}, false
}
