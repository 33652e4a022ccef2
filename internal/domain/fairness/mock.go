package fairness

// AttributeScore is one entry of the canned attribute analysis.
type AttributeScore struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// AnalyzeDatasetResponse is the canned body of the analyze-dataset route.
type AnalyzeDatasetResponse struct {
	Success             bool             `json:"success"`
	ProtectedAttributes []AttributeScore `json:"protectedAttributes"`
}

// MetricsRequest is what clients post to the fairness-metrics route. The
// fields are echoed in logs only; the response does not depend on them.
type MetricsRequest struct {
	ProtectedAttributes []string  `json:"protectedAttributes"`
	FairnessDimensions  Selection `json:"fairnessDimensions"`
}

// GroupMetric is an overall value with per-attribute group breakdowns.
type GroupMetric struct {
	Overall float64                       `json:"overall"`
	ByGroup map[string]map[string]float64 `json:"byGroup"`
}

// MetricsSet is the metrics object of the fairness-metrics route.
type MetricsSet struct {
	DemographicParity GroupMetric        `json:"demographicParity"`
	EqualOpportunity  GroupMetric        `json:"equalOpportunity"`
	Intersectional    map[string]float64 `json:"intersectional"`
}

// MetricsResponse is the canned body of the fairness-metrics route.
type MetricsResponse struct {
	Success bool       `json:"success"`
	Metrics MetricsSet `json:"metrics"`
}

// MockAnalyzeDataset returns the fixed protected-attribute list.
func MockAnalyzeDataset() AnalyzeDatasetResponse {
	return AnalyzeDatasetResponse{
		Success: true,
		ProtectedAttributes: []AttributeScore{
			{Name: "gender", Confidence: 0.95},
			{Name: "age", Confidence: 0.92},
			{Name: "race", Confidence: 0.98},
			{Name: "zipcode", Confidence: 0.75},
			{Name: "income", Confidence: 0.85},
		},
	}
}

// MockFairnessMetrics returns the fixed metrics body.
func MockFairnessMetrics() MetricsResponse {
	return MetricsResponse{
		Success: true,
		Metrics: MetricsSet{
			DemographicParity: GroupMetric{
				Overall: 0.85,
				ByGroup: map[string]map[string]float64{
					"gender": {"male": 0.82, "female": 0.76, "nonBinary": 0.71},
					"race":   {"white": 0.85, "black": 0.72, "asian": 0.79, "hispanic": 0.74, "other": 0.76},
				},
			},
			EqualOpportunity: GroupMetric{
				Overall: 0.82,
				ByGroup: map[string]map[string]float64{
					"gender": {"male": 0.84, "female": 0.78, "nonBinary": 0.73},
					"race":   {"white": 0.86, "black": 0.74, "asian": 0.81, "hispanic": 0.76, "other": 0.77},
				},
			},
			Intersectional: map[string]float64{
				"whiteM": 0.86,
				"whiteF": 0.82,
				"blackM": 0.75,
				"blackF": 0.69,
				"asianM": 0.81,
				"asianF": 0.77,
			},
		},
	}
}
