package classify

import (
	"math"
	"regexp"

	"github.com/okian/fairlens/internal/domain/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Assessment is the protected-attribute verdict for one column.
type Assessment struct {
	IsProtected bool
	Confidence  float64
	Risk        model.RiskLevel
}

type namePattern struct {
	re         *regexp.Regexp
	confidence float64
	risk       model.RiskLevel
}

// Patterns are tried in order and the first match wins, so "wage" is caught
// by the age pattern before the income one.
var namePatterns = []namePattern{
	{regexp.MustCompile(`gender|sex`), 0.95, model.RiskHigh},
	{regexp.MustCompile(`age|birth|dob`), 0.92, model.RiskHigh},
	{regexp.MustCompile(`race|ethnic|nationality`), 0.98, model.RiskHigh},
	{regexp.MustCompile(`religion|faith`), 0.90, model.RiskHigh},
	{regexp.MustCompile(`disability|handicap`), 0.88, model.RiskHigh},
	{regexp.MustCompile(`marital|marriage`), 0.85, model.RiskMedium},
	{regexp.MustCompile(`zip|postal|address`), 0.75, model.RiskMedium},
	{regexp.MustCompile(`income|salary|wage`), 0.80, model.RiskMedium},
	{regexp.MustCompile(`education|degree`), 0.70, model.RiskMedium},
}

var genderTokens = map[string]struct{}{
	"male": {}, "female": {},
	"m": {}, "f": {},
	"man": {}, "woman": {},
}

const (
	valueSampleSize = 100

	genderValueConfidence = 0.90
	ageValueConfidence    = 0.85
	notProtectedScore     = 0.10

	ageMin     = 16
	ageMax     = 100
	ageMinSpan = 10
)

// AnalyzeProtected scores how likely a column holds a protected attribute,
// first by its name and then by the shape of its values.
func AnalyzeProtected(name string, values []string) Assessment {
	folded := cases.Fold().String(name)
	for _, p := range namePatterns {
		if p.re.MatchString(folded) {
			return assessment(true, p.confidence, p.risk)
		}
	}

	sample := values
	if len(sample) > valueSampleSize {
		sample = sample[:valueSampleSize]
	}
	lower := cases.Lower(language.Und)
	for _, v := range sample {
		if _, ok := genderTokens[lower.String(v)]; ok {
			return assessment(true, genderValueConfidence, model.RiskHigh)
		}
	}

	lo, hi, seen := math.Inf(1), math.Inf(-1), false
	for _, v := range values {
		f, ok := ParseNumber(v)
		if !ok {
			continue
		}
		seen = true
		lo = math.Min(lo, f)
		hi = math.Max(hi, f)
	}
	if seen && lo >= ageMin && hi <= ageMax && hi-lo > ageMinSpan {
		return assessment(true, ageValueConfidence, model.RiskHigh)
	}

	return assessment(false, notProtectedScore, model.RiskLow)
}

func assessment(protected bool, confidence float64, risk model.RiskLevel) Assessment {
	return Assessment{IsProtected: protected, Confidence: clamp01(confidence), Risk: risk}
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
