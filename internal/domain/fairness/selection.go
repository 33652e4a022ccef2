package fairness

import (
	"fmt"
	"slices"
)

// Selection maps a dimension ID to the chosen metric IDs, in pick order.
type Selection map[string][]string

// DefaultSelection starts with demographic parity only; every dimension is present.
func DefaultSelection() Selection {
	s := make(Selection, len(taxonomy))
	for _, d := range taxonomy {
		s[d.ID] = []string{}
	}
	s[DimensionGroup] = []string{"demographic_parity"}
	return s
}

// Toggle adds metric to dimension when absent and removes it otherwise.
// It reports whether the metric is selected afterwards.
func (s Selection) Toggle(dimension, metric string) (bool, error) {
	if err := checkMetric(dimension, metric); err != nil {
		return false, err
	}
	current := s[dimension]
	if i := slices.Index(current, metric); i >= 0 {
		s[dimension] = slices.Delete(slices.Clone(current), i, i+1)
		return false, nil
	}
	s[dimension] = append(slices.Clone(current), metric)
	return true, nil
}

// Validate rejects unknown dimensions and metrics.
func (s Selection) Validate() error {
	for dim, metrics := range s {
		if _, ok := LookupDimension(dim); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownDimension, dim)
		}
		for _, m := range metrics {
			if err := checkMetric(dim, m); err != nil {
				return err
			}
		}
	}
	return nil
}

// Normalize fills missing dimensions and drops duplicate metric IDs.
func (s Selection) Normalize() Selection {
	out := make(Selection, len(taxonomy))
	for _, d := range taxonomy {
		picked := []string{}
		for _, m := range s[d.ID] {
			if !slices.Contains(picked, m) {
				picked = append(picked, m)
			}
		}
		out[d.ID] = picked
	}
	return out
}

// Clone returns a deep copy.
func (s Selection) Clone() Selection {
	out := make(Selection, len(s))
	for k, v := range s {
		out[k] = slices.Clone(v)
	}
	return out
}

// Count returns the number of selected metrics across all dimensions.
func (s Selection) Count() int {
	n := 0
	for _, v := range s {
		n += len(v)
	}
	return n
}

func checkMetric(dimension, metric string) error {
	if _, ok := LookupDimension(dimension); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownDimension, dimension)
	}
	if _, ok := LookupMetric(dimension, metric); !ok {
		return fmt.Errorf("%w: %q in %s", ErrUnknownMetric, metric, dimension)
	}
	return nil
}
