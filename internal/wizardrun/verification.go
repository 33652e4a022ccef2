package wizardrun

import (
	"fmt"
	"math"
	"slices"

	"github.com/okian/fairlens/internal/domain/fairness"
	"github.com/okian/fairlens/internal/domain/model"
)

// verifySnapshot checks that the server parsed every generated row.
func verifySnapshot(ds *model.Dataset, applicants []Applicant) error {
	if ds.RowCount != len(applicants) {
		return fmt.Errorf("%w: row count %d, expected %d", ErrVerification, ds.RowCount, len(applicants))
	}
	if ds.ColumnCount != len(applicantHeader) {
		return fmt.Errorf("%w: column count %d, expected %d", ErrVerification, ds.ColumnCount, len(applicantHeader))
	}
	return nil
}

// verifyAttributes checks that gender was detected as protected and included,
// and returns the protected column names.
func verifyAttributes(list AttributeList) ([]string, error) {
	var protected []string
	var gender *model.Column
	for i := range list.Attributes {
		c := &list.Attributes[i]
		if c.IsProtected {
			protected = append(protected, c.Name)
		}
		if c.Name == ColumnGender {
			gender = c
		}
	}
	if gender == nil {
		return protected, fmt.Errorf("%w: column %q missing", ErrVerification, ColumnGender)
	}
	if !gender.IsProtected || !gender.Included {
		return protected, fmt.Errorf("%w: column %q not flagged as protected and included", ErrVerification, ColumnGender)
	}
	if !slices.Contains(gender.UniqueValues, genders[0]) || !slices.Contains(gender.UniqueValues, genders[1]) {
		return protected, fmt.Errorf("%w: unexpected %q values %v", ErrVerification, ColumnGender, gender.UniqueValues)
	}
	return protected, nil
}

// verifyRates compares the server's parity check with the rates computed
// locally from the generated rows.
func verifyRates(rep *fairness.RateReport, applicants []Applicant, threshold float64) error {
	want, gap := ExpectedRates(applicants)
	if len(rep.Groups) != len(want) {
		return fmt.Errorf("%w: %d groups, expected %d", ErrVerification, len(rep.Groups), len(want))
	}
	for _, g := range rep.Groups {
		r, ok := want[g.Group]
		if !ok {
			return fmt.Errorf("%w: unexpected group %q", ErrVerification, g.Group)
		}
		if math.Abs(r-g.Rate) > rateEpsilon {
			return fmt.Errorf("%w: group %q rate %.4f, expected %.4f", ErrVerification, g.Group, g.Rate, r)
		}
	}
	if math.Abs(rep.ParityGap-gap) > rateEpsilon {
		return fmt.Errorf("%w: parity gap %.4f, expected %.4f", ErrVerification, rep.ParityGap, gap)
	}
	wantStatus := fairness.StatusPass
	if gap > threshold {
		wantStatus = fairness.StatusViolation
	}
	if rep.Status != wantStatus {
		return fmt.Errorf("%w: status %q, expected %q", ErrVerification, rep.Status, wantStatus)
	}
	if rep.Considered != len(applicants) {
		return fmt.Errorf("%w: %d rows considered, expected %d", ErrVerification, rep.Considered, len(applicants))
	}
	return nil
}

// verifyReport checks the fixed report is internally consistent.
func verifyReport(rep *fairness.Report) error {
	if rep.OverallScore <= 0 || rep.OverallScore > 100 {
		return fmt.Errorf("%w: overall score %d out of range", ErrVerification, rep.OverallScore)
	}
	if len(rep.DemographicParity) == 0 || len(rep.Recommendations) == 0 {
		return fmt.Errorf("%w: bias report is incomplete", ErrVerification)
	}
	return nil
}
