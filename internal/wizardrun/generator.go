package wizardrun

import (
	"bytes"
	"encoding/csv"
	"math"
	"math/rand/v2"
	"strconv"

	"gonum.org/v1/gonum/stat/distuv"
)

// Generated file layout.
var (
	applicantHeader = []string{"id", "age", "gender", "race", "zip_code", "income", "education", ColumnHired}
	genders         = []string{"Female", "Male"}
	races           = []string{"Asian", "Black", "Hispanic", "White"}
	educationLevels = []string{"High School", "Bachelor", "Master", "PhD"}
)

const (
	baseHireRate = 0.6
	minAge       = 18
	maxAge       = 70
)

// Applicant is one synthetic row.
type Applicant struct {
	ID        int
	Age       int
	Gender    string
	Race      string
	ZipCode   string
	Income    int
	Education string
	Hired     bool
}

// Generator produces reproducible applicant files. The hiring probability of
// the Female group is lowered by bias.
type Generator struct {
	rng    *rand.Rand
	age    distuv.Normal
	income distuv.LogNormal
	bias   float64
}

// NewGenerator creates a generator seeded with seed. bias is clamped to [0, baseHireRate].
func NewGenerator(seed uint64, bias float64) *Generator {
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	return &Generator{
		rng:    rand.New(src),
		age:    distuv.Normal{Mu: 40, Sigma: 11, Src: src},
		income: distuv.LogNormal{Mu: 10.8, Sigma: 0.45, Src: src},
		bias:   math.Max(0, math.Min(bias, baseHireRate)),
	}
}

// Applicants generates n rows.
func (g *Generator) Applicants(n int) []Applicant {
	out := make([]Applicant, 0, max(n, 0))
	for i := range max(n, 0) {
		gender := genders[g.rng.IntN(len(genders))]
		p := baseHireRate
		if gender == genders[0] {
			p -= g.bias
		}
		hired := distuv.Bernoulli{P: p, Src: g.rng}.Rand() == 1

		out = append(out, Applicant{
			ID:        i + 1,
			Age:       int(math.Round(math.Max(minAge, math.Min(maxAge, g.age.Rand())))),
			Gender:    gender,
			Race:      races[g.rng.IntN(len(races))],
			ZipCode:   strconv.Itoa(10000 + g.rng.IntN(89999)),
			Income:    int(math.Round(g.income.Rand())),
			Education: educationLevels[g.rng.IntN(len(educationLevels))],
			Hired:     hired,
		})
	}
	return out
}

// EncodeCSV renders applicants as a CSV file with a header row.
func EncodeCSV(applicants []Applicant) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(applicantHeader); err != nil {
		return nil, err
	}
	for _, a := range applicants {
		hired := "no"
		if a.Hired {
			hired = "yes"
		}
		record := []string{
			strconv.Itoa(a.ID),
			strconv.Itoa(a.Age),
			a.Gender,
			a.Race,
			a.ZipCode,
			strconv.Itoa(a.Income),
			a.Education,
			hired,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ExpectedRates returns the hiring rate per gender and the gap between the
// highest and lowest rate.
func ExpectedRates(applicants []Applicant) (map[string]float64, float64) {
	hired := make(map[string]int)
	total := make(map[string]int)
	for _, a := range applicants {
		total[a.Gender]++
		if a.Hired {
			hired[a.Gender]++
		}
	}
	rates := make(map[string]float64, len(total))
	lo, hi := math.Inf(1), math.Inf(-1)
	for g, n := range total {
		r := float64(hired[g]) / float64(n)
		rates[g] = r
		lo = math.Min(lo, r)
		hi = math.Max(hi, r)
	}
	if len(rates) == 0 {
		return rates, 0
	}
	return rates, hi - lo
}
