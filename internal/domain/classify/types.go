package classify

import (
	"errors"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/okian/fairlens/internal/domain/model"
)

// dateLayouts are the textual date forms recognised by DetectType.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	time.RFC850,
	time.ANSIC,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006-01",
	"2006-1-2",
	"2006/01/02",
	"2006/1/2",
	"2006.01.02",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 3:04 PM",
	"1/2/2006 3:04:05 PM",
	"01-02-2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"January 2, 2006",
	"January 2 2006",
	"Monday, January 2, 2006",
	"Jan 2006",
	"January 2006",
	"2 Jan 2006",
	"2 January 2006",
	"02-Jan-2006",
	"Mon Jan 2 2006",
	"Mon, 2 Jan 2006",
}

var booleanTokens = map[string]struct{}{
	"true": {}, "false": {},
	"yes": {}, "no": {},
	"1": {}, "0": {},
	"y": {}, "n": {},
}

// DetectType infers the semantic type of a column. Empty values are ignored.
// The first test whose matching share exceeds threshold wins, in the order
// numerical, date, boolean; anything else is categorical.
func DetectType(values []string, threshold float64) model.ColumnType {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultTypeThreshold
	}

	nonEmpty := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			nonEmpty = append(nonEmpty, v)
		}
	}
	if len(nonEmpty) == 0 {
		return model.ColumnUnknown
	}

	total := float64(len(nonEmpty))
	share := func(match func(string) bool) float64 {
		n := 0
		for _, v := range nonEmpty {
			if match(v) {
				n++
			}
		}
		return float64(n) / total
	}

	switch {
	case share(isNumeric) > threshold:
		return model.ColumnNumerical
	case share(isDate) > threshold:
		return model.ColumnDate
	case share(isBoolean) > threshold:
		return model.ColumnBoolean
	default:
		return model.ColumnCategorical
	}
}

// ParseNumber reports whether s is a number. Decimal literals, the
// Infinity spellings and unsigned 0x, 0o and 0b integers are accepted;
// inf, nan, hex floats and digit separators are not. Overflowing decimals
// count as ±Inf.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1), true
	case "-Infinity":
		return math.Inf(-1), true
	}
	if len(s) > 2 && s[0] == '0' {
		if base := radixOf(s[1]); base != 0 && s[2] != '+' && s[2] != '-' {
			n, ok := new(big.Int).SetString(s[2:], base)
			if !ok {
				return 0, false
			}
			f, _ := new(big.Float).SetInt(n).Float64()
			return f, true
		}
	}
	if strings.IndexFunc(s, notDecimalRune) >= 0 {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return f, true
}

func radixOf(c byte) int {
	switch c {
	case 'x', 'X':
		return 16
	case 'o', 'O':
		return 8
	case 'b', 'B':
		return 2
	}
	return 0
}

func notDecimalRune(r rune) bool {
	switch {
	case r >= '0' && r <= '9':
		return false
	case r == '.', r == '+', r == '-', r == 'e', r == 'E':
		return false
	}
	return true
}

func isNumeric(s string) bool {
	_, ok := ParseNumber(s)
	return ok
}

func isDate(s string) bool {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func isBoolean(s string) bool {
	_, ok := booleanTokens[strings.ToLower(s)]
	return ok
}
