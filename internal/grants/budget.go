package grants

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// BudgetBand is the numeric reading of a categorical budget range such as "$100K-$500K".
// Upper equals Lower for open-ended bands like "$5M+".
type BudgetBand struct {
	Lower float64
	Upper float64
}

var amountPattern = regexp.MustCompile(`(?i)\$?\s*(\d+(?:[.,]\d+)*)\s*([kmb])?`)

// ParseBudgetRange reads the dollar amounts out of s. "Under $100K" becomes {0, 100000}.
func ParseBudgetRange(s string) (BudgetBand, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return BudgetBand{}, fmt.Errorf("budget range is empty")
	}

	matches := amountPattern.FindAllStringSubmatch(s, -1)
	amounts := make([]float64, 0, len(matches))
	for _, m := range matches {
		value, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			return BudgetBand{}, fmt.Errorf("parse budget range %q: %w", s, err)
		}
		switch strings.ToLower(m[2]) {
		case "k":
			value *= 1_000
		case "m":
			value *= 1_000_000
		case "b":
			value *= 1_000_000_000
		}
		amounts = append(amounts, value)
	}

	if len(amounts) == 0 {
		return BudgetBand{}, fmt.Errorf("budget range %q contains no amount", s)
	}

	lower := strings.ToLower(s)
	if len(amounts) == 1 {
		if strings.Contains(lower, "under") || strings.Contains(lower, "less than") || strings.HasPrefix(lower, "<") {
			return BudgetBand{Lower: 0, Upper: amounts[0]}, nil
		}
		return BudgetBand{Lower: amounts[0], Upper: amounts[0]}, nil
	}

	band := BudgetBand{Lower: amounts[0], Upper: amounts[0]}
	for _, a := range amounts[1:] {
		if a < band.Lower {
			band.Lower = a
		}
		if a > band.Upper {
			band.Upper = a
		}
	}
	return band, nil
}

// FormatAmount renders a dollar amount with thousands separators, e.g. "$600,000".
func FormatAmount(amount float64) string {
	digits := strconv.FormatFloat(math.Round(math.Abs(amount)), 'f', 0, 64)
	var b strings.Builder
	if amount < 0 {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}
