package pgdas

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// amountPattern matches a Brazilian monetary amount such as "1.234,56" or "0,00":
// digit groups of 1-3 separated by '.', then ',' and exactly two decimals.
const amountPattern = `\d{1,3}(?:\.\d{3})*,\d{2}`

var (
	amountRegex = regexp.MustCompile(amountPattern)

	// plainNumberRegex validates what is left once the locale separators are rewritten.
	plainNumberRegex = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)$`)
)

// ParseAmount converts a Brazilian formatted decimal ("1.234,56") into a float64.
// Empty, blank or malformed input yields 0; the caller decides whether the
// source label existed.
func ParseAmount(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}

	s = strings.ReplaceAll(s, ".", "")
	s = strings.Replace(s, ",", ".", 1)
	if !plainNumberRegex.MatchString(s) {
		return 0
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return value
}

// FindAmounts returns every monetary shaped substring of text in order of appearance.
// A match that continues a longer digit run, such as "234,56" inside "1234,56",
// is not an amount. Amounts glued to the previous amount ("100,00200,50") are.
func FindAmounts(text string) []string {
	var amounts []string
	prevEnd := -1
	for _, loc := range amountRegex.FindAllStringIndex(text, -1) {
		if loc[0] > 0 && loc[0] != prevEnd && isAmountChar(text[loc[0]-1]) {
			continue
		}
		amounts = append(amounts, text[loc[0]:loc[1]])
		prevEnd = loc[1]
	}
	return amounts
}

// firstAmount returns the first amount of text, or "" when there is none.
func firstAmount(text string) string {
	if amounts := FindAmounts(text); len(amounts) > 0 {
		return amounts[0]
	}
	return ""
}

func isAmountChar(b byte) bool {
	return b == '.' || ('0' <= b && b <= '9')
}
