package normalize

import (
	"strings"

	"github.com/shopspring/decimal"
)

var currencyWordSuffixes = []string{"dollars", "usd"}

// normalizeAmount parses a raw amount string (comma decimal, thousands
// separators, trailing currency words) into a decimal.Decimal. Returns
// false if raw can't be parsed as a number at all.
func normalizeAmount(raw string) (decimal.Decimal, bool) {
	if raw == "" {
		return decimal.Decimal{}, false
	}
	s := strings.ReplaceAll(strings.TrimSpace(raw), " ", "")

	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}

	lower := strings.ToLower(s)
	for _, word := range currencyWordSuffixes {
		if strings.HasSuffix(lower, word) {
			s = strings.TrimSpace(s[:len(s)-len(word)])
			lower = strings.ToLower(s)
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

var knownCurrencies = map[string]string{
	"USD": "USD",
	"EUR": "EUR",
	"GBP": "GBP",
	"UAH": "UAH",
	"PLN": "PLN",
}

// normalizeCurrency upper-cases and maps a currency hint to its canonical
// ISO code, passing through unrecognized codes unchanged.
func normalizeCurrency(curr string) string {
	if curr == "" {
		return ""
	}
	c := strings.ToUpper(strings.TrimSpace(curr))
	if mapped, ok := knownCurrencies[c]; ok {
		return mapped
	}
	return c
}
