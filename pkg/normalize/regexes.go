// Package normalize is the pure field merger (C7): it combines each
// attachment's DocQA extraction with regex fallbacks pulled from the
// message body/transcript text, ported from original_source/common/norm.
package normalize

import (
	"regexp"
	"strings"
)

// orderIDRE finds an order-id-shaped token, optionally preceded by an
// "order" / "#" marker. The original Python pattern used a lookahead
// ((?=[A-Z0-9-]{4,}\b)) to require at least 4 characters before capturing;
// RE2 doesn't support lookahead, so this version captures greedily and
// extractOrderID below re-applies the length-4 floor as a plain check —
// same accepted strings, no lookahead needed.
var orderIDRE = regexp.MustCompile(`(?i)\b(?:order\s*[:#]?\s*)?(?:#)?([A-Z0-9-]*\d[A-Z0-9-]*)\b`)

var amountRE = regexp.MustCompile(`(?i)([$€£₴])?\s*(\d{1,3}(?:[ ,]\d{3})*(?:[.,]\d{2})?)\s*(USD|EUR|GBP|UAH|PLN)?\s*([$€£₴])?`)

var skuRE = regexp.MustCompile(`(?i)(?:sku|item|product)\s*[:#]\s*([A-Z0-9\-]{3,})`)

var currencySymbols = map[string]string{
	"$": "USD",
	"€": "EUR",
	"£": "GBP",
	"₴": "UAH",
}

// currencyWords maps a bare currency word to its ISO code, for the
// ±12-character window fallback search (spec §4.7) used when an amount
// has no symbol or ISO code captured alongside it — e.g. "59.99 dollars"
// (spec §8 S1), where the amount regex's own symbol/code groups are empty.
var currencyWords = map[string]string{
	"dollars":  "USD",
	"dollar":   "USD",
	"usd":      "USD",
	"euros":    "EUR",
	"euro":     "EUR",
	"eur":      "EUR",
	"pounds":   "GBP",
	"pound":    "GBP",
	"gbp":      "GBP",
	"hryvnias": "UAH",
	"hryvnia":  "UAH",
	"uah":      "UAH",
	"zlotys":   "PLN",
	"zloty":    "PLN",
	"pln":      "PLN",
}

var currencyWordRE = regexp.MustCompile(`[A-Za-z]+`)

// currencyWindow is the ±N character radius spec §4.7 specifies for the
// word-fallback currency search around a matched amount.
const currencyWindow = 12

// extractOrderID returns the first order-id-shaped token in text, or ""
// if none is found. A match must be at least 4 characters, mirroring the
// original's lookahead-enforced minimum.
func extractOrderID(text string) string {
	for _, m := range orderIDRE.FindAllStringSubmatch(text, -1) {
		candidate := strings.TrimSpace(m[1])
		if len(candidate) >= 4 {
			return candidate
		}
	}
	return ""
}

// extractAmountCurrency returns the raw amount string and a currency hint
// (symbol or ISO code), either of which may be empty. When several
// candidate amounts appear in the text, the best is picked by scoring
// each on (has_currency, has_decimal, length) — preferring a candidate
// with an adjacent currency marker, then one with a decimal part, then
// the longest digit run (spec §4.7). If the winning candidate has no
// symbol or ISO code of its own, a ±12-character window around it is
// searched for a bare currency word (e.g. "dollars") as a fallback.
func extractAmountCurrency(text string) (amountRaw, currencyHint string) {
	matches := amountRE.FindAllStringSubmatchIndex(text, -1)
	if matches == nil {
		return "", ""
	}

	bestIdx := -1
	var bestScore [3]int
	for i, m := range matches {
		amt := submatch(text, m, 2)
		symBefore := submatch(text, m, 1)
		symAfter := submatch(text, m, 4)
		code := submatch(text, m, 3)

		hasCurrency := 0
		if symBefore != "" || symAfter != "" || code != "" {
			hasCurrency = 1
		}
		hasDecimal := 0
		if strings.ContainsAny(amt, ".,") {
			hasDecimal = 1
		}
		score := [3]int{hasCurrency, hasDecimal, len(amt)}

		if bestIdx == -1 || scoreLess(bestScore, score) {
			bestIdx = i
			bestScore = score
		}
	}

	m := matches[bestIdx]
	amountRaw = submatch(text, m, 2)
	symbol := submatch(text, m, 1)
	if symbol == "" {
		symbol = submatch(text, m, 4)
	}
	code := strings.ToUpper(submatch(text, m, 3))

	switch {
	case code != "":
		currencyHint = code
	case symbol != "":
		currencyHint = currencySymbols[symbol]
	default:
		currencyHint = currencyWordNear(text, m[0], m[1])
	}
	return amountRaw, currencyHint
}

// submatch returns the text of capture group i from a FindAllSubmatchIndex
// match, or "" if that group didn't participate in the match.
func submatch(text string, m []int, i int) string {
	s, e := m[2*i], m[2*i+1]
	if s < 0 || e < 0 {
		return ""
	}
	return text[s:e]
}

// scoreLess reports whether a sorts strictly before b, lexicographically.
func scoreLess(a, b [3]int) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// currencyWordNear searches the ±currencyWindow characters around
// text[start:end] for a known currency word and returns its ISO code, or
// "" if none is found.
func currencyWordNear(text string, start, end int) string {
	winStart := start - currencyWindow
	if winStart < 0 {
		winStart = 0
	}
	winEnd := end + currencyWindow
	if winEnd > len(text) {
		winEnd = len(text)
	}
	for _, word := range currencyWordRE.FindAllString(text[winStart:winEnd], -1) {
		if code, ok := currencyWords[strings.ToLower(word)]; ok {
			return code
		}
	}
	return ""
}

// extractSKU returns the SKU/item/product code following an explicit
// label, or "" if none is present.
func extractSKU(text string) string {
	m := skuRE.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
