package normalize

import (
	"regexp"
	"strconv"
	"time"
)

// dateRE matches a day/month/year date in European (DD/MM/YYYY) order
// using any of ".", "/", "-" as separator, with a 2- or 4-digit year.
var dateRE = regexp.MustCompile(`\b(\d{1,2})[./-](\d{1,2})[./-](\d{4}|\d{2})\b`)

// parseDateEU finds and parses the first European-ordered date in raw,
// returning the zero time and false if none is found or it's invalid
// (e.g. month 13).
func parseDateEU(raw string) (time.Time, bool) {
	m := dateRE.FindStringSubmatch(raw)
	if m == nil {
		return time.Time{}, false
	}

	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if year < 100 {
		year += 2000
	}

	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes out-of-range days (e.g. Feb 30) by rolling
	// into the next month instead of erroring — reject that silently, like
	// Python's date() raising ValueError for an invalid calendar date.
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}
