package domain

import (
	"regexp"
	"strings"
	"time"
)

var (
	// nonDigitRe strips separators from attribute dates ("2017-05-17" → "20170517").
	nonDigitRe = regexp.MustCompile(`[^0-9]`)

	// isoDateRe matches a literal YYYY-MM-DD attribute value.
	isoDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

	// filenameDateRe finds an 8-digit YYYYMMDD run in a filename, anchored to
	// a plausible century ("20170517_flight.nc" → "20170517").
	filenameDateRe = regexp.MustCompile(`((?:20|19)\d{6})`)

	// filenameISORe matches a filename that is exactly an ISO date.
	filenameISORe = regexp.MustCompile(`^((?:20|19)\d{2}-\d{2}-\d{2})$`)
)

// ExtractDateHint derives a calendar date (UTC midnight) from granule
// attributes, falling back to the filename. Strategies are tried in order
// and any parse failure, including impossible calendar values like month
// 13, moves on to the next one. A false return is not an error; it only
// becomes fatal if a midnight-relative time sequence needs the date.
func ExtractDateHint(attrs map[string]string, filename string) (time.Time, bool) {
	if raw, ok := attrs["date"]; ok {
		if hint, ok := parseDateAttr(raw); ok {
			return hint, true
		}
	}

	if m := filenameDateRe.FindStringSubmatch(filename); m != nil {
		if hint, err := time.Parse("20060102", m[1]); err == nil {
			return hint.UTC(), true
		}
	} else if m := filenameISORe.FindStringSubmatch(filename); m != nil {
		if hint, err := time.Parse("2006-01-02", m[1]); err == nil {
			return hint.UTC(), true
		}
	}

	return time.Time{}, false
}

// parseDateAttr handles the two attribute spellings seen across campaigns:
// compact YYYYMMDD after stripping separators, or a literal YYYY-MM-DD.
func parseDateAttr(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)

	digits := nonDigitRe.ReplaceAllString(raw, "")
	if len(digits) == 8 {
		if hint, err := time.Parse("20060102", digits); err == nil {
			return hint.UTC(), true
		}
	} else if isoDateRe.MatchString(raw) {
		if hint, err := time.Parse("2006-01-02", raw); err == nil {
			return hint.UTC(), true
		}
	}

	return time.Time{}, false
}
