package domain

import (
	"regexp"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"
)

// TimeKind classifies how a raw time variable encodes instants.
type TimeKind int

const (
	// TimeAbsolute means the variable already stores decoded instants.
	TimeAbsolute TimeKind = iota
	// TimeOffsetSinceReference means a units attribute names a reference
	// instant the values are counted from.
	TimeOffsetSinceReference
	// TimeHoursSinceMidnight means bare hour-of-day floats.
	TimeHoursSinceMidnight
	// TimeSecondsSinceMidnight means bare second-of-day values.
	TimeSecondsSinceMidnight
	// TimeNumericUnrecognized means no heuristic applied.
	TimeNumericUnrecognized
)

func (k TimeKind) String() string {
	switch k {
	case TimeAbsolute:
		return "absolute"
	case TimeOffsetSinceReference:
		return "offset-since-reference"
	case TimeHoursSinceMidnight:
		return "hours-since-midnight"
	case TimeSecondsSinceMidnight:
		return "seconds-since-midnight"
	default:
		return "unrecognized"
	}
}

// OffsetUnit is the step size of an offset-since-reference sequence.
type OffsetUnit string

const (
	OffsetHours   OffsetUnit = "hours"
	OffsetSeconds OffsetUnit = "seconds"
)

// TimeClassification is the resolver's verdict on a raw time variable.
// Reference and Unit are meaningful only when Kind is
// TimeOffsetSinceReference. Wrapped is true when the raw sequence steps
// backward, indicating a midnight rollover.
type TimeClassification struct {
	Kind      TimeKind
	Reference time.Time
	Unit      OffsetUnit
	Wrapped   bool
}

// unitsSinceRe parses CF-style units like "hours since 2017-05-17 00:00:00".
var unitsSinceRe = regexp.MustCompile(`(seconds|hours)\s+since\s+([0-9T:\- ]+)`)

// referenceLayouts are tried in order against the units reference string.
var referenceLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ClassifyTime inspects a raw time variable and infers its encoding.
// It never fails: inputs nothing matches come back TimeNumericUnrecognized,
// and a malformed units reference falls through to the numeric heuristics
// instead of aborting.
func ClassifyTime(v *Variable) TimeClassification {
	if v.IsInstant() {
		return TimeClassification{Kind: TimeAbsolute}
	}

	units := strings.ToLower(v.Attr("units"))
	if strings.Contains(units, "since") {
		if m := unitsSinceRe.FindStringSubmatch(units); m != nil {
			if ref, ok := parseReferenceInstant(m[2]); ok {
				unit := OffsetSeconds
				if m[1] == "hours" {
					unit = OffsetHours
				}
				return TimeClassification{Kind: TimeOffsetSinceReference, Reference: ref, Unit: unit}
			}
		}
	}

	if len(v.Shape) == 1 && len(v.Values) > 0 {
		c := TimeClassification{Wrapped: hasWraparound(v.Values)}
		switch max := floats.Max(v.Values); {
		case max < 25:
			c.Kind = TimeHoursSinceMidnight
		case max < 86400:
			c.Kind = TimeSecondsSinceMidnight
		default:
			c.Kind = TimeNumericUnrecognized
		}
		return c
	}

	return TimeClassification{Kind: TimeNumericUnrecognized}
}

// hasWraparound reports whether the sequence ever steps backward.
// Midnight-relative clocks reset to near zero when a flight crosses 00:00 UTC.
func hasWraparound(values []float64) bool {
	for i := 1; i < len(values); i++ {
		if values[i] < values[i-1] {
			return true
		}
	}
	return false
}

func parseReferenceInstant(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range referenceLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
