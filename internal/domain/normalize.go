package domain

import (
	"fmt"
	"time"
)

// NormalizedAttr marks a time series that has been through NormalizeTime.
const NormalizedAttr = "normalized"

// TimeSeries is an ordered sequence of absolute instants at second
// precision, index-aligned with the raw time dimension it came from.
type TimeSeries struct {
	Values []time.Time
	Attrs  map[string]string
}

// NormalizeTime converts a raw time variable into absolute instants
// according to its classification. dateHint (UTC midnight; zero when
// unavailable) is consulted only for the midnight-relative kinds.
//
// Midnight-relative sequences are corrected for day rollover before the
// hint is applied: every backward step in the raw values adds one whole
// day to that sample and all that follow. Genuinely noisy non-monotonic
// input therefore accumulates a day per spurious negative diff; the
// encoding gives no way to tell noise from a real boundary.
func NormalizeTime(v *Variable, c TimeClassification, dateHint time.Time) (*TimeSeries, error) {
	switch c.Kind {
	case TimeAbsolute:
		out := make([]time.Time, len(v.Times))
		for i, t := range v.Times {
			out[i] = t.UTC().Truncate(time.Second)
		}
		return newTimeSeries(out, v.Attrs), nil

	case TimeOffsetSinceReference:
		out := make([]time.Time, len(v.Values))
		for i, val := range v.Values {
			out[i] = c.Reference.Add(time.Duration(offsetSeconds(val, c.Unit)) * time.Second)
		}
		return newTimeSeries(out, v.Attrs), nil

	case TimeHoursSinceMidnight, TimeSecondsSinceMidnight:
		if dateHint.IsZero() {
			return nil, fmt.Errorf("%w: %s values have no calendar date", ErrMissingDateHint, c.Kind)
		}
		unit := OffsetHours
		if c.Kind == TimeSecondsSinceMidnight {
			unit = OffsetSeconds
		}
		shifted := applyDayRollover(v.Values, unit)
		out := make([]time.Time, len(shifted))
		for i, val := range shifted {
			out[i] = dateHint.Add(time.Duration(offsetSeconds(val, unit)) * time.Second)
		}
		return newTimeSeries(out, v.Attrs), nil

	default:
		return nil, fmt.Errorf("%w: classified as %s", ErrUnsupportedTimeFormat, c.Kind)
	}
}

// offsetSeconds converts a raw offset to whole seconds, truncating toward
// zero (matching integer-cast semantics of upstream campaign tooling).
func offsetSeconds(val float64, unit OffsetUnit) int64 {
	if unit == OffsetHours {
		return int64(val * 3600)
	}
	return int64(val)
}

// applyDayRollover returns a copy of the sequence with one whole day
// (24 h or 86400 s, per unit) added at each backward step and carried
// through all following samples.
func applyDayRollover(values []float64, unit OffsetUnit) []float64 {
	day := 86400.0
	if unit == OffsetHours {
		day = 24.0
	}

	out := make([]float64, len(values))
	var shift float64
	for i, val := range values {
		if i > 0 && val < values[i-1] {
			shift += day
		}
		out[i] = val + shift
	}
	return out
}

// newTimeSeries copies the source attributes and adds the normalization marker.
func newTimeSeries(values []time.Time, srcAttrs map[string]string) *TimeSeries {
	attrs := make(map[string]string, len(srcAttrs)+1)
	for k, val := range srcAttrs {
		attrs[k] = val
	}
	attrs[NormalizedAttr] = "true"
	return &TimeSeries{Values: values, Attrs: attrs}
}
