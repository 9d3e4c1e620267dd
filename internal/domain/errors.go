package domain

import "errors"

// Failure kinds a caller can match with errors.Is to distinguish
// "skip this granule" from "abort the run". Recoverable parse failures
// (malformed date attributes, broken units strings) never surface here;
// they degrade to the next heuristic internally.
var (
	// ErrMissingDateHint is returned when a midnight-relative time sequence
	// has no calendar date available from attributes or filename.
	ErrMissingDateHint = errors.New("missing date hint for relative time sequence")

	// ErrUnsupportedTimeFormat is returned when no heuristic can make sense
	// of the time variable. The granule is rejected.
	ErrUnsupportedTimeFormat = errors.New("unsupported time format")

	// ErrMissingVariable is returned when a variable required by the
	// projector is absent from the granule.
	ErrMissingVariable = errors.New("missing required variable")

	// ErrShapeMismatch is returned when the reflectivity grid disagrees
	// with the per-sample or per-bin vectors.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrGranuleClosed is returned on variable access after Close.
	ErrGranuleClosed = errors.New("granule is closed")
)
