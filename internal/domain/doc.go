// Package domain models airborne field-campaign sensor granules and the
// transform that turns them into geolocated point clouds.
//
// # Granules
//
// A granule is one discrete observation unit, typically one flight segment,
// exposed as a set of named dimensions, labeled variables, and string
// attributes. Granules arrive in heterogeneous campaign formats; a loader
// (see the granulefile adapter) is responsible for producing the in-memory
// representation without interpreting attribute conventions.
//
// The projector expects these variables:
//
//	ref          reflectivity grid, shape (along-track, range-bin)
//	lat, lon     aircraft position per along-track sample, degrees
//	height|alt   aircraft altitude per along-track sample, meters
//	             ("height" is preferred, "alt" is the fallback)
//	roll, pitch, head
//	             aircraft attitude per along-track sample, degrees
//	range        slant range per range bin, meters
//	time         per along-track sample, in any supported encoding
//
// # Time encodings
//
// Campaign instruments disagree about what a "time" variable contains.
// Five encodings are recognized:
//
//	absolute instants          already-decoded timestamps
//	offset since reference     units attribute "<hours|seconds> since <ts>"
//	hours since midnight       bare floats, max value below 25
//	seconds since midnight     bare floats, max value below 86400
//	unrecognized               everything else (fatal for the granule)
//
// Sequences counted from midnight may wrap around at the day boundary
// (e.g. 23.9, 0.1, 0.5). Each backward step in the raw sequence is treated
// as a day rollover: every sample at or after it accumulates one additional
// whole day. The midnight-relative encodings carry no calendar date of
// their own, so normalization requires a date hint extracted from granule
// attributes or the filename.
//
// # Projection
//
// Per sample, roll/pitch/heading give a unit look vector in a local level
// frame. Scaled by slant range and converted from meters to degrees
// (111000 m/degree, with a cos(lat) correction in longitude), the vector
// displaces the aircraft position to the ground point of each return.
// Output points are sorted by time (stable, so ties keep acquisition
// order) and filtered: non-finite reflectivity and non-positive corrected
// altitude are dropped silently.
package domain
