package domain

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
)

// metersPerDegree approximates one degree of latitude. No higher-order
// ellipsoid correction is applied; campaign geolocation tolerances don't
// warrant one at typical slant ranges.
const metersPerDegree = 111000.0

// Series is one parallel sequence of a point cloud, tagged with unit
// metadata the writers carry through to their outputs.
type Series struct {
	Values []float64
	Attrs  map[string]string
}

// PointCloud is the flattened, geolocated, time-ordered set of sensor
// returns produced from one granule. All five sequences have identical
// length and index alignment, Time ascends, every Ref value is finite,
// and every Alt value is strictly positive. Immutable once built.
type PointCloud struct {
	Lat  Series
	Lon  Series
	Alt  Series
	Ref  Series
	Time TimeSeries

	Source *Adapter
	Attrs  map[string]string
}

// Len returns the number of points.
func (pc *PointCloud) Len() int { return len(pc.Time.Values) }

// DownVector computes the unit look vector from roll, pitch, and heading
// (radians) in a right-handed local level frame: X=east, Y=north, Z=up,
// so straight-and-level flight yields (0, 0, -1).
func DownVector(roll, pitch, heading float64) (x, y, z float64) {
	sinR, cosR := math.Sin(roll), math.Cos(roll)
	sinP, cosP := math.Sin(pitch), math.Cos(pitch)
	sinH, cosH := math.Sin(heading), math.Cos(heading)

	x = sinR*cosH + cosR*sinP*sinH
	y = -sinR*sinH + cosR*sinP*cosH
	z = -cosR * cosP
	return
}

// ProjectPointCloud converts per-sample attitude and slant range into
// corrected ground coordinates for every reflectivity cell, then sorts by
// time and drops non-physical samples. Construction is all-or-nothing:
// a missing variable or inconsistent shape rejects the whole granule.
func ProjectPointCloud(a *Adapter) (*PointCloud, error) {
	ref, err := numericVar(a, "ref")
	if err != nil {
		return nil, err
	}
	if len(ref.Shape) != 2 {
		return nil, fmt.Errorf("%w: ref has %d dimensions, want 2", ErrShapeMismatch, len(ref.Shape))
	}
	nTrack, nBins := ref.Shape[0], ref.Shape[1]
	if len(ref.Values) != nTrack*nBins {
		return nil, fmt.Errorf("%w: ref has %d values for shape (%d, %d)",
			ErrShapeMismatch, len(ref.Values), nTrack, nBins)
	}

	lat, err := trackVar(a, "lat", nTrack)
	if err != nil {
		return nil, err
	}
	lon, err := trackVar(a, "lon", nTrack)
	if err != nil {
		return nil, err
	}
	alt, err := altitudeVar(a, nTrack)
	if err != nil {
		return nil, err
	}
	roll, err := trackVar(a, "roll", nTrack)
	if err != nil {
		return nil, err
	}
	pitch, err := trackVar(a, "pitch", nTrack)
	if err != nil {
		return nil, err
	}
	head, err := trackVar(a, "head", nTrack)
	if err != nil {
		return nil, err
	}

	rngVar, err := numericVar(a, "range")
	if err != nil {
		return nil, err
	}
	if rngVar.Len() != nBins {
		return nil, fmt.Errorf("%w: range has %d bins, ref grid has %d",
			ErrShapeMismatch, rngVar.Len(), nBins)
	}

	times := a.NormalTime().Values
	if len(times) != nTrack {
		return nil, fmt.Errorf("%w: time has %d samples, ref grid has %d",
			ErrShapeMismatch, len(times), nTrack)
	}

	// Attitude arrives in degrees.
	roll = scaled(roll, math.Pi/180)
	pitch = scaled(pitch, math.Pi/180)
	head = scaled(head, math.Pi/180)

	// Broadcast per-sample scalars across every range bin and tile the bin
	// vector across every sample, row-major so range varies fastest:
	// index f = sample*nBins + bin aligns with the flattened ref grid.
	n := nTrack * nBins
	fTime := make([]time.Time, n)
	fLat := repeat(lat, nBins)
	fLon := repeat(lon, nBins)
	fAlt := repeat(alt, nBins)
	fRoll := repeat(roll, nBins)
	fPitch := repeat(pitch, nBins)
	fHead := repeat(head, nBins)
	fRng := tile(rngVar.Values, nTrack)
	fRef := append([]float64(nil), ref.Values...)
	for s := 0; s < nTrack; s++ {
		for b := 0; b < nBins; b++ {
			fTime[s*nBins+b] = times[s]
		}
	}

	// Look direction per flattened sample.
	x := make([]float64, n)
	y := make([]float64, n)
	z := make([]float64, n)
	den := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i], y[i], z[i] = DownVector(fRoll[i], fPitch[i], fHead[i])
		den[i] = metersPerDegree * math.Cos(fLat[i]*math.Pi/180)
	}

	// Scale by slant range, converting horizontal meters to degrees.
	floats.Mul(x, fRng)
	floats.Div(x, den)
	floats.Mul(y, fRng)
	floats.Scale(1/metersPerDegree, y)
	floats.Mul(z, fRng)

	// Displace the aircraft position to the ground point of each return.
	floats.Sub(fLon, x)
	floats.Sub(fLat, y)
	floats.Add(fAlt, z)

	// Stable sort keeps acquisition order for equal timestamps, so a
	// permuted granule still produces a deterministic cloud.
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return fTime[idx[i]].Before(fTime[idx[j]])
	})
	fLat = permute(fLat, idx)
	fLon = permute(fLon, idx)
	fAlt = permute(fAlt, idx)
	fRef = permute(fRef, idx)
	fTime = permuteTimes(fTime, idx)

	// Drop, never substitute: non-finite reflectivity is instrument noise
	// and non-positive corrected altitude is a below-ground artifact.
	outLat := make([]float64, 0, n)
	outLon := make([]float64, 0, n)
	outAlt := make([]float64, 0, n)
	outRef := make([]float64, 0, n)
	outTime := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(fRef[i]) || math.IsInf(fRef[i], 0) || fAlt[i] <= 0 {
			continue
		}
		outLat = append(outLat, fLat[i])
		outLon = append(outLon, fLon[i])
		outAlt = append(outAlt, fAlt[i])
		outRef = append(outRef, fRef[i])
		outTime = append(outTime, fTime[i])
	}

	return &PointCloud{
		Lat:  Series{Values: outLat, Attrs: map[string]string{"units": "degrees_north"}},
		Lon:  Series{Values: outLon, Attrs: map[string]string{"units": "degrees_east"}},
		Alt:  Series{Values: outAlt, Attrs: map[string]string{"units": "meters"}},
		Ref:  Series{Values: outRef, Attrs: map[string]string{"description": "reflectivity"}},
		Time: TimeSeries{Values: outTime, Attrs: map[string]string{NormalizedAttr: "true"}},

		Source: a,
		Attrs: map[string]string{
			"converted_by": "geolocation-projector",
			"projection":   "slant-range",
		},
	}, nil
}

// numericVar fetches a variable and rejects instant-typed ones. The
// projector only works on numeric arrays; a time-valued lat or range is
// a malformed granule, not a panic.
func numericVar(a *Adapter, name string) (*Variable, error) {
	v, err := a.Var(name)
	if err != nil {
		return nil, err
	}
	if v.IsInstant() {
		return nil, fmt.Errorf("%w: %s holds instants, want numeric values",
			ErrShapeMismatch, name)
	}
	return v, nil
}

// trackVar fetches a per-sample numeric variable and checks it against
// the along-track dimension.
func trackVar(a *Adapter, name string, nTrack int) ([]float64, error) {
	v, err := numericVar(a, name)
	if err != nil {
		return nil, err
	}
	if v.Len() != nTrack {
		return nil, fmt.Errorf("%w: %s has %d samples, ref grid has %d",
			ErrShapeMismatch, name, v.Len(), nTrack)
	}
	return v.Values, nil
}

// altitudeVar prefers "height" and falls back to "alt" only when height
// is absent. Campaign files that carry both expect "height" to win, and
// a malformed height is a rejection, not a reason to try alt.
func altitudeVar(a *Adapter, nTrack int) ([]float64, error) {
	if _, err := a.Var("height"); err == nil {
		return trackVar(a, "height", nTrack)
	}
	return trackVar(a, "alt", nTrack)
}

func scaled(src []float64, factor float64) []float64 {
	dst := append([]float64(nil), src...)
	floats.Scale(factor, dst)
	return dst
}

// repeat expands each element count times: [a b] → [a a b b] for count 2.
func repeat(src []float64, count int) []float64 {
	dst := make([]float64, 0, len(src)*count)
	for _, v := range src {
		for i := 0; i < count; i++ {
			dst = append(dst, v)
		}
	}
	return dst
}

// tile concatenates count copies of src: [a b] → [a b a b] for count 2.
func tile(src []float64, count int) []float64 {
	dst := make([]float64, 0, len(src)*count)
	for i := 0; i < count; i++ {
		dst = append(dst, src...)
	}
	return dst
}

func permute(src []float64, idx []int) []float64 {
	dst := make([]float64, len(src))
	for i, j := range idx {
		dst[i] = src[j]
	}
	return dst
}

func permuteTimes(src []time.Time, idx []int) []time.Time {
	dst := make([]time.Time, len(src))
	for i, j := range idx {
		dst[i] = src[j]
	}
	return dst
}
