package domain

import (
	"errors"
	"fmt"
	"path/filepath"
)

// Loader opens a granule file and produces its in-memory form. The params
// map carries loader-specific options and may be nil.
type Loader func(path string, params map[string]any) (*Granule, error)

// Preprocessor rewrites a granule before the adapter snapshots it.
// Preprocessors run in the order given; the last result wins.
type Preprocessor func(*Granule) (*Granule, error)

// AdapterConfig is the construction-time wiring for an Adapter, resolved
// once instead of injected lazily at call sites.
type AdapterConfig struct {
	Loader        Loader
	LoaderParams  map[string]any
	Preprocessors []Preprocessor
}

// Adapter wraps one raw granule with a dimension/attribute snapshot and a
// normalized time view. Each instance owns its granule exclusively and the
// owner must Close it exactly once; a second Close is a no-op.
type Adapter struct {
	path       string
	granule    *Granule
	dims       map[string]int
	attrs      map[string]string
	timeClass  TimeClassification
	normalTime *TimeSeries
	closed     bool
}

// Open loads a granule through cfg.Loader, applies preprocessors, and
// normalizes its time dimension. The underlying resource is released on
// every failure path after acquisition.
func Open(path string, cfg AdapterConfig) (*Adapter, error) {
	if cfg.Loader == nil {
		return nil, errors.New("granule adapter: no loader configured")
	}
	g, err := cfg.Loader(path, cfg.LoaderParams)
	if err != nil {
		return nil, fmt.Errorf("load granule %s: %w", path, err)
	}
	return newAdapter(g, path, cfg.Preprocessors)
}

// Wrap builds an adapter around an already-loaded granule. Ownership of
// the granule passes to the adapter, including on construction failure.
func Wrap(g *Granule, sourcePath string, preprocessors ...Preprocessor) (*Adapter, error) {
	return newAdapter(g, sourcePath, preprocessors)
}

func newAdapter(g *Granule, path string, preprocessors []Preprocessor) (*Adapter, error) {
	for _, pre := range preprocessors {
		processed, err := pre(g)
		if err != nil {
			g.Close() //nolint:errcheck // release takes precedence over the close error
			return nil, fmt.Errorf("preprocess granule %s: %w", path, err)
		}
		g = processed
	}

	dims := make(map[string]int, len(g.Dims))
	for k, v := range g.Dims {
		dims[k] = v
	}
	attrs := make(map[string]string, len(g.Attrs))
	for k, v := range g.Attrs {
		attrs[k] = v
	}

	a := &Adapter{path: path, granule: g, dims: dims, attrs: attrs}

	timeVar, ok := g.Var("time")
	if !ok {
		a.Close() //nolint:errcheck
		return nil, fmt.Errorf("%w: time", ErrMissingVariable)
	}

	// The granule metadata may name the original acquisition file, which
	// tends to carry the flight date even after repacking.
	filename := filepath.Base(path)
	if orig, ok := attrs["filename"]; ok {
		filename = filepath.Base(orig)
	}
	hint, _ := ExtractDateHint(attrs, filename)

	a.timeClass = ClassifyTime(timeVar)
	normalTime, err := NormalizeTime(timeVar, a.timeClass, hint)
	if err != nil {
		a.Close() //nolint:errcheck
		return nil, fmt.Errorf("normalize time for %s: %w", path, err)
	}
	a.normalTime = normalTime

	return a, nil
}

// Path returns the granule's source path.
func (a *Adapter) Path() string { return a.path }

// Dimensions returns the dimension-size snapshot taken at construction.
func (a *Adapter) Dimensions() map[string]int { return a.dims }

// Attrs returns the file-attribute snapshot taken at construction.
func (a *Adapter) Attrs() map[string]string { return a.attrs }

// TimeClass returns the classification the normalizer was driven by.
func (a *Adapter) TimeClass() TimeClassification { return a.timeClass }

// NormalTime returns the normalized time view, index-aligned with the
// raw time dimension.
func (a *Adapter) NormalTime() *TimeSeries { return a.normalTime }

// Var returns a named variable from the underlying granule.
func (a *Adapter) Var(name string) (*Variable, error) {
	if a.closed {
		return nil, fmt.Errorf("read %q: %w", name, ErrGranuleClosed)
	}
	v, ok := a.granule.Var(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingVariable, name)
	}
	return v, nil
}

// Close releases the underlying granule. Safe to call more than once and
// after partially failed construction.
func (a *Adapter) Close() error {
	if a == nil || a.closed {
		return nil
	}
	a.closed = true
	return a.granule.Close()
}
