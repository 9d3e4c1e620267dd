package domain

import (
	"io"
	"time"
)

// Variable is one labeled array in a granule. Exactly one of Values or
// Times is populated: Values for numeric data, Times when the loader
// already decoded absolute instants.
type Variable struct {
	Dims   []string
	Shape  []int
	Values []float64
	Times  []time.Time
	Attrs  map[string]string
}

// IsInstant reports whether the variable stores absolute instants rather
// than raw numbers.
func (v *Variable) IsInstant() bool { return v.Times != nil }

// Len returns the flattened element count.
func (v *Variable) Len() int {
	if v.IsInstant() {
		return len(v.Times)
	}
	return len(v.Values)
}

// Attr returns the named attribute or "" when absent.
func (v *Variable) Attr(key string) string {
	return v.Attrs[key]
}

// Granule is a raw campaign dataset: named dimension sizes, variables,
// and file-level attributes. The core reads it but never rewrites it;
// the normalized time view lives on the Adapter.
type Granule struct {
	Dims  map[string]int
	Vars  map[string]*Variable
	Attrs map[string]string

	// Closer releases whatever resource the loader holds open.
	// Nil for fully in-memory granules.
	Closer io.Closer

	closed bool
}

// Var returns the named variable.
func (g *Granule) Var(name string) (*Variable, bool) {
	v, ok := g.Vars[name]
	return v, ok
}

// Close releases the loader's underlying resource. Closing twice is a no-op.
func (g *Granule) Close() error {
	if g == nil || g.closed {
		return nil
	}
	g.closed = true
	if g.Closer == nil {
		return nil
	}
	return g.Closer.Close()
}
