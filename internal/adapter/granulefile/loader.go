// Package granulefile implements the default granule loader: a
// self-describing JSON document with named dimensions, variables, and
// verbatim string attributes. Campaign-specific formats (NetCDF exports,
// instrument dumps) are handled by supplying a different domain.Loader;
// conversion tooling repacks them into this document shape.
package granulefile

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fieldtrace/granule-etl-service/internal/domain"
)

// Document is the on-disk granule layout. Attributes are carried as raw
// strings; no convention decoding happens at load time.
type Document struct {
	Dimensions map[string]int    `json:"dimensions"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Variables  map[string]Var    `json:"variables"`
}

// Var is one variable of a Document. Exactly one of Data or Instants is
// set: Data for raw numbers, Instants (RFC 3339) when the producer already
// resolved absolute timestamps.
type Var struct {
	Dims     []string          `json:"dims"`
	Data     []float64         `json:"data,omitempty"`
	Instants []string          `json:"instants,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty"`
}

// Load reads a granule document from disk. It satisfies domain.Loader;
// params are reserved for campaign-specific loaders and ignored here.
func Load(path string, _ map[string]any) (*domain.Granule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode granule document: %w", err)
	}
	return doc.Granule()
}

// Granule validates the document and builds the in-memory granule.
// The result holds no open resource, so its Closer is nil.
func (d *Document) Granule() (*domain.Granule, error) {
	g := &domain.Granule{
		Dims:  make(map[string]int, len(d.Dimensions)),
		Vars:  make(map[string]*domain.Variable, len(d.Variables)),
		Attrs: make(map[string]string, len(d.Attributes)),
	}
	for name, size := range d.Dimensions {
		if size < 0 {
			return nil, fmt.Errorf("dimension %q has negative size %d", name, size)
		}
		g.Dims[name] = size
	}
	for k, v := range d.Attributes {
		g.Attrs[k] = v
	}

	for name, vd := range d.Variables {
		v, err := d.variable(name, vd)
		if err != nil {
			return nil, err
		}
		g.Vars[name] = v
	}
	return g, nil
}

func (d *Document) variable(name string, vd Var) (*domain.Variable, error) {
	if len(vd.Data) > 0 && len(vd.Instants) > 0 {
		return nil, fmt.Errorf("variable %q has both data and instants", name)
	}

	want := 1
	shape := make([]int, len(vd.Dims))
	for i, dim := range vd.Dims {
		size, ok := d.Dimensions[dim]
		if !ok {
			return nil, fmt.Errorf("variable %q references undeclared dimension %q", name, dim)
		}
		shape[i] = size
		want *= size
	}

	attrs := vd.Attrs
	if attrs == nil {
		attrs = map[string]string{}
	}
	v := &domain.Variable{Dims: vd.Dims, Shape: shape, Attrs: attrs}

	if len(vd.Instants) > 0 {
		if len(vd.Instants) != want {
			return nil, fmt.Errorf("variable %q has %d instants, shape wants %d", name, len(vd.Instants), want)
		}
		v.Times = make([]time.Time, len(vd.Instants))
		for i, s := range vd.Instants {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return nil, fmt.Errorf("variable %q instant %d: %w", name, i, err)
			}
			v.Times[i] = t.UTC()
		}
		return v, nil
	}

	if len(vd.Data) != want {
		return nil, fmt.Errorf("variable %q has %d values, shape wants %d", name, len(vd.Data), want)
	}
	v.Values = vd.Data
	return v, nil
}
