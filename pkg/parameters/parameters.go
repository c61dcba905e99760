// Package parameters maintains the registry of named event parameters and
// the flattened per-event view of decoded data used by conditions and
// spectra.
package parameters

import (
	"fmt"
	"path"
	"sort"
)

// Parameter describes a named scalar feature of decoded events. Ids are
// assigned by the Dictionary, start at 1 and are never reused. The
// metadata fields are advisory; spectrum creation uses them to default
// axis specifications.
type Parameter struct {
	name        string
	id          uint32
	low, high   float64
	hasLimits   bool
	bins        uint32
	hasBins     bool
	units       string
	description string
}

// NewParameter creates a parameter outside a dictionary. Most callers
// want Dictionary.Add instead; this exists for tests and reconstitution.
func NewParameter(name string, id uint32) *Parameter {
	return &Parameter{name: name, id: id}
}

// Name returns the parameter name.
func (p *Parameter) Name() string { return p.name }

// ID returns the parameter id.
func (p *Parameter) ID() uint32 { return p.id }

// SetLimits records the suggested axis limits. Setters chain.
func (p *Parameter) SetLimits(low, high float64) *Parameter {
	p.low = low
	p.high = high
	p.hasLimits = true
	return p
}

// SetBins records the suggested bin count.
func (p *Parameter) SetBins(bins uint32) *Parameter {
	p.bins = bins
	p.hasBins = true
	return p
}

// SetUnits records the units of measure.
func (p *Parameter) SetUnits(units string) *Parameter {
	p.units = units
	return p
}

// SetDescription records the free-text description.
func (p *Parameter) SetDescription(d string) *Parameter {
	p.description = d
	return p
}

// Limits returns the suggested low/high limits; ok is false when no
// limits have been set.
func (p *Parameter) Limits() (low, high float64, ok bool) {
	return p.low, p.high, p.hasLimits
}

// Bins returns the suggested bin count; ok is false when unset.
func (p *Parameter) Bins() (uint32, bool) { return p.bins, p.hasBins }

// Units returns the units of measure, empty when unset.
func (p *Parameter) Units() string { return p.units }

// Description returns the description, empty when unset.
func (p *Parameter) Description() string { return p.description }

func (p *Parameter) String() string {
	s := fmt.Sprintf("%s (%d)", p.name, p.id)
	if p.hasLimits {
		s += fmt.Sprintf(" [%g..%g]", p.low, p.high)
	}
	if p.hasBins {
		s += fmt.Sprintf(" %d bins", p.bins)
	}
	if p.units != "" {
		s += " " + p.units
	}
	return s
}

// Dictionary maps parameter names to parameters with insertion-monotone
// id allocation. It is owned by the histogram engine thread and is not
// internally synchronized.
type Dictionary struct {
	byName map[string]*Parameter
	byID   map[uint32]*Parameter
	nextID uint32
}

// NewDictionary creates an empty registry. The first allocated id is 1.
func NewDictionary() *Dictionary {
	return &Dictionary{
		byName: make(map[string]*Parameter),
		byID:   make(map[uint32]*Parameter),
		nextID: 1,
	}
}

// Add registers a new parameter and assigns the next id. Adding a name
// that already exists fails with ErrDuplicateParameter.
func (d *Dictionary) Add(name string) (*Parameter, error) {
	if _, ok := d.byName[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateParameter, name)
	}
	p := NewParameter(name, d.nextID)
	d.nextID++
	d.byName[name] = p
	d.byID[p.id] = p
	return p, nil
}

// Lookup returns the parameter with the given name, nil when absent.
// The returned parameter is shared; metadata setters mutate in place.
func (d *Dictionary) Lookup(name string) *Parameter { return d.byName[name] }

// LookupByID returns the parameter with the given id, nil when absent.
func (d *Dictionary) LookupByID(id uint32) *Parameter { return d.byID[id] }

// Len returns the number of registered parameters.
func (d *Dictionary) Len() int { return len(d.byName) }

// NextID returns the id the next Add will assign.
func (d *Dictionary) NextID() uint32 { return d.nextID }

// List returns the parameters whose names match the glob pattern, in
// name order. A malformed pattern is reported as an error.
func (d *Dictionary) List(pattern string) ([]*Parameter, error) {
	var result []*Parameter
	for name, p := range d.byName {
		ok, err := path.Match(pattern, name)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrBadPattern, pattern)
		}
		if ok {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].name < result[j].name })
	return result, nil
}

// Iterate calls fn for every parameter in unspecified order.
func (d *Dictionary) Iterate(fn func(*Parameter)) {
	for _, p := range d.byName {
		fn(p)
	}
}
