package conditions

import "github.com/jihwankim/spectrum-utils/pkg/parameters"

// True always accepts.
type True struct {
	cacheCell
	noFold
	noDependencies
}

// NewTrue creates the constant-true condition.
func NewTrue() *True { return &True{} }

func (*True) Evaluate(*Dictionary, *parameters.FlatEvent) bool { return true }
func (*True) Type() string                                     { return "True" }
func (*True) Points() []Point                                  { return nil }

// False always rejects.
type False struct {
	cacheCell
	noFold
	noDependencies
}

// NewFalse creates the constant-false condition.
func NewFalse() *False { return &False{} }

func (*False) Evaluate(*Dictionary, *parameters.FlatEvent) bool { return false }
func (*False) Type() string                                     { return "False" }
func (*False) Points() []Point                                  { return nil }

// Cut accepts events where a single parameter is present and inside the
// closed interval [low, high].
type Cut struct {
	cacheCell
	noFold
	noDependencies
	parameterID uint32
	low, high   float64
}

// NewCut creates a cut on the given parameter id.
func NewCut(id uint32, low, high float64) *Cut {
	return &Cut{parameterID: id, low: low, high: high}
}

// ReplaceLimits updates the interval and invalidates the cache.
func (c *Cut) ReplaceLimits(low, high float64) *Cut {
	c.low = low
	c.high = high
	c.invalidate()
	return c
}

func (c *Cut) Evaluate(_ *Dictionary, e *parameters.FlatEvent) bool {
	v, ok := e.Get(c.parameterID)
	return ok && v >= c.low && v <= c.high
}

func (c *Cut) Type() string { return "Cut" }

func (c *Cut) Points() []Point {
	return []Point{{X: c.low}, {X: c.high}}
}

// ParameterID returns the id the cut tests.
func (c *Cut) ParameterID() uint32 { return c.parameterID }

// MultiCut accepts events where any of a set of parameters is present
// and inside the half-open interval [low, high). It is fold-capable:
// the outside set consists of the listed parameters that fall outside
// the interval.
type MultiCut struct {
	cacheCell
	noDependencies
	ids       []uint32
	low, high float64
}

// NewMultiCut creates a multi-parameter cut over ids.
func NewMultiCut(ids []uint32, low, high float64) *MultiCut {
	owned := make([]uint32, len(ids))
	copy(owned, ids)
	return &MultiCut{ids: owned, low: low, high: high}
}

func (m *MultiCut) inside(v float64) bool { return v >= m.low && v < m.high }

func (m *MultiCut) Evaluate(_ *Dictionary, e *parameters.FlatEvent) bool {
	for _, id := range m.ids {
		if v, ok := e.Get(id); ok && m.inside(v) {
			return true
		}
	}
	return false
}

func (m *MultiCut) Type() string { return "MultiCut" }

func (m *MultiCut) Points() []Point {
	return []Point{{X: m.low}, {X: m.high}}
}

// ParameterIDs returns the ids the cut covers, in definition order.
func (m *MultiCut) ParameterIDs() []uint32 { return m.ids }

func (m *MultiCut) IsFold() bool { return true }

func (m *MultiCut) Evaluate1(e *parameters.FlatEvent) IDSet {
	result := make(IDSet)
	for _, id := range m.ids {
		if v, ok := e.Get(id); ok && !m.inside(v) {
			result[id] = struct{}{}
		}
	}
	return result
}

func (m *MultiCut) Evaluate2(e *parameters.FlatEvent) PairSet {
	result := make(PairSet)
	for i := 0; i+1 < len(m.ids); i++ {
		v1, ok1 := e.Get(m.ids[i])
		if !ok1 {
			continue
		}
		for _, second := range m.ids[i+1:] {
			v2, ok2 := e.Get(second)
			if ok2 && !m.inside(v1) && !m.inside(v2) {
				result[NewIDPair(m.ids[i], second)] = struct{}{}
			}
		}
	}
	return result
}
