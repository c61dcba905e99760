// Package spectra implements the binned histogram family: seven
// spectrum shapes sharing a common gating and folding contract, and the
// storage/dispatcher that routes each event to the spectra keyed by its
// parameters.
package spectra

import (
	"fmt"

	"github.com/jihwankim/spectrum-utils/pkg/conditions"
	"github.com/jihwankim/spectrum-utils/pkg/parameters"
)

// Spectrum is the contract every spectrum shape honors. Increment
// assumes the gate already accepted; callers normally go through
// HandleEvent.
type Spectrum interface {
	Name() string
	Type() string

	CheckGate(e *parameters.FlatEvent) bool
	Increment(e *parameters.FlatEvent)

	// RequiredParameter hints the dispatcher: when ok, the spectrum can
	// only increment if the event carries the returned id.
	RequiredParameter() (uint32, bool)

	XParameters() []string
	YParameters() []string
	XAxis() (Axis, bool)
	YAxis() (Axis, bool)

	GateName() (string, bool)
	SetGate(name string, d *conditions.Dictionary) error
	Ungate()

	CanFold() bool
	FoldName() (string, bool)
	SetFold(name string, d *conditions.Dictionary) error
	Unfold() error

	Clear()
	OutOfRange() Statistics
	Contents(w *ContentsWindow) []Channel
	SetContents(channels []Channel)
}

// HandleEvent increments s iff its gate accepts e.
func HandleEvent(s Spectrum, e *parameters.FlatEvent) {
	if s.CheckGate(e) {
		s.Increment(e)
	}
}

// appliedCondition attaches a condition to a spectrum by name. The name
// is re-resolved through the dictionary on every use, so a deleted
// condition is observed rather than dangled.
type appliedCondition struct {
	name string
	dict *conditions.Dictionary
	set  bool
}

func (a *appliedCondition) attach(name string, d *conditions.Dictionary) error {
	if d.Lookup(name) == nil {
		return fmt.Errorf("%w: %s", conditions.ErrNoSuchCondition, name)
	}
	a.name = name
	a.dict = d
	a.set = true
	return nil
}

func (a *appliedCondition) clear() {
	a.name = ""
	a.dict = nil
	a.set = false
}

// check is the gate test: an unattached condition accepts everything,
// an attached one that has since been deleted rejects.
func (a *appliedCondition) check(e *parameters.FlatEvent) bool {
	if !a.set {
		return true
	}
	return a.dict.Check(a.name, e)
}

func (a *appliedCondition) resolve() conditions.Condition {
	if !a.set {
		return nil
	}
	return a.dict.Lookup(a.name)
}

// fold1 returns the fold's outside id set, nil when no fold applies.
func (a *appliedCondition) fold1(e *parameters.FlatEvent) conditions.IDSet {
	cond := a.resolve()
	if cond == nil || !cond.IsFold() {
		return nil
	}
	return cond.Evaluate1(e)
}

// fold2 returns the fold's outside pair set, nil when no fold applies.
func (a *appliedCondition) fold2(e *parameters.FlatEvent) conditions.PairSet {
	cond := a.resolve()
	if cond == nil || !cond.IsFold() {
		return nil
	}
	return cond.Evaluate2(e)
}

// spectrumBase carries the name and gate shared by every shape.
type spectrumBase struct {
	name string
	gate appliedCondition
}

func (s *spectrumBase) Name() string { return s.name }

func (s *spectrumBase) CheckGate(e *parameters.FlatEvent) bool {
	return s.gate.check(e)
}

func (s *spectrumBase) GateName() (string, bool) {
	return s.gate.name, s.gate.set
}

func (s *spectrumBase) SetGate(name string, d *conditions.Dictionary) error {
	return s.gate.attach(name, d)
}

func (s *spectrumBase) Ungate() { s.gate.clear() }

// unfoldable supplies the fold surface for single-parameter shapes.
type unfoldable struct{}

func (unfoldable) CanFold() bool            { return false }
func (unfoldable) FoldName() (string, bool) { return "", false }
func (unfoldable) Unfold() error            { return ErrNotFoldable }
func (unfoldable) SetFold(string, *conditions.Dictionary) error {
	return ErrNotFoldable
}

// foldSupport supplies the fold surface for multi-parameter shapes.
type foldSupport struct {
	fold appliedCondition
}

func (f *foldSupport) CanFold() bool { return true }

func (f *foldSupport) FoldName() (string, bool) {
	return f.fold.name, f.fold.set
}

func (f *foldSupport) SetFold(name string, d *conditions.Dictionary) error {
	cond := d.Lookup(name)
	if cond == nil {
		return fmt.Errorf("%w: %s", conditions.ErrNoSuchCondition, name)
	}
	if !cond.IsFold() {
		return fmt.Errorf("%w: %s", ErrNotAFold, name)
	}
	return f.fold.attach(name, d)
}

func (f *foldSupport) Unfold() error {
	f.fold.clear()
	return nil
}

// axisFromOptions resolves one axis coordinate set, falling back to the
// parameter's metadata for anything omitted.
func axisFromOptions(p *parameters.Parameter, low, high *float64, bins *uint32) (Axis, error) {
	var axis Axis
	deflow, defhigh, hasLimits := p.Limits()

	switch {
	case low != nil:
		axis.Low = *low
	case hasLimits:
		axis.Low = deflow
	default:
		return axis, fmt.Errorf("%w: no default low limit for %s", ErrAxisDefault, p.Name())
	}
	switch {
	case high != nil:
		axis.High = *high
	case hasLimits:
		axis.High = defhigh
	default:
		return axis, fmt.Errorf("%w: no default high limit for %s", ErrAxisDefault, p.Name())
	}
	if bins != nil {
		axis.Bins = *bins
	} else if defbins, ok := p.Bins(); ok {
		axis.Bins = defbins
	} else {
		return axis, fmt.Errorf("%w: no default bin count for %s", ErrAxisDefault, p.Name())
	}
	return axis, nil
}

// axisFromParameterSet defaults a multi-parameter axis: low is the
// minimum of the parameter defaults, high the maximum, bins the
// maximum. Explicit coordinates override the defaults; a coordinate
// that cannot be defaulted fails creation.
func axisFromParameterSet(ps []*parameters.Parameter, low, high *float64, bins *uint32) (Axis, error) {
	var axis Axis

	if low != nil {
		axis.Low = *low
	} else {
		found := false
		for _, p := range ps {
			if l, _, ok := p.Limits(); ok {
				if !found || l < axis.Low {
					axis.Low = l
				}
				found = true
			}
		}
		if !found {
			return axis, fmt.Errorf("%w: no parameter supplies a low limit", ErrAxisDefault)
		}
	}
	if high != nil {
		axis.High = *high
	} else {
		found := false
		for _, p := range ps {
			if _, h, ok := p.Limits(); ok {
				if !found || h > axis.High {
					axis.High = h
				}
				found = true
			}
		}
		if !found {
			return axis, fmt.Errorf("%w: no parameter supplies a high limit", ErrAxisDefault)
		}
	}
	if bins != nil {
		axis.Bins = *bins
	} else {
		found := false
		for _, p := range ps {
			if b, ok := p.Bins(); ok {
				if !found || b > axis.Bins {
					axis.Bins = b
				}
				found = true
			}
		}
		if !found {
			return axis, fmt.Errorf("%w: no parameter supplies a bin count", ErrAxisDefault)
		}
	}
	return axis, nil
}

// resolveParameters maps names to registered parameters, failing on the
// first unknown name.
func resolveParameters(d *parameters.Dictionary, names []string) ([]*parameters.Parameter, error) {
	ps := make([]*parameters.Parameter, 0, len(names))
	for _, name := range names {
		p := d.Lookup(name)
		if p == nil {
			return nil, fmt.Errorf("%w: %s", parameters.ErrNoSuchParameter, name)
		}
		ps = append(ps, p)
	}
	return ps, nil
}

func parameterIDs(ps []*parameters.Parameter) []uint32 {
	ids := make([]uint32, len(ps))
	for i, p := range ps {
		ids[i] = p.ID()
	}
	return ids
}

func parameterNames(ps []*parameters.Parameter) []string {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.Name()
	}
	return names
}
