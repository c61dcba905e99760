package spectra

import (
	"github.com/jihwankim/spectrum-utils/pkg/conditions"
	"github.com/jihwankim/spectrum-utils/pkg/parameters"
)

// Multi1D histograms every present parameter of its set into one axis.
// A fold restricts incrementing to the parameters the fold places
// outside its region.
type Multi1D struct {
	spectrumBase
	foldSupport
	params []string
	ids    []uint32
	idset  conditions.IDSet
	hist   hist1d
}

// NewMulti1D creates a multi-1d (gamma) spectrum over the named
// parameters. Omitted axis coordinates default from the parameter set.
func NewMulti1D(name string, params []string, pd *parameters.Dictionary, low, high *float64, bins *uint32) (*Multi1D, error) {
	ps, err := resolveParameters(pd, params)
	if err != nil {
		return nil, err
	}
	axis, err := axisFromParameterSet(ps, low, high, bins)
	if err != nil {
		return nil, err
	}
	ids := parameterIDs(ps)
	idset := make(conditions.IDSet, len(ids))
	for _, id := range ids {
		idset[id] = struct{}{}
	}
	return &Multi1D{
		spectrumBase: spectrumBase{name: name},
		params:       parameterNames(ps),
		ids:          ids,
		idset:        idset,
		hist:         newHist1d(axis),
	}, nil
}

func (s *Multi1D) Type() string { return "Multi1d" }

func (s *Multi1D) Increment(e *parameters.FlatEvent) {
	if outside := s.fold.fold1(e); outside != nil {
		// Folded: only parameters in both the spectrum set and the
		// fold's outside set count.
		for id := range outside {
			if _, mine := s.idset[id]; !mine {
				continue
			}
			if v, ok := e.Get(id); ok {
				s.hist.increment(v)
			}
		}
		return
	}
	for _, id := range s.ids {
		if v, ok := e.Get(id); ok {
			s.hist.increment(v)
		}
	}
}

func (s *Multi1D) RequiredParameter() (uint32, bool) { return 0, false }

func (s *Multi1D) XParameters() []string { return s.params }
func (s *Multi1D) YParameters() []string { return nil }

func (s *Multi1D) XAxis() (Axis, bool) { return s.hist.axis, true }
func (s *Multi1D) YAxis() (Axis, bool) { return Axis{}, false }

func (s *Multi1D) Clear()                 { s.hist.clear() }
func (s *Multi1D) OutOfRange() Statistics { return s.hist.statistics() }

func (s *Multi1D) Contents(w *ContentsWindow) []Channel { return s.hist.contents(w) }
func (s *Multi1D) SetContents(channels []Channel)       { s.hist.setContents(channels) }

// BinValue returns the counter at the sentinel-coordinate bin index.
func (s *Multi1D) BinValue(bin int) float64 { return s.hist.counts[bin] }
