package spectra

import (
	"github.com/jihwankim/spectrum-utils/pkg/conditions"
	"github.com/jihwankim/spectrum-utils/pkg/parameters"
)

// Multi2D histograms every unordered pair of its parameter set that is
// fully present. A fold restricts incrementing to the pairs the fold
// places outside its region.
type Multi2D struct {
	spectrumBase
	foldSupport
	params []string
	ids    []uint32
	hist   hist2d
}

// NewMulti2D creates a multi-2d (gamma-gamma) spectrum over the named
// parameters; both axes default from the whole parameter set.
func NewMulti2D(name string, params []string, pd *parameters.Dictionary,
	xlow, xhigh *float64, xbins *uint32,
	ylow, yhigh *float64, ybins *uint32) (*Multi2D, error) {
	ps, err := resolveParameters(pd, params)
	if err != nil {
		return nil, err
	}
	xaxis, err := axisFromParameterSet(ps, xlow, xhigh, xbins)
	if err != nil {
		return nil, err
	}
	yaxis, err := axisFromParameterSet(ps, ylow, yhigh, ybins)
	if err != nil {
		return nil, err
	}
	return &Multi2D{
		spectrumBase: spectrumBase{name: name},
		params:       parameterNames(ps),
		ids:          parameterIDs(ps),
		hist:         newHist2d(xaxis, yaxis),
	}, nil
}

func (s *Multi2D) Type() string { return "Multi2d" }

func (s *Multi2D) Increment(e *parameters.FlatEvent) {
	folded := s.fold.fold2(e)
	for i := 0; i+1 < len(s.ids); i++ {
		v1, ok1 := e.Get(s.ids[i])
		if !ok1 {
			continue
		}
		for _, second := range s.ids[i+1:] {
			v2, ok2 := e.Get(second)
			if !ok2 {
				continue
			}
			if folded != nil {
				if _, out := folded[conditions.NewIDPair(s.ids[i], second)]; !out {
					continue
				}
			}
			s.hist.increment(v1, v2)
		}
	}
}

func (s *Multi2D) RequiredParameter() (uint32, bool) { return 0, false }

func (s *Multi2D) XParameters() []string { return s.params }
func (s *Multi2D) YParameters() []string { return nil }

func (s *Multi2D) XAxis() (Axis, bool) { return s.hist.x, true }
func (s *Multi2D) YAxis() (Axis, bool) { return s.hist.y, true }

func (s *Multi2D) Clear()                 { s.hist.clear() }
func (s *Multi2D) OutOfRange() Statistics { return s.hist.statistics() }

func (s *Multi2D) Contents(w *ContentsWindow) []Channel { return s.hist.contents(w) }
func (s *Multi2D) SetContents(channels []Channel)       { s.hist.setContents(channels) }

// BinValue returns the counter at sentinel-coordinate bin indices.
func (s *Multi2D) BinValue(xbin, ybin int) float64 {
	return s.hist.counts[s.hist.index(xbin, ybin)]
}
