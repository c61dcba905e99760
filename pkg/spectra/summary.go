package spectra

import (
	"github.com/jihwankim/spectrum-utils/pkg/parameters"
)

// Summary lines up the 1-d spectra of N parameters as the columns of a
// 2-d histogram: column i is the spectrum of parameter i on the y axis.
type Summary struct {
	spectrumBase
	unfoldable
	params []string
	ids    []uint32
	hist   hist2d
}

// NewSummary creates a summary spectrum; the x axis is implicitly
// (0, N, N) and the y axis defaults from the parameter set.
func NewSummary(name string, params []string, pd *parameters.Dictionary, low, high *float64, bins *uint32) (*Summary, error) {
	ps, err := resolveParameters(pd, params)
	if err != nil {
		return nil, err
	}
	yaxis, err := axisFromParameterSet(ps, low, high, bins)
	if err != nil {
		return nil, err
	}
	xaxis := Axis{Low: 0, High: float64(len(ps)), Bins: uint32(len(ps))}
	return &Summary{
		spectrumBase: spectrumBase{name: name},
		params:       parameterNames(ps),
		ids:          parameterIDs(ps),
		hist:         newHist2d(xaxis, yaxis),
	}, nil
}

func (s *Summary) Type() string { return "Summary" }

func (s *Summary) Increment(e *parameters.FlatEvent) {
	for i, id := range s.ids {
		if v, ok := e.Get(id); ok {
			s.hist.incrementColumn(i+1, v)
		}
	}
}

func (s *Summary) RequiredParameter() (uint32, bool) { return 0, false }

func (s *Summary) XParameters() []string { return s.params }
func (s *Summary) YParameters() []string { return nil }

func (s *Summary) XAxis() (Axis, bool) { return s.hist.x, true }
func (s *Summary) YAxis() (Axis, bool) { return s.hist.y, true }

func (s *Summary) Clear()                 { s.hist.clear() }
func (s *Summary) OutOfRange() Statistics { return s.hist.statistics() }

func (s *Summary) Contents(w *ContentsWindow) []Channel { return s.hist.contents(w) }
func (s *Summary) SetContents(channels []Channel)       { s.hist.setContents(channels) }

// BinValue returns the counter for (column, ybin) in sentinel
// coordinates; column 1 is the first parameter.
func (s *Summary) BinValue(column, ybin int) float64 {
	return s.hist.counts[s.hist.index(column, ybin)]
}
