package spectra

import (
	"github.com/jihwankim/spectrum-utils/pkg/parameters"
)

// OneD is the plain one-parameter histogram.
type OneD struct {
	spectrumBase
	unfoldable
	param string
	pid   uint32
	hist  hist1d
}

// NewOneD creates a 1-d spectrum on the named parameter. Omitted axis
// coordinates default from the parameter metadata.
func NewOneD(name, param string, pd *parameters.Dictionary, low, high *float64, bins *uint32) (*OneD, error) {
	ps, err := resolveParameters(pd, []string{param})
	if err != nil {
		return nil, err
	}
	axis, err := axisFromOptions(ps[0], low, high, bins)
	if err != nil {
		return nil, err
	}
	return &OneD{
		spectrumBase: spectrumBase{name: name},
		param:        param,
		pid:          ps[0].ID(),
		hist:         newHist1d(axis),
	}, nil
}

func (s *OneD) Type() string { return "1D" }

func (s *OneD) Increment(e *parameters.FlatEvent) {
	if v, ok := e.Get(s.pid); ok {
		s.hist.increment(v)
	}
}

func (s *OneD) RequiredParameter() (uint32, bool) { return s.pid, true }

func (s *OneD) XParameters() []string { return []string{s.param} }
func (s *OneD) YParameters() []string { return nil }

func (s *OneD) XAxis() (Axis, bool) { return s.hist.axis, true }
func (s *OneD) YAxis() (Axis, bool) { return Axis{}, false }

func (s *OneD) Clear()                 { s.hist.clear() }
func (s *OneD) OutOfRange() Statistics { return s.hist.statistics() }

func (s *OneD) Contents(w *ContentsWindow) []Channel { return s.hist.contents(w) }
func (s *OneD) SetContents(channels []Channel)       { s.hist.setContents(channels) }

// BinValue returns the counter at the sentinel-coordinate bin index.
// Test and mirroring support.
func (s *OneD) BinValue(bin int) float64 { return s.hist.counts[bin] }
