package spectra

import (
	"github.com/jihwankim/spectrum-utils/pkg/parameters"
)

// TwoD is the two-parameter histogram; it increments only when both
// parameters are present.
type TwoD struct {
	spectrumBase
	unfoldable
	xparam, yparam string
	xid, yid       uint32
	hist           hist2d
}

// NewTwoD creates a 2-d spectrum on the named (x, y) parameters.
func NewTwoD(name, xparam, yparam string, pd *parameters.Dictionary,
	xlow, xhigh *float64, xbins *uint32,
	ylow, yhigh *float64, ybins *uint32) (*TwoD, error) {
	ps, err := resolveParameters(pd, []string{xparam, yparam})
	if err != nil {
		return nil, err
	}
	xaxis, err := axisFromOptions(ps[0], xlow, xhigh, xbins)
	if err != nil {
		return nil, err
	}
	yaxis, err := axisFromOptions(ps[1], ylow, yhigh, ybins)
	if err != nil {
		return nil, err
	}
	return &TwoD{
		spectrumBase: spectrumBase{name: name},
		xparam:       xparam,
		yparam:       yparam,
		xid:          ps[0].ID(),
		yid:          ps[1].ID(),
		hist:         newHist2d(xaxis, yaxis),
	}, nil
}

func (s *TwoD) Type() string { return "2D" }

func (s *TwoD) Increment(e *parameters.FlatEvent) {
	xv, okx := e.Get(s.xid)
	yv, oky := e.Get(s.yid)
	if okx && oky {
		s.hist.increment(xv, yv)
	}
}

// RequiredParameter keys dispatch on the x parameter.
func (s *TwoD) RequiredParameter() (uint32, bool) { return s.xid, true }

func (s *TwoD) XParameters() []string { return []string{s.xparam} }
func (s *TwoD) YParameters() []string { return []string{s.yparam} }

func (s *TwoD) XAxis() (Axis, bool) { return s.hist.x, true }
func (s *TwoD) YAxis() (Axis, bool) { return s.hist.y, true }

func (s *TwoD) Clear()                 { s.hist.clear() }
func (s *TwoD) OutOfRange() Statistics { return s.hist.statistics() }

func (s *TwoD) Contents(w *ContentsWindow) []Channel { return s.hist.contents(w) }
func (s *TwoD) SetContents(channels []Channel)       { s.hist.setContents(channels) }

// BinValue returns the counter at sentinel-coordinate bin indices.
func (s *TwoD) BinValue(xbin, ybin int) float64 {
	return s.hist.counts[s.hist.index(xbin, ybin)]
}
