package spectra

import (
	"fmt"

	"github.com/jihwankim/spectrum-utils/pkg/parameters"
)

// TwoDSum overlays the 2-d spectra of an explicit list of (x, y)
// parameter pairs into a single counter array.
type TwoDSum struct {
	spectrumBase
	unfoldable
	xparams, yparams []string
	pairs            [][2]uint32
	hist             hist2d
}

// NewTwoDSum creates a 2-d sum spectrum. The x and y parameter lists
// must be the same length; entry i of each forms pair i. The x axis
// defaults from the x parameters, the y axis from the y parameters.
func NewTwoDSum(name string, xparams, yparams []string, pd *parameters.Dictionary,
	xlow, xhigh *float64, xbins *uint32,
	ylow, yhigh *float64, ybins *uint32) (*TwoDSum, error) {
	if len(xparams) != len(yparams) {
		return nil, fmt.Errorf("%w: 2d-sum needs matching x/y parameter lists (%d vs %d)",
			ErrAxisDefault, len(xparams), len(yparams))
	}
	xps, err := resolveParameters(pd, xparams)
	if err != nil {
		return nil, err
	}
	yps, err := resolveParameters(pd, yparams)
	if err != nil {
		return nil, err
	}
	xaxis, err := axisFromParameterSet(xps, xlow, xhigh, xbins)
	if err != nil {
		return nil, err
	}
	yaxis, err := axisFromParameterSet(yps, ylow, yhigh, ybins)
	if err != nil {
		return nil, err
	}
	pairs := make([][2]uint32, len(xps))
	for i := range xps {
		pairs[i] = [2]uint32{xps[i].ID(), yps[i].ID()}
	}
	return &TwoDSum{
		spectrumBase: spectrumBase{name: name},
		xparams:      parameterNames(xps),
		yparams:      parameterNames(yps),
		pairs:        pairs,
		hist:         newHist2d(xaxis, yaxis),
	}, nil
}

func (s *TwoDSum) Type() string { return "2DSum" }

func (s *TwoDSum) Increment(e *parameters.FlatEvent) {
	for _, pair := range s.pairs {
		xv, okx := e.Get(pair[0])
		yv, oky := e.Get(pair[1])
		if okx && oky {
			s.hist.increment(xv, yv)
		}
	}
}

func (s *TwoDSum) RequiredParameter() (uint32, bool) { return 0, false }

func (s *TwoDSum) XParameters() []string { return s.xparams }
func (s *TwoDSum) YParameters() []string { return s.yparams }

func (s *TwoDSum) XAxis() (Axis, bool) { return s.hist.x, true }
func (s *TwoDSum) YAxis() (Axis, bool) { return s.hist.y, true }

func (s *TwoDSum) Clear()                 { s.hist.clear() }
func (s *TwoDSum) OutOfRange() Statistics { return s.hist.statistics() }

func (s *TwoDSum) Contents(w *ContentsWindow) []Channel { return s.hist.contents(w) }
func (s *TwoDSum) SetContents(channels []Channel)       { s.hist.setContents(channels) }

// BinValue returns the counter at sentinel-coordinate bin indices.
func (s *TwoDSum) BinValue(xbin, ybin int) float64 {
	return s.hist.counts[s.hist.index(xbin, ybin)]
}
