package spectra

import (
	"github.com/jihwankim/spectrum-utils/pkg/conditions"
	"github.com/jihwankim/spectrum-utils/pkg/parameters"
)

// PGamma histograms the full cross product of its x and y parameter
// sets: every (xi, yj) combination with both present increments. A fold
// restricts incrementing to combinations the fold places outside its
// region.
type PGamma struct {
	spectrumBase
	foldSupport
	xparams, yparams []string
	xids, yids       []uint32
	hist             hist2d
}

// NewPGamma creates a particle-gamma spectrum; the x axis defaults from
// the x parameters, the y axis from the y parameters.
func NewPGamma(name string, xparams, yparams []string, pd *parameters.Dictionary,
	xlow, xhigh *float64, xbins *uint32,
	ylow, yhigh *float64, ybins *uint32) (*PGamma, error) {
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
	return &PGamma{
		spectrumBase: spectrumBase{name: name},
		xparams:      parameterNames(xps),
		yparams:      parameterNames(yps),
		xids:         parameterIDs(xps),
		yids:         parameterIDs(yps),
		hist:         newHist2d(xaxis, yaxis),
	}, nil
}

func (s *PGamma) Type() string { return "PGamma" }

func (s *PGamma) Increment(e *parameters.FlatEvent) {
	folded := s.fold.fold2(e)
	for _, xid := range s.xids {
		xv, okx := e.Get(xid)
		if !okx {
			continue
		}
		for _, yid := range s.yids {
			yv, oky := e.Get(yid)
			if !oky {
				continue
			}
			if folded != nil {
				if _, out := folded[conditions.NewIDPair(xid, yid)]; !out {
					continue
				}
			}
			s.hist.increment(xv, yv)
		}
	}
}

func (s *PGamma) RequiredParameter() (uint32, bool) { return 0, false }

func (s *PGamma) XParameters() []string { return s.xparams }
func (s *PGamma) YParameters() []string { return s.yparams }

func (s *PGamma) XAxis() (Axis, bool) { return s.hist.x, true }
func (s *PGamma) YAxis() (Axis, bool) { return s.hist.y, true }

func (s *PGamma) Clear()                 { s.hist.clear() }
func (s *PGamma) OutOfRange() Statistics { return s.hist.statistics() }

func (s *PGamma) Contents(w *ContentsWindow) []Channel { return s.hist.contents(w) }
func (s *PGamma) SetContents(channels []Channel)       { s.hist.setContents(channels) }

// BinValue returns the counter at sentinel-coordinate bin indices.
func (s *PGamma) BinValue(xbin, ybin int) float64 {
	return s.hist.counts[s.hist.index(xbin, ybin)]
}
