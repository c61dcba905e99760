package engine

import (
	"fmt"

	"github.com/jihwankim/spectrum-utils/pkg/conditions"
	"github.com/jihwankim/spectrum-utils/pkg/parameters"
	"github.com/jihwankim/spectrum-utils/pkg/sharedmem"
	"github.com/jihwankim/spectrum-utils/pkg/spectra"
)

// --- parameter surface ---

// CreateParameter registers a parameter and returns its id.
func (e *Engine) CreateParameter(name string) (uint32, error) {
	r := e.submit(createParameterOp{name: name})
	if r.err != nil {
		return 0, r.err
	}
	return r.payload.(uint32), nil
}

// ListParameters returns the parameters matching the glob pattern.
func (e *Engine) ListParameters(pattern string) ([]ParameterInfo, error) {
	r := e.submit(listParametersOp{pattern: pattern})
	if r.err != nil {
		return nil, r.err
	}
	return r.payload.([]ParameterInfo), nil
}

// SetParameterMetadata updates the non-nil metadata fields of a
// parameter.
func (e *Engine) SetParameterMetadata(name string, meta ParameterMetadata) error {
	return e.submit(setParameterMetadataOp{name: name, meta: meta}).err
}

// --- condition surface ---

func (e *Engine) createCondition(name string, build func(*Engine) (conditions.Condition, error)) error {
	return e.submit(createConditionOp{name: name, build: build}).err
}

// CreateTrueCondition registers an always-true condition.
func (e *Engine) CreateTrueCondition(name string) error {
	return e.createCondition(name, func(*Engine) (conditions.Condition, error) {
		return conditions.NewTrue(), nil
	})
}

// CreateFalseCondition registers an always-false condition.
func (e *Engine) CreateFalseCondition(name string) error {
	return e.createCondition(name, func(*Engine) (conditions.Condition, error) {
		return conditions.NewFalse(), nil
	})
}

// CreateCut registers a cut on a parameter id.
func (e *Engine) CreateCut(name string, pid uint32, low, high float64) error {
	return e.createCondition(name, func(*Engine) (conditions.Condition, error) {
		return conditions.NewCut(pid, low, high), nil
	})
}

// CreateMultiCut registers a multi-parameter cut.
func (e *Engine) CreateMultiCut(name string, pids []uint32, low, high float64) error {
	return e.createCondition(name, func(*Engine) (conditions.Condition, error) {
		return conditions.NewMultiCut(pids, low, high), nil
	})
}

// CreateBand registers a band on an (x, y) parameter pair.
func (e *Engine) CreateBand(name string, xid, yid uint32, points []conditions.Point) error {
	return e.createCondition(name, func(*Engine) (conditions.Condition, error) {
		return conditions.NewBand(xid, yid, points)
	})
}

// CreateContour registers a contour on an (x, y) parameter pair.
func (e *Engine) CreateContour(name string, xid, yid uint32, points []conditions.Point) error {
	return e.createCondition(name, func(*Engine) (conditions.Condition, error) {
		return conditions.NewContour(xid, yid, points)
	})
}

// CreateMultiContour registers a contour over a parameter set.
func (e *Engine) CreateMultiContour(name string, pids []uint32, points []conditions.Point) error {
	return e.createCondition(name, func(*Engine) (conditions.Condition, error) {
		return conditions.NewMultiContour(pids, points)
	})
}

// CreateAnd registers the conjunction of existing conditions.
func (e *Engine) CreateAnd(name string, dependencies []string) error {
	return e.createCondition(name, func(eng *Engine) (conditions.Condition, error) {
		if err := requireConditions(eng, dependencies); err != nil {
			return nil, err
		}
		return conditions.NewAnd(dependencies), nil
	})
}

// CreateOr registers the disjunction of existing conditions.
func (e *Engine) CreateOr(name string, dependencies []string) error {
	return e.createCondition(name, func(eng *Engine) (conditions.Condition, error) {
		if err := requireConditions(eng, dependencies); err != nil {
			return nil, err
		}
		return conditions.NewOr(dependencies), nil
	})
}

// CreateNot registers the negation of an existing condition.
func (e *Engine) CreateNot(name string, dependency string) error {
	return e.createCondition(name, func(eng *Engine) (conditions.Condition, error) {
		if err := requireConditions(eng, []string{dependency}); err != nil {
			return nil, err
		}
		return conditions.NewNot(dependency), nil
	})
}

// ReconstituteContour recreates a contour from serialized properties,
// replacing any same-named condition while preserving its dependents.
func (e *Engine) ReconstituteContour(props ContourProperties) error {
	return e.createCondition(props.Name, func(*Engine) (conditions.Condition, error) {
		return conditions.NewContour(props.XID, props.YID, props.Points)
	})
}

// ListConditions returns the conditions matching the glob pattern.
func (e *Engine) ListConditions(pattern string) ([]ConditionInfo, error) {
	r := e.submit(listConditionsOp{pattern: pattern})
	if r.err != nil {
		return nil, r.err
	}
	return r.payload.([]ConditionInfo), nil
}

// DeleteCondition removes a condition; dependents observe the deletion.
func (e *Engine) DeleteCondition(name string) error {
	return e.submit(deleteConditionOp{name: name}).err
}

// --- spectrum surface ---

func (e *Engine) createSpectrum(name string, build func(*Engine) (spectra.Spectrum, error)) error {
	return e.submit(createSpectrumOp{name: name, build: build}).err
}

// Create1D creates a 1-d spectrum.
func (e *Engine) Create1D(name, param string, axis AxisDef) error {
	return e.createSpectrum(name, func(eng *Engine) (spectra.Spectrum, error) {
		return spectra.NewOneD(name, param, eng.params, axis.Low, axis.High, axis.Bins)
	})
}

// Create2D creates a 2-d spectrum.
func (e *Engine) Create2D(name, xparam, yparam string, xaxis, yaxis AxisDef) error {
	return e.createSpectrum(name, func(eng *Engine) (spectra.Spectrum, error) {
		return spectra.NewTwoD(name, xparam, yparam, eng.params,
			xaxis.Low, xaxis.High, xaxis.Bins,
			yaxis.Low, yaxis.High, yaxis.Bins)
	})
}

// CreateMulti1D creates a multi-1d spectrum.
func (e *Engine) CreateMulti1D(name string, params []string, axis AxisDef) error {
	return e.createSpectrum(name, func(eng *Engine) (spectra.Spectrum, error) {
		return spectra.NewMulti1D(name, params, eng.params, axis.Low, axis.High, axis.Bins)
	})
}

// CreateMulti2D creates a multi-2d spectrum.
func (e *Engine) CreateMulti2D(name string, params []string, xaxis, yaxis AxisDef) error {
	return e.createSpectrum(name, func(eng *Engine) (spectra.Spectrum, error) {
		return spectra.NewMulti2D(name, params, eng.params,
			xaxis.Low, xaxis.High, xaxis.Bins,
			yaxis.Low, yaxis.High, yaxis.Bins)
	})
}

// CreateSummary creates a summary spectrum.
func (e *Engine) CreateSummary(name string, params []string, yaxis AxisDef) error {
	return e.createSpectrum(name, func(eng *Engine) (spectra.Spectrum, error) {
		return spectra.NewSummary(name, params, eng.params, yaxis.Low, yaxis.High, yaxis.Bins)
	})
}

// Create2DSum creates a 2-d sum spectrum.
func (e *Engine) Create2DSum(name string, xparams, yparams []string, xaxis, yaxis AxisDef) error {
	return e.createSpectrum(name, func(eng *Engine) (spectra.Spectrum, error) {
		return spectra.NewTwoDSum(name, xparams, yparams, eng.params,
			xaxis.Low, xaxis.High, xaxis.Bins,
			yaxis.Low, yaxis.High, yaxis.Bins)
	})
}

// CreatePGamma creates a particle-gamma spectrum.
func (e *Engine) CreatePGamma(name string, xparams, yparams []string, xaxis, yaxis AxisDef) error {
	return e.createSpectrum(name, func(eng *Engine) (spectra.Spectrum, error) {
		return spectra.NewPGamma(name, xparams, yparams, eng.params,
			xaxis.Low, xaxis.High, xaxis.Bins,
			yaxis.Low, yaxis.High, yaxis.Bins)
	})
}

// ListSpectra returns the spectra matching the glob pattern.
func (e *Engine) ListSpectra(pattern string) ([]SpectrumInfo, error) {
	r := e.submit(listSpectraOp{pattern: pattern})
	if r.err != nil {
		return nil, r.err
	}
	return r.payload.([]SpectrumInfo), nil
}

// DeleteSpectrum removes a spectrum.
func (e *Engine) DeleteSpectrum(name string) error {
	return e.submit(deleteSpectrumOp{spectrum: name}).err
}

// ClearSpectra zeroes the counters of the matching spectra.
func (e *Engine) ClearSpectra(pattern string) error {
	return e.submit(clearSpectraOp{pattern: pattern}).err
}

// GateSpectrum attaches a condition as a spectrum's gate.
func (e *Engine) GateSpectrum(spectrum, condition string) error {
	return e.submit(gateSpectrumOp{spectrum: spectrum, condition: condition}).err
}

// UngateSpectrum detaches a spectrum's gate.
func (e *Engine) UngateSpectrum(spectrum string) error {
	return e.submit(ungateSpectrumOp{spectrum: spectrum}).err
}

// FoldSpectrum attaches a fold-capable condition as a spectrum's fold.
func (e *Engine) FoldSpectrum(spectrum, condition string) error {
	return e.submit(foldSpectrumOp{spectrum: spectrum, condition: condition}).err
}

// UnfoldSpectrum detaches a spectrum's fold.
func (e *Engine) UnfoldSpectrum(spectrum string) error {
	return e.submit(unfoldSpectrumOp{spectrum: spectrum}).err
}

// FillChannels replaces a spectrum's contents with the given channels.
func (e *Engine) FillChannels(spectrum string, channels []spectra.Channel) error {
	return e.submit(fillChannelsOp{spectrum: spectrum, channels: channels}).err
}

// GetContents returns a spectrum's non-zero channels, optionally
// restricted to a world-coordinate window.
func (e *Engine) GetContents(spectrum string, window *spectra.ContentsWindow) ([]spectra.Channel, error) {
	r := e.submit(getContentsOp{spectrum: spectrum, window: window})
	if r.err != nil {
		return nil, r.err
	}
	return r.payload.([]spectra.Channel), nil
}

// GetStats returns a spectrum's out-of-range statistics.
func (e *Engine) GetStats(spectrum string) (spectra.Statistics, error) {
	r := e.submit(getStatsOp{spectrum: spectrum})
	if r.err != nil {
		return spectra.Statistics{}, r.err
	}
	return r.payload.(spectra.Statistics), nil
}

// ProcessEvents dispatches a batch of decoded events through every
// spectrum.
func (e *Engine) ProcessEvents(events []parameters.Event) error {
	return e.submit(processEventsOp{events: events}).err
}

// Stop shuts the engine down after the queued requests drain.
func (e *Engine) Stop() {
	_ = e.submit(exitOp{})
}

// --- binder surface (sharedmem.SpectrumSource) ---

func slotKind(s spectra.Spectrum) uint32 {
	switch s.Type() {
	case "Summary":
		return sharedmem.SlotSummary
	default:
		if _, ok := s.YAxis(); ok {
			return sharedmem.SlotTwoD
		}
		return sharedmem.SlotOneD
	}
}

func (op boundInfoOp) execute(e *Engine) reply {
	s, err := e.lookupSpectrum(op.spectrum)
	if err != nil {
		return reply{err: err}
	}
	xaxis, ok := s.XAxis()
	if !ok {
		return reply{err: fmt.Errorf("spectrum %s has no x axis", op.spectrum)}
	}
	info := sharedmem.SpectrumInfo{
		Name:  s.Name(),
		Kind:  slotKind(s),
		XAxis: sharedmem.AxisSpec{Low: xaxis.Low, High: xaxis.High, Bins: xaxis.Bins},
	}
	if yaxis, ok := s.YAxis(); ok {
		info.YAxis = &sharedmem.AxisSpec{Low: yaxis.Low, High: yaxis.High, Bins: yaxis.Bins}
	}
	return reply{payload: info}
}

func (op boundContentsOp) execute(e *Engine) reply {
	s, err := e.lookupSpectrum(op.spectrum)
	if err != nil {
		return reply{err: err}
	}
	xaxis, _ := s.XAxis()
	_, twoD := s.YAxis()
	stride := int(xaxis.Bins) + 2

	var values []sharedmem.ChannelValue
	for _, c := range s.Contents(nil) {
		// Sentinels are consumed as statistics, never mirrored.
		if c.Type != spectra.ChannelBin {
			continue
		}
		v := sharedmem.ChannelValue{Value: uint32(c.Value)}
		if twoD {
			v.X = c.Bin%stride - 1
			v.Y = c.Bin/stride - 1
		} else {
			v.X = c.Bin - 1
		}
		values = append(values, v)
	}
	return reply{payload: values}
}

// SpectrumInfo implements sharedmem.SpectrumSource for the binding
// thread; the read is serialized through the engine like any request.
func (e *Engine) SpectrumInfo(name string) (sharedmem.SpectrumInfo, bool) {
	r := e.submit(boundInfoOp{spectrum: name})
	if r.err != nil {
		return sharedmem.SpectrumInfo{}, false
	}
	return r.payload.(sharedmem.SpectrumInfo), true
}

// SpectrumContents implements sharedmem.SpectrumSource.
func (e *Engine) SpectrumContents(name string) ([]sharedmem.ChannelValue, bool) {
	r := e.submit(boundContentsOp{spectrum: name})
	if r.err != nil {
		return nil, false
	}
	return r.payload.([]sharedmem.ChannelValue), true
}
