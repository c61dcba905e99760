// Package engine runs the histogramming thread: it owns the parameter
// registry, the condition dictionary and the spectrum storage, and
// serializes every operation on them through a request channel. Event
// batches run to completion per event; nothing inside the engine
// suspends.
package engine

import (
	"errors"
	"fmt"
	"sort"

	"github.com/jihwankim/spectrum-utils/pkg/conditions"
	"github.com/jihwankim/spectrum-utils/pkg/parameters"
	"github.com/jihwankim/spectrum-utils/pkg/reporting"
	"github.com/jihwankim/spectrum-utils/pkg/spectra"
	"github.com/jihwankim/spectrum-utils/pkg/trace"
)

// ErrEngineStopped is returned for requests after the engine exited.
var ErrEngineStopped = errors.New("histogram engine has stopped")

// Recorder receives engine throughput and population updates. The
// monitoring package provides the production implementation.
type Recorder interface {
	EventsProcessed(n int)
	Population(params, conds, specs int)
}

// Options configures an Engine. Traces, Metrics and Logger may be nil.
type Options struct {
	Traces     *trace.Store
	Metrics    Recorder
	Logger     *reporting.Logger
	QueueDepth int
}

// Engine is the histogramming thread plus its client surface. All
// exported operation methods are safe to call from any goroutine: they
// submit a request and block for the reply.
type Engine struct {
	requests chan request
	done     chan struct{}

	params  *parameters.Dictionary
	conds   *conditions.Dictionary
	storage *spectra.Storage
	traces  *trace.Store
	metrics Recorder
	log     *reporting.Logger
}

// New creates an engine. Call Start to launch its goroutine.
func New(opts Options) *Engine {
	depth := opts.QueueDepth
	if depth <= 0 {
		depth = 128
	}
	logger := opts.Logger
	if logger == nil {
		logger = reporting.Discard()
	}
	return &Engine{
		requests: make(chan request, depth),
		done:     make(chan struct{}),
		params:   parameters.NewDictionary(),
		conds:    conditions.NewDictionary(),
		storage:  spectra.NewStorage(),
		traces:   opts.Traces,
		metrics:  opts.Metrics,
		log:      logger.Component("engine"),
	}
}

// Start launches the engine goroutine.
func (e *Engine) Start() {
	go e.run()
}

func (e *Engine) run() {
	e.log.Info("histogram engine started")
	defer close(e.done)
	for req := range e.requests {
		if _, exit := req.op.(exitOp); exit {
			req.reply <- reply{}
			e.log.Info("histogram engine exiting")
			return
		}
		req.reply <- req.op.execute(e)
	}
	// A closed request channel is a shutdown signal.
	e.log.Info("request channel closed, histogram engine exiting")
}

func (e *Engine) submit(op operation) reply {
	req := request{op: op, reply: make(chan reply, 1)}
	select {
	case e.requests <- req:
	case <-e.done:
		return reply{err: ErrEngineStopped}
	}
	select {
	case r := <-req.reply:
		return r
	case <-e.done:
		return reply{err: ErrEngineStopped}
	}
}

func (e *Engine) trace(ev trace.Event) {
	if e.traces != nil {
		e.traces.AddEvent(ev)
	}
}

func (e *Engine) recordPopulation() {
	if e.metrics != nil {
		e.metrics.Population(e.params.Len(), e.conds.Len(), e.storage.Len())
	}
}

// --- parameter operations ---

func (op createParameterOp) execute(e *Engine) reply {
	p, err := e.params.Add(op.name)
	if err != nil {
		return reply{err: err}
	}
	e.trace(trace.Event{Kind: trace.ParameterCreated, Name: op.name})
	e.recordPopulation()
	return reply{payload: p.ID()}
}

func parameterInfo(p *parameters.Parameter) ParameterInfo {
	info := ParameterInfo{
		Name:        p.Name(),
		ID:          p.ID(),
		Units:       p.Units(),
		Description: p.Description(),
	}
	if low, high, ok := p.Limits(); ok {
		l, h := low, high
		info.Low, info.High = &l, &h
	}
	if bins, ok := p.Bins(); ok {
		b := bins
		info.Bins = &b
	}
	return info
}

func (op listParametersOp) execute(e *Engine) reply {
	ps, err := e.params.List(op.pattern)
	if err != nil {
		return reply{err: err}
	}
	infos := make([]ParameterInfo, len(ps))
	for i, p := range ps {
		infos[i] = parameterInfo(p)
	}
	return reply{payload: infos}
}

func (op setParameterMetadataOp) execute(e *Engine) reply {
	p := e.params.Lookup(op.name)
	if p == nil {
		return reply{err: fmt.Errorf("%w: %s", parameters.ErrNoSuchParameter, op.name)}
	}
	if op.meta.Low != nil || op.meta.High != nil {
		low, high, _ := p.Limits()
		if op.meta.Low != nil {
			low = *op.meta.Low
		}
		if op.meta.High != nil {
			high = *op.meta.High
		}
		p.SetLimits(low, high)
	}
	if op.meta.Bins != nil {
		p.SetBins(*op.meta.Bins)
	}
	if op.meta.Units != nil {
		p.SetUnits(*op.meta.Units)
	}
	if op.meta.Description != nil {
		p.SetDescription(*op.meta.Description)
	}
	e.trace(trace.Event{Kind: trace.ParameterModified, Name: op.name})
	return reply{}
}

// --- condition operations ---

func (op createConditionOp) execute(e *Engine) reply {
	cond, err := op.build(e)
	if err != nil {
		return reply{err: err}
	}
	existed := e.conds.Lookup(op.name) != nil
	if err := e.conds.Add(op.name, cond); err != nil {
		return reply{err: err}
	}
	if existed {
		e.trace(trace.Event{Kind: trace.ConditionModified, Name: op.name})
	} else {
		e.trace(trace.Event{Kind: trace.ConditionCreated, Name: op.name})
	}
	e.recordPopulation()
	return reply{}
}

// requireConditions fails when any named dependency is absent; compound
// creation wants existing children even though evaluation would treat
// missing ones as deleted.
func requireConditions(e *Engine, names []string) error {
	for _, name := range names {
		if e.conds.Lookup(name) == nil {
			return fmt.Errorf("%w: %s", conditions.ErrNoSuchCondition, name)
		}
	}
	return nil
}

func (op listConditionsOp) execute(e *Engine) reply {
	names, err := e.conds.List(op.pattern)
	if err != nil {
		return reply{err: err}
	}
	infos := make([]ConditionInfo, 0, len(names))
	for _, name := range names {
		cond := e.conds.Lookup(name)
		infos = append(infos, ConditionInfo{
			Name:         name,
			Type:         cond.Type(),
			Points:       cond.Points(),
			Dependencies: cond.Dependencies(),
		})
	}
	return reply{payload: infos}
}

func (op deleteConditionOp) execute(e *Engine) reply {
	if err := e.conds.Delete(op.name); err != nil {
		return reply{err: err}
	}
	e.trace(trace.Event{Kind: trace.ConditionDeleted, Name: op.name})
	e.recordPopulation()
	return reply{}
}

// --- spectrum operations ---

func (op createSpectrumOp) execute(e *Engine) reply {
	if e.storage.Exists(op.name) {
		return reply{err: fmt.Errorf("%w: %s", spectra.ErrDuplicateSpectrum, op.name)}
	}
	spec, err := op.build(e)
	if err != nil {
		// No partial state: the spectrum is only registered after the
		// whole build validates.
		return reply{err: err}
	}
	if err := e.storage.Add(spec); err != nil {
		return reply{err: err}
	}
	e.trace(trace.Event{Kind: trace.SpectrumCreated, Name: op.name})
	e.recordPopulation()
	return reply{}
}

func spectrumInfo(s spectra.Spectrum) SpectrumInfo {
	info := SpectrumInfo{
		Name:    s.Name(),
		Type:    s.Type(),
		XParams: s.XParameters(),
		YParams: s.YParameters(),
	}
	if axis, ok := s.XAxis(); ok {
		a := axis
		info.XAxis = &a
	}
	if axis, ok := s.YAxis(); ok {
		a := axis
		info.YAxis = &a
	}
	if gate, ok := s.GateName(); ok {
		info.Gate = gate
	}
	if fold, ok := s.FoldName(); ok {
		info.Fold = fold
	}
	return info
}

func (op listSpectraOp) execute(e *Engine) reply {
	specs, err := e.storage.List(op.pattern)
	if err != nil {
		return reply{err: err}
	}
	infos := make([]SpectrumInfo, len(specs))
	for i, s := range specs {
		infos[i] = spectrumInfo(s)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return reply{payload: infos}
}

func (op deleteSpectrumOp) execute(e *Engine) reply {
	if e.storage.Remove(op.spectrum) == nil {
		return reply{err: fmt.Errorf("%w: %s", spectra.ErrNoSuchSpectrum, op.spectrum)}
	}
	e.trace(trace.Event{Kind: trace.SpectrumDeleted, Name: op.spectrum})
	e.recordPopulation()
	return reply{}
}

func (op clearSpectraOp) execute(e *Engine) reply {
	return reply{err: e.storage.ClearPattern(op.pattern)}
}

func (e *Engine) lookupSpectrum(name string) (spectra.Spectrum, error) {
	s := e.storage.Get(name)
	if s == nil {
		return nil, fmt.Errorf("%w: %s", spectra.ErrNoSuchSpectrum, name)
	}
	return s, nil
}

func (op gateSpectrumOp) execute(e *Engine) reply {
	s, err := e.lookupSpectrum(op.spectrum)
	if err != nil {
		return reply{err: err}
	}
	return reply{err: s.SetGate(op.condition, e.conds)}
}

func (op ungateSpectrumOp) execute(e *Engine) reply {
	s, err := e.lookupSpectrum(op.spectrum)
	if err != nil {
		return reply{err: err}
	}
	s.Ungate()
	return reply{}
}

func (op foldSpectrumOp) execute(e *Engine) reply {
	s, err := e.lookupSpectrum(op.spectrum)
	if err != nil {
		return reply{err: err}
	}
	return reply{err: s.SetFold(op.condition, e.conds)}
}

func (op unfoldSpectrumOp) execute(e *Engine) reply {
	s, err := e.lookupSpectrum(op.spectrum)
	if err != nil {
		return reply{err: err}
	}
	return reply{err: s.Unfold()}
}

func (op fillChannelsOp) execute(e *Engine) reply {
	s, err := e.lookupSpectrum(op.spectrum)
	if err != nil {
		return reply{err: err}
	}
	s.SetContents(op.channels)
	return reply{}
}

func (op getContentsOp) execute(e *Engine) reply {
	s, err := e.lookupSpectrum(op.spectrum)
	if err != nil {
		return reply{err: err}
	}
	return reply{payload: s.Contents(op.window)}
}

func (op getStatsOp) execute(e *Engine) reply {
	s, err := e.lookupSpectrum(op.spectrum)
	if err != nil {
		return reply{err: err}
	}
	return reply{payload: s.OutOfRange()}
}

// --- event processing ---

func (op processEventsOp) execute(e *Engine) reply {
	for _, ev := range op.events {
		e.conds.NextEvent()
		e.storage.ProcessEvent(ev)
	}
	if e.metrics != nil {
		e.metrics.EventsProcessed(len(op.events))
	}
	return reply{}
}

func (exitOp) execute(*Engine) reply { return reply{} }
