package sharedmem

import (
	"fmt"
	"path"
	"time"

	"github.com/jihwankim/spectrum-utils/pkg/reporting"
	"github.com/jihwankim/spectrum-utils/pkg/trace"
)

// SpectrumInfo is what the binder needs to know about a spectrum to
// size its slot.
type SpectrumInfo struct {
	Name  string
	Kind  uint32 // slot type tag (SlotOneD, SlotTwoD, SlotSummary)
	XAxis AxisSpec
	YAxis *AxisSpec
}

// SpectrumSource is the binder's view of the histogram engine. The
// binder owns the shared region exclusively and pulls spectrum data
// through this interface; the engine serializes the underlying reads.
type SpectrumSource interface {
	// SpectrumInfo describes a spectrum; ok is false when it does not
	// exist.
	SpectrumInfo(name string) (SpectrumInfo, bool)

	// SpectrumContents returns the non-zero real-bin counters of a
	// spectrum in zero-based bin coordinates; ok is false when the
	// spectrum has vanished.
	SpectrumContents(name string) ([]ChannelValue, bool)
}

// defaultRefresh is the request-channel dwell before a refresh pass.
const defaultRefresh = 2 * time.Second

type binderOp int

const (
	opBind binderOp = iota
	opUnbind
	opUnbindAll
	opList
	opClear
	opSetUpdate
	opStatistics
	opExit
)

type binderRequest struct {
	op      binderOp
	name    string
	pattern string
	period  time.Duration
	reply   chan binderReply
}

type binderReply struct {
	err      error
	bindings []Binding
	stats    Statistics
}

// Binder is the thread that owns the shared-memory region. Requests
// arrive on a channel; when the channel is idle for the update period,
// the binder runs a refresh pass copying every bound spectrum's counts
// into its slot. Slots whose spectra have vanished are released.
type Binder struct {
	requests chan binderRequest
	region   *Region
	source   SpectrumSource
	traces   *trace.Store
	log      *reporting.Logger
	refresh  time.Duration
}

// NewBinder creates a binder over the region. traces may be nil.
func NewBinder(region *Region, source SpectrumSource, traces *trace.Store, logger *reporting.Logger) *Binder {
	if logger == nil {
		logger = reporting.Discard()
	}
	return &Binder{
		requests: make(chan binderRequest, 16),
		region:   region,
		source:   source,
		traces:   traces,
		log:      logger.Component("binder"),
		refresh:  defaultRefresh,
	}
}

// Start launches the binding thread.
func (b *Binder) Start() {
	go b.run()
}

func (b *Binder) run() {
	b.log.Info("binding thread started", "refresh", b.refresh.String())
	timer := time.NewTimer(b.refresh)
	defer timer.Stop()
	for {
		select {
		case req, ok := <-b.requests:
			if !ok {
				b.log.Info("request channel closed, binding thread exiting")
				return
			}
			if req.op == opExit {
				req.reply <- binderReply{}
				b.log.Info("binding thread exiting")
				return
			}
			req.reply <- b.process(req)
		case <-timer.C:
			b.refreshPass()
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(b.refresh)
	}
}

func (b *Binder) process(req binderRequest) binderReply {
	switch req.op {
	case opBind:
		return binderReply{err: b.bind(req.name)}
	case opUnbind:
		return binderReply{err: b.unbindName(req.name)}
	case opUnbindAll:
		for _, binding := range b.region.Bindings() {
			if err := b.unbindSlot(binding); err != nil {
				return binderReply{err: err}
			}
		}
		return binderReply{}
	case opList:
		bindings, err := b.matchBindings(req.pattern)
		return binderReply{err: err, bindings: bindings}
	case opClear:
		bindings, err := b.matchBindings(req.pattern)
		if err != nil {
			return binderReply{err: err}
		}
		for _, binding := range bindings {
			if err := b.region.ClearContents(binding.Slot); err != nil {
				return binderReply{err: err}
			}
		}
		return binderReply{}
	case opSetUpdate:
		b.refresh = req.period
		b.log.Info("refresh period changed", "refresh", req.period.String())
		return binderReply{}
	case opStatistics:
		return binderReply{stats: b.region.Usage()}
	default:
		return binderReply{err: fmt.Errorf("unknown binder request %d", req.op)}
	}
}

func (b *Binder) bind(name string) error {
	if _, bound := b.region.FindBinding(name); bound {
		return fmt.Errorf("%w: %s", ErrAlreadyBound, name)
	}
	info, ok := b.source.SpectrumInfo(name)
	if !ok {
		return fmt.Errorf("no such spectrum: %s", name)
	}
	slot, _, err := b.region.Bind(name, info.Kind, info.XAxis, info.YAxis)
	if err != nil {
		return err
	}
	// Initial bind clears the slot, then fills it; refresh passes only
	// write non-zero channels incrementally.
	if err := b.region.ClearContents(slot); err != nil {
		return err
	}
	b.updateSlot(Binding{Slot: slot, Name: name})
	if b.traces != nil {
		b.traces.AddEvent(trace.Event{Kind: trace.SpectrumBound, Name: name, BindingID: slot})
	}
	b.log.Debug("spectrum bound", "spectrum", name, "slot", slot)
	return nil
}

func (b *Binder) unbindName(name string) error {
	slot, ok := b.region.FindBinding(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchBinding, name)
	}
	return b.unbindSlot(Binding{Slot: slot, Name: name})
}

func (b *Binder) unbindSlot(binding Binding) error {
	if err := b.region.Unbind(binding.Slot); err != nil {
		return err
	}
	if b.traces != nil {
		b.traces.AddEvent(trace.Event{Kind: trace.SpectrumUnbound, Name: binding.Name, BindingID: binding.Slot})
	}
	b.log.Debug("spectrum unbound", "spectrum", binding.Name, "slot", binding.Slot)
	return nil
}

func (b *Binder) matchBindings(pattern string) ([]Binding, error) {
	var result []Binding
	for _, binding := range b.region.Bindings() {
		ok, err := path.Match(pattern, binding.Name)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrBadPattern, pattern)
		}
		if ok {
			result = append(result, binding)
		}
	}
	return result, nil
}

// updateSlot copies a bound spectrum's counts into its slot; a vanished
// spectrum releases the slot.
func (b *Binder) updateSlot(binding Binding) {
	values, ok := b.source.SpectrumContents(binding.Name)
	if !ok {
		b.log.Warn("bound spectrum vanished, releasing slot",
			"spectrum", binding.Name, "slot", binding.Slot)
		_ = b.unbindSlot(binding)
		return
	}
	_ = b.region.SetContents(binding.Slot, values)
}

func (b *Binder) refreshPass() {
	for _, binding := range b.region.Bindings() {
		b.updateSlot(binding)
	}
}

func (b *Binder) submit(req binderRequest) binderReply {
	req.reply = make(chan binderReply, 1)
	b.requests <- req
	return <-req.reply
}

// Bind binds the named spectrum into shared memory.
func (b *Binder) Bind(name string) error {
	return b.submit(binderRequest{op: opBind, name: name}).err
}

// Unbind releases the named spectrum's slot.
func (b *Binder) Unbind(name string) error {
	return b.submit(binderRequest{op: opUnbind, name: name}).err
}

// UnbindAll releases every slot.
func (b *Binder) UnbindAll() error {
	return b.submit(binderRequest{op: opUnbindAll}).err
}

// List enumerates the bindings whose spectrum names match the glob
// pattern.
func (b *Binder) List(pattern string) ([]Binding, error) {
	r := b.submit(binderRequest{op: opList, pattern: pattern})
	return r.bindings, r.err
}

// Clear zeroes the shared-memory contents of the matching bindings.
func (b *Binder) Clear(pattern string) error {
	return b.submit(binderRequest{op: opClear, pattern: pattern}).err
}

// SetUpdatePeriod changes the refresh dwell.
func (b *Binder) SetUpdatePeriod(d time.Duration) error {
	return b.submit(binderRequest{op: opSetUpdate, period: d}).err
}

// Statistics reports pool usage.
func (b *Binder) Statistics() (Statistics, error) {
	r := b.submit(binderRequest{op: opStatistics})
	return r.stats, r.err
}

// Exit stops the binding thread after replying.
func (b *Binder) Exit() error {
	return b.submit(binderRequest{op: opExit}).err
}
