// Package processor runs the data-processing thread: it pulls decoded
// events from a source, batches them, and forwards the batches to the
// histogram engine. The decoder itself lives outside this module; any
// event producer satisfying EventSource plugs in.
package processor

import (
	"errors"
	"io"
	"sync"

	"github.com/jihwankim/spectrum-utils/pkg/parameters"
	"github.com/jihwankim/spectrum-utils/pkg/reporting"
)

// EventSource produces decoded events. Next returns io.EOF when the
// stream ends; any other error aborts processing.
type EventSource interface {
	Next() (parameters.Event, error)
}

// EventSink consumes event batches; the histogram engine implements it.
type EventSink interface {
	ProcessEvents(events []parameters.Event) error
}

// ChannelSource adapts a channel of events to an EventSource. A closed
// channel ends the stream.
type ChannelSource struct {
	C chan parameters.Event
}

// NewChannelSource creates a channel-backed source with the given
// buffer depth.
func NewChannelSource(depth int) *ChannelSource {
	return &ChannelSource{C: make(chan parameters.Event, depth)}
}

// Next implements EventSource.
func (s *ChannelSource) Next() (parameters.Event, error) {
	e, ok := <-s.C
	if !ok {
		return nil, io.EOF
	}
	return e, nil
}

// Submit queues one event for processing.
func (s *ChannelSource) Submit(e parameters.Event) { s.C <- e }

// Close ends the stream after the queued events drain.
func (s *ChannelSource) Close() { close(s.C) }

// Processor is the data-processing thread. It accumulates events into
// batches of the configured size and forwards each batch to the sink;
// a short final batch flushes on end of stream.
type Processor struct {
	source    EventSource
	sink      EventSink
	batchSize int
	log       *reporting.Logger

	mu        sync.Mutex
	processed uint64

	done chan struct{}
	err  error
}

// New creates a processor. batchSize below 1 is treated as 1.
func New(source EventSource, sink EventSink, batchSize int, logger *reporting.Logger) *Processor {
	if batchSize < 1 {
		batchSize = 1
	}
	if logger == nil {
		logger = reporting.Discard()
	}
	return &Processor{
		source:    source,
		sink:      sink,
		batchSize: batchSize,
		log:       logger.Component("processor"),
		done:      make(chan struct{}),
	}
}

// Start launches the processing goroutine.
func (p *Processor) Start() {
	go p.run()
}

// Wait blocks until the stream ends and returns the terminal error, if
// any. io.EOF is a normal end and reported as nil.
func (p *Processor) Wait() error {
	<-p.done
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Processed returns the number of events forwarded so far.
func (p *Processor) Processed() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.processed
}

func (p *Processor) fail(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

func (p *Processor) run() {
	defer close(p.done)
	p.log.Info("data processor started", "batch_size", p.batchSize)

	batch := make([]parameters.Event, 0, p.batchSize)
	flush := func() bool {
		if len(batch) == 0 {
			return true
		}
		if err := p.sink.ProcessEvents(batch); err != nil {
			p.log.Error("event batch rejected", "error", err.Error())
			p.fail(err)
			return false
		}
		p.mu.Lock()
		p.processed += uint64(len(batch))
		p.mu.Unlock()
		batch = batch[:0]
		return true
	}

	for {
		event, err := p.source.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				p.log.Error("event source failed", "error", err.Error())
				p.fail(err)
			}
			flush()
			p.log.Info("data processor finished", "events", p.Processed())
			return
		}
		batch = append(batch, event)
		if len(batch) >= p.batchSize {
			if !flush() {
				return
			}
		}
	}
}
