package processor

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jihwankim/spectrum-utils/pkg/parameters"
)

type recordingSink struct {
	mu      sync.Mutex
	batches [][]parameters.Event
	fail    error
}

func (s *recordingSink) ProcessEvents(events []parameters.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	batch := make([]parameters.Event, len(events))
	copy(batch, events)
	s.batches = append(s.batches, batch)
	return nil
}

func (s *recordingSink) batchSizes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	sizes := make([]int, len(s.batches))
	for i, b := range s.batches {
		sizes[i] = len(b)
	}
	return sizes
}

func ev(id uint32, v float64) parameters.Event {
	return parameters.Event{{ID: id, Value: v}}
}

func TestBatchesBySize(t *testing.T) {
	source := NewChannelSource(16)
	sink := &recordingSink{}
	p := New(source, sink, 2, nil)
	p.Start()

	for i := 0; i < 5; i++ {
		source.Submit(ev(1, float64(i)))
	}
	source.Close()

	require.NoError(t, p.Wait())
	// Two full batches plus the short flush at end of stream.
	assert.Equal(t, []int{2, 2, 1}, sink.batchSizes())
	assert.Equal(t, uint64(5), p.Processed())
}

func TestEmptyStream(t *testing.T) {
	source := NewChannelSource(1)
	sink := &recordingSink{}
	p := New(source, sink, 4, nil)
	p.Start()
	source.Close()

	require.NoError(t, p.Wait())
	assert.Empty(t, sink.batchSizes())
}

func TestSinkFailureStopsProcessing(t *testing.T) {
	source := NewChannelSource(16)
	boom := errors.New("engine gone")
	sink := &recordingSink{fail: boom}
	p := New(source, sink, 1, nil)
	p.Start()

	source.Submit(ev(1, 1.0))
	source.Close()

	assert.ErrorIs(t, p.Wait(), boom)
	assert.Zero(t, p.Processed())
}

func TestSourceFailurePropagates(t *testing.T) {
	boom := errors.New("decode error")
	p := New(failingSource{err: boom}, &recordingSink{}, 4, nil)
	p.Start()
	assert.ErrorIs(t, p.Wait(), boom)
}

type failingSource struct{ err error }

func (f failingSource) Next() (parameters.Event, error) { return nil, f.err }
