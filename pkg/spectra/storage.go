package spectra

import (
	"fmt"
	"path"
	"sort"

	"github.com/jihwankim/spectrum-utils/pkg/parameters"
)

// handle is a weak reference into the storage: the named entry must
// still carry the same generation for the handle to be live. Deleting
// and recreating a spectrum under the same name bumps the generation,
// so stale handles are detected without reference counting.
type handle struct {
	name string
	gen  uint64
}

type entry struct {
	spectrum Spectrum
	gen      uint64
}

// Storage owns the spectra by name and routes events to them. Dispatch
// lists are per-required-parameter buckets of handles plus a residual
// bucket for spectra with no required parameter; dead handles are
// pruned lazily after each walk.
type Storage struct {
	dict        map[string]*entry
	byParameter [][]handle
	others      []handle
	nextGen     uint64
	flat        *parameters.FlatEvent
}

// NewStorage creates an empty spectrum store.
func NewStorage() *Storage {
	return &Storage{
		dict: make(map[string]*entry),
		flat: parameters.NewFlatEvent(),
	}
}

// Add inserts a spectrum by name and registers it for dispatch. A
// duplicate name fails with ErrDuplicateSpectrum and leaves the store
// unchanged.
func (s *Storage) Add(spec Spectrum) error {
	name := spec.Name()
	if _, ok := s.dict[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateSpectrum, name)
	}
	s.nextGen++
	s.dict[name] = &entry{spectrum: spec, gen: s.nextGen}

	h := handle{name: name, gen: s.nextGen}
	if id, ok := spec.RequiredParameter(); ok {
		idx := int(id)
		if idx >= len(s.byParameter) {
			grown := make([][]handle, idx+1)
			copy(grown, s.byParameter)
			s.byParameter = grown
		}
		s.byParameter[idx] = append(s.byParameter[idx], h)
	} else {
		s.others = append(s.others, h)
	}
	return nil
}

// Get returns the named spectrum, nil when absent.
func (s *Storage) Get(name string) Spectrum {
	if e, ok := s.dict[name]; ok {
		return e.spectrum
	}
	return nil
}

// Exists reports whether the named spectrum is stored.
func (s *Storage) Exists(name string) bool {
	_, ok := s.dict[name]
	return ok
}

// Len returns the number of stored spectra.
func (s *Storage) Len() int { return len(s.dict) }

// Remove drops the strong reference and returns the spectrum, nil when
// absent. Dispatch handles are pruned lazily at the next walk.
func (s *Storage) Remove(name string) Spectrum {
	e, ok := s.dict[name]
	if !ok {
		return nil
	}
	delete(s.dict, name)
	return e.spectrum
}

// List returns the spectra whose names match the glob pattern, in name
// order.
func (s *Storage) List(pattern string) ([]Spectrum, error) {
	var result []Spectrum
	for name, e := range s.dict {
		ok, err := path.Match(pattern, name)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrBadPattern, pattern)
		}
		if ok {
			result = append(result, e.spectrum)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result, nil
}

// ClearPattern zeroes the counters of every spectrum matching the glob
// pattern.
func (s *Storage) ClearPattern(pattern string) error {
	matched, err := s.List(pattern)
	if err != nil {
		return err
	}
	for _, spec := range matched {
		spec.Clear()
	}
	return nil
}

// ClearAll zeroes every spectrum.
func (s *Storage) ClearAll() {
	for _, e := range s.dict {
		e.spectrum.Clear()
	}
}

// Iterate calls fn for every spectrum in unspecified order.
func (s *Storage) Iterate(fn func(Spectrum)) {
	for _, e := range s.dict {
		fn(e.spectrum)
	}
}

// walk dispatches e to every live handle in the bucket, in insertion
// order, and returns the indexes of dead handles.
func (s *Storage) walk(bucket []handle, e *parameters.FlatEvent) []int {
	var dead []int
	for i, h := range bucket {
		ent, ok := s.dict[h.name]
		if !ok || ent.gen != h.gen {
			dead = append(dead, i)
			continue
		}
		HandleEvent(ent.spectrum, e)
	}
	return dead
}

// prune removes the listed indexes from the bucket in reverse order.
func prune(bucket []handle, dead []int) []handle {
	for i := len(dead) - 1; i >= 0; i-- {
		idx := dead[i]
		bucket = append(bucket[:idx], bucket[idx+1:]...)
	}
	return bucket
}

// ProcessEvent flattens the raw event once and dispatches it: first the
// bucket of each parameter the event carries, then the residual bucket.
// Spectra must not rely on dispatch order across buckets.
func (s *Storage) ProcessEvent(e parameters.Event) {
	s.flat.Load(e)

	for _, p := range e {
		idx := int(p.ID)
		if idx >= len(s.byParameter) || len(s.byParameter[idx]) == 0 {
			continue
		}
		dead := s.walk(s.byParameter[idx], s.flat)
		if dead != nil {
			s.byParameter[idx] = prune(s.byParameter[idx], dead)
		}
	}

	dead := s.walk(s.others, s.flat)
	if dead != nil {
		s.others = prune(s.others, dead)
	}
}
