// Package conditions implements the predicate lattice applied to event
// data: primitive cuts and 2-d shapes, compound boolean forms, the named
// dictionary that composes them, and the per-event evaluation cache.
package conditions

import (
	"fmt"
	"path"
	"sort"

	"github.com/jihwankim/spectrum-utils/pkg/parameters"
)

// Point is one vertex of a condition's acceptance region in normalized
// form. One-dimensional cuts expose their limits with Y = 0.
type Point struct {
	X, Y float64
}

// IDSet is a set of parameter ids.
type IDSet map[uint32]struct{}

// IDPair is an unordered parameter-id pair in canonical ascending
// order. Build pairs with NewIDPair so sets from different sources
// intersect correctly.
type IDPair struct {
	First, Second uint32
}

// NewIDPair returns the canonical form of an id pair.
func NewIDPair(a, b uint32) IDPair {
	if b < a {
		a, b = b, a
	}
	return IDPair{First: a, Second: b}
}

// PairSet is a set of parameter-id pairs.
type PairSet map[IDPair]struct{}

// Condition is a boolean predicate over a flat event. Evaluation caching
// and name resolution are handled by the Dictionary; Evaluate computes
// the raw predicate.
type Condition interface {
	// Evaluate computes the predicate, ignoring the cache. Compound
	// conditions resolve their children through d.
	Evaluate(d *Dictionary, e *parameters.FlatEvent) bool

	// Type returns the condition type tag ("Cut", "Contour", "And", ...).
	Type() string

	// Points returns the defining points in normalized form, nil for
	// conditions without geometry.
	Points() []Point

	// Dependencies returns the names of child conditions, nil for
	// primitives.
	Dependencies() []string

	// IsFold reports whether the condition can be applied as a fold.
	IsFold() bool

	// Evaluate1 returns the set of the condition's parameter ids that
	// are present in the event and outside the acceptance region. Only
	// meaningful when IsFold is true.
	Evaluate1(e *parameters.FlatEvent) IDSet

	// Evaluate2 returns the set of id pairs where both members are
	// present and outside the acceptance region. Only meaningful when
	// IsFold is true.
	Evaluate2(e *parameters.FlatEvent) PairSet

	cell() *cacheCell
}

// cacheCell holds one condition's cached evaluation. The epoch stamps
// which event the value belongs to; a stale epoch is an invalid cache.
type cacheCell struct {
	value bool
	epoch uint64
	valid bool
}

func (c *cacheCell) cell() *cacheCell { return c }

func (c *cacheCell) invalidate() { c.valid = false }

// noFold supplies the fold surface for conditions that cannot fold.
type noFold struct{}

func (noFold) IsFold() bool                            { return false }
func (noFold) Evaluate1(*parameters.FlatEvent) IDSet   { return nil }
func (noFold) Evaluate2(*parameters.FlatEvent) PairSet { return nil }

// noDependencies supplies the compound surface for primitives.
type noDependencies struct{}

func (noDependencies) Dependencies() []string { return nil }

// Dictionary is the named store of conditions. Compound conditions refer
// to children by name and re-resolve through the dictionary on every
// evaluation, so deleting a child requires no cascade: the compound
// simply observes the absence. The dictionary also owns the event epoch
// used for cache validity.
type Dictionary struct {
	conditions map[string]Condition
	epoch      uint64
}

// NewDictionary creates an empty condition dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{conditions: make(map[string]Condition), epoch: 1}
}

// NextEvent advances the event epoch, invalidating every cached
// evaluation in O(1).
func (d *Dictionary) NextEvent() { d.epoch++ }

// InvalidateCache drops every cached evaluation. Equivalent to
// NextEvent; kept for structural edits made mid-event by tests.
func (d *Dictionary) InvalidateCache() { d.epoch++ }

// Add registers cond under name, replacing any existing condition of
// that name in place. Dependents referencing the name observe the new
// condition on their next evaluation. Compound conditions whose
// dependency closure would reach back to name are rejected with
// ErrCycle.
func (d *Dictionary) Add(name string, cond Condition) error {
	if d.reaches(cond.Dependencies(), name, make(map[string]bool)) {
		return fmt.Errorf("%w: %s", ErrCycle, name)
	}
	d.conditions[name] = cond
	return nil
}

// reaches reports whether name is reachable from the given dependency
// names through the current dictionary contents.
func (d *Dictionary) reaches(deps []string, name string, seen map[string]bool) bool {
	for _, dep := range deps {
		if dep == name {
			return true
		}
		if seen[dep] {
			continue
		}
		seen[dep] = true
		if child, ok := d.conditions[dep]; ok {
			if d.reaches(child.Dependencies(), name, seen) {
				return true
			}
		}
	}
	return false
}

// Lookup returns the named condition, nil when absent.
func (d *Dictionary) Lookup(name string) Condition { return d.conditions[name] }

// Delete removes the named condition. Dependents treat it as deleted
// from their next evaluation on. Deleting an unknown name fails with
// ErrNoSuchCondition.
func (d *Dictionary) Delete(name string) error {
	if _, ok := d.conditions[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchCondition, name)
	}
	delete(d.conditions, name)
	d.epoch++
	return nil
}

// Check evaluates the named condition against e, using the cached value
// when it is current for this event. An absent name evaluates false.
func (d *Dictionary) Check(name string, e *parameters.FlatEvent) bool {
	cond, ok := d.conditions[name]
	if !ok {
		return false
	}
	return d.check(cond, e)
}

func (d *Dictionary) check(cond Condition, e *parameters.FlatEvent) bool {
	cc := cond.cell()
	if cc.valid && cc.epoch == d.epoch {
		return cc.value
	}
	v := cond.Evaluate(d, e)
	cc.value = v
	cc.epoch = d.epoch
	cc.valid = true
	return v
}

// Cached returns the cached value of the named condition for the
// current event; ok is false when the name is unknown or the cache is
// stale. Used by tests observing short-circuit behavior.
func (d *Dictionary) Cached(name string) (value, ok bool) {
	cond, found := d.conditions[name]
	if !found {
		return false, false
	}
	cc := cond.cell()
	if !cc.valid || cc.epoch != d.epoch {
		return false, false
	}
	return cc.value, true
}

// Len returns the number of conditions.
func (d *Dictionary) Len() int { return len(d.conditions) }

// List returns the names matching the glob pattern, sorted.
func (d *Dictionary) List(pattern string) ([]string, error) {
	var names []string
	for name := range d.conditions {
		ok, err := path.Match(pattern, name)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrBadPattern, pattern)
		}
		if ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Iterate calls fn for every (name, condition) pair in unspecified
// order.
func (d *Dictionary) Iterate(fn func(name string, cond Condition)) {
	for name, cond := range d.conditions {
		fn(name, cond)
	}
}
