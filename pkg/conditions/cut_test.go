package conditions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jihwankim/spectrum-utils/pkg/parameters"
)

func flatEvent(pairs ...parameters.EventParameter) *parameters.FlatEvent {
	e := parameters.NewFlatEvent()
	e.Load(parameters.Event(pairs))
	return e
}

func ep(id uint32, value float64) parameters.EventParameter {
	return parameters.EventParameter{ID: id, Value: value}
}

func TestConstants(t *testing.T) {
	d := NewDictionary()
	e := flatEvent()
	assert.True(t, NewTrue().Evaluate(d, e))
	assert.False(t, NewFalse().Evaluate(d, e))
}

func TestCutInside(t *testing.T) {
	c := NewCut(1, 100.0, 200.0)
	d := NewDictionary()

	assert.True(t, c.Evaluate(d, flatEvent(ep(1, 150.0))))
	// The interval is closed on both ends.
	assert.True(t, c.Evaluate(d, flatEvent(ep(1, 100.0))))
	assert.True(t, c.Evaluate(d, flatEvent(ep(1, 200.0))))
}

func TestCutOutside(t *testing.T) {
	c := NewCut(1, 100.0, 200.0)
	d := NewDictionary()

	assert.False(t, c.Evaluate(d, flatEvent(ep(1, 99.9))))
	assert.False(t, c.Evaluate(d, flatEvent(ep(1, 200.1))))
}

func TestCutMissingParameter(t *testing.T) {
	c := NewCut(1, 100.0, 200.0)
	d := NewDictionary()

	assert.False(t, c.Evaluate(d, flatEvent(ep(2, 150.0))))
}

func TestCutReplaceLimits(t *testing.T) {
	c := NewCut(1, 100.0, 200.0)
	d := NewDictionary()
	require.NoError(t, d.Add("c", c))

	e := flatEvent(ep(1, 250.0))
	assert.False(t, d.Check("c", e))

	c.ReplaceLimits(200.0, 300.0)
	d.InvalidateCache()
	assert.True(t, d.Check("c", e))
}

func TestCutPoints(t *testing.T) {
	c := NewCut(1, 100.0, 200.0)
	assert.Equal(t, []Point{{X: 100.0}, {X: 200.0}}, c.Points())
}

func TestMultiCutAny(t *testing.T) {
	m := NewMultiCut([]uint32{1, 2, 3, 4}, 100.0, 200.0)
	d := NewDictionary()

	assert.True(t, m.Evaluate(d, flatEvent(ep(3, 150.0))))
	assert.True(t, m.Evaluate(d, flatEvent(ep(1, 50.0), ep(2, 199.0))))
	assert.False(t, m.Evaluate(d, flatEvent(ep(1, 50.0), ep(2, 250.0))))
	assert.False(t, m.Evaluate(d, flatEvent(ep(5, 150.0))))
}

func TestMultiCutHalfOpen(t *testing.T) {
	m := NewMultiCut([]uint32{1}, 100.0, 200.0)
	d := NewDictionary()

	assert.True(t, m.Evaluate(d, flatEvent(ep(1, 100.0))))
	assert.False(t, m.Evaluate(d, flatEvent(ep(1, 200.0))))
}

func TestMultiCutFold1(t *testing.T) {
	m := NewMultiCut([]uint32{1, 2, 3, 4}, 100.0, 200.0)
	require.True(t, m.IsFold())

	outside := m.Evaluate1(flatEvent(ep(1, 50.0), ep(2, 150.0), ep(3, 202.0)))
	assert.Len(t, outside, 2)
	assert.Contains(t, outside, uint32(1))
	assert.Contains(t, outside, uint32(3))
}

func TestMultiCutFold2(t *testing.T) {
	m := NewMultiCut([]uint32{1, 2, 3, 4}, 100.0, 200.0)

	// 1 and 3 outside, 2 inside, 4 absent: only the (1,3) pair remains.
	outside := m.Evaluate2(flatEvent(ep(1, 50.0), ep(2, 150.0), ep(3, 202.0)))
	assert.Len(t, outside, 1)
	assert.Contains(t, outside, IDPair{First: 1, Second: 3})
}

func TestMultiCutFoldEmpty(t *testing.T) {
	m := NewMultiCut([]uint32{1, 2}, 100.0, 200.0)

	assert.Empty(t, m.Evaluate1(flatEvent(ep(1, 150.0), ep(2, 150.0))))
	assert.Empty(t, m.Evaluate2(flatEvent(ep(1, 150.0), ep(2, 150.0))))
}
