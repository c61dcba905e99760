package spectra

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jihwankim/spectrum-utils/pkg/parameters"
)

func storageFixture(t *testing.T) (*Storage, *parameters.Dictionary) {
	t.Helper()
	return NewStorage(), testParams(t, 4)
}

func TestStorageAddDuplicate(t *testing.T) {
	st, pd := storageFixture(t)
	s, err := NewOneD("s1", "p.1", pd, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, st.Add(s))

	dup, err := NewOneD("s1", "p.2", pd, nil, nil, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, st.Add(dup), ErrDuplicateSpectrum)

	// The original survives.
	assert.Same(t, Spectrum(s), st.Get("s1"))
}

func TestStorageDispatchByParameter(t *testing.T) {
	st, pd := storageFixture(t)
	s1, err := NewOneD("s1", "p.1", pd, nil, nil, nil)
	require.NoError(t, err)
	s2, err := NewOneD("s2", "p.2", pd, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, st.Add(s1))
	require.NoError(t, st.Add(s2))

	st.ProcessEvent(event(ep(1, 100.0)))

	assert.Equal(t, 1.0, s1.BinValue(1+100))
	assert.Empty(t, s2.Contents(nil))
}

func TestStorageDispatchResidualBucket(t *testing.T) {
	st, pd := storageFixture(t)
	m, err := NewMulti1D("m", []string{"p.1", "p.2"}, pd, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, st.Add(m))

	// Multi spectra have no required parameter; they see every event.
	st.ProcessEvent(event(ep(3, 100.0)))
	assert.Empty(t, m.Contents(nil))

	st.ProcessEvent(event(ep(1, 100.0)))
	assert.Equal(t, 1.0, m.BinValue(1+100))
}

func TestStorageRemovePrunesLazily(t *testing.T) {
	st, pd := storageFixture(t)
	s1, err := NewOneD("s1", "p.1", pd, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, st.Add(s1))

	removed := st.Remove("s1")
	assert.Same(t, Spectrum(s1), removed)
	assert.False(t, st.Exists("s1"))

	// The dead handle is skipped and pruned on the next walk; the
	// removed spectrum stays untouched.
	st.ProcessEvent(event(ep(1, 100.0)))
	assert.Empty(t, s1.Contents(nil))
}

func TestStorageGenerationDetectsRecreation(t *testing.T) {
	st, pd := storageFixture(t)
	s1, err := NewOneD("s1", "p.1", pd, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, st.Add(s1))
	st.Remove("s1")

	// Recreate under the same name: the stale handle must not deliver
	// events on behalf of the old registration, but the new one gets
	// its own handle.
	s1b, err := NewOneD("s1", "p.1", pd, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, st.Add(s1b))

	st.ProcessEvent(event(ep(1, 100.0)))
	assert.Empty(t, s1.Contents(nil))
	assert.Equal(t, 1.0, s1b.BinValue(1+100))
}

func TestStorageUnrelatedParameterDoesNotChangeBins(t *testing.T) {
	st, pd := storageFixture(t)
	s1, err := NewOneD("s1", "p.1", pd, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, st.Add(s1))

	st.ProcessEvent(event(ep(1, 100.0), ep(2, 7.0)))
	st.ProcessEvent(event(ep(1, 100.0)))

	// Removing the unrelated parameter leaves the incremented bin the
	// same per event.
	assert.Equal(t, 2.0, s1.BinValue(1+100))
}

func TestStorageListAndClear(t *testing.T) {
	st, pd := storageFixture(t)
	for _, name := range []string{"raw.1", "raw.2", "cal.1"} {
		s, err := NewOneD(name, "p.1", pd, nil, nil, nil)
		require.NoError(t, err)
		require.NoError(t, st.Add(s))
	}

	matched, err := st.List("raw.*")
	require.NoError(t, err)
	require.Len(t, matched, 2)
	assert.Equal(t, "raw.1", matched[0].Name())
	assert.Equal(t, "raw.2", matched[1].Name())

	st.ProcessEvent(event(ep(1, 10.0)))
	require.NoError(t, st.ClearPattern("raw.*"))

	assert.Empty(t, st.Get("raw.1").Contents(nil))
	assert.Len(t, st.Get("cal.1").Contents(nil), 1)

	_, err = st.List("[")
	assert.ErrorIs(t, err, ErrBadPattern)
}
