package sharedmem

import (
	"encoding/binary"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource is an in-memory SpectrumSource.
type fakeSource struct {
	mu       sync.Mutex
	spectra  map[string]SpectrumInfo
	contents map[string][]ChannelValue
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		spectra:  make(map[string]SpectrumInfo),
		contents: make(map[string][]ChannelValue),
	}
}

func (f *fakeSource) add(info SpectrumInfo, values []ChannelValue) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spectra[info.Name] = info
	f.contents[info.Name] = values
}

func (f *fakeSource) remove(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.spectra, name)
	delete(f.contents, name)
}

func (f *fakeSource) SpectrumInfo(name string) (SpectrumInfo, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.spectra[name]
	return info, ok
}

func (f *fakeSource) SpectrumContents(name string) ([]ChannelValue, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, ok := f.contents[name]
	return values, ok
}

func oneDInfo(name string, bins uint32) SpectrumInfo {
	return SpectrumInfo{Name: name, Kind: SlotOneD, XAxis: AxisSpec{Low: 0, High: float64(bins), Bins: bins}}
}

func startBinder(t *testing.T, region *Region, source SpectrumSource) *Binder {
	t.Helper()
	b := NewBinder(region, source, nil, nil)
	b.Start()
	t.Cleanup(func() { _ = b.Exit() })
	return b
}

func TestBinderBindFillsSlot(t *testing.T) {
	region := NewAnonymousRegion(4, 256)
	source := newFakeSource()
	source.add(oneDInfo("s1", 16), []ChannelValue{{X: 5, Value: 3}})
	b := startBinder(t, region, source)

	require.NoError(t, b.Bind("s1"))

	bindings, err := b.List("*")
	require.NoError(t, err)
	require.Len(t, bindings, 1)
	assert.Equal(t, "s1", bindings[0].Name)

	pool := region.Bytes()[headerSize(4):]
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(pool[5*4:]))
}

func TestBinderBindUnknownSpectrum(t *testing.T) {
	region := NewAnonymousRegion(4, 256)
	b := startBinder(t, region, newFakeSource())

	assert.Error(t, b.Bind("ghost"))
}

func TestBinderDoubleBind(t *testing.T) {
	region := NewAnonymousRegion(4, 256)
	source := newFakeSource()
	source.add(oneDInfo("s1", 16), nil)
	b := startBinder(t, region, source)

	require.NoError(t, b.Bind("s1"))
	assert.ErrorIs(t, b.Bind("s1"), ErrAlreadyBound)
}

func TestBinderUnbind(t *testing.T) {
	region := NewAnonymousRegion(4, 256)
	source := newFakeSource()
	source.add(oneDInfo("s1", 16), nil)
	b := startBinder(t, region, source)

	require.NoError(t, b.Bind("s1"))
	require.NoError(t, b.Unbind("s1"))

	bindings, err := b.List("*")
	require.NoError(t, err)
	assert.Empty(t, bindings)

	assert.ErrorIs(t, b.Unbind("s1"), ErrNoSuchBinding)
}

func TestBinderUnbindAll(t *testing.T) {
	region := NewAnonymousRegion(4, 256)
	source := newFakeSource()
	source.add(oneDInfo("a", 8), nil)
	source.add(oneDInfo("b", 8), nil)
	b := startBinder(t, region, source)

	require.NoError(t, b.Bind("a"))
	require.NoError(t, b.Bind("b"))
	require.NoError(t, b.UnbindAll())

	bindings, err := b.List("*")
	require.NoError(t, err)
	assert.Empty(t, bindings)
}

func TestBinderListGlob(t *testing.T) {
	region := NewAnonymousRegion(4, 256)
	source := newFakeSource()
	source.add(oneDInfo("raw.1", 8), nil)
	source.add(oneDInfo("cal.1", 8), nil)
	b := startBinder(t, region, source)

	require.NoError(t, b.Bind("raw.1"))
	require.NoError(t, b.Bind("cal.1"))

	bindings, err := b.List("raw.*")
	require.NoError(t, err)
	require.Len(t, bindings, 1)
	assert.Equal(t, "raw.1", bindings[0].Name)

	_, err = b.List("[")
	assert.ErrorIs(t, err, ErrBadPattern)
}

func TestBinderClear(t *testing.T) {
	region := NewAnonymousRegion(4, 256)
	source := newFakeSource()
	source.add(oneDInfo("s1", 16), []ChannelValue{{X: 2, Value: 9}})
	b := startBinder(t, region, source)

	require.NoError(t, b.Bind("s1"))
	require.NoError(t, b.Clear("*"))

	pool := region.Bytes()[headerSize(4):]
	assert.Zero(t, binary.LittleEndian.Uint32(pool[2*4:]))
}

func TestBinderStatistics(t *testing.T) {
	region := NewAnonymousRegion(4, 256)
	source := newFakeSource()
	source.add(oneDInfo("s1", 16), nil)
	b := startBinder(t, region, source)

	require.NoError(t, b.Bind("s1"))
	stats, err := b.Statistics()
	require.NoError(t, err)
	assert.Equal(t, 64, stats.UsedBytes)
	assert.Equal(t, 1, stats.BoundSlots)
}

func TestBinderRefreshReleasesVanishedSpectrum(t *testing.T) {
	region := NewAnonymousRegion(4, 256)
	source := newFakeSource()
	source.add(oneDInfo("s1", 16), nil)
	b := startBinder(t, region, source)
	require.NoError(t, b.SetUpdatePeriod(10*time.Millisecond))

	require.NoError(t, b.Bind("s1"))
	source.remove("s1")

	require.Eventually(t, func() bool {
		bindings, err := b.List("*")
		return err == nil && len(bindings) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestBinderRefreshCopiesCounts(t *testing.T) {
	region := NewAnonymousRegion(4, 256)
	source := newFakeSource()
	source.add(oneDInfo("s1", 16), nil)
	b := startBinder(t, region, source)
	require.NoError(t, b.SetUpdatePeriod(10*time.Millisecond))

	require.NoError(t, b.Bind("s1"))
	source.add(oneDInfo("s1", 16), []ChannelValue{{X: 7, Value: 11}})

	pool := region.Bytes()[headerSize(4):]
	require.Eventually(t, func() bool {
		return binary.LittleEndian.Uint32(pool[7*4:]) == 11
	}, time.Second, 10*time.Millisecond)
}
