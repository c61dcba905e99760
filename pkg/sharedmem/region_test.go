package sharedmem

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindWritesHeader(t *testing.T) {
	r := NewAnonymousRegion(4, 1024)

	slot, offset, err := r.Bind("s2", SlotTwoD,
		AxisSpec{Low: 0, High: 1024, Bins: 16},
		&AxisSpec{Low: 0, High: 1024, Bins: 8})
	require.NoError(t, err)
	assert.Equal(t, 0, slot)
	assert.Equal(t, uint32(0), offset)

	info := r.Slot(0)
	assert.Equal(t, SlotTwoD, info.Type)
	assert.Equal(t, uint32(16), info.XBins)
	assert.Equal(t, uint32(8), info.YBins)
	assert.Equal(t, uint32(0), info.Offset)
	assert.Equal(t, "s2", info.Title)
}

func TestHeaderLayoutIsLittleEndianArrays(t *testing.T) {
	r := NewAnonymousRegion(2, 64)
	_, _, err := r.Bind("a", SlotOneD, AxisSpec{Bins: 10}, nil)
	require.NoError(t, err)
	_, _, err = r.Bind("b", SlotTwoD, AxisSpec{Bins: 4}, &AxisSpec{Bins: 4})
	require.NoError(t, err)

	mem := r.Bytes()
	// Type tags at the head of the header, one u32 per slot.
	assert.Equal(t, SlotOneD, binary.LittleEndian.Uint32(mem[0:4]))
	assert.Equal(t, SlotTwoD, binary.LittleEndian.Uint32(mem[4:8]))
	// X bin counts follow the type array.
	assert.Equal(t, uint32(10), binary.LittleEndian.Uint32(mem[8:12]))
	assert.Equal(t, uint32(4), binary.LittleEndian.Uint32(mem[12:16]))
	// Offsets: slot b allocated right after a's 10 words.
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(mem[24:28]))
	assert.Equal(t, uint32(10), binary.LittleEndian.Uint32(mem[28:32]))
	// Titles are NUL terminated.
	titleBase := 2 * 4 * 4
	assert.Equal(t, byte('a'), mem[titleBase])
	assert.Equal(t, byte(0), mem[titleBase+1])
}

func TestBindExhaustsSlots(t *testing.T) {
	r := NewAnonymousRegion(1, 1024)
	_, _, err := r.Bind("a", SlotOneD, AxisSpec{Bins: 10}, nil)
	require.NoError(t, err)

	_, _, err = r.Bind("b", SlotOneD, AxisSpec{Bins: 10}, nil)
	assert.ErrorIs(t, err, ErrNoFreeSlot)
}

func TestBindExhaustsPool(t *testing.T) {
	r := NewAnonymousRegion(4, 16)
	_, _, err := r.Bind("big", SlotOneD, AxisSpec{Bins: 32}, nil)
	assert.ErrorIs(t, err, ErrPoolExhausted)
}

func TestBindDuplicateName(t *testing.T) {
	r := NewAnonymousRegion(4, 64)
	_, _, err := r.Bind("a", SlotOneD, AxisSpec{Bins: 4}, nil)
	require.NoError(t, err)
	_, _, err = r.Bind("a", SlotOneD, AxisSpec{Bins: 4}, nil)
	assert.ErrorIs(t, err, ErrAlreadyBound)
}

func TestUnbindRoundTrip(t *testing.T) {
	// Binding then unbinding leaves the region in its prior state up to
	// the released storage range.
	r := NewAnonymousRegion(4, 64)
	before := append([]byte(nil), r.Bytes()...)
	usageBefore := r.Usage()

	slot, _, err := r.Bind("a", SlotOneD, AxisSpec{Bins: 8}, nil)
	require.NoError(t, err)
	require.NoError(t, r.SetContents(slot, []ChannelValue{{X: 3, Value: 42}}))
	require.NoError(t, r.Unbind(slot))

	assert.Equal(t, before[:headerSize(4)], r.HeaderBytes())
	assert.Equal(t, usageBefore, r.Usage())
	assert.Empty(t, r.Bindings())
}

func TestUnbindMergesFreeList(t *testing.T) {
	r := NewAnonymousRegion(4, 64)
	s1, _, err := r.Bind("a", SlotOneD, AxisSpec{Bins: 16}, nil)
	require.NoError(t, err)
	s2, _, err := r.Bind("b", SlotOneD, AxisSpec{Bins: 16}, nil)
	require.NoError(t, err)

	require.NoError(t, r.Unbind(s1))
	require.NoError(t, r.Unbind(s2))

	stats := r.Usage()
	assert.Equal(t, 64*4, stats.FreeBytes)
	assert.Equal(t, 64*4, stats.LargestFreeBytes)
}

func TestFirstFitReusesGap(t *testing.T) {
	r := NewAnonymousRegion(4, 40)
	s1, _, err := r.Bind("a", SlotOneD, AxisSpec{Bins: 16}, nil)
	require.NoError(t, err)
	_, _, err = r.Bind("b", SlotOneD, AxisSpec{Bins: 16}, nil)
	require.NoError(t, err)

	require.NoError(t, r.Unbind(s1))
	_, offset, err := r.Bind("c", SlotOneD, AxisSpec{Bins: 8}, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), offset)
}

func TestSetContents2D(t *testing.T) {
	r := NewAnonymousRegion(4, 1024)
	slot, _, err := r.Bind("s", SlotTwoD, AxisSpec{Bins: 8}, &AxisSpec{Bins: 8})
	require.NoError(t, err)

	require.NoError(t, r.SetContents(slot, []ChannelValue{{X: 2, Y: 3, Value: 7}}))

	// Row-major: index = x + y*xbins.
	pool := r.Bytes()[headerSize(4):]
	assert.Equal(t, uint32(7), binary.LittleEndian.Uint32(pool[(2+3*8)*4:]))
}

func TestClearContents(t *testing.T) {
	r := NewAnonymousRegion(4, 64)
	slot, _, err := r.Bind("s", SlotOneD, AxisSpec{Bins: 8}, nil)
	require.NoError(t, err)

	require.NoError(t, r.SetContents(slot, []ChannelValue{{X: 1, Value: 9}}))
	require.NoError(t, r.ClearContents(slot))

	pool := r.Bytes()[headerSize(4):]
	for i := 0; i < 8*4; i++ {
		assert.Zero(t, pool[i])
	}
}

func TestUsedPoolBytes(t *testing.T) {
	r := NewAnonymousRegion(4, 1024)
	assert.Zero(t, r.UsedPoolBytes())

	_, _, err := r.Bind("a", SlotOneD, AxisSpec{Bins: 10}, nil)
	require.NoError(t, err)
	assert.Equal(t, 40, r.UsedPoolBytes())

	_, _, err = r.Bind("b", SlotTwoD, AxisSpec{Bins: 4}, &AxisSpec{Bins: 4})
	require.NoError(t, err)
	assert.Equal(t, (10+16)*4, r.UsedPoolBytes())
}

func TestUsageStatistics(t *testing.T) {
	r := NewAnonymousRegion(4, 100)
	_, _, err := r.Bind("a", SlotOneD, AxisSpec{Bins: 25}, nil)
	require.NoError(t, err)

	stats := r.Usage()
	assert.Equal(t, 400, stats.TotalBytes)
	assert.Equal(t, 100, stats.UsedBytes)
	assert.Equal(t, 300, stats.FreeBytes)
	assert.Equal(t, 300, stats.LargestFreeBytes)
	assert.Equal(t, 1, stats.BoundSlots)
	assert.Equal(t, 4, stats.TotalSlots)
}

func TestFileBackedRegion(t *testing.T) {
	path := t.TempDir() + "/spectra.shm"
	r, err := NewRegion(path, 4, 256)
	require.NoError(t, err)
	defer r.Close()

	slot, _, err := r.Bind("s", SlotOneD, AxisSpec{Bins: 16}, nil)
	require.NoError(t, err)
	require.NoError(t, r.SetContents(slot, []ChannelValue{{X: 0, Value: 1}}))

	assert.Equal(t, headerSize(4)+256*4, len(r.Bytes()))
}
