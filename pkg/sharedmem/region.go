// Package sharedmem maintains the display shared-memory region: the
// slot directory and channel pool external viewers map, the binding
// thread that refreshes bound spectra into it, and the mirror server
// that ships it to remote clients.
package sharedmem

import (
	"encoding/binary"
	"fmt"
	"os"
	"sort"

	"golang.org/x/sys/unix"
)

// TitleLength is the fixed size of a slot title, NUL terminator
// included.
const TitleLength = 80

// Slot type tags in the shared header.
const (
	SlotUnused  uint32 = 0
	SlotOneD    uint32 = 1
	SlotTwoD    uint32 = 2
	SlotSummary uint32 = 3
)

// AxisSpec is the axis triplet a binding carries into the header.
type AxisSpec struct {
	Low, High float64
	Bins      uint32
}

// ChannelValue is one counter in zero-based bin coordinates, sentinels
// excluded; the shared region never represents under/overflow.
type ChannelValue struct {
	X, Y  int
	Value uint32
}

// Binding pairs an occupied slot with its spectrum name.
type Binding struct {
	Slot int
	Name string
}

// SlotInfo is the decoded header entry of one slot.
type SlotInfo struct {
	Type   uint32
	XBins  uint32
	YBins  uint32
	Offset uint32 // in 4-byte units from the pool start
	Title  string
}

// Statistics summarizes channel-pool usage.
type Statistics struct {
	TotalBytes       int
	UsedBytes        int
	FreeBytes        int
	LargestFreeBytes int
	BoundSlots       int
	TotalSlots       int
}

// extent is a free range of the channel pool, in 4-byte units.
type extent struct {
	offset, words int
}

// Region is the slot directory plus channel pool. The layout is
// little-endian with per-slot arrays: N type tags, N x-bin counts, N
// y-bin counts, N storage offsets (4-byte units), N 80-byte
// NUL-terminated titles, then the u32 channel pool in row-major order
// (index = xbin + ybin*xbins).
//
// A Region is owned by the binding thread; mirror workers read the raw
// bytes concurrently and may observe in-progress updates, which is
// acceptable because every counter is a single aligned 32-bit word.
type Region struct {
	mem       []byte
	slots     int
	poolWords int
	bindings  map[int]string
	free      []extent
	file      *os.File
	mapped    bool
}

func headerSize(slots int) int {
	return slots * (4*4 + TitleLength)
}

// NewRegion creates (or overwrites) a file-backed region and maps it
// shared, so external viewers can map the same file.
func NewRegion(path string, slots, poolWords int) (*Region, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating shared memory file: %w", err)
	}
	size := headerSize(slots) + poolWords*4
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		return nil, fmt.Errorf("sizing shared memory file: %w", err)
	}
	mem, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mapping shared memory file: %w", err)
	}
	r := newRegion(mem, slots, poolWords)
	r.file = f
	r.mapped = true
	return r, nil
}

// NewAnonymousRegion creates a process-private region. Used by tests
// and by deployments that only serve mirrors.
func NewAnonymousRegion(slots, poolWords int) *Region {
	return newRegion(make([]byte, headerSize(slots)+poolWords*4), slots, poolWords)
}

func newRegion(mem []byte, slots, poolWords int) *Region {
	return &Region{
		mem:       mem,
		slots:     slots,
		poolWords: poolWords,
		bindings:  make(map[int]string),
		free:      []extent{{offset: 0, words: poolWords}},
	}
}

// Close unmaps and closes the backing file, if any.
func (r *Region) Close() error {
	if r.mapped {
		if err := unix.Munmap(r.mem); err != nil {
			return err
		}
		r.mapped = false
	}
	if r.file != nil {
		err := r.file.Close()
		r.file = nil
		return err
	}
	return nil
}

// Bytes exposes the raw region for mirror transfers. The caller must
// treat it as read-only.
func (r *Region) Bytes() []byte { return r.mem }

// HeaderBytes exposes the slot directory portion of the region.
func (r *Region) HeaderBytes() []byte { return r.mem[:headerSize(r.slots)] }

// Slots returns the slot capacity.
func (r *Region) Slots() int { return r.slots }

// PoolWords returns the channel-pool capacity in 4-byte units.
func (r *Region) PoolWords() int { return r.poolWords }

// Per-slot field offsets within the header arrays.
func (r *Region) typeOffset(slot int) int   { return slot * 4 }
func (r *Region) xbinsOffset(slot int) int  { return (r.slots + slot) * 4 }
func (r *Region) ybinsOffset(slot int) int  { return (2*r.slots + slot) * 4 }
func (r *Region) offsetOffset(slot int) int { return (3*r.slots + slot) * 4 }
func (r *Region) titleOffset(slot int) int  { return 4*r.slots*4 + slot*TitleLength }

func (r *Region) putU32(off int, v uint32) {
	binary.LittleEndian.PutUint32(r.mem[off:off+4], v)
}

func (r *Region) getU32(off int) uint32 {
	return binary.LittleEndian.Uint32(r.mem[off : off+4])
}

// Slot decodes the header entry for a slot.
func (r *Region) Slot(slot int) SlotInfo {
	info := SlotInfo{
		Type:   r.getU32(r.typeOffset(slot)),
		XBins:  r.getU32(r.xbinsOffset(slot)),
		YBins:  r.getU32(r.ybinsOffset(slot)),
		Offset: r.getU32(r.offsetOffset(slot)),
	}
	title := r.mem[r.titleOffset(slot) : r.titleOffset(slot)+TitleLength]
	for i, b := range title {
		if b == 0 {
			info.Title = string(title[:i])
			break
		}
	}
	return info
}

// slotWords returns the channel count a slot occupies; any slot with a
// y dimension uses the 2-d row-major layout.
func slotWords(info SlotInfo) int {
	if info.YBins > 0 {
		return int(info.XBins) * int(info.YBins)
	}
	return int(info.XBins)
}

func (r *Region) writeSlot(slot int, typ, xbins, ybins, offset uint32, title string) {
	r.putU32(r.typeOffset(slot), typ)
	r.putU32(r.xbinsOffset(slot), xbins)
	r.putU32(r.ybinsOffset(slot), ybins)
	r.putU32(r.offsetOffset(slot), offset)
	t := r.mem[r.titleOffset(slot) : r.titleOffset(slot)+TitleLength]
	for i := range t {
		t[i] = 0
	}
	copy(t[:TitleLength-1], title)
}

// allocate first-fit allocates words from the free list.
func (r *Region) allocate(words int) (int, error) {
	for i, e := range r.free {
		if e.words >= words {
			offset := e.offset
			if e.words == words {
				r.free = append(r.free[:i], r.free[i+1:]...)
			} else {
				r.free[i] = extent{offset: e.offset + words, words: e.words - words}
			}
			return offset, nil
		}
	}
	return 0, fmt.Errorf("%w: %d channels requested", ErrPoolExhausted, words)
}

// release returns a range to the free list, merging adjacent extents.
func (r *Region) release(offset, words int) {
	r.free = append(r.free, extent{offset: offset, words: words})
	sort.Slice(r.free, func(i, j int) bool { return r.free[i].offset < r.free[j].offset })
	merged := r.free[:1]
	for _, e := range r.free[1:] {
		last := &merged[len(merged)-1]
		if last.offset+last.words == e.offset {
			last.words += e.words
		} else {
			merged = append(merged, e)
		}
	}
	r.free = merged
}

// Bind allocates a slot and pool storage for a spectrum. y is nil for
// one-dimensional layouts; typ is the slot tag the header advertises
// (SlotOneD, SlotTwoD, SlotSummary). The slot header is written; the
// storage is not cleared (callers clear on initial bind).
func (r *Region) Bind(name string, typ uint32, x AxisSpec, y *AxisSpec) (slot int, offset uint32, err error) {
	for _, bound := range r.bindings {
		if bound == name {
			return 0, 0, fmt.Errorf("%w: %s", ErrAlreadyBound, name)
		}
	}
	slot = -1
	for i := 0; i < r.slots; i++ {
		if _, used := r.bindings[i]; !used {
			slot = i
			break
		}
	}
	if slot < 0 {
		return 0, 0, fmt.Errorf("%w: all %d slots bound", ErrNoFreeSlot, r.slots)
	}

	words := int(x.Bins)
	ybins := uint32(0)
	if y != nil {
		ybins = y.Bins
		words = int(x.Bins) * int(y.Bins)
	}
	off, err := r.allocate(words)
	if err != nil {
		return 0, 0, err
	}
	r.writeSlot(slot, typ, x.Bins, ybins, uint32(off), name)
	r.bindings[slot] = name
	return slot, uint32(off), nil
}

// Unbind clears the slot and returns its storage to the free list.
func (r *Region) Unbind(slot int) error {
	if _, ok := r.bindings[slot]; !ok {
		return fmt.Errorf("%w: slot %d", ErrSlotNotBound, slot)
	}
	info := r.Slot(slot)
	r.release(int(info.Offset), slotWords(info))
	r.writeSlot(slot, SlotUnused, 0, 0, 0, "")
	delete(r.bindings, slot)
	return nil
}

// Bindings enumerates the occupied slots in slot order.
func (r *Region) Bindings() []Binding {
	result := make([]Binding, 0, len(r.bindings))
	for slot, name := range r.bindings {
		result = append(result, Binding{Slot: slot, Name: name})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Slot < result[j].Slot })
	return result
}

// FindBinding returns the slot bound to name.
func (r *Region) FindBinding(name string) (int, bool) {
	for slot, bound := range r.bindings {
		if bound == name {
			return slot, true
		}
	}
	return 0, false
}

func (r *Region) poolOffset(slot int, v ChannelValue) int {
	info := r.Slot(slot)
	word := int(info.Offset) + v.X
	if info.YBins > 0 {
		word = int(info.Offset) + v.X + v.Y*int(info.XBins)
	}
	return headerSize(r.slots) + word*4
}

// SetContents writes the given channels into the slot's storage. Only
// the listed channels are touched; refresh passes rely on the initial
// clear plus incremental non-zero writes.
func (r *Region) SetContents(slot int, values []ChannelValue) error {
	if _, ok := r.bindings[slot]; !ok {
		return fmt.Errorf("%w: slot %d", ErrSlotNotBound, slot)
	}
	for _, v := range values {
		r.putU32(r.poolOffset(slot, v), v.Value)
	}
	return nil
}

// ClearContents zeroes the slot's storage.
func (r *Region) ClearContents(slot int) error {
	info := r.Slot(slot)
	if _, ok := r.bindings[slot]; !ok {
		return fmt.Errorf("%w: slot %d", ErrSlotNotBound, slot)
	}
	words := slotWords(info)
	base := headerSize(r.slots) + int(info.Offset)*4
	for i := 0; i < words*4; i++ {
		r.mem[base+i] = 0
	}
	return nil
}

// UsedPoolBytes returns the extent of the channel pool a mirror
// transfer must carry: the end of the highest-offset populated slot, in
// bytes. Zero when nothing is bound. The scan reads only the shared
// header, so mirror workers can call it without touching binder-private
// state.
func (r *Region) UsedPoolBytes() int {
	end := 0
	for slot := 0; slot < r.slots; slot++ {
		info := r.Slot(slot)
		if info.Type == SlotUnused {
			continue
		}
		if e := (int(info.Offset) + slotWords(info)) * 4; e > end {
			end = e
		}
	}
	return end
}

// Usage reports pool statistics.
func (r *Region) Usage() Statistics {
	s := Statistics{
		TotalBytes: r.poolWords * 4,
		BoundSlots: len(r.bindings),
		TotalSlots: r.slots,
	}
	for _, e := range r.free {
		s.FreeBytes += e.words * 4
		if e.words*4 > s.LargestFreeBytes {
			s.LargestFreeBytes = e.words * 4
		}
	}
	s.UsedBytes = s.TotalBytes - s.FreeBytes
	return s
}
