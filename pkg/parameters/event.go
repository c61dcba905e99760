package parameters

// EventParameter is one (id, value) pair of a decoded event.
type EventParameter struct {
	ID    uint32
	Value float64
}

// Event is the ordered list of parameters present in one physics event.
type Event []EventParameter

// FlatEvent is the dense, id-indexed view of an Event. It is built once
// per raw event and shared read-only by every condition and spectrum
// evaluation for that event. The dirty list makes Load O(len(event))
// amortized rather than O(max id).
type FlatEvent struct {
	values []float64
	valid  []bool
	dirty  []uint32
}

// NewFlatEvent returns an empty flat event. The backing arrays grow to
// the largest id ever loaded and are then reused.
func NewFlatEvent() *FlatEvent {
	return &FlatEvent{}
}

func (f *FlatEvent) grow(id uint32) {
	if int(id) >= len(f.values) {
		values := make([]float64, id+1)
		valid := make([]bool, id+1)
		copy(values, f.values)
		copy(valid, f.valid)
		f.values = values
		f.valid = valid
	}
}

// Load replaces the contents with the raw event, clearing only the
// entries set by the previous load.
func (f *FlatEvent) Load(e Event) {
	f.Unload()
	for _, p := range e {
		f.Set(p.ID, p.Value)
	}
}

// Set stores one parameter value.
func (f *FlatEvent) Set(id uint32, value float64) {
	f.grow(id)
	if !f.valid[id] {
		f.dirty = append(f.dirty, id)
	}
	f.values[id] = value
	f.valid[id] = true
}

// Get returns the value for id; ok is false when the current event does
// not define the parameter.
func (f *FlatEvent) Get(id uint32) (float64, bool) {
	if int(id) >= len(f.valid) || !f.valid[id] {
		return 0, false
	}
	return f.values[id], true
}

// Has reports whether the current event defines id.
func (f *FlatEvent) Has(id uint32) bool {
	return int(id) < len(f.valid) && f.valid[id]
}

// Unload clears the loaded entries.
func (f *FlatEvent) Unload() {
	for _, id := range f.dirty {
		f.valid[id] = false
	}
	f.dirty = f.dirty[:0]
}

// ParameterIDs returns the ids set by the current load, in load order.
func (f *FlatEvent) ParameterIDs() []uint32 {
	return f.dirty
}
