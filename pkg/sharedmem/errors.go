package sharedmem

import "errors"

var (
	// ErrNoFreeSlot is returned by Bind when every header slot is in
	// use.
	ErrNoFreeSlot = errors.New("no free shared memory slot")

	// ErrPoolExhausted is returned when no contiguous channel-pool
	// range can hold the requested bins.
	ErrPoolExhausted = errors.New("channel pool exhausted")

	// ErrAlreadyBound is returned when a spectrum name is already bound
	// to a slot.
	ErrAlreadyBound = errors.New("spectrum already bound")

	// ErrSlotNotBound is returned for operations on an unbound slot.
	ErrSlotNotBound = errors.New("slot is not bound")

	// ErrNoSuchBinding is returned when a named binding is absent.
	ErrNoSuchBinding = errors.New("spectrum is not bound")

	// ErrBadPattern is returned for malformed glob patterns.
	ErrBadPattern = errors.New("malformed glob pattern")

	// ErrDuplicateMirror is returned when a (host, key) pair is already
	// registered in the mirror directory.
	ErrDuplicateMirror = errors.New("mirror already registered")

	// ErrBadMessage is returned for malformed or unknown wire messages.
	ErrBadMessage = errors.New("malformed mirror message")

	// ErrBinderExited names a binding thread that is no longer serving
	// requests. The Binder methods do not return it: a request submitted
	// after Exit blocks.
	ErrBinderExited = errors.New("binding thread has exited")
)
