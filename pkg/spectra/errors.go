package spectra

import "errors"

var (
	// ErrDuplicateSpectrum is returned by Storage.Add for a name already
	// in use.
	ErrDuplicateSpectrum = errors.New("spectrum already exists")

	// ErrNoSuchSpectrum is returned when a named spectrum is absent.
	ErrNoSuchSpectrum = errors.New("no such spectrum")

	// ErrNotFoldable is returned when a fold operation targets a
	// spectrum shape that cannot fold.
	ErrNotFoldable = errors.New("spectrum type cannot have folds applied")

	// ErrNotAFold is returned when the condition attached as a fold is
	// not fold-capable.
	ErrNotAFold = errors.New("condition cannot be used as a fold")

	// ErrAxisDefault is returned when an omitted axis coordinate cannot
	// be defaulted from parameter metadata.
	ErrAxisDefault = errors.New("cannot default axis specification")

	// ErrBadPattern is returned for malformed glob patterns.
	ErrBadPattern = errors.New("malformed glob pattern")
)
