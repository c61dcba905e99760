package parameters

import "errors"

var (
	// ErrDuplicateParameter is returned by Dictionary.Add when the name
	// is already registered.
	ErrDuplicateParameter = errors.New("parameter already exists")

	// ErrBadPattern is returned by Dictionary.List for malformed glob
	// patterns.
	ErrBadPattern = errors.New("malformed glob pattern")

	// ErrNoSuchParameter is returned by callers resolving names that are
	// not in the dictionary.
	ErrNoSuchParameter = errors.New("no such parameter")
)
