package conditions

import "errors"

var (
	// ErrNoSuchCondition is returned when a named condition is absent.
	ErrNoSuchCondition = errors.New("no such condition")

	// ErrCycle is returned by Dictionary.Add when registering a compound
	// would make the condition graph cyclic.
	ErrCycle = errors.New("condition dependency cycle")

	// ErrBadPattern is returned by Dictionary.List for malformed glob
	// patterns.
	ErrBadPattern = errors.New("malformed glob pattern")

	// ErrTooFewPoints is returned by the 2-d constructors when the point
	// list cannot describe the shape.
	ErrTooFewPoints = errors.New("too few points")
)
