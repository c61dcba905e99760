package trace

import "errors"

// ErrNoSuchClient is returned for an unknown client token.
var ErrNoSuchClient = errors.New("no such trace client")
