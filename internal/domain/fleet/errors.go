package fleet

import "errors"

// Sentinel kinds for fleet errors.
var (
	ErrEmptyFleet = errors.New("empty fleet")
)
