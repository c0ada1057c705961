package policy

import "errors"

// Sentinel kinds for policy errors.
var (
	ErrUnknownPolicy = errors.New("unknown fleet policy")
	ErrInvalidTable  = errors.New("invalid policy table")
)
