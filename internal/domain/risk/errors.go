package risk

import "errors"

// Sentinel kinds for risk errors.
var (
	ErrInvalidLimit    = errors.New("invalid limit")
	ErrInvalidEstimate = errors.New("invalid co2 estimate")
)
