package reasons

import "errors"

// Sentinel kinds for reason generation errors.
var (
	ErrUnknownMode = errors.New("unknown reason mode")
	ErrCompileRule = errors.New("reason rule does not compile")
)
