package catalog

import "errors"

// Sentinel errors for the catalog domain.
var (
	ErrTransport     = errors.New("transport error")
	ErrParse         = errors.New("malformed payload")
	ErrComputation   = errors.New("computation failed")
	ErrUnknownFilter = errors.New("unknown filter field")
	ErrEmptyLoadout  = errors.New("empty loadout selection")
)
