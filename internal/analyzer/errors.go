package analyzer

import "errors"

var (
	// ErrNotConnected is returned by snapshot calls before the analyzer is
	// wired into a signal graph.
	ErrNotConnected = errors.New("analyzer: not connected")
	// ErrInvalidConfig is returned by Configure for out-of-range arguments.
	ErrInvalidConfig = errors.New("analyzer: invalid configuration")
)
