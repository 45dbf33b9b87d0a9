package player

import "errors"

var (
	// ErrDecodeFailed is returned when a file cannot be decoded into a
	// buffer. The underlying cause is wrapped.
	ErrDecodeFailed = errors.New("decode failed")
	// ErrNoBuffer is returned by Play when nothing is loaded.
	ErrNoBuffer = errors.New("no buffer loaded")
	// ErrLoadSuperseded is returned by a Load whose result was dropped
	// because a newer Load started.
	ErrLoadSuperseded = errors.New("load superseded")
)
