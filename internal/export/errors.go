package export

import "errors"

var (
	// ErrUnsupportedCapture means no video sink can be created here. The
	// exporter falls back to a PNG still.
	ErrUnsupportedCapture = errors.New("export: stream capture unsupported")
	// ErrSourcePlaybackFailed means the offline graph could not supply
	// audio or a frame could not be delivered. Capture stops and the
	// exporter tries the PNG fallback.
	ErrSourcePlaybackFailed = errors.New("export: source playback failed")
	// ErrSinkFinalizeFailed means the encoder did not produce a usable file.
	ErrSinkFinalizeFailed = errors.New("export: sink finalize failed")
	// ErrInitFailed means the request had no audio or the surface could
	// not be set up.
	ErrInitFailed = errors.New("export: init failed")
)
