package export

import (
	"context"
	"image"
)

// SinkConfig describes the stream a Sink records.
type SinkConfig struct {
	Width, Height int
	FPS           int
	Format        string
	VideoBitrate  string
	AudioBitrate  string
	// Audio is the soundtrack as interleaved stereo at the graph rate.
	// Nil records a silent video.
	Audio []float32
	// Name is the file name of the finished artifact.
	Name string
}

// Sink records frames into an artifact.
//
// WriteFrame is called once per frame in order. Exactly one of Finalize
// or Abort ends the recording; both release every resource the sink
// holds.
type Sink interface {
	WriteFrame(frame *image.RGBA) error
	Finalize(ctx context.Context) (*Artifact, error)
	Abort()
}

// NewSinkFunc creates a sink. It returns ErrUnsupportedCapture when the
// environment cannot record the requested stream.
type NewSinkFunc func(ctx context.Context, cfg SinkConfig) (Sink, error)
