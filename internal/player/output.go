package player

import (
	"io"
	"sync"

	"github.com/ebitengine/oto/v3"
)

var (
	globalOtoCtx *oto.Context
	otoOnce      sync.Once
	otoInitErr   error
)

// initOto creates the process-wide audio context. oto allows only one.
func initOto() (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   GraphSampleRate,
			ChannelCount: GraphChannels,
			Format:       oto.FormatSignedInt16LE,
		}
		var ready chan struct{}
		globalOtoCtx, ready, otoInitErr = oto.NewContext(op)
		if otoInitErr == nil {
			<-ready
		}
	})
	return globalOtoCtx, otoInitErr
}

// Output starts pulling s16le frames from a source. Closing the returned
// handle stops the pull.
type Output interface {
	Start(r io.Reader) (io.Closer, error)
}

// bufferedSizer is implemented by output handles that can report how
// many bytes they have read from the source but not yet played.
type bufferedSizer interface {
	BufferedSize() int
}

// OtoOutput plays through the system audio device.
type OtoOutput struct{}

// Start implements Output.
func (OtoOutput) Start(r io.Reader) (io.Closer, error) {
	ctx, err := initOto()
	if err != nil {
		return nil, err
	}
	p := ctx.NewPlayer(r)
	p.Play()
	return otoHandle{p}, nil
}

type otoHandle struct {
	p *oto.Player
}

func (h otoHandle) Close() error {
	h.p.Pause()
	return h.p.Close()
}

func (h otoHandle) BufferedSize() int {
	return h.p.BufferedSize()
}
