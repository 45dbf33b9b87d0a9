// Package visualizer draws analyzer snapshots onto RGBA surfaces.
//
// Every drawing mode is a function of the snapshot, the settings and the
// surface size. Settings are authored against an 800x450 preview and
// rescaled to the surface before drawing.
package visualizer

import (
	"image"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/olivier-w/aves/internal/analyzer"
	"github.com/olivier-w/aves/internal/config"
)

// Renderer draws frames. It is not safe for concurrent use; give each
// goroutine its own.
type Renderer struct {
	rng *rand.Rand
}

// New returns a Renderer whose particle positions are seeded from the
// clock.
func New() *Renderer {
	seed := uint64(time.Now().UnixNano())
	return NewWithRand(rand.New(rand.NewPCG(seed, seed>>1|1)))
}

// NewWithRand returns a Renderer drawing particle positions from r.
func NewWithRand(r *rand.Rand) *Renderer {
	return &Renderer{rng: r}
}

// Render draws one frame into dst: the backdrop from bg, then the mode
// selected by cfg. Malformed snapshots never panic; whatever was drawn
// before a failure is kept.
func (r *Renderer) Render(dst *image.RGBA, snap analyzer.Snapshot, cfg config.Visualizer, bg *Background) {
	if dst == nil || dst.Bounds().Empty() {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			log.Debug().Interface("panic", p).Str("mode", string(cfg.Type)).Msg("render aborted")
		}
	}()

	bg.Draw(dst)

	bounds := dst.Bounds()
	scaled := ScaleConfig(cfg, bounds.Dx(), bounds.Dy())
	c := newCanvas(dst)
	switch scaled.Type {
	case config.ModeBars:
		r.drawBars(c, snap.Frequency, scaled)
	case config.ModeCircle:
		r.drawCircle(c, snap.Frequency, scaled)
	case config.ModeWave:
		r.drawWave(c, snap.TimeDomain, scaled)
	case config.ModeWaveform:
		r.drawWaveform(c, snap.Frequency, scaled)
	case config.ModeParticles:
		r.drawParticles(c, snap, scaled)
	}
}

// RenderOffscreen draws a frame onto a new w x h surface.
func (r *Renderer) RenderOffscreen(w, h int, snap analyzer.Snapshot, cfg config.Visualizer, bg *Background) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, max(w, 0), max(h, 0)))
	r.Render(dst, snap, cfg, bg)
	return dst
}
