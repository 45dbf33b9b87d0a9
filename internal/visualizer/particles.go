package visualizer

import (
	"image"
	"image/color"
	"math"

	"github.com/olivier-w/aves/internal/analyzer"
	"github.com/olivier-w/aves/internal/config"
)

const (
	particleAlpha    = 0.7
	particleBassLow  = 0
	particleBassHigh = 60
)

// particleCount and particleSize derive the particle budget from bass
// energy in [0, 1].
func particleCount(bass float64) int {
	return 100 + int(math.Floor(clamp01(bass)*100))
}

func particleSize(bass float64) float64 {
	return 2 + clamp01(bass)*5
}

func (r *Renderer) drawParticles(c *canvas, snap analyzer.Snapshot, cfg config.Visualizer) {
	bounds := c.dst.Bounds()
	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	if w <= 0 || h <= 0 {
		return
	}
	bass := snap.BandEnergy(particleBassLow, particleBassHigh)
	count := particleCount(bass)
	maxSize := particleSize(bass)

	var base image.Image
	if cfg.Color.Type == config.ColorGradient {
		stops := parseStops(cfg.Color.Gradient.Colors)
		base = newAngleGradient(translucent(stops, particleAlpha), bounds.Dx(), bounds.Dy(), cfg.Color.Gradient.Angle)
	} else if cfg.Color.Type != config.ColorFrequency {
		base = image.NewUniform(withAlpha(parseHexOr(cfg.Color.Solid, fallbackSolid), particleAlpha))
	}

	for range count {
		x := r.rng.Float64() * w
		y := r.rng.Float64() * h
		size := r.rng.Float64() * maxSize
		if size < 0.5 {
			continue
		}
		src := base
		if cfg.Color.Type == config.ColorFrequency {
			// Frequency follows the particle's height on a linear scale.
			f := 20 + (20000-20)*(y/h)
			src = image.NewUniform(withAlpha(FrequencyColor(f, cfg.Color.FrequencyColors), particleAlpha))
		}
		c.fill(src, circlePoly(float64(bounds.Min.X)+x, float64(bounds.Min.Y)+y, size))
	}
}

func translucent(stops []color.RGBA, a float64) []color.RGBA {
	out := make([]color.RGBA, len(stops))
	for i, s := range stops {
		out[i] = withAlpha(s, a)
	}
	return out
}
