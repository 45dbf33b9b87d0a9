package visualizer

import (
	"math"

	"github.com/olivier-w/aves/internal/config"
)

// ReferenceWidth and ReferenceHeight are the preview size geometry
// settings are authored against.
const (
	ReferenceWidth  = 800
	ReferenceHeight = 450
)

// ScaleConfig rescales pixel-valued geometry from the reference size to
// w x h. Sensitivity and smoothing are left alone.
func ScaleConfig(cfg config.Visualizer, w, h int) config.Visualizer {
	if w <= 0 || h <= 0 {
		return cfg
	}
	ws := float64(w) / ReferenceWidth
	hs := float64(h) / ReferenceHeight
	rs := math.Min(ws, hs)

	out := cfg
	out.Bars.Width = math.Max(1, math.Round(cfg.Bars.Width*ws))
	out.Bars.Spacing = math.Max(0, math.Round(cfg.Bars.Spacing*ws))
	out.Bars.MinHeight = math.Max(0, math.Round(cfg.Bars.MinHeight*hs))

	out.Circle.Radius = math.Max(1, math.Round(cfg.Circle.Radius*rs))
	out.Circle.MinRadius = math.Max(0, math.Round(cfg.Circle.MinRadius*rs))

	out.Wave.Amplitude = math.Max(1, math.Round(cfg.Wave.Amplitude*hs))
	return out
}
