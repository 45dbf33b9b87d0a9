package visualizer

import (
	"image"
	"image/color"
	"math"

	"github.com/olivier-w/aves/internal/config"
)

const (
	defaultWaveLineWidth = 3
	// sineOverlay is the height of the decorative sine relative to the
	// amplitude.
	sineOverlay = 0.2
)

var centerLineColor = color.RGBA{R: 0x1a, G: 0x1a, B: 0x1a, A: 0x1a}

// wavePoints samples the time domain snapshot at cfg.Wave.Points
// positions and returns the smoothed polyline, including the anchors at
// the left and right edges.
func wavePoints(timeDomain []byte, cfg config.Visualizer, w, h float64) []pt {
	wc := cfg.Wave
	n := wc.Points
	if n <= 0 || len(timeDomain) == 0 {
		return nil
	}
	mid := h / 2
	step := (len(timeDomain) + n - 1) / n

	line := make([]pt, 0, n+2)
	line = append(line, pt{0, mid})
	lastY := mid
	for i := range n {
		var sum float64
		for j := range step {
			if idx := i*step + j; idx < len(timeDomain) {
				sum += float64(timeDomain[idx])
			}
		}
		avg := (sum/float64(step)/255)*2 - 1
		rawY := mid + avg*wc.Amplitude*cfg.Sensitivity
		y := lastY*wc.Smoothing + rawY*(1-wc.Smoothing)
		lastY = y
		sineY := y + math.Sin(float64(i)/float64(n)*2*math.Pi*wc.Frequency)*wc.Amplitude*sineOverlay
		line = append(line, pt{w / float64(n) * float64(i), sineY})
	}
	return append(line, pt{w, mid})
}

func (r *Renderer) drawWave(c *canvas, timeDomain []byte, cfg config.Visualizer) {
	bounds := c.dst.Bounds()
	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	ox, oy := float64(bounds.Min.X), float64(bounds.Min.Y)

	c.stroke(image.NewUniform(centerLineColor), []pt{{ox, oy + h/2}, {ox + w, oy + h/2}}, 1, false)

	line := wavePoints(timeDomain, cfg, w, h)
	if len(line) == 0 {
		return
	}
	for i := range line {
		line[i].x += ox
		line[i].y += oy
	}

	lw := cfg.Wave.LineWidth
	if lw <= 0 {
		lw = defaultWaveLineWidth
	}
	base := paint(cfg.Color, bounds.Dx(), bounds.Dy())
	if cfg.Color.Type != config.ColorFrequency {
		c.stroke(base, line, lw, false)
		return
	}
	n := cfg.Wave.Points
	for i := 0; i+1 < len(line); i++ {
		src := bucketPaint(cfg.Color, base, max(i-1, 0), n)
		c.stroke(src, line[i:i+2], lw, false)
	}
}

// drawWaveform mirrors the frequency snapshot around the centre line and
// fills the silhouette.
func (r *Renderer) drawWaveform(c *canvas, freq []byte, cfg config.Visualizer) {
	if len(freq) == 0 {
		return
	}
	bounds := c.dst.Bounds()
	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	ox := float64(bounds.Min.X)
	cy := float64(bounds.Min.Y) + h/2
	dx := w / float64(len(freq))

	shape := make([]pt, 0, len(freq)*2)
	for i, v := range freq {
		shape = append(shape, pt{ox + dx*float64(i), cy - h/2*(float64(v)/255)*cfg.Sensitivity})
	}
	for i := len(freq) - 1; i >= 0; i-- {
		shape = append(shape, pt{ox + dx*float64(i), cy + h/2*(float64(freq[i])/255)*cfg.Sensitivity})
	}
	c.fill(paint(cfg.Color, bounds.Dx(), bounds.Dy()), shape)
}
