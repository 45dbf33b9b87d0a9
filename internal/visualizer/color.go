package visualizer

import (
	"image"
	"image/color"
	"math"
	"slices"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/olivier-w/aves/internal/config"
)

var (
	fallbackSolid    = color.RGBA{R: 0x34, G: 0x98, B: 0xdb, A: 0xff}
	fallbackGradient = []color.RGBA{
		{R: 0x34, G: 0x98, B: 0xdb, A: 0xff},
		{R: 0x8e, G: 0x44, B: 0xad, A: 0xff},
	}
)

// parseHex converts "#rgb" or "#rrggbb" to an opaque color.
func parseHex(s string) (color.RGBA, bool) {
	c, err := colorful.Hex(s)
	if err != nil {
		return color.RGBA{}, false
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}, true
}

func parseHexOr(s string, fallback color.RGBA) color.RGBA {
	if c, ok := parseHex(s); ok {
		return c
	}
	return fallback
}

// parseStops parses gradient stops, skipping invalid entries. Fewer than
// two valid stops falls back to the stock gradient.
func parseStops(colors []string) []color.RGBA {
	out := make([]color.RGBA, 0, len(colors))
	for _, s := range colors {
		if c, ok := parseHex(s); ok {
			out = append(out, c)
		}
	}
	switch len(out) {
	case 0:
		return fallbackGradient
	case 1:
		return []color.RGBA{out[0], out[0]}
	}
	return out
}

// lerpRGB blends a toward b in RGB space, rounding to the nearest level.
func lerpRGB(a, b color.RGBA, t float64) color.RGBA {
	t = clamp01(t)
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: mix(a.A, b.A)}
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// FrequencyColor looks f up in a breakpoint list. The list is sorted by
// frequency; f below the first or above the last breakpoint takes that
// endpoint's color and anything in between is interpolated linearly
// between its two neighbours.
func FrequencyColor(f float64, stops []config.FrequencyStop) color.RGBA {
	if len(stops) == 0 {
		return fallbackSolid
	}
	sorted := slices.Clone(stops)
	slices.SortStableFunc(sorted, func(a, b config.FrequencyStop) int {
		switch {
		case a.Frequency < b.Frequency:
			return -1
		case a.Frequency > b.Frequency:
			return 1
		}
		return 0
	})

	first, last := sorted[0], sorted[len(sorted)-1]
	if f <= first.Frequency {
		return parseHexOr(first.Color, fallbackSolid)
	}
	if f >= last.Frequency {
		return parseHexOr(last.Color, fallbackSolid)
	}
	for i := 0; i < len(sorted)-1; i++ {
		lo, hi := sorted[i], sorted[i+1]
		if f < lo.Frequency || f >= hi.Frequency {
			continue
		}
		a := parseHexOr(lo.Color, fallbackSolid)
		if f == lo.Frequency {
			return a
		}
		b := parseHexOr(hi.Color, fallbackSolid)
		return lerpRGB(a, b, (f-lo.Frequency)/(hi.Frequency-lo.Frequency))
	}
	return parseHexOr(first.Color, fallbackSolid)
}

// bucketFrequency approximates the centre frequency of bucket i of n on a
// logarithmic scale from 20 Hz to 20 kHz.
func bucketFrequency(i, n int) float64 {
	if n <= 0 {
		return 20
	}
	return 20 * math.Pow(1000, float64(i)/float64(n))
}

// withAlpha returns c scaled to alpha a in [0, 1] (premultiplied).
func withAlpha(c color.RGBA, a float64) color.RGBA {
	a = clamp01(a)
	return color.RGBA{
		R: uint8(math.Round(float64(c.R) * a)),
		G: uint8(math.Round(float64(c.G) * a)),
		B: uint8(math.Round(float64(c.B) * a)),
		A: uint8(math.Round(float64(c.A) * a)),
	}
}

// lutSize is the resolution of a gradient lookup table.
const lutSize = 256

// gradientImage is an unbounded image whose color depends on the
// projection of each pixel onto an axis. radial gradients use the
// distance from a centre instead.
type gradientImage struct {
	lut [lutSize]color.RGBA

	radial    bool
	x0, y0    float64
	dx, dy    float64 // axis scaled by 1/len^2
	r0, rSpan float64
}

func buildLUT(stops []color.RGBA) [lutSize]color.RGBA {
	var lut [lutSize]color.RGBA
	segs := float64(len(stops) - 1)
	for i := range lut {
		t := float64(i) / (lutSize - 1)
		pos := t * segs
		k := min(int(pos), len(stops)-2)
		lut[i] = lerpRGB(stops[k], stops[k+1], pos-float64(k))
	}
	return lut
}

// newLinearGradient spreads stops evenly from (x0, y0) to (x1, y1).
func newLinearGradient(stops []color.RGBA, x0, y0, x1, y1 float64) *gradientImage {
	g := &gradientImage{lut: buildLUT(stops), x0: x0, y0: y0}
	ax, ay := x1-x0, y1-y0
	if l2 := ax*ax + ay*ay; l2 > 0 {
		g.dx, g.dy = ax/l2, ay/l2
	}
	return g
}

// newAngleGradient spans the w x h rectangle along angle degrees through
// its centre. 0 runs left to right and 90 top to bottom.
func newAngleGradient(stops []color.RGBA, w, h int, angle float64) *gradientImage {
	rad := angle * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	half := (math.Abs(float64(w)*cos) + math.Abs(float64(h)*sin)) / 2
	cx, cy := float64(w)/2, float64(h)/2
	return newLinearGradient(stops, cx-cos*half, cy-sin*half, cx+cos*half, cy+sin*half)
}

// newRadialGradient spreads stops from radius r0 to r1 around (cx, cy).
func newRadialGradient(stops []color.RGBA, cx, cy, r0, r1 float64) *gradientImage {
	g := &gradientImage{lut: buildLUT(stops), radial: true, x0: cx, y0: cy, r0: r0}
	g.rSpan = r1 - r0
	return g
}

func (g *gradientImage) ColorModel() color.Model { return color.RGBAModel }

func (g *gradientImage) Bounds() image.Rectangle {
	return image.Rect(-1e9, -1e9, 1e9, 1e9)
}

func (g *gradientImage) At(x, y int) color.Color {
	return g.at(float64(x)+0.5, float64(y)+0.5)
}

func (g *gradientImage) at(px, py float64) color.RGBA {
	var t float64
	if g.radial {
		d := math.Hypot(px-g.x0, py-g.y0)
		if g.rSpan > 0 {
			t = (d - g.r0) / g.rSpan
		}
	} else {
		t = (px-g.x0)*g.dx + (py-g.y0)*g.dy
	}
	return g.lut[int(clamp01(t)*(lutSize-1)+0.5)]
}

// paint returns the fill source for the configured color mode. Frequency
// mode is resolved per bucket by the caller; here it falls back to the
// first breakpoint.
func paint(c config.Color, w, h int) image.Image {
	switch c.Type {
	case config.ColorGradient:
		return newAngleGradient(parseStops(c.Gradient.Colors), w, h, c.Gradient.Angle)
	case config.ColorFrequency:
		return image.NewUniform(FrequencyColor(0, c.FrequencyColors))
	default:
		return image.NewUniform(parseHexOr(c.Solid, fallbackSolid))
	}
}

// bucketPaint returns the fill for bucket i of n: the frequency color in
// frequency mode, base otherwise.
func bucketPaint(c config.Color, base image.Image, i, n int) image.Image {
	if c.Type != config.ColorFrequency {
		return base
	}
	return image.NewUniform(FrequencyColor(bucketFrequency(i, n), c.FrequencyColors))
}
