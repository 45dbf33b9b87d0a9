package visualizer

import (
	"image"
	"math"

	"github.com/olivier-w/aves/internal/config"
)

// BarLayout is the horizontal geometry of the bars row.
type BarLayout struct {
	Count   int
	Width   float64
	Spacing float64
	StartX  float64
}

// X returns the left edge of bar i.
func (l BarLayout) X(i int) float64 {
	return l.StartX + float64(i)*(l.Width+l.Spacing)
}

// TotalWidth is the span from the first bar's left edge to the last
// bar's right edge.
func (l BarLayout) TotalWidth() float64 {
	if l.Count <= 0 {
		return 0
	}
	return float64(l.Count)*l.Width + float64(l.Count-1)*l.Spacing
}

// LayoutBars positions cfg.Bars.Count bars across width. A row wider than
// the surface is shrunk proportionally so it fits.
func LayoutBars(cfg config.Bars, width int) BarLayout {
	l := BarLayout{Count: max(cfg.Count, 0), Width: cfg.Width, Spacing: cfg.Spacing}
	if total := l.TotalWidth(); total > float64(width) && total > 0 {
		k := float64(width) / total
		l.Width *= k
		l.Spacing *= k
	}

	switch cfg.HorizontalAlign {
	case "center":
		l.StartX = (float64(width) - l.TotalWidth()) / 2
	case "right":
		l.StartX = float64(width) - l.TotalWidth()
	}
	return l
}

// barResponse maps a bucket average in [0, 255] to a height fraction.
// The curve lifts quiet signal so it stays visible.
func barResponse(avg float64) float64 {
	return math.Pow(clamp01(avg/255), 0.8) * 1.5
}

// bucketAverages splits data into n contiguous buckets of ceil(len/n)
// bins and averages each. Buckets past the end of data are zero.
func bucketAverages(data []byte, n int) []float64 {
	out := make([]float64, max(n, 0))
	if n <= 0 || len(data) == 0 {
		return out
	}
	step := (len(data) + n - 1) / n
	for i := range out {
		var sum, count int
		for j := range step {
			idx := i*step + j
			if idx >= len(data) {
				break
			}
			sum += int(data[idx])
			count++
		}
		if count > 0 {
			out[i] = float64(sum) / float64(count)
		}
	}
	return out
}

func (r *Renderer) drawBars(c *canvas, freq []byte, cfg config.Visualizer) {
	bounds := c.dst.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	bc := cfg.Bars
	layout := LayoutBars(bc, w)
	if layout.Count == 0 {
		return
	}

	var base image.Image
	if cfg.Color.Type == config.ColorGradient {
		// Bars share one vertical gradient from the bottom up.
		base = newLinearGradient(parseStops(cfg.Color.Gradient.Colors),
			0, float64(bounds.Max.Y), 0, float64(bounds.Min.Y))
	} else {
		base = paint(cfg.Color, w, h)
	}

	fh := float64(h)
	for i, avg := range bucketAverages(freq, layout.Count) {
		bh := math.Max(bc.MinHeight, cfg.Sensitivity*fh*barResponse(avg))
		bh = math.Min(bh, fh)
		if bh <= 0 {
			continue
		}

		var y float64
		switch bc.VerticalAlign {
		case "top":
			y = 0
		case "middle":
			y = (fh - bh) / 2
		default:
			y = fh - bh
		}
		x := float64(bounds.Min.X) + layout.X(i)
		y += float64(bounds.Min.Y)

		src := bucketPaint(cfg.Color, base, i, layout.Count)
		if bc.RoundedTop {
			c.fill(src, roundedTopBar(x, y, layout.Width, bh))
		} else {
			c.fill(src, rect(x, y, layout.Width, bh))
		}
	}
}

// roundedTopBar is a bar whose top edge is a half circle of the bar's
// width.
func roundedTopBar(x, y, w, h float64) []pt {
	bottom := y + h
	capY := bottom - math.Min(h, w/2)
	p := []pt{{x, bottom}, {x, capY}}
	p = arc(p, x+w/2, capY, w/2, math.Pi, 2*math.Pi)
	return append(p, pt{x + w, bottom})
}
