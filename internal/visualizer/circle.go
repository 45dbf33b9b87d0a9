package visualizer

import (
	"image"
	"math"

	"github.com/olivier-w/aves/internal/config"
)

const defaultCircleLineWidth = 2

// circleGeometry holds the resolved layout of the circle mode.
type circleGeometry struct {
	cx, cy     float64
	minR, maxR float64
	maxAmp     float64
	rotation   float64
	step       float64
	slices     int
	sens       float64
}

// radius maps a bucket value in [0, 255] to a radial extent.
func (g circleGeometry) radius(v float64) float64 {
	return g.minR + math.Min(g.maxAmp*(v/255)*g.sens, g.maxAmp)
}

// circleValues returns the slice values. The circle draws the lowest
// quarter of the spectrum; with the default count each slice is one bin.
func circleValues(freq []byte, count int) []float64 {
	if count <= 0 {
		count = len(freq) / 4
	}
	if count <= 0 {
		return nil
	}
	data := freq[:min(len(freq), max(len(freq)/4, count))]
	return bucketAverages(data, count)
}

func (r *Renderer) drawCircle(c *canvas, freq []byte, cfg config.Visualizer) {
	bounds := c.dst.Bounds()
	cc := cfg.Circle
	values := circleValues(freq, cc.Count)
	if len(values) == 0 {
		return
	}

	g := circleGeometry{
		cx:       float64(bounds.Min.X) + float64(bounds.Dx())*cc.CenterX,
		cy:       float64(bounds.Min.Y) + float64(bounds.Dy())*cc.CenterY,
		maxR:     cc.Radius,
		minR:     cc.MinRadius,
		rotation: cc.Rotation * math.Pi / 180,
		step:     2 * math.Pi / float64(len(values)),
		slices:   len(values),
		sens:     cfg.Sensitivity,
	}
	if g.minR <= 0 {
		g.minR = g.maxR * 0.5
	}
	g.minR = math.Min(g.minR, g.maxR)
	g.maxAmp = (g.maxR - g.minR) * 0.9

	// Mirror mode draws the first half and reflects it.
	drawn := len(values)
	if cc.MirrorMode {
		drawn = len(values)/2 + 1
		drawn = min(drawn, len(values))
	}

	var base image.Image
	if cfg.Color.Type == config.ColorGradient {
		base = newRadialGradient(parseStops(cfg.Color.Gradient.Colors), g.cx, g.cy, g.minR*0.8, g.maxR*1.2)
	} else {
		base = paint(cfg.Color, bounds.Dx(), bounds.Dy())
	}

	switch cc.Theme {
	case "outline", "outlineFilled":
		r.drawCircleOutline(c, g, values[:drawn], cc, cfg.Color, base)
	default:
		hollow := cc.Theme == "hollow"
		for i, v := range values[:drawn] {
			src := bucketPaint(cfg.Color, base, i, g.slices)
			a := float64(i)*g.step + g.rotation
			rad := g.radius(v)
			c.fill(src, wedge(g, a, a+g.step, rad, hollow))
			if cc.MirrorMode {
				m := 2*math.Pi - a
				c.fill(src, wedge(g, m, m-g.step, rad, hollow))
			}
		}
	}
}

// wedge is the slice between angles a0 and a1 out to radius rad. Hollow
// wedges start at the inner radius instead of the centre.
func wedge(g circleGeometry, a0, a1, rad float64, hollow bool) []pt {
	if !hollow {
		return arc([]pt{{g.cx, g.cy}}, g.cx, g.cy, rad, a0, a1)
	}
	p := arc(nil, g.cx, g.cy, rad, a0, a1)
	return arc(p, g.cx, g.cy, g.minR, a1, a0)
}

func (r *Renderer) drawCircleOutline(c *canvas, g circleGeometry, values []float64, cc config.Circle, col config.Color, base image.Image) {
	contour := make([]pt, 0, len(values)*2)
	for i, v := range values {
		a := float64(i)*g.step + g.rotation
		rad := g.radius(v)
		contour = append(contour, pt{g.cx + math.Cos(a)*rad, g.cy + math.Sin(a)*rad})
	}
	if cc.MirrorMode {
		for i := len(values) - 1; i >= 0; i-- {
			a := 2*math.Pi - (float64(i)*g.step + g.rotation)
			rad := g.radius(values[i])
			contour = append(contour, pt{g.cx + math.Cos(a)*rad, g.cy + math.Sin(a)*rad})
		}
	}

	if cc.Theme == "outlineFilled" {
		c.fill(base, contour)
	}

	lw := cc.LineWidth
	if lw <= 0 {
		lw = defaultCircleLineWidth
	}
	if col.Type != config.ColorFrequency {
		c.stroke(base, contour, lw, true)
		return
	}
	// Frequency mode colors each segment by the bucket it starts at.
	n := len(contour)
	for i := range n {
		bucket := i
		if bucket >= len(values) {
			bucket = n - 1 - i
		}
		src := bucketPaint(col, base, bucket, g.slices)
		c.stroke(src, []pt{contour[i], contour[(i+1)%n]}, lw, false)
	}
}
