package visualizer

import (
	"image"
	"image/draw"
	"math"

	"golang.org/x/image/vector"
)

type pt struct {
	x, y float64
}

// canvas fills polygons onto an RGBA surface. The rasterizer is sized to
// each shape's bounding box so small shapes on large surfaces stay cheap.
type canvas struct {
	dst *image.RGBA
	z   vector.Rasterizer
}

func newCanvas(dst *image.RGBA) *canvas {
	return &canvas{dst: dst}
}

// fill paints the union of polys with src. Every polygon is wound the
// same way so overlaps do not cancel.
func (c *canvas) fill(src image.Image, polys ...[]pt) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	n := 0
	for _, p := range polys {
		if len(p) < 3 || !finite(p) {
			continue
		}
		for _, q := range p {
			minX, maxX = math.Min(minX, q.x), math.Max(maxX, q.x)
			minY, maxY = math.Min(minY, q.y), math.Max(maxY, q.y)
		}
		n++
	}
	if n == 0 {
		return
	}

	r := image.Rect(
		int(math.Floor(minX)), int(math.Floor(minY)),
		int(math.Ceil(maxX)), int(math.Ceil(maxY)),
	).Intersect(c.dst.Bounds())
	if r.Empty() {
		return
	}

	c.z.Reset(r.Dx(), r.Dy())
	c.z.DrawOp = draw.Over
	ox, oy := float64(r.Min.X), float64(r.Min.Y)
	for _, p := range polys {
		if len(p) < 3 || !finite(p) {
			continue
		}
		reverse := signedArea(p) > 0
		for i := range p {
			q := p[i]
			if reverse {
				q = p[len(p)-1-i]
			}
			x, y := float32(q.x-ox), float32(q.y-oy)
			if i == 0 {
				c.z.MoveTo(x, y)
			} else {
				c.z.LineTo(x, y)
			}
		}
		c.z.ClosePath()
	}
	c.z.Draw(c.dst, r, src, r.Min)
}

// stroke paints a polyline of the given width with round joins.
func (c *canvas) stroke(src image.Image, line []pt, width float64, closed bool) {
	if len(line) < 2 || width <= 0 {
		return
	}
	half := width / 2
	polys := make([][]pt, 0, len(line)*2+1)
	segs := len(line) - 1
	if closed {
		segs = len(line)
	}
	for i := range segs {
		a, b := line[i], line[(i+1)%len(line)]
		dx, dy := b.x-a.x, b.y-a.y
		l := math.Hypot(dx, dy)
		if l == 0 {
			continue
		}
		nx, ny := -dy/l*half, dx/l*half
		polys = append(polys, []pt{
			{a.x + nx, a.y + ny},
			{b.x + nx, b.y + ny},
			{b.x - nx, b.y - ny},
			{a.x - nx, a.y - ny},
		})
	}
	if half >= 1 {
		for _, p := range line {
			polys = append(polys, circlePoly(p.x, p.y, half))
		}
	}
	c.fill(src, polys...)
}

// rect returns an axis-aligned rectangle.
func rect(x, y, w, h float64) []pt {
	return []pt{{x, y}, {x + w, y}, {x + w, y + h}, {x, y + h}}
}

// circlePoly approximates a circle with enough segments to look round at
// radius r.
func circlePoly(cx, cy, r float64) []pt {
	return arc(nil, cx, cy, r, 0, 2*math.Pi)
}

// arc appends points along a circular arc from a0 to a1 (radians, either
// direction) to dst.
func arc(dst []pt, cx, cy, r, a0, a1 float64) []pt {
	span := a1 - a0
	steps := int(math.Ceil(math.Abs(span) * math.Max(r, 1) / 4))
	steps = max(4, min(steps, 256))
	for i := 0; i <= steps; i++ {
		a := a0 + span*float64(i)/float64(steps)
		dst = append(dst, pt{cx + math.Cos(a)*r, cy + math.Sin(a)*r})
	}
	return dst
}

func signedArea(p []pt) float64 {
	var s float64
	for i := range p {
		a, b := p[i], p[(i+1)%len(p)]
		s += a.x*b.y - b.x*a.y
	}
	return s / 2
}

func finite(p []pt) bool {
	for _, q := range p {
		if math.IsNaN(q.x) || math.IsNaN(q.y) || math.IsInf(q.x, 0) || math.IsInf(q.y, 0) {
			return false
		}
	}
	return true
}

// fillRect paints r with src directly, without the rasterizer. src is
// addressed in dst coordinates.
func fillRect(dst *image.RGBA, r image.Rectangle, src image.Image, op draw.Op) {
	r = r.Intersect(dst.Bounds())
	draw.Draw(dst, r, src, r.Min, op)
}
