// Package video turns rendered frames into terminal art and inspects
// exported media files.
package video

import (
	"image"
	"image/color"
	"strings"
)

// Renderer converts RGBA frames into a terminal string.
// It supports two modes:
//   - Color (half-block): uses "▀" with fg/bg colors to pack 2 pixel rows per terminal row.
//   - ASCII (no color): maps each cell to a brightness character.
type Renderer struct {
	mode ColorMode
	sb   strings.Builder // reused between frames
}

// NewRenderer creates a renderer using the current terminal's color capabilities.
func NewRenderer() *Renderer {
	return NewRendererMode(DetectColorMode())
}

// NewRendererMode creates a renderer with a fixed color mode.
func NewRendererMode(mode ColorMode) *Renderer {
	return &Renderer{mode: mode}
}

// Mode returns the color mode in use.
func (r *Renderer) Mode() ColorMode {
	return r.mode
}

// Render converts frame into outW x outH terminal cells.
//
// In color mode each terminal row shows two pixel rows. In ASCII mode
// each row shows one. The frame is sampled nearest-neighbour, so render it
// at SurfaceSize for a one-to-one mapping.
func (r *Renderer) Render(frame *image.RGBA, outW, outH int) string {
	if frame == nil || frame.Bounds().Empty() || outW <= 0 || outH <= 0 {
		return ""
	}

	r.sb.Reset()
	// Worst case ~20 bytes per cell for color escapes plus newlines.
	r.sb.Grow(outW * outH * 24)

	if r.mode == ColorOff {
		r.renderASCII(frame, outW, outH)
	} else {
		r.renderHalfBlock(frame, outW, outH)
	}
	return r.sb.String()
}

// renderHalfBlock uses "▀" (upper half block) with fg = top pixel, bg = bottom pixel.
func (r *Renderer) renderHalfBlock(frame *image.RGBA, outW, outH int) {
	b := frame.Bounds()
	pixelRows := outH * 2

	var lastFg, lastBg string
	for row := range outH {
		topY := b.Min.Y + row*2*b.Dy()/pixelRows
		botY := b.Min.Y + (row*2+1)*b.Dy()/pixelRows

		for col := range outW {
			x := b.Min.X + col*b.Dx()/outW
			fg := colorSeq(r.mode, fgLayer, opaque(frame.RGBAAt(x, topY)))
			bg := colorSeq(r.mode, bgLayer, opaque(frame.RGBAAt(x, botY)))

			if fg != lastFg {
				r.sb.WriteString(fg)
				lastFg = fg
			}
			if bg != lastBg {
				r.sb.WriteString(bg)
				lastBg = bg
			}
			r.sb.WriteString("▀")
		}

		r.sb.WriteString(ansiReset)
		lastFg, lastBg = "", ""
		if row < outH-1 {
			r.sb.WriteByte('\n')
		}
	}
}

// renderASCII maps each cell to a brightness character.
func (r *Renderer) renderASCII(frame *image.RGBA, outW, outH int) {
	b := frame.Bounds()
	for row := range outH {
		y := b.Min.Y + row*b.Dy()/outH
		for col := range outW {
			x := b.Min.X + col*b.Dx()/outW
			r.sb.WriteByte(brightnessChar(luminance(opaque(frame.RGBAAt(x, y)))))
		}
		if row < outH-1 {
			r.sb.WriteByte('\n')
		}
	}
}

// opaque composites a premultiplied pixel over black.
func opaque(c color.RGBA) color.RGBA {
	c.A = 0xff
	return c
}

// luminance computes perceived brightness (ITU-R BT.601).
func luminance(c color.RGBA) uint8 {
	return uint8((299*int(c.R) + 587*int(c.G) + 114*int(c.B)) / 1000)
}

// SurfaceSize returns the pixel size to render at for a termW x termH
// cell pane. A cell is about twice as tall as it is wide, so two pixel
// rows per cell keep pixels roughly square in either mode.
func SurfaceSize(termW, termH int) (w, h int) {
	if termW <= 0 || termH <= 0 {
		return 0, 0
	}
	return termW, termH * 2
}
