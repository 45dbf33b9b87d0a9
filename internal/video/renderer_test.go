package video

import (
	"image"
	"image/color"
	"strings"
	"testing"
	"time"
)

func solidFrame(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestRenderHalfBlockTrueColor(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 2, 2))
	frame.SetRGBA(0, 0, color.RGBA{255, 0, 0, 255})
	frame.SetRGBA(1, 0, color.RGBA{255, 0, 0, 255})
	frame.SetRGBA(0, 1, color.RGBA{0, 0, 255, 255})
	frame.SetRGBA(1, 1, color.RGBA{0, 0, 255, 255})

	out := NewRendererMode(ColorTrue).Render(frame, 2, 1)
	want := "\x1b[38;2;255;0;0m\x1b[48;2;0;0;255m▀▀" + ansiReset
	if out != want {
		t.Fatalf("Render = %q, want %q", out, want)
	}
}

func TestRenderRowsAndCells(t *testing.T) {
	frame := solidFrame(40, 20, color.RGBA{10, 200, 30, 255})
	for _, mode := range []ColorMode{ColorANSI16, ColorANSI256, ColorTrue} {
		out := NewRendererMode(mode).Render(frame, 8, 5)
		lines := strings.Split(out, "\n")
		if len(lines) != 5 {
			t.Fatalf("%s: %d lines, want 5", mode, len(lines))
		}
		for i, line := range lines {
			if n := strings.Count(line, "▀"); n != 8 {
				t.Fatalf("%s: line %d has %d cells, want 8", mode, i, n)
			}
		}
	}
}

func TestRenderASCII(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 4, 2))
	for x := range 4 {
		frame.SetRGBA(x, 1, color.RGBA{255, 255, 255, 255})
	}
	out := NewRendererMode(ColorOff).Render(frame, 4, 2)
	if out != "    \n@@@@" {
		t.Fatalf("Render = %q", out)
	}
}

func TestRenderRejectsEmpty(t *testing.T) {
	r := NewRendererMode(ColorTrue)
	if r.Render(nil, 4, 4) != "" {
		t.Fatal("nil frame rendered")
	}
	if r.Render(solidFrame(4, 4, color.RGBA{}), 0, 4) != "" {
		t.Fatal("zero width rendered")
	}
}

func TestNearestANSI16(t *testing.T) {
	tests := []struct {
		c    color.RGBA
		want int
	}{
		{color.RGBA{0, 0, 0, 255}, 0},
		{color.RGBA{255, 255, 255, 255}, 15},
		{color.RGBA{205, 49, 49, 255}, 1},
	}
	for _, tt := range tests {
		if got := nearestANSI16(tt.c); got != tt.want {
			t.Fatalf("nearestANSI16(%v) = %d, want %d", tt.c, got, tt.want)
		}
	}
	if got := colorSeq(ColorANSI16, bgLayer, color.RGBA{255, 255, 255, 255}); got != "\x1b[107m" {
		t.Fatalf("bright white background = %q", got)
	}
}

func TestColorModeFromEnv(t *testing.T) {
	env := func(kv map[string]string) func(string) (string, bool) {
		return func(k string) (string, bool) {
			v, ok := kv[k]
			return v, ok
		}
	}
	tests := []struct {
		name string
		env  map[string]string
		want ColorMode
	}{
		{"no color", map[string]string{"NO_COLOR": "", "COLORTERM": "truecolor"}, ColorOff},
		{"truecolor", map[string]string{"TERM": "xterm", "COLORTERM": "truecolor"}, ColorTrue},
		{"256", map[string]string{"TERM": "xterm-256color"}, ColorANSI256},
		{"dumb", map[string]string{"TERM": "dumb"}, ColorOff},
		{"basic", map[string]string{"TERM": "xterm"}, ColorANSI16},
	}
	for _, tt := range tests {
		if got := colorModeFromEnv(env(tt.env)); got != tt.want {
			t.Fatalf("%s: got %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestSurfaceSize(t *testing.T) {
	if w, h := SurfaceSize(80, 20); w != 80 || h != 40 {
		t.Fatalf("SurfaceSize = %dx%d, want 80x40", w, h)
	}
	if w, h := SurfaceSize(0, 20); w != 0 || h != 0 {
		t.Fatalf("SurfaceSize(0, 20) = %dx%d, want 0x0", w, h)
	}
}

func TestParseProbe(t *testing.T) {
	out := []byte(`{
		"streams": [
			{"codec_type": "audio", "codec_name": "aac"},
			{"codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080,
			 "r_frame_rate": "30/1", "avg_frame_rate": "0/0"}
		],
		"format": {"duration": "10.000000"}
	}`)
	p, err := parseProbe(out)
	if err != nil {
		t.Fatal(err)
	}
	if !p.HasVideo || !p.HasAudio {
		t.Fatalf("streams = video:%v audio:%v, want both", p.HasVideo, p.HasAudio)
	}
	if p.Width != 1920 || p.Height != 1080 || p.FPS != 30 || p.Codec != "h264" {
		t.Fatalf("probe = %+v", p)
	}
	if p.Duration != 10*time.Second {
		t.Fatalf("duration = %v, want 10s", p.Duration)
	}

	if _, err := parseProbe([]byte("not json")); err == nil {
		t.Fatal("parseProbe accepted garbage")
	}
}

func TestParseFraction(t *testing.T) {
	tests := map[string]float64{
		"30/1":       30,
		"24000/1001": 24000.0 / 1001,
		"25":         25,
		"1/0":        0,
		"x/y":        0,
	}
	for in, want := range tests {
		if got := parseFraction(in); got != want {
			t.Fatalf("parseFraction(%q) = %v, want %v", in, got, want)
		}
	}
}
