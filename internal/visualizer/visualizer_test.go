package visualizer

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/olivier-w/aves/internal/analyzer"
	"github.com/olivier-w/aves/internal/config"
)

func testRenderer() *Renderer {
	return NewWithRand(rand.New(rand.NewPCG(1, 2)))
}

func fullSnapshot(fftSize int, v byte) analyzer.Snapshot {
	freq := bytes.Repeat([]byte{v}, fftSize/2)
	td := make([]byte, fftSize)
	for i := range td {
		td[i] = byte(128 + 100*math.Sin(float64(i)/8))
	}
	return analyzer.Snapshot{Frequency: freq, TimeDomain: td, SampleRate: 48000}
}

func rgbaAt(img *image.RGBA, x, y int) color.RGBA {
	return img.RGBAAt(x, y)
}

func TestFrequencyColor(t *testing.T) {
	stops := config.Default().Visualizer.Color.FrequencyColors

	tests := []struct {
		name string
		f    float64
		want color.RGBA
	}{
		{"below first", 5, color.RGBA{0, 0, 0xff, 0xff}},
		{"first", 20, color.RGBA{0, 0, 0xff, 0xff}},
		{"breakpoint", 200, color.RGBA{0, 0xff, 0, 0xff}},
		{"midpoint", 110, color.RGBA{0, 0x80, 0x80, 0xff}},
		{"last", 20000, color.RGBA{0xff, 0, 0xff, 0xff}},
		{"above last", 30000, color.RGBA{0xff, 0, 0xff, 0xff}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FrequencyColor(tt.f, stops); got != tt.want {
				t.Fatalf("FrequencyColor(%v) = %v, want %v", tt.f, got, tt.want)
			}
		})
	}
}

func TestFrequencyColorSortsStops(t *testing.T) {
	stops := []config.FrequencyStop{
		{Frequency: 1000, Color: "#FFFFFF"},
		{Frequency: 100, Color: "#000000"},
	}
	if got := FrequencyColor(50, stops); got != (color.RGBA{0, 0, 0, 0xff}) {
		t.Fatalf("below range = %v, want black", got)
	}
	if got := FrequencyColor(550, stops); got != (color.RGBA{0x80, 0x80, 0x80, 0xff}) {
		t.Fatalf("midpoint = %v, want mid gray", got)
	}
	if stops[0].Frequency != 1000 {
		t.Fatal("input stops were reordered")
	}
}

func TestFrequencyColorEmpty(t *testing.T) {
	if got := FrequencyColor(440, nil); got != fallbackSolid {
		t.Fatalf("empty stops = %v, want fallback", got)
	}
}

func TestParseStops(t *testing.T) {
	if got := parseStops(nil); len(got) != 2 || got[0] != fallbackGradient[0] {
		t.Fatalf("no stops = %v, want fallback gradient", got)
	}
	got := parseStops([]string{"#ff0000", "nope"})
	if len(got) != 2 || got[0] != got[1] || got[0] != (color.RGBA{0xff, 0, 0, 0xff}) {
		t.Fatalf("single valid stop = %v, want it duplicated", got)
	}
}

func TestLayoutBars(t *testing.T) {
	bars := config.Default().Visualizer.Bars

	tests := []struct {
		name   string
		align  string
		width  int
		startX float64
	}{
		{"center", "center", 800, 17},
		{"left", "left", 800, 0},
		{"right", "right", 800, 34},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := bars
			cfg.HorizontalAlign = tt.align
			l := LayoutBars(cfg, tt.width)
			if l.Count != 64 || l.Width != 10 || l.Spacing != 2 {
				t.Fatalf("layout = %+v, want 64 bars of 10 spaced 2", l)
			}
			if l.StartX != tt.startX {
				t.Fatalf("StartX = %v, want %v", l.StartX, tt.startX)
			}
			if got := l.X(1) - l.X(0); got != 12 {
				t.Fatalf("pitch = %v, want 12", got)
			}
		})
	}
}

func TestLayoutBarsShrinksToFit(t *testing.T) {
	cfg := config.Default().Visualizer.Bars
	l := LayoutBars(cfg, 383)
	if math.Abs(l.TotalWidth()-383) > 1e-9 {
		t.Fatalf("TotalWidth = %v, want 383", l.TotalWidth())
	}
	if math.Abs(l.Width/l.Spacing-5) > 1e-9 {
		t.Fatalf("width/spacing ratio = %v, want 5", l.Width/l.Spacing)
	}
	if l.StartX < -1e-9 {
		t.Fatalf("StartX = %v, want >= 0", l.StartX)
	}
}

func TestScaleConfig(t *testing.T) {
	base := config.Default().Visualizer

	got := ScaleConfig(base, 1600, 900)
	if got.Bars.Width != 20 || got.Bars.Spacing != 4 || got.Bars.MinHeight != 4 {
		t.Fatalf("bars = %+v, want doubled", got.Bars)
	}
	if got.Circle.Radius != 200 || got.Circle.MinRadius != 100 {
		t.Fatalf("circle radius = %v/%v, want 200/100", got.Circle.Radius, got.Circle.MinRadius)
	}
	if got.Wave.Amplitude != 100 {
		t.Fatalf("wave amplitude = %v, want 100", got.Wave.Amplitude)
	}
	if got.Sensitivity != base.Sensitivity || got.Wave.Smoothing != base.Wave.Smoothing {
		t.Fatal("non-geometry settings changed")
	}

	narrow := ScaleConfig(base, 400, 450)
	if narrow.Circle.Radius != 50 {
		t.Fatalf("narrow radius = %v, want 50 (uses the smaller axis)", narrow.Circle.Radius)
	}
	if narrow.Wave.Amplitude != 50 {
		t.Fatalf("narrow amplitude = %v, want 50", narrow.Wave.Amplitude)
	}

	tiny := ScaleConfig(base, 8, 4)
	if tiny.Bars.Width != 1 || tiny.Circle.Radius != 1 || tiny.Wave.Amplitude != 1 {
		t.Fatalf("tiny surface = %+v, want geometry floored at 1", tiny)
	}
}

func TestBucketAverages(t *testing.T) {
	data := []byte{10, 20, 30, 40, 50}

	tests := []struct {
		n    int
		want []float64
	}{
		{1, []float64{30}},
		{2, []float64{20, 45}},
		{3, []float64{15, 35, 50}},
		{8, []float64{10, 20, 30, 40, 50, 0, 0, 0}},
		{0, []float64{}},
	}
	for _, tt := range tests {
		got := bucketAverages(data, tt.n)
		if len(got) != len(tt.want) {
			t.Fatalf("n=%d: len = %d, want %d", tt.n, len(got), len(tt.want))
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Fatalf("n=%d: got %v, want %v", tt.n, got, tt.want)
			}
		}
	}
}

func TestBarsPaintFromTheBottom(t *testing.T) {
	cfg := config.Default().Visualizer
	cfg.Color = config.Color{Type: config.ColorSolid, Solid: "#FF0000"}
	bg, err := NewBackground(config.Background{Type: config.BackgroundColor, Color: "#000000"})
	if err != nil {
		t.Fatal(err)
	}

	img := testRenderer().RenderOffscreen(ReferenceWidth, ReferenceHeight, fullSnapshot(2048, 255), cfg, bg)

	red := color.RGBA{0xff, 0, 0, 0xff}
	black := color.RGBA{0, 0, 0, 0xff}
	// The first centred bar spans x in [17, 27); the gap runs to 29.
	if got := rgbaAt(img, 22, ReferenceHeight-1); got != red {
		t.Fatalf("inside bar = %v, want red", got)
	}
	if got := rgbaAt(img, 27, ReferenceHeight-1); got != black {
		t.Fatalf("gap = %v, want black", got)
	}
	if got := rgbaAt(img, 5, ReferenceHeight-1); got != black {
		t.Fatalf("margin = %v, want black", got)
	}
}

func TestSilentBarsKeepMinHeight(t *testing.T) {
	cfg := config.Default().Visualizer
	cfg.Color = config.Color{Type: config.ColorSolid, Solid: "#FF0000"}
	cfg.Bars.RoundedTop = false
	bg, _ := NewBackground(config.Background{Type: config.BackgroundColor, Color: "#000000"})

	img := testRenderer().RenderOffscreen(ReferenceWidth, ReferenceHeight, fullSnapshot(2048, 0), cfg, bg)
	if got := rgbaAt(img, 22, ReferenceHeight-1); got != (color.RGBA{0xff, 0, 0, 0xff}) {
		t.Fatalf("bottom row = %v, want the minimum bar", got)
	}
	if got := rgbaAt(img, 22, ReferenceHeight-3); got != (color.RGBA{0, 0, 0, 0xff}) {
		t.Fatalf("above minimum = %v, want black", got)
	}
}

func TestRenderMalformedSnapshots(t *testing.T) {
	snaps := map[string]analyzer.Snapshot{
		"empty":        {},
		"single bin":   {Frequency: []byte{255}, TimeDomain: []byte{0}, SampleRate: 48000},
		"no rate":      {Frequency: bytes.Repeat([]byte{200}, 64), TimeDomain: bytes.Repeat([]byte{128}, 128)},
		"freq only":    {Frequency: bytes.Repeat([]byte{255}, 1024), SampleRate: 44100},
		"time only":    {TimeDomain: bytes.Repeat([]byte{255}, 2048), SampleRate: 44100},
		"full":         fullSnapshot(2048, 180),
		"short buffer": fullSnapshot(32, 255),
	}
	colors := []config.Color{
		config.Default().Visualizer.Color,
		{Type: config.ColorGradient},
		{Type: config.ColorFrequency},
		{Type: config.ColorFrequency, FrequencyColors: config.Default().Visualizer.Color.FrequencyColors},
		{Type: config.ColorSolid, Solid: "not a color"},
	}
	sizes := []image.Point{{0, 0}, {1, 1}, {3, 200}, {320, 180}}

	r := testRenderer()
	for name, snap := range snaps {
		for _, mode := range config.Modes {
			for _, col := range colors {
				for _, size := range sizes {
					cfg := config.Default().Visualizer
					cfg.Type = mode
					cfg.Color = col
					cfg.Circle.MirrorMode = size.X%2 == 1
					cfg.Circle.Theme = "outlineFilled"
					img := r.RenderOffscreen(size.X, size.Y, snap, cfg, nil)
					if img.Bounds().Size() != size {
						t.Fatalf("%s/%s: size = %v, want %v", name, mode, img.Bounds().Size(), size)
					}
				}
			}
		}
	}
}

func TestCircleThemesDraw(t *testing.T) {
	snap := fullSnapshot(2048, 255)
	for _, theme := range []string{"default", "hollow", "outline", "outlineFilled"} {
		for _, mirror := range []bool{false, true} {
			cfg := config.Default().Visualizer
			cfg.Type = config.ModeCircle
			cfg.Circle.Theme = theme
			cfg.Circle.MirrorMode = mirror
			cfg.Color = config.Color{Type: config.ColorSolid, Solid: "#FFFFFF"}

			img := testRenderer().RenderOffscreen(ReferenceWidth, ReferenceHeight, snap, cfg, nil)
			// Full magnitude reaches minR + 0.9*(maxR-minR) = 95 from the centre.
			lit := 0
			for x := ReferenceWidth/2 + 60; x < ReferenceWidth/2+90; x++ {
				if rgbaAt(img, x, ReferenceHeight/2+1).R > 0x80 {
					lit++
				}
			}
			if lit == 0 && theme != "outline" {
				t.Fatalf("%s mirror=%v: nothing drawn between the radii", theme, mirror)
			}
		}
	}
}

func TestWaveCenterLine(t *testing.T) {
	cfg := config.Default().Visualizer
	cfg.Type = config.ModeWave
	cfg.Wave.Amplitude = 0.0001
	bg, _ := NewBackground(config.Background{Type: config.BackgroundColor, Color: "#000000"})

	snap := analyzer.Snapshot{TimeDomain: bytes.Repeat([]byte{128}, 2048), SampleRate: 48000}
	img := testRenderer().RenderOffscreen(ReferenceWidth, ReferenceHeight, snap, cfg, bg)
	if got := rgbaAt(img, ReferenceWidth/2, ReferenceHeight/2); got.B == 0 {
		t.Fatalf("centre = %v, want the wave stroke", got)
	}
}

func TestParticlesScaleWithBass(t *testing.T) {
	if got := particleCount(0); got != 100 {
		t.Fatalf("particleCount(0) = %d, want 100", got)
	}
	if got := particleCount(1); got != 200 {
		t.Fatalf("particleCount(1) = %d, want 200", got)
	}
	if got := particleSize(0.5); got != 4.5 {
		t.Fatalf("particleSize(0.5) = %v, want 4.5", got)
	}
}

func TestBackgroundColor(t *testing.T) {
	bg, err := NewBackground(config.Background{Type: config.BackgroundColor, Color: "#102030"})
	if err != nil {
		t.Fatal(err)
	}
	img := image.NewRGBA(image.Rect(0, 0, 16, 9))
	bg.Draw(img)
	want := color.RGBA{0x10, 0x20, 0x30, 0xff}
	for _, p := range []image.Point{{0, 0}, {15, 8}, {7, 4}} {
		if got := rgbaAt(img, p.X, p.Y); got != want {
			t.Fatalf("pixel %v = %v, want %v", p, got, want)
		}
	}
}

func TestBackgroundGradientEndpoints(t *testing.T) {
	bg, _ := NewBackground(config.Background{
		Type:     config.BackgroundGradient,
		Gradient: config.Gradient{Colors: []string{"#000000", "#FFFFFF"}, Angle: 0},
	})
	img := image.NewRGBA(image.Rect(0, 0, 256, 4))
	bg.Draw(img)
	left, right := rgbaAt(img, 0, 2), rgbaAt(img, 255, 2)
	if left.R > 0x08 || right.R < 0xf7 {
		t.Fatalf("gradient ends = %v .. %v, want black to white", left, right)
	}
}

func TestNilBackgroundIsBlack(t *testing.T) {
	var bg *Background
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.White)
	bg.Draw(img)
	if got := rgbaAt(img, 1, 1); got != (color.RGBA{0, 0, 0, 0xff}) {
		t.Fatalf("pixel = %v, want black", got)
	}
	if bg.Cached() || bg.Path() != "" {
		t.Fatal("nil background reports a cached image")
	}
}

func encodePNG(t *testing.T, c color.Color, w, h int) []byte {
	t.Helper()
	src := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			src.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestBackgroundImageOpacity(t *testing.T) {
	bg, _ := NewBackground(config.Background{Type: config.BackgroundImage, Opacity: 0.5})
	if err := bg.SetImageData(encodePNG(t, color.RGBA{0xff, 0xff, 0xff, 0xff}, 4, 2)); err != nil {
		t.Fatal(err)
	}
	if !bg.Cached() {
		t.Fatal("image not cached after SetImageData")
	}

	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	bg.Draw(img)
	got := rgbaAt(img, 20, 10)
	if got.A < 0x7e || got.A > 0x81 {
		t.Fatalf("alpha = %d, want about half", got.A)
	}

	bg.Clear()
	bg.Draw(img)
	if got := rgbaAt(img, 20, 10); got.A != 0 {
		t.Fatalf("cleared image mode = %v, want transparent", got)
	}
}

func TestBackgroundRejectsGarbage(t *testing.T) {
	bg, _ := NewBackground(config.Background{Type: config.BackgroundImage})
	if err := bg.SetImageData([]byte("definitely not an image")); err == nil {
		t.Fatal("SetImageData accepted garbage")
	}
	if bg.Cached() {
		t.Fatal("garbage left a cached image")
	}
	if _, err := NewBackground(config.Background{Type: config.BackgroundImage, Image: "/does/not/exist.png"}); err == nil {
		t.Fatal("NewBackground with missing image returned nil error")
	}
}

func TestBackgroundBrokenImageDropsPrevious(t *testing.T) {
	dir := t.TempDir()
	red := filepath.Join(dir, "red.png")
	broken := filepath.Join(dir, "broken.png")
	if err := os.WriteFile(red, encodePNG(t, color.RGBA{0xff, 0, 0, 0xff}, 4, 4), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(broken, []byte("not a png"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Background{Type: config.BackgroundImage, Image: red, Opacity: 1}
	bg, err := NewBackground(cfg)
	if err != nil {
		t.Fatalf("NewBackground() error = %v", err)
	}
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	bg.Draw(img)
	if got := rgbaAt(img, 4, 4); got != (color.RGBA{0xff, 0, 0, 0xff}) {
		t.Fatalf("pixel = %v, want red", got)
	}

	cfg.Image = broken
	if err := bg.SetConfig(cfg); err == nil {
		t.Fatal("SetConfig with a broken image returned nil error")
	}
	if bg.Cached() {
		t.Fatal("previous image still cached after a failed swap")
	}
	if bg.Path() != broken {
		t.Fatalf("Path() = %q, want %q", bg.Path(), broken)
	}
	bg.Draw(img)
	if got := rgbaAt(img, 4, 4); got.A != 0 {
		t.Fatalf("pixel after failed swap = %v, want transparent", got)
	}
}
