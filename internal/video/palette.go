package video

import (
	"fmt"
	"image/color"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
)

// ASCII brightness ramp from darkest to brightest.
const asciiRamp = " .:-=+*#%@"

// ColorMode describes how colors are written to the terminal.
type ColorMode uint8

const (
	ColorOff     ColorMode = iota // NO_COLOR or dumb terminal
	ColorANSI16                   // basic 16-color
	ColorANSI256                  // 256-color
	ColorTrue                     // 24-bit truecolor
)

func (m ColorMode) String() string {
	switch m {
	case ColorANSI16:
		return "ansi16"
	case ColorANSI256:
		return "ansi256"
	case ColorTrue:
		return "truecolor"
	default:
		return "off"
	}
}

var (
	detectOnce sync.Once
	termColor  ColorMode
)

// DetectColorMode checks terminal capabilities once.
func DetectColorMode() ColorMode {
	detectOnce.Do(func() {
		termColor = colorModeFromEnv(os.LookupEnv)
	})
	return termColor
}

func colorModeFromEnv(lookup func(string) (string, bool)) ColorMode {
	if _, ok := lookup("NO_COLOR"); ok {
		return ColorOff
	}
	termEnv, _ := lookup("TERM")
	ctEnv, _ := lookup("COLORTERM")
	term := strings.ToLower(termEnv)
	ct := strings.ToLower(ctEnv)
	switch {
	case strings.Contains(ct, "truecolor"), strings.Contains(ct, "24bit"):
		return ColorTrue
	case strings.Contains(term, "256color"):
		return ColorANSI256
	case term == "dumb":
		return ColorOff
	case term == "" && runtime.GOOS == "windows":
		return ColorANSI16
	case term == "":
		return ColorOff
	default:
		return ColorANSI16
	}
}

// brightnessChar maps a 0-255 luminance to an ASCII character.
func brightnessChar(lum uint8) byte {
	idx := int(lum) * (len(asciiRamp) - 1) / 255
	return asciiRamp[idx]
}

// layer selects the foreground or background SGR codes.
type layer struct {
	rgb, idx256, base, bright int
}

var (
	fgLayer = layer{rgb: 38, idx256: 38, base: 30, bright: 90}
	bgLayer = layer{rgb: 48, idx256: 48, base: 40, bright: 100}
)

// colorSeq returns the escape that selects c on the given layer, or ""
// when colors are disabled.
func colorSeq(mode ColorMode, l layer, c color.RGBA) string {
	switch mode {
	case ColorTrue:
		return fmt.Sprintf("\x1b[%d;2;%d;%d;%dm", l.rgb, c.R, c.G, c.B)
	case ColorANSI256:
		return fmt.Sprintf("\x1b[%d;5;%dm", l.idx256, cube256(c))
	case ColorANSI16:
		i := nearestANSI16(c)
		if i < 8 {
			return fmt.Sprintf("\x1b[%dm", l.base+i)
		}
		return fmt.Sprintf("\x1b[%dm", l.bright+i-8)
	default:
		return ""
	}
}

// cube256 maps c into the 6x6x6 color cube of the 256-color palette.
func cube256(c color.RGBA) int {
	ri := int(c.R) * 5 / 255
	gi := int(c.G) * 5 / 255
	bi := int(c.B) * 5 / 255
	return 16 + 36*ri + 6*gi + bi
}

const ansiReset = "\x1b[0m"

// nearestANSI16 returns the index of the closest ANSI color, compared in
// Lab space so dark blues do not collapse to black.
func nearestANSI16(c color.RGBA) int {
	target := colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
	best := 0
	bestDist := 1e9
	for i, p := range ansi16Palette {
		if d := target.DistanceLab(p); d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

var ansi16Palette = func() [16]colorful.Color {
	hex := [16]string{
		"#000000", "#cd3131", "#0dbc79", "#e5e510", // black red green yellow
		"#2472c8", "#bc3fbc", "#11a8cd", "#e5e5e5", // blue magenta cyan white
		"#666666", "#f14c4c", "#23d18b", "#f5f543",
		"#3b8eea", "#d670d6", "#29b8db", "#ffffff",
	}
	var out [16]colorful.Color
	for i, h := range hex {
		out[i], _ = colorful.Hex(h)
	}
	return out
}()
