package ui

import (
	"fmt"
	"strings"

	"github.com/olivier-w/aves/internal/config"
	"github.com/olivier-w/aves/internal/util"
)

func renderProgressBar(elapsed, total float64, width int) string {
	if width < 10 {
		width = 10
	}
	barWidth := width - 2 // leave some margin

	var ratio float64
	if total > 0 {
		ratio = elapsed / total
	}
	ratio = min(max(ratio, 0), 1)

	filled := int(ratio * float64(barWidth))
	return strings.Repeat("━", filled) + strings.Repeat("─", barWidth-filled)
}

func renderVolumePercent(vol float64) string {
	return fmt.Sprintf("vol %d%%", int(vol*100))
}

func loopIcon(looping bool) string {
	if looping {
		return "[loop]"
	}
	return ""
}

// meterLevels are eighth-block glyphs from empty to full.
var meterLevels = []rune(" ▏▎▍▌▋▊▉█")

// renderMeter draws level in [0,1] as a horizontal bar of width cells.
func renderMeter(level float64, width int) string {
	if width <= 0 {
		return ""
	}
	level = min(max(level, 0), 1)
	eighths := int(level * float64(width*8))
	full := eighths / 8
	var b strings.Builder
	b.WriteString(strings.Repeat("█", full))
	if full < width {
		b.WriteRune(meterLevels[eighths%8])
		b.WriteString(strings.Repeat(" ", width-full-1))
	}
	return b.String()
}

// renderEQ lists each band as "freq gain", highlighting the selected one.
func renderEQ(bands []config.EqualizerBand, selected int, engaged bool) string {
	if len(bands) == 0 {
		return "eq none"
	}
	state := "on"
	if !engaged {
		state = "bypassed"
	}
	parts := make([]string, 0, len(bands)+1)
	parts = append(parts, "eq "+state)
	for i, b := range bands {
		cell := fmt.Sprintf("%s %+.0f", util.FormatFrequency(b.Frequency), b.Gain)
		if i == selected {
			cell = selectedStyle.Render("[" + cell + "]")
		}
		parts = append(parts, cell)
	}
	return strings.Join(parts, "  ")
}

func spaces(n int) string {
	if n < 0 {
		n = 0
	}
	return strings.Repeat(" ", n)
}
