package util

import (
	"fmt"
	"math"
	"time"
)

// FormatDuration formats a duration as m:ss.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	m := total / 60
	s := total % 60
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatSeconds formats a position in seconds as m:ss.
func FormatSeconds(sec float64) string {
	if math.IsNaN(sec) || math.IsInf(sec, 0) {
		sec = 0
	}
	return FormatDuration(time.Duration(sec * float64(time.Second)))
}

var sizeUnits = []string{"B", "KB", "MB", "GB"}

// FormatFileSize formats a byte count with two decimals, e.g. "1.50 MB".
func FormatFileSize(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	v := float64(n)
	i := 0
	for v >= 1024 && i < len(sizeUnits)-1 {
		v /= 1024
		i++
	}
	return fmt.Sprintf("%.2f %s", v, sizeUnits[i])
}

// FormatFrequency formats a frequency as "440 Hz" or "2.5 kHz".
func FormatFrequency(hz float64) string {
	if hz >= 1000 {
		return fmt.Sprintf("%g kHz", math.Round(hz/100)/10)
	}
	return fmt.Sprintf("%d Hz", int(math.Round(hz)))
}
