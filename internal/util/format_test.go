package util

import (
	"math"
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0:00"},
		{-3 * time.Second, "0:00"},
		{59*time.Second + 900*time.Millisecond, "0:59"},
		{61 * time.Second, "1:01"},
		{65 * time.Minute, "65:00"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Fatalf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatSeconds(t *testing.T) {
	if got := FormatSeconds(125.7); got != "2:05" {
		t.Fatalf("FormatSeconds(125.7) = %q, want 2:05", got)
	}
	if got := FormatSeconds(math.NaN()); got != "0:00" {
		t.Fatalf("FormatSeconds(NaN) = %q, want 0:00", got)
	}
}

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{512, "512.00 B"},
		{1024, "1.00 KB"},
		{1536 * 1024, "1.50 MB"},
		{3 << 30, "3.00 GB"},
		{5 << 40, "5120.00 GB"},
	}
	for _, tt := range tests {
		if got := FormatFileSize(tt.in); got != tt.want {
			t.Fatalf("FormatFileSize(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatFrequency(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{32, "32 Hz"},
		{999.6, "1000 Hz"},
		{1000, "1 kHz"},
		{2500, "2.5 kHz"},
		{16000, "16 kHz"},
	}
	for _, tt := range tests {
		if got := FormatFrequency(tt.in); got != tt.want {
			t.Fatalf("FormatFrequency(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
