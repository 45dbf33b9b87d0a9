package player

import "math"

// DefaultTargetPeak is the peak level Normalize scales to.
const DefaultTargetPeak = 0.95

// Buffer is a fully decoded asset held as planar float samples.
type Buffer struct {
	SampleRate int
	// Channels holds one slice per channel, all the same length.
	Channels [][]float32
}

// Frames returns the number of sample frames.
func (b *Buffer) Frames() int {
	if b == nil || len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// NumChannels returns the channel count.
func (b *Buffer) NumChannels() int {
	if b == nil {
		return 0
	}
	return len(b.Channels)
}

// Duration returns the length in seconds.
func (b *Buffer) Duration() float64 {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.SampleRate)
}

// Peak returns the largest absolute sample across all channels.
func (b *Buffer) Peak() float32 {
	if b == nil {
		return 0
	}
	var peak float32
	for _, ch := range b.Channels {
		for _, s := range ch {
			if a := float32(math.Abs(float64(s))); a > peak {
				peak = a
			}
		}
	}
	return peak
}

// Normalize returns a copy scaled so its peak equals target. Silent
// buffers are returned unchanged.
func (b *Buffer) Normalize(target float32) *Buffer {
	peak := b.Peak()
	if peak <= 0 {
		return b
	}
	scale := target / peak
	out := &Buffer{SampleRate: b.SampleRate, Channels: make([][]float32, len(b.Channels))}
	for c, ch := range b.Channels {
		dst := make([]float32, len(ch))
		for i, s := range ch {
			dst[i] = s * scale
		}
		out.Channels[c] = dst
	}
	return out
}

// Slice returns the frames between from and to seconds. The result
// shares storage with b.
func (b *Buffer) Slice(from, to float64) *Buffer {
	frames := b.Frames()
	start := clampFrame(int(math.Round(from*float64(b.SampleRate))), frames)
	end := clampFrame(int(math.Round(to*float64(b.SampleRate))), frames)
	if end < start {
		end = start
	}
	out := &Buffer{SampleRate: b.SampleRate, Channels: make([][]float32, len(b.Channels))}
	for c, ch := range b.Channels {
		out.Channels[c] = ch[start:end]
	}
	return out
}

// frameAt copies frame i into dst as interleaved samples, mapping the
// buffer's channels onto len(dst) outputs.
func (b *Buffer) frameAt(i int, dst []float32) {
	n := len(b.Channels)
	for c := range dst {
		if n == 0 {
			dst[c] = 0
			continue
		}
		dst[c] = b.Channels[min(c, n-1)][i]
	}
}

// atGraphRate returns b resampled to GraphSampleRate when needed.
func (b *Buffer) atGraphRate() *Buffer {
	if b == nil || b.SampleRate == GraphSampleRate || b.SampleRate <= 0 {
		return b
	}
	out := &Buffer{SampleRate: GraphSampleRate, Channels: make([][]float32, len(b.Channels))}
	for c, ch := range b.Channels {
		out.Channels[c] = resample(ch, b.SampleRate)
	}
	return out
}

func clampFrame(i, frames int) int {
	return max(0, min(i, frames))
}
