package player

import "fmt"

// GraphSampleRate and GraphChannels describe the signal graph. Every
// decoded buffer is converted to this layout.
const (
	GraphSampleRate = 48000
	GraphChannels   = 2
)

// normalize maps interleaved samples at srcRate with srcChannels onto a
// planar stereo buffer at GraphSampleRate. Mono is duplicated, extra
// channels beyond the first two are dropped, and the rate is converted by
// linear interpolation.
func normalize(interleaved []float32, srcRate, srcChannels int) (*Buffer, error) {
	if srcRate <= 0 {
		return nil, fmt.Errorf("unsupported sample rate: %d", srcRate)
	}
	if srcChannels < 1 {
		return nil, fmt.Errorf("unsupported channel count: %d", srcChannels)
	}

	srcFrames := len(interleaved) / srcChannels
	left := make([]float32, srcFrames)
	right := make([]float32, srcFrames)
	for i := range srcFrames {
		off := i * srcChannels
		left[i] = interleaved[off]
		if srcChannels > 1 {
			right[i] = interleaved[off+1]
		} else {
			right[i] = left[i]
		}
	}

	if srcRate == GraphSampleRate {
		return &Buffer{SampleRate: GraphSampleRate, Channels: [][]float32{left, right}}, nil
	}
	return &Buffer{
		SampleRate: GraphSampleRate,
		Channels:   [][]float32{resample(left, srcRate), resample(right, srcRate)},
	}, nil
}

// resample converts src from srcRate to GraphSampleRate. Positions are
// tracked as an exact rational (numerator over GraphSampleRate) so long
// files do not drift.
func resample(src []float32, srcRate int) []float32 {
	if len(src) == 0 {
		return nil
	}
	outFrames := int64(len(src)) * GraphSampleRate / int64(srcRate)
	if outFrames == 0 {
		outFrames = 1
	}
	out := make([]float32, outFrames)

	var posNum int64
	last := int64(len(src) - 1)
	for i := range out {
		frame := posNum / GraphSampleRate
		if frame > last {
			frame = last
		}
		next := min(frame+1, last)
		frac := float32(posNum%GraphSampleRate) / GraphSampleRate
		out[i] = interpolateSample(src[frame], src[next], frac)
		posNum += int64(srcRate)
	}
	return out
}

func interpolateSample(a, b, frac float32) float32 {
	if frac == 0 || a == b {
		return a
	}
	return a + (b-a)*frac
}
