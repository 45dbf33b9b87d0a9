package analyzer

import "math"

// Snapshot is an immutable copy of one analysis frame.
type Snapshot struct {
	// Frequency holds fftSize/2 magnitudes in [0,255].
	Frequency []byte
	// TimeDomain holds fftSize samples, 128 being silence.
	TimeDomain []byte
	SampleRate int
}

// Nyquist returns half the sample rate, or 0 if it is unknown.
func (s Snapshot) Nyquist() float64 {
	return float64(s.SampleRate) / 2
}

// BandEnergy returns the mean normalized magnitude of the bins covering
// [lo, hi] Hz, in [0,1].
func (s Snapshot) BandEnergy(lo, hi float64) float64 {
	return bandEnergy(s.Frequency, s.SampleRate, lo, hi)
}

// bandEnergy maps [lo, hi] linearly onto bin indices and averages the
// inclusive range.
func bandEnergy(freq []byte, sampleRate int, lo, hi float64) float64 {
	n := len(freq)
	if n == 0 || sampleRate <= 0 {
		return 0
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	nyquist := float64(sampleRate) / 2
	start := clampIndex(int(math.Round(lo/nyquist*float64(n))), n)
	end := clampIndex(int(math.Round(hi/nyquist*float64(n))), n)

	sum := 0
	for i := start; i <= end; i++ {
		sum += int(freq[i])
	}
	return float64(sum) / float64(end-start+1) / 255
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n-1 {
		return n - 1
	}
	return i
}
