// Package analyzer implements a real-time FFT analyser over the post-equalizer
// signal. Its output matches the Web Audio AnalyserNode: Blackman-windowed
// magnitudes, exponentially smoothed between analysis frames and mapped to
// bytes between a min and max decibel bound.
package analyzer

import (
	"fmt"
	"math"
	"sync"

	"github.com/olivier-w/aves/internal/config"
)

// Supported FFT sizes.
const (
	MinFFTSize = 32
	MaxFFTSize = 32768
)

// Analyzer taps an interleaved float signal and produces frequency and
// time-domain snapshots. Write is called from the audio goroutine; every
// other method may be called concurrently with it.
type Analyzer struct {
	mu sync.Mutex

	fftSize   int
	smoothing float64
	minDB     float64
	maxDB     float64

	sampleRate int
	connected  bool

	// ring holds the latest MaxFFTSize mono samples.
	ring   []float32
	w      int
	filled int

	// written counts Write calls; analyzed is the value at the last
	// analysis frame. Equal values mean no new input since then.
	written  uint64
	analyzed uint64
	stale    bool

	plan     *fftPlan
	window   []float64
	re, im   []float64
	smoothed []float64
	freq     []byte
}

// New creates an analyzer. It is unconnected until Connect is called.
func New(fftSize int, smoothing, minDB, maxDB float64) (*Analyzer, error) {
	a := &Analyzer{ring: make([]float32, MaxFFTSize)}
	if err := a.Configure(fftSize, smoothing, minDB, maxDB); err != nil {
		return nil, err
	}
	return a, nil
}

// FromConfig creates an analyzer with the FFT settings of cfg.
func FromConfig(cfg config.Visualizer) (*Analyzer, error) {
	return New(cfg.FFTSize, cfg.SmoothingTimeConstant, cfg.MinDecibels, cfg.MaxDecibels)
}

// Configure changes the analysis parameters. A new FFT size takes effect
// on the next analysis frame with fresh smoothing history; existing
// history is not re-smoothed.
func (a *Analyzer) Configure(fftSize int, smoothing, minDB, maxDB float64) error {
	if fftSize < MinFFTSize || fftSize > MaxFFTSize || fftSize&(fftSize-1) != 0 {
		return fmt.Errorf("%w: fft size %d", ErrInvalidConfig, fftSize)
	}
	if smoothing < 0 || smoothing >= 1 || math.IsNaN(smoothing) {
		return fmt.Errorf("%w: smoothing %v", ErrInvalidConfig, smoothing)
	}
	if !(minDB < maxDB) {
		return fmt.Errorf("%w: decibel range [%v, %v]", ErrInvalidConfig, minDB, maxDB)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if fftSize != a.fftSize {
		a.fftSize = fftSize
		a.plan = newFFTPlan(fftSize)
		a.window = blackman(fftSize)
		a.re = make([]float64, fftSize)
		a.im = make([]float64, fftSize)
		a.smoothed = make([]float64, fftSize/2)
		a.freq = make([]byte, fftSize/2)
	}
	a.smoothing = smoothing
	a.minDB = minDB
	a.maxDB = maxDB
	a.stale = true
	return nil
}

// FFTSize returns the current transform size.
func (a *Analyzer) FFTSize() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fftSize
}

// Connect wires the analyzer into a graph running at sampleRate.
func (a *Analyzer) Connect(sampleRate int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sampleRate = sampleRate
	a.connected = true
}

// Disconnect unwires the analyzer. Snapshots fail until the next Connect.
func (a *Analyzer) Disconnect() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.connected = false
}

// Connected reports whether the analyzer is wired into a graph.
func (a *Analyzer) Connected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connected
}

// Reset clears the input history and smoothing state.
func (a *Analyzer) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	clear(a.ring)
	clear(a.smoothed)
	clear(a.freq)
	a.w = 0
	a.filled = 0
	a.stale = true
}

// Write appends interleaved frames to the analysis window, mixing all
// channels down to mono.
func (a *Analyzer) Write(samples []float32, channels int) {
	if channels <= 0 || len(samples) < channels {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	size := len(a.ring)
	inv := 1 / float32(channels)
	for i := 0; i+channels <= len(samples); i += channels {
		var sum float32
		for c := range channels {
			sum += samples[i+c]
		}
		a.ring[a.w] = sum * inv
		a.w = (a.w + 1) % size
	}
	a.filled = min(a.filled+len(samples)/channels, size)
	a.written++
}

// SnapshotFrequencies returns fftSize/2 byte magnitudes.
func (a *Analyzer) SnapshotFrequencies() ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return nil, ErrNotConnected
	}
	a.analyze()
	return append([]byte(nil), a.freq...), nil
}

// SnapshotTimeDomain returns the latest fftSize samples as bytes centred
// on 128.
func (a *Analyzer) SnapshotTimeDomain() ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return nil, ErrNotConnected
	}
	return a.timeDomain(), nil
}

// Snapshot returns both views plus the sample rate they were taken at.
func (a *Analyzer) Snapshot() (Snapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return Snapshot{}, ErrNotConnected
	}
	a.analyze()
	return Snapshot{
		Frequency:  append([]byte(nil), a.freq...),
		TimeDomain: a.timeDomain(),
		SampleRate: a.sampleRate,
	}, nil
}

// BandEnergy returns the mean normalized magnitude of the bins covering
// [lo, hi] Hz.
func (a *Analyzer) BandEnergy(lo, hi float64) (float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return 0, ErrNotConnected
	}
	a.analyze()
	return bandEnergy(a.freq, a.sampleRate, lo, hi), nil
}

// latest copies the latest len(dst) samples into dst, oldest first. Missing
// history reads as silence.
func (a *Analyzer) latest(dst []float64) {
	n := len(dst)
	size := len(a.ring)
	for i := range n {
		back := n - i
		if back > a.filled {
			dst[i] = 0
			continue
		}
		dst[i] = float64(a.ring[(a.w-back+size)%size])
	}
}

func (a *Analyzer) timeDomain() []byte {
	n := a.fftSize
	samples := make([]float64, n)
	a.latest(samples)
	out := make([]byte, n)
	for i, x := range samples {
		out[i] = clampByte(128 * (1 + x))
	}
	return out
}

// analyze runs one analysis frame if input arrived since the last one.
func (a *Analyzer) analyze() {
	if !a.stale && a.analyzed == a.written {
		return
	}
	a.stale = false
	a.analyzed = a.written

	n := a.fftSize
	a.latest(a.re)
	for i := range n {
		a.re[i] *= a.window[i]
		a.im[i] = 0
	}
	a.plan.transform(a.re, a.im)

	scale := 1 / float64(n)
	rangeScale := 255 / (a.maxDB - a.minDB)
	for k := range a.smoothed {
		mag := math.Hypot(a.re[k], a.im[k]) * scale
		s := a.smoothing*a.smoothed[k] + (1-a.smoothing)*mag
		if math.IsNaN(s) || math.IsInf(s, 0) {
			s = 0
		}
		a.smoothed[k] = s

		if s <= 0 {
			a.freq[k] = 0
			continue
		}
		db := 20 * math.Log10(s)
		a.freq[k] = clampByte(rangeScale * (db - a.minDB))
	}
}

func clampByte(v float64) byte {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return byte(v)
}
