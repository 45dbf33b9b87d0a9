// Package equalizer implements a chain of peaking biquad filters that sits
// between the audio source and the analyzer tap.
package equalizer

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/olivier-w/aves/internal/config"
)

// Gain limits in dB. Requests outside this range are clamped.
const (
	MinGain = -12.0
	MaxGain = 12.0
)

// Q is the fixed bandwidth of every band.
const Q = 1.0

// ErrInvalidBandIndex is returned by SetGain for an index outside the chain.
var ErrInvalidBandIndex = errors.New("equalizer: invalid band index")

// Chain is an owned handle to one set of filters. Process runs on the
// audio goroutine; the other methods may be called concurrently with it.
type Chain struct {
	mu         sync.Mutex
	sampleRate float64
	bands      []config.EqualizerBand
	filters    []*biquad
	engaged    bool
	closed     bool
}

// Build creates an engaged chain for bands at sampleRate. Bands are
// ordered by ascending frequency regardless of input order.
func Build(bands []config.EqualizerBand, sampleRate int) *Chain {
	c := &Chain{sampleRate: float64(sampleRate), engaged: true}
	c.rebuild(bands)
	return c
}

// Rebuild tears down every filter and recreates the chain from bands.
// Filter state starts from silence. The engaged flag is kept.
func (c *Chain) Rebuild(bands []config.EqualizerBand) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.rebuild(bands)
}

// Apply brings the chain to bands. When the band count and frequencies
// match the running chain only the gains change, in place, and filter
// state is kept. Otherwise the chain is rebuilt. Apply reports whether it
// rebuilt.
func (c *Chain) Apply(bands []config.EqualizerBand) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	sorted := sortBands(bands)
	if !sameFrequencies(c.bands, sorted) {
		c.rebuild(sorted)
		return true
	}
	for i := range sorted {
		dB := clampGain(sorted[i].Gain)
		if dB == c.bands[i].Gain {
			continue
		}
		c.bands[i].Gain = dB
		c.filters[i].setPeaking(c.sampleRate, c.bands[i].Frequency, dB)
	}
	return false
}

func sameFrequencies(a, b []config.EqualizerBand) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Frequency != b[i].Frequency {
			return false
		}
	}
	return true
}

func sortBands(bands []config.EqualizerBand) []config.EqualizerBand {
	sorted := slices.Clone(bands)
	slices.SortStableFunc(sorted, func(a, b config.EqualizerBand) int {
		switch {
		case a.Frequency < b.Frequency:
			return -1
		case a.Frequency > b.Frequency:
			return 1
		}
		return 0
	})
	return sorted
}

func (c *Chain) rebuild(bands []config.EqualizerBand) {
	sorted := sortBands(bands)
	c.bands = sorted
	c.filters = make([]*biquad, len(sorted))
	for i := range sorted {
		sorted[i].Gain = clampGain(sorted[i].Gain)
		c.filters[i] = newPeaking(c.sampleRate, sorted[i].Frequency, sorted[i].Gain)
	}
}

// SetGain updates band i in place. The filter keeps its state; only its
// coefficients change.
func (c *Chain) SetGain(i int, dB float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	if i < 0 || i >= len(c.bands) {
		return fmt.Errorf("%w: %d (have %d bands)", ErrInvalidBandIndex, i, len(c.bands))
	}
	dB = clampGain(dB)
	c.bands[i].Gain = dB
	c.filters[i].setPeaking(c.sampleRate, c.bands[i].Frequency, dB)
	return nil
}

// Bypass routes audio around the whole chain.
func (c *Chain) Bypass() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.engaged = false
}

// Engage routes audio through the chain.
func (c *Chain) Engage() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if !c.engaged {
		for _, f := range c.filters {
			f.reset()
		}
	}
	c.engaged = true
}

// Engaged reports whether audio currently passes through the filters.
func (c *Chain) Engaged() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engaged && !c.closed
}

// Bands returns a copy of the bands in chain order.
func (c *Chain) Bands() []config.EqualizerBand {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.bands)
}

// Len returns the number of bands.
func (c *Chain) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.bands)
}

// Close tears the chain down. Later calls on it are no-ops and Process
// passes audio through unchanged.
func (c *Chain) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.filters = nil
}

// Process filters interleaved samples in place.
func (c *Chain) Process(samples []float32, channels int) {
	if c == nil || channels <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.engaged || c.closed {
		return
	}
	for _, f := range c.filters {
		f.process(samples, channels)
	}
}

func clampGain(dB float64) float64 {
	if math.IsNaN(dB) {
		return 0
	}
	return max(MinGain, min(MaxGain, dB))
}
