package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/olivier-w/aves/internal/analyzer"
	"github.com/olivier-w/aves/internal/equalizer"
)

// State is the playback state.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StatePlaying
	StatePaused
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateEnded:
		return "ended"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Clock is the graph clock, in seconds.
type Clock interface {
	Now() float64
}

type monotonicClock struct {
	start time.Time
}

func (c monotonicClock) Now() float64 { return time.Since(c.start).Seconds() }

// NewClock returns a clock measuring monotonic time from now.
func NewClock() Clock {
	return monotonicClock{start: time.Now()}
}

// Session is a loaded asset.
type Session struct {
	Path     string
	Buffer   *Buffer
	Metadata Metadata
}

// Controller owns the decoded buffer and the single live source. Elapsed
// time is derived from an anchor on the graph clock rather than polled
// from the output.
type Controller struct {
	clock    Clock
	output   Output
	analyzer *analyzer.Analyzer

	mu        sync.Mutex
	eq        *equalizer.Chain
	state     State
	session   *Session
	position  float64
	anchor    float64
	loadToken uint64
	gen       uint64
	source    *sourceNode
	handle    io.Closer

	loop  atomic.Bool
	gain  atomic.Uint64
	ended chan uint64
}

// DefaultVolume is the initial gain.
const DefaultVolume = 0.8

// NewController creates an idle controller. an may be nil.
func NewController(clock Clock, out Output, an *analyzer.Analyzer) *Controller {
	c := &Controller{
		clock:    clock,
		output:   out,
		analyzer: an,
		ended:    make(chan uint64, 4),
	}
	c.gain.Store(math.Float64bits(DefaultVolume))
	return c
}

// Ended delivers the generation of a source that reached its natural end.
// Forward each value to SourceEnded.
func (c *Controller) Ended() <-chan uint64 {
	return c.ended
}

// SetEqualizer wires eq into the graph. A playing source is restarted at
// its current position so only one source is ever connected.
func (c *Controller) SetEqualizer(eq *equalizer.Chain) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eq = eq
	if c.state == StatePlaying {
		c.position = c.elapsedLocked()
		if err := c.startLocked(); err != nil {
			log.Debug().Err(err).Msg("restart after equalizer change")
		}
	}
}

// Equalizer returns the wired chain, which may be nil.
func (c *Controller) Equalizer() *equalizer.Chain {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eq
}

// Analyzer returns the analyzer tap, which may be nil.
func (c *Controller) Analyzer() *analyzer.Analyzer {
	return c.analyzer
}

// Load decodes path and makes it the current session. Any playing source
// is torn down first. If another Load starts before this one finishes,
// this result is dropped and ErrLoadSuperseded is returned.
func (c *Controller) Load(ctx context.Context, path string) error {
	c.mu.Lock()
	c.loadToken++
	token := c.loadToken
	c.teardownLocked()
	c.session = nil
	c.position = 0
	c.state = StateLoading
	c.mu.Unlock()

	buf, err := Decode(ctx, path)
	var md Metadata
	if err == nil {
		md = ReadMetadata(path)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if token != c.loadToken {
		return ErrLoadSuperseded
	}
	if err != nil {
		c.state = StateIdle
		log.Debug().Err(err).Str("path", path).Msg("load failed")
		return err
	}
	c.installLocked(&Session{Path: path, Buffer: buf, Metadata: md})
	return nil
}

// LoadBuffer installs an already decoded buffer.
func (c *Controller) LoadBuffer(buf *Buffer) error {
	if buf == nil || buf.Frames() == 0 {
		return ErrNoBuffer
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadToken++
	c.teardownLocked()
	c.installLocked(&Session{Buffer: buf.atGraphRate()})
	return nil
}

func (c *Controller) installLocked(s *Session) {
	c.session = s
	c.position = 0
	c.state = StateReady
	if c.analyzer != nil {
		c.analyzer.Reset()
		c.analyzer.Connect(GraphSampleRate)
	}
}

// Play starts playback from the stored position. It is a no-op while
// already playing.
func (c *Controller) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StatePlaying {
		return nil
	}
	if c.session == nil {
		return ErrNoBuffer
	}
	return c.startLocked()
}

// Pause stores the elapsed position and tears down the source.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StatePlaying {
		return
	}
	c.position = c.elapsedLocked()
	c.teardownLocked()
	c.state = StatePaused
}

// TogglePause plays when paused or ready and pauses when playing.
func (c *Controller) TogglePause() error {
	if c.State() == StatePlaying {
		c.Pause()
		return nil
	}
	return c.Play()
}

// Stop tears down the source and rewinds to 0.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return
	}
	c.teardownLocked()
	c.position = 0
	c.state = StateReady
}

// Seek moves to t seconds, clamped to the track. A playing source is
// replaced by a new one starting at t; otherwise only the stored
// position changes.
func (c *Controller) Seek(t float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ErrNoBuffer
	}
	c.position = clampTime(t, c.durationLocked())
	if c.state == StatePlaying {
		return c.startLocked()
	}
	return nil
}

// SeekBy moves relative to the current position.
func (c *Controller) SeekBy(delta float64) error {
	return c.Seek(c.Position() + delta)
}

// SetVolume clamps v to [0, 1] and applies it to the gain stage.
func (c *Controller) SetVolume(v float64) {
	if math.IsNaN(v) {
		v = 0
	}
	c.gain.Store(math.Float64bits(clampTime(v, 1)))
}

// Volume returns the current gain.
func (c *Controller) Volume() float64 {
	return math.Float64frombits(c.gain.Load())
}

// ToggleLoop flips the loop flag. The in-flight source sees the change
// on its next read. It returns the new value.
func (c *Controller) ToggleLoop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StatePlaying {
		// Re-anchor so the elapsed time stays inside the track.
		c.position = c.elapsedLocked()
		c.anchor = c.clock.Now() - c.position
	}
	on := !c.loop.Load()
	c.loop.Store(on)
	return on
}

// Looping reports the loop flag.
func (c *Controller) Looping() bool {
	return c.loop.Load()
}

// Tick recomputes the position from the anchor. Call it once per display
// frame. It returns true when playback reached its natural end during
// this call, after the controller has moved to Ready at 0.
func (c *Controller) Tick() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StatePlaying {
		return false
	}
	dur := c.durationLocked()
	elapsed := c.clock.Now() - c.anchor
	if elapsed < dur {
		c.position = max(elapsed, 0)
		return false
	}
	if c.loop.Load() && dur > 0 {
		wraps := math.Floor(elapsed / dur)
		c.anchor += wraps * dur
		c.position = elapsed - wraps*dur
		return false
	}
	c.finishLocked()
	return true
}

// SourceEnded handles the end notice from Ended. Stale generations and
// notices arriving after Tick already handled the end are ignored. It
// returns true when this call performed the end transition.
func (c *Controller) SourceEnded(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.state != StatePlaying {
		return false
	}
	if c.loop.Load() {
		// Loop was switched on after the source gave up; start over.
		c.position = 0
		if err := c.startLocked(); err != nil {
			log.Debug().Err(err).Msg("loop restart")
		}
		return false
	}
	c.finishLocked()
	return true
}

func (c *Controller) finishLocked() {
	c.teardownLocked()
	c.state = StateEnded
	log.Debug().Uint64("gen", c.gen).Msg("playback ended")
	c.position = 0
	c.state = StateReady
}

// Position returns the elapsed time in seconds.
func (c *Controller) Position() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StatePlaying {
		return c.elapsedLocked()
	}
	return c.position
}

// Duration returns the session length in seconds.
func (c *Controller) Duration() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.durationLocked()
}

// State returns the playback state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns the loaded session, or nil.
func (c *Controller) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Close tears down playback and returns to Idle.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadToken++
	c.teardownLocked()
	c.session = nil
	c.position = 0
	c.state = StateIdle
	if c.analyzer != nil {
		c.analyzer.Disconnect()
	}
}

// startLocked replaces any live source with a new one at c.position.
func (c *Controller) startLocked() error {
	c.teardownLocked()
	buf := c.session.Buffer
	c.gen++
	src := newSourceNode(
		c.gen,
		buf,
		int(math.Round(c.position*float64(buf.SampleRate))),
		&c.loop,
		graph{eq: c.eq, analyzer: c.analyzer, gain: &c.gain},
		c.ended,
	)
	h, err := c.output.Start(src)
	if err != nil {
		if c.state == StatePlaying {
			c.state = StatePaused
		}
		return fmt.Errorf("starting output: %w", err)
	}
	if b, ok := h.(bufferedSizer); ok {
		src.setBuffered(b.BufferedSize)
	}
	c.source = src
	c.handle = h
	c.anchor = c.clock.Now() - c.position
	c.state = StatePlaying
	return nil
}

func (c *Controller) teardownLocked() {
	if c.source != nil {
		_ = c.source.Close()
		c.source = nil
	}
	if c.handle != nil {
		if err := c.handle.Close(); err != nil && !errors.Is(err, io.EOF) {
			log.Debug().Err(err).Msg("closing output")
		}
		c.handle = nil
	}
}

func (c *Controller) elapsedLocked() float64 {
	dur := c.durationLocked()
	elapsed := c.clock.Now() - c.anchor
	if c.loop.Load() && dur > 0 && elapsed >= dur {
		elapsed = math.Mod(elapsed, dur)
	}
	return clampTime(elapsed, dur)
}

func (c *Controller) durationLocked() float64 {
	if c.session == nil {
		return 0
	}
	return c.session.Buffer.Duration()
}

func clampTime(t, hi float64) float64 {
	return max(0, min(t, hi))
}
