package player

import (
	"encoding/binary"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/olivier-w/aves/internal/analyzer"
	"github.com/olivier-w/aves/internal/equalizer"
)

// bytesPerFrame is the size of one interleaved s16le output frame.
const bytesPerFrame = GraphChannels * 2

// graph is the processing chain every source runs: equalizer (or
// bypass), gain, then the analyzer tap. Any stage may be nil.
type graph struct {
	eq       *equalizer.Chain
	analyzer *analyzer.Analyzer
	gain     *atomic.Uint64
}

func (g graph) process(frames []float32) {
	g.eq.Process(frames, GraphChannels)
	if g.gain != nil {
		if v := float32(math.Float64frombits(g.gain.Load())); v != 1 {
			for i := range frames {
				frames[i] *= v
			}
		}
	}
	if g.analyzer != nil {
		g.analyzer.Write(frames, GraphChannels)
	}
}

// cursor walks a Buffer frame by frame, wrapping when loop is set.
type cursor struct {
	buf  *Buffer
	pos  int
	loop *atomic.Bool
}

// fill writes up to len(dst)/GraphChannels frames and reports how many
// it produced and whether the end of a non-looping buffer was reached.
func (c *cursor) fill(dst []float32) (int, bool) {
	total := c.buf.Frames()
	want := len(dst) / GraphChannels
	n := 0
	for n < want {
		if c.pos >= total {
			if total == 0 || !c.loop.Load() {
				return n, true
			}
			c.pos = 0
		}
		c.buf.frameAt(c.pos, dst[n*GraphChannels:(n+1)*GraphChannels])
		c.pos++
		n++
	}
	return n, false
}

// sourceNode is the live source. oto pulls s16le bytes from it on its own
// goroutine.
type sourceNode struct {
	gen     uint64
	graph   graph
	ended   chan<- uint64
	scratch []float32

	mu       sync.Mutex
	cur      cursor
	stopped  bool
	posted   bool
	buffered func() int
}

// drainPoll is how often a finished source checks whether the output has
// played out its buffered audio.
const drainPoll = 10 * time.Millisecond

func newSourceNode(gen uint64, buf *Buffer, start int, loop *atomic.Bool, g graph, ended chan<- uint64) *sourceNode {
	return &sourceNode{
		gen:   gen,
		graph: g,
		ended: ended,
		cur:   cursor{buf: buf, pos: clampFrame(start, buf.Frames()), loop: loop},
	}
}

func (s *sourceNode) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return 0, io.EOF
	}

	frames := len(p) / bytesPerFrame
	if frames == 0 {
		return 0, nil
	}
	if cap(s.scratch) < frames*GraphChannels {
		s.scratch = make([]float32, frames*GraphChannels)
	}
	buf := s.scratch[:frames*GraphChannels]

	n, done := s.cur.fill(buf)
	buf = buf[:n*GraphChannels]
	s.graph.process(buf)
	for i, v := range buf {
		binary.LittleEndian.PutUint16(p[i*2:], uint16(ToInt16(v)))
	}

	if done {
		s.postEnded()
		if n == 0 {
			return 0, io.EOF
		}
	}
	return n * bytesPerFrame, nil
}

// setBuffered installs a probe for the bytes the output has read but not
// yet played. With one set, the end is reported only after they drain.
func (s *sourceNode) setBuffered(fn func() int) {
	s.mu.Lock()
	s.buffered = fn
	s.mu.Unlock()
}

// postEnded reports the natural end once. The channel is buffered and
// a full channel drops the notice; Tick will observe the end anyway.
func (s *sourceNode) postEnded() {
	if s.posted || s.ended == nil {
		return
	}
	s.posted = true
	if s.buffered != nil {
		go s.awaitDrain(s.buffered)
		return
	}
	s.send()
}

func (s *sourceNode) awaitDrain(buffered func() int) {
	t := time.NewTicker(drainPoll)
	defer t.Stop()
	for buffered() > 0 {
		<-t.C
		s.mu.Lock()
		stopped := s.stopped
		s.mu.Unlock()
		if stopped {
			return
		}
	}
	s.send()
}

func (s *sourceNode) send() {
	select {
	case s.ended <- s.gen:
	default:
	}
}

// Close detaches the source. Later reads return io.EOF.
func (s *sourceNode) Close() error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	return nil
}

// ToInt16 converts a float sample in [-1, 1] to signed 16-bit PCM,
// clipping out-of-range values.
func ToInt16(v float32) int16 {
	switch {
	case v >= 1:
		return math.MaxInt16
	case v <= -1:
		return -math.MaxInt16
	}
	return int16(v * math.MaxInt16)
}

// OfflineSource runs a buffer through the same chain as live playback
// without an output device. Export pulls it once per video frame.
type OfflineSource struct {
	graph graph
	cur   cursor
	buf   []float32
}

// NewOfflineSource creates a source over buf, resampled to the graph rate
// if needed. eq and an may be nil.
func NewOfflineSource(buf *Buffer, eq *equalizer.Chain, an *analyzer.Analyzer) *OfflineSource {
	return &OfflineSource{
		graph: graph{eq: eq, analyzer: an},
		cur:   cursor{buf: buf.atGraphRate(), loop: new(atomic.Bool)},
	}
}

// Pull processes the next frames sample frames. It returns the number
// processed and io.EOF once the buffer is exhausted.
func (o *OfflineSource) Pull(frames int) (int, error) {
	if frames <= 0 {
		return 0, nil
	}
	if cap(o.buf) < frames*GraphChannels {
		o.buf = make([]float32, frames*GraphChannels)
	}
	return o.Read(o.buf[:frames*GraphChannels])
}

// Read processes the next len(dst)/GraphChannels frames into dst as
// interleaved samples. It returns the number of frames written and io.EOF
// once the buffer is exhausted.
func (o *OfflineSource) Read(dst []float32) (int, error) {
	n, done := o.cur.fill(dst)
	o.graph.process(dst[:n*GraphChannels])
	if done {
		return n, io.EOF
	}
	return n, nil
}

// Position returns the playhead in seconds.
func (o *OfflineSource) Position() float64 {
	if o.cur.buf.SampleRate <= 0 {
		return 0
	}
	return float64(o.cur.pos) / float64(o.cur.buf.SampleRate)
}
