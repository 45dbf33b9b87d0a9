package export

import (
	"math"
	"sync"

	"github.com/google/uuid"
)

// State is the lifecycle of a Job.
type State int

const (
	Idle State = iota
	Initializing
	Capturing
	Finalizing
	Succeeded
	FallbackCaptured
	Failed
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Capturing:
		return "capturing"
	case Finalizing:
		return "finalizing"
	case Succeeded:
		return "succeeded"
	case FallbackCaptured:
		return "fallback"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// Terminal reports whether the job has finished.
func (s State) Terminal() bool {
	return s == Succeeded || s == FallbackCaptured || s == Failed
}

// Resolution is a named output size.
type Resolution struct {
	Width, Height int
}

var resolutions = map[string]Resolution{
	"720p":  {1280, 720},
	"1080p": {1920, 1080},
	"4k":    {3840, 2160},
}

// Resolve maps a resolution key to pixel dimensions. Unknown keys resolve
// to 1080p.
func Resolve(key string) Resolution {
	if r, ok := resolutions[key]; ok {
		return r
	}
	return resolutions["1080p"]
}

// Job is one export. Its fields describe the request; the accessors report
// progress and are safe to call from any goroutine.
type Job struct {
	ID           string
	Width        int
	Height       int
	FPS          int
	Duration     float64
	Format       string
	VideoBitrate string
	AudioBitrate string
	Realtime     bool

	mu       sync.Mutex
	state    State
	progress float64
	frames   int
	artifact *Artifact
	err      error
	done     chan struct{}
}

func newJob() *Job {
	return &Job{ID: uuid.NewString(), done: make(chan struct{})}
}

// State returns the current state.
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Progress returns the completed fraction in [0, 100].
func (j *Job) Progress() float64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.progress
}

// Frames returns the number of frames delivered to the sink.
func (j *Job) Frames() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.frames
}

// Artifact returns the output once the job succeeded or fell back.
func (j *Job) Artifact() *Artifact {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.artifact
}

// Err returns the failure, or the capture error that caused a fallback.
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Done is closed when the job reaches a terminal state.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

func (j *Job) setState(s State) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.state = s
}

// advance records a delivered frame and raises progress to p. Progress
// never moves backwards.
func (j *Job) advance(p float64) float64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.frames++
	p = math.Max(0, math.Min(100, p))
	if p > j.progress {
		j.progress = p
	}
	return j.progress
}

func (j *Job) finish(s State, a *Artifact, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.Terminal() {
		return
	}
	j.state = s
	j.artifact = a
	j.err = err
	if s == Succeeded {
		j.progress = 100
	}
	close(j.done)
}
