// Package export renders a decoded track off-screen, frame by frame, into
// a video file. When no video sink is available it saves a PNG still.
package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/olivier-w/aves/internal/analyzer"
	"github.com/olivier-w/aves/internal/config"
	"github.com/olivier-w/aves/internal/equalizer"
	"github.com/olivier-w/aves/internal/player"
	"github.com/olivier-w/aves/internal/visualizer"
)

const defaultFPS = 30

// Request is everything one export needs. The graph it runs is private to
// the export; the live player is never touched.
type Request struct {
	Buffer     *player.Buffer
	Settings   config.Settings
	Background *visualizer.Background
	// OnProgress is called from the export goroutine with the completed
	// percentage. Values never decrease.
	OnProgress func(percent float64)
}

// Exporter runs at most one export at a time.
type Exporter struct {
	// NewSink creates the recording sink. Defaults to NewFFmpegSink.
	NewSink NewSinkFunc
	// Now stamps artifact names. Defaults to time.Now.
	Now func() time.Time
	// NewRenderer creates the frame renderer. Defaults to visualizer.New.
	NewRenderer func() *visualizer.Renderer

	startMu sync.Mutex
	mu      sync.Mutex
	cancel  context.CancelFunc
	current *Job
}

// NewExporter returns an exporter recording through ffmpeg.
func NewExporter() *Exporter {
	return &Exporter{NewSink: NewFFmpegSink, Now: time.Now, NewRenderer: visualizer.New}
}

// Start cancels any running export, waits for it to release its
// resources, then starts req in the background.
func (e *Exporter) Start(ctx context.Context, req Request) *Job {
	e.startMu.Lock()
	defer e.startMu.Unlock()
	e.Cancel()

	ctx, cancel := context.WithCancel(ctx)
	job := e.prepare(req)
	e.mu.Lock()
	e.cancel = cancel
	e.current = job
	e.mu.Unlock()

	go func() {
		defer cancel()
		e.run(ctx, job, req)
	}()
	return job
}

// Run performs an export synchronously. The error is nil for both a
// finished video and a PNG fallback; check Job.State to tell them apart.
func (e *Exporter) Run(ctx context.Context, req Request) (*Job, error) {
	job := e.prepare(req)
	e.run(ctx, job, req)
	if job.State() == Failed {
		return job, job.Err()
	}
	return job, nil
}

// Cancel stops the running export, if any, and waits for it to finish.
func (e *Exporter) Cancel() {
	e.mu.Lock()
	cancel, job := e.cancel, e.current
	e.cancel, e.current = nil, nil
	e.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-job.Done()
}

// Current returns the most recently started job.
func (e *Exporter) Current() *Job {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

func (e *Exporter) prepare(req Request) *Job {
	s := req.Settings.Export
	res := Resolve(s.Resolution)
	job := newJob()
	job.Width, job.Height = res.Width, res.Height
	job.FPS = s.FPS
	if job.FPS <= 0 {
		job.FPS = defaultFPS
	}
	job.Format = s.Format
	job.VideoBitrate = s.VideoBitrate
	job.AudioBitrate = s.AudioBitrate
	job.Realtime = s.Realtime
	job.Duration = req.Buffer.Duration()
	if s.Duration > 0 && s.Duration < job.Duration {
		job.Duration = s.Duration
	}
	return job
}

func (e *Exporter) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func (e *Exporter) renderer() *visualizer.Renderer {
	if e.NewRenderer == nil {
		return visualizer.New()
	}
	return e.NewRenderer()
}

func (e *Exporter) run(ctx context.Context, job *Job, req Request) {
	job.setState(Initializing)
	logger := log.With().Str("job", job.ID).Logger()
	logger.Info().
		Int("width", job.Width).Int("height", job.Height).Int("fps", job.FPS).
		Float64("duration", job.Duration).Str("format", job.Format).
		Msg("export started")

	fail := func(err error) {
		logger.Error().Err(err).Msg("export failed")
		job.finish(Failed, nil, err)
	}

	if req.Buffer.Frames() == 0 || job.Duration <= 0 {
		fail(fmt.Errorf("%w: %w", ErrInitFailed, player.ErrNoBuffer))
		return
	}
	if job.Width <= 0 || job.Height <= 0 {
		fail(fmt.Errorf("%w: invalid surface %dx%d", ErrInitFailed, job.Width, job.Height))
		return
	}

	g, err := newOfflineGraph(req.Buffer, req.Settings)
	if err != nil {
		fail(fmt.Errorf("%w: %w", ErrInitFailed, err))
		return
	}
	defer g.close()

	surface := image.NewRGBA(image.Rect(0, 0, job.Width, job.Height))
	r := e.renderer()
	stamp := e.now()

	sink, err := e.newSink(ctx, SinkConfig{
		Width:        job.Width,
		Height:       job.Height,
		FPS:          job.FPS,
		Format:       job.Format,
		VideoBitrate: job.VideoBitrate,
		AudioBitrate: job.AudioBitrate,
		Audio:        exportAudio(req.Buffer, job.Duration, req.Settings),
		Name:         ArtifactName(stamp, job.Format),
	})
	switch {
	case errors.Is(err, ErrUnsupportedCapture):
		e.fallback(job, req, g, surface, r, stamp, err)
		return
	case err != nil:
		if !errors.Is(err, ErrInitFailed) {
			err = fmt.Errorf("%w: %w", ErrInitFailed, err)
		}
		fail(err)
		return
	}

	job.setState(Capturing)
	if err := capture(ctx, job, req, g, sink, surface, r); err != nil {
		sink.Abort()
		if ctx.Err() != nil {
			fail(fmt.Errorf("export cancelled: %w", ctx.Err()))
			return
		}
		e.fallback(job, req, g, surface, r, stamp, err)
		return
	}

	job.setState(Finalizing)
	artifact, err := sink.Finalize(ctx)
	if err != nil {
		if !errors.Is(err, ErrSinkFinalizeFailed) {
			err = fmt.Errorf("%w: %w", ErrSinkFinalizeFailed, err)
		}
		fail(err)
		return
	}
	if job.Progress() < 100 && req.OnProgress != nil {
		req.OnProgress(100)
	}
	job.finish(Succeeded, artifact, nil)
	logger.Info().Str("artifact", artifact.Name).Int64("size", artifact.Size).Int("frames", job.Frames()).Msg("export finished")
}

func (e *Exporter) newSink(ctx context.Context, cfg SinkConfig) (Sink, error) {
	if e.NewSink == nil {
		return NewFFmpegSink(ctx, cfg)
	}
	return e.NewSink(ctx, cfg)
}

// capture drives the lockstep loop: pull one frame of audio, snapshot,
// render, write. It stops at the export length, at the end of the
// buffer, when capturing is cleared or when the pacer gives up.
func capture(ctx context.Context, job *Job, req Request, g *offlineGraph, sink Sink, surface *image.RGBA, r *visualizer.Renderer) error {
	var capturing atomic.Bool
	capturing.Store(true)

	var p pacer
	if job.Realtime {
		p = newRealtimePacer(job.Duration, job.FPS, &capturing)
	} else {
		p = newVirtualPacer(job.Duration, job.FPS)
	}
	defer p.stop()

	if req.OnProgress != nil {
		req.OnProgress(0)
	}
	cfg := req.Settings.Visualizer
	fps := float64(job.FPS)
	pulled := 0
	for i := 0; capturing.Load(); i++ {
		if !p.wait(ctx, i) {
			break
		}
		if float64(i)/fps >= job.Duration {
			break
		}

		target := int(math.Round(float64(i+1) * player.GraphSampleRate / fps))
		n, err := g.src.Pull(target - pulled)
		pulled += n
		eof := errors.Is(err, io.EOF)
		if err != nil && !eof {
			return fmt.Errorf("%w: %w", ErrSourcePlaybackFailed, err)
		}
		if eof && n == 0 {
			break
		}

		snap, err := g.analyzer.Snapshot()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrSourcePlaybackFailed, err)
		}
		r.Render(surface, snap, cfg, req.Background)
		if err := sink.WriteFrame(surface); err != nil {
			return fmt.Errorf("%w: frame %d: %w", ErrSourcePlaybackFailed, i, err)
		}

		progress := job.advance(float64(i+1) / fps / job.Duration * 100)
		if req.OnProgress != nil {
			req.OnProgress(progress)
		}
		if eof {
			break
		}
	}
	return ctx.Err()
}

// fallback saves a single PNG still of the visualization and finishes
// the job as FallbackCaptured. cause is kept as the job's error.
func (e *Exporter) fallback(job *Job, req Request, g *offlineGraph, surface *image.RGBA, r *visualizer.Renderer, stamp time.Time, cause error) {
	log.Warn().Err(cause).Str("job", job.ID).Msg("video capture unavailable, saving still")

	// Give the analyzer something to show when capture never started.
	if g.src.Position() == 0 {
		if _, err := g.src.Pull(g.analyzer.FFTSize()); err != nil && !errors.Is(err, io.EOF) {
			job.finish(Failed, nil, fmt.Errorf("%w: reading audio for still: %w", cause, err))
			return
		}
	}
	snap, err := g.analyzer.Snapshot()
	if err != nil {
		job.finish(Failed, nil, fmt.Errorf("%w: %w", cause, err))
		return
	}
	r.Render(surface, snap, req.Settings.Visualizer, req.Background)

	artifact, err := writeStill(surface, ArtifactName(stamp, "png"))
	if err != nil {
		job.finish(Failed, nil, fmt.Errorf("%w: saving still: %w", cause, err))
		return
	}
	job.finish(FallbackCaptured, artifact, cause)
}

// audioSource feeds the export graph. *player.OfflineSource is the only
// production implementation.
type audioSource interface {
	Pull(frames int) (int, error)
	Position() float64
}

// offlineGraph is the private analysis chain of one export.
type offlineGraph struct {
	analyzer *analyzer.Analyzer
	eq       *equalizer.Chain
	src      audioSource
}

func newOfflineGraph(buf *player.Buffer, s config.Settings) (*offlineGraph, error) {
	an, err := analyzer.FromConfig(s.Visualizer)
	if err != nil {
		return nil, err
	}
	an.Connect(player.GraphSampleRate)

	var eq *equalizer.Chain
	if s.ApplyEQ {
		eq = equalizer.Build(s.Equalizer, player.GraphSampleRate)
	}
	return &offlineGraph{analyzer: an, eq: eq, src: player.NewOfflineSource(buf, eq, an)}, nil
}

func (g *offlineGraph) close() {
	g.analyzer.Disconnect()
	if g.eq != nil {
		g.eq.Close()
	}
}

// exportAudio renders the first total seconds of buf through a fresh
// equalizer (when enabled) as interleaved stereo at the graph rate.
func exportAudio(buf *player.Buffer, total float64, s config.Settings) []float32 {
	var eq *equalizer.Chain
	if s.ApplyEQ {
		eq = equalizer.Build(s.Equalizer, player.GraphSampleRate)
		defer eq.Close()
	}
	src := player.NewOfflineSource(buf.Slice(0, total), eq, nil)
	out := make([]float32, (int(math.Ceil(total*player.GraphSampleRate))+1)*player.GraphChannels)
	n, _ := src.Read(out)
	return out[:n*player.GraphChannels]
}
