package export

import (
	"context"
	"errors"
	"image"
	"image/png"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olivier-w/aves/internal/config"
	"github.com/olivier-w/aves/internal/player"
	"github.com/olivier-w/aves/internal/visualizer"
)

type fakeSink struct {
	mu          sync.Mutex
	cfg         SinkConfig
	frames      int
	failAt      int
	finalizeErr error
	aborted     bool
	finalized   bool
}

func (s *fakeSink) WriteFrame(frame *image.RGBA) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b := frame.Bounds(); b.Dx() != s.cfg.Width || b.Dy() != s.cfg.Height {
		return errors.New("wrong frame size")
	}
	if s.failAt >= 0 && s.frames == s.failAt {
		return errors.New("broken pipe")
	}
	s.frames++
	return nil
}

func (s *fakeSink) Finalize(context.Context) (*Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalized = true
	if s.finalizeErr != nil {
		return nil, s.finalizeErr
	}
	return &Artifact{Name: s.cfg.Name, ContentType: ContentType(s.cfg.Format)}, nil
}

func (s *fakeSink) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aborted = true
}

func (s *fakeSink) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// testExporter returns an exporter whose sink is fake and whose clock is
// fixed. The sink is created on first use.
func testExporter(sink *fakeSink) *Exporter {
	return &Exporter{
		NewSink: func(_ context.Context, cfg SinkConfig) (Sink, error) {
			sink.cfg = cfg
			return sink, nil
		},
		Now: func() time.Time { return time.Date(2024, 3, 5, 14, 7, 0, 0, time.Local) },
		NewRenderer: func() *visualizer.Renderer {
			return visualizer.NewWithRand(rand.New(rand.NewPCG(1, 2)))
		},
	}
}

func sineBuffer(seconds float64) *player.Buffer {
	frames := int(math.Round(seconds * player.GraphSampleRate))
	ch := make([]float32, frames)
	for i := range ch {
		ch[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/player.GraphSampleRate))
	}
	return &player.Buffer{SampleRate: player.GraphSampleRate, Channels: [][]float32{ch, ch}}
}

func testSettings() config.Settings {
	s := config.Default()
	s.Export.Resolution = "720p"
	s.Export.FPS = 30
	s.Export.Format = "mp4"
	return s
}

func TestExportRendersEveryFrame(t *testing.T) {
	sink := &fakeSink{failAt: -1}
	var progress []float64
	job, err := testExporter(sink).Run(context.Background(), Request{
		Buffer:     sineBuffer(10),
		Settings:   testSettings(),
		OnProgress: func(p float64) { progress = append(progress, p) },
	})
	require.NoError(t, err)

	assert.Equal(t, Succeeded, job.State())
	assert.Equal(t, 300, sink.Frames())
	assert.Equal(t, 300, job.Frames())
	assert.True(t, sink.finalized)
	assert.False(t, sink.aborted)
	assert.Equal(t, 1280, sink.cfg.Width)
	assert.Equal(t, 720, sink.cfg.Height)
	assert.Equal(t, "aves_audio_spectrum_20240305_1407.mp4", job.Artifact().Name)
	assert.Len(t, sink.cfg.Audio, 10*player.GraphSampleRate*player.GraphChannels)

	require.Len(t, progress, 301)
	assert.Equal(t, 0.0, progress[0])
	assert.Equal(t, 100.0, progress[len(progress)-1])
	for i := 1; i < len(progress); i++ {
		require.Greater(t, progress[i], progress[i-1], "progress at %d", i)
	}
	assert.Equal(t, 100.0, job.Progress())
}

func TestExportHonorsDurationLimit(t *testing.T) {
	sink := &fakeSink{failAt: -1}
	s := testSettings()
	s.Export.Duration = 2
	job, err := testExporter(sink).Run(context.Background(), Request{Buffer: sineBuffer(5), Settings: s})
	require.NoError(t, err)

	assert.Equal(t, 2.0, job.Duration)
	assert.Equal(t, 60, sink.Frames())
	assert.Len(t, sink.cfg.Audio, 2*player.GraphSampleRate*player.GraphChannels)
}

func TestExportStopsAtEndOfShortBuffer(t *testing.T) {
	sink := &fakeSink{failAt: -1}
	s := testSettings()
	s.Export.Duration = 60
	job, err := testExporter(sink).Run(context.Background(), Request{Buffer: sineBuffer(1), Settings: s})
	require.NoError(t, err)

	assert.Equal(t, 1.0, job.Duration)
	assert.Equal(t, 30, sink.Frames())
}

func TestExportFallsBackWhenCaptureUnsupported(t *testing.T) {
	e := testExporter(&fakeSink{failAt: -1})
	e.NewSink = func(context.Context, SinkConfig) (Sink, error) {
		return nil, ErrUnsupportedCapture
	}

	job, err := e.Run(context.Background(), Request{Buffer: sineBuffer(1), Settings: testSettings()})
	require.NoError(t, err)
	assert.Equal(t, FallbackCaptured, job.State())
	assert.ErrorIs(t, job.Err(), ErrUnsupportedCapture)

	a := job.Artifact()
	require.NotNil(t, a)
	t.Cleanup(func() { a.Remove() })
	assert.Equal(t, "image/png", a.ContentType)
	assert.Equal(t, "aves_audio_spectrum_20240305_1407.png", a.Name)

	f, err := os.Open(a.Path)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 1280, cfg.Width)
	assert.Equal(t, 720, cfg.Height)
}

func TestExportWriteFailureFallsBack(t *testing.T) {
	sink := &fakeSink{failAt: 5}
	job, err := testExporter(sink).Run(context.Background(), Request{Buffer: sineBuffer(2), Settings: testSettings()})
	require.NoError(t, err)

	assert.Equal(t, FallbackCaptured, job.State())
	assert.ErrorIs(t, job.Err(), ErrSourcePlaybackFailed)
	assert.True(t, sink.aborted)
	assert.False(t, sink.finalized)
	require.NotNil(t, job.Artifact())
	job.Artifact().Remove()
}

func TestExportFinalizeFailure(t *testing.T) {
	sink := &fakeSink{failAt: -1, finalizeErr: errors.New("moov atom not found")}
	job, err := testExporter(sink).Run(context.Background(), Request{Buffer: sineBuffer(1), Settings: testSettings()})

	require.ErrorIs(t, err, ErrSinkFinalizeFailed)
	assert.Equal(t, Failed, job.State())
	assert.Nil(t, job.Artifact())
}

func TestExportWithoutBuffer(t *testing.T) {
	sink := &fakeSink{failAt: -1}
	job, err := testExporter(sink).Run(context.Background(), Request{Settings: testSettings()})

	require.ErrorIs(t, err, ErrInitFailed)
	assert.Equal(t, Failed, job.State())
	assert.Zero(t, sink.Frames())
}

func TestExportSinkInitFailure(t *testing.T) {
	e := testExporter(&fakeSink{failAt: -1})
	e.NewSink = func(context.Context, SinkConfig) (Sink, error) {
		return nil, errors.New("no space left on device")
	}
	_, err := e.Run(context.Background(), Request{Buffer: sineBuffer(1), Settings: testSettings()})
	require.ErrorIs(t, err, ErrInitFailed)
}

func TestStartCancelsPreviousJob(t *testing.T) {
	s := testSettings()
	s.Export.Realtime = true
	e := testExporter(&fakeSink{failAt: -1})

	first := e.Start(context.Background(), Request{Buffer: sineBuffer(30), Settings: s})
	second := e.Start(context.Background(), Request{Buffer: sineBuffer(30), Settings: s})
	t.Cleanup(e.Cancel)

	select {
	case <-first.Done():
	default:
		t.Fatal("first job still running after Start returned")
	}
	assert.Equal(t, Failed, first.State())
	assert.ErrorIs(t, first.Err(), context.Canceled)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Same(t, second, e.Current())
}

type failingSource struct{}

func (failingSource) Pull(int) (int, error) { return 0, errors.New("device gone") }
func (failingSource) Position() float64 { return 0 }

func TestFallbackReportsSourceError(t *testing.T) {
	s := testSettings()
	g, err := newOfflineGraph(sineBuffer(1), s)
	require.NoError(t, err)
	defer g.close()
	g.src = failingSource{}

	e := testExporter(&fakeSink{failAt: -1})
	job := newJob()
	surface := image.NewRGBA(image.Rect(0, 0, 64, 36))
	e.fallback(job, Request{Settings: s}, g, surface, e.renderer(), e.now(), ErrUnsupportedCapture)

	assert.Equal(t, Failed, job.State())
	assert.Nil(t, job.Artifact())
	require.ErrorIs(t, job.Err(), ErrUnsupportedCapture)
	assert.ErrorContains(t, job.Err(), "device gone")
}

func TestResolve(t *testing.T) {
	tests := []struct {
		key  string
		want Resolution
	}{
		{"720p", Resolution{1280, 720}},
		{"1080p", Resolution{1920, 1080}},
		{"4k", Resolution{3840, 2160}},
		{"", Resolution{1920, 1080}},
		{"8k", Resolution{1920, 1080}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Resolve(tt.key), "Resolve(%q)", tt.key)
	}
}

func TestVirtualPacerBackstop(t *testing.T) {
	p := newVirtualPacer(10, 30)
	assert.Equal(t, 315, p.maxFrames)
	assert.True(t, p.wait(context.Background(), 314))
	assert.False(t, p.wait(context.Background(), 315))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, p.wait(ctx, 0))
}

func TestJobProgressNeverDecreases(t *testing.T) {
	j := newJob()
	assert.Equal(t, 40.0, j.advance(40))
	assert.Equal(t, 40.0, j.advance(10))
	assert.Equal(t, 100.0, j.advance(250))
	assert.Equal(t, 3, j.Frames())

	j.finish(Failed, nil, errors.New("boom"))
	j.finish(Succeeded, nil, nil)
	assert.Equal(t, Failed, j.State())
}

func TestFFmpegArgs(t *testing.T) {
	cfg := SinkConfig{Width: 1280, Height: 720, FPS: 30, Format: "mp4", VideoBitrate: "8000k", AudioBitrate: "256k"}
	args := ffmpegArgs(cfg, "/tmp/a.wav", "/tmp/out.mp4")
	assert.Subset(t, args, []string{"-s", "1280x720", "-r", "30", "-pix_fmt", "rgba", "libx264", "aac", "-shortest", "/tmp/a.wav"})
	assert.Equal(t, "/tmp/out.mp4", args[len(args)-1])

	cfg.Format = "webm"
	args = ffmpegArgs(cfg, "/tmp/a.wav", "/tmp/out.webm")
	assert.Contains(t, args, "libvpx-vp9")
	assert.Contains(t, args, "libopus")

	cfg.Format = "gif"
	args = ffmpegArgs(cfg, "/tmp/a.wav", "/tmp/out.gif")
	assert.Contains(t, args, "-an")
	assert.NotContains(t, args, "yuv420p")
	assert.NotContains(t, args, "/tmp/a.wav")
}

func TestWriteWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audio.wav")
	samples := []float32{0, 0, 0.5, -0.5, 1, -1}
	require.NoError(t, writeWAV(path, samples))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)

	assert.Equal(t, player.GraphSampleRate, buf.Format.SampleRate)
	assert.Equal(t, player.GraphChannels, buf.Format.NumChannels)
	require.Len(t, buf.Data, len(samples))
	assert.Equal(t, int(player.ToInt16(0.5)), buf.Data[2])
	assert.Equal(t, -32767, buf.Data[5])
}

func TestTailBufferKeepsEnd(t *testing.T) {
	var tb tailBuffer
	for range 3 {
		tb.Write(make([]byte, tailLimit))
	}
	tb.Write([]byte("error: done"))
	s := tb.String()
	assert.Len(t, s, tailLimit)
	assert.Equal(t, "error: done", s[len(s)-len("error: done"):])
}
