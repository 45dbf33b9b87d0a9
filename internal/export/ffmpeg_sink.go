package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/olivier-w/aves/internal/player"
	"github.com/olivier-w/aves/internal/video"
)

type codecPair struct {
	video, audio string
}

var codecs = map[string]codecPair{
	"mp4":  {video: "libx264", audio: "aac"},
	"webm": {video: "libvpx-vp9", audio: "libopus"},
	"gif":  {video: "gif"},
}

// FFmpegSink pipes raw RGBA frames into an ffmpeg process. The soundtrack
// is handed over as a temporary WAV file.
type FFmpegSink struct {
	cfg     SinkConfig
	dir     string
	outPath string

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr tailBuffer
	group  errgroup.Group
	cancel context.CancelFunc

	once sync.Once
}

// NewFFmpegSink starts ffmpeg for cfg. It returns ErrUnsupportedCapture
// when ffmpeg is missing or the format has no encoder.
func NewFFmpegSink(ctx context.Context, cfg SinkConfig) (Sink, error) {
	ffmpeg, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("%w: ffmpeg not found", ErrUnsupportedCapture)
	}
	if _, ok := codecs[cfg.Format]; !ok {
		return nil, fmt.Errorf("%w: format %q", ErrUnsupportedCapture, cfg.Format)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.FPS <= 0 {
		return nil, fmt.Errorf("%w: invalid stream %dx%d@%d", ErrInitFailed, cfg.Width, cfg.Height, cfg.FPS)
	}

	dir, err := os.MkdirTemp("", "aves-export-*")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInitFailed, err)
	}
	s := &FFmpegSink{cfg: cfg, dir: dir, outPath: filepath.Join(dir, SanitizeFilename(cfg.Name))}

	var wavPath string
	if codecs[cfg.Format].audio != "" && len(cfg.Audio) > 0 {
		wavPath = filepath.Join(dir, "audio.wav")
		if err := writeWAV(wavPath, cfg.Audio); err != nil {
			os.RemoveAll(dir)
			return nil, fmt.Errorf("%w: %w", ErrInitFailed, err)
		}
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.cmd = exec.CommandContext(ctx, ffmpeg, ffmpegArgs(cfg, wavPath, s.outPath)...)
	if s.stdin, err = s.cmd.StdinPipe(); err != nil {
		s.release()
		return nil, fmt.Errorf("%w: %w", ErrInitFailed, err)
	}
	stderr, err := s.cmd.StderrPipe()
	if err != nil {
		s.release()
		return nil, fmt.Errorf("%w: %w", ErrInitFailed, err)
	}
	if err := s.cmd.Start(); err != nil {
		s.release()
		return nil, fmt.Errorf("%w: starting ffmpeg: %w", ErrInitFailed, err)
	}

	// Wait must not run until stderr has been read to EOF.
	drained := make(chan struct{})
	s.group.Go(func() error {
		defer close(drained)
		_, err := io.Copy(&s.stderr, stderr)
		return err
	})
	s.group.Go(func() error {
		<-drained
		return s.cmd.Wait()
	})

	log.Debug().Str("out", s.outPath).Strs("args", s.cmd.Args[1:]).Msg("ffmpeg sink started")
	return s, nil
}

// ffmpegArgs builds the encoder command line.
func ffmpegArgs(cfg SinkConfig, wavPath, outPath string) []string {
	c := codecs[cfg.Format]
	args := []string{
		"-y", "-v", "error",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"-r", strconv.Itoa(cfg.FPS),
		"-i", "pipe:0",
	}
	withAudio := c.audio != "" && wavPath != ""
	if withAudio {
		args = append(args, "-i", wavPath)
	}

	args = append(args, "-c:v", c.video)
	if c.video != "gif" {
		if cfg.VideoBitrate != "" {
			args = append(args, "-b:v", cfg.VideoBitrate)
		}
		args = append(args, "-pix_fmt", "yuv420p")
	}

	if withAudio {
		args = append(args, "-c:a", c.audio)
		if cfg.AudioBitrate != "" {
			args = append(args, "-b:a", cfg.AudioBitrate)
		}
		args = append(args, "-shortest")
	} else {
		args = append(args, "-an")
	}
	return append(args, outPath)
}

// WriteFrame sends one frame. Its size must match the configured stream.
func (s *FFmpegSink) WriteFrame(frame *image.RGBA) error {
	b := frame.Bounds()
	if b.Dx() != s.cfg.Width || b.Dy() != s.cfg.Height {
		return fmt.Errorf("frame is %dx%d, stream is %dx%d", b.Dx(), b.Dy(), s.cfg.Width, s.cfg.Height)
	}
	rowBytes := 4 * b.Dx()
	if frame.Stride == rowBytes {
		start := frame.PixOffset(b.Min.X, b.Min.Y)
		if _, err := s.stdin.Write(frame.Pix[start : start+rowBytes*b.Dy()]); err != nil {
			return s.writeErr(err)
		}
		return nil
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		start := frame.PixOffset(b.Min.X, y)
		if _, err := s.stdin.Write(frame.Pix[start : start+rowBytes]); err != nil {
			return s.writeErr(err)
		}
	}
	return nil
}

func (s *FFmpegSink) writeErr(err error) error {
	if tail := s.stderr.String(); tail != "" {
		return fmt.Errorf("writing frame: %w: %s", err, tail)
	}
	return fmt.Errorf("writing frame: %w", err)
}

// Finalize closes the frame stream, waits for ffmpeg and checks that the
// output holds a video stream.
func (s *FFmpegSink) Finalize(ctx context.Context) (*Artifact, error) {
	var (
		artifact *Artifact
		err      error
	)
	s.once.Do(func() {
		artifact, err = s.finalize(ctx)
	})
	if artifact == nil && err == nil {
		return nil, fmt.Errorf("%w: sink already closed", ErrSinkFinalizeFailed)
	}
	return artifact, err
}

func (s *FFmpegSink) finalize(ctx context.Context) (*Artifact, error) {
	s.stdin.Close()
	waitErr := s.group.Wait()
	s.cancel()
	if waitErr != nil {
		os.RemoveAll(s.dir)
		return nil, fmt.Errorf("%w: ffmpeg: %w: %s", ErrSinkFinalizeFailed, waitErr, s.stderr.String())
	}
	os.Remove(filepath.Join(s.dir, "audio.wav"))

	probe, err := video.ProbeMedia(ctx, s.outPath)
	switch {
	case errors.Is(err, video.ErrFFprobeNotFound):
		log.Debug().Str("out", s.outPath).Msg("ffprobe missing, skipping artifact check")
	case err != nil:
		os.RemoveAll(s.dir)
		return nil, fmt.Errorf("%w: %w", ErrSinkFinalizeFailed, err)
	case !probe.HasVideo:
		os.RemoveAll(s.dir)
		return nil, fmt.Errorf("%w: no video stream in output", ErrSinkFinalizeFailed)
	}

	info, err := os.Stat(s.outPath)
	if err != nil {
		os.RemoveAll(s.dir)
		return nil, fmt.Errorf("%w: %w", ErrSinkFinalizeFailed, err)
	}
	return &Artifact{
		Name:        s.cfg.Name,
		ContentType: ContentType(s.cfg.Format),
		Path:        s.outPath,
		Size:        info.Size(),
		dir:         s.dir,
	}, nil
}

// Abort kills ffmpeg and removes every temporary file.
func (s *FFmpegSink) Abort() {
	s.once.Do(func() {
		s.cancel()
		s.stdin.Close()
		s.group.Wait()
		os.RemoveAll(s.dir)
	})
}

// release cleans up after a failed start.
func (s *FFmpegSink) release() {
	if s.cancel != nil {
		s.cancel()
	}
	os.RemoveAll(s.dir)
}

// writeWAV encodes interleaved stereo float samples as 16-bit PCM.
func writeWAV(path string, samples []float32) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating audio track: %w", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, player.GraphSampleRate, 16, player.GraphChannels, 1)
	data := make([]int, len(samples))
	for i, v := range samples {
		data[i] = int(player.ToInt16(v))
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: player.GraphChannels, SampleRate: player.GraphSampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encoding audio track: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finishing audio track: %w", err)
	}
	return nil
}

// tailBuffer keeps the last few KiB written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
}

const tailLimit = 4 << 10

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - tailLimit; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
