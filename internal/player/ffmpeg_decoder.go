package player

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strconv"
	"time"
)

var errFFmpegNotFound = errors.New("ffmpeg not found (required for this audio format)")

// ffmpegDecoder decodes any container ffmpeg understands. ffmpeg performs
// the conversion to the graph layout, so its output is already 48 kHz
// stereo float.
type ffmpegDecoder struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	r      *bufio.Reader
	frames int64
	raw    []byte
}

// ffprobeResult holds parsed ffprobe JSON output.
type ffprobeResult struct {
	Streams []struct {
		CodecType  string `json:"codec_type"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

type audioProbe struct {
	sampleRate int
	channels   int
	duration   time.Duration
}

// probeAudio uses ffprobe to get audio stream metadata.
func probeAudio(ctx context.Context, path string) (*audioProbe, error) {
	ffprobe, err := exec.LookPath("ffprobe")
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, ffprobe,
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		"-select_streams", "a:0",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	var result ffprobeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return nil, fmt.Errorf("parsing ffprobe output: %w", err)
	}
	if len(result.Streams) == 0 {
		return nil, fmt.Errorf("no audio stream found")
	}

	stream := result.Streams[0]
	sr, err := strconv.Atoi(stream.SampleRate)
	if err != nil || sr <= 0 {
		sr = 44100
	}
	channels := stream.Channels
	if channels <= 0 {
		channels = 2
	}
	durSec, err := strconv.ParseFloat(result.Format.Duration, 64)
	if err != nil || durSec < 0 {
		durSec = 0
	}

	return &audioProbe{
		sampleRate: sr,
		channels:   channels,
		duration:   time.Duration(durSec * float64(time.Second)),
	}, nil
}

// newFFmpegDecoder starts ffmpeg writing f32le PCM to a pipe. The process
// is killed when ctx is cancelled.
func newFFmpegDecoder(ctx context.Context, path string) (*ffmpegDecoder, error) {
	ffmpeg, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, errFFmpegNotFound
	}

	// The probe is only used for a capacity hint; a failing probe still
	// lets ffmpeg try the file.
	var frames int64
	if probe, err := probeAudio(ctx, path); err == nil {
		frames = int64(probe.duration.Seconds() * GraphSampleRate)
	}

	cmd := exec.CommandContext(ctx, ffmpeg,
		"-v", "quiet",
		"-i", path,
		"-vn",
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-ar", strconv.Itoa(GraphSampleRate),
		"-ac", strconv.Itoa(GraphChannels),
		"pipe:1",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("setting up ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting ffmpeg: %w", err)
	}

	return &ffmpegDecoder{
		cmd:    cmd,
		stdout: stdout,
		r:      bufio.NewReaderSize(stdout, 64*1024),
		frames: frames,
	}, nil
}

func (d *ffmpegDecoder) Read(dst []float32) (int, error) {
	need := len(dst) * 4
	if cap(d.raw) < need {
		d.raw = make([]byte, need)
	}
	n, err := io.ReadFull(d.r, d.raw[:need])
	samples := n / 4
	for i := range samples {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(d.raw[i*4:]))
	}
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return samples, err
}

func (d *ffmpegDecoder) SampleRate() int   { return GraphSampleRate }
func (d *ffmpegDecoder) ChannelCount() int { return GraphChannels }
func (d *ffmpegDecoder) Frames() int64     { return d.frames }

// Close waits for the process. A non-zero exit after a complete read is
// reported so that truncated decodes are not mistaken for success.
func (d *ffmpegDecoder) Close() error {
	_, _ = io.Copy(io.Discard, d.stdout)
	if err := d.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg: %w", err)
	}
	return nil
}

// hasFFmpeg returns true if ffmpeg is available on PATH.
func hasFFmpeg() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}
