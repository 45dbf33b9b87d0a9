package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"github.com/rs/zerolog/log"
)

// sniffLen is the header size filetype needs to match every type it knows.
const sniffLen = 261

// maxPrealloc caps the capacity hint taken from a decoder's frame count.
const maxPrealloc = 1 << 27

// Decode reads path fully into a Buffer at the graph layout. Formats with
// a native decoder are read in-process; anything else is handed to
// ffmpeg when it is installed. Failures wrap ErrDecodeFailed.
func Decode(ctx context.Context, path string) (*Buffer, error) {
	buf, err := decodeFile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecodeFailed, filepath.Base(path), err)
	}
	log.Debug().
		Str("path", path).
		Float64("duration", buf.Duration()).
		Int("frames", buf.Frames()).
		Msg("decoded")
	return buf, nil
}

func decodeFile(ctx context.Context, path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	format, err := detectFormat(f, path)
	if err != nil {
		return nil, err
	}

	var nativeErr error
	if dec, err := newNativeDecoder(f, format); err == nil {
		samples, err := readAll(ctx, dec)
		if err == nil {
			return normalize(samples, dec.SampleRate(), dec.ChannelCount())
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		nativeErr = err
	} else {
		nativeErr = err
	}

	if !hasFFmpeg() {
		if format == "" || isFFmpegOnly(format) {
			return nil, errFFmpegNotFound
		}
		return nil, nativeErr
	}
	log.Debug().Str("path", path).Str("format", format).AnErr("native", nativeErr).Msg("falling back to ffmpeg decode")
	return decodeWithFFmpeg(ctx, path)
}

func decodeWithFFmpeg(ctx context.Context, path string) (*Buffer, error) {
	dec, err := newFFmpegDecoder(ctx, path)
	if err != nil {
		return nil, err
	}
	samples, readErr := readAll(ctx, dec)
	closeErr := dec.Close()
	if readErr != nil {
		return nil, readErr
	}
	if closeErr != nil {
		return nil, closeErr
	}
	return normalize(samples, dec.SampleRate(), dec.ChannelCount())
}

// detectFormat sniffs the file header and falls back to the extension
// when the content is not recognized. The file is rewound afterwards.
func detectFormat(f *os.File, path string) (string, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading header: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewinding: %w", err)
	}

	if kind, err := filetype.Match(head[:n]); err == nil && kind != filetype.Unknown {
		return kind.Extension, nil
	}
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."), nil
}

func isFFmpegOnly(format string) bool {
	switch format {
	case "mp3", "wav", "flac", "ogg":
		return false
	}
	return true
}

// readAll drains dec into one interleaved slice, checking ctx between
// chunks.
func readAll(ctx context.Context, dec pcmDecoder) ([]float32, error) {
	channels := dec.ChannelCount()
	if channels < 1 {
		return nil, fmt.Errorf("invalid channel count %d", channels)
	}
	capHint := min(dec.Frames()*int64(channels), maxPrealloc)
	out := make([]float32, 0, max(capHint, 0))

	chunk := make([]float32, 4096*channels)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := dec.Read(chunk)
		out = append(out, chunk[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if n == 0 {
			break
		}
	}
	if len(out) < channels {
		return nil, fmt.Errorf("no audio samples")
	}
	return out, nil
}
