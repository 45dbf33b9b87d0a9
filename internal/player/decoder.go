package player

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"
)

// pcmDecoder is implemented by all format-specific decoders. Read fills
// dst with interleaved samples in [-1, 1] and returns how many it wrote.
type pcmDecoder interface {
	Read(dst []float32) (int, error)
	SampleRate() int
	ChannelCount() int
	// Frames is the total frame count, or 0 when unknown.
	Frames() int64
}

// newNativeDecoder returns a decoder for the formats with a Go decoder.
func newNativeDecoder(f *os.File, format string) (pcmDecoder, error) {
	switch format {
	case "mp3":
		return newMP3Decoder(f)
	case "wav":
		return newWAVDecoder(f)
	case "flac":
		return newFLACDecoder(f)
	case "ogg":
		return newOGGDecoder(f)
	default:
		return nil, fmt.Errorf("no native decoder for %q", format)
	}
}

// --- MP3 decoder ---

// mp3Decoder converts go-mp3's 16-bit stereo stream to float.
type mp3Decoder struct {
	dec *mp3.Decoder
	raw []byte
}

func newMP3Decoder(f *os.File) (*mp3Decoder, error) {
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, err
	}
	return &mp3Decoder{dec: dec}, nil
}

func (d *mp3Decoder) Read(dst []float32) (int, error) {
	need := len(dst) * 2
	if cap(d.raw) < need {
		d.raw = make([]byte, need)
	}
	n, err := io.ReadFull(d.dec, d.raw[:need])
	samples := n / 2
	for i := range samples {
		dst[i] = float32(int16(binary.LittleEndian.Uint16(d.raw[i*2:]))) / 32768
	}
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return samples, err
}

func (d *mp3Decoder) SampleRate() int   { return d.dec.SampleRate() }
func (d *mp3Decoder) ChannelCount() int { return 2 }
func (d *mp3Decoder) Frames() int64     { return d.dec.Length() / 4 }

// --- WAV decoder ---

const wavFormatFloat = 3

// wavDecoder reads the PCM chunk directly after go-audio/wav has located
// it, converting 8/16/24/32-bit integer or 32-bit float samples.
type wavDecoder struct {
	file      *os.File
	remaining int64
	channels  int
	rate      int
	bitDepth  int
	float     bool
	raw       []byte
}

func newWAVDecoder(f *os.File) (*wavDecoder, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file")
	}
	// FwdToPCM positions the reader at the start of PCM data
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("reading WAV PCM data: %w", err)
	}

	d := &wavDecoder{
		file:      f,
		remaining: dec.PCMLen(),
		channels:  int(dec.NumChans),
		rate:      int(dec.SampleRate),
		bitDepth:  int(dec.BitDepth),
		float:     dec.WavAudioFormat == wavFormatFloat,
	}
	switch {
	case d.float && d.bitDepth != 32:
		return nil, fmt.Errorf("unsupported float WAV bit depth %d", d.bitDepth)
	case d.bitDepth != 8 && d.bitDepth != 16 && d.bitDepth != 24 && d.bitDepth != 32:
		return nil, fmt.Errorf("unsupported WAV bit depth %d", d.bitDepth)
	case d.channels < 1:
		return nil, fmt.Errorf("invalid WAV channel count %d", d.channels)
	}
	return d, nil
}

func (d *wavDecoder) Read(dst []float32) (int, error) {
	if d.remaining <= 0 {
		return 0, io.EOF
	}
	width := d.bitDepth / 8
	want := min(int64(len(dst)*width), d.remaining)
	want -= want % int64(width)
	if want == 0 {
		return 0, io.EOF
	}
	if int64(cap(d.raw)) < want {
		d.raw = make([]byte, want)
	}
	buf := d.raw[:want]
	n, err := io.ReadFull(d.file, buf)
	d.remaining -= int64(n)

	samples := n / width
	for i := range samples {
		off := i * width
		switch {
		case d.float:
			dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
		case d.bitDepth == 8:
			// 8-bit WAV is unsigned
			dst[i] = float32(int(buf[off])-128) / 128
		case d.bitDepth == 16:
			dst[i] = float32(int16(binary.LittleEndian.Uint16(buf[off:]))) / 32768
		case d.bitDepth == 24:
			s := int32(buf[off]) | int32(buf[off+1])<<8 | int32(buf[off+2])<<16
			if s&0x800000 != 0 {
				s |= ^0xFFFFFF // sign extend
			}
			dst[i] = float32(s) / (1 << 23)
		default:
			dst[i] = float32(float64(int32(binary.LittleEndian.Uint32(buf[off:]))) / (1 << 31))
		}
	}
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return samples, err
}

func (d *wavDecoder) SampleRate() int   { return d.rate }
func (d *wavDecoder) ChannelCount() int { return d.channels }
func (d *wavDecoder) Frames() int64 {
	return d.remaining / int64(d.channels*d.bitDepth/8)
}

// --- FLAC decoder ---

type flacDecoder struct {
	stream   *flac.Stream
	pending  []float32
	channels int
	rate     int
	scale    float32
	frames   int64
}

func newFLACDecoder(f *os.File) (*flacDecoder, error) {
	stream, err := flac.NewSeek(f)
	if err != nil {
		return nil, fmt.Errorf("decoding FLAC: %w", err)
	}
	info := stream.Info
	return &flacDecoder{
		stream:   stream,
		channels: int(info.NChannels),
		rate:     int(info.SampleRate),
		scale:    1 / float32(int64(1)<<(info.BitsPerSample-1)),
		frames:   int64(info.NSamples),
	}, nil
}

func (d *flacDecoder) Read(dst []float32) (int, error) {
	written := 0
	for written < len(dst) {
		if len(d.pending) > 0 {
			n := copy(dst[written:], d.pending)
			d.pending = d.pending[n:]
			written += n
			continue
		}

		frame, err := d.stream.ParseNext()
		if err != nil {
			if written > 0 && err == io.EOF {
				return written, nil
			}
			return written, err
		}
		nSamples := int(frame.Subframes[0].NSamples)
		block := make([]float32, nSamples*d.channels)
		for i := range nSamples {
			for ch := range d.channels {
				block[i*d.channels+ch] = float32(frame.Subframes[ch].Samples[i]) * d.scale
			}
		}
		d.pending = block
	}
	return written, nil
}

func (d *flacDecoder) SampleRate() int   { return d.rate }
func (d *flacDecoder) ChannelCount() int { return d.channels }
func (d *flacDecoder) Frames() int64     { return d.frames }

// --- OGG Vorbis decoder ---

type oggDecoder struct {
	reader *oggvorbis.Reader
}

func newOGGDecoder(f *os.File) (*oggDecoder, error) {
	reader, err := oggvorbis.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("decoding OGG: %w", err)
	}
	return &oggDecoder{reader: reader}, nil
}

func (d *oggDecoder) Read(dst []float32) (int, error) {
	// oggvorbis requires whole frames.
	ch := d.reader.Channels()
	n := len(dst) - len(dst)%ch
	if n == 0 {
		return 0, nil
	}
	return d.reader.Read(dst[:n])
}

func (d *oggDecoder) SampleRate() int   { return d.reader.SampleRate() }
func (d *oggDecoder) ChannelCount() int { return d.reader.Channels() }
func (d *oggDecoder) Frames() int64     { return d.reader.Length() }
