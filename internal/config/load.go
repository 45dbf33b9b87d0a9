package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps command-line flag names to settings keys.
var flagKeys = map[string]string{
	"mode":          "visualizer.type",
	"fft-size":      "visualizer.fftSize",
	"sensitivity":   "visualizer.sensitivity",
	"color":         "visualizer.color.type",
	"background":    "background.type",
	"bg-image":      "background.image",
	"eq":            "applyEqToAudio",
	"resolution":    "export.resolution",
	"fps":           "export.fps",
	"format":        "export.format",
	"video-bitrate": "export.videoBitrate",
	"audio-bitrate": "export.audioBitrate",
	"duration":      "export.duration",
	"realtime":      "export.realtime",
	"out":           "export.outputDir",
}

// RegisterFlags adds the settings flags to fs, using d for the defaults.
func RegisterFlags(fs *pflag.FlagSet, d Settings) {
	fs.StringP("mode", "m", string(d.Visualizer.Type), "visualizer mode: bars, circle, wave, waveform, particles")
	fs.Int("fft-size", d.Visualizer.FFTSize, "analyzer FFT size (power of two, 32-32768)")
	fs.Float64("sensitivity", d.Visualizer.Sensitivity, "visualizer sensitivity multiplier")
	fs.String("color", string(d.Visualizer.Color.Type), "color mode: solid, gradient, frequency")
	fs.String("background", string(d.Background.Type), "background: color, gradient, image")
	fs.String("bg-image", d.Background.Image, "background image path")
	fs.Bool("eq", d.ApplyEQ, "route audio through the equalizer")
	fs.StringP("resolution", "r", d.Export.Resolution, "export resolution: 720p, 1080p, 4k")
	fs.Int("fps", d.Export.FPS, "export frame rate")
	fs.StringP("format", "f", d.Export.Format, "export format: mp4, webm, gif")
	fs.String("video-bitrate", d.Export.VideoBitrate, "export video bitrate")
	fs.String("audio-bitrate", d.Export.AudioBitrate, "export audio bitrate")
	fs.Float64("duration", d.Export.Duration, "export duration in seconds (0 = whole track)")
	fs.Bool("realtime", d.Export.Realtime, "pace export frames against the wall clock")
	fs.StringP("out", "o", d.Export.OutputDir, "directory for exported files")
}

// Loader reads settings from an optional config file and command-line
// flags. Flags that were set explicitly win over the file.
type Loader struct {
	v     *viper.Viper
	path  string
	flags *pflag.FlagSet
}

// NewLoader creates a loader. path may be empty; flags may be nil.
func NewLoader(path string, flags *pflag.FlagSet) *Loader {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	}
	return &Loader{v: v, path: path, flags: flags}
}

// Load reads the file (if any) and returns the merged, validated settings.
func (l *Loader) Load() (Settings, error) {
	if l.path != "" {
		if err := l.v.ReadInConfig(); err != nil {
			return Default(), fmt.Errorf("reading config %s: %w", l.path, err)
		}
	}
	return l.settings()
}

func (l *Loader) settings() (Settings, error) {
	s, err := Merge(Default(), l.v.AllSettings())
	if err != nil {
		return Default(), err
	}
	return Merge(s, l.flagOverrides())
}

// flagOverrides returns only the flags the user changed, nested by key.
func (l *Loader) flagOverrides() map[string]any {
	out := make(map[string]any)
	if l.flags == nil {
		return out
	}
	l.flags.Visit(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}
		setNested(out, strings.Split(key, "."), f.Value.String())
	})
	return out
}

func setNested(m map[string]any, path []string, val any) {
	for _, k := range path[:len(path)-1] {
		next, ok := m[k].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[k] = next
		}
		m = next
	}
	m[path[len(path)-1]] = val
}

// Watch calls fn with freshly merged settings whenever the config file
// changes. It is a no-op when no file was given.
func (l *Loader) Watch(fn func(Settings, error)) {
	if l.path == "" {
		return
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		log.Debug().Str("file", e.Name).Str("op", e.Op.String()).Msg("config changed")
		fn(l.settings())
	})
	l.v.WatchConfig()
}
