// Package config holds the typed settings that drive the analyzer, the
// renderer, the equalizer and the export pipeline.
//
// Settings are plain values. Callers take a copy and pass it down; nothing
// in the render or playback path reads a shared global.
package config

// Mode selects the visualizer drawing routine.
type Mode string

const (
	ModeBars      Mode = "bars"
	ModeCircle    Mode = "circle"
	ModeWave      Mode = "wave"
	ModeWaveform  Mode = "waveform"
	ModeParticles Mode = "particles"
)

// Modes lists every drawing mode in display order.
var Modes = []Mode{ModeBars, ModeCircle, ModeWave, ModeWaveform, ModeParticles}

// Next cycles to the following mode.
func (m Mode) Next() Mode {
	for i, mode := range Modes {
		if mode == m {
			return Modes[(i+1)%len(Modes)]
		}
	}
	return ModeBars
}

// ColorType selects how shapes are painted.
type ColorType string

const (
	ColorSolid     ColorType = "solid"
	ColorGradient  ColorType = "gradient"
	ColorFrequency ColorType = "frequency"
)

// BackgroundType selects what is drawn behind the visualization.
type BackgroundType string

const (
	BackgroundColor    BackgroundType = "color"
	BackgroundGradient BackgroundType = "gradient"
	BackgroundImage    BackgroundType = "image"
)

// Settings is the complete application configuration.
type Settings struct {
	Visualizer Visualizer      `mapstructure:"visualizer"`
	Background Background      `mapstructure:"background"`
	Equalizer  []EqualizerBand `mapstructure:"equalizer" validate:"max=32,dive"`
	// ApplyEQ routes audio through the equalizer chain. When false the chain
	// is bypassed for both live playback and export.
	ApplyEQ bool   `mapstructure:"applyEqToAudio"`
	Export  Export `mapstructure:"export"`
}

// Visualizer configures the analyzer and the active drawing mode.
type Visualizer struct {
	Type                  Mode    `mapstructure:"type" validate:"oneof=bars circle wave waveform particles"`
	FFTSize               int     `mapstructure:"fftSize" validate:"min=32,max=32768,pow2"`
	SmoothingTimeConstant float64 `mapstructure:"smoothingTimeConstant" validate:"gte=0,lt=1"`
	Sensitivity           float64 `mapstructure:"sensitivity" validate:"gt=0"`
	MinDecibels           float64 `mapstructure:"minDecibels"`
	MaxDecibels           float64 `mapstructure:"maxDecibels" validate:"gtfield=MinDecibels"`

	Bars   Bars   `mapstructure:"bars"`
	Circle Circle `mapstructure:"circle"`
	Wave   Wave   `mapstructure:"wave"`
	Color  Color  `mapstructure:"color"`
}

// Bars is the geometry block for ModeBars.
type Bars struct {
	Count           int     `mapstructure:"count" validate:"min=1,max=1024"`
	Width           float64 `mapstructure:"width" validate:"gte=0"`
	Spacing         float64 `mapstructure:"spacing" validate:"gte=0"`
	MinHeight       float64 `mapstructure:"minHeight" validate:"gte=0"`
	RoundedTop      bool    `mapstructure:"roundedTop"`
	HorizontalAlign string  `mapstructure:"horizontalAlign" validate:"oneof=left center right"`
	VerticalAlign   string  `mapstructure:"verticalAlign" validate:"oneof=top middle bottom"`
}

// Circle is the geometry block for ModeCircle.
type Circle struct {
	// Count is the number of angular slices. Zero uses a quarter of the
	// frequency bins.
	Count      int     `mapstructure:"count" validate:"gte=0,max=4096"`
	Radius     float64 `mapstructure:"radius" validate:"gt=0"`
	MinRadius  float64 `mapstructure:"minRadius" validate:"gte=0"`
	LineWidth  float64 `mapstructure:"lineWidth" validate:"gte=0"`
	CenterX    float64 `mapstructure:"centerX" validate:"gte=0,lte=1"`
	CenterY    float64 `mapstructure:"centerY" validate:"gte=0,lte=1"`
	Rotation   float64 `mapstructure:"rotation"`
	MirrorMode bool    `mapstructure:"mirrorMode"`
	Theme      string  `mapstructure:"theme" validate:"oneof=default outline outlineFilled hollow"`
}

// Wave is the geometry block for ModeWave.
type Wave struct {
	Points    int     `mapstructure:"points" validate:"min=2,max=4096"`
	Amplitude float64 `mapstructure:"amplitude" validate:"gte=0"`
	Frequency float64 `mapstructure:"frequency" validate:"gte=0"`
	Smoothing float64 `mapstructure:"smoothing" validate:"gte=0,lt=1"`
	LineWidth float64 `mapstructure:"lineWidth" validate:"gt=0"`
}

// Color describes how shapes are painted.
type Color struct {
	Type            ColorType       `mapstructure:"type" validate:"oneof=solid gradient frequency"`
	Solid           string          `mapstructure:"solid" validate:"omitempty,hexcolor"`
	Gradient        Gradient        `mapstructure:"gradient"`
	FrequencyColors []FrequencyStop `mapstructure:"frequencyColors" validate:"dive"`
}

// Gradient is an ordered list of color stops spread evenly along Angle
// (degrees, 0 = left to right, 90 = top to bottom).
type Gradient struct {
	Colors []string `mapstructure:"colors" validate:"dive,hexcolor"`
	Angle  float64  `mapstructure:"angle"`
}

// FrequencyStop maps a frequency in Hz to a color.
type FrequencyStop struct {
	Frequency float64 `mapstructure:"freq" validate:"gt=0"`
	Color     string  `mapstructure:"color" validate:"hexcolor"`
}

// Background configures the backdrop.
type Background struct {
	Type     BackgroundType `mapstructure:"type" validate:"oneof=color gradient image"`
	Color    string         `mapstructure:"color" validate:"omitempty,hexcolor"`
	Gradient Gradient       `mapstructure:"gradient"`
	// Image is a path to a PNG, JPEG, GIF, WebP or BMP file.
	Image   string  `mapstructure:"image"`
	Opacity float64 `mapstructure:"opacity" validate:"gte=0,lte=1"`
	Blur    float64 `mapstructure:"blur" validate:"gte=0,lte=100"`
}

// EqualizerBand is one peaking band. Gain is in dB.
type EqualizerBand struct {
	Frequency float64 `mapstructure:"frequency" validate:"gt=0"`
	Gain      float64 `mapstructure:"gain" validate:"gte=-12,lte=12"`
}

// Export configures the export pipeline.
type Export struct {
	// Resolution is a key such as "720p", "1080p" or "4k". Unknown keys
	// render at 1080p.
	Resolution   string `mapstructure:"resolution"`
	FPS          int    `mapstructure:"fps" validate:"min=1,max=120"`
	Format       string `mapstructure:"format" validate:"oneof=mp4 webm gif"`
	VideoBitrate string `mapstructure:"videoBitrate"`
	AudioBitrate string `mapstructure:"audioBitrate"`
	// Duration limits the export length in seconds. Zero exports the whole
	// track.
	Duration float64 `mapstructure:"duration" validate:"gte=0"`
	// Realtime paces frames against the wall clock instead of rendering
	// as fast as the encoder accepts them.
	Realtime  bool   `mapstructure:"realtime"`
	OutputDir string `mapstructure:"outputDir"`
}

// Clone returns a deep copy so callers can mutate slices freely.
func (s Settings) Clone() Settings {
	out := s
	out.Equalizer = append([]EqualizerBand(nil), s.Equalizer...)
	out.Visualizer.Color = s.Visualizer.Color.clone()
	out.Background.Gradient = s.Background.Gradient.clone()
	return out
}

func (c Color) clone() Color {
	out := c
	out.Gradient = c.Gradient.clone()
	out.FrequencyColors = append([]FrequencyStop(nil), c.FrequencyColors...)
	return out
}

func (g Gradient) clone() Gradient {
	return Gradient{Colors: append([]string(nil), g.Colors...), Angle: g.Angle}
}
