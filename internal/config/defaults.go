package config

// DefaultEqualizerFrequencies are the centre frequencies of the stock
// ten-band equalizer.
var DefaultEqualizerFrequencies = []float64{32, 64, 125, 250, 500, 1000, 2000, 4000, 8000, 16000}

// Default returns the stock settings.
func Default() Settings {
	bands := make([]EqualizerBand, len(DefaultEqualizerFrequencies))
	for i, f := range DefaultEqualizerFrequencies {
		bands[i] = EqualizerBand{Frequency: f}
	}

	return Settings{
		Visualizer: Visualizer{
			Type:                  ModeBars,
			FFTSize:               2048,
			SmoothingTimeConstant: 0.8,
			Sensitivity:           1.0,
			MinDecibels:           -100,
			MaxDecibels:           -30,
			Bars: Bars{
				Count:           64,
				Width:           10,
				Spacing:         2,
				MinHeight:       2,
				RoundedTop:      true,
				HorizontalAlign: "center",
				VerticalAlign:   "bottom",
			},
			Circle: Circle{
				Radius:    100,
				MinRadius: 50,
				LineWidth: 2,
				CenterX:   0.5,
				CenterY:   0.5,
				Theme:     "default",
			},
			Wave: Wave{
				Points:    100,
				Amplitude: 50,
				Frequency: 1,
				Smoothing: 0.5,
				LineWidth: 3,
			},
			Color: Color{
				Type:  ColorSolid,
				Solid: "#3498DB",
				Gradient: Gradient{
					Colors: []string{"#3498DB", "#8E44AD"},
					Angle:  90,
				},
				FrequencyColors: []FrequencyStop{
					{Frequency: 20, Color: "#0000FF"},
					{Frequency: 200, Color: "#00FF00"},
					{Frequency: 500, Color: "#FFFF00"},
					{Frequency: 2000, Color: "#FF0000"},
					{Frequency: 20000, Color: "#FF00FF"},
				},
			},
		},
		Background: Background{
			Type:  BackgroundGradient,
			Color: "#000000",
			Gradient: Gradient{
				Colors: []string{"#16213E", "#0F3460", "#533483"},
				Angle:  180,
			},
			Opacity: 1,
		},
		Equalizer: bands,
		ApplyEQ:   true,
		Export: Export{
			Resolution:   "1080p",
			FPS:          30,
			Format:       "mp4",
			VideoBitrate: "8000k",
			AudioBitrate: "256k",
		},
	}
}
