package equalizer

import "math"

// biquad is a direct form I second-order section with normalized
// coefficients (a0 == 1).
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64

	// Per-channel history, sized on the first call to process.
	x1, x2 []float64
	y1, y2 []float64
}

func newPeaking(sampleRate, freq, gainDB float64) *biquad {
	f := &biquad{}
	f.setPeaking(sampleRate, freq, gainDB)
	return f
}

// setPeaking loads RBJ cookbook peaking EQ coefficients.
func (f *biquad) setPeaking(sampleRate, freq, gainDB float64) {
	nyquist := sampleRate / 2
	if freq <= 0 || sampleRate <= 0 || freq >= nyquist {
		// Out of band: pass through.
		f.b0, f.b1, f.b2, f.a1, f.a2 = 1, 0, 0, 0, 0
		return
	}

	a := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * freq / sampleRate
	cosW := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * Q)

	a0 := 1 + alpha/a
	f.b0 = (1 + alpha*a) / a0
	f.b1 = (-2 * cosW) / a0
	f.b2 = (1 - alpha*a) / a0
	f.a1 = (-2 * cosW) / a0
	f.a2 = (1 - alpha/a) / a0
}

func (f *biquad) reset() {
	clear(f.x1)
	clear(f.x2)
	clear(f.y1)
	clear(f.y2)
}

func (f *biquad) process(samples []float32, channels int) {
	if len(f.x1) != channels {
		f.x1 = make([]float64, channels)
		f.x2 = make([]float64, channels)
		f.y1 = make([]float64, channels)
		f.y2 = make([]float64, channels)
	}
	for i := 0; i+channels <= len(samples); i += channels {
		for c := range channels {
			x := float64(samples[i+c])
			y := f.b0*x + f.b1*f.x1[c] + f.b2*f.x2[c] - f.a1*f.y1[c] - f.a2*f.y2[c]
			f.x2[c], f.x1[c] = f.x1[c], x
			f.y2[c], f.y1[c] = f.y1[c], y
			samples[i+c] = float32(y)
		}
	}
}
