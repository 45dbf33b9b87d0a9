package ui

import (
	"github.com/charmbracelet/harmonica"

	"github.com/olivier-w/aves/internal/analyzer"
)

type springField struct {
	spring harmonica.Spring
	pos    []float64
	vel    []float64
}

func newSpringField(fps int, frequency, damping float64) springField {
	return springField{spring: harmonica.NewSpring(harmonica.FPS(fps), frequency, damping)}
}

func (s *springField) resize(n int) {
	if len(s.pos) == n {
		return
	}
	s.pos = make([]float64, n)
	s.vel = make([]float64, n)
}

func (s *springField) step(i int, target float64) float64 {
	p, v := s.spring.Update(s.pos[i], s.vel[i], target)
	s.pos[i] = p
	s.vel[i] = v
	return p
}

// meterBand is a frequency range shown as one level meter.
type meterBand struct {
	label  string
	lo, hi float64
}

var meterBands = []meterBand{
	{"bass", 20, 250},
	{"mid", 250, 4000},
	{"treble", 4000, 16000},
}

// meters eases band energies toward each new snapshot so the readout
// does not flicker at the tick rate.
type meters struct {
	field  springField
	levels []float64
}

func newMeters(fps int) meters {
	f := newSpringField(fps, 6.0, 0.6)
	f.resize(len(meterBands))
	return meters{field: f, levels: make([]float64, len(meterBands))}
}

func (m *meters) update(snap analyzer.Snapshot) {
	for i, b := range meterBands {
		v := m.field.step(i, snap.BandEnergy(b.lo, b.hi))
		m.levels[i] = min(max(v, 0), 1)
	}
}

func (m *meters) reset() {
	for i := range m.levels {
		m.field.pos[i] = 0
		m.field.vel[i] = 0
		m.levels[i] = 0
	}
}
