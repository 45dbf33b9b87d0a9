package ui

import (
	"io"
	"math"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/olivier-w/aves/internal/analyzer"
	"github.com/olivier-w/aves/internal/config"
	"github.com/olivier-w/aves/internal/equalizer"
	"github.com/olivier-w/aves/internal/player"
	"github.com/olivier-w/aves/internal/queue"
	"github.com/olivier-w/aves/internal/video"
)

type manualClock struct {
	t float64
}

func (c *manualClock) Now() float64 { return c.t }

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

type silentOutput struct{}

func (silentOutput) Start(io.Reader) (io.Closer, error) { return nopCloser{}, nil }

func sineBuffer(seconds float64) *player.Buffer {
	frames := int(seconds * player.GraphSampleRate)
	left := make([]float32, frames)
	right := make([]float32, frames)
	for i := range left {
		v := float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/player.GraphSampleRate))
		left[i] = v
		right[i] = v
	}
	return &player.Buffer{SampleRate: player.GraphSampleRate, Channels: [][]float32{left, right}}
}

// testModel returns a model over a loaded 10 s buffer and a two-track queue.
func testModel(t *testing.T) (Model, *player.Controller, *manualClock) {
	t.Helper()
	an, err := analyzer.New(256, 0.8, -100, -30)
	if err != nil {
		t.Fatalf("analyzer.New() error = %v", err)
	}
	clock := &manualClock{}
	ctrl := player.NewController(clock, silentOutput{}, an)
	if err := ctrl.LoadBuffer(sineBuffer(10)); err != nil {
		t.Fatalf("LoadBuffer() error = %v", err)
	}
	q := queue.New([]queue.Track{
		{Title: "one", Path: "/music/one.mp3"},
		{Title: "two", Path: "/music/two.mp3"},
	})
	m := New(Options{
		Controller: ctrl,
		Queue:      q,
		Settings:   config.Default(),
		Terminal:   video.NewRendererMode(video.ColorOff),
	})
	return m, ctrl, clock
}

func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update() returned %T, want Model", next)
	}
	return nm, cmd
}

func TestNewStartsLoadingCurrentTrack(t *testing.T) {
	m, _, _ := testModel(t)
	if !m.loading {
		t.Fatal("expected model to start loading")
	}
	if m.title != "one" {
		t.Fatalf("title = %q, want one", m.title)
	}
}

func TestTransportKeys(t *testing.T) {
	m, ctrl, _ := testModel(t)

	m, _ = update(t, m, runeKey(" "))
	if ctrl.State() != player.StatePlaying {
		t.Fatalf("state after space = %v, want playing", ctrl.State())
	}
	m, _ = update(t, m, runeKey(" "))
	if ctrl.State() != player.StatePaused {
		t.Fatalf("state after second space = %v, want paused", ctrl.State())
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	if got := ctrl.Position(); got != 5 {
		t.Fatalf("position after seek = %v, want 5", got)
	}
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	if got := ctrl.Position(); got != 0 {
		t.Fatalf("position after seek back = %v, want 0", got)
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyUp})
	if got := ctrl.Volume(); math.Abs(got-0.85) > 1e-9 {
		t.Fatalf("volume = %v, want 0.85", got)
	}

	m, _ = update(t, m, runeKey("r"))
	if !ctrl.Looping() {
		t.Fatal("expected loop to be on")
	}

	_, _ = update(t, m, runeKey("s"))
	if ctrl.State() != player.StateReady || ctrl.Position() != 0 {
		t.Fatalf("after stop state=%v position=%v", ctrl.State(), ctrl.Position())
	}
}

func TestModeKeyCycles(t *testing.T) {
	m, _, _ := testModel(t)
	m, _ = update(t, m, runeKey("v"))
	if m.settings.Visualizer.Type != config.ModeCircle {
		t.Fatalf("mode = %q, want circle", m.settings.Visualizer.Type)
	}
}

func TestEqualizerKeys(t *testing.T) {
	m, ctrl, _ := testModel(t)
	eq := equalizer.Build([]config.EqualizerBand{
		{Frequency: 100}, {Frequency: 1000}, {Frequency: 10000},
	}, player.GraphSampleRate)
	ctrl.SetEqualizer(eq)

	m, _ = update(t, m, runeKey("]"))
	m, _ = update(t, m, runeKey("+"))
	m, _ = update(t, m, runeKey("+"))
	if got := eq.Bands()[1].Gain; got != 2 {
		t.Fatalf("band 1 gain = %v, want 2", got)
	}
	if got := m.settings.Equalizer[1].Gain; got != 2 {
		t.Fatalf("settings band 1 gain = %v, want 2", got)
	}

	m, _ = update(t, m, runeKey("["))
	m, _ = update(t, m, runeKey("["))
	if m.band != 2 {
		t.Fatalf("band = %d, want 2 after wrapping", m.band)
	}

	_, _ = update(t, m, runeKey("e"))
	if eq.Engaged() {
		t.Fatal("expected equalizer to be bypassed")
	}
}

func TestTickRendersFrame(t *testing.T) {
	m, ctrl, clock := testModel(t)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 40, Height: 25})
	if err := ctrl.Play(); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	clock.t = 1

	m, cmd := update(t, m, tickMsg{})
	if cmd == nil {
		t.Fatal("expected next tick command")
	}
	lines := strings.Split(m.frame, "\n")
	if len(lines) != 25-chromeLines {
		t.Fatalf("frame rows = %d, want %d", len(lines), 25-chromeLines)
	}
	if got := len(lines[0]); got != 36 {
		t.Fatalf("frame width = %d, want 36", got)
	}
	if ctrl.Position() != 1 {
		t.Fatalf("position = %v, want 1", ctrl.Position())
	}
}

func TestTickWithoutSizeDrawsNothing(t *testing.T) {
	m, _, _ := testModel(t)
	m, _ = update(t, m, tickMsg{})
	if m.frame != "" {
		t.Fatalf("expected empty frame, got %q", m.frame)
	}
}

func TestTrackFinishedAdvancesQueue(t *testing.T) {
	m, _, _ := testModel(t)
	m.loading = false

	cmd := m.trackFinished()
	if cmd == nil {
		t.Fatal("expected load command for next track")
	}
	if m.queue.CurrentIndex() != 1 || m.title != "two" || !m.loading {
		t.Fatalf("index=%d title=%q loading=%v", m.queue.CurrentIndex(), m.title, m.loading)
	}
	if m.queue.Track(0).State != queue.Done {
		t.Fatalf("track 0 state = %v, want Done", m.queue.Track(0).State)
	}

	m.trackFinished()
	if m.queue.CurrentIndex() != 1 {
		t.Fatal("expected queue to stay on the last track")
	}
}

func TestTrackLoadedIgnoresStaleIndex(t *testing.T) {
	m, _, _ := testModel(t)
	m, _ = update(t, m, trackLoadedMsg{index: 1})
	if !m.loading {
		t.Fatal("stale load result should be ignored")
	}
	m, _ = update(t, m, trackLoadedMsg{index: 0, err: player.ErrLoadSuperseded})
	if !m.loading {
		t.Fatal("superseded load result should be ignored")
	}
}

func TestTrackLoadedFailureMarksTrack(t *testing.T) {
	m, _, _ := testModel(t)
	m, _ = update(t, m, trackLoadedMsg{index: 0, err: player.ErrDecodeFailed})
	if m.loading {
		t.Fatal("expected loading to stop")
	}
	if m.queue.Track(0).State != queue.Failed {
		t.Fatalf("track state = %v, want Failed", m.queue.Track(0).State)
	}
	if !m.statusErr || !strings.Contains(m.status, "decode failed") {
		t.Fatalf("status = %q", m.status)
	}
}

func TestSettingsMsgReconfiguresAnalyzer(t *testing.T) {
	m, ctrl, _ := testModel(t)
	m, _ = update(t, m, runeKey("v"))

	s := config.Default()
	s.Visualizer.FFTSize = 512
	m, _ = update(t, m, SettingsMsg{Settings: s})
	if got := ctrl.Analyzer().FFTSize(); got != 512 {
		t.Fatalf("FFTSize() = %d, want 512", got)
	}
	if m.settings.Visualizer.Type != config.ModeCircle {
		t.Fatalf("mode = %q, want keyboard choice kept", m.settings.Visualizer.Type)
	}

	s.Visualizer.Type = config.ModeWave
	m, _ = update(t, m, SettingsMsg{Settings: s})
	if m.settings.Visualizer.Type != config.ModeWave {
		t.Fatalf("mode = %q, want wave from file", m.settings.Visualizer.Type)
	}
}

func TestSettingsMsgAppliesEqualizerGains(t *testing.T) {
	m, ctrl, _ := testModel(t)
	s := config.Default()
	eq := equalizer.Build(s.Equalizer, player.GraphSampleRate)
	ctrl.SetEqualizer(eq)

	s.Equalizer[3].Gain = -4
	m, _ = update(t, m, SettingsMsg{Settings: s})
	if ctrl.Equalizer() != eq {
		t.Fatal("reload replaced the equalizer chain")
	}
	if got := eq.Bands()[3].Gain; got != -4 {
		t.Fatalf("band 3 gain = %v, want -4", got)
	}
	if !eq.Engaged() {
		t.Fatal("gain reload changed the bypass state")
	}
	if m.settings.Equalizer[3].Gain != -4 {
		t.Fatalf("settings band 3 gain = %v, want -4", m.settings.Equalizer[3].Gain)
	}
}

func TestExportSettingsFollowLiveEqualizer(t *testing.T) {
	m, ctrl, _ := testModel(t)
	eq := equalizer.Build(config.Default().Equalizer, player.GraphSampleRate)
	ctrl.SetEqualizer(eq)

	m, _ = update(t, m, runeKey("+"))
	m, _ = update(t, m, runeKey("e"))
	s := m.exportSettings()
	if s.ApplyEQ {
		t.Fatal("export applies the equalizer while it is bypassed")
	}
	if s.Equalizer[0].Gain != 1 {
		t.Fatalf("export band 0 gain = %v, want 1", s.Equalizer[0].Gain)
	}

	m, _ = update(t, m, runeKey("e"))
	if !m.exportSettings().ApplyEQ {
		t.Fatal("export skips the equalizer while it is engaged")
	}
}

func TestExportWithoutSession(t *testing.T) {
	m, ctrl, _ := testModel(t)
	ctrl.Close()
	m, cmd := update(t, m, runeKey("x"))
	if cmd != nil || m.job != nil {
		t.Fatal("expected no export without a loaded track")
	}
	if m.status != "Nothing to export" {
		t.Fatalf("status = %q", m.status)
	}
}

func TestExportSavedShowsSize(t *testing.T) {
	m, _, _ := testModel(t)
	m, _ = update(t, m, exportSavedMsg{path: "/out/aves_audio_spectrum_20240101_0000.mp4", size: 1536})
	if m.status != "Saved aves_audio_spectrum_20240101_0000.mp4 (1.50 KB)" {
		t.Fatalf("status = %q", m.status)
	}
}

func TestQuitClosesController(t *testing.T) {
	m, ctrl, _ := testModel(t)
	m, cmd := update(t, m, runeKey("q"))
	if !m.quitting || cmd == nil {
		t.Fatal("expected quit")
	}
	if ctrl.State() != player.StateIdle {
		t.Fatalf("state = %v, want idle", ctrl.State())
	}
	if m.View() != "" {
		t.Fatal("expected empty view after quit")
	}
}

func TestViewShowsPlayerLines(t *testing.T) {
	m, _, _ := testModel(t)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 30})
	view := m.View()
	for _, want := range []string{"aves", "one", "0:00", "vol 80%", "bass", "eq off", "n/p track"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestRenderMeter(t *testing.T) {
	tests := []struct {
		level float64
		want  string
	}{
		{0, "    "},
		{1, "████"},
		{0.5, "██  "},
		{2, "████"},
		{0.0625, "▎   "},
	}
	for _, tt := range tests {
		if got := renderMeter(tt.level, 4); got != tt.want {
			t.Fatalf("renderMeter(%v) = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestRenderProgressBar(t *testing.T) {
	got := renderProgressBar(5, 10, 12)
	if got != "━━━━━─────" {
		t.Fatalf("renderProgressBar() = %q", got)
	}
	if got := renderProgressBar(1, 0, 12); got != strings.Repeat("─", 10) {
		t.Fatalf("renderProgressBar(zero total) = %q", got)
	}
}

func TestHelpTextQueueKeys(t *testing.T) {
	if strings.Contains(helpText(false), "n/p") {
		t.Fatal("single track help should not list track keys")
	}
	if !strings.Contains(helpText(true), "n/p track") {
		t.Fatal("queue help should list track keys")
	}
}
