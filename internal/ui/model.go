// Package ui is the interactive terminal player: it drives the playback
// controller, draws the visualizer into the terminal every tick, and
// starts exports of the loaded track.
package ui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/olivier-w/aves/internal/config"
	"github.com/olivier-w/aves/internal/export"
	"github.com/olivier-w/aves/internal/player"
	"github.com/olivier-w/aves/internal/queue"
	"github.com/olivier-w/aves/internal/util"
	"github.com/olivier-w/aves/internal/video"
	"github.com/olivier-w/aves/internal/visualizer"
)

const (
	seekStep   = 5.0
	volumeStep = 0.05
	gainStep   = 1.0
	// chromeLines is how many rows the view uses around the visualizer.
	chromeLines = 15
	statusTTL   = 5 * time.Second
)

// Options wires a Model. Controller and Queue are required; the rest
// default when nil.
type Options struct {
	Controller *player.Controller
	Queue      *queue.Queue
	Settings   config.Settings
	Background *visualizer.Background
	Exporter   *export.Exporter
	Renderer   *visualizer.Renderer
	Terminal   *video.Renderer
}

// Model is the Bubbletea model for the aves TUI.
type Model struct {
	ctrl     *player.Controller
	queue    *queue.Queue
	settings config.Settings
	bg       *visualizer.Background
	exporter *export.Exporter
	viz      *visualizer.Renderer
	term     *video.Renderer
	meters   meters

	title    string
	subtitle string
	frame    string
	width    int
	height   int
	band     int
	loading  bool
	quitting bool

	status     string
	statusErr  bool
	statusTime time.Time

	job *export.Job
	// fileMode is the mode last read from settings, to tell a reload
	// that changed it from one that left the keyboard choice alone.
	fileMode config.Mode
}

// New creates a Model that plays the queue's current track on Init.
func New(opts Options) Model {
	m := Model{
		ctrl:     opts.Controller,
		queue:    opts.Queue,
		settings: opts.Settings,
		bg:       opts.Background,
		exporter: opts.Exporter,
		viz:      opts.Renderer,
		term:     opts.Terminal,
		meters:   newMeters(frameRate),
		fileMode: opts.Settings.Visualizer.Type,
	}
	if m.bg == nil {
		m.bg = &visualizer.Background{}
	}
	if m.exporter == nil {
		m.exporter = export.NewExporter()
	}
	if m.viz == nil {
		m.viz = visualizer.New()
	}
	if m.term == nil {
		m.term = video.NewRenderer()
	}
	if t := m.queue.Current(); t != nil {
		m.title = t.Title
		m.loading = true
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), waitEnded(m.ctrl), m.loadCurrent(), tea.SetWindowTitle(windowTitle(m.title, false)))
}

// loadCurrent decodes and starts the queue's current track.
func (m Model) loadCurrent() tea.Cmd {
	t := m.queue.Current()
	if t == nil {
		return nil
	}
	ctrl, index, path := m.ctrl, m.queue.CurrentIndex(), t.Path
	return func() tea.Msg {
		err := ctrl.Load(context.Background(), path)
		if err == nil {
			err = ctrl.Play()
		}
		return trackLoadedMsg{index: index, err: err}
	}
}

func waitEnded(ctrl *player.Controller) tea.Cmd {
	return func() tea.Msg {
		return sourceEndedMsg(<-ctrl.Ended())
	}
}

func waitExport(job *export.Job) tea.Cmd {
	return func() tea.Msg {
		<-job.Done()
		return exportDoneMsg{job: job}
	}
}

func saveArtifact(a *export.Artifact, dir string) tea.Cmd {
	return func() tea.Msg {
		path, err := a.Save(dir)
		return exportSavedMsg{path: path, size: a.Size, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		ended := m.ctrl.Tick()
		m.redraw()
		if m.status != "" && time.Since(m.statusTime) > statusTTL {
			m.status = ""
		}
		if ended {
			next := m.trackFinished()
			return m, tea.Batch(tickCmd(), next)
		}
		return m, tickCmd()

	case sourceEndedMsg:
		cmds := []tea.Cmd{waitEnded(m.ctrl)}
		if m.ctrl.SourceEnded(uint64(msg)) {
			cmds = append(cmds, m.trackFinished())
		}
		return m, tea.Batch(cmds...)

	case trackLoadedMsg:
		if errors.Is(msg.err, player.ErrLoadSuperseded) || msg.index != m.queue.CurrentIndex() {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.queue.SetTrackState(msg.index, queue.Failed)
			m.setStatus(fmt.Sprintf("Cannot play: %v", msg.err), true)
			return m, nil
		}
		m.queue.SetTrackState(msg.index, queue.Playing)
		if s := m.ctrl.Session(); s != nil {
			m.title = s.Metadata.DisplayName()
			if m.title == "" {
				m.title = m.queue.Current().Title
			}
			m.subtitle = subtitle(s.Metadata)
			m.queue.SetTrackTitle(msg.index, m.title)
		}
		m.meters.reset()
		return m, tea.SetWindowTitle(windowTitle(m.title, false))

	case exportDoneMsg:
		if msg.job != m.job {
			return m, nil
		}
		a := msg.job.Artifact()
		if a == nil {
			m.setStatus(fmt.Sprintf("Export failed: %v", msg.job.Err()), true)
			return m, nil
		}
		if msg.job.State() == export.FallbackCaptured {
			log.Info().Err(msg.job.Err()).Msg("video capture unavailable, saved still")
		}
		m.setStatus("Saving "+a.Name+"...", false)
		return m, saveArtifact(a, m.settings.Export.OutputDir)

	case exportSavedMsg:
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("Save failed: %v", msg.err), true)
		} else {
			m.setStatus(fmt.Sprintf("Saved %s (%s)", filepath.Base(msg.path), util.FormatFileSize(msg.size)), false)
		}
		m.job = nil
		return m, nil

	case SettingsMsg:
		if msg.Err != nil {
			m.setStatus(fmt.Sprintf("Config: %v", msg.Err), true)
			return m, nil
		}
		m.applySettings(msg.Settings)
		m.setStatus("Config reloaded", false)
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if isQuit(msg) {
		m.quitting = true
		m.exporter.Cancel()
		m.ctrl.Close()
		return m, tea.Sequence(tea.SetWindowTitle(""), tea.Quit)
	}

	switch {
	case key.Matches(msg, keys.Pause):
		if err := m.ctrl.TogglePause(); err != nil {
			m.setStatus(err.Error(), true)
		}
		paused := m.ctrl.State() != player.StatePlaying
		return m, tea.SetWindowTitle(windowTitle(m.title, paused))
	case key.Matches(msg, keys.Stop):
		m.ctrl.Stop()
	case key.Matches(msg, keys.SeekBack):
		m.seek(-seekStep)
	case key.Matches(msg, keys.SeekFwd):
		m.seek(seekStep)
	case key.Matches(msg, keys.VolUp):
		m.ctrl.SetVolume(m.ctrl.Volume() + volumeStep)
	case key.Matches(msg, keys.VolDown):
		m.ctrl.SetVolume(max(m.ctrl.Volume()-volumeStep, 0))
	case key.Matches(msg, keys.Loop):
		m.ctrl.ToggleLoop()
	case key.Matches(msg, keys.Mode):
		m.settings.Visualizer.Type = m.settings.Visualizer.Type.Next()
	case key.Matches(msg, keys.EQ):
		m.toggleEQ()
	case key.Matches(msg, keys.BandPrev):
		m.selectBand(-1)
	case key.Matches(msg, keys.BandNext):
		m.selectBand(1)
	case key.Matches(msg, keys.GainUp):
		m.adjustGain(gainStep)
	case key.Matches(msg, keys.GainDown):
		m.adjustGain(-gainStep)
	case key.Matches(msg, keys.Export):
		cmd := m.startExport()
		return m, cmd
	case key.Matches(msg, keys.Next):
		if m.queue.Advance() {
			cmd := m.switchTrack()
			return m, cmd
		}
	case key.Matches(msg, keys.Prev):
		if m.queue.Previous() {
			cmd := m.switchTrack()
			return m, cmd
		}
	}
	return m, nil
}

func (m *Model) seek(delta float64) {
	if err := m.ctrl.SeekBy(delta); err != nil {
		m.setStatus(err.Error(), true)
	}
}

func (m *Model) switchTrack() tea.Cmd {
	m.loading = true
	m.frame = ""
	m.subtitle = ""
	m.title = m.queue.Current().Title
	return m.loadCurrent()
}

// trackFinished marks the current track done and moves to the next one.
// At the end of the queue the player stays on the finished track.
func (m *Model) trackFinished() tea.Cmd {
	m.queue.SetTrackState(m.queue.CurrentIndex(), queue.Done)
	if !m.queue.Advance() {
		return tea.SetWindowTitle(windowTitle(m.title, true))
	}
	return m.switchTrack()
}

func (m *Model) toggleEQ() {
	eq := m.ctrl.Equalizer()
	if eq == nil {
		m.setStatus("No equalizer", true)
		return
	}
	if eq.Engaged() {
		eq.Bypass()
	} else {
		eq.Engage()
	}
}

func (m *Model) selectBand(delta int) {
	eq := m.ctrl.Equalizer()
	if eq == nil || eq.Len() == 0 {
		return
	}
	n := eq.Len()
	m.band = ((m.band+delta)%n + n) % n
}

func (m *Model) adjustGain(delta float64) {
	eq := m.ctrl.Equalizer()
	if eq == nil || m.band >= eq.Len() {
		return
	}
	bands := eq.Bands()
	if err := eq.SetGain(m.band, bands[m.band].Gain+delta); err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	m.settings.Equalizer = eq.Bands()
}

func (m *Model) startExport() tea.Cmd {
	s := m.ctrl.Session()
	if s == nil || s.Buffer == nil {
		m.setStatus("Nothing to export", true)
		return nil
	}
	m.job = m.exporter.Start(context.Background(), export.Request{
		Buffer:     s.Buffer,
		Settings:   m.exportSettings(),
		Background: m.bg,
	})
	log.Debug().Str("job", m.job.ID).Str("format", m.job.Format).Msg("export started")
	m.setStatus("", false)
	return waitExport(m.job)
}

// exportSettings returns the settings for a new export job, carrying the
// equalizer exactly as it is heard right now.
func (m Model) exportSettings() config.Settings {
	s := m.settings.Clone()
	if eq := m.ctrl.Equalizer(); eq != nil {
		s.ApplyEQ = eq.Engaged()
		s.Equalizer = eq.Bands()
	}
	return s
}

func (m *Model) applySettings(s config.Settings) {
	prev := m.settings
	m.settings = s.Clone()
	// A mode picked from the keyboard survives reloads that leave it alone.
	if s.Visualizer.Type == m.fileMode {
		m.settings.Visualizer.Type = prev.Visualizer.Type
	}
	m.fileMode = s.Visualizer.Type

	v := s.Visualizer
	if an := m.ctrl.Analyzer(); an != nil {
		if err := an.Configure(v.FFTSize, v.SmoothingTimeConstant, v.MinDecibels, v.MaxDecibels); err != nil {
			log.Warn().Err(err).Msg("analyzer reconfigure")
		}
	}
	if eq := m.ctrl.Equalizer(); eq != nil {
		if eq.Apply(s.Equalizer) {
			log.Debug().Int("bands", eq.Len()).Msg("equalizer rebuilt")
		}
		if s.ApplyEQ != prev.ApplyEQ {
			if s.ApplyEQ {
				eq.Engage()
			} else {
				eq.Bypass()
			}
		}
		if m.band >= eq.Len() {
			m.band = 0
		}
	}
	if err := m.bg.SetConfig(s.Background); err != nil {
		log.Warn().Err(err).Str("image", s.Background.Image).Msg("background reload")
	}
}

// redraw renders one visualizer frame at the pane's pixel size and
// converts it to terminal cells.
func (m *Model) redraw() {
	an := m.ctrl.Analyzer()
	if an == nil {
		return
	}
	snap, err := an.Snapshot()
	if err != nil {
		m.frame = ""
		return
	}
	m.meters.update(snap)

	w, h := m.vizSize()
	pw, ph := video.SurfaceSize(w, h)
	if pw == 0 {
		m.frame = ""
		return
	}
	img := m.viz.RenderOffscreen(pw, ph, snap, m.settings.Visualizer, m.bg)
	m.frame = m.term.Render(img, w, h)
}

func (m Model) vizSize() (w, h int) {
	if m.width <= 0 || m.height <= 0 {
		return 0, 0
	}
	return max(m.width-4, 0), max(m.height-chromeLines, 0)
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
	m.statusTime = time.Now()
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	w := m.width
	if w < 30 {
		w = 50
	}

	elapsed, total := m.ctrl.Position(), m.ctrl.Duration()
	state := m.ctrl.State()

	header := headerStyle.Render("aves") + "  " + helpStyle.Render(string(m.settings.Visualizer.Type))

	title := m.title
	if m.loading {
		title += "  " + helpStyle.Render("loading...")
	}

	elapsedStr := util.FormatSeconds(elapsed)
	durationStr := util.FormatSeconds(total)
	barWidth := max(w-len(elapsedStr)-len(durationStr)-6, 10)
	progressLine := fmt.Sprintf("%s %s %s",
		timeStyle.Render(elapsedStr),
		renderProgressBar(elapsed, total, barWidth),
		timeStyle.Render(durationStr))

	statusIcon, statusText := "■", state.String()
	switch state {
	case player.StatePlaying:
		statusIcon = "▶"
	case player.StatePaused:
		statusIcon = "❚❚"
	}
	leftText := fmt.Sprintf("%s  %s", statusIcon, statusText)
	if icon := loopIcon(m.ctrl.Looping()); icon != "" {
		leftText += "  " + icon
	}
	if m.queue.Len() > 1 {
		leftText += fmt.Sprintf("  %d/%d", m.queue.CurrentIndex()+1, m.queue.Len())
	}
	volStr := renderVolumePercent(m.ctrl.Volume())
	gap := max(w-len([]rune(leftText))-len(volStr)-4, 2)
	statusLine := statusStyle.Render(leftText) + spaces(gap) + statusStyle.Render(volStr)

	meterWidth := max((w-30)/len(meterBands), 4)
	meterParts := make([]string, len(meterBands))
	for i, b := range meterBands {
		meterParts[i] = helpStyle.Render(b.label) + " " + meterStyle.Render(renderMeter(m.meters.levels[i], meterWidth))
	}

	var eqLine string
	if eq := m.ctrl.Equalizer(); eq != nil {
		eqLine = renderEQ(eq.Bands(), m.band, eq.Engaged())
	} else {
		eqLine = "eq off"
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString("  " + header + "\n")
	b.WriteString("\n")
	b.WriteString("  " + titleStyle.Render(title) + "\n")
	b.WriteString("  " + artistStyle.Render(m.subtitle) + "\n")
	b.WriteString("\n")
	if m.frame != "" {
		for _, line := range strings.Split(m.frame, "\n") {
			b.WriteString("  " + line + "\n")
		}
	}
	b.WriteString("\n")
	b.WriteString("  " + progressLine + "\n")
	b.WriteString("  " + statusLine + "\n")
	b.WriteString("  " + strings.Join(meterParts, "  ") + "\n")
	b.WriteString("  " + statusStyle.Render(eqLine) + "\n")
	b.WriteString("  " + m.exportLine(barWidth) + "\n")
	b.WriteString("\n")
	b.WriteString("  " + helpStyle.Render(helpText(m.queue.Len() > 1)) + "\n")
	return b.String()
}

func (m Model) exportLine(width int) string {
	if m.job != nil && !m.job.State().Terminal() {
		pct := m.job.Progress()
		return fmt.Sprintf("%s %s %3.0f%%",
			statusStyle.Render("export"),
			meterStyle.Render(renderProgressBar(pct, 100, width)),
			pct)
	}
	if m.status == "" {
		return ""
	}
	if m.statusErr {
		return errorStyle.Render(m.status)
	}
	return helpStyle.Render(m.status)
}

func subtitle(md player.Metadata) string {
	switch {
	case md.Artist != "" && md.Album != "":
		return fmt.Sprintf("%s - %s", md.Artist, md.Album)
	case md.Artist != "":
		return md.Artist
	default:
		return md.Album
	}
}

func windowTitle(title string, paused bool) string {
	if paused {
		return "⏸ " + title + " · aves"
	}
	return "▶ " + title + " · aves"
}
