package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/olivier-w/aves/internal/config"
	"github.com/olivier-w/aves/internal/export"
	"github.com/olivier-w/aves/internal/player"
	"github.com/olivier-w/aves/internal/util"
	"github.com/olivier-w/aves/internal/visualizer"
)

// normalizePeak is the peak level a track is scaled to with --normalize.
const normalizePeak = 0.95

var errExportCancelled = errors.New("export cancelled")

type exportPhase uint8

const (
	phaseDecoding exportPhase = iota
	phaseRendering
	phaseSaving
	phaseDone
)

type decodedMsg struct {
	buf *player.Buffer
	err error
}

type exportProgressMsg float64

type exportFinishedMsg struct {
	job *export.Job
}

type artifactSavedMsg struct {
	path string
	size int64
	err  error
}

// exportModel runs one headless export and shows its progress.
type exportModel struct {
	path      string
	settings  config.Settings
	bg        *visualizer.Background
	exporter  *export.Exporter
	normalize bool

	phase      exportPhase
	spinner    spinner.Model
	progress   progress.Model
	percent    float64
	progressCh chan float64
	job        *export.Job

	savedPath string
	savedSize int64
	fallback  bool
	err       error
}

func newExportModel(path string, settings config.Settings, bg *visualizer.Background, exporter *export.Exporter, normalize bool) exportModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#AAAAAA"})

	p := progress.New(
		progress.WithScaledGradient("#FF8C00", "#FF5F1F"),
		progress.WithoutPercentage(),
	)

	return exportModel{
		path:      path,
		settings:  settings,
		bg:        bg,
		exporter:  exporter,
		normalize: normalize,
		phase:     phaseDecoding,
		spinner:   s,
		progress:  p,
	}
}

func (m exportModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, decodeCmd(m.path, m.normalize))
}

func decodeCmd(path string, normalize bool) tea.Cmd {
	return func() tea.Msg {
		buf, err := player.Decode(context.Background(), path)
		if err == nil && normalize {
			buf = buf.Normalize(normalizePeak)
		}
		return decodedMsg{buf: buf, err: err}
	}
}

func (m exportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.progress.Width = min(max(msg.Width-8, 20), 60)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.phase == phaseDone {
			return m, nil
		}
		return m, cmd

	case decodedMsg:
		if msg.err != nil {
			return m.done(msg.err)
		}
		m.phase = phaseRendering
		m.progressCh = make(chan float64, 16)
		ch := m.progressCh
		m.job = m.exporter.Start(context.Background(), export.Request{
			Buffer:     msg.buf,
			Settings:   m.settings,
			Background: m.bg,
			OnProgress: func(p float64) {
				select {
				case ch <- p:
				default:
				}
			},
		})
		log.Info().Str("job", m.job.ID).Str("path", m.path).Str("format", m.job.Format).
			Int("width", m.job.Width).Int("height", m.job.Height).Msg("export started")
		return m, tea.Batch(m.waitForProgress(), waitForJob(m.job))

	case exportProgressMsg:
		m.percent = max(m.percent, float64(msg))
		return m, m.waitForProgress()

	case exportFinishedMsg:
		a := msg.job.Artifact()
		if a == nil {
			return m.done(msg.job.Err())
		}
		if msg.job.State() == export.FallbackCaptured {
			m.fallback = true
			log.Warn().Err(msg.job.Err()).Msg("video capture unavailable, saved a still")
		}
		m.phase = phaseSaving
		return m, saveCmd(a, m.settings.Export.OutputDir)

	case artifactSavedMsg:
		if msg.err != nil {
			return m.done(msg.err)
		}
		m.savedPath = msg.path
		m.savedSize = msg.size
		return m.done(nil)

	case tea.KeyMsg:
		if exportIsQuit(msg) {
			m.exporter.Cancel()
			return m.done(errExportCancelled)
		}
	}
	return m, nil
}

func (m exportModel) done(err error) (tea.Model, tea.Cmd) {
	m.phase = phaseDone
	m.err = err
	return m, tea.Quit
}

func (m exportModel) waitForProgress() tea.Cmd {
	if m.progressCh == nil || m.job == nil {
		return nil
	}
	ch, doneCh := m.progressCh, m.job.Done()
	return func() tea.Msg {
		select {
		case p := <-ch:
			return exportProgressMsg(p)
		case <-doneCh:
			return nil
		}
	}
}

func waitForJob(job *export.Job) tea.Cmd {
	return func() tea.Msg {
		<-job.Done()
		return exportFinishedMsg{job: job}
	}
}

func saveCmd(a *export.Artifact, dir string) tea.Cmd {
	return func() tea.Msg {
		path, err := a.Save(dir)
		return artifactSavedMsg{path: path, size: a.Size, err: err}
	}
}

func (m exportModel) View() string {
	var b strings.Builder
	b.WriteString("\n  ")
	b.WriteString(exportHeaderStyle.Render("aves export"))
	b.WriteString("  ")
	b.WriteString(exportHelpStyle.Render(filepath.Base(m.path)))
	b.WriteString("\n\n")

	switch m.phase {
	case phaseDecoding:
		b.WriteString("  " + m.spinner.View() + " " + exportStatusStyle.Render("Decoding...") + "\n")
	case phaseRendering:
		b.WriteString("  " + exportStatusStyle.Render("Rendering...") + "\n")
		b.WriteString("  " + m.progress.ViewAs(m.percent/100))
		b.WriteString(fmt.Sprintf("  %.0f%%\n", m.percent))
		if m.job != nil {
			detail := fmt.Sprintf("%dx%d  ·  %d fps  ·  %s  ·  %s",
				m.job.Width, m.job.Height, m.job.FPS, m.job.Format, util.FormatSeconds(m.job.Duration))
			b.WriteString("  " + exportHelpStyle.Render(detail) + "\n")
		}
	case phaseSaving:
		b.WriteString("  " + m.spinner.View() + " " + exportStatusStyle.Render("Saving...") + "\n")
	case phaseDone:
		b.WriteString("  " + m.result() + "\n")
	}

	if m.phase != phaseDone {
		b.WriteString("\n  ")
		b.WriteString(exportHelpStyle.Render("q cancel"))
		b.WriteString("\n")
	}
	return b.String()
}

func (m exportModel) result() string {
	if m.err != nil {
		return exportErrorStyle.Render(m.err.Error())
	}
	line := fmt.Sprintf("Saved %s (%s)", m.savedPath, util.FormatFileSize(m.savedSize))
	if m.fallback {
		line += exportHelpStyle.Render("  video capture unavailable, saved a still image")
	}
	return exportStatusStyle.Render(line)
}

func exportIsQuit(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return true
	}
	return false
}

var (
	exportHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#888888"})
	exportStatusStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BBBBBB"})
	exportHelpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#999999", Dark: "#666666"})
	exportErrorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#A00000", Dark: "#FF8080"})
)
