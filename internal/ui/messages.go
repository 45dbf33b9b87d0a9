package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/olivier-w/aves/internal/config"
	"github.com/olivier-w/aves/internal/export"
)

const frameRate = 30

type tickMsg time.Time

type trackLoadedMsg struct {
	index int
	err   error
}

// sourceEndedMsg carries a generation from Controller.Ended.
type sourceEndedMsg uint64

type exportDoneMsg struct {
	job *export.Job
}

type exportSavedMsg struct {
	path string
	size int64
	err  error
}

// SettingsMsg delivers reloaded settings to a running program.
type SettingsMsg struct {
	Settings config.Settings
	Err      error
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
