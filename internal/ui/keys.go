package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

type keyMap struct {
	Pause    key.Binding
	Stop     key.Binding
	SeekBack key.Binding
	SeekFwd  key.Binding
	VolUp    key.Binding
	VolDown  key.Binding
	Loop     key.Binding
	Mode     key.Binding
	EQ       key.Binding
	BandPrev key.Binding
	BandNext key.Binding
	GainUp   key.Binding
	GainDown key.Binding
	Export   key.Binding
	Next     key.Binding
	Prev     key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Pause:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "pause")),
	Stop:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
	SeekBack: key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/→", "seek")),
	SeekFwd:  key.NewBinding(key.WithKeys("right", "l")),
	VolUp:    key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/↓", "volume")),
	VolDown:  key.NewBinding(key.WithKeys("down", "j")),
	Loop:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "loop")),
	Mode:     key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "mode")),
	EQ:       key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "eq")),
	BandPrev: key.NewBinding(key.WithKeys("["), key.WithHelp("[/]", "band")),
	BandNext: key.NewBinding(key.WithKeys("]")),
	GainUp:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+/-", "gain")),
	GainDown: key.NewBinding(key.WithKeys("-", "_")),
	Export:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "export")),
	Next:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n/p", "track")),
	Prev:     key.NewBinding(key.WithKeys("p")),
	Quit:     key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
}

func isQuit(msg tea.KeyMsg) bool {
	return key.Matches(msg, keys.Quit)
}

func helpText(hasQueue bool) string {
	shown := []key.Binding{
		keys.Pause, keys.Stop, keys.SeekBack, keys.VolUp, keys.Loop, keys.Mode,
		keys.EQ, keys.BandPrev, keys.GainUp, keys.Export,
	}
	if hasQueue {
		shown = append(shown, keys.Next)
	}
	shown = append(shown, keys.Quit)

	parts := make([]string, 0, len(shown))
	for _, b := range shown {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, "  ")
}
