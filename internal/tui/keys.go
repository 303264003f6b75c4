package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Extract      key.Binding
	Rescan       key.Binding
	Pattern      key.Binding
	DeleteSource key.Binding
	Up           key.Binding
	Down         key.Binding
	Quit         key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Extract: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "extract all"),
		),
		Rescan: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rescan"),
		),
		Pattern: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "next pattern"),
		),
		DeleteSource: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "toggle delete zip"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Extract, k.Rescan, k.Pattern, k.DeleteSource, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Extract, k.Rescan, k.Pattern, k.DeleteSource},
		{k.Up, k.Down, k.Quit},
	}
}
