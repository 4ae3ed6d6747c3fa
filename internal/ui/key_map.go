package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the login prompt.
type keyMap struct {
	open key.Binding
	quit key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		open: key.NewBinding(key.WithKeys("o", "enter"), key.WithHelp("o", "open browser again")),
		quit: key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q/esc", "close login")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.open, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.open, k.quit}}
}
