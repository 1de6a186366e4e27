package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Toggle  key.Binding
	Reset   key.Binding
	Export  key.Binding
	Clear   key.Binding
	Dismiss key.Binding
	Quit    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Reset, k.Export, k.Clear, k.Dismiss, k.Quit}
}

var keys = keyMap{
	Toggle:  key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "start/stop")),
	Reset:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
	Export:  key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export")),
	Clear:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear alerts")),
	Dismiss: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "dismiss newest")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}
