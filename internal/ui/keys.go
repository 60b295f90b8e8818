package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Choose key.Binding
	All    key.Binding
	Prefix key.Binding
	Skip   key.Binding
	Abort  key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Choose: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "choose"),
	),
	All: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "review all"),
	),
	Prefix: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "review first segments"),
	),
	Skip: key.NewBinding(
		key.WithKeys("s", "esc", "q"),
		key.WithHelp("s/esc", "skip"),
	),
	Abort: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "abort"),
	),
}
