package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	NextTable  key.Binding
	PrevTable  key.Binding
	NextPage   key.Binding
	PrevPage   key.Binding
	FirstPage  key.Binding
	LastPage   key.Binding
	Reload     key.Binding
	Help       key.Binding
	Quit       key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
}

var keys = keyMap{
	NextTable: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next table"),
	),
	PrevTable: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "previous table"),
	),
	NextPage: key.NewBinding(
		key.WithKeys("right", "l", "n"),
		key.WithHelp("→/n", "next page"),
	),
	PrevPage: key.NewBinding(
		key.WithKeys("left", "h", "p"),
		key.WithHelp("←/p", "previous page"),
	),
	FirstPage: key.NewBinding(
		key.WithKeys("home", "g"),
		key.WithHelp("g", "first page"),
	),
	LastPage: key.NewBinding(
		key.WithKeys("end", "G"),
		key.WithHelp("G", "last page"),
	),
	Reload: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reload from disk"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "toggle help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "q"),
		key.WithHelp("q", "quit"),
	),
	ScrollUp: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑", "scroll up"),
	),
	ScrollDown: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓", "scroll down"),
	),
}
