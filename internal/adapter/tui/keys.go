package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Add     key.Binding
	Rename  key.Binding
	Done    key.Binding
	Sort    key.Binding
	Reverse key.Binding
	Filter  key.Binding
	Refresh key.Binding
	Quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Add:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		Rename:  key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "rename")),
		Done:    key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space/x", "done")),
		Sort:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
		Reverse: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reverse")),
		Filter:  key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "done filter")),
		Refresh: key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "reload")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) short() []key.Binding {
	return []key.Binding{k.Add, k.Rename, k.Done, k.Sort, k.Reverse, k.Filter}
}

func (k keyMap) full() []key.Binding {
	return append(k.short(), k.Refresh)
}
