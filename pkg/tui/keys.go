package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Add    key.Binding
	Clear  key.Binding
	Save   key.Binding
	Quit   key.Binding
	Enter  key.Binding
	Close  key.Binding
	Cancel key.Binding
	Yes    key.Binding
	No     key.Binding
	UpDown key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Add:    key.NewBinding(key.WithKeys("a", "+"), key.WithHelp("a", "add")),
		Clear:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear")),
		Save:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Enter:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "pick")),
		Close:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "done")),
		Cancel: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "cancel")),
		Yes:    key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "allow")),
		No:     key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "deny")),
		UpDown: key.NewBinding(key.WithKeys("up", "down", "j", "k"), key.WithHelp("↑/↓", "navigate")),
	}
}

func (k keyMap) mainHelp() []key.Binding {
	return []key.Binding{k.Add, k.Clear, k.Save, k.Quit}
}

func (k keyMap) pickerHelp() []key.Binding {
	return []key.Binding{k.UpDown, k.Enter, k.Close, k.Cancel}
}

func (k keyMap) promptHelp() []key.Binding {
	return []key.Binding{k.Yes, k.No}
}
