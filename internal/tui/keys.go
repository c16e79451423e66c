package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the bindings the terminal client adds on top of the canvas
// key map.
type keyMap struct {
	Quit      key.Binding
	Help      key.Binding
	EditText  key.Binding
	ZoomIn    key.Binding
	ZoomOut   key.Binding
	ResetView key.Binding
	PanLeft   key.Binding
	PanRight  key.Binding
	PanUp     key.Binding
	PanDown   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+q"),
			key.WithHelp("ctrl+q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "Toggle help"),
		),
		EditText: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Edit selected text"),
		),
		ZoomIn: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "Zoom in"),
		),
		ZoomOut: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "Zoom out"),
		),
		ResetView: key.NewBinding(
			key.WithKeys("0"),
			key.WithHelp("0", "Reset view"),
		),
		// Letters are taken by the tool keys, so panning is arrows only.
		PanLeft:  key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "Pan left")),
		PanRight: key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "Pan right")),
		PanUp:    key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "Pan up")),
		PanDown:  key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "Pan down")),
	}
}

func (k keyMap) help() []key.Binding {
	return []key.Binding{k.Quit, k.Help, k.EditText, k.ZoomIn, k.ZoomOut, k.ResetView,
		k.PanLeft, k.PanRight, k.PanUp, k.PanDown}
}
