package interaction

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"

	"github.com/portrait/portrait/internal/shape"
)

// KeyMap binds keyboard shortcuts to canvas actions. Key names follow the
// Bubble Tea convention ("ctrl+z", "shift+g", "delete").
type KeyMap struct {
	// Editing
	Delete key.Binding
	Copy   key.Binding
	Paste  key.Binding
	Undo   key.Binding
	Redo   key.Binding
	Cancel key.Binding

	// Layers
	BringToFront key.Binding
	SendToBack   key.Binding

	// Grid
	ToggleGrid key.Binding
	ToggleSnap key.Binding

	// Tools
	Modes map[shape.Mode]key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Delete: key.NewBinding(
			key.WithKeys("delete", "backspace"),
			key.WithHelp("del", "Delete shape"),
		),
		Copy: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "Copy"),
		),
		Paste: key.NewBinding(
			key.WithKeys("ctrl+v"),
			key.WithHelp("ctrl+v", "Paste"),
		),
		Undo: key.NewBinding(
			key.WithKeys("ctrl+z"),
			key.WithHelp("ctrl+z", "Undo"),
		),
		Redo: key.NewBinding(
			key.WithKeys("ctrl+y", "ctrl+shift+z"),
			key.WithHelp("ctrl+y", "Redo"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Cancel / deselect"),
		),
		BringToFront: key.NewBinding(
			key.WithKeys("ctrl+up", "]"),
			key.WithHelp("]", "Bring to front"),
		),
		SendToBack: key.NewBinding(
			key.WithKeys("ctrl+down", "["),
			key.WithHelp("[", "Send to back"),
		),
		ToggleGrid: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "Toggle grid"),
		),
		ToggleSnap: key.NewBinding(
			key.WithKeys("G", "shift+g"),
			key.WithHelp("G", "Toggle snap"),
		),
		Modes: map[shape.Mode]key.Binding{
			shape.ModeSelect: key.NewBinding(key.WithKeys("v", "s"), key.WithHelp("v", "Select")),
			shape.ModeRect:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "Rectangle")),
			shape.ModeCircle: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "Circle")),
			shape.ModeLine:   key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "Line")),
			shape.ModeArrow:  key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "Arrow")),
			shape.ModeText:   key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "Text")),
			shape.ModeFree:   key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "Free draw")),
		},
	}
}

// Help returns the bindings in display order.
func (k KeyMap) Help() []key.Binding {
	out := []key.Binding{k.Delete, k.Copy, k.Paste, k.Undo, k.Redo, k.Cancel,
		k.BringToFront, k.SendToBack, k.ToggleGrid, k.ToggleSnap}
	for _, m := range []shape.Mode{shape.ModeSelect, shape.ModeRect, shape.ModeCircle,
		shape.ModeLine, shape.ModeArrow, shape.ModeText, shape.ModeFree} {
		out = append(out, k.Modes[m])
	}
	return out
}

// Modifiers is the modifier-key state attached to an input event.
type Modifiers struct {
	Shift bool
	Ctrl  bool
	Alt   bool
	Meta  bool
}

// KeyEvent is a key press from a non-terminal frontend. Its String form
// matches Bubble Tea key names so both frontends share one KeyMap.
type KeyEvent struct {
	Key  string
	Mods Modifiers
}

func (e KeyEvent) String() string {
	name := strings.ToLower(e.Key)
	switch name {
	case "escape":
		name = "esc"
	case "arrowup":
		name = "up"
	case "arrowdown":
		name = "down"
	case " ":
		name = "space"
	}

	var b strings.Builder
	if e.Mods.Ctrl || e.Mods.Meta {
		b.WriteString("ctrl+")
	}
	if e.Mods.Alt {
		b.WriteString("alt+")
	}
	if e.Mods.Shift {
		b.WriteString("shift+")
	}
	b.WriteString(name)
	return b.String()
}
