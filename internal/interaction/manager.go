package interaction

import (
	"fmt"
	"log/slog"

	"github.com/charmbracelet/bubbles/key"

	"github.com/portrait/portrait/internal/canvas"
	"github.com/portrait/portrait/internal/geometry"
	"github.com/portrait/portrait/internal/grid"
	"github.com/portrait/portrait/internal/history"
	"github.com/portrait/portrait/internal/shape"
	"github.com/portrait/portrait/internal/viewport"
)

// State is the active gesture. Exactly one state holds at a time.
type State int

const (
	Idle State = iota
	Drawing
	Dragging
	Resizing
	Rotating
	Panning
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Drawing:
		return "drawing"
	case Dragging:
		return "dragging"
	case Resizing:
		return "resizing"
	case Rotating:
		return "rotating"
	case Panning:
		return "panning"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type Button int

const (
	ButtonPrimary Button = iota
	ButtonMiddle
	ButtonSecondary
)

// PointerEvent carries a pointer position in screen (CSS) pixels.
type PointerEvent struct {
	X, Y   float64
	Button Button
	Mods   Modifiers
}

// WheelEvent carries a wheel delta at a screen position.
type WheelEvent struct {
	X, Y           float64
	DeltaX, DeltaY float64
	Mods           Modifiers
}

// gesture holds everything scoped to one pointer-down..pointer-up cycle.
// It exists only while the manager is not Idle.
type gesture struct {
	state  State
	id     string
	start  geometry.Point
	last   geometry.Point
	pivot  geometry.Point
	handle shape.Handle
	orig   shape.Shape
	before history.Snapshot
}

type Options struct {
	Canvas   *canvas.Canvas
	Viewport *viewport.Viewport
	Grid     *grid.Grid
	History  *history.History
	Style    shape.Style
	Keys     KeyMap
	// BufferScale converts screen pixels into canvas-buffer pixels when
	// the drawing surface is scaled. Zero means 1:1.
	BufferScale geometry.Point
	// RequestRender is called after every state change. It may coalesce.
	RequestRender func()
	Logger        *slog.Logger
}

// Manager turns pointer and keyboard input into canvas edits.
type Manager struct {
	canvas  *canvas.Canvas
	view    *viewport.Viewport
	grid    *grid.Grid
	history *history.History
	style   shape.Style
	keys    KeyMap
	scale   geometry.Point
	render  func()
	log     *slog.Logger
	g       *gesture
}

func New(opts Options) *Manager {
	m := &Manager{
		canvas:  opts.Canvas,
		view:    opts.Viewport,
		grid:    opts.Grid,
		history: opts.History,
		style:   opts.Style,
		keys:    opts.Keys,
		render:  opts.RequestRender,
		log:     opts.Logger,
	}
	if m.view == nil {
		m.view = viewport.New()
	}
	if m.grid == nil {
		m.grid = grid.New(grid.DefaultSpacing)
	}
	if m.history == nil {
		m.history = history.New(history.DefaultLimit)
	}
	if m.style == (shape.Style{}) {
		m.style = shape.DefaultStyle()
	}
	if m.keys.Modes == nil {
		m.keys = DefaultKeyMap()
	}
	if m.render == nil {
		m.render = func() {}
	}
	if m.log == nil {
		m.log = slog.Default()
	}
	m.SetBufferScale(opts.BufferScale.X, opts.BufferScale.Y)
	return m
}

func (m *Manager) State() State {
	if m.g == nil {
		return Idle
	}
	return m.g.state
}

func (m *Manager) Viewport() *viewport.Viewport { return m.view }
func (m *Manager) Grid() *grid.Grid { return m.grid }
func (m *Manager) History() *history.History { return m.history }
func (m *Manager) Keys() KeyMap { return m.keys }

// SetBufferScale sets the screen-to-buffer pixel ratio. Non-positive
// values mean 1.
func (m *Manager) SetBufferScale(sx, sy float64) {
	if sx <= 0 {
		sx = 1
	}
	if sy <= 0 {
		sy = 1
	}
	m.scale = geometry.Pt(sx, sy)
}

func (m *Manager) SetStyle(s shape.Style) { m.style = s }

// buffer converts a screen position to canvas-buffer pixels.
func (m *Manager) buffer(x, y float64) geometry.Point {
	return geometry.Pt(x*m.scale.X, y*m.scale.Y)
}

// world converts a screen position to unsnapped world coordinates.
func (m *Manager) world(x, y float64) geometry.Point {
	return m.view.ScreenToWorld(m.buffer(x, y))
}

// --- Pointer ---

func (m *Manager) PointerDown(e PointerEvent) {
	if m.g != nil {
		return
	}
	defer m.render()

	if e.Button == ButtonMiddle || (e.Button == ButtonPrimary && e.Mods.Ctrl) {
		m.g = &gesture{state: Panning, last: m.buffer(e.X, e.Y)}
		return
	}
	if e.Button != ButtonPrimary {
		return
	}

	raw := m.world(e.X, e.Y)
	at := m.grid.SnapPoint(raw)

	if sel, ok := m.canvas.Selected(); ok && e.Mods.Alt {
		m.begin(&gesture{state: Rotating, id: sel.ID, last: raw, pivot: shape.Center(sel)})
		return
	}

	mode := m.canvas.Mode()
	if mode == shape.ModeSelect {
		if sel, ok := m.canvas.Selected(); ok {
			if h := shape.HandleAt(sel, raw); h != shape.HandleNone {
				m.begin(&gesture{state: Resizing, id: sel.ID, start: at, handle: h, orig: sel})
				return
			}
		}
		hit, ok := m.canvas.ShapeAt(raw)
		if !ok {
			m.canvas.SetSelectedShape("")
			return
		}
		m.canvas.SetSelectedShape(hit.ID)
		m.begin(&gesture{state: Dragging, id: hit.ID, last: at})
		return
	}

	s, ok := shape.New(mode, m.canvas.NewShapeID(), at, m.style)
	if !ok {
		return
	}
	g := &gesture{state: Drawing, id: s.ID, start: at, last: at}
	g.before = m.canvas.Snapshot()
	m.g = g
	m.canvas.BeginStream()
	m.canvas.AddShape(s)
	m.canvas.SetSelectedShape(s.ID)
}

func (m *Manager) begin(g *gesture) {
	g.before = m.canvas.Snapshot()
	m.g = g
	m.canvas.BeginStream()
}

func (m *Manager) PointerMove(e PointerEvent) {
	raw := m.world(e.X, e.Y)
	m.canvas.MoveCursor(raw)

	g := m.g
	if g == nil {
		return
	}
	defer m.render()

	if g.state == Panning {
		p := m.buffer(e.X, e.Y)
		m.view.Pan(p.Sub(g.last))
		g.last = p
		return
	}

	s, ok := m.canvas.Shape(g.id)
	if !ok {
		m.log.Debug("shape erased during gesture", "shape", g.id, "state", g.state)
		m.abandon()
		return
	}
	at := m.grid.SnapPoint(raw)

	switch g.state {
	case Drawing:
		m.canvas.UpdateShape(drawTo(s, g.start, at, e.Mods.Shift))
	case Dragging:
		d := at.Sub(g.last)
		if d == (geometry.Point{}) {
			return
		}
		g.last = at
		m.canvas.UpdateShape(shape.Translate(s, d))
	case Resizing:
		m.canvas.UpdateShape(shape.Resize(g.orig, g.handle, g.start, at, e.Mods.Shift))
	case Rotating:
		delta := geometry.AngleBetween(g.pivot, g.last, raw)
		g.last = raw
		m.canvas.UpdateShape(shape.Rotate(s, delta))
	}
}

// drawTo extends an in-progress shape from start to the pointer at.
func drawTo(s shape.Shape, start, at geometry.Point, constrain bool) shape.Shape {
	switch s.Kind {
	case shape.KindRect, shape.KindImage:
		s.Width, s.Height = at.X-start.X, at.Y-start.Y
		if constrain {
			side := min(abs(s.Width), abs(s.Height))
			s.Width, s.Height = withSign(side, s.Width), withSign(side, s.Height)
		}
	case shape.KindCircle:
		s.Radius = start.Distance(at)
	case shape.KindLine, shape.KindArrow:
		s.Points = []geometry.Point{start, at}
	case shape.KindFree:
		if n := len(s.Points); n == 0 || s.Points[n-1] != at {
			s.Points = append(s.Points, at)
		}
	case shape.KindText:
		s.X, s.Y = min(start.X, at.X), min(start.Y, at.Y)
		if s.Text == "" && at != start {
			s.Text = shape.TextPlaceholder
		}
	}
	return s
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func withSign(v, sign float64) float64 {
	if sign < 0 {
		return -v
	}
	return v
}

func (m *Manager) PointerUp(PointerEvent) {
	g := m.g
	if g == nil {
		return
	}
	m.g = nil
	defer m.render()

	if g.state == Panning {
		return
	}

	s, ok := m.canvas.Shape(g.id)
	if !ok {
		m.canvas.EndStream()
		return
	}

	if g.state == Drawing && s.Degenerate() {
		m.canvas.EndStream()
		m.canvas.DeleteShape(g.id)
		return
	}

	if prev := indexOf(g.before.Shapes, g.id); prev >= 0 && shape.Equal(g.before.Shapes[prev], s) {
		m.canvas.EndStream()
		return
	}
	m.canvas.Commit(g.id)
	m.history.Push(g.before)
}

// abandon ends the gesture without committing anything.
func (m *Manager) abandon() {
	m.g = nil
	m.canvas.EndStream()
}

// Cancel aborts the active gesture and restores the canvas to how it was
// at pointer-down. When idle it clears the selection.
func (m *Manager) Cancel() {
	defer m.render()
	g := m.g
	if g == nil {
		m.canvas.SetSelectedShape("")
		return
	}
	m.g = nil
	m.canvas.EndStream()
	if g.state != Panning {
		m.canvas.Restore(g.before)
	}
}

func indexOf(shapes []shape.Shape, id string) int {
	for i, s := range shapes {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// Cursor returns the CSS cursor for hovering the screen point e.
func (m *Manager) Cursor(e PointerEvent) string {
	switch m.State() {
	case Panning:
		return "grabbing"
	case Dragging:
		return "move"
	case Resizing:
		return m.g.handle.Cursor()
	case Drawing:
		return "crosshair"
	}
	sel, ok := m.canvas.Selected()
	if !ok || m.canvas.Mode() != shape.ModeSelect {
		return "default"
	}
	p := m.world(e.X, e.Y)
	if h := shape.HandleAt(sel, p); h != shape.HandleNone {
		return h.Cursor()
	}
	if shape.HitTest(sel, p) {
		return "move"
	}
	return "default"
}

// --- Wheel ---

// Wheel zooms around the pointer when a zoom modifier is held and pans
// otherwise.
func (m *Manager) Wheel(e WheelEvent) {
	defer m.render()
	if e.Mods.Ctrl || e.Mods.Meta {
		m.view.Zoom(m.buffer(e.X, e.Y), e.DeltaY)
		return
	}
	m.view.Pan(geometry.Pt(-e.DeltaX, -e.DeltaY))
}

// --- Keyboard ---

// Key runs the action bound to k and reports whether one matched. k is any
// key description with a Bubble Tea style String, such as a tea.KeyMsg or a
// KeyEvent.
func (m *Manager) Key(k fmt.Stringer) bool {
	if key.Matches(k, m.keys.Cancel) {
		m.Cancel()
		return true
	}
	if m.g != nil {
		return false
	}

	handled := true
	switch {
	case key.Matches(k, m.keys.Delete):
		m.DeleteSelected()
	case key.Matches(k, m.keys.Copy):
		m.canvas.CopySelectedShape()
	case key.Matches(k, m.keys.Paste):
		m.Paste()
	case key.Matches(k, m.keys.Undo):
		m.Undo()
	case key.Matches(k, m.keys.Redo):
		m.Redo()
	case key.Matches(k, m.keys.BringToFront):
		m.reorder(m.canvas.BringToFront)
	case key.Matches(k, m.keys.SendToBack):
		m.reorder(m.canvas.SendToBack)
	case key.Matches(k, m.keys.ToggleGrid):
		m.grid.ToggleVisible()
	case key.Matches(k, m.keys.ToggleSnap):
		m.grid.ToggleSnap()
	default:
		handled = false
		for mode, b := range m.keys.Modes {
			if key.Matches(k, b) {
				m.canvas.SetMode(mode)
				handled = true
				break
			}
		}
	}
	if handled {
		m.render()
	}
	return handled
}

// DeleteSelected removes the selected shape as an undoable edit.
func (m *Manager) DeleteSelected() {
	id := m.canvas.SelectedID()
	if id == "" {
		return
	}
	m.history.Push(m.canvas.Snapshot())
	m.canvas.DeleteShape(id)
}

// SetText replaces the content of the selected text shape as an undoable
// edit. Empty text deletes the shape. It reports false when no text shape
// is selected or a gesture is active.
func (m *Manager) SetText(text string) bool {
	s, ok := m.canvas.Selected()
	if !ok || s.Kind != shape.KindText || m.g != nil {
		return false
	}
	if s.Text == text {
		return true
	}
	defer m.render()
	m.history.Push(m.canvas.Snapshot())
	if text == "" {
		m.canvas.DeleteShape(s.ID)
		return true
	}
	s.Text = text
	m.canvas.UpdateShape(s)
	return true
}

// Paste inserts the clipboard as an undoable edit.
func (m *Manager) Paste() {
	before := m.canvas.Snapshot()
	if _, ok := m.canvas.PasteShape(); ok {
		m.history.Push(before)
	}
}

func (m *Manager) reorder(move func(id string)) {
	id := m.canvas.SelectedID()
	if id == "" {
		return
	}
	m.history.Push(m.canvas.Snapshot())
	move(id)
}

func (m *Manager) Undo() {
	if prev, ok := m.history.Undo(m.canvas.Snapshot()); ok {
		m.canvas.Restore(prev)
	}
}

func (m *Manager) Redo() {
	if next, ok := m.history.Redo(m.canvas.Snapshot()); ok {
		m.canvas.Restore(next)
	}
}
