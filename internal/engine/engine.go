// Package engine is the browser-facing facade over the client core. Every
// method takes and returns plain values or JSON strings so the wasm bridge
// stays a thin shim.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/portrait/portrait/internal/canvas"
	"github.com/portrait/portrait/internal/geometry"
	"github.com/portrait/portrait/internal/grid"
	"github.com/portrait/portrait/internal/history"
	"github.com/portrait/portrait/internal/interaction"
	"github.com/portrait/portrait/internal/protocol"
	"github.com/portrait/portrait/internal/render"
	"github.com/portrait/portrait/internal/shape"
	"github.com/portrait/portrait/internal/viewport"
)

// Engine owns one client's canvas and interaction state. The page owns the
// WebSocket: outbound frames go to the send callback and inbound frames
// come back through Receive.
type Engine struct {
	canvas  *canvas.Canvas
	manager *interaction.Manager

	view    *viewport.Viewport
	grid    *grid.Grid
	hist    *history.History
	style   shape.Style
	bufferX float64
	bufferY float64

	send func(frame string)
	log  *slog.Logger

	// Dirty flag - a render is due
	dirty bool
}

// NewEngine creates an engine with an empty canvas outside any room.
func NewEngine() *Engine {
	e := &Engine{
		view:  viewport.New(),
		grid:  grid.New(grid.DefaultSpacing),
		hist:  history.New(history.DefaultLimit),
		style: shape.DefaultStyle(),
		log:   slog.Default(),
	}
	e.reset("")
	return e
}

// reset starts over in roomID. Undo entries never cross rooms.
func (e *Engine) reset(roomID string) {
	e.hist.Clear()
	e.canvas = canvas.New(canvas.Options{RoomID: roomID, Sender: e, Logger: e.log})
	e.canvas.OnShapesChange(e.markDirty)
	e.canvas.OnPresenceChange(e.markDirty)
	e.canvas.OnSelectionChange(func(string) { e.markDirty() })
	e.manager = interaction.New(interaction.Options{
		Canvas:        e.canvas,
		Viewport:      e.view,
		Grid:          e.grid,
		History:       e.hist,
		Style:         e.style,
		BufferScale:   geometry.Pt(e.bufferX, e.bufferY),
		RequestRender: e.markDirty,
		Logger:        e.log,
	})
	e.dirty = true
}

func (e *Engine) markDirty() { e.dirty = true }

// Send implements canvas.Sender by handing the encoded frame to the page.
func (e *Engine) Send(msg protocol.Message) error {
	if e.send == nil {
		return nil
	}
	data, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Type, err)
	}
	e.send(string(data))
	return nil
}

// --- Commands (frontend → engine) ---

// OnSend registers the function that writes frames to the relay socket.
func (e *Engine) OnSend(fn func(frame string)) {
	e.send = fn
}

// Join switches to roomID with an empty canvas and fresh history, and
// sends join_room.
func (e *Engine) Join(roomID string) error {
	if roomID == "" {
		return fmt.Errorf("join: empty room id")
	}
	e.reset(roomID)
	return e.Send(protocol.JoinRoom(roomID))
}

// Leave sends leave_room and clears the canvas.
func (e *Engine) Leave() error {
	roomID := e.canvas.RoomID()
	if roomID == "" {
		return nil
	}
	e.reset("")
	return e.Send(protocol.LeaveRoom(roomID))
}

// Receive applies one inbound relay frame.
func (e *Engine) Receive(frame string) error {
	msg, err := protocol.Decode([]byte(frame))
	if err != nil {
		return err
	}
	e.canvas.ApplyRemote(msg)
	return nil
}

type payloads []json.RawMessage

func (p payloads) FetchEditHistory(context.Context, string) ([]json.RawMessage, error) {
	return p, nil
}

// LoadHistory replays a room history body ({"roomId", "payloads"}) or a
// bare payload array into the canvas.
func (e *Engine) LoadHistory(jsonData string) error {
	var body struct {
		Payloads []json.RawMessage `json:"payloads"`
	}
	if err := json.Unmarshal([]byte(jsonData), &body); err != nil {
		var bare []json.RawMessage
		if err := json.Unmarshal([]byte(jsonData), &bare); err != nil {
			return fmt.Errorf("decode history: %w", err)
		}
		body.Payloads = bare
	}
	return e.canvas.Hydrate(context.Background(), payloads(body.Payloads))
}

func (e *Engine) PointerDown(x, y float64, button int, mods interaction.Modifiers) {
	e.manager.PointerDown(interaction.PointerEvent{X: x, Y: y, Button: interaction.Button(button), Mods: mods})
}

func (e *Engine) PointerMove(x, y float64, mods interaction.Modifiers) {
	e.manager.PointerMove(interaction.PointerEvent{X: x, Y: y, Mods: mods})
}

func (e *Engine) PointerUp(x, y float64, mods interaction.Modifiers) {
	e.manager.PointerUp(interaction.PointerEvent{X: x, Y: y, Mods: mods})
}

func (e *Engine) Wheel(x, y, dx, dy float64, mods interaction.Modifiers) {
	e.manager.Wheel(interaction.WheelEvent{X: x, Y: y, DeltaX: dx, DeltaY: dy, Mods: mods})
}

// Key runs the shortcut for a DOM KeyboardEvent.key value and reports
// whether one matched.
func (e *Engine) Key(name string, mods interaction.Modifiers) bool {
	return e.manager.Key(interaction.KeyEvent{Key: name, Mods: mods})
}

func (e *Engine) SetMode(mode string) error {
	m := shape.Mode(mode)
	if !m.Valid() {
		return fmt.Errorf("unknown mode %q", mode)
	}
	e.canvas.SetMode(m)
	e.dirty = true
	return nil
}

// SetStyle merges a partial style object into the drawing style.
func (e *Engine) SetStyle(jsonData string) error {
	next := e.style
	if err := json.Unmarshal([]byte(jsonData), &next); err != nil {
		return fmt.Errorf("decode style: %w", err)
	}
	if next.Opacity < 0 || next.Opacity > 1 {
		return fmt.Errorf("opacity %v out of range", next.Opacity)
	}
	e.style = next
	e.manager.SetStyle(next)
	return nil
}

func (e *Engine) SetText(text string) bool {
	return e.manager.SetText(text)
}

// SetBufferScale sets the CSS-to-canvas pixel ratio.
func (e *Engine) SetBufferScale(sx, sy float64) {
	e.bufferX, e.bufferY = sx, sy
	e.manager.SetBufferScale(sx, sy)
}

// --- Queries (frontend ← engine) ---

// Render returns the draw commands for a surface of width x height canvas
// pixels as JSON and clears the dirty flag.
func (e *Engine) Render(width, height float64) string {
	commands := render.Compile(e.canvas.Shapes(), render.Options{
		Grid:       e.grid,
		Area:       e.view.VisibleWorld(width, height),
		SelectedID: e.canvas.SelectedID(),
		Cursors:    e.canvas.Presence().Cursors(),
	})
	e.dirty = false
	result, _ := render.ToJSON(commands)
	return result
}

// NeedsRender reports whether anything changed since the last Render.
func (e *Engine) NeedsRender() bool {
	return e.dirty
}

// Cursor returns the CSS cursor for the pointer at x, y.
func (e *Engine) Cursor(x, y float64) string {
	return e.manager.Cursor(interaction.PointerEvent{X: x, Y: y})
}

// HitTest returns the id of the topmost shape under the screen point, or "".
func (e *Engine) HitTest(x, y float64) string {
	p := e.view.ScreenToWorld(geometry.Pt(x*orOne(e.bufferX), y*orOne(e.bufferY)))
	if s, ok := e.canvas.ShapeAt(p); ok {
		return s.ID
	}
	return ""
}

// GetState returns the UI-facing state as JSON.
func (e *Engine) GetState() string {
	data, _ := json.Marshal(map[string]interface{}{
		"roomId":     e.canvas.RoomID(),
		"mode":       e.canvas.Mode(),
		"state":      e.manager.State().String(),
		"selectedId": e.canvas.SelectedID(),
		"viewport":   e.view,
		"grid": map[string]interface{}{
			"spacing": e.grid.Spacing,
			"visible": e.grid.Visible,
			"snap":    e.grid.Snap,
		},
		"users":   e.canvas.Presence().Users(),
		"canUndo": e.manager.History().CanUndo(),
		"canRedo": e.manager.History().CanRedo(),
		"style":   e.style,
	})
	return string(data)
}

// GetShapes returns the shape list in paint order as JSON.
func (e *Engine) GetShapes() string {
	data, _ := json.Marshal(e.canvas.Shapes())
	return string(data)
}

// GetViewport returns the world-to-canvas matrix as JSON.
func (e *Engine) GetViewport() string {
	data, _ := json.Marshal(e.view.Matrix().ToSlice())
	return string(data)
}

func orOne(v float64) float64 {
	if v <= 0 {
		return 1
	}
	return v
}
