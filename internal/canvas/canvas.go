package canvas

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	"github.com/portrait/portrait/internal/geometry"
	"github.com/portrait/portrait/internal/history"
	"github.com/portrait/portrait/internal/protocol"
	"github.com/portrait/portrait/internal/shape"
	"github.com/portrait/portrait/internal/typeid"
)

// PasteOffset is how far a pasted shape lands from its source.
const PasteOffset = 20

// Sender is the outbound side of the realtime transport. Send must not block.
type Sender interface {
	Send(msg protocol.Message) error
}

// HistoryFetcher returns a room's committed edits, oldest first.
type HistoryFetcher interface {
	FetchEditHistory(ctx context.Context, roomID string) ([]json.RawMessage, error)
}

type Options struct {
	RoomID string
	Sender Sender
	// NewID generates shape identities. Defaults to typeid shape ids.
	NewID  func() string
	Logger *slog.Logger
}

// Canvas is the single source of truth for one client's shapes, selection
// and mode. It is not safe for concurrent use: every call is expected to
// come from the client's input loop.
type Canvas struct {
	roomID     string
	sender     Sender
	newID      func() string
	log        *slog.Logger
	shapes     []shape.Shape
	selectedID string
	mode       shape.Mode
	clipboard  *shape.Shape
	streaming  bool
	presence   *Presence
	// erased holds ids the hydrated history ended up deleting.
	erased map[string]bool

	onShapes    []func()
	onSelection []func(id string)
	onPresence  []func()
}

func New(opts Options) *Canvas {
	c := &Canvas{
		roomID:   opts.RoomID,
		sender:   opts.Sender,
		newID:    opts.NewID,
		log:      opts.Logger,
		mode:     shape.ModeSelect,
		presence: newPresence(),
	}
	if c.newID == nil {
		c.newID = typeid.NewShapeID
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	return c
}

// --- Queries ---

func (c *Canvas) RoomID() string { return c.roomID }

// Shapes returns a copy of the shape list in paint order.
func (c *Canvas) Shapes() []shape.Shape {
	return shape.CloneAll(c.shapes)
}

func (c *Canvas) Len() int { return len(c.shapes) }

func (c *Canvas) Shape(id string) (shape.Shape, bool) {
	i := c.index(id)
	if i < 0 {
		return shape.Shape{}, false
	}
	return c.shapes[i].Clone(), true
}

func (c *Canvas) SelectedID() string { return c.selectedID }

func (c *Canvas) Selected() (shape.Shape, bool) {
	if c.selectedID == "" {
		return shape.Shape{}, false
	}
	return c.Shape(c.selectedID)
}

// ShapeAt returns the topmost shape under p.
func (c *Canvas) ShapeAt(p geometry.Point) (shape.Shape, bool) {
	i := shape.TopmostAt(c.shapes, p)
	if i < 0 {
		return shape.Shape{}, false
	}
	return c.shapes[i].Clone(), true
}

func (c *Canvas) Mode() shape.Mode { return c.mode }

func (c *Canvas) SetMode(m shape.Mode) {
	if m.Valid() {
		c.mode = m
	}
}

func (c *Canvas) Presence() *Presence { return c.presence }

// NewShapeID returns a fresh identity from the configured generator.
func (c *Canvas) NewShapeID() string { return c.newID() }

// --- Subscriptions ---

// OnShapesChange registers fn to run after every change to the shape list.
func (c *Canvas) OnShapesChange(fn func()) { c.onShapes = append(c.onShapes, fn) }

// OnSelectionChange registers fn to run when the selected identity changes.
func (c *Canvas) OnSelectionChange(fn func(id string)) {
	c.onSelection = append(c.onSelection, fn)
}

// OnPresenceChange registers fn to run when peers join, leave or move.
func (c *Canvas) OnPresenceChange(fn func()) { c.onPresence = append(c.onPresence, fn) }

func (c *Canvas) notifyShapes() {
	for _, fn := range c.onShapes {
		fn()
	}
}

func (c *Canvas) notifyPresence() {
	for _, fn := range c.onPresence {
		fn()
	}
}

// --- Local mutations ---

// BeginStream switches outbound edits to streaming: AddShape sends
// draw_start and UpdateShape sends draw_move until Commit or EndStream.
func (c *Canvas) BeginStream() { c.streaming = true }

// EndStream leaves streaming mode without committing anything.
func (c *Canvas) EndStream() { c.streaming = false }

func (c *Canvas) Streaming() bool { return c.streaming }

// Commit leaves streaming mode and sends the final state of id as a
// committed edit.
func (c *Canvas) Commit(id string) {
	c.streaming = false
	if i := c.index(id); i >= 0 {
		c.send(protocol.DrawEnd(c.shapes[i]))
	}
}

// AddShape appends s on top of the paint order.
func (c *Canvas) AddShape(s shape.Shape) {
	s = s.Clone()
	s.Selected = s.ID != "" && s.ID == c.selectedID
	c.shapes = append(c.shapes, s)
	c.notifyShapes()
	if c.streaming {
		c.send(protocol.DrawStart(s))
	} else {
		c.send(protocol.DrawEnd(s))
	}
}

// UpdateShape replaces the shape with the same identity. Unknown ids are
// ignored.
func (c *Canvas) UpdateShape(s shape.Shape) {
	i := c.index(s.ID)
	if i < 0 {
		return
	}
	s = s.Clone()
	s.Selected = s.ID == c.selectedID
	c.shapes[i] = s
	c.notifyShapes()
	if c.streaming {
		c.send(protocol.DrawMove(s))
	} else {
		c.send(protocol.DrawEnd(s))
	}
}

// DeleteShape removes id and clears the selection if it pointed there.
func (c *Canvas) DeleteShape(id string) {
	if !c.remove(id) {
		return
	}
	if c.selectedID == id {
		c.SetSelectedShape("")
	}
	c.notifyShapes()
	c.send(protocol.Erase(id))
}

// SetSelectedShape selects id, or clears the selection for "" or an id not
// on the canvas.
func (c *Canvas) SetSelectedShape(id string) {
	if id != "" && c.index(id) < 0 {
		id = ""
	}
	if id == c.selectedID {
		return
	}
	if i := c.index(c.selectedID); i >= 0 {
		c.shapes[i].Selected = false
	}
	c.selectedID = id
	if i := c.index(id); i >= 0 {
		c.shapes[i].Selected = true
	}
	for _, fn := range c.onSelection {
		fn(id)
	}
}

// CopySelectedShape stores a copy of the selection in the clipboard.
func (c *Canvas) CopySelectedShape() bool {
	s, ok := c.Selected()
	if !ok {
		return false
	}
	s.Selected = false
	c.clipboard = &s
	return true
}

// PasteShape adds a copy of the clipboard with a new identity, offset by
// PasteOffset on both axes, and selects it.
func (c *Canvas) PasteShape() (shape.Shape, bool) {
	if c.clipboard == nil {
		return shape.Shape{}, false
	}
	s := shape.Translate(*c.clipboard, geometry.Pt(PasteOffset, PasteOffset))
	s.ID = c.newID()
	s.Selected = false
	c.AddShape(s)
	c.SetSelectedShape(s.ID)
	return s, true
}

// BringToFront moves id to the top of the paint order.
func (c *Canvas) BringToFront(id string) {
	if c.reorder(id, protocol.OrderFront) {
		c.notifyShapes()
		c.send(protocol.LayerOrder(protocol.OrderFront, id))
	}
}

// SendToBack moves id to the bottom of the paint order.
func (c *Canvas) SendToBack(id string) {
	if c.reorder(id, protocol.OrderBack) {
		c.notifyShapes()
		c.send(protocol.LayerOrder(protocol.OrderBack, id))
	}
}

// Snapshot captures the shapes and selection for History.
func (c *Canvas) Snapshot() history.Snapshot {
	return history.Take(c.shapes, c.selectedID)
}

// Restore replaces the canvas with snap and broadcasts the difference:
// erase for shapes that disappeared, draw_end for shapes that were added
// or changed, and one layer_order when the paint order moved. The stored
// selection is restored when it still exists.
func (c *Canvas) Restore(snap history.Snapshot) {
	before := c.shapes
	after := shape.CloneAll(snap.Shapes)

	var erased []string
	for _, s := range before {
		if indexIn(after, s.ID) < 0 {
			erased = append(erased, s.ID)
		}
	}

	c.streaming = false
	c.shapes = after
	prev := c.selectedID
	c.selectedID = ""
	if indexIn(after, snap.SelectedID) >= 0 {
		c.selectedID = snap.SelectedID
	}
	for i := range c.shapes {
		c.shapes[i].Selected = c.shapes[i].ID == c.selectedID
	}
	if c.selectedID != prev {
		for _, fn := range c.onSelection {
			fn(c.selectedID)
		}
	}
	c.notifyShapes()

	if len(erased) > 0 {
		c.send(protocol.Erase(erased...))
	}
	for _, s := range c.shapes {
		if j := indexIn(before, s.ID); j < 0 || !shape.Equal(before[j], s) {
			c.send(protocol.DrawEnd(s))
		}
	}
	if reordered(before, c.shapes) {
		all := make([]string, len(c.shapes))
		for i, s := range c.shapes {
			all[i] = s.ID
		}
		c.send(protocol.LayerOrder(protocol.OrderFront, all...))
	}
}

// reordered reports whether the shapes present in both lists appear in a
// different relative order.
func reordered(before, after []shape.Shape) bool {
	var prev []string
	for _, s := range before {
		if indexIn(after, s.ID) >= 0 {
			prev = append(prev, s.ID)
		}
	}
	i := 0
	for _, s := range after {
		if indexIn(before, s.ID) < 0 {
			continue
		}
		if prev[i] != s.ID {
			return true
		}
		i++
	}
	return false
}

// MoveCursor shares the local pointer position with the room.
func (c *Canvas) MoveCursor(p geometry.Point) {
	c.send(protocol.CursorMoved(p))
}

// --- Remote application ---

// ApplyRemote applies a message received from the relay. Shape edits are
// upserted by identity so the last message applied wins. Nothing is sent.
func (c *Canvas) ApplyRemote(m protocol.Message) {
	switch m.Type {
	case protocol.TypeDrawStart, protocol.TypeDrawMove, protocol.TypeDrawEnd:
		if m.Shape == nil {
			return
		}
		c.upsert(*m.Shape)
		c.notifyShapes()

	case protocol.TypeErase:
		changed := false
		for _, id := range m.ShapeIDs {
			if c.remove(id) {
				changed = true
				if id == c.selectedID {
					c.SetSelectedShape("")
				}
			}
		}
		if changed {
			c.notifyShapes()
		}

	case protocol.TypeLayerOrder:
		changed := false
		for _, id := range m.ShapeIDs {
			changed = c.reorder(id, m.Order) || changed
		}
		if changed {
			c.notifyShapes()
		}

	case protocol.TypeCursorMoved:
		c.presence.move(m.UserID, geometry.Pt(m.X, m.Y))
		c.notifyPresence()

	case protocol.TypeUserJoined, protocol.TypeUserRejoined:
		c.presence.join(m.UserID)
		c.notifyPresence()

	case protocol.TypeUserLeft:
		c.presence.leave(m.UserID)
		c.notifyPresence()

	case protocol.TypePresenceState:
		c.presence.reset(m.Users, m.Cursors)
		c.notifyPresence()
	}
}

// Hydrate replays the room's committed edits into the canvas. It is meant
// to run once, before input is accepted.
func (c *Canvas) Hydrate(ctx context.Context, fetcher HistoryFetcher) error {
	payloads, err := fetcher.FetchEditHistory(ctx, c.roomID)
	if err != nil {
		return fmt.Errorf("fetch edit history: %w", err)
	}
	shapes, skipped := Replay(payloads)
	if skipped > 0 {
		c.log.Warn("skipped malformed history records", "room", c.roomID, "count", skipped)
	}
	for _, s := range shapes {
		c.upsert(s)
	}
	c.erased = erasedIDs(payloads, shapes)
	c.notifyShapes()
	return nil
}

// Settle applies the messages that queued up while joining and hydrating.
// early arrived before the history fetch began: the relay persists an edit
// before fanning it out, so their shape edits are already in the history and
// are skipped. late arrived during the fetch and may predate parts of it;
// their draws are skipped for shapes the history erased.
func (c *Canvas) Settle(early, late []protocol.Message) {
	for _, m := range early {
		if !m.Type.ShapeEdit() {
			c.ApplyRemote(m)
		}
	}
	for _, m := range late {
		if m.Shape != nil && c.erased[m.Shape.ID] {
			c.log.Debug("dropping stale draw of erased shape", "room", c.roomID, "shape", m.Shape.ID, "type", m.Type)
			continue
		}
		c.ApplyRemote(m)
	}
	c.erased = nil
}

// --- internals ---

func (c *Canvas) send(m protocol.Message) {
	if c.sender == nil {
		return
	}
	m.RoomID = c.roomID
	if err := c.sender.Send(m); err != nil {
		c.log.Debug("send failed", "type", m.Type, "error", err)
	}
}

func (c *Canvas) index(id string) int {
	if id == "" {
		return -1
	}
	return indexIn(c.shapes, id)
}

func indexIn(shapes []shape.Shape, id string) int {
	return slices.IndexFunc(shapes, func(s shape.Shape) bool { return s.ID == id })
}

func (c *Canvas) upsert(s shape.Shape) {
	s = s.Clone()
	s.Selected = s.ID == c.selectedID
	if i := c.index(s.ID); i >= 0 {
		c.shapes[i] = s
		return
	}
	c.shapes = append(c.shapes, s)
}

func (c *Canvas) remove(id string) bool {
	i := c.index(id)
	if i < 0 {
		return false
	}
	c.shapes = slices.Delete(c.shapes, i, i+1)
	return true
}

func (c *Canvas) reorder(id string, order protocol.Order) bool {
	i := c.index(id)
	if i < 0 {
		return false
	}
	s := c.shapes[i]
	c.shapes = slices.Delete(c.shapes, i, i+1)
	switch order {
	case protocol.OrderBack:
		c.shapes = slices.Insert(c.shapes, 0, s)
	default:
		c.shapes = append(c.shapes, s)
	}
	return true
}
