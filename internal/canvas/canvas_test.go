package canvas

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/portrait/portrait/internal/geometry"
	"github.com/portrait/portrait/internal/protocol"
	"github.com/portrait/portrait/internal/shape"
)

type recorder struct {
	sent []protocol.Message
	err  error
}

func (r *recorder) Send(m protocol.Message) error {
	r.sent = append(r.sent, m)
	return r.err
}

func (r *recorder) types() []protocol.Type {
	out := make([]protocol.Type, len(r.sent))
	for i, m := range r.sent {
		out[i] = m.Type
	}
	return out
}

func newTestCanvas() (*Canvas, *recorder) {
	rec := &recorder{}
	n := 0
	c := New(Options{
		RoomID: "room1",
		Sender: rec,
		NewID: func() string {
			n++
			return fmt.Sprintf("gen%d", n)
		},
	})
	return c, rec
}

func rect(id string, x, y float64) shape.Shape {
	return shape.Shape{ID: id, Kind: shape.KindRect, X: x, Y: y, Width: 10, Height: 10, StrokeColor: "#000000"}
}

func ids(shapes []shape.Shape) []string {
	out := make([]string, len(shapes))
	for i, s := range shapes {
		out[i] = s.ID
	}
	return out
}

func TestAddUpdateDelete(t *testing.T) {
	c, rec := newTestCanvas()
	changes := 0
	c.OnShapesChange(func() { changes++ })

	c.AddShape(rect("a", 0, 0))
	c.AddShape(rect("b", 5, 5))
	if got := ids(c.Shapes()); fmt.Sprint(got) != "[a b]" {
		t.Fatalf("shapes = %v, want [a b]", got)
	}

	moved := rect("a", 50, 50)
	c.UpdateShape(moved)
	if s, _ := c.Shape("a"); s.X != 50 {
		t.Fatalf("a.X = %v, want 50", s.X)
	}

	c.UpdateShape(rect("ghost", 1, 1))
	if c.Len() != 2 {
		t.Fatalf("update of unknown id changed the list: %v", ids(c.Shapes()))
	}

	c.SetSelectedShape("a")
	c.DeleteShape("a")
	if c.SelectedID() != "" {
		t.Fatalf("SelectedID = %q after deleting it", c.SelectedID())
	}

	want := []protocol.Type{protocol.TypeDrawEnd, protocol.TypeDrawEnd, protocol.TypeDrawEnd, protocol.TypeErase}
	if fmt.Sprint(rec.types()) != fmt.Sprint(want) {
		t.Fatalf("sent = %v, want %v", rec.types(), want)
	}
	if rec.sent[0].RoomID != "room1" {
		t.Fatalf("RoomID = %q, want room1", rec.sent[0].RoomID)
	}
	if changes != 4 {
		t.Fatalf("shape notifications = %d, want 4", changes)
	}
}

func TestStreamingSends(t *testing.T) {
	c, rec := newTestCanvas()
	c.BeginStream()
	c.AddShape(rect("a", 0, 0))
	c.UpdateShape(rect("a", 1, 1))
	c.UpdateShape(rect("a", 2, 2))
	c.Commit("a")

	want := []protocol.Type{protocol.TypeDrawStart, protocol.TypeDrawMove, protocol.TypeDrawMove, protocol.TypeDrawEnd}
	if fmt.Sprint(rec.types()) != fmt.Sprint(want) {
		t.Fatalf("sent = %v, want %v", rec.types(), want)
	}
	if last := rec.sent[3].Shape; last.X != 2 {
		t.Fatalf("committed X = %v, want 2", last.X)
	}
	if c.Streaming() {
		t.Fatal("Commit should end streaming")
	}
}

func TestSelectionNotifiesOnlyOnChange(t *testing.T) {
	c, _ := newTestCanvas()
	c.AddShape(rect("a", 0, 0))
	c.AddShape(rect("b", 0, 0))

	var seen []string
	c.OnSelectionChange(func(id string) { seen = append(seen, id) })

	c.SetSelectedShape("a")
	c.SetSelectedShape("a")
	c.SetSelectedShape("b")
	c.SetSelectedShape("")
	c.SetSelectedShape("missing")

	if fmt.Sprint(seen) != "[a b ]" {
		t.Fatalf("selection events = %q, want [a b \"\"]", seen)
	}
	for _, s := range c.Shapes() {
		if s.Selected {
			t.Fatalf("%s still marked selected", s.ID)
		}
	}
}

func TestSelectedFlagFollowsSelection(t *testing.T) {
	c, _ := newTestCanvas()
	c.AddShape(rect("a", 0, 0))
	c.AddShape(rect("b", 0, 0))
	c.SetSelectedShape("a")
	c.SetSelectedShape("b")

	a, _ := c.Shape("a")
	b, _ := c.Shape("b")
	if a.Selected || !b.Selected {
		t.Fatalf("selected flags = a:%v b:%v, want a:false b:true", a.Selected, b.Selected)
	}
}

func TestCopyPaste(t *testing.T) {
	c, rec := newTestCanvas()
	c.AddShape(rect("src", 0, 0))
	c.SetSelectedShape("src")
	if !c.CopySelectedShape() {
		t.Fatal("CopySelectedShape() = false")
	}

	pasted, ok := c.PasteShape()
	if !ok {
		t.Fatal("PasteShape() = false")
	}
	if pasted.ID == "src" || pasted.ID == "" {
		t.Fatalf("pasted id = %q, want a new identity", pasted.ID)
	}
	if pasted.X != 20 || pasted.Y != 20 {
		t.Fatalf("pasted at (%v,%v), want (20,20)", pasted.X, pasted.Y)
	}
	if c.Len() != 2 || c.SelectedID() != pasted.ID {
		t.Fatalf("len = %d selected = %q, want 2 and the pasted shape", c.Len(), c.SelectedID())
	}
	last := rec.sent[len(rec.sent)-1]
	if last.Type != protocol.TypeDrawEnd || last.Shape.ID != pasted.ID {
		t.Fatalf("last send = %+v, want draw_end of the pasted shape", last)
	}
}

func TestPasteMovesPoints(t *testing.T) {
	c, _ := newTestCanvas()
	line := shape.Shape{ID: "l", Kind: shape.KindLine, Points: []geometry.Point{{X: 0, Y: 0}, {X: 10, Y: 0}}}
	c.AddShape(line)
	c.SetSelectedShape("l")
	c.CopySelectedShape()
	p, _ := c.PasteShape()
	if p.Points[1] != geometry.Pt(30, 20) {
		t.Fatalf("pasted points = %v, want second point (30,20)", p.Points)
	}
	src, _ := c.Shape("l")
	if src.Points[1] != geometry.Pt(10, 0) {
		t.Fatalf("source points changed to %v", src.Points)
	}
}

func TestPasteWithoutClipboard(t *testing.T) {
	c, rec := newTestCanvas()
	if _, ok := c.PasteShape(); ok {
		t.Fatal("PasteShape() with empty clipboard = true")
	}
	if len(rec.sent) != 0 {
		t.Fatalf("sent %d messages, want 0", len(rec.sent))
	}
}

func TestLayerOrder(t *testing.T) {
	c, rec := newTestCanvas()
	for _, id := range []string{"a", "b", "c"} {
		c.AddShape(rect(id, 0, 0))
	}
	c.BringToFront("a")
	if got := fmt.Sprint(ids(c.Shapes())); got != "[b c a]" {
		t.Fatalf("after BringToFront = %v, want [b c a]", got)
	}
	c.SendToBack("c")
	if got := fmt.Sprint(ids(c.Shapes())); got != "[c b a]" {
		t.Fatalf("after SendToBack = %v, want [c b a]", got)
	}
	last := rec.sent[len(rec.sent)-1]
	if last.Type != protocol.TypeLayerOrder || last.Order != protocol.OrderBack || last.ShapeIDs[0] != "c" {
		t.Fatalf("last send = %+v, want layer_order back [c]", last)
	}
}

func TestApplyRemoteUpsertAndLastWriteWins(t *testing.T) {
	c, rec := newTestCanvas()
	red := rect("s", 0, 0)
	red.StrokeColor = "#ff0000"
	blue := red
	blue.StrokeColor = "#0000ff"

	c.ApplyRemote(protocol.DrawEnd(red))
	c.ApplyRemote(protocol.DrawEnd(blue))

	if c.Len() != 1 {
		t.Fatalf("len = %d, want 1", c.Len())
	}
	if s, _ := c.Shape("s"); s.StrokeColor != "#0000ff" {
		t.Fatalf("stroke = %q, want the last applied #0000ff", s.StrokeColor)
	}
	if len(rec.sent) != 0 {
		t.Fatal("remote application must not send")
	}
}

func TestApplyRemoteIgnoresSelectedFlag(t *testing.T) {
	c, _ := newTestCanvas()
	s := rect("s", 0, 0)
	s.Selected = true
	m := protocol.Message{Type: protocol.TypeDrawEnd, Shape: &s}
	c.ApplyRemote(m)
	got, _ := c.Shape("s")
	if got.Selected {
		t.Fatal("remote selected flag leaked into local state")
	}
}

func TestApplyRemoteEraseUnknownIsNoop(t *testing.T) {
	c, _ := newTestCanvas()
	c.AddShape(rect("a", 0, 0))
	before := c.Shapes()
	changes := 0
	c.OnShapesChange(func() { changes++ })

	c.ApplyRemote(protocol.Erase("nope"))
	c.ApplyRemote(protocol.Erase("nope"))

	if changes != 0 || len(c.Shapes()) != len(before) {
		t.Fatalf("erase of unknown id changed state: changes=%d shapes=%v", changes, ids(c.Shapes()))
	}

	c.SetSelectedShape("a")
	c.ApplyRemote(protocol.Erase("a"))
	if c.Len() != 0 || c.SelectedID() != "" {
		t.Fatalf("erase of selected shape: len=%d selected=%q", c.Len(), c.SelectedID())
	}
}

func TestApplyRemotePresence(t *testing.T) {
	c, _ := newTestCanvas()
	c.ApplyRemote(protocol.Message{Type: protocol.TypePresenceState, Users: []string{"u1", "u2"},
		Cursors: map[string]geometry.Point{"u1": {X: 1, Y: 2}}})
	c.ApplyRemote(protocol.Message{Type: protocol.TypeCursorMoved, UserID: "u2", X: 5, Y: 6})
	c.ApplyRemote(protocol.Notice(protocol.TypeUserLeft, "u1"))

	if got := fmt.Sprint(c.Presence().Users()); got != "[u2]" {
		t.Fatalf("users = %v, want [u2]", got)
	}
	if p, ok := c.Presence().Cursor("u2"); !ok || p != geometry.Pt(5, 6) {
		t.Fatalf("u2 cursor = %v %v, want (5,6)", p, ok)
	}
	if _, ok := c.Presence().Cursor("u1"); ok {
		t.Fatal("u1 cursor should be gone after user_left")
	}
}

func TestRestoreBroadcastsDiff(t *testing.T) {
	c, rec := newTestCanvas()
	c.AddShape(rect("a", 0, 0))
	snap := c.Snapshot()
	c.AddShape(rect("b", 0, 0))
	c.UpdateShape(rect("a", 9, 9))
	rec.sent = nil

	c.Restore(snap)

	if got := fmt.Sprint(ids(c.Shapes())); got != "[a]" {
		t.Fatalf("shapes = %v, want [a]", got)
	}
	if a, _ := c.Shape("a"); a.X != 0 {
		t.Fatalf("a.X = %v, want 0", a.X)
	}
	if fmt.Sprint(rec.types()) != "[erase draw_end]" {
		t.Fatalf("sent = %v, want [erase draw_end]", rec.types())
	}
	if rec.sent[0].ShapeIDs[0] != "b" || rec.sent[1].Shape.ID != "a" {
		t.Fatalf("diff = %+v", rec.sent)
	}
}

func TestSendErrorDoesNotCorruptState(t *testing.T) {
	c, rec := newTestCanvas()
	rec.err = errors.New("connection lost")
	c.AddShape(rect("a", 0, 0))
	if c.Len() != 1 {
		t.Fatalf("len = %d, want 1", c.Len())
	}
}

type fakeFetcher struct {
	payloads []json.RawMessage
	err      error
}

func (f fakeFetcher) FetchEditHistory(ctx context.Context, roomID string) ([]json.RawMessage, error) {
	return f.payloads, f.err
}

func encode(t *testing.T, m protocol.Message) json.RawMessage {
	t.Helper()
	data, err := m.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return data
}

func TestHydrate(t *testing.T) {
	a, b := rect("a", 0, 0), rect("b", 0, 0)
	aMoved := rect("a", 40, 40)
	f := fakeFetcher{payloads: []json.RawMessage{
		encode(t, protocol.DrawEnd(a)),
		encode(t, protocol.DrawEnd(b)),
		json.RawMessage(`{"type":"draw_end"`),
		encode(t, protocol.DrawEnd(aMoved)),
		encode(t, protocol.LayerOrder(protocol.OrderBack, "b")),
		encode(t, protocol.Erase("missing")),
	}}

	c, rec := newTestCanvas()
	if err := c.Hydrate(context.Background(), f); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	if got := fmt.Sprint(ids(c.Shapes())); got != "[b a]" {
		t.Fatalf("hydrated = %v, want [b a]", got)
	}
	if s, _ := c.Shape("a"); s.X != 40 {
		t.Fatalf("a.X = %v, want the later 40", s.X)
	}
	if len(rec.sent) != 0 {
		t.Fatal("Hydrate must not send")
	}

	bad := fakeFetcher{err: errors.New("down")}
	if err := New(Options{}).Hydrate(context.Background(), bad); err == nil {
		t.Fatal("Hydrate with a failing fetcher = nil error")
	}
}

func TestSettleBufferedMessages(t *testing.T) {
	x, y := rect("x", 0, 0), rect("y", 0, 0)
	f := fakeFetcher{payloads: []json.RawMessage{
		encode(t, protocol.DrawEnd(x)),
		encode(t, protocol.DrawEnd(y)),
		encode(t, protocol.Erase("x")),
	}}
	c, _ := newTestCanvas()
	if err := c.Hydrate(context.Background(), f); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}

	yOld := rect("y", 90, 90)
	early := []protocol.Message{
		{Type: protocol.TypePresenceState, Users: []string{"alice", "bob"}},
		protocol.DrawEnd(yOld),
	}
	z := rect("z", 5, 5)
	late := []protocol.Message{
		protocol.DrawEnd(x),
		protocol.DrawEnd(z),
		protocol.Notice(protocol.TypeUserJoined, "carol"),
	}
	c.Settle(early, late)

	if got := fmt.Sprint(ids(c.Shapes())); got != "[y z]" {
		t.Fatalf("shapes = %v, want [y z] with erased x kept out", got)
	}
	if s, _ := c.Shape("y"); s.X != 0 {
		t.Fatalf("y.X = %v, want 0 from history, not the early copy", s.X)
	}
	if got := len(c.Presence().Users()); got != 3 {
		t.Fatalf("users = %v, want alice, bob and carol", c.Presence().Users())
	}

	// After settling, a redraw of x (an undo elsewhere) applies normally.
	c.ApplyRemote(protocol.DrawEnd(x))
	if _, ok := c.Shape("x"); !ok {
		t.Fatal("x should come back after settling")
	}
}

func TestReplayAppliesErase(t *testing.T) {
	payloads := []json.RawMessage{
		encode(t, protocol.DrawEnd(rect("a", 0, 0))),
		encode(t, protocol.DrawStart(rect("b", 0, 0))),
		encode(t, protocol.Erase("a")),
	}
	shapes, skipped := Replay(payloads)
	if len(shapes) != 0 {
		t.Fatalf("replayed = %v, want none", ids(shapes))
	}
	if skipped != 1 {
		t.Fatalf("skipped = %d, want 1 transient record", skipped)
	}
}

func TestRestoreBroadcastsOrder(t *testing.T) {
	c, rec := newTestCanvas()
	c.AddShape(rect("a", 0, 0))
	c.AddShape(rect("b", 0, 0))
	snap := c.Snapshot()
	c.BringToFront("a")
	rec.sent = nil

	c.Restore(snap)

	if len(rec.sent) != 1 || rec.sent[0].Type != protocol.TypeLayerOrder {
		t.Fatalf("sent = %v, want a single layer_order", rec.types())
	}
	if got := fmt.Sprint(rec.sent[0].ShapeIDs); got != "[a b]" {
		t.Fatalf("order ids = %v, want [a b]", got)
	}

	// A peer applying the message ends in the same order.
	peer, _ := newTestCanvas()
	peer.ApplyRemote(protocol.DrawEnd(rect("b", 0, 0)))
	peer.ApplyRemote(protocol.DrawEnd(rect("a", 0, 0)))
	peer.ApplyRemote(rec.sent[0])
	if got := fmt.Sprint(ids(peer.Shapes())); got != "[a b]" {
		t.Fatalf("peer order = %v, want [a b]", got)
	}
}
