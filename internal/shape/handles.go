package shape

import "github.com/portrait/portrait/internal/geometry"

// HandleSize is the side of the square hit box around each resize handle.
const HandleSize = 8

// Handle names one of the eight resize anchors on a selected shape.
type Handle string

const (
	HandleNone         Handle = ""
	HandleTopLeft      Handle = "top-left"
	HandleTopMiddle    Handle = "top-middle"
	HandleTopRight     Handle = "top-right"
	HandleMiddleRight  Handle = "middle-right"
	HandleBottomRight  Handle = "bottom-right"
	HandleBottomMiddle Handle = "bottom-middle"
	HandleBottomLeft   Handle = "bottom-left"
	HandleMiddleLeft   Handle = "middle-left"
)

func (h Handle) left() bool {
	return h == HandleTopLeft || h == HandleMiddleLeft || h == HandleBottomLeft
}

func (h Handle) right() bool {
	return h == HandleTopRight || h == HandleMiddleRight || h == HandleBottomRight
}

func (h Handle) top() bool {
	return h == HandleTopLeft || h == HandleTopMiddle || h == HandleTopRight
}

func (h Handle) bottom() bool {
	return h == HandleBottomLeft || h == HandleBottomMiddle || h == HandleBottomRight
}

// Corner reports whether h moves two edges at once.
func (h Handle) Corner() bool {
	return (h.left() || h.right()) && (h.top() || h.bottom())
}

// Cursor returns the CSS cursor name shown while hovering h.
func (h Handle) Cursor() string {
	switch h {
	case HandleTopLeft, HandleBottomRight:
		return "nwse-resize"
	case HandleTopRight, HandleBottomLeft:
		return "nesw-resize"
	case HandleTopMiddle, HandleBottomMiddle:
		return "ns-resize"
	case HandleMiddleLeft, HandleMiddleRight:
		return "ew-resize"
	}
	return "move"
}

// HandlePoint is a handle and its world position.
type HandlePoint struct {
	Handle Handle
	At     geometry.Point
}

// Handles returns the eight resize anchors of s in world space, or nil for
// variants that cannot be resized.
func Handles(s Shape) []HandlePoint {
	b, ok := behaviors[s.Kind]
	if !ok || !b.handles {
		return nil
	}

	r := b.bounds(s)
	x0, y0 := r.X, r.Y
	x1, y1 := r.X+r.Width, r.Y+r.Height
	mx, my := r.X+r.Width/2, r.Y+r.Height/2

	hs := []HandlePoint{
		{HandleTopLeft, geometry.Pt(x0, y0)},
		{HandleTopMiddle, geometry.Pt(mx, y0)},
		{HandleTopRight, geometry.Pt(x1, y0)},
		{HandleMiddleRight, geometry.Pt(x1, my)},
		{HandleBottomRight, geometry.Pt(x1, y1)},
		{HandleBottomMiddle, geometry.Pt(mx, y1)},
		{HandleBottomLeft, geometry.Pt(x0, y1)},
		{HandleMiddleLeft, geometry.Pt(x0, my)},
	}
	if s.Angle != 0 {
		c := Center(s)
		for i := range hs {
			hs[i].At = geometry.RotateAround(hs[i].At, c, s.Angle)
		}
	}
	return hs
}

// HandleAt returns the handle of the selected shape s under p. Unselected
// shapes have no active handles.
func HandleAt(s Shape, p geometry.Point) Handle {
	if !s.Selected {
		return HandleNone
	}
	const half = HandleSize / 2
	for _, h := range Handles(s) {
		box := geometry.Rect{X: h.At.X - half, Y: h.At.Y - half, Width: HandleSize, Height: HandleSize}
		if box.Contains(p) {
			return h.Handle
		}
	}
	return HandleNone
}
