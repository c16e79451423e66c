package shape

import (
	"math"

	"github.com/portrait/portrait/internal/geometry"
)

const (
	MinSize     = 10
	MinFontSize = 12
)

// Resize returns orig resized by dragging handle h from start to at. The
// delta is always measured from the gesture start so repeated calls during
// a drag do not accumulate rounding. Edges opposite h stay fixed, and sizes
// clamp at MinSize instead of inverting. keepAspect holds the original
// width:height ratio on corner handles. It panics on an unknown Kind.
func Resize(orig Shape, h Handle, start, at geometry.Point, keepAspect bool) Shape {
	b := lookup(orig.Kind)
	if h == HandleNone {
		return orig.Clone()
	}
	d := at.Sub(start)
	if orig.Angle != 0 {
		d = geometry.Rotate(-orig.Angle).Apply(d)
	}
	return b.resize(orig.Clone(), h, d, at, keepAspect)
}

func noResize(s Shape, _ Handle, _, _ geometry.Point, _ bool) Shape {
	return s
}

func resizeBox(s Shape, h Handle, d, _ geometry.Point, keepAspect bool) Shape {
	r := boxBounds(s)
	x0, y0 := r.X, r.Y
	x1, y1 := r.X+r.Width, r.Y+r.Height

	switch {
	case h.left():
		x0 = min(x0+d.X, x1-MinSize)
	case h.right():
		x1 = max(x1+d.X, x0+MinSize)
	}
	switch {
	case h.top():
		y0 = min(y0+d.Y, y1-MinSize)
	case h.bottom():
		y1 = max(y1+d.Y, y0+MinSize)
	}

	if keepAspect && h.Corner() && r.Width > 0 && r.Height > 0 {
		ratio := r.Width / r.Height
		w := x1 - x0
		ht := w / ratio
		if ht < MinSize {
			ht = MinSize
			w = ht * ratio
		}
		if h.left() {
			x0 = x1 - w
		} else {
			x1 = x0 + w
		}
		if h.top() {
			y0 = y1 - ht
		} else {
			y1 = y0 + ht
		}
	}

	s.X, s.Y = x0, y0
	s.Width, s.Height = x1-x0, y1-y0
	return s
}

// resizeCircle sets the radius to the distance from the center to the
// pointer.
func resizeCircle(s Shape, _ Handle, _, at geometry.Point, _ bool) Shape {
	s.Radius = max(MinSize, at.Distance(geometry.Pt(s.X, s.Y)))
	return s
}

// resizeText scales the font from the right-hand handles only.
func resizeText(s Shape, h Handle, d, _ geometry.Point, _ bool) Shape {
	if !h.right() {
		return s
	}
	s.FontSize = math.Max(MinFontSize, s.FontSize*(1+d.X/100))
	return s
}
