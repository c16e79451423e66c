package shape

import (
	"fmt"

	"github.com/portrait/portrait/internal/geometry"
)

// HitTolerance is how far outside a stroke a point still counts as a hit.
const HitTolerance = 5

// behavior is the per-variant geometry. Every Kind has exactly one entry;
// callers go through the exported helpers below instead of switching on Kind.
type behavior struct {
	bounds    func(s Shape) geometry.Rect
	hit       func(s Shape, p geometry.Point) bool
	resize    func(orig Shape, h Handle, d, at geometry.Point, keepAspect bool) Shape
	transform func(s Shape, m geometry.Matrix2D) Shape
	handles   bool
}

var behaviors map[Kind]behavior

func init() {
	box := behavior{
		bounds:    boxBounds,
		hit:       boxHit,
		resize:    resizeBox,
		transform: transformBox,
		handles:   true,
	}
	segment := behavior{
		bounds:    pointsBounds,
		hit:       segmentHit,
		resize:    noResize,
		transform: transformPoints,
	}

	behaviors = map[Kind]behavior{
		KindRect:  box,
		KindImage: box,
		KindCircle: {
			bounds:    circleBounds,
			hit:       circleHit,
			resize:    resizeCircle,
			transform: transformCircle,
			handles:   true,
		},
		KindLine:  segment,
		KindArrow: segment,
		KindFree: {
			bounds:    pointsBounds,
			hit:       polylineHit,
			resize:    noResize,
			transform: transformPoints,
		},
		KindText: {
			bounds:    textBounds,
			hit:       textHit,
			resize:    resizeText,
			transform: transformText,
			handles:   true,
		},
	}
}

func lookup(k Kind) behavior {
	b, ok := behaviors[k]
	if !ok {
		panic(fmt.Errorf("%w: %q", ErrUnknownKind, k))
	}
	return b
}

// Bounds returns the unrotated, normalized box around s. It panics on an
// unknown Kind.
func Bounds(s Shape) geometry.Rect {
	return lookup(s.Kind).bounds(s)
}

// Center returns the rotation pivot of s.
func Center(s Shape) geometry.Point {
	if s.Kind == KindCircle {
		return geometry.Pt(s.X, s.Y)
	}
	return Bounds(s).Center()
}

// HitTest reports whether p lies on s. Unknown kinds never hit.
func HitTest(s Shape, p geometry.Point) bool {
	b, ok := behaviors[s.Kind]
	if !ok {
		return false
	}
	if s.Angle != 0 {
		p = geometry.RotateAround(p, Center(s), -s.Angle)
	}
	return b.hit(s, p)
}

// TopmostAt returns the index of the last shape in paint order that p hits,
// or -1.
func TopmostAt(shapes []Shape, p geometry.Point) int {
	for i := len(shapes) - 1; i >= 0; i-- {
		if HitTest(shapes[i], p) {
			return i
		}
	}
	return -1
}

// Translate moves s by d.
func Translate(s Shape, d geometry.Point) Shape {
	s = s.Clone()
	s.X += d.X
	s.Y += d.Y
	for i := range s.Points {
		s.Points[i] = s.Points[i].Add(d)
	}
	return s
}

// Rotate turns s by radians around its center.
func Rotate(s Shape, radians float64) Shape {
	s = s.Clone()
	s.Angle += radians
	return s
}

// Transform applies m to the anchor points of s. The uniform scale of m
// scales the size fields.
func Transform(s Shape, m geometry.Matrix2D) Shape {
	return lookup(s.Kind).transform(s.Clone(), m)
}

func boxBounds(s Shape) geometry.Rect {
	return geometry.Rect{X: s.X, Y: s.Y, Width: s.Width, Height: s.Height}.Normalize()
}

// boxHit accepts the box and every point within HitTolerance of it, edges
// of the band included. The band has rounded corners.
func boxHit(s Shape, p geometry.Point) bool {
	return boxBounds(s).Distance(p) <= HitTolerance
}

func transformBox(s Shape, m geometry.Matrix2D) Shape {
	k := m.UniformScale()
	c := m.Apply(boxBounds(s).Center())
	s.Width *= k
	s.Height *= k
	s.X = c.X - s.Width/2
	s.Y = c.Y - s.Height/2
	return s
}

func circleBounds(s Shape) geometry.Rect {
	return geometry.Rect{X: s.X - s.Radius, Y: s.Y - s.Radius, Width: 2 * s.Radius, Height: 2 * s.Radius}
}

// circleHit is a ring test for outlined circles and a disk test for filled ones.
func circleHit(s Shape, p geometry.Point) bool {
	d := p.Distance(geometry.Pt(s.X, s.Y))
	if s.Filled() {
		return d <= s.Radius+HitTolerance
	}
	return d >= s.Radius-HitTolerance && d <= s.Radius+HitTolerance
}

func transformCircle(s Shape, m geometry.Matrix2D) Shape {
	c := m.Apply(geometry.Pt(s.X, s.Y))
	s.X, s.Y = c.X, c.Y
	s.Radius *= m.UniformScale()
	return s
}

func pointsBounds(s Shape) geometry.Rect {
	if len(s.Points) == 0 {
		return geometry.Rect{X: s.X, Y: s.Y}
	}
	return geometry.BoundsOf(s.Points)
}

func segmentHit(s Shape, p geometry.Point) bool {
	switch len(s.Points) {
	case 0:
		return false
	case 1:
		return p.Distance(s.Points[0]) <= HitTolerance
	}
	return geometry.DistanceToSegment(p, s.Points[0], s.Points[1]) <= HitTolerance
}

func polylineHit(s Shape, p geometry.Point) bool {
	if len(s.Points) == 1 {
		return p.Distance(s.Points[0]) <= HitTolerance
	}
	for i := 1; i < len(s.Points); i++ {
		if geometry.DistanceToSegment(p, s.Points[i-1], s.Points[i]) <= HitTolerance {
			return true
		}
	}
	return false
}

func transformPoints(s Shape, m geometry.Matrix2D) Shape {
	for i := range s.Points {
		s.Points[i] = m.Apply(s.Points[i])
	}
	if len(s.Points) > 0 {
		s.X, s.Y = s.Points[0].X, s.Points[0].Y
	}
	return s
}

func textBounds(s Shape) geometry.Rect {
	return geometry.Rect{X: s.X, Y: s.Y, Width: MeasureText(s.Text, s.FontSize), Height: s.FontSize}
}

func textHit(s Shape, p geometry.Point) bool {
	return textBounds(s).Contains(p)
}

func transformText(s Shape, m geometry.Matrix2D) Shape {
	c := m.Apply(textBounds(s).Center())
	s.FontSize *= m.UniformScale()
	b := textBounds(s)
	s.X = c.X - b.Width/2
	s.Y = c.Y - b.Height/2
	return s
}
