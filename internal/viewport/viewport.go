// Package viewport maps between screen and world coordinates under a pan
// offset and a clamped zoom scale.
package viewport

import "github.com/portrait/portrait/internal/geometry"

const (
	MinScale = 0.1
	MaxScale = 5.0

	// wheelStep converts wheel delta units into a zoom factor.
	wheelStep = 1000.0
)

// Viewport is the world-to-screen transform: screen = world*Scale + Offset.
type Viewport struct {
	Scale   float64 `json:"scale"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
}

// New returns an unpanned viewport at 100%.
func New() *Viewport {
	return &Viewport{Scale: 1}
}

// ScreenToWorld applies the inverse of Matrix. Scale is never zero.
func (v *Viewport) ScreenToWorld(p geometry.Point) geometry.Point {
	return v.Matrix().Invert().Apply(p)
}

func (v *Viewport) WorldToScreen(p geometry.Point) geometry.Point {
	return geometry.Pt(p.X*v.Scale+v.OffsetX, p.Y*v.Scale+v.OffsetY)
}

// Matrix returns the world-to-screen transform.
func (v *Viewport) Matrix() geometry.Matrix2D {
	return geometry.Matrix2D{v.Scale, 0, 0, v.Scale, v.OffsetX, v.OffsetY}
}

// Zoom applies a wheel delta around the screen point cursor. The world
// point under the cursor stays under the cursor.
func (v *Viewport) Zoom(cursor geometry.Point, deltaY float64) {
	v.ZoomBy(cursor, 1+(-deltaY)/wheelStep)
}

// ZoomBy multiplies the scale by factor around cursor, clamped to
// [MinScale, MaxScale].
func (v *Viewport) ZoomBy(cursor geometry.Point, factor float64) {
	if factor <= 0 {
		return
	}
	anchor := v.ScreenToWorld(cursor)
	v.Scale = clampScale(v.Scale * factor)
	v.OffsetX = cursor.X - anchor.X*v.Scale
	v.OffsetY = cursor.Y - anchor.Y*v.Scale
}

// Pan moves the view by a screen-space drag delta, divided by the current
// scale.
func (v *Viewport) Pan(d geometry.Point) {
	v.OffsetX += d.X / v.Scale
	v.OffsetY += d.Y / v.Scale
}

// Reset returns to 100% with no offset.
func (v *Viewport) Reset() {
	*v = Viewport{Scale: 1}
}

// VisibleWorld returns the world rect shown on a screen of the given size.
func (v *Viewport) VisibleWorld(width, height float64) geometry.Rect {
	tl := v.ScreenToWorld(geometry.Pt(0, 0))
	return geometry.Rect{X: tl.X, Y: tl.Y, Width: width / v.Scale, Height: height / v.Scale}
}

func clampScale(s float64) float64 {
	return max(MinScale, min(MaxScale, s))
}
