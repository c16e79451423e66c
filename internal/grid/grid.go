package grid

import (
	"math"

	"github.com/portrait/portrait/internal/geometry"
)

const DefaultSpacing = 20

// Grid quantizes world points and tracks whether grid lines are drawn.
type Grid struct {
	Spacing float64
	Visible bool
	Snap    bool
}

// New returns a visible, non-snapping grid with the given spacing. A
// non-positive spacing selects DefaultSpacing.
func New(spacing float64) *Grid {
	g := &Grid{Visible: true}
	g.SetSpacing(spacing)
	return g
}

// SnapPoint rounds p to the nearest grid intersection when snapping is on.
func (g *Grid) SnapPoint(p geometry.Point) geometry.Point {
	if !g.Snap || g.Spacing <= 0 {
		return p
	}
	return geometry.Pt(
		math.Round(p.X/g.Spacing)*g.Spacing,
		math.Round(p.Y/g.Spacing)*g.Spacing,
	)
}

func (g *Grid) SetSpacing(spacing float64) {
	if spacing <= 0 {
		spacing = DefaultSpacing
	}
	g.Spacing = spacing
}

func (g *Grid) ToggleVisible() { g.Visible = !g.Visible }
func (g *Grid) ToggleSnap() { g.Snap = !g.Snap }

// Lines returns the x and y coordinates of the grid lines crossing area.
func (g *Grid) Lines(area geometry.Rect) (xs, ys []float64) {
	if !g.Visible || g.Spacing <= 0 {
		return nil, nil
	}
	area = area.Normalize()
	startX := math.Floor(area.X/g.Spacing) * g.Spacing
	startY := math.Floor(area.Y/g.Spacing) * g.Spacing
	for x := startX; x <= area.X+area.Width; x += g.Spacing {
		xs = append(xs, x)
	}
	for y := startY; y <= area.Y+area.Height; y += g.Spacing {
		ys = append(ys, y)
	}
	return xs, ys
}
