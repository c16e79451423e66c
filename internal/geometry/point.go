package geometry

import "math"

// Point is a position in world or screen space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }
func (p Point) Mul(s float64) Point { return Point{X: p.X * s, Y: p.Y * s} }
func (p Point) Div(s float64) Point { return Point{X: p.X / s, Y: p.Y / s} }
func (p Point) Distance(q Point) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

// Near reports whether p and q are within eps on both axes.
func (p Point) Near(q Point, eps float64) bool {
	return math.Abs(p.X-q.X) <= eps && math.Abs(p.Y-q.Y) <= eps
}

// DistanceToSegment returns the distance from p to the closed segment a-b.
// A degenerate segment measures distance to its single point.
func DistanceToSegment(p, a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return p.Distance(a)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	t = max(0, min(1, t))
	return p.Distance(Point{X: a.X + t*dx, Y: a.Y + t*dy})
}

// AngleBetween returns the signed angle in radians that rotates the ray
// center->from onto center->to, in (-Pi, Pi].
func AngleBetween(center, from, to Point) float64 {
	a := math.Atan2(from.Y-center.Y, from.X-center.X)
	b := math.Atan2(to.Y-center.Y, to.X-center.X)
	d := b - a
	for d > math.Pi {
		d -= 2 * math.Pi
	}
	for d <= -math.Pi {
		d += 2 * math.Pi
	}
	return d
}

// RotateAround rotates p by radians around c.
func RotateAround(p, c Point, radians float64) Point {
	if radians == 0 {
		return p
	}
	return RotateAbout(radians, c).Apply(p)
}
