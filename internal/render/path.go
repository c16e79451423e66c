package render

import (
	"math"

	"github.com/portrait/portrait/internal/geometry"
)

// kappa places cubic control points so four curves approximate a circle.
const kappa = 0.5522847498

func moveTo(p geometry.Point) PathCommand { return PathCommand{"M", p.X, p.Y} }
func lineTo(p geometry.Point) PathCommand { return PathCommand{"L", p.X, p.Y} }

func closePath() PathCommand { return PathCommand{"Z"} }

func rectPath(r geometry.Rect) []PathCommand {
	r = r.Normalize()
	return []PathCommand{
		moveTo(geometry.Pt(r.X, r.Y)),
		lineTo(geometry.Pt(r.X+r.Width, r.Y)),
		lineTo(geometry.Pt(r.X+r.Width, r.Y+r.Height)),
		lineTo(geometry.Pt(r.X, r.Y+r.Height)),
		closePath(),
	}
}

func circlePath(c geometry.Point, r float64) []PathCommand {
	k := r * kappa
	x, y := c.X, c.Y
	return []PathCommand{
		{"M", x + r, y},
		{"C", x + r, y + k, x + k, y + r, x, y + r},
		{"C", x - k, y + r, x - r, y + k, x - r, y},
		{"C", x - r, y - k, x - k, y - r, x, y - r},
		{"C", x + k, y - r, x + r, y - k, x + r, y},
		closePath(),
	}
}

func polylinePath(pts []geometry.Point) []PathCommand {
	if len(pts) == 0 {
		return nil
	}
	out := make([]PathCommand, 0, len(pts))
	out = append(out, moveTo(pts[0]))
	for _, p := range pts[1:] {
		out = append(out, lineTo(p))
	}
	return out
}

// arrowHead returns the closed triangle whose tip is at tip and which
// points away from tail.
func arrowHead(tip, tail geometry.Point) []PathCommand {
	angle := math.Atan2(tail.Y-tip.Y, tail.X-tip.X)
	left := geometry.Pt(
		tip.X+ArrowHeadLength*math.Cos(angle-ArrowHeadAngle),
		tip.Y+ArrowHeadLength*math.Sin(angle-ArrowHeadAngle),
	)
	right := geometry.Pt(
		tip.X+ArrowHeadLength*math.Cos(angle+ArrowHeadAngle),
		tip.Y+ArrowHeadLength*math.Sin(angle+ArrowHeadAngle),
	)
	return []PathCommand{moveTo(tip), lineTo(left), lineTo(right), closePath()}
}

// Flatten converts path commands into polylines, one per subpath, after
// applying m. Curves are subdivided into steps segments.
func Flatten(path []PathCommand, m geometry.Matrix2D, steps int) [][]geometry.Point {
	if steps < 1 {
		steps = 1
	}
	var (
		out   [][]geometry.Point
		cur   []geometry.Point
		start geometry.Point
		last  geometry.Point
	)
	flush := func() {
		if len(cur) > 0 {
			out = append(out, cur)
		}
		cur = nil
	}

	for _, cmd := range path {
		if len(cmd) == 0 {
			continue
		}
		op, _ := cmd[0].(string)
		args := floats(cmd[1:])
		switch {
		case op == "M" && len(args) >= 2:
			flush()
			last = geometry.Pt(args[0], args[1])
			start = last
			cur = []geometry.Point{m.Apply(last)}
		case op == "L" && len(args) >= 2:
			last = geometry.Pt(args[0], args[1])
			cur = append(cur, m.Apply(last))
		case op == "C" && len(args) >= 6:
			c1 := geometry.Pt(args[0], args[1])
			c2 := geometry.Pt(args[2], args[3])
			end := geometry.Pt(args[4], args[5])
			for i := 1; i <= steps; i++ {
				cur = append(cur, m.Apply(cubic(last, c1, c2, end, float64(i)/float64(steps))))
			}
			last = end
		case op == "Z":
			if len(cur) > 0 {
				cur = append(cur, m.Apply(start))
			}
			last = start
		}
	}
	flush()
	return out
}

func cubic(p0, p1, p2, p3 geometry.Point, t float64) geometry.Point {
	u := 1 - t
	a, b, c, d := u*u*u, 3*u*u*t, 3*u*t*t, t*t*t
	return geometry.Pt(
		a*p0.X+b*p1.X+c*p2.X+d*p3.X,
		a*p0.Y+b*p1.Y+c*p2.Y+d*p3.Y,
	)
}

func floats(vals []interface{}) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		switch n := v.(type) {
		case float64:
			out = append(out, n)
		case int:
			out = append(out, float64(n))
		}
	}
	return out
}
