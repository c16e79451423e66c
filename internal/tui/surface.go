package tui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/portrait/portrait/internal/geometry"
	"github.com/portrait/portrait/internal/render"
)

// Each terminal cell holds a 2x4 braille dot matrix.
const (
	dotsX = 2
	dotsY = 4

	curveSteps = 12
	// maxSegmentDots bounds the work for one segment far outside the view.
	maxSegmentDots = 1 << 14
)

var brailleBits = [dotsY][dotsX]uint8{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

type cell struct {
	dots  uint8
	text  rune
	color string
}

// Surface rasterizes draw commands onto a grid of terminal cells.
type Surface struct {
	cols, rows   int
	cellW, cellH float64
	cells        []cell
}

// NewSurface returns a blank surface of cols x rows cells, each covering
// cellW x cellH canvas pixels.
func NewSurface(cols, rows int, cellW, cellH float64) *Surface {
	cols, rows = max(cols, 0), max(rows, 0)
	return &Surface{
		cols:  cols,
		rows:  rows,
		cellW: cellW,
		cellH: cellH,
		cells: make([]cell, cols*rows),
	}
}

// Draw paints cmds in order. view maps world coordinates to canvas pixels.
func (s *Surface) Draw(cmds []render.DrawCommand, view geometry.Matrix2D) {
	toDots := geometry.Scale(dotsX/s.cellW, dotsY/s.cellH).Multiply(view)
	for _, cmd := range cmds {
		m := toDots
		if len(cmd.Transform) == 6 {
			var t geometry.Matrix2D
			copy(t[:], cmd.Transform)
			m = toDots.Multiply(t)
		}
		color := inkFor(cmd)

		switch cmd.Op {
		case render.OpPath:
			for _, poly := range render.Flatten(cmd.Path, m, curveSteps) {
				s.polyline(poly, color)
			}
		case render.OpText:
			s.label(m.Apply(geometry.Pt(cmd.X, cmd.Y)), cmd.Text, color)
		case render.OpImage:
			r := geometry.Rect{X: cmd.X, Y: cmd.Y, Width: cmd.Width, Height: cmd.Height}
			c := r.Corners()
			corners := []geometry.Point{m.Apply(c[0]), m.Apply(c[1]), m.Apply(c[2]), m.Apply(c[3]), m.Apply(c[0])}
			s.polyline(corners, color)
			s.label(m.Apply(r.Center()).Sub(geometry.Pt(2*dotsX, 0)), "[img]", color)
		case render.OpCursor:
			at := m.Apply(geometry.Pt(cmd.X, cmd.Y))
			s.label(at, "▲"+initial(cmd.Text), color)
		}
	}
}

func initial(userID string) string {
	for _, r := range userID {
		return string(r)
	}
	return ""
}

// inkFor picks the terminal color of a command. Near-black strokes use the
// terminal's default foreground so they stay visible on dark themes.
func inkFor(cmd render.DrawCommand) string {
	src := cmd.Stroke
	if src == "" {
		src = cmd.Fill
	}
	c, ok := render.ParseColor(src)
	if !ok {
		return ""
	}
	l, _, _ := c.Lab()
	if l < 0.15 {
		return ""
	}
	if cmd.Opacity > 0 && cmd.Opacity < 1 {
		c = render.Blend(c, colorful.Color{R: 0.5, G: 0.5, B: 0.5}, cmd.Opacity)
	}
	return c.Hex()
}

func (s *Surface) polyline(pts []geometry.Point, color string) {
	if len(pts) == 1 {
		s.plot(pts[0].X, pts[0].Y, color)
		return
	}
	for i := 1; i < len(pts); i++ {
		s.segment(pts[i-1], pts[i], color)
	}
}

func (s *Surface) segment(a, b geometry.Point, color string) {
	w, h := float64(s.cols*dotsX), float64(s.rows*dotsY)
	if (a.X < 0 && b.X < 0) || (a.Y < 0 && b.Y < 0) || (a.X >= w && b.X >= w) || (a.Y >= h && b.Y >= h) {
		return
	}
	n := int(math.Ceil(math.Max(math.Abs(b.X-a.X), math.Abs(b.Y-a.Y))))
	n = min(max(n, 1), maxSegmentDots)
	for i := 0; i <= n; i++ {
		t := float64(i) / float64(n)
		s.plot(a.X+(b.X-a.X)*t, a.Y+(b.Y-a.Y)*t, color)
	}
}

func (s *Surface) plot(x, y float64, color string) {
	dx, dy := int(math.Floor(x)), int(math.Floor(y))
	if dx < 0 || dy < 0 || dx >= s.cols*dotsX || dy >= s.rows*dotsY {
		return
	}
	c := &s.cells[(dy/dotsY)*s.cols+dx/dotsX]
	c.dots |= brailleBits[dy%dotsY][dx%dotsX]
	c.color = color
}

// label writes text into cells starting at the cell containing the dot
// position at.
func (s *Surface) label(at geometry.Point, text, color string) {
	col := int(math.Floor(at.X / dotsX))
	row := int(math.Floor(at.Y / dotsY))
	if row < 0 || row >= s.rows {
		return
	}
	for _, r := range text {
		if col >= s.cols {
			return
		}
		if col >= 0 {
			c := &s.cells[row*s.cols+col]
			c.text = r
			c.color = color
		}
		col++
	}
}

// Lines returns the surface as plain text rows.
func (s *Surface) Lines() []string {
	out := make([]string, s.rows)
	for row := range s.rows {
		var b strings.Builder
		for col := range s.cols {
			b.WriteRune(s.cells[row*s.cols+col].glyph())
		}
		out[row] = b.String()
	}
	return out
}

// Render returns the surface as styled text, one line per row.
func (s *Surface) Render() string {
	lines := make([]string, s.rows)
	for row := range s.rows {
		var b strings.Builder
		var run strings.Builder
		runColor := ""
		flush := func() {
			if run.Len() == 0 {
				return
			}
			if runColor == "" {
				b.WriteString(run.String())
			} else {
				b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(runColor)).Render(run.String()))
			}
			run.Reset()
		}
		for col := range s.cols {
			c := s.cells[row*s.cols+col]
			if c.color != runColor {
				flush()
				runColor = c.color
			}
			run.WriteRune(c.glyph())
		}
		flush()
		lines[row] = b.String()
	}
	return strings.Join(lines, "\n")
}

func (c cell) glyph() rune {
	switch {
	case c.text != 0:
		return c.text
	case c.dots != 0:
		return rune(0x2800 + int(c.dots))
	}
	return ' '
}
