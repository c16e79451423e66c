package export

import (
	"fmt"
	"io"
	"math"

	"github.com/jung-kurt/gofpdf"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/portrait/portrait/internal/geometry"
	"github.com/portrait/portrait/internal/render"
	"github.com/portrait/portrait/internal/shape"
)

// Margin is the blank border around the drawing, in points.
const Margin = 20

// minPage keeps tiny drawings on a usable page.
const minPage = 200

// WritePDF renders shapes onto a single page sized to fit them. One world
// unit becomes one PDF point.
func WritePDF(w io.Writer, shapes []shape.Shape) error {
	area := extent(shapes)
	width := math.Max(area.Width+2*Margin, minPage)
	height := math.Max(area.Height+2*Margin, minPage)

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: width, Ht: height},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	// World -> page: the drawing's top-left lands at the margin.
	page := geometry.Translate(Margin-area.X, Margin-area.Y)

	for _, s := range shapes {
		for _, cmd := range render.CompileShape(s) {
			drawCommand(pdf, cmd, page)
		}
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// extent is the rotated union of all shape bounds.
func extent(shapes []shape.Shape) geometry.Rect {
	var area geometry.Rect
	for i, s := range shapes {
		b := shape.Bounds(s).Normalize()
		if s.Angle != 0 {
			b = geometry.RotateAbout(s.Angle, shape.Center(s)).ApplyRect(b)
		}
		b = b.Inflate(s.StrokeWidth / 2)
		if i == 0 {
			area = b
		} else {
			area = area.Union(b)
		}
	}
	return area
}

func drawCommand(pdf *gofpdf.Fpdf, cmd render.DrawCommand, page geometry.Matrix2D) {
	m := page
	if len(cmd.Transform) == 6 {
		var t geometry.Matrix2D
		copy(t[:], cmd.Transform)
		m = page.Multiply(t)
	}

	opacity := cmd.Opacity
	if opacity <= 0 || opacity > 1 {
		opacity = 1
	}
	pdf.SetAlpha(opacity, "Normal")
	defer pdf.SetAlpha(1, "Normal")

	stroke, hasStroke := render.ParseColor(cmd.Stroke)
	hasStroke = hasStroke && cmd.StrokeWidth > 0
	fill, hasFill := render.ParseColor(cmd.Fill)
	if hasStroke {
		r, g, b := stroke.RGB255()
		pdf.SetDrawColor(int(r), int(g), int(b))
		pdf.SetLineWidth(cmd.StrokeWidth)
	}
	if hasFill {
		r, g, b := fill.RGB255()
		pdf.SetFillColor(int(r), int(g), int(b))
	}
	if cmd.LineCap != "" {
		pdf.SetLineCapStyle(cmd.LineCap)
		pdf.SetLineJoinStyle("round")
		defer func() {
			pdf.SetLineCapStyle("butt")
			pdf.SetLineJoinStyle("miter")
		}()
	}

	switch cmd.Op {
	case render.OpPath:
		style := drawStyle(hasStroke, hasFill)
		if style == "" {
			return
		}
		tracePath(pdf, cmd.Path, m)
		pdf.DrawPath(style)

	case render.OpText:
		drawText(pdf, cmd, m, stroke, hasStroke, fill, hasFill)

	case render.OpImage:
		// Remote images are not fetched; the frame and a cross mark the slot.
		r := geometry.Rect{X: cmd.X, Y: cmd.Y, Width: cmd.Width, Height: cmd.Height}
		c := r.Corners()
		pdf.SetDrawColor(128, 128, 128)
		pdf.SetLineWidth(1)
		path := []render.PathCommand{
			{"M", c[0].X, c[0].Y}, {"L", c[1].X, c[1].Y}, {"L", c[2].X, c[2].Y}, {"L", c[3].X, c[3].Y}, {"Z"},
			{"M", c[0].X, c[0].Y}, {"L", c[2].X, c[2].Y},
			{"M", c[1].X, c[1].Y}, {"L", c[3].X, c[3].Y},
		}
		tracePath(pdf, path, m)
		pdf.DrawPath("D")
	}
}

func drawStyle(stroke, fill bool) string {
	switch {
	case stroke && fill:
		return "FD"
	case fill:
		return "F"
	case stroke:
		return "D"
	}
	return ""
}

// tracePath replays path commands through m. Affine maps keep Bezier
// curves exact, so control points are transformed like any other point.
func tracePath(pdf *gofpdf.Fpdf, path []render.PathCommand, m geometry.Matrix2D) {
	at := func(vals []interface{}, i int) geometry.Point {
		x, _ := vals[i].(float64)
		y, _ := vals[i+1].(float64)
		return m.Apply(geometry.Pt(x, y))
	}
	for _, cmd := range path {
		if len(cmd) == 0 {
			continue
		}
		op, _ := cmd[0].(string)
		args := cmd[1:]
		switch {
		case op == "M" && len(args) >= 2:
			p := at(args, 0)
			pdf.MoveTo(p.X, p.Y)
		case op == "L" && len(args) >= 2:
			p := at(args, 0)
			pdf.LineTo(p.X, p.Y)
		case op == "C" && len(args) >= 6:
			c1, c2, end := at(args, 0), at(args, 2), at(args, 4)
			pdf.CurveBezierCubicTo(c1.X, c1.Y, c2.X, c2.Y, end.X, end.Y)
		case op == "Z":
			pdf.ClosePath()
		}
	}
}

func drawText(pdf *gofpdf.Fpdf, cmd render.DrawCommand, m geometry.Matrix2D, stroke colorful.Color, hasStroke bool, fill colorful.Color, hasFill bool) {
	if cmd.Text == "" {
		return
	}
	size := cmd.FontSize
	if size <= 0 {
		size = 16
	}
	pdf.SetFont("Helvetica", "", size)

	// Text fills with its fill color, or its stroke color when unfilled.
	c := fill
	if !hasFill {
		if !hasStroke {
			return
		}
		c = stroke
	}
	r, g, b := c.RGB255()
	pdf.SetTextColor(int(r), int(g), int(b))

	origin := m.Apply(geometry.Pt(cmd.X, cmd.Y))
	angle := math.Atan2(m[1], m[0])
	if angle != 0 {
		pdf.TransformBegin()
		// gofpdf rotates counter-clockwise; world angles turn clockwise on screen.
		pdf.TransformRotate(-angle*180/math.Pi, origin.X, origin.Y)
		defer pdf.TransformEnd()
	}
	pdf.Text(origin.X, origin.Y+size*0.8, cmd.Text)
}
