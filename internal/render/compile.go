package render

import (
	"fmt"
	"math"
	"slices"

	"github.com/portrait/portrait/internal/geometry"
	"github.com/portrait/portrait/internal/grid"
	"github.com/portrait/portrait/internal/shape"
)

const (
	SelectionColor   = "#00A0FF"
	SelectionPadding = 5
	HandleFill       = "#FFFFFF"
	GridColor        = "#e0e0e0"
	GridLineWidth    = 0.5
	ArrowHeadLength  = 15
	ArrowHeadAngle   = math.Pi / 6
)

// Options controls what Compile emits besides the shapes.
type Options struct {
	// Grid lines are emitted for Area when Grid is visible.
	Grid *grid.Grid
	Area geometry.Rect
	// SelectedID gets a selection box and resize handles.
	SelectedID string
	// Cursors are remote pointer positions keyed by user id.
	Cursors map[string]geometry.Point
}

// Compile generates a draw command buffer in painter's order: grid, shapes
// back to front, the selection overlay, then remote cursors.
func Compile(shapes []shape.Shape, opts Options) []DrawCommand {
	var commands []DrawCommand

	if opts.Grid != nil && opts.Grid.Visible && !opts.Area.IsEmpty() {
		if cmd, ok := compileGrid(opts.Grid, opts.Area); ok {
			commands = append(commands, cmd)
		}
	}

	for _, s := range shapes {
		commands = append(commands, CompileShape(s)...)
	}

	if opts.SelectedID != "" {
		if i := slices.IndexFunc(shapes, func(s shape.Shape) bool { return s.ID == opts.SelectedID }); i >= 0 {
			commands = append(commands, compileSelection(shapes[i])...)
		}
	}

	ids := make([]string, 0, len(opts.Cursors))
	for id := range opts.Cursors {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		p := opts.Cursors[id]
		commands = append(commands, DrawCommand{
			Op:     OpCursor,
			Layer:  LayerCursor,
			X:      p.X,
			Y:      p.Y,
			Text:   id,
			Stroke: SelectionColor,
		})
	}

	return commands
}

// CompileShape emits the commands that paint one shape. Unknown kinds
// panic.
func CompileShape(s shape.Shape) []DrawCommand {
	base := DrawCommand{
		Op:          OpPath,
		Layer:       LayerShape,
		ObjectID:    s.ID,
		Transform:   transformOf(s),
		Stroke:      s.StrokeColor,
		StrokeWidth: s.StrokeWidth,
		Opacity:     s.Opacity,
	}
	if s.Filled() {
		base.Fill = s.FillColor
	}

	switch s.Kind {
	case shape.KindRect:
		base.Path = rectPath(geometry.Rect{X: s.X, Y: s.Y, Width: s.Width, Height: s.Height})
		return []DrawCommand{base}

	case shape.KindCircle:
		base.Path = circlePath(geometry.Pt(s.X, s.Y), s.Radius)
		return []DrawCommand{base}

	case shape.KindLine, shape.KindFree:
		base.Fill = ""
		base.LineCap = "round"
		base.Path = polylinePath(s.Points)
		if base.Path == nil {
			return nil
		}
		return []DrawCommand{base}

	case shape.KindArrow:
		base.Fill = ""
		base.Path = polylinePath(s.Points)
		if len(s.Points) < 2 {
			return nil
		}
		out := []DrawCommand{base}
		start, end := s.Points[0], s.Points[len(s.Points)-1]
		head := base
		head.Fill = s.StrokeColor
		head.Stroke = ""
		if s.EndArrow {
			head.Path = arrowHead(end, start)
			out = append(out, head)
		}
		if s.StartArrow {
			head.Path = arrowHead(start, end)
			out = append(out, head)
		}
		return out

	case shape.KindText:
		base.Op = OpText
		base.Path = nil
		base.X, base.Y = s.X, s.Y
		base.Text = s.Text
		base.FontSize = s.FontSize
		base.FontFamily = s.FontFamily
		if s.StrokeWidth <= 0 {
			base.Stroke = ""
		}
		return []DrawCommand{base}

	case shape.KindImage:
		base.Op = OpImage
		r := shape.Bounds(s)
		base.X, base.Y = r.X, r.Y
		base.Width, base.Height = r.Width, r.Height
		base.ImageURL = s.ImageURL
		base.Stroke, base.Fill, base.StrokeWidth = "", "", 0
		return []DrawCommand{base}
	}

	panic(fmt.Errorf("compile shape %q: %w", s.Kind, shape.ErrUnknownKind))
}

func transformOf(s shape.Shape) []float64 {
	if s.Angle == 0 {
		return nil
	}
	// Full turns compile without a transform.
	m := geometry.RotateAbout(s.Angle, shape.Center(s))
	if m.IsIdentity() {
		return nil
	}
	return m.ToSlice()
}

func compileSelection(s shape.Shape) []DrawCommand {
	box := DrawCommand{
		Op:          OpPath,
		Layer:       LayerSelection,
		ObjectID:    s.ID,
		Transform:   transformOf(s),
		Path:        rectPath(shape.Bounds(s).Normalize().Inflate(SelectionPadding)),
		Stroke:      SelectionColor,
		StrokeWidth: 1,
		Opacity:     1,
	}
	out := []DrawCommand{box}

	half := shape.HandleSize / 2.0
	for _, h := range shape.Handles(s) {
		out = append(out, DrawCommand{
			Op:          OpPath,
			Layer:       LayerSelection,
			ObjectID:    s.ID,
			Path:        rectPath(geometry.Rect{X: h.At.X - half, Y: h.At.Y - half, Width: shape.HandleSize, Height: shape.HandleSize}),
			Fill:        HandleFill,
			Stroke:      SelectionColor,
			StrokeWidth: 1,
			Opacity:     1,
		})
	}
	return out
}

func compileGrid(g *grid.Grid, area geometry.Rect) (DrawCommand, bool) {
	area = area.Normalize()
	xs, ys := g.Lines(area)
	if len(xs) == 0 && len(ys) == 0 {
		return DrawCommand{}, false
	}

	path := make([]PathCommand, 0, 2*(len(xs)+len(ys)))
	for _, x := range xs {
		path = append(path, moveTo(geometry.Pt(x, area.Y)), lineTo(geometry.Pt(x, area.Y+area.Height)))
	}
	for _, y := range ys {
		path = append(path, moveTo(geometry.Pt(area.X, y)), lineTo(geometry.Pt(area.X+area.Width, y)))
	}
	return DrawCommand{
		Op:          OpPath,
		Layer:       LayerGrid,
		Path:        path,
		Stroke:      GridColor,
		StrokeWidth: GridLineWidth,
		Opacity:     1,
	}, true
}
