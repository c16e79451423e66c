package render

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/portrait/portrait/internal/geometry"
	"github.com/portrait/portrait/internal/grid"
	"github.com/portrait/portrait/internal/shape"
)

func TestCompileOrderAndLayers(t *testing.T) {
	shapes := []shape.Shape{
		{ID: "a", Kind: shape.KindRect, Width: 10, Height: 10, StrokeColor: "#000", FillColor: "transparent", StrokeWidth: 2, Opacity: 1},
		{ID: "b", Kind: shape.KindCircle, X: 50, Y: 50, Radius: 10, FillColor: "#ff0000", Opacity: 1},
	}
	g := grid.New(20)
	cmds := Compile(shapes, Options{
		Grid:       g,
		Area:       geometry.Rect{Width: 100, Height: 100},
		SelectedID: "a",
		Cursors:    map[string]geometry.Point{"zoe": {X: 1, Y: 1}, "amy": {X: 2, Y: 2}},
	})

	var layers []Layer
	for _, c := range cmds {
		layers = append(layers, c.Layer)
	}
	if layers[0] != LayerGrid {
		t.Fatalf("first layer = %q, want grid", layers[0])
	}
	if cmds[1].ObjectID != "a" || cmds[2].ObjectID != "b" {
		t.Fatalf("shape order = %q %q, want a b", cmds[1].ObjectID, cmds[2].ObjectID)
	}
	if cmds[1].Fill != "" || cmds[2].Fill != "#ff0000" {
		t.Fatalf("fills = %q %q, want none and red", cmds[1].Fill, cmds[2].Fill)
	}
	if cmds[3].Layer != LayerSelection || cmds[3].Stroke != SelectionColor {
		t.Fatalf("cmds[3] = %+v, want selection box", cmds[3])
	}
	// Box plus eight handles.
	sel := 0
	for _, c := range cmds {
		if c.Layer == LayerSelection {
			sel++
		}
	}
	if sel != 9 {
		t.Fatalf("selection commands = %d, want 9", sel)
	}
	last := cmds[len(cmds)-2:]
	if last[0].Text != "amy" || last[1].Text != "zoe" {
		t.Fatalf("cursors = %q %q, want amy zoe", last[0].Text, last[1].Text)
	}
}

func TestCompileGridHidden(t *testing.T) {
	g := grid.New(20)
	g.ToggleVisible()
	cmds := Compile(nil, Options{Grid: g, Area: geometry.Rect{Width: 100, Height: 100}})
	if len(cmds) != 0 {
		t.Fatalf("len = %d, want 0", len(cmds))
	}
}

func TestSelectionBoxIsPadded(t *testing.T) {
	s := shape.Shape{ID: "r", Kind: shape.KindRect, X: 10, Y: 10, Width: 100, Height: 50, Selected: true}
	cmds := compileSelection(s)
	pts := Flatten(cmds[0].Path, geometry.Identity(), 1)[0]
	if pts[0] != geometry.Pt(5, 5) || pts[2] != geometry.Pt(115, 65) {
		t.Fatalf("selection box = %v, want (5,5)-(115,65)", pts)
	}
}

func TestArrowHeads(t *testing.T) {
	s := shape.Shape{
		ID: "a", Kind: shape.KindArrow, StrokeColor: "#123456",
		Points:   []geometry.Point{{X: 0, Y: 0}, {X: 100, Y: 0}},
		EndArrow: true, StartArrow: true,
	}
	cmds := CompileShape(s)
	if len(cmds) != 3 {
		t.Fatalf("len = %d, want line plus two heads", len(cmds))
	}

	head := Flatten(cmds[1].Path, geometry.Identity(), 1)[0]
	if head[0] != geometry.Pt(100, 0) {
		t.Fatalf("end head tip = %v, want (100,0)", head[0])
	}
	wantX := 100 - ArrowHeadLength*math.Cos(ArrowHeadAngle)
	for _, p := range head[1:3] {
		if math.Abs(p.X-wantX) > 1e-9 {
			t.Fatalf("end head wing x = %v, want %v (behind the tip)", p.X, wantX)
		}
	}
	if cmds[1].Fill != "#123456" {
		t.Fatalf("head fill = %q, want stroke color", cmds[1].Fill)
	}

	start := Flatten(cmds[2].Path, geometry.Identity(), 1)[0]
	if start[0] != geometry.Pt(0, 0) || start[1].X <= 0 {
		t.Fatalf("start head = %v, want tip at origin pointing left", start)
	}
}

func TestRotatedShapeCarriesTransform(t *testing.T) {
	s := shape.Shape{ID: "r", Kind: shape.KindRect, Width: 10, Height: 10, Angle: math.Pi / 2}
	cmd := CompileShape(s)[0]
	if cmd.Transform == nil {
		t.Fatal("rotated shape has no transform")
	}
	var m geometry.Matrix2D
	copy(m[:], cmd.Transform)
	if p := m.Apply(geometry.Pt(5, 5)); !p.Near(geometry.Pt(5, 5), 1e-9) {
		t.Fatalf("center moved to %v", p)
	}
	if p := m.Apply(geometry.Pt(10, 5)); !p.Near(geometry.Pt(5, 10), 1e-9) {
		t.Fatalf("rotated point = %v, want (5,10)", p)
	}
}

func TestFullTurnHasNoTransform(t *testing.T) {
	s := shape.Shape{ID: "r", Kind: shape.KindRect, X: 30, Y: 40, Width: 10, Height: 10, Angle: 2 * math.Pi}
	if cmd := CompileShape(s)[0]; cmd.Transform != nil {
		t.Fatalf("Transform = %v, want nil for a full turn", cmd.Transform)
	}
}

func TestCompileEveryKind(t *testing.T) {
	for _, k := range shape.Kinds() {
		s := shape.Shape{ID: "x", Kind: k, Width: 10, Height: 10, Radius: 5, Text: "hi", FontSize: 16,
			Points: []geometry.Point{{X: 0, Y: 0}, {X: 10, Y: 10}}, EndArrow: true}
		if cmds := CompileShape(s); len(cmds) == 0 {
			t.Fatalf("CompileShape(%s) emitted nothing", k)
		}
	}
}

func TestCompileUnknownKindPanics(t *testing.T) {
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, shape.ErrUnknownKind) {
			t.Fatalf("recover() = %v, want ErrUnknownKind", r)
		}
	}()
	CompileShape(shape.Shape{ID: "x", Kind: "hexagon"})
}

func TestFlattenCircle(t *testing.T) {
	polys := Flatten(circlePath(geometry.Pt(0, 0), 10), geometry.Identity(), 8)
	if len(polys) != 1 {
		t.Fatalf("subpaths = %d, want 1", len(polys))
	}
	for _, p := range polys[0] {
		if d := p.Distance(geometry.Pt(0, 0)); math.Abs(d-10) > 0.05 {
			t.Fatalf("point %v is %v from center, want ~10", p, d)
		}
	}
}

func TestToJSON(t *testing.T) {
	out, err := ToJSON(CompileShape(shape.Shape{ID: "r", Kind: shape.KindRect, Width: 1, Height: 1}))
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded[0]["op"] != "path" || decoded[0]["objectId"] != "r" {
		t.Fatalf("decoded = %v", decoded[0])
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		ok   bool
		want string
	}{
		{"#ff0000", true, "#ff0000"},
		{"#F00", true, "#ff0000"},
		{"black", true, "#000000"},
		{"transparent", false, ""},
		{"", false, ""},
		{"chartreuse-ish", false, ""},
	}
	for _, tt := range tests {
		c, ok := ParseColor(tt.in)
		if ok != tt.ok {
			t.Fatalf("ParseColor(%q) ok = %v, want %v", tt.in, ok, tt.ok)
		}
		if ok && c.Hex() != tt.want {
			t.Fatalf("ParseColor(%q) = %s, want %s", tt.in, c.Hex(), tt.want)
		}
	}
}
