package viewport

import (
	"math"
	"testing"

	"github.com/portrait/portrait/internal/geometry"
)

func TestRoundTrip(t *testing.T) {
	views := []Viewport{
		{Scale: 1},
		{Scale: 0.1, OffsetX: -300, OffsetY: 12.5},
		{Scale: 5, OffsetX: 1e4, OffsetY: -7},
		{Scale: 2.37, OffsetX: 0.001, OffsetY: 999},
	}
	points := []geometry.Point{{X: 0, Y: 0}, {X: -55.5, Y: 1234}, {X: 1e5, Y: -1e5}}

	for _, v := range views {
		for _, p := range points {
			got := v.ScreenToWorld(v.WorldToScreen(p))
			if !got.Near(p, 1e-6) {
				t.Fatalf("round trip of %v under %+v = %v", p, v, got)
			}
		}
	}
}

func TestZoomKeepsCursorFixed(t *testing.T) {
	v := New()
	v.Pan(geometry.Pt(40, -20))
	cursor := geometry.Pt(300, 200)
	before := v.ScreenToWorld(cursor)

	v.Zoom(cursor, -500)
	if math.Abs(v.Scale-1.5) > 1e-9 {
		t.Fatalf("Scale = %v, want 1.5", v.Scale)
	}
	after := v.ScreenToWorld(cursor)
	if !after.Near(before, 1e-9) {
		t.Fatalf("world under cursor moved from %v to %v", before, after)
	}
}

func TestZoomClamps(t *testing.T) {
	v := New()
	for range 50 {
		v.Zoom(geometry.Pt(0, 0), -900)
	}
	if v.Scale != MaxScale {
		t.Fatalf("Scale = %v, want %v", v.Scale, MaxScale)
	}
	for range 100 {
		v.Zoom(geometry.Pt(0, 0), 900)
	}
	if v.Scale != MinScale {
		t.Fatalf("Scale = %v, want %v", v.Scale, MinScale)
	}
}

func TestPanDividesByScale(t *testing.T) {
	v := &Viewport{Scale: 2}
	v.Pan(geometry.Pt(10, -4))
	if v.OffsetX != 5 || v.OffsetY != -2 {
		t.Fatalf("offset = (%v,%v), want (5,-2)", v.OffsetX, v.OffsetY)
	}
}
