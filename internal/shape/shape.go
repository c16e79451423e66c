package shape

import (
	"errors"
	"fmt"
	"reflect"
	"slices"

	"github.com/portrait/portrait/internal/geometry"
)

var (
	ErrUnknownKind = errors.New("unknown shape kind")
	ErrMissingID   = errors.New("shape id is required")
)

// Kind discriminates the shape variants.
type Kind string

const (
	KindRect   Kind = "rect"
	KindCircle Kind = "circle"
	KindLine   Kind = "line"
	KindArrow  Kind = "arrow"
	KindText   Kind = "text"
	KindFree   Kind = "free"
	KindImage  Kind = "image"
)

// Kinds lists every known variant.
func Kinds() []Kind {
	return []Kind{KindRect, KindCircle, KindLine, KindArrow, KindText, KindFree, KindImage}
}

// Known reports whether k is one of the closed set of variants.
func (k Kind) Known() bool {
	_, ok := behaviors[k]
	return ok
}

// Shape is a single drawable primitive. Only the fields belonging to Kind
// are meaningful:
//
//	rect, image      X, Y (top-left), Width, Height
//	circle           X, Y (center), Radius
//	line, arrow      Points (start, end); arrow adds StartArrow, EndArrow
//	free             Points
//	text             X, Y (top-left), Text, FontSize, FontFamily
//
// Width and Height may be negative; the box is then flipped across X, Y.
// Selected is local state and is ignored when merging remote copies.
type Shape struct {
	ID          string           `json:"id"`
	Kind        Kind             `json:"type"`
	X           float64          `json:"x"`
	Y           float64          `json:"y"`
	StrokeColor string           `json:"strokeColor"`
	FillColor   string           `json:"fillColor"`
	StrokeWidth float64          `json:"strokeWidth"`
	Opacity     float64          `json:"opacity"`
	Angle       float64          `json:"angle,omitempty"`
	Selected    bool             `json:"selected,omitempty"`
	Width       float64          `json:"width,omitempty"`
	Height      float64          `json:"height,omitempty"`
	Radius      float64          `json:"radius,omitempty"`
	Points      []geometry.Point `json:"points,omitempty"`
	StartArrow  bool             `json:"startArrow,omitempty"`
	EndArrow    bool             `json:"endArrow,omitempty"`
	Text        string           `json:"text,omitempty"`
	FontSize    float64          `json:"fontSize,omitempty"`
	FontFamily  string           `json:"fontFamily,omitempty"`
	ImageURL    string           `json:"imageUrl,omitempty"`
}

// Clone returns a deep copy of s.
func (s Shape) Clone() Shape {
	s.Points = slices.Clone(s.Points)
	return s
}

// Validate checks the invariants a shape must hold before it is accepted
// from the wire.
func (s Shape) Validate() error {
	if s.ID == "" {
		return ErrMissingID
	}
	if !s.Kind.Known() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, s.Kind)
	}
	return nil
}

// Filled reports whether the shape paints its interior.
func (s Shape) Filled() bool {
	return s.FillColor != "" && s.FillColor != Transparent
}

// Equal compares two shapes by content, ignoring the local Selected flag.
func Equal(a, b Shape) bool {
	a.Selected, b.Selected = false, false
	if len(a.Points) == 0 {
		a.Points = nil
	}
	if len(b.Points) == 0 {
		b.Points = nil
	}
	return reflect.DeepEqual(a, b)
}

// CloneAll deep-copies a shape list.
func CloneAll(shapes []Shape) []Shape {
	if shapes == nil {
		return nil
	}
	out := make([]Shape, len(shapes))
	for i, s := range shapes {
		out[i] = s.Clone()
	}
	return out
}

// Degenerate reports whether a just-drawn shape has no visible extent and
// should be discarded instead of committed.
func (s Shape) Degenerate() bool {
	switch s.Kind {
	case KindRect, KindImage:
		return s.Width == 0 || s.Height == 0
	case KindCircle:
		return s.Radius == 0
	case KindLine, KindArrow:
		return len(s.Points) < 2 || s.Points[0] == s.Points[len(s.Points)-1]
	case KindFree:
		return len(s.Points) < 2
	case KindText:
		return s.Text == ""
	}
	return false
}
