package shape

import "github.com/portrait/portrait/internal/geometry"

const (
	Transparent     = "transparent"
	TextPlaceholder = "Text"
)

// Mode is the active tool. Every mode except ModeSelect draws a Kind.
type Mode string

const (
	ModeSelect Mode = "select"
	ModeRect   Mode = "rect"
	ModeCircle Mode = "circle"
	ModeLine   Mode = "line"
	ModeArrow  Mode = "arrow"
	ModeText   Mode = "text"
	ModeFree   Mode = "free"
)

var modeKinds = map[Mode]Kind{
	ModeRect:   KindRect,
	ModeCircle: KindCircle,
	ModeLine:   KindLine,
	ModeArrow:  KindArrow,
	ModeText:   KindText,
	ModeFree:   KindFree,
}

// Kind returns the variant drawn by m.
func (m Mode) Kind() (Kind, bool) {
	k, ok := modeKinds[m]
	return k, ok
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	_, ok := modeKinds[m]
	return ok || m == ModeSelect
}

// Style is the visual defaults applied to newly drawn shapes.
type Style struct {
	StrokeColor string  `json:"strokeColor"`
	FillColor   string  `json:"fillColor"`
	StrokeWidth float64 `json:"strokeWidth"`
	Opacity     float64 `json:"opacity"`
	FontSize    float64 `json:"fontSize"`
	FontFamily  string  `json:"fontFamily"`
}

// DefaultStyle is black 2px stroke, no fill, fully opaque, 16px Arial.
func DefaultStyle() Style {
	return Style{
		StrokeColor: "#000000",
		FillColor:   Transparent,
		StrokeWidth: 2,
		Opacity:     1,
		FontSize:    16,
		FontFamily:  "Arial",
	}
}

// New creates the zero-size shape a drawing gesture in mode m starts with.
// It returns false for modes that do not draw.
func New(m Mode, id string, at geometry.Point, style Style) (Shape, bool) {
	kind, ok := m.Kind()
	if !ok {
		return Shape{}, false
	}

	s := Shape{
		ID:          id,
		Kind:        kind,
		X:           at.X,
		Y:           at.Y,
		StrokeColor: style.StrokeColor,
		FillColor:   style.FillColor,
		StrokeWidth: style.StrokeWidth,
		Opacity:     style.Opacity,
	}

	switch kind {
	case KindLine, KindFree:
		s.Points = []geometry.Point{at}
	case KindArrow:
		s.Points = []geometry.Point{at}
		s.EndArrow = true
	case KindText:
		s.FontSize = style.FontSize
		s.FontFamily = style.FontFamily
	}
	return s, true
}
