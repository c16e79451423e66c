package render

import (
	"encoding/json"
)

type Op string

const (
	OpPath   Op = "path"
	OpText   Op = "text"
	OpImage  Op = "image"
	OpCursor Op = "cursor"
)

// Layer groups commands so frontends can style or skip whole passes.
type Layer string

const (
	LayerGrid      Layer = "grid"
	LayerShape     Layer = "shape"
	LayerSelection Layer = "selection"
	LayerCursor    Layer = "cursor"
)

// DrawCommand represents a single drawing operation for a frontend to execute.
// Coordinates are world units; frontends apply the viewport themselves.
type DrawCommand struct {
	Op          Op            `json:"op"`
	Layer       Layer         `json:"layer"`
	ObjectID    string        `json:"objectId,omitempty"`  // For hit correlation
	Transform   []float64     `json:"transform,omitempty"` // [a, b, c, d, e, f], omitted when identity
	Path        []PathCommand `json:"path,omitempty"`
	Fill        string        `json:"fill,omitempty"`
	Stroke      string        `json:"stroke,omitempty"`
	StrokeWidth float64       `json:"strokeWidth,omitempty"`
	Opacity     float64       `json:"opacity,omitempty"`
	LineCap     string        `json:"lineCap,omitempty"`

	// Text, image and cursor ops are anchored at X, Y (top-left).
	X          float64 `json:"x,omitempty"`
	Y          float64 `json:"y,omitempty"`
	Text       string  `json:"text,omitempty"`
	FontSize   float64 `json:"fontSize,omitempty"`
	FontFamily string  `json:"fontFamily,omitempty"`
	ImageURL   string  `json:"imageUrl,omitempty"`
	Width      float64 `json:"width,omitempty"`
	Height     float64 `json:"height,omitempty"`
}

// PathCommand represents a single path segment for rendering.
// Format matches Canvas2D: ["M", x, y], ["L", x, y], ["C", x1, y1, x2, y2, x, y], ["Z"].
type PathCommand []interface{}

// ToJSON serializes draw commands to JSON.
func ToJSON(commands []DrawCommand) (string, error) {
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}
