package canvas

import (
	"encoding/json"
	"slices"

	"github.com/portrait/portrait/internal/protocol"
	"github.com/portrait/portrait/internal/shape"
)

// Replay folds a room's committed edit payloads into a shape list. Records
// that fail to decode or carry a transient type are skipped and counted.
func Replay(payloads []json.RawMessage) ([]shape.Shape, int) {
	var shapes []shape.Shape
	skipped := 0

	index := func(id string) int {
		return slices.IndexFunc(shapes, func(s shape.Shape) bool { return s.ID == id })
	}

	for _, p := range payloads {
		m, err := protocol.Decode(p)
		if err != nil || !m.Type.Persistent() {
			skipped++
			continue
		}

		switch m.Type {
		case protocol.TypeDrawEnd:
			s := m.Shape.Clone()
			s.Selected = false
			if i := index(s.ID); i >= 0 {
				shapes[i] = s
			} else {
				shapes = append(shapes, s)
			}
		case protocol.TypeErase:
			for _, id := range m.ShapeIDs {
				if i := index(id); i >= 0 {
					shapes = slices.Delete(shapes, i, i+1)
				}
			}
		case protocol.TypeLayerOrder:
			for _, id := range m.ShapeIDs {
				i := index(id)
				if i < 0 {
					continue
				}
				s := shapes[i]
				shapes = slices.Delete(shapes, i, i+1)
				if m.Order == protocol.OrderBack {
					shapes = slices.Insert(shapes, 0, s)
				} else {
					shapes = append(shapes, s)
				}
			}
		}
	}
	return shapes, skipped
}

// erasedIDs returns the ids erased somewhere in payloads that are absent
// from the replayed result.
func erasedIDs(payloads []json.RawMessage, kept []shape.Shape) map[string]bool {
	erased := make(map[string]bool)
	for _, p := range payloads {
		m, err := protocol.Decode(p)
		if err != nil || m.Type != protocol.TypeErase {
			continue
		}
		for _, id := range m.ShapeIDs {
			erased[id] = true
		}
	}
	for _, s := range kept {
		delete(erased, s.ID)
	}
	return erased
}
