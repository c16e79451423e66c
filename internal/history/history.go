package history

import "github.com/portrait/portrait/internal/shape"

const DefaultLimit = 50

// Snapshot is a full copy of the canvas at one point in time.
type Snapshot struct {
	Shapes     []shape.Shape `json:"shapes"`
	SelectedID string        `json:"selectedId,omitempty"`
}

// Take deep-copies shapes into a Snapshot.
func Take(shapes []shape.Shape, selectedID string) Snapshot {
	return Snapshot{Shapes: shape.CloneAll(shapes), SelectedID: selectedID}
}

func (s Snapshot) clone() Snapshot {
	return Snapshot{Shapes: shape.CloneAll(s.Shapes), SelectedID: s.SelectedID}
}

// History is a pair of bounded undo/redo stacks. The oldest undo entry is
// evicted once the limit is reached.
type History struct {
	undo  []Snapshot
	redo  []Snapshot
	limit int
}

// New returns a History holding at most limit undo entries. A non-positive
// limit selects DefaultLimit.
func New(limit int) *History {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &History{limit: limit}
}

// Push records the state before a committed edit and clears the redo stack.
func (h *History) Push(s Snapshot) {
	h.undo = pushBounded(h.undo, s.clone(), h.limit)
	h.redo = nil
}

// Undo returns the most recent snapshot and stores current for Redo. It
// returns false when there is nothing to undo.
func (h *History) Undo(current Snapshot) (Snapshot, bool) {
	if len(h.undo) == 0 {
		return Snapshot{}, false
	}
	prev := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = pushBounded(h.redo, current.clone(), h.limit)
	return prev, true
}

// Redo is the mirror of Undo.
func (h *History) Redo(current Snapshot) (Snapshot, bool) {
	if len(h.redo) == 0 {
		return Snapshot{}, false
	}
	next := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = pushBounded(h.undo, current.clone(), h.limit)
	return next, true
}

func (h *History) CanUndo() bool { return len(h.undo) > 0 }
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// Clear drops both stacks.
func (h *History) Clear() {
	h.undo, h.redo = nil, nil
}

func pushBounded(stack []Snapshot, s Snapshot, limit int) []Snapshot {
	stack = append(stack, s)
	if len(stack) > limit {
		stack = append(stack[:0], stack[len(stack)-limit:]...)
	}
	return stack
}
