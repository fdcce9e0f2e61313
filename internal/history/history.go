// Package history keeps bounded undo/redo stacks of drawing-board snapshots.
// Nothing here is persisted.
package history

import "slices"

// DefaultLimit is the number of undo steps kept per history.
const DefaultLimit = 50

// History is an undo/redo stack of snapshots. It is not safe for concurrent
// use; Sessions serializes access.
type History struct {
	undo  []string
	redo  []string
	limit int
}

// New returns a History keeping at most limit undo steps. A limit below 1
// uses DefaultLimit.
func New(limit int) *History {
	if limit < 1 {
		limit = DefaultLimit
	}
	return &History{limit: limit}
}

// Push records the state before an edit. The oldest step is evicted once
// the limit is reached, and the redo stack is cleared.
func (h *History) Push(snapshot string) {
	h.undo = append(h.undo, snapshot)
	if over := len(h.undo) - h.limit; over > 0 {
		h.undo = slices.Delete(h.undo, 0, over)
	}
	h.redo = h.redo[:0]
}

// Undo returns the previous state and moves current onto the redo stack.
// It reports false when there is nothing to undo.
func (h *History) Undo(current string) (string, bool) {
	if len(h.undo) == 0 {
		return "", false
	}
	prev := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, current)
	return prev, true
}

// Redo reverses the last Undo, moving current back onto the undo stack.
func (h *History) Redo(current string) (string, bool) {
	if len(h.redo) == 0 {
		return "", false
	}
	next := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, current)
	if over := len(h.undo) - h.limit; over > 0 {
		h.undo = slices.Delete(h.undo, 0, over)
	}
	return next, true
}

// Depth returns the sizes of the undo and redo stacks.
func (h *History) Depth() (undo, redo int) {
	return len(h.undo), len(h.redo)
}
