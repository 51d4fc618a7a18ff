// Package history keeps the undo/redo stack of element-list snapshots.
//
// A History is a value: every operation returns a new History and never
// mutates snapshots that an earlier value can still see.
package history

import "github.com/inamate/visualdrag/internal/document"

// History is a linear stack of snapshots with a cursor. Cursor is -1 until
// the first snapshot is recorded and is otherwise a valid index.
type History struct {
	snapshots []document.Elements
	cursor    int
	limit     int
}

// New returns an empty history. A positive limit caps the number of
// snapshots kept; the oldest are discarded first. Undo below the oldest
// kept snapshot restores the empty baseline, not the discarded state.
func New(limit int) History {
	return History{cursor: -1, limit: limit}
}

// Cursor returns the index of the current snapshot, or -1.
func (h History) Cursor() int { return h.cursor }

// Len returns the number of stored snapshots.
func (h History) Len() int { return len(h.snapshots) }

// CanRedo reports whether a forward snapshot exists.
func (h History) CanRedo() bool { return h.cursor+1 < len(h.snapshots) }

// Record truncates everything after the cursor and appends a deep copy of
// elements as the new current snapshot.
func (h History) Record(elements document.Elements) History {
	kept := h.snapshots[:h.cursor+1]
	next := make([]document.Elements, len(kept), len(kept)+1)
	copy(next, kept)
	next = append(next, elements.Clone())

	if h.limit > 0 && len(next) > h.limit {
		next = next[len(next)-h.limit:]
	}
	h.snapshots = next
	h.cursor = len(next) - 1
	return h
}

// Undo moves the cursor back one step and returns the elements to restore.
// Below the first snapshot the baseline is an empty list.
func (h History) Undo() (History, document.Elements) {
	if h.cursor >= 0 {
		h.cursor--
	}
	if h.cursor < 0 {
		return h, document.Elements{}
	}
	return h, h.snapshots[h.cursor].Clone()
}

// Redo advances the cursor when a forward snapshot exists. ok is false, and
// h is returned unchanged, at the end of the stack.
func (h History) Redo() (next History, elements document.Elements, ok bool) {
	if !h.CanRedo() {
		return h, nil, false
	}
	h.cursor++
	return h, h.snapshots[h.cursor].Clone(), true
}
