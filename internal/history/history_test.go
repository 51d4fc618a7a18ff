package history

import (
	"testing"

	"github.com/inamate/visualdrag/internal/document"
)

func elems(ids ...int) document.Elements {
	out := make(document.Elements, len(ids))
	for i, id := range ids {
		out[i] = document.Element{ID: id, Kind: document.KindButton}
	}
	return out
}

func ids(es document.Elements) []int {
	out := make([]int, len(es))
	for i, e := range es {
		out[i] = e.ID
	}
	return out
}

func equalIDs(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// current returns the snapshot at the cursor.
func current(h History) (document.Elements, bool) {
	if h.cursor < 0 {
		return nil, false
	}
	return h.snapshots[h.cursor], true
}

func TestUndoRestoresPreviousSnapshot(t *testing.T) {
	h := New(0)
	for n := 1; n <= 4; n++ {
		list := make([]int, n)
		for i := range list {
			list[i] = i
		}
		h = h.Record(elems(list...))
	}
	if h.Cursor() != 3 {
		t.Fatalf("cursor = %d, want 3", h.Cursor())
	}

	h, got := h.Undo()
	if want := []int{0, 1, 2}; !equalIDs(ids(got), want) {
		t.Errorf("undo = %v, want %v", ids(got), want)
	}
	h, _ = h.Undo()
	h, _ = h.Undo()
	h, got = h.Undo()
	if len(got) != 0 || got == nil {
		t.Errorf("undo past first = %v, want empty non-nil list", got)
	}
	if h.Cursor() != -1 {
		t.Errorf("cursor = %d, want -1", h.Cursor())
	}

	h, got = h.Undo()
	if h.Cursor() != -1 || len(got) != 0 {
		t.Errorf("undo at baseline moved: cursor %d, %v", h.Cursor(), got)
	}
}

func TestRecordAfterUndoTruncates(t *testing.T) {
	h := New(0)
	h = h.Record(elems(1))
	h = h.Record(elems(1, 2))
	h = h.Record(elems(1, 2, 3))
	h, _ = h.Undo()
	h, _ = h.Undo()

	h = h.Record(elems(9))
	if h.Len() != h.Cursor()+1 {
		t.Fatalf("len = %d, cursor = %d, want len == cursor+1", h.Len(), h.Cursor())
	}
	if h.CanRedo() {
		t.Error("redo branch survived a new record")
	}
	if cur, _ := current(h); !equalIDs(ids(cur), []int{9}) {
		t.Errorf("current = %v", ids(cur))
	}
}

func TestRedoAdvances(t *testing.T) {
	h := New(0)
	h = h.Record(elems(1))
	h = h.Record(elems(1, 2))

	h, _ = h.Undo()
	h, got, ok := h.Redo()
	if !ok || !equalIDs(ids(got), []int{1, 2}) {
		t.Fatalf("redo = %v ok=%v", ids(got), ok)
	}

	same, got, ok := h.Redo()
	if ok || got != nil || same.Cursor() != h.Cursor() {
		t.Errorf("redo at end should be a no-op, got %v ok=%v cursor=%d", got, ok, same.Cursor())
	}
}

func TestRedoFromBaseline(t *testing.T) {
	h := New(0).Record(elems(5))
	h, _ = h.Undo()
	h, got, ok := h.Redo()
	if !ok || h.Cursor() != 0 || !equalIDs(ids(got), []int{5}) {
		t.Errorf("redo from -1 = %v ok=%v cursor=%d", ids(got), ok, h.Cursor())
	}
}

func TestHistoryIsAValue(t *testing.T) {
	base := New(0).Record(elems(1)).Record(elems(1, 2))
	undone, _ := base.Undo()
	_ = undone.Record(elems(7))

	got, _ := current(base)
	if !equalIDs(ids(got), []int{1, 2}) {
		t.Errorf("recording on a derived value changed the original: %v", ids(got))
	}
	if base.Len() != 2 {
		t.Errorf("len = %d", base.Len())
	}
}

func TestSnapshotsAreCopies(t *testing.T) {
	list := elems(1)
	h := New(0).Record(list).Record(elems(1, 2))
	list[0].Label = "changed"

	h, got := h.Undo()
	if got[0].Label != "" {
		t.Error("snapshot aliases the recorded list")
	}
	got[0].Label = "again"
	_, again, _ := h.Redo()
	if again[0].Label != "" {
		t.Error("redo snapshot aliases the recorded list")
	}
	h, _, _ = h.Redo()
	if _, back := h.Undo(); back[0].Label != "" {
		t.Error("undo returned an alias of the stored snapshot")
	}
}

func TestLimitDropsOldestSnapshots(t *testing.T) {
	h := New(2)
	h = h.Record(elems(1))
	h = h.Record(elems(1, 2))
	h = h.Record(elems(1, 2, 3))
	if h.Len() != 2 || h.Cursor() != 1 {
		t.Fatalf("len = %d cursor = %d, want 2 and 1", h.Len(), h.Cursor())
	}

	h, got := h.Undo()
	if !equalIDs(ids(got), []int{1, 2}) {
		t.Errorf("first undo = %v", ids(got))
	}
	// [1] was discarded; the next step is the empty baseline.
	h, got = h.Undo()
	if len(got) != 0 || h.Cursor() != -1 {
		t.Errorf("second undo = %v cursor = %d, want empty baseline", ids(got), h.Cursor())
	}
}
