package engine

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/inamate/visualdrag/internal/document"
	"github.com/inamate/visualdrag/internal/editor"
	"github.com/inamate/visualdrag/internal/geometry"
	"github.com/inamate/visualdrag/internal/snap"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func box(id int, left, top, w, h float64) document.Element {
	return document.Element{
		ID:    id,
		Kind:  document.KindButton,
		Props: document.ButtonProps{},
		Style: document.Style{Left: left, Top: top, Width: w, Height: h, Opacity: 1},
	}
}

func newEngine(t *testing.T, els ...document.Element) (*Engine, *clock) {
	t.Helper()
	c := &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	opts := DefaultOptions()
	opts.Now = c.now
	e := NewEngine(opts)
	if err := e.Load(&document.Document{Canvas: document.CanvasSize{Width: 800, Height: 600}, Elements: els}); err != nil {
		t.Fatal(err)
	}
	return e, c
}

func pt(x, y float64) geometry.Point { return geometry.Point{X: x, Y: y} }

func styleOf(t *testing.T, e *Engine, id int) document.Style {
	t.Helper()
	el, ok := e.State().Element(id)
	if !ok {
		t.Fatalf("element %d missing", id)
	}
	return el.Style
}

func TestDragOntoSiblingSnapsAndRecords(t *testing.T) {
	e, _ := newEngine(t, box(1, 0, 0, 10, 10), box(2, 0, 2, 10, 10))
	before := e.State().History().Len()

	// Element 2 is on top where they overlap; grab element 1 below it.
	e.PointerDown(pt(5, 1), ButtonPrimary, Modifiers{})
	if e.State().SelectedID() != 1 {
		t.Fatalf("selected = %d, want 1", e.State().SelectedID())
	}
	e.PointerMove(pt(5, 3))

	f := e.Frame()
	if len(f.Guides) == 0 {
		t.Fatal("no guides shown mid-drag")
	}
	var sawTop bool
	for _, g := range f.Guides {
		if g.Guide == snap.GuideTop && g.Horizontal && g.Position == 2 && g.Style["top"] == 2 {
			sawTop = true
		}
	}
	if !sawTop {
		t.Errorf("guides = %+v, want xt at 2", f.Guides)
	}

	e.PointerUp(pt(5, 3), ButtonPrimary)
	if st := styleOf(t, e, 1); st.Top != 2 {
		t.Errorf("top = %v, want 2", st.Top)
	}
	if got := e.State().History().Len(); got != before+1 {
		t.Errorf("history len = %d, want %d", got, before+1)
	}
	if len(e.Frame().Guides) != 0 {
		t.Error("guides survived pointer up")
	}
	if e.State().SelectedID() != 1 {
		t.Error("selection cleared after a press on an element")
	}
}

func TestReleaseOnEmptyCanvasClearsSelection(t *testing.T) {
	e, _ := newEngine(t, box(1, 0, 0, 10, 10))
	e.PointerDown(pt(5, 5), ButtonPrimary, Modifiers{})
	e.PointerUp(pt(5, 5), ButtonPrimary)

	e.PointerDown(pt(400, 400), ButtonPrimary, Modifiers{})
	if e.State().SelectedID() != 1 {
		t.Fatal("selection cleared on press; it should wait for the release")
	}
	e.PointerUp(pt(400, 400), ButtonPrimary)
	if e.State().SelectedID() != document.NoSelection {
		t.Errorf("selected = %d, want none", e.State().SelectedID())
	}
}

func TestMenuActionSeesSelectionBeforeClear(t *testing.T) {
	e, _ := newEngine(t, box(1, 0, 0, 10, 10))
	e.PointerDown(pt(5, 5), ButtonSecondary, Modifiers{})
	e.PointerUp(pt(5, 5), ButtonSecondary)
	if !e.Frame().Menu.Visible {
		t.Fatal("context menu not shown")
	}

	// The menu sits over empty canvas; its click used to clear the
	// selection before copy ran.
	e.PointerDown(pt(300, 300), ButtonPrimary, Modifiers{})
	if err := e.MenuSelect(MenuCopy); err != nil {
		t.Fatal(err)
	}
	if _, ok := e.State().Clipboard(); !ok {
		t.Fatal("copy ran without a selection")
	}
	if e.Frame().Menu.Visible {
		t.Error("menu still visible")
	}

	if err := e.MenuSelect(MenuPaste); err != nil {
		t.Fatal(err)
	}
	els := e.State().Elements()
	if len(els) != 2 {
		t.Fatalf("len = %d after paste", len(els))
	}
	if st := els[1].Style; st.Left != 5 || st.Top != 5 {
		t.Errorf("pasted at (%v,%v), want menu position (5,5)", st.Left, st.Top)
	}

	if err := e.MenuSelect("explode"); err == nil {
		t.Error("unknown menu action accepted")
	}
}

func TestPasteEmptyClipboardNotice(t *testing.T) {
	e, _ := newEngine(t, box(1, 0, 0, 10, 10))
	if e.Paste(&geometry.Point{X: 1, Y: 1}) {
		t.Fatal("paste succeeded with empty clipboard")
	}
	n := e.Notices()
	if len(n) != 1 || n[0].Level != "warning" {
		t.Fatalf("notices = %+v", n)
	}
	if len(e.Notices()) != 0 {
		t.Error("notices not drained")
	}
	if len(e.State().Elements()) != 1 {
		t.Error("state changed")
	}
}

func TestPasteFreshIDAtPosition(t *testing.T) {
	e, _ := newEngine(t, box(1, 0, 0, 10, 10))
	e.PointerDown(pt(5, 5), ButtonPrimary, Modifiers{})
	e.PointerUp(pt(5, 5), ButtonPrimary)
	e.Copy()
	if !e.Paste(&geometry.Point{X: 50, Y: 60}) {
		t.Fatal("paste failed")
	}
	els := e.State().Elements()
	p := els[len(els)-1]
	if p.ID == 1 {
		t.Error("pasted element reused id 1")
	}
	if p.Style.Left != 50 || p.Style.Top != 60 {
		t.Errorf("pasted at (%v,%v)", p.Style.Left, p.Style.Top)
	}
}

func TestUndoRedoAcrossGesture(t *testing.T) {
	e, _ := newEngine(t, box(1, 0, 0, 10, 10))
	e.PointerDown(pt(5, 5), ButtonPrimary, Modifiers{})
	e.PointerMove(pt(105, 5))
	e.PointerUp(pt(105, 5), ButtonPrimary)
	if styleOf(t, e, 1).Left != 100 {
		t.Fatalf("left = %v", styleOf(t, e, 1).Left)
	}

	if f := e.Frame(); !f.CanUndo || f.CanRedo {
		t.Errorf("canUndo = %v canRedo = %v after drag", f.CanUndo, f.CanRedo)
	}

	e.Undo()
	if styleOf(t, e, 1).Left != 0 {
		t.Errorf("undo left = %v, want 0", styleOf(t, e, 1).Left)
	}
	if !e.Frame().CanRedo {
		t.Error("canRedo false after undo")
	}
	e.Redo()
	if styleOf(t, e, 1).Left != 100 {
		t.Errorf("redo left = %v, want 100", styleOf(t, e, 1).Left)
	}
}

func TestUndoDuringGestureAbandonsIt(t *testing.T) {
	e, _ := newEngine(t, box(1, 0, 0, 10, 10))
	e.PointerDown(pt(5, 5), ButtonPrimary, Modifiers{})
	e.PointerMove(pt(55, 5))
	e.Undo()
	if e.Frame().Gesture != "idle" {
		t.Errorf("gesture = %s after undo", e.Frame().Gesture)
	}
	e.PointerUp(pt(55, 5), ButtonPrimary)
	if len(e.State().Elements()) != 0 {
		t.Errorf("undo past load snapshot should leave no elements, got %d", len(e.State().Elements()))
	}
}

func TestAppliedUndoDuringGestureKeepsRedoBranch(t *testing.T) {
	e, _ := newEngine(t, box(1, 0, 0, 10, 10))
	e.PointerDown(pt(5, 5), ButtonPrimary, Modifiers{})
	e.PointerMove(pt(5, 105))
	e.PointerUp(pt(5, 105), ButtonPrimary)
	if h := e.State().History(); h.Cursor() != 1 || h.Len() != 2 {
		t.Fatalf("cursor = %d len = %d after drag", h.Cursor(), h.Len())
	}

	e.PointerDown(pt(5, 105), ButtonPrimary, Modifiers{})
	e.PointerMove(pt(350, 350))
	if err := e.Apply(editor.Operation{Type: editor.OpUndo}); err != nil {
		t.Fatal(err)
	}
	if g := e.Frame().Gesture; g != "idle" {
		t.Errorf("gesture = %s after applied undo", g)
	}
	e.PointerUp(pt(350, 350), ButtonPrimary)

	if top := styleOf(t, e, 1).Top; top != 0 {
		t.Errorf("top = %v after release, want 0", top)
	}
	h := e.State().History()
	if h.Cursor() != 0 || h.Len() != 2 {
		t.Errorf("cursor = %d len = %d, want 0 and 2", h.Cursor(), h.Len())
	}
	if err := e.Apply(editor.Operation{Type: editor.OpRedo}); err != nil {
		t.Fatal(err)
	}
	if top := styleOf(t, e, 1).Top; top != 100 {
		t.Errorf("redo top = %v, want 100", top)
	}
}

func TestAppliedDestroyDuringGestureFlushesProperties(t *testing.T) {
	e, _ := newEngine(t, box(1, 0, 0, 10, 10), box(2, 50, 50, 10, 10))
	e.PointerDown(pt(5, 5), ButtonPrimary, Modifiers{})
	e.PointerMove(pt(25, 5))
	label := "pending"
	e.SetProperties(2, PropertyEdit{Label: &label})
	if err := e.Apply(editor.Operation{Type: editor.OpDestroyComponent, ID: editor.ByID(1)}); err != nil {
		t.Fatal(err)
	}
	if g := e.Frame().Gesture; g != "idle" {
		t.Errorf("gesture = %s after applied destroy", g)
	}
	if el, ok := e.State().Element(2); !ok || el.Label != "pending" {
		t.Errorf("property edit not written before destroy: %+v", el)
	}
	e.PointerUp(pt(25, 5), ButtonPrimary)
	if _, ok := e.State().Element(1); ok {
		t.Error("destroyed element came back on release")
	}
}

func TestMoveIsDebouncedUntilTick(t *testing.T) {
	e, c := newEngine(t, box(1, 0, 0, 10, 10))
	e.PointerDown(pt(5, 5), ButtonPrimary, Modifiers{})
	e.PointerMove(pt(25, 5))

	if styleOf(t, e, 1).Left != 0 {
		t.Fatal("state written before the commit delay")
	}
	if got := e.Frame().Layers[0].Transform[4]; got != 20 {
		t.Errorf("shown translate x = %v, want 20", got)
	}

	c.advance(100 * time.Millisecond)
	e.Tick()
	if styleOf(t, e, 1).Left != 20 {
		t.Errorf("left = %v after tick, want 20", styleOf(t, e, 1).Left)
	}
}

func TestResizeFromSelectedHandle(t *testing.T) {
	e, _ := newEngine(t, box(1, 100, 100, 100, 50))
	e.PointerDown(pt(150, 125), ButtonPrimary, Modifiers{})
	e.PointerUp(pt(150, 125), ButtonPrimary)

	e.PointerDown(pt(200, 150), ButtonPrimary, Modifiers{})
	if e.Frame().Gesture != "resizing" {
		t.Fatalf("gesture = %s, want resizing", e.Frame().Gesture)
	}
	e.PointerMove(pt(200, 150)) // skipped
	e.PointerMove(pt(240, 170))
	e.PointerUp(pt(240, 170), ButtonPrimary)

	if st := styleOf(t, e, 1); st.Width != 140 || st.Height != 70 || st.Left != 100 || st.Top != 100 {
		t.Errorf("style = %+v, want 140x70 at (100,100)", st)
	}
}

func TestRotateFromAffordance(t *testing.T) {
	e, _ := newEngine(t, box(1, 100, 100, 100, 100))
	e.PointerDown(pt(150, 150), ButtonPrimary, Modifiers{})
	e.PointerUp(pt(150, 150), ButtonPrimary)

	e.PointerDown(pt(150, 100-RotateHandleOffset), ButtonPrimary, Modifiers{})
	if e.Frame().Gesture != "rotating" {
		t.Fatalf("gesture = %s, want rotating", e.Frame().Gesture)
	}
	// From straight above the center to straight right of it.
	e.PointerMove(pt(250, 150))
	e.PointerUp(pt(250, 150), ButtonPrimary)
	if got := styleOf(t, e, 1).Rotate; math.Abs(got-90) > 1e-9 {
		t.Errorf("rotate = %v, want 90", got)
	}
}

func TestCancelRestores(t *testing.T) {
	e, _ := newEngine(t, box(1, 0, 0, 10, 10))
	e.PointerDown(pt(5, 5), ButtonPrimary, Modifiers{})
	e.PointerMove(pt(50, 50))
	e.Cancel()
	e.PointerUp(pt(50, 50), ButtonPrimary)
	if st := styleOf(t, e, 1); st.Left != 0 || st.Top != 0 {
		t.Errorf("style = %+v after cancel", st)
	}
}

func TestZOrderRecordsSnapshot(t *testing.T) {
	e, _ := newEngine(t, box(1, 0, 0, 10, 10), box(2, 100, 0, 10, 10))
	e.PointerDown(pt(5, 5), ButtonPrimary, Modifiers{})
	e.PointerUp(pt(5, 5), ButtonPrimary)
	n := e.State().History().Len()

	e.RaiseOne()
	if ids := []int{e.State().Elements()[0].ID, e.State().Elements()[1].ID}; ids[0] != 2 || ids[1] != 1 {
		t.Fatalf("order = %v", ids)
	}
	e.RaiseToTop() // already on top: no change
	if e.State().History().Len() != n+1 {
		t.Errorf("history len = %d, want %d", e.State().History().Len(), n+1)
	}
	e.LowerOne()
	if e.State().Elements()[0].ID != 1 {
		t.Error("lower one did not restore order")
	}
	e.LowerToBottom()
	e.Delete()
	if len(e.State().Elements()) != 1 || e.State().SelectedID() != document.NoSelection {
		t.Errorf("after delete: %d elements, selected %d", len(e.State().Elements()), e.State().SelectedID())
	}
}

func TestDropTemplate(t *testing.T) {
	e, _ := newEngine(t, box(3, 0, 0, 10, 10))
	id, err := e.DropTemplate(0, pt(400, 300))
	if err != nil {
		t.Fatal(err)
	}
	if id <= 3 {
		t.Errorf("id = %d, want > 3", id)
	}
	el, _ := e.State().Element(id)
	if el.Kind != document.KindTextInput || el.Style.Left != 300 || el.Style.Top != 284 {
		t.Errorf("dropped = %+v", el)
	}
	if _, err := e.DropTemplate(99, pt(0, 0)); err == nil {
		t.Error("out of range template accepted")
	}
}

func TestPropertyEditsAreMergedAndDebounced(t *testing.T) {
	e, c := newEngine(t, box(1, 0, 0, 10, 10))
	n := e.State().History().Len()
	w := 40.0
	label := "Submit"
	e.SetProperties(1, PropertyEdit{Style: document.StylePatch{Width: &w}})
	c.advance(500 * time.Millisecond)
	e.SetProperties(1, PropertyEdit{Label: &label})
	c.advance(900 * time.Millisecond)
	e.Tick()
	if styleOf(t, e, 1).Width != 10 {
		t.Fatal("edit written before the property delay")
	}
	c.advance(100 * time.Millisecond)
	e.Tick()

	el, _ := e.State().Element(1)
	if el.Style.Width != 40 || el.Label != "Submit" {
		t.Errorf("element = %+v, want both edits", el)
	}
	if e.State().History().Len() != n+1 {
		t.Errorf("history len = %d, want one snapshot for the bundle", e.State().History().Len())
	}
}

func TestPropertyEditFlushedBySave(t *testing.T) {
	e, _ := newEngine(t, box(1, 0, 0, 10, 10))
	label := "Now"
	e.SetProperties(1, PropertyEdit{Label: &label})
	doc := e.Save()
	if doc.Elements[0].Label != "Now" {
		t.Errorf("saved label = %q", doc.Elements[0].Label)
	}
}

func TestEventsAndPreview(t *testing.T) {
	e, _ := newEngine(t, box(1, 0, 0, 10, 10))
	if err := e.AddEvent(1, document.Event{Key: document.EventMessage, Value: "a"}); err != nil {
		t.Fatal(err)
	}
	_ = e.AddEvent(1, document.Event{Key: document.EventMessage, Value: "b"})
	if evs := e.ElementEvents(1); len(evs) != 1 || evs[0].Value != "b" {
		t.Errorf("events = %+v", evs)
	}

	e.SetPreview(true)
	e.PointerDown(pt(5, 5), ButtonPrimary, Modifiers{})
	if e.Frame().Gesture != "idle" {
		t.Error("gesture started in preview")
	}
	for _, l := range e.Frame().Layers {
		if len(l.Handles) != 0 {
			t.Error("handles shown in preview")
		}
	}
}

func TestCanvasSizeClamped(t *testing.T) {
	e, _ := newEngine(t)
	e.SetCanvasSize(document.CanvasSize{Width: 5000, Height: 0})
	if c := e.Frame().Canvas; c.Width != 1200 || c.Height != 1 {
		t.Errorf("canvas = %+v", c)
	}
}

func TestApplyRejectsUnknownOperation(t *testing.T) {
	e, _ := newEngine(t)
	if err := e.Apply(editor.Operation{Type: "explode"}); err == nil {
		t.Fatal("unknown operation accepted")
	}
	if err := e.Apply(editor.Operation{Type: editor.OpPaste}); err != nil {
		t.Errorf("empty paste = %v, want a notice instead", err)
	}
	if len(e.Notices()) != 1 {
		t.Error("no notice")
	}
}

func TestRenderJSON(t *testing.T) {
	e, _ := newEngine(t, box(1, 10, 20, 30, 40))
	e.PointerDown(pt(20, 30), ButtonPrimary, Modifiers{})
	out := e.Render()

	var f struct {
		Layers []struct {
			ID        int            `json:"id"`
			Style     map[string]any `json:"style"`
			Transform []float64      `json:"transform"`
			Handles   []HandlePoint  `json:"handles"`
		} `json:"layers"`
		SelectedID int `json:"selectedId"`
	}
	if err := json.Unmarshal([]byte(out), &f); err != nil {
		t.Fatalf("unmarshal %s: %v", out, err)
	}
	if len(f.Layers) != 1 || f.SelectedID != 1 {
		t.Fatalf("frame = %s", out)
	}
	l := f.Layers[0]
	if _, ok := l.Style["top"]; ok {
		t.Error("renderer style carries top")
	}
	if l.Transform[4] != 10 || l.Transform[5] != 20 {
		t.Errorf("transform = %v", l.Transform)
	}
	if len(l.Handles) != 8 {
		t.Errorf("handles = %d", len(l.Handles))
	}
	if !strings.Contains(out, `"gesture":"dragging"`) {
		t.Errorf("gesture missing: %s", out)
	}
}

func TestFrameSelectionFollowsGesture(t *testing.T) {
	e, _ := newEngine(t, box(1, 100, 100, 40, 20), box(2, 300, 300, 10, 10))
	if e.Frame().Selection != nil {
		t.Fatal("selection box without a selection")
	}

	e.PointerDown(pt(110, 110), ButtonPrimary, Modifiers{})
	e.PointerMove(pt(130, 110))
	sel := e.Frame().Selection
	if sel == nil {
		t.Fatal("no selection box mid-drag")
	}
	want := geometry.Rect{X: 120, Y: 100, Width: 40, Height: 20}
	if *sel != want {
		t.Errorf("selection = %+v, want %+v", *sel, want)
	}

	e.SetPreview(true)
	if e.Frame().Selection != nil {
		t.Error("selection box shown in preview")
	}
}

func TestSelectionBoundsUnion(t *testing.T) {
	layers := []Layer{
		{ID: 1, Bounds: geometry.Rect{X: 0, Y: 0, Width: 10, Height: 10}},
		{ID: 2, Bounds: geometry.Rect{X: 20, Y: 5, Width: 10, Height: 20}},
		{ID: 3, Bounds: geometry.Rect{X: 500, Y: 500, Width: 1, Height: 1}},
	}
	got := SelectionBounds(layers, 1, 2)
	want := geometry.Rect{X: 0, Y: 0, Width: 30, Height: 25}
	if got != want {
		t.Errorf("bounds = %+v, want %+v", got, want)
	}
	if !SelectionBounds(layers, 9).IsEmpty() {
		t.Error("unknown id produced a box")
	}
}

func TestHitTestRotated(t *testing.T) {
	el := box(1, 0, 0, 100, 10)
	el.Style.Rotate = 90
	e, _ := newEngine(t, el)
	// Rotated about (50,5): now spans x 45..55, y -45..55.
	if got := e.HitTest(pt(50, 40)); got != 1 {
		t.Errorf("hit = %d, want 1", got)
	}
	if got := e.HitTest(pt(90, 5)); got != document.NoSelection {
		t.Errorf("hit = %d, want none", got)
	}
}
