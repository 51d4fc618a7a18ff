// Package engine is the canvas manipulation engine behind one editing
// session. It owns the editor state and the gesture controller, turns
// pointer input and user actions into editor operations, and compiles
// frames for the renderer.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/inamate/visualdrag/internal/document"
	"github.com/inamate/visualdrag/internal/editor"
	"github.com/inamate/visualdrag/internal/eventloop"
	"github.com/inamate/visualdrag/internal/geometry"
	"github.com/inamate/visualdrag/internal/gesture"
)

// DefaultPropertyDelay is the trailing debounce for property panel edits.
const DefaultPropertyDelay = time.Second

// ErrNoTemplate is returned when a palette index is out of range.
var ErrNoTemplate = errors.New("no such palette template")

// Button identifies the pointer button of a press or release.
type Button int

const (
	ButtonPrimary Button = iota
	ButtonAuxiliary
	ButtonSecondary
)

// Modifiers are the keyboard modifiers held during a press.
type Modifiers struct {
	Shift bool `json:"shift,omitempty"`
}

// MenuAction is an entry of the canvas context menu.
type MenuAction string

const (
	MenuCopy   MenuAction = "copy"
	MenuPaste  MenuAction = "paste"
	MenuDelete MenuAction = "delete"
	MenuTop    MenuAction = "top"
	MenuBottom MenuAction = "bottom"
	MenuUp     MenuAction = "up"
	MenuDown   MenuAction = "down"
)

// Notice is a user-visible, non-fatal message.
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// PropertyEdit is one write from the property panel. Nil fields are left
// untouched.
type PropertyEdit struct {
	Label *string             `json:"label,omitempty"`
	Props document.Props      `json:"-"`
	Attrs map[string]any      `json:"attrs,omitempty"`
	Style document.StylePatch `json:"style"`
}

func (p PropertyEdit) merge(q PropertyEdit) PropertyEdit {
	out := PropertyEdit{Label: p.Label, Props: p.Props, Style: p.Style.Merge(q.Style)}
	if q.Label != nil {
		out.Label = q.Label
	}
	if q.Props != nil {
		out.Props = q.Props
	}
	if len(p.Attrs)+len(q.Attrs) > 0 {
		out.Attrs = make(map[string]any, len(p.Attrs)+len(q.Attrs))
		for k, v := range p.Attrs {
			out.Attrs[k] = v
		}
		for k, v := range q.Attrs {
			out.Attrs[k] = v
		}
	}
	return out
}

// Options configure an Engine.
type Options struct {
	Editor        editor.Options
	Gesture       gesture.Options
	PropertyDelay time.Duration
	Palette       []document.Template
	// Now is the engine clock; time.Now when nil.
	Now func() time.Time
}

// DefaultOptions returns the editor defaults and the built-in palette.
func DefaultOptions() Options {
	return Options{
		Editor:        editor.DefaultOptions(),
		Gesture:       gesture.DefaultOptions(),
		PropertyDelay: DefaultPropertyDelay,
		Palette:       document.DefaultPalette(),
	}
}

// Engine drives one editing session. It is not safe for concurrent use;
// the owner calls it from a single goroutine.
type Engine struct {
	state   *editor.State
	ctrl    *gesture.Controller
	loop    *eventloop.Loop
	opts    Options
	palette []document.Template

	props       *gesture.Debouncer
	propsTarget int
	propsEdit   PropertyEdit

	notices []Notice
}

// NewEngine creates an engine with an empty document.
func NewEngine(opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.PropertyDelay <= 0 {
		opts.PropertyDelay = DefaultPropertyDelay
	}
	if len(opts.Palette) == 0 {
		opts.Palette = document.DefaultPalette()
	}
	e := &Engine{
		loop:        eventloop.New(0),
		opts:        opts,
		palette:     opts.Palette,
		props:       gesture.NewDebouncer(opts.PropertyDelay),
		propsTarget: document.NoSelection,
	}
	e.reset(editor.New(opts.Editor))
	return e
}

func (e *Engine) reset(s *editor.State) {
	e.state = s
	e.ctrl = gesture.New(s, e.opts.Gesture)
	e.props.Cancel()
	e.propsTarget = document.NoSelection
}

// --- Commands (renderer → engine) ---

// Load replaces the session with doc. The history starts with doc as its
// first snapshot.
func (e *Engine) Load(doc *document.Document) error {
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	e.turn(func() {
		e.reset(editor.FromDocument(doc, e.opts.Editor))
		e.apply(editor.Operation{Type: editor.OpRecordSnapshot})
	})
	return nil
}

// LoadSampleDocument loads the built-in sample document.
func (e *Engine) LoadSampleDocument() {
	_ = e.Load(document.NewSampleDocument())
}

// turn runs fn as one event-handling turn; work it defers runs after it.
func (e *Engine) turn(fn func()) {
	e.loop.RunTurn(fn)
}

// apply runs an operation the engine built itself. Paste failures become
// notices; anything else is logged.
func (e *Engine) apply(op editor.Operation) bool {
	err := e.state.MustApply(op)
	if err == nil {
		return true
	}
	e.reject(op, err)
	return false
}

func (e *Engine) reject(op editor.Operation, err error) {
	if errors.Is(err, editor.ErrClipboardEmpty) {
		slog.Info("paste with empty clipboard")
		e.notices = append(e.notices, Notice{Level: "warning", Message: "Nothing to paste: copy an element first"})
		return
	}
	slog.Warn("operation rejected", "op", op.Type, "error", err)
}

func (e *Engine) snapshot() {
	e.apply(editor.Operation{Type: editor.OpRecordSnapshot})
}

// Apply runs an operation received from outside the engine. Unlike the
// engine's own calls, an unknown type is returned rather than panicking.
// Operations that replace or remove elements drop the active gesture and
// write pending property edits first, as Undo and Redo do.
func (e *Engine) Apply(op editor.Operation) error {
	var err error
	e.turn(func() {
		if replacesElements(op.Type) {
			e.ctrl.Abandon()
			e.flushProperties()
		}
		err = e.state.Apply(op)
		if errors.Is(err, editor.ErrClipboardEmpty) {
			e.reject(op, err)
			err = nil
		}
	})
	return err
}

func replacesElements(t editor.OpType) bool {
	switch t {
	case editor.OpUndo, editor.OpRedo, editor.OpSetComponentData, editor.OpDestroyComponent:
		return true
	}
	return false
}

// PointerDown handles a press. On the selected element's handles it starts
// a resize (Shift locks the aspect ratio) or a rotation; on an element
// body it selects the element and starts a drag; on empty canvas it marks
// the press as not on an element so the release clears the selection.
func (e *Engine) PointerDown(p geometry.Point, b Button, mods Modifiers) {
	e.turn(func() {
		e.flushProperties()
		frame := CompileFrame(e.state, e.ctrl)
		h := hitTest(frame.Layers, e.state.SelectedID(), p, e.state.Preview())

		if h.kind == hitNone {
			e.apply(editor.Operation{Type: editor.OpSetClick, Flag: false})
			return
		}
		e.apply(editor.Operation{Type: editor.OpSetClick, Flag: true})
		e.apply(editor.Operation{Type: editor.OpSetCurComponent, ID: editor.ByID(h.id)})
		if e.state.Preview() || b != ButtonPrimary {
			return
		}

		var err error
		switch h.kind {
		case hitBody:
			err = e.ctrl.BeginDrag(h.id, p)
		case hitHandle:
			err = e.ctrl.BeginResize(h.id, h.handle, p, mods.Shift)
		case hitRotate:
			err = e.ctrl.BeginRotate(h.id, p)
		}
		if err != nil {
			slog.Debug("gesture not started", "error", err)
		}
	})
}

// PointerMove feeds the active gesture, if any.
func (e *Engine) PointerMove(p geometry.Point) {
	e.turn(func() {
		if _, err := e.ctrl.Move(p, e.opts.Now()); err != nil {
			slog.Warn("gesture move", "error", err)
		}
	})
}

// PointerUp ends the active gesture and records a snapshot if it changed
// anything. A secondary-button release opens the context menu at p. The
// selection is cleared after the turn, at low priority, when the press
// was not on an element; anything deferred at a higher priority (a menu
// action) sees the selection first.
func (e *Engine) PointerUp(p geometry.Point, b Button) {
	e.turn(func() {
		e.pointerUp()
		if b == ButtonSecondary && !e.state.Preview() {
			e.apply(editor.Operation{Type: editor.OpSetMenuPosition, Position: &p})
			e.apply(editor.Operation{Type: editor.OpShowMenu})
		} else {
			e.apply(editor.Operation{Type: editor.OpHideMenu})
		}
	})
}

func (e *Engine) pointerUp() {
	changed, err := e.ctrl.End()
	if err != nil {
		slog.Warn("gesture end", "error", err)
	}
	if changed {
		e.snapshot()
	}
	e.loop.Defer(eventloop.PriorityLow, func() {
		if !e.state.ActivelyClicked() {
			e.apply(editor.Operation{Type: editor.OpSetCurComponent})
		}
	})
}

// ContextMenu opens the context menu at p without a pointer release.
func (e *Engine) ContextMenu(p geometry.Point) {
	e.turn(func() {
		e.apply(editor.Operation{Type: editor.OpSetMenuPosition, Position: &p})
		e.apply(editor.Operation{Type: editor.OpShowMenu})
	})
}

// MenuSelect handles a click on a context menu entry. The click is also a
// pointer release over the canvas; the action is deferred ahead of the
// selection-clearing step of that release so it still sees the selection.
func (e *Engine) MenuSelect(action MenuAction) error {
	run, err := e.menuAction(action)
	if err != nil {
		return err
	}
	e.turn(func() {
		e.pointerUp()
		e.apply(editor.Operation{Type: editor.OpSetClick, Flag: true})
		e.loop.Defer(eventloop.PriorityNormal, run)
		e.apply(editor.Operation{Type: editor.OpHideMenu})
	})
	return nil
}

func (e *Engine) menuAction(a MenuAction) (func(), error) {
	switch a {
	case MenuCopy:
		return e.copy, nil
	case MenuPaste:
		return func() { e.paste(nil) }, nil
	case MenuDelete:
		return e.destroy, nil
	case MenuTop:
		return func() { e.reorder(editor.OpTop) }, nil
	case MenuBottom:
		return func() { e.reorder(editor.OpBottom) }, nil
	case MenuUp:
		return func() { e.reorder(editor.OpUp) }, nil
	case MenuDown:
		return func() { e.reorder(editor.OpDown) }, nil
	default:
		return nil, fmt.Errorf("unknown menu action %q", a)
	}
}

// Cancel aborts the active gesture and restores the element.
func (e *Engine) Cancel() {
	e.turn(func() {
		if err := e.ctrl.Cancel(); err != nil {
			slog.Warn("gesture cancel", "error", err)
		}
	})
}

// Undo steps back one snapshot. An active gesture is dropped first.
func (e *Engine) Undo() {
	e.turn(func() {
		e.ctrl.Abandon()
		e.flushProperties()
		e.apply(editor.Operation{Type: editor.OpUndo})
	})
}

// Redo steps forward one snapshot, if there is one.
func (e *Engine) Redo() {
	e.turn(func() {
		e.ctrl.Abandon()
		e.flushProperties()
		e.apply(editor.Operation{Type: editor.OpRedo})
	})
}

// Save flushes pending edits, records a snapshot and returns the document
// to persist.
func (e *Engine) Save() *document.Document {
	var doc *document.Document
	e.turn(func() {
		if _, err := e.ctrl.End(); err != nil {
			slog.Warn("gesture end", "error", err)
		}
		e.flushProperties()
		e.snapshot()
		doc = e.state.Document()
	})
	return doc
}

func (e *Engine) Copy() { e.turn(e.copy) }

func (e *Engine) copy() {
	e.apply(editor.Operation{Type: editor.OpCopy})
}

// Paste inserts the copied element at pos, or at the context menu
// position when pos is nil. It reports whether an element was added; an
// empty clipboard produces a notice instead.
func (e *Engine) Paste(pos *geometry.Point) bool {
	var ok bool
	e.turn(func() { ok = e.paste(pos) })
	return ok
}

func (e *Engine) paste(pos *geometry.Point) bool {
	e.flushProperties()
	if !e.apply(editor.Operation{Type: editor.OpPaste, Position: pos}) {
		return false
	}
	e.snapshot()
	return true
}

// Delete removes the selected element.
func (e *Engine) Delete() { e.turn(e.destroy) }

func (e *Engine) destroy() {
	if e.state.SelectedIndex() < 0 {
		return
	}
	e.ctrl.Abandon()
	e.flushProperties()
	e.apply(editor.Operation{Type: editor.OpDestroyComponent})
	e.snapshot()
}

func (e *Engine) RaiseToTop()    { e.turn(func() { e.reorder(editor.OpTop) }) }
func (e *Engine) LowerToBottom() { e.turn(func() { e.reorder(editor.OpBottom) }) }
func (e *Engine) RaiseOne()      { e.turn(func() { e.reorder(editor.OpUp) }) }
func (e *Engine) LowerOne()      { e.turn(func() { e.reorder(editor.OpDown) }) }

func (e *Engine) reorder(t editor.OpType) {
	before := e.state.SelectedIndex()
	if before < 0 {
		return
	}
	e.apply(editor.Operation{Type: t})
	if e.state.SelectedIndex() != before {
		e.snapshot()
	}
}

// DropTemplate instantiates palette entry index centered on p and returns
// the new element's id.
func (e *Engine) DropTemplate(index int, p geometry.Point) (int, error) {
	if index < 0 || index >= len(e.palette) {
		return document.NoSelection, fmt.Errorf("%w: %d", ErrNoTemplate, index)
	}
	id := document.NoSelection
	e.turn(func() {
		e.flushProperties()
		el := e.palette[index].Instantiate(e.state.NextID(), p)
		if e.apply(editor.Operation{Type: editor.OpAddComponent, Element: &el}) {
			id = e.state.LastAddedID()
			e.snapshot()
		}
	})
	return id, nil
}

// AddTemplate appends an entry to the session palette and returns its index.
func (e *Engine) AddTemplate(t document.Template) int {
	e.palette = append(e.palette, t)
	return len(e.palette) - 1
}

// Palette returns the session palette.
func (e *Engine) Palette() []document.Template { return e.palette }

// SetProperties queues a property panel edit of element id. Edits to the
// same element are merged and written once the property delay passes
// without a newer edit; an edit to another element writes the pending one
// first.
func (e *Engine) SetProperties(id int, edit PropertyEdit) {
	e.turn(func() {
		if e.propsTarget != id {
			e.flushProperties()
			e.propsTarget = id
			e.propsEdit = PropertyEdit{}
		}
		e.propsEdit = e.propsEdit.merge(edit)
		pending := e.propsEdit
		e.props.Push(func() error {
			err := e.state.MustApply(editor.Operation{
				Type:  editor.OpSetComponentProps,
				ID:    &id,
				Label: pending.Label,
				Props: pending.Props,
				Attrs: pending.Attrs,
				Style: pending.Style,
			})
			if err == nil {
				e.snapshot()
			}
			return err
		}, e.opts.Now())
	})
}

func (e *Engine) flushProperties() {
	if !e.props.Pending() {
		return
	}
	if err := e.props.Flush(); err != nil {
		slog.Warn("property edit rejected", "element", e.propsTarget, "error", err)
	}
	e.propsTarget = document.NoSelection
	e.propsEdit = PropertyEdit{}
}

// AddEvent sets the runtime event of element id; one event per key.
func (e *Engine) AddEvent(id int, ev document.Event) error {
	var err error
	e.turn(func() {
		err = e.state.Apply(editor.Operation{Type: editor.OpCreateEvents, ID: &id, Event: &ev})
		if err == nil {
			e.snapshot()
		}
	})
	return err
}

// SetCanvasSize resizes the editing surface within the configured bounds.
func (e *Engine) SetCanvasSize(size document.CanvasSize) {
	e.turn(func() {
		e.apply(editor.Operation{Type: editor.OpSetCanvasStyle, Canvas: &size})
	})
}

// SetPreview toggles preview mode. Entering preview ends any gesture and
// hides the menu.
func (e *Engine) SetPreview(on bool) {
	e.turn(func() {
		if on {
			if _, err := e.ctrl.End(); err != nil {
				slog.Warn("gesture end", "error", err)
			}
			e.apply(editor.Operation{Type: editor.OpHideMenu})
		}
		e.apply(editor.Operation{Type: editor.OpSetPreview, Flag: on})
	})
}

// Tick writes debounced gesture frames and property edits that are due.
func (e *Engine) Tick() {
	e.turn(func() {
		now := e.opts.Now()
		if err := e.ctrl.Tick(now); err != nil {
			slog.Warn("gesture commit", "error", err)
		}
		if fired, err := e.props.Tick(now); fired {
			if err != nil {
				slog.Warn("property edit rejected", "element", e.propsTarget, "error", err)
			}
			e.propsTarget = document.NoSelection
			e.propsEdit = PropertyEdit{}
		}
	})
}

// --- Queries (engine → renderer) ---

// Frame compiles the current frame.
func (e *Engine) Frame() Frame {
	return CompileFrame(e.state, e.ctrl)
}

// Render returns the current frame as JSON.
func (e *Engine) Render() string {
	out, err := FrameToJSON(e.Frame())
	if err != nil {
		slog.Error("render frame", "error", err)
	}
	return out
}

// HitTest returns the id of the topmost element under p, or NoSelection.
func (e *Engine) HitTest(p geometry.Point) int {
	h := hitTest(e.Frame().Layers, document.NoSelection, p, true)
	return h.id
}

// ElementEvents returns the runtime events of element id for the preview.
func (e *Engine) ElementEvents(id int) document.Events {
	el, ok := e.state.Element(id)
	if !ok {
		return nil
	}
	return el.Events
}

// Selected returns the selected element, as shown.
func (e *Engine) Selected() (document.Element, bool) {
	el, ok := e.state.Selected()
	if !ok {
		return el, false
	}
	el.Style, _ = e.ctrl.Visual(el.ID)
	return el, true
}

// Notices drains the queued user-visible notices.
func (e *Engine) Notices() []Notice {
	out := e.notices
	e.notices = nil
	return out
}

// Document returns a copy of the persisted state.
func (e *Engine) Document() *document.Document { return e.state.Document() }

// State exposes the editor state for read-only inspection.
func (e *Engine) State() *editor.State { return e.state }

// Version increases whenever the editor state changes.
func (e *Engine) Version() uint64 { return e.state.Version() }
