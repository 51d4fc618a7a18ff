package editor

import (
	"errors"
	"fmt"

	"github.com/inamate/visualdrag/internal/document"
	"github.com/inamate/visualdrag/internal/geometry"
)

// OpType names an editor operation.
type OpType string

const (
	OpSetComponentData    OpType = "setComponentData"
	OpAddComponent        OpType = "addComponent"
	OpSetComponentStyle   OpType = "setComponentStyle"
	OpSetComponentProps   OpType = "setComponentProps"
	OpDestroyComponent    OpType = "destroyComponent"
	OpSetCurComponent     OpType = "setCurComponent"
	OpSetClick            OpType = "setClick"
	OpUndo                OpType = "undo"
	OpRedo                OpType = "redo"
	OpRecordSnapshot      OpType = "recordSnapshot"
	OpCopy                OpType = "copy"
	OpPaste               OpType = "paste"
	OpTop                 OpType = "top"
	OpBottom              OpType = "bottom"
	OpUp                  OpType = "up"
	OpDown                OpType = "down"
	OpCreateEvents        OpType = "createEvents"
	OpSetCanvasStyle      OpType = "setCanvasStyle"
	OpSetPreview          OpType = "setPreview"
	OpSetDragCorrection   OpType = "setDragCorrection"
	OpClearDragCorrection OpType = "clearDragCorrection"
	OpShowMenu            OpType = "menu.show"
	OpHideMenu            OpType = "menu.hide"
	OpSetMenuPosition     OpType = "menu.setPosition"
)

// Operation is one mutation of the editor state. Only the fields used by
// its Type are read.
type Operation struct {
	Type OpType `json:"type"`

	// Element addressing. ID wins over Index; with neither set, operations
	// that need a target use the selected element.
	ID    *int `json:"id,omitempty"`
	Index *int `json:"index,omitempty"`

	// setComponentData
	Elements document.Elements `json:"elements,omitempty"`

	// addComponent
	Element *document.Element `json:"element,omitempty"`

	// setComponentStyle, setDragCorrection, setComponentProps
	Style document.StylePatch `json:"style"`

	// setComponentProps
	Label *string        `json:"label,omitempty"`
	Props document.Props `json:"-"`
	Attrs map[string]any `json:"attrs,omitempty"`

	// createEvents
	Event *document.Event `json:"event,omitempty"`

	// setCanvasStyle
	Canvas *document.CanvasSize `json:"canvas,omitempty"`

	// setClick, setPreview
	Flag bool `json:"flag,omitempty"`

	// paste, menu.setPosition
	Position *geometry.Point `json:"position,omitempty"`
}

// ByID addresses an element by id.
func ByID(id int) *int { return &id }

// Apply performs op. Operations whose target cannot be resolved are
// silent no-ops. Paste without a copied element returns ErrClipboardEmpty
// and leaves the state unchanged; an unknown type returns an error
// wrapping ErrUnknownOperation.
func (s *State) Apply(op Operation) error {
	if err := s.apply(op); err != nil {
		return err
	}
	s.version++
	return nil
}

// MustApply is Apply for call sites that only ever build known operations.
// It panics on ErrUnknownOperation; other errors are returned.
func (s *State) MustApply(op Operation) error {
	err := s.Apply(op)
	if errors.Is(err, ErrUnknownOperation) {
		panic(err)
	}
	return err
}

func (s *State) apply(op Operation) error {
	switch op.Type {
	case OpSetComponentData:
		return s.applySetData(op)
	case OpAddComponent:
		return s.applyAdd(op)
	case OpSetComponentStyle:
		return s.applySetStyle(op)
	case OpSetComponentProps:
		return s.applySetProps(op)
	case OpDestroyComponent:
		return s.applyDestroy(op)
	case OpSetCurComponent:
		return s.applySetCurrent(op)
	case OpSetClick:
		s.activelyClicked = op.Flag
		return nil
	case OpUndo:
		return s.applyUndo()
	case OpRedo:
		return s.applyRedo()
	case OpRecordSnapshot:
		s.history = s.history.Record(s.elements)
		return nil
	case OpCopy:
		return s.applyCopy()
	case OpPaste:
		return s.applyPaste(op)
	case OpTop, OpBottom, OpUp, OpDown:
		return s.applyReorder(op.Type)
	case OpCreateEvents:
		return s.applyCreateEvents(op)
	case OpSetCanvasStyle:
		return s.applySetCanvas(op)
	case OpSetPreview:
		s.preview = op.Flag
		return nil
	case OpSetDragCorrection:
		c := op.Style
		s.dragCorrection = &c
		return nil
	case OpClearDragCorrection:
		s.dragCorrection = nil
		return nil
	case OpShowMenu:
		s.menu.Visible = true
		return nil
	case OpHideMenu:
		s.menu.Visible = false
		return nil
	case OpSetMenuPosition:
		if op.Position == nil {
			return fmt.Errorf("%s: missing position", op.Type)
		}
		s.menu.Position = *op.Position
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOperation, op.Type)
	}
}

// resolve returns the index op targets, or -1.
func (s *State) resolve(op Operation) int {
	switch {
	case op.ID != nil:
		return s.elements.IndexOf(*op.ID)
	case op.Index != nil:
		if *op.Index < 0 || *op.Index >= len(s.elements) {
			return -1
		}
		return *op.Index
	default:
		return s.SelectedIndex()
	}
}

func (s *State) applySetData(op Operation) error {
	s.elements = op.Elements.Clone()
	if s.elements == nil {
		s.elements = document.Elements{}
	}
	s.ids.Observe(s.elements)
	s.dropStaleSelection()
	return nil
}

func (s *State) applyAdd(op Operation) error {
	if op.Element == nil {
		return fmt.Errorf("%s: missing element", op.Type)
	}
	if !op.Element.Kind.Valid() {
		return fmt.Errorf("%s: unknown element kind %q", op.Type, op.Element.Kind)
	}
	el := op.Element.Clone()
	el.ID = s.ids.Next()
	s.elements = append(s.elements, el)
	s.lastAdd = el.ID
	return nil
}

func (s *State) applySetStyle(op Operation) error {
	i := s.resolve(op)
	if i < 0 {
		return nil
	}
	s.elements[i].Style = op.Style.Apply(s.elements[i].Style)
	return nil
}

func (s *State) applySetProps(op Operation) error {
	i := s.resolve(op)
	if i < 0 {
		return nil
	}
	el := &s.elements[i]
	if op.Props != nil {
		if op.Props.Kind() != el.Kind {
			return fmt.Errorf("%s: %s props on %s element %d", op.Type, op.Props.Kind(), el.Kind, el.ID)
		}
		el.Props = op.Props
	}
	if op.Label != nil {
		el.Label = *op.Label
	}
	if op.Attrs != nil {
		attrs := make(map[string]any, len(el.Attrs)+len(op.Attrs))
		for k, v := range el.Attrs {
			attrs[k] = v
		}
		for k, v := range op.Attrs {
			attrs[k] = v
		}
		el.Attrs = attrs
	}
	if !op.Style.IsEmpty() {
		el.Style = op.Style.Apply(el.Style)
	}
	return nil
}

func (s *State) applyDestroy(op Operation) error {
	i := s.resolve(op)
	if i < 0 {
		return nil
	}
	removed := s.elements[i].ID
	next := make(document.Elements, 0, len(s.elements)-1)
	next = append(next, s.elements[:i]...)
	s.elements = append(next, s.elements[i+1:]...)
	if removed == s.selectedID {
		s.selectedID = document.NoSelection
	}
	return nil
}

func (s *State) applySetCurrent(op Operation) error {
	if op.ID == nil || *op.ID == document.NoSelection {
		s.selectedID = document.NoSelection
		return nil
	}
	if s.elements.IndexOf(*op.ID) < 0 {
		return nil
	}
	s.selectedID = *op.ID
	return nil
}

func (s *State) applyUndo() error {
	var restored document.Elements
	s.history, restored = s.history.Undo()
	s.elements = restored
	s.ids.Observe(s.elements)
	s.dropStaleSelection()
	return nil
}

func (s *State) applyRedo() error {
	h, restored, ok := s.history.Redo()
	if !ok {
		return nil
	}
	s.history = h
	s.elements = restored
	s.ids.Observe(s.elements)
	s.dropStaleSelection()
	return nil
}

func (s *State) applyCopy() error {
	el, ok := s.Selected()
	if !ok {
		return nil
	}
	c := el.Clone()
	s.clipboard = &c
	return nil
}

func (s *State) applyPaste(op Operation) error {
	if s.clipboard == nil {
		return ErrClipboardEmpty
	}
	pos := s.menu.Position
	if op.Position != nil {
		pos = *op.Position
	}
	el := s.clipboard.Clone()
	el.ID = s.ids.Next()
	el.Style = document.Position(pos).Apply(el.Style)
	s.elements = append(s.elements, el)
	s.lastAdd = el.ID
	return nil
}

func (s *State) applyReorder(t OpType) error {
	n := len(s.elements)
	i := s.SelectedIndex()
	if n < 2 || i < 0 {
		return nil
	}
	j := -1
	switch t {
	case OpTop:
		j = n - 1
	case OpBottom:
		j = 0
	case OpUp:
		if i < n-1 {
			j = i + 1
		}
	case OpDown:
		if i > 0 {
			j = i - 1
		}
	}
	if j < 0 || j == i {
		return nil
	}
	s.elements[i], s.elements[j] = s.elements[j], s.elements[i]
	return nil
}

func (s *State) applyCreateEvents(op Operation) error {
	if op.Event == nil {
		return fmt.Errorf("%s: missing event", op.Type)
	}
	if !op.Event.Key.Valid() {
		return fmt.Errorf("%s: unknown event key %q", op.Type, op.Event.Key)
	}
	i := s.resolve(op)
	if i < 0 {
		return nil
	}
	s.elements[i].Events = s.elements[i].Events.Set(*op.Event)
	return nil
}

func (s *State) applySetCanvas(op Operation) error {
	if op.Canvas == nil {
		return fmt.Errorf("%s: missing canvas size", op.Type)
	}
	s.canvas = op.Canvas.Clamp(s.opts.MaxCanvas.Width, s.opts.MaxCanvas.Height)
	return nil
}

// dropStaleSelection clears the selection when its element is gone.
func (s *State) dropStaleSelection() {
	if s.selectedID != document.NoSelection && s.elements.IndexOf(s.selectedID) < 0 {
		s.selectedID = document.NoSelection
	}
}
