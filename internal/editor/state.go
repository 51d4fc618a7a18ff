// Package editor holds the authoritative editing state of one canvas and
// the closed set of operations that mutate it.
package editor

import (
	"errors"

	"github.com/inamate/visualdrag/internal/document"
	"github.com/inamate/visualdrag/internal/geometry"
	"github.com/inamate/visualdrag/internal/history"
)

var (
	// ErrUnknownOperation is returned for an operation type outside the
	// supported set. It signals a programming error in the caller.
	ErrUnknownOperation = errors.New("unknown operation")
	// ErrClipboardEmpty is returned by paste when nothing was copied.
	ErrClipboardEmpty = errors.New("clipboard is empty")
)

// Options configure a new State.
type Options struct {
	// MaxCanvas bounds setCanvasStyle; each dimension is clamped to
	// 1..MaxCanvas.
	MaxCanvas document.CanvasSize
	// HistoryLimit caps stored snapshots; zero keeps all of them. Undo
	// cannot reach past the oldest kept snapshot.
	HistoryLimit int
}

// DefaultOptions returns 1200x760 canvas bounds and an unlimited history.
func DefaultOptions() Options {
	return Options{
		MaxCanvas: document.CanvasSize{Width: document.DefaultCanvasWidth, Height: document.DefaultCanvasHeight},
	}
}

// ContextMenu is the state of the canvas context menu.
type ContextMenu struct {
	Visible  bool           `json:"visible"`
	Position geometry.Point `json:"position"`
}

// State is the document state of one editing session. It has a single
// writer: every mutation goes through Apply on the goroutine that owns it.
type State struct {
	elements        document.Elements
	selectedID      int
	canvas          document.CanvasSize
	clipboard       *document.Element
	dragCorrection  *document.StylePatch
	activelyClicked bool
	preview         bool
	menu            ContextMenu

	history history.History
	ids     *document.IDSource
	opts    Options
	lastAdd int
	version uint64
}

// New returns an empty state on a default canvas.
func New(opts Options) *State {
	if opts.MaxCanvas.Width <= 0 || opts.MaxCanvas.Height <= 0 {
		opts.MaxCanvas = DefaultOptions().MaxCanvas
	}
	return &State{
		elements:   document.Elements{},
		selectedID: document.NoSelection,
		canvas:     document.CanvasSize{Width: document.DefaultCanvasWidth, Height: document.DefaultCanvasHeight}.Clamp(opts.MaxCanvas.Width, opts.MaxCanvas.Height),
		history:    history.New(opts.HistoryLimit),
		ids:        document.NewIDSource(0),
		opts:       opts,
		lastAdd:    document.NoSelection,
	}
}

// FromDocument returns a state holding doc's elements and canvas size. The
// history starts empty.
func FromDocument(doc *document.Document, opts Options) *State {
	s := New(opts)
	s.elements = doc.Elements.Clone()
	if s.elements == nil {
		s.elements = document.Elements{}
	}
	if doc.Canvas.Width != 0 || doc.Canvas.Height != 0 {
		s.canvas = doc.Canvas.Clamp(s.opts.MaxCanvas.Width, s.opts.MaxCanvas.Height)
	}
	s.ids.Observe(s.elements)
	return s
}

// Document returns a copy of the persisted part of the state.
func (s *State) Document() *document.Document {
	return &document.Document{Canvas: s.canvas, Elements: s.elements.Clone()}
}

// Elements returns the z-ordered element list. Callers must not modify it.
func (s *State) Elements() document.Elements { return s.elements }

// Element returns the element with the given id.
func (s *State) Element(id int) (document.Element, bool) {
	i := s.elements.IndexOf(id)
	if i < 0 {
		return document.Element{}, false
	}
	return s.elements[i], true
}

// SelectedID returns the active element id or document.NoSelection.
func (s *State) SelectedID() int { return s.selectedID }

// Selected returns the active element, if any.
func (s *State) Selected() (document.Element, bool) {
	if s.selectedID == document.NoSelection {
		return document.Element{}, false
	}
	return s.Element(s.selectedID)
}

// SelectedIndex returns the active element's index, or -1.
func (s *State) SelectedIndex() int {
	if s.selectedID == document.NoSelection {
		return -1
	}
	return s.elements.IndexOf(s.selectedID)
}

func (s *State) Canvas() document.CanvasSize { return s.canvas }

// Clipboard returns the copied element, if any.
func (s *State) Clipboard() (document.Element, bool) {
	if s.clipboard == nil {
		return document.Element{}, false
	}
	return *s.clipboard, true
}

// DragCorrection returns the pending snap correction, if any.
func (s *State) DragCorrection() (document.StylePatch, bool) {
	if s.dragCorrection == nil {
		return document.StylePatch{}, false
	}
	return *s.dragCorrection, true
}

// ActivelyClicked reports whether the pointer is mid-gesture on an element.
func (s *State) ActivelyClicked() bool { return s.activelyClicked }

func (s *State) Preview() bool { return s.preview }

func (s *State) Menu() ContextMenu { return s.menu }

// History returns the undo stack.
func (s *State) History() history.History { return s.history }

// LastAddedID returns the id given to the most recent added or pasted
// element, or document.NoSelection.
func (s *State) LastAddedID() int { return s.lastAdd }

// NextID returns the id the next added element will receive.
func (s *State) NextID() int { return s.ids.Peek() }

// Version increases on every applied operation.
func (s *State) Version() uint64 { return s.version }
