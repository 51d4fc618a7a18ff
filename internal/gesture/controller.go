// Package gesture turns continuous pointer gestures into style mutations
// of the editor state: dragging, resizing from one of eight handles, and
// rotating.
package gesture

import (
	"errors"
	"fmt"
	"time"

	"github.com/inamate/visualdrag/internal/document"
	"github.com/inamate/visualdrag/internal/editor"
	"github.com/inamate/visualdrag/internal/geometry"
	"github.com/inamate/visualdrag/internal/snap"
)

// DefaultCommitDelay is the trailing interval after which gesture frames
// are written to the editor state.
const DefaultCommitDelay = 100 * time.Millisecond

var (
	ErrGestureActive = errors.New("gesture already active")
	ErrNoElement     = errors.New("element not found")
)

// Mode is the controller state.
type Mode int

const (
	Idle Mode = iota
	Dragging
	Resizing
	Rotating
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Resizing:
		return "resizing"
	case Rotating:
		return "rotating"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

type Options struct {
	Snap        snap.Options
	CommitDelay time.Duration
}

func DefaultOptions() Options {
	return Options{Snap: snap.DefaultOptions(), CommitDelay: DefaultCommitDelay}
}

// Controller runs one gesture at a time against an editor state. The
// style being shown during a gesture is a local copy; it reaches the state
// through the commit debouncer and always on End.
type Controller struct {
	state  *editor.State
	opts   Options
	commit *Debouncer

	mode       Mode
	id         int
	start      geometry.Point
	startStyle document.Style
	visual     document.Style

	handle     geometry.Handle
	pivot      geometry.Pivot
	lockAspect bool
	skipMove   bool

	startAngle float64

	guides  snap.Result
	changed bool
}

// New returns an idle controller.
func New(state *editor.State, opts Options) *Controller {
	if opts.CommitDelay <= 0 {
		opts.CommitDelay = DefaultCommitDelay
	}
	return &Controller{
		state:  state,
		opts:   opts,
		commit: NewDebouncer(opts.CommitDelay),
		id:     document.NoSelection,
	}
}

// Mode returns the current state.
func (c *Controller) Mode() Mode { return c.mode }

// Active reports whether a gesture is running.
func (c *Controller) Active() bool { return c.mode != Idle }

// ElementID returns the element being manipulated, or NoSelection.
func (c *Controller) ElementID() int { return c.id }

// Guides returns the snap result of the last drag frame.
func (c *Controller) Guides() snap.Result { return c.guides }

// Visual returns the style to display for element id: the gesture's local
// copy while it manipulates that element, otherwise the state's style.
func (c *Controller) Visual(id int) (document.Style, bool) {
	if c.mode != Idle && id == c.id {
		return c.visual, true
	}
	el, ok := c.state.Element(id)
	if !ok {
		return document.Style{}, false
	}
	return el.Style, true
}

func (c *Controller) begin(mode Mode, id int, p geometry.Point) error {
	if c.mode != Idle {
		return ErrGestureActive
	}
	el, ok := c.state.Element(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoElement, id)
	}
	c.mode = mode
	c.id = id
	c.start = p
	c.startStyle = el.Style.Clone()
	c.visual = el.Style.Clone()
	c.guides = snap.Result{}
	c.changed = false
	return nil
}

// BeginDrag starts moving element id from pointer p.
func (c *Controller) BeginDrag(id int, p geometry.Point) error {
	return c.begin(Dragging, id, p)
}

// BeginResize starts resizing element id from handle h. With lockAspect
// the element keeps its width/height ratio.
func (c *Controller) BeginResize(id int, h geometry.Handle, p geometry.Point, lockAspect bool) error {
	if err := c.begin(Resizing, id, p); err != nil {
		return err
	}
	c.handle = h
	c.lockAspect = lockAspect
	c.pivot = geometry.NewPivot(c.startStyle.Frame(), p)
	// Some input stacks emit a move together with the press.
	c.skipMove = true
	return nil
}

// BeginRotate starts rotating element id around its center.
func (c *Controller) BeginRotate(id int, p geometry.Point) error {
	if err := c.begin(Rotating, id, p); err != nil {
		return err
	}
	c.startAngle = geometry.RotationAngle(c.startStyle.Frame().Center(), p)
	return nil
}

// Move feeds one pointer position. It returns the style now shown for the
// element. If the element is gone the gesture is abandoned and
// ErrNoElement returned.
func (c *Controller) Move(p geometry.Point, now time.Time) (document.Style, error) {
	if c.mode == Idle {
		return document.Style{}, nil
	}
	el, ok := c.state.Element(c.id)
	if !ok {
		id := c.id
		c.Abandon()
		return document.Style{}, fmt.Errorf("%w: %d", ErrNoElement, id)
	}
	switch c.mode {
	case Dragging:
		c.visual = c.dragFrame(el, p)
	case Resizing:
		if c.skipMove {
			c.skipMove = false
			return c.visual, nil
		}
		aspect := 0.0
		if c.startStyle.Height != 0 {
			aspect = c.startStyle.Width / c.startStyle.Height
		}
		f := geometry.ResizeFromHandle(c.handle, c.startStyle.Frame(), p, aspect, c.lockAspect, c.pivot)
		c.visual = c.startStyle.WithFrame(f)
	case Rotating:
		angle := geometry.RotationAngle(c.startStyle.Frame().Center(), p)
		c.visual = c.startStyle.Clone()
		c.visual.Rotate = c.startStyle.Rotate + angle - c.startAngle
	}
	c.changed = true
	c.schedule(now)
	return c.visual, nil
}

func (c *Controller) dragFrame(el document.Element, p geometry.Point) document.Style {
	candidate := c.startStyle.Clone()
	candidate.Left = c.startStyle.Left + p.X - c.start.X
	candidate.Top = c.startStyle.Top + p.Y - c.start.Y

	el.Style = candidate
	c.guides = snap.Detect(el, c.state.Elements(), c.opts.Snap)

	if !c.guides.Correction.IsEmpty() {
		_ = c.state.MustApply(editor.Operation{Type: editor.OpSetDragCorrection, Style: c.guides.Correction})
	}
	if corr, ok := c.state.DragCorrection(); ok {
		candidate = corr.Apply(candidate)
		_ = c.state.MustApply(editor.Operation{Type: editor.OpClearDragCorrection})
	}
	return candidate
}

func (c *Controller) schedule(now time.Time) {
	id := c.id
	f := c.visual.Frame()
	patch := document.StylePatch{Left: &f.Left, Top: &f.Top, Width: &f.Width, Height: &f.Height, Rotate: &f.Rotate}
	c.commit.Push(func() error {
		return c.state.MustApply(editor.Operation{Type: editor.OpSetComponentStyle, ID: &id, Style: patch})
	}, now)
}

// Tick writes the pending frame once the commit delay has passed.
func (c *Controller) Tick(now time.Time) error {
	_, err := c.commit.Tick(now)
	return err
}

// Due returns when the pending commit fires.
func (c *Controller) Due() (time.Time, bool) { return c.commit.Due() }

// End finishes the gesture: the pending frame is written, the guides are
// cleared and the controller returns to Idle. changed reports whether any
// move was applied, which is when the caller should record a snapshot.
func (c *Controller) End() (changed bool, err error) {
	if c.mode == Idle {
		return false, nil
	}
	err = c.commit.Flush()
	changed = c.changed
	c.reset()
	return changed, err
}

// Cancel aborts the gesture and puts the element back where it started.
func (c *Controller) Cancel() error {
	if c.mode == Idle {
		return nil
	}
	c.commit.Cancel()
	id := c.id
	f := c.startStyle.Frame()
	var err error
	if c.changed {
		err = c.state.MustApply(editor.Operation{
			Type:  editor.OpSetComponentStyle,
			ID:    &id,
			Style: document.StylePatch{Left: &f.Left, Top: &f.Top, Width: &f.Width, Height: &f.Height, Rotate: &f.Rotate},
		})
	}
	c.reset()
	return err
}

// Abandon drops the gesture without writing anything. Used when the state
// changed underneath it, e.g. by undo.
func (c *Controller) Abandon() {
	c.commit.Cancel()
	c.reset()
}

func (c *Controller) reset() {
	c.mode = Idle
	c.id = document.NoSelection
	c.guides = snap.Result{}
	c.changed = false
	c.skipMove = false
	_ = c.state.MustApply(editor.Operation{Type: editor.OpClearDragCorrection})
}
