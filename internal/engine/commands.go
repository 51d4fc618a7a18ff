package engine

import (
	"encoding/json"

	"github.com/inamate/visualdrag/internal/document"
	"github.com/inamate/visualdrag/internal/editor"
	"github.com/inamate/visualdrag/internal/geometry"
	"github.com/inamate/visualdrag/internal/gesture"
	"github.com/inamate/visualdrag/internal/snap"
)

// Layer is one element as the renderer draws it. The renderer style has
// no placement; Transform places the renderer output on the canvas.
type Layer struct {
	ID        int             `json:"id"`
	Kind      document.Kind   `json:"kind"`
	Label     string          `json:"label"`
	Props     document.Props  `json:"props,omitempty"`
	Attrs     map[string]any  `json:"attrs,omitempty"`
	Style     map[string]any  `json:"style"`
	Transform []float64       `json:"transform"`
	Bounds    geometry.Rect   `json:"bounds"`
	Selected  bool            `json:"selected,omitempty"`
	Handles   []HandlePoint   `json:"handles,omitempty"`
	Rotate    *geometry.Point `json:"rotateHandle,omitempty"`

	frame geometry.Frame
}

// GuideLine is an active snap guide.
type GuideLine struct {
	Guide      snap.Guide         `json:"guide"`
	Horizontal bool               `json:"horizontal"`
	Position   float64            `json:"position"`
	Style      map[string]float64 `json:"style"`
}

// Frame is everything the renderer needs to draw the canvas once.
type Frame struct {
	Version    uint64              `json:"version"`
	Canvas     document.CanvasSize `json:"canvas"`
	Layers     []Layer             `json:"layers"`
	Guides     []GuideLine         `json:"guides"`
	SelectedID int                 `json:"selectedId"`
	Selection  *geometry.Rect      `json:"selection,omitempty"`
	Menu       editor.ContextMenu  `json:"menu"`
	Preview    bool                `json:"preview"`
	Gesture    string              `json:"gesture"`
	CanUndo    bool                `json:"canUndo"`
	CanRedo    bool                `json:"canRedo"`
}

// CompileFrame builds the frame for the state as currently shown. The
// element under an active gesture uses the gesture's local style.
func CompileFrame(s *editor.State, c *gesture.Controller) Frame {
	els := s.Elements()
	f := Frame{
		Version:    s.Version(),
		Canvas:     s.Canvas(),
		Layers:     make([]Layer, 0, len(els)),
		Guides:     []GuideLine{},
		SelectedID: s.SelectedID(),
		Menu:       s.Menu(),
		Preview:    s.Preview(),
		Gesture:    c.Mode().String(),
		CanUndo:    s.History().Cursor() >= 0,
		CanRedo:    s.History().CanRedo(),
	}

	for _, el := range els {
		style, _ := c.Visual(el.ID)
		l := Layer{
			ID:        el.ID,
			Kind:      el.Kind,
			Label:     el.Label,
			Props:     el.Props,
			Attrs:     el.Attrs,
			Style:     style.RendererStyle(),
			Transform: style.Transform().ToSlice(),
			Bounds:    geometry.RotatedBounds(style.Frame()).Rect(),
			Selected:  el.ID == f.SelectedID,
			frame:     style.Frame(),
		}
		if l.Selected && !f.Preview {
			handles, rot := handlePoints(style)
			l.Handles = handles
			l.Rotate = &rot
		}
		f.Layers = append(f.Layers, l)
	}
	if f.SelectedID != document.NoSelection && !f.Preview {
		if sel := SelectionBounds(f.Layers, f.SelectedID); !sel.IsEmpty() {
			f.Selection = &sel
		}
	}

	guides := c.Guides()
	for _, g := range snap.Guides {
		if !guides.Status[g] {
			continue
		}
		f.Guides = append(f.Guides, GuideLine{
			Guide:      g,
			Horizontal: g.Horizontal(),
			Position:   guides.Lines[g],
			Style:      guides.LineStyle(g),
		})
	}
	return f
}

// FrameToJSON serializes a frame.
func FrameToJSON(f Frame) (string, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return "{}", err
	}
	return string(data), nil
}
