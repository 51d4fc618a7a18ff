package engine

import (
	"github.com/inamate/visualdrag/internal/document"
	"github.com/inamate/visualdrag/internal/geometry"
)

const (
	// HandleRadius is the hit radius around a resize handle, in pixels.
	HandleRadius = 5
	// RotateHandleOffset is how far above the element's top edge the
	// rotate affordance sits, in the element's own frame.
	RotateHandleOffset = 20
)

// HandlePoint is a resize handle position in canvas coordinates.
type HandlePoint struct {
	Handle geometry.Handle `json:"handle"`
	X      float64         `json:"x"`
	Y      float64         `json:"y"`
}

// handlePoints places the eight handles and the rotate affordance of a
// style on the canvas, following its rotation.
func handlePoints(s document.Style) ([]HandlePoint, geometry.Point) {
	m := geometry.FrameMatrix(s.Frame())
	out := make([]HandlePoint, 0, len(geometry.Handles))
	for _, h := range geometry.Handles {
		p := m.TransformPoint(h.Position(s.Width, s.Height))
		out = append(out, HandlePoint{Handle: h, X: p.X, Y: p.Y})
	}
	rot := m.TransformPoint(geometry.Point{X: s.Width / 2, Y: -RotateHandleOffset})
	return out, rot
}

func near(a, b geometry.Point, r float64) bool {
	dx, dy := a.X-b.X, a.Y-b.Y
	return dx*dx+dy*dy <= r*r
}

// hitKind says what part of the canvas a pointer press landed on.
type hitKind int

const (
	hitNone hitKind = iota
	hitBody
	hitHandle
	hitRotate
)

type hit struct {
	kind   hitKind
	id     int
	handle geometry.Handle
}

// hitTest resolves p against the layers. The selected element's handles
// win over any body; bodies are tested front to back.
func hitTest(layers []Layer, selectedID int, p geometry.Point, preview bool) hit {
	if !preview && selectedID != document.NoSelection {
		for i := range layers {
			l := &layers[i]
			if l.ID != selectedID {
				continue
			}
			for _, hp := range l.Handles {
				if near(p, geometry.Point{X: hp.X, Y: hp.Y}, HandleRadius) {
					return hit{kind: hitHandle, id: l.ID, handle: hp.Handle}
				}
			}
			if l.Rotate != nil && near(p, *l.Rotate, HandleRadius) {
				return hit{kind: hitRotate, id: l.ID}
			}
		}
	}
	for i := len(layers) - 1; i >= 0; i-- {
		if layers[i].frame.Contains(p) {
			return hit{kind: hitBody, id: layers[i].ID}
		}
	}
	return hit{kind: hitNone, id: document.NoSelection}
}

// SelectionBounds returns the axis-aligned box around the given layers,
// rotation included.
func SelectionBounds(layers []Layer, ids ...int) geometry.Rect {
	var out geometry.Rect
	for _, l := range layers {
		for _, id := range ids {
			if l.ID == id {
				out = out.Union(l.Bounds)
			}
		}
	}
	return out
}
