package geometry

import (
	"fmt"
	"math"
	"strings"
)

// Handle names one of the eight resize handles around an element.
type Handle string

const (
	HandleLeftTop     Handle = "lt"
	HandleTop         Handle = "t"
	HandleRightTop    Handle = "rt"
	HandleRight       Handle = "r"
	HandleRightBottom Handle = "rb"
	HandleBottom      Handle = "b"
	HandleLeftBottom  Handle = "lb"
	HandleLeft        Handle = "l"
)

// Handles lists the handles clockwise from the top-left corner.
var Handles = []Handle{
	HandleLeftTop, HandleTop, HandleRightTop, HandleRight,
	HandleRightBottom, HandleBottom, HandleLeftBottom, HandleLeft,
}

// ParseHandle validates a handle name.
func ParseHandle(s string) (Handle, error) {
	for _, h := range Handles {
		if string(h) == s {
			return h, nil
		}
	}
	return "", fmt.Errorf("unknown resize handle %q", s)
}

func (h Handle) hasTop() bool    { return strings.Contains(string(h), "t") }
func (h Handle) hasBottom() bool { return strings.Contains(string(h), "b") }
func (h Handle) hasLeft() bool   { return strings.Contains(string(h), "l") }
func (h Handle) hasRight() bool  { return strings.Contains(string(h), "r") }

// IsCorner reports whether the handle moves two edges.
func (h Handle) IsCorner() bool { return len(h) == 2 }

// Position returns where the handle sits in element-local coordinates.
func (h Handle) Position(width, height float64) Point {
	var p Point
	switch {
	case h.hasLeft():
		p.X = 0
	case h.hasRight():
		p.X = width
	default:
		p.X = width / 2
	}
	switch {
	case h.hasTop():
		p.Y = 0
	case h.hasBottom():
		p.Y = height
	default:
		p.Y = height / 2
	}
	return p
}

// Pivot holds the reference points captured when a resize handle is pressed.
type Pivot struct {
	Center Point `json:"center"` // element center at press time
	Start  Point `json:"start"`  // pointer position at press time
}

// NewPivot captures the pivot of frame f for a press at start.
func NewPivot(f Frame, start Point) Pivot {
	return Pivot{Center: f.Center(), Start: start}
}

// Symmetric returns the press point reflected through the element center.
func (p Pivot) Symmetric() Point {
	return Point{
		X: p.Center.X - (p.Start.X - p.Center.X),
		Y: p.Center.Y - (p.Start.Y - p.Center.Y),
	}
}

// ResizeFromHandle computes the frame produced by dragging handle h of the
// start frame f to pointer. Only the edges named by the handle move; the
// opposite edges stay fixed on the canvas, also for rotated frames. Width
// and height never go below zero.
//
// With lockAspect set the result keeps width/height == aspect. Corner
// handles stay anchored on the opposite corner; edge handles grow the
// other dimension symmetrically around the center line.
func ResizeFromHandle(h Handle, f Frame, pointer Point, aspect float64, lockAspect bool, pv Pivot) Frame {
	toLocal := RotateAbout(pv.Center, -f.Rotate)
	cur := toLocal.TransformPoint(pointer)
	start := toLocal.TransformPoint(pv.Start)
	dx := cur.X - start.X
	dy := cur.Y - start.Y

	left, top := f.Left, f.Top
	right, bottom := f.Left+f.Width, f.Top+f.Height

	if h.hasLeft() {
		left += dx
	} else if h.hasRight() {
		right += dx
	}
	if h.hasTop() {
		top += dy
	} else if h.hasBottom() {
		bottom += dy
	}

	width := math.Max(right-left, 0)
	height := math.Max(bottom-top, 0)

	if lockAspect && aspect > 0 && !math.IsInf(aspect, 0) {
		switch {
		case h.IsCorner():
			if width/height > aspect {
				width = height * aspect
			} else {
				height = width / aspect
			}
		case h.hasTop() || h.hasBottom():
			width = height * aspect
		default:
			height = width / aspect
		}
	}

	// Re-anchor on the fixed edges.
	switch {
	case h.hasLeft():
		left = right - width
	case h.hasRight():
		left = f.Left
	default:
		left = f.Left + (f.Width-width)/2
	}
	switch {
	case h.hasTop():
		top = bottom - height
	case h.hasBottom():
		top = f.Top
	default:
		top = f.Top + (f.Height-height)/2
	}

	if f.Rotate == 0 {
		return Frame{Left: left, Top: top, Width: width, Height: height}
	}

	// The new rectangle was solved in the old frame's local space; its
	// center must be carried back to canvas space so the fixed edges do
	// not drift once the renderer rotates around the new center.
	center := RotateAbout(pv.Center, f.Rotate).TransformPoint(Point{left + width/2, top + height/2})
	return Frame{
		Left:   center.X - width/2,
		Top:    center.Y - height/2,
		Width:  width,
		Height: height,
		Rotate: f.Rotate,
	}
}
