// Package snap detects near-alignment between a dragged element and its
// siblings on six guide lines and computes the corrective shift.
package snap

import (
	"fmt"
	"math"

	"github.com/inamate/visualdrag/internal/document"
	"github.com/inamate/visualdrag/internal/geometry"
)

// DefaultThreshold is the distance in pixels at which a guide snaps.
const DefaultThreshold = 3

// Guide names one of the six alignment lines. The x guides are horizontal
// lines and correct top; the y guides are vertical lines and correct left.
type Guide string

const (
	GuideTop    Guide = "xt"
	GuideMiddle Guide = "xc"
	GuideBottom Guide = "xb"
	GuideLeft   Guide = "yl"
	GuideCenter Guide = "yc"
	GuideRight  Guide = "yr"
)

// Guides lists all guides, horizontal first.
var Guides = []Guide{GuideTop, GuideMiddle, GuideBottom, GuideLeft, GuideCenter, GuideRight}

// Horizontal reports whether g is drawn as a horizontal line.
func (g Guide) Horizontal() bool {
	return g == GuideTop || g == GuideMiddle || g == GuideBottom
}

// TieBreak decides which candidate wins when several qualify on one guide
// or one axis in the same frame.
type TieBreak int

const (
	// Nearest keeps the smallest distance; equal distances keep the sibling
	// that comes first in z-order.
	Nearest TieBreak = iota
	// LastWins keeps the last qualifying sibling in z-order.
	LastWins
)

// ParseTieBreak maps "nearest" and "last" to a TieBreak.
func ParseTieBreak(s string) (TieBreak, error) {
	switch s {
	case "", "nearest":
		return Nearest, nil
	case "last":
		return LastWins, nil
	default:
		return Nearest, fmt.Errorf("unknown snap tie-break %q", s)
	}
}

// Options tune detection.
type Options struct {
	Threshold float64
	TieBreak  TieBreak
}

// DefaultOptions returns a 3px threshold with nearest-distance tie-breaks.
func DefaultOptions() Options {
	return Options{Threshold: DefaultThreshold, TieBreak: Nearest}
}

// Result is the outcome of one detection pass.
type Result struct {
	// Status holds all six guides; true means the guide line is shown.
	Status map[Guide]bool `json:"status"`
	// Lines holds the canvas coordinate of each active guide line.
	Lines map[Guide]float64 `json:"lines"`
	// Correction is the absolute top/left the dragged element snaps to.
	Correction document.StylePatch `json:"correction"`
}

// Active reports whether any guide fired.
func (r Result) Active() bool {
	for _, on := range r.Status {
		if on {
			return true
		}
	}
	return false
}

// LineStyle returns the renderer style placing guide g.
func (r Result) LineStyle(g Guide) map[string]float64 {
	pos, ok := r.Lines[g]
	if !ok {
		return nil
	}
	if g.Horizontal() {
		return map[string]float64{"top": pos}
	}
	return map[string]float64{"left": pos}
}

// condition is one dragged/sibling pairing on an axis.
type condition struct {
	guide     Guide
	drag      float64 // dragged element coordinate being compared
	target    float64 // sibling coordinate it aligns to
	dragShift float64 // rotated-bounds origin that realizes the alignment
}

type candidate struct {
	dist      float64
	line      float64
	dragShift float64
}

// Detect compares the dragged element, already carrying its candidate
// style, against every sibling. Siblings with the dragged element's id are
// skipped.
func Detect(dragged document.Element, siblings document.Elements, opts Options) Result {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	res := Result{
		Status: make(map[Guide]bool, len(Guides)),
		Lines:  make(map[Guide]float64),
	}
	for _, g := range Guides {
		res.Status[g] = false
	}

	frame := dragged.Style.Frame()
	me := geometry.RotatedBounds(frame)

	perGuide := make(map[Guide]candidate)
	var topWin, leftWin *candidate

	for _, sib := range siblings {
		if sib.ID == dragged.ID {
			continue
		}
		other := geometry.RotatedBounds(sib.Style.Frame())

		for _, c := range topConditions(me, other) {
			consider(c, opts, perGuide, &topWin)
		}
		for _, c := range leftConditions(me, other) {
			consider(c, opts, perGuide, &leftWin)
		}
	}

	for g, c := range perGuide {
		res.Status[g] = true
		res.Lines[g] = c.line
	}

	// dragShift positions the rotated bounds; convert back to the style
	// origin, which differs from the bounds origin once rotated.
	if topWin != nil {
		top := topWin.dragShift - (frame.Height-me.Height)/2
		res.Correction.Top = &top
	}
	if leftWin != nil {
		left := leftWin.dragShift - (frame.Width-me.Width)/2
		res.Correction.Left = &left
	}
	return res
}

func consider(c condition, opts Options, perGuide map[Guide]candidate, axisWin **candidate) {
	dist := math.Abs(c.drag - c.target)
	if dist > opts.Threshold {
		return
	}
	cand := candidate{dist: dist, line: c.target, dragShift: c.dragShift}

	if prev, ok := perGuide[c.guide]; !ok || better(cand, prev, opts.TieBreak) {
		perGuide[c.guide] = cand
	}
	if *axisWin == nil || better(cand, **axisWin, opts.TieBreak) {
		*axisWin = &cand
	}
}

func better(c, prev candidate, tb TieBreak) bool {
	if tb == LastWins {
		return true
	}
	return c.dist < prev.dist
}

func topConditions(me, other geometry.Bounds) []condition {
	myHalf := me.Height / 2
	otherHalf := other.Height / 2
	return []condition{
		{GuideTop, me.Top, other.Top, other.Top},
		{GuideTop, me.Bottom, other.Top, other.Top - me.Height},
		{GuideMiddle, me.Top + myHalf, other.Top + otherHalf, other.Top + otherHalf - myHalf},
		{GuideBottom, me.Top, other.Bottom, other.Bottom},
		{GuideBottom, me.Bottom, other.Bottom, other.Bottom - me.Height},
	}
}

func leftConditions(me, other geometry.Bounds) []condition {
	myHalf := me.Width / 2
	otherHalf := other.Width / 2
	return []condition{
		{GuideLeft, me.Left, other.Left, other.Left},
		{GuideLeft, me.Right, other.Left, other.Left - me.Width},
		{GuideCenter, me.Left + myHalf, other.Left + otherHalf, other.Left + otherHalf - myHalf},
		{GuideRight, me.Left, other.Right, other.Right},
		{GuideRight, me.Right, other.Right, other.Right - me.Width},
	}
}
