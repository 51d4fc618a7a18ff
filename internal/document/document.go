package document

import (
	"encoding/json"
	"fmt"
)

// Default canvas dimensions and the bounds the size control clamps to.
const (
	DefaultCanvasWidth  = 1200
	DefaultCanvasHeight = 760
	MinCanvasSize       = 1
)

// CanvasSize is the editing surface in pixels.
type CanvasSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Clamp bounds the size to 1..maxW by 1..maxH.
func (c CanvasSize) Clamp(maxW, maxH float64) CanvasSize {
	return CanvasSize{
		Width:  min(max(c.Width, MinCanvasSize), maxW),
		Height: min(max(c.Height, MinCanvasSize), maxH),
	}
}

// Document is the persisted form of an editing session: the z-ordered
// elements and the canvas size.
type Document struct {
	Canvas   CanvasSize `json:"canvas"`
	Elements Elements   `json:"elements"`
}

// Validate checks that element ids are unique and non-negative and every
// element has a supported kind.
func (d *Document) Validate() error {
	seen := make(map[int]bool, len(d.Elements))
	for i, e := range d.Elements {
		if e.ID < 0 {
			return fmt.Errorf("element %d: negative id %d", i, e.ID)
		}
		if seen[e.ID] {
			return fmt.Errorf("element %d: duplicate id %d", i, e.ID)
		}
		seen[e.ID] = true
		if !e.Kind.Valid() {
			return fmt.Errorf("element %d: unknown kind %q", e.ID, e.Kind)
		}
	}
	return nil
}

// Decode parses and validates a JSON document.
func Decode(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if doc.Canvas.Width == 0 && doc.Canvas.Height == 0 {
		doc.Canvas = CanvasSize{Width: DefaultCanvasWidth, Height: DefaultCanvasHeight}
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &doc, nil
}

// IDSource hands out element ids. Ids increase monotonically and are never
// reused, even after the element that held one is deleted.
type IDSource struct {
	next int
}

// NewIDSource returns a source whose first id is start.
func NewIDSource(start int) *IDSource {
	return &IDSource{next: start}
}

// Next returns a fresh id.
func (s *IDSource) Next() int {
	id := s.next
	s.next++
	return id
}

// Observe makes sure future ids are greater than every id in es, so a
// loaded or restored element list can never collide with new elements.
func (s *IDSource) Observe(es Elements) {
	if m := es.MaxID(); m >= s.next {
		s.next = m + 1
	}
}

// Peek returns the id the next call to Next will return.
func (s *IDSource) Peek() int { return s.next }
