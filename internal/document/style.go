package document

import (
	"encoding/json"
	"fmt"
	"maps"

	"github.com/inamate/visualdrag/internal/geometry"
)

// Style is the geometry and appearance of an element. The geometric fields
// are interpreted by the engine; Appearance carries free-form renderer
// fields (color, borderWidth, fontSize, ...) the engine never reads.
//
// On the wire a Style is a flat JSON object, e.g.
// {"width":100,"height":32,"top":10,"left":20,"rotate":0,"opacity":1,"color":"#333"}.
type Style struct {
	Width      float64
	Height     float64
	Top        float64
	Left       float64
	Rotate     float64
	Opacity    float64
	Appearance map[string]any
}

var geometricKeys = map[string]bool{
	"width": true, "height": true, "top": true, "left": true, "rotate": true, "opacity": true,
}

// Frame returns the geometric part of the style.
func (s Style) Frame() geometry.Frame {
	return geometry.Frame{Left: s.Left, Top: s.Top, Width: s.Width, Height: s.Height, Rotate: s.Rotate}
}

// WithFrame returns a copy of s with its geometry replaced by f.
func (s Style) WithFrame(f geometry.Frame) Style {
	s.Left, s.Top, s.Width, s.Height, s.Rotate = f.Left, f.Top, f.Width, f.Height, f.Rotate
	return s
}

// Clone returns a deep copy.
func (s Style) Clone() Style {
	s.Appearance = cloneValue(s.Appearance).(map[string]any)
	return s
}

// RendererStyle returns the style handed to the inner renderer: everything
// except top/left/rotate, which the engine applies as a wrapping transform.
func (s Style) RendererStyle() map[string]any {
	out := make(map[string]any, len(s.Appearance)+3)
	maps.Copy(out, s.Appearance)
	out["width"] = s.Width
	out["height"] = s.Height
	out["opacity"] = s.Opacity
	return out
}

// Transform returns the wrapping matrix that places the renderer output.
func (s Style) Transform() geometry.Matrix2D {
	return geometry.FrameMatrix(s.Frame())
}

func (s Style) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Appearance)+6)
	for k, v := range s.Appearance {
		if !geometricKeys[k] {
			out[k] = v
		}
	}
	out["width"] = s.Width
	out["height"] = s.Height
	out["top"] = s.Top
	out["left"] = s.Left
	out["rotate"] = s.Rotate
	out["opacity"] = s.Opacity
	return json.Marshal(out)
}

func (s *Style) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := StyleFromMap(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// StyleFromMap builds a Style from a flat key/value map. Missing geometric
// keys default to zero, except opacity which defaults to 1.
func StyleFromMap(m map[string]any) (Style, error) {
	s := Style{Opacity: 1}
	for k, v := range m {
		if !geometricKeys[k] {
			if s.Appearance == nil {
				s.Appearance = make(map[string]any)
			}
			s.Appearance[k] = v
			continue
		}
		f, err := toFloat(v)
		if err != nil {
			return Style{}, fmt.Errorf("style %s: %w", k, err)
		}
		switch k {
		case "width":
			s.Width = f
		case "height":
			s.Height = f
		case "top":
			s.Top = f
		case "left":
			s.Left = f
		case "rotate":
			s.Rotate = f
		case "opacity":
			s.Opacity = f
		}
	}
	return s, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}

// StylePatch is a partial style update. Nil fields are left untouched;
// Appearance keys are merged over the existing ones.
type StylePatch struct {
	Width      *float64       `json:"width,omitempty"`
	Height     *float64       `json:"height,omitempty"`
	Top        *float64       `json:"top,omitempty"`
	Left       *float64       `json:"left,omitempty"`
	Rotate     *float64       `json:"rotate,omitempty"`
	Opacity    *float64       `json:"opacity,omitempty"`
	Appearance map[string]any `json:"appearance,omitempty"`
}

// Position returns a patch that moves an element to (left, top).
func Position(p geometry.Point) StylePatch {
	return StylePatch{Left: &p.X, Top: &p.Y}
}

// IsEmpty reports whether the patch changes nothing.
func (p StylePatch) IsEmpty() bool {
	return p.Width == nil && p.Height == nil && p.Top == nil && p.Left == nil &&
		p.Rotate == nil && p.Opacity == nil && len(p.Appearance) == 0
}

// Apply returns s with the patch merged in.
func (p StylePatch) Apply(s Style) Style {
	s = s.Clone()
	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	set(&s.Width, p.Width)
	set(&s.Height, p.Height)
	set(&s.Top, p.Top)
	set(&s.Left, p.Left)
	set(&s.Rotate, p.Rotate)
	set(&s.Opacity, p.Opacity)
	if len(p.Appearance) > 0 {
		if s.Appearance == nil {
			s.Appearance = make(map[string]any, len(p.Appearance))
		}
		for k, v := range p.Appearance {
			s.Appearance[k] = cloneValue(v)
		}
	}
	return s
}

// Merge returns p overlaid with q; fields set in q win.
func (p StylePatch) Merge(q StylePatch) StylePatch {
	pick := func(a, b *float64) *float64 {
		if b != nil {
			return b
		}
		return a
	}
	out := StylePatch{
		Width:   pick(p.Width, q.Width),
		Height:  pick(p.Height, q.Height),
		Top:     pick(p.Top, q.Top),
		Left:    pick(p.Left, q.Left),
		Rotate:  pick(p.Rotate, q.Rotate),
		Opacity: pick(p.Opacity, q.Opacity),
	}
	if len(p.Appearance)+len(q.Appearance) > 0 {
		out.Appearance = make(map[string]any, len(p.Appearance)+len(q.Appearance))
		maps.Copy(out.Appearance, p.Appearance)
		maps.Copy(out.Appearance, q.Appearance)
	}
	return out
}
