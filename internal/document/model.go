// Package document defines the data placed on the canvas: elements, their
// styles and typed renderer props, and the palette templates they are
// created from.
package document

import (
	"encoding/json"
	"fmt"
	"slices"
)

// NoSelection is the selected-id sentinel when nothing is active.
const NoSelection = -1

// Kind selects which renderer displays an element.
type Kind string

const (
	KindButton    Kind = "button"
	KindTextInput Kind = "text-input"
	KindImage     Kind = "image"
)

// Kinds lists every supported element kind.
var Kinds = []Kind{KindButton, KindTextInput, KindImage}

// Valid reports whether k is a supported kind.
func (k Kind) Valid() bool {
	return slices.Contains(Kinds, k)
}

// Props is the typed renderer payload of an element. The concrete type is
// fixed by the element's Kind.
type Props interface {
	Kind() Kind
	clone() Props
}

type ButtonProps struct {
	HTMLType string `json:"htmlType,omitempty" yaml:"htmlType,omitempty"`
	Disabled bool   `json:"disabled,omitempty" yaml:"disabled,omitempty"`
}

func (ButtonProps) Kind() Kind     { return KindButton }
func (p ButtonProps) clone() Props { return p }

type TextInputProps struct {
	Placeholder string `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	MaxLength   int    `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
}

func (TextInputProps) Kind() Kind     { return KindTextInput }
func (p TextInputProps) clone() Props { return p }

type ImageProps struct {
	Src     string `json:"src" yaml:"src"`
	Alt     string `json:"alt,omitempty" yaml:"alt,omitempty"`
	AssetID string `json:"assetId,omitempty" yaml:"assetId,omitempty"`
}

func (ImageProps) Kind() Kind     { return KindImage }
func (p ImageProps) clone() Props { return p }

// zeroProps returns the empty props value for a kind.
func zeroProps(k Kind) (Props, error) {
	switch k {
	case KindButton:
		return ButtonProps{}, nil
	case KindTextInput:
		return TextInputProps{}, nil
	case KindImage:
		return ImageProps{}, nil
	default:
		return nil, fmt.Errorf("unknown element kind %q", k)
	}
}

// DecodeProps decodes raw JSON props into the typed props of kind k.
// Empty input yields the zero props.
func DecodeProps(k Kind, raw json.RawMessage) (Props, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return zeroProps(k)
	}
	switch k {
	case KindButton:
		var p ButtonProps
		err := json.Unmarshal(raw, &p)
		return p, err
	case KindTextInput:
		var p TextInputProps
		err := json.Unmarshal(raw, &p)
		return p, err
	case KindImage:
		var p ImageProps
		err := json.Unmarshal(raw, &p)
		return p, err
	default:
		return nil, fmt.Errorf("unknown element kind %q", k)
	}
}

// EventKey names a runtime event handled by the preview collaborator.
type EventKey string

const (
	EventMessage  EventKey = "message"
	EventRedirect EventKey = "redirect"
)

// Valid reports whether k is a known event trigger.
func (k EventKey) Valid() bool {
	return k == EventMessage || k == EventRedirect
}

// Event pairs a trigger key with its argument (a message text or a URL).
type Event struct {
	Key   EventKey `json:"key"`
	Value string   `json:"value"`
}

// Events is an ordered event list holding at most one entry per key.
type Events []Event

// Set replaces the entry for e.Key in place, or appends it.
func (es Events) Set(e Event) Events {
	out := slices.Clone(es)
	for i := range out {
		if out[i].Key == e.Key {
			out[i] = e
			return out
		}
	}
	return append(out, e)
}

// Element is a positioned, sized, styled unit placed on the canvas.
type Element struct {
	ID     int
	Kind   Kind
	Label  string
	Props  Props
	Attrs  map[string]any
	Style  Style
	Events Events
}

type elementJSON struct {
	ID     int             `json:"id"`
	Kind   Kind            `json:"kind"`
	Label  string          `json:"label"`
	Props  json.RawMessage `json:"props,omitempty"`
	Attrs  map[string]any  `json:"attrs,omitempty"`
	Style  Style           `json:"style"`
	Events Events          `json:"events,omitempty"`
}

func (e Element) MarshalJSON() ([]byte, error) {
	var props json.RawMessage
	if e.Props != nil {
		b, err := json.Marshal(e.Props)
		if err != nil {
			return nil, fmt.Errorf("marshal props: %w", err)
		}
		props = b
	}
	return json.Marshal(elementJSON{
		ID:     e.ID,
		Kind:   e.Kind,
		Label:  e.Label,
		Props:  props,
		Attrs:  e.Attrs,
		Style:  e.Style,
		Events: e.Events,
	})
}

func (e *Element) UnmarshalJSON(data []byte) error {
	var raw elementJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	props, err := DecodeProps(raw.Kind, raw.Props)
	if err != nil {
		return fmt.Errorf("element %d: %w", raw.ID, err)
	}
	*e = Element{
		ID:     raw.ID,
		Kind:   raw.Kind,
		Label:  raw.Label,
		Props:  props,
		Attrs:  raw.Attrs,
		Style:  raw.Style,
		Events: raw.Events,
	}
	return nil
}

// Clone returns a deep copy of the element.
func (e Element) Clone() Element {
	if e.Props != nil {
		e.Props = e.Props.clone()
	}
	e.Attrs = cloneValue(e.Attrs).(map[string]any)
	e.Style = e.Style.Clone()
	e.Events = slices.Clone(e.Events)
	return e
}

// Elements is the z-ordered element list; later entries stack on top.
type Elements []Element

// Clone deep-copies the list.
func (es Elements) Clone() Elements {
	if es == nil {
		return nil
	}
	out := make(Elements, len(es))
	for i, e := range es {
		out[i] = e.Clone()
	}
	return out
}

// IndexOf returns the position of the element with the given id, or -1.
func (es Elements) IndexOf(id int) int {
	return slices.IndexFunc(es, func(e Element) bool { return e.ID == id })
}

// MaxID returns the largest id in the list, or -1 when empty.
func (es Elements) MaxID() int {
	maxID := -1
	for _, e := range es {
		maxID = max(maxID, e.ID)
	}
	return maxID
}

// cloneValue deep-copies JSON-shaped values (maps, slices, scalars).
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if t == nil {
			return t
		}
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		if t == nil {
			return t
		}
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}
