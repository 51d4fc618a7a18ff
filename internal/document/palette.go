package document

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/inamate/visualdrag/internal/geometry"
)

// Template is a palette entry: an element without an id or position.
type Template struct {
	Kind  Kind   `json:"kind"`
	Label string `json:"label"`
	Props Props  `json:"props"`
	Style Style  `json:"style"`
}

// commonStyle is merged into every template.
var commonStyle = StylePatch{Rotate: ptr(0.0), Opacity: ptr(1.0)}

func ptr[T any](v T) *T { return &v }

// DefaultPalette returns the built-in templates in display order.
func DefaultPalette() []Template {
	return []Template{
		{
			Kind:  KindTextInput,
			Label: "Text",
			Props: TextInputProps{Placeholder: "Enter text"},
			Style: commonStyle.Apply(Style{Width: 200, Height: 32}),
		},
		{
			Kind:  KindButton,
			Label: "Button",
			Props: ButtonProps{},
			Style: commonStyle.Apply(Style{Width: 100, Height: 32}),
		},
		{
			Kind:  KindImage,
			Label: "Image",
			Props: ImageProps{},
			Style: commonStyle.Apply(Style{Width: 100, Height: 100}),
		},
	}
}

// Instantiate creates an element from the template with the given id,
// centered on the drop point.
func (t Template) Instantiate(id int, drop geometry.Point) Element {
	el := Element{
		ID:    id,
		Kind:  t.Kind,
		Label: t.Label,
		Style: t.Style.Clone(),
	}
	if t.Props != nil {
		el.Props = t.Props.clone()
	} else {
		el.Props, _ = zeroProps(t.Kind)
	}
	el.Style.Left = drop.X - el.Style.Width/2
	el.Style.Top = drop.Y - el.Style.Height/2
	return el
}

type templateYAML struct {
	Kind        Kind           `yaml:"kind"`
	Label       string         `yaml:"label"`
	Placeholder string         `yaml:"placeholder"`
	Src         string         `yaml:"src"`
	Alt         string         `yaml:"alt"`
	Style       map[string]any `yaml:"style"`
}

func (t *Template) UnmarshalYAML(node *yaml.Node) error {
	var raw templateYAML
	if err := node.Decode(&raw); err != nil {
		return err
	}
	var props Props
	switch raw.Kind {
	case KindButton:
		props = ButtonProps{}
	case KindTextInput:
		props = TextInputProps{Placeholder: raw.Placeholder}
	case KindImage:
		props = ImageProps{Src: raw.Src, Alt: raw.Alt}
	default:
		return fmt.Errorf("line %d: unknown element kind %q", node.Line, raw.Kind)
	}
	style, err := StyleFromMap(raw.Style)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*t = Template{
		Kind:  raw.Kind,
		Label: raw.Label,
		Props: props,
		Style: commonStyle.Apply(style),
	}
	return nil
}

type paletteFile struct {
	Templates []Template `yaml:"templates"`
}

// ParsePalette decodes a YAML palette document.
func ParsePalette(data []byte) ([]Template, error) {
	var pf paletteFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse palette: %w", err)
	}
	if len(pf.Templates) == 0 {
		return nil, fmt.Errorf("parse palette: no templates")
	}
	return pf.Templates, nil
}

// LoadPalette reads a palette file. An empty path yields the default palette.
func LoadPalette(path string) ([]Template, error) {
	if path == "" {
		return DefaultPalette(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read palette: %w", err)
	}
	return ParsePalette(data)
}
