package document

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/inamate/visualdrag/internal/geometry"
)

func TestDefaultPalette(t *testing.T) {
	p := DefaultPalette()
	if len(p) != 3 {
		t.Fatalf("len = %d, want 3", len(p))
	}
	in := p[0]
	if in.Kind != KindTextInput || in.Style.Width != 200 || in.Style.Height != 32 {
		t.Errorf("text input template = %+v", in)
	}
	for _, tpl := range p {
		if tpl.Style.Rotate != 0 || tpl.Style.Opacity != 1 {
			t.Errorf("%s: common style missing: %+v", tpl.Kind, tpl.Style)
		}
	}
}

func TestTemplateInstantiateCentersOnDrop(t *testing.T) {
	tpl := DefaultPalette()[1]
	el := tpl.Instantiate(42, geometry.Point{X: 300, Y: 200})

	if el.ID != 42 || el.Kind != KindButton {
		t.Fatalf("element = %+v", el)
	}
	if el.Style.Left != 250 || el.Style.Top != 184 {
		t.Errorf("origin = (%v,%v), want (250,184)", el.Style.Left, el.Style.Top)
	}
	if tpl.Style.Left != 0 {
		t.Error("template mutated")
	}
}

func TestParsePalette(t *testing.T) {
	data := []byte(`
templates:
  - kind: text-input
    label: Email
    placeholder: you@example.com
    style:
      width: 240
      height: 36
      color: "#222"
  - kind: image
    label: Logo
    src: /assets/logo.png
    style:
      width: 64
      height: 64
`)
	p, err := ParsePalette(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(p) != 2 {
		t.Fatalf("len = %d", len(p))
	}
	if got := p[0].Props.(TextInputProps).Placeholder; got != "you@example.com" {
		t.Errorf("placeholder = %q", got)
	}
	if p[0].Style.Width != 240 || p[0].Style.Appearance["color"] != "#222" {
		t.Errorf("style = %+v", p[0].Style)
	}
	if p[1].Props.(ImageProps).Src != "/assets/logo.png" {
		t.Errorf("image props = %+v", p[1].Props)
	}
}

func TestParsePaletteRejectsUnknownKind(t *testing.T) {
	_, err := ParsePalette([]byte("templates:\n  - kind: slider\n"))
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestLoadPaletteFile(t *testing.T) {
	p, err := LoadPalette("")
	if err != nil || len(p) != len(DefaultPalette()) {
		t.Fatalf("empty path: %v, %d templates", err, len(p))
	}

	path := filepath.Join(t.TempDir(), "palette.yaml")
	if err := os.WriteFile(path, []byte("templates:\n  - kind: button\n    label: Go\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err = LoadPalette(path)
	if err != nil {
		t.Fatal(err)
	}
	if p[0].Label != "Go" || p[0].Style.Opacity != 1 {
		t.Errorf("template = %+v", p[0])
	}
}
