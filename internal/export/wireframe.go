// Package export renders documents as PNG wireframes.
package export

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/inamate/visualdrag/internal/document"
	"github.com/inamate/visualdrag/internal/geometry"
	"github.com/inamate/visualdrag/internal/snap"
)

const (
	fontSize  = 12.0
	maxScale  = 4.0
	guideDash = 4.0
)

type Options struct {
	// Scale multiplies the canvas size; zero means 1.
	Scale float64
	// Guides draws the alignment lines of this element against the others.
	Guides int
	Snap   snap.Options
}

func DefaultOptions() Options {
	return Options{Scale: 1, Guides: document.NoSelection, Snap: snap.DefaultOptions()}
}

var (
	outlineColor = color.RGBA{0x33, 0x33, 0x33, 0xff}
	hintColor    = color.RGBA{0x99, 0x99, 0x99, 0xff}
	guideColor   = color.RGBA{0x59, 0xc7, 0xf9, 0xff}
)

// Render draws doc: each element's rotated outline with its label, and
// optionally the alignment guides of one element.
func Render(doc *document.Document, opts Options) (image.Image, error) {
	dc, err := draw(doc, opts)
	if err != nil {
		return nil, err
	}
	return dc.Image(), nil
}

// WritePNG renders doc and encodes it to w.
func WritePNG(w io.Writer, doc *document.Document, opts Options) error {
	dc, err := draw(doc, opts)
	if err != nil {
		return err
	}
	return dc.EncodePNG(w)
}

func draw(doc *document.Document, opts Options) (*gg.Context, error) {
	scale := opts.Scale
	if scale <= 0 {
		scale = 1
	}
	scale = min(scale, maxScale)

	w := int(doc.Canvas.Width * scale)
	h := int(doc.Canvas.Height * scale)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid canvas size %vx%v", doc.Canvas.Width, doc.Canvas.Height)
	}

	face, err := loadFace(fontSize)
	if err != nil {
		return nil, err
	}

	dc := gg.NewContext(w, h)
	dc.SetColor(color.White)
	dc.Clear()
	dc.Scale(scale, scale)
	dc.SetFontFace(face)

	for _, el := range doc.Elements {
		drawElement(dc, el)
	}

	if opts.Guides != document.NoSelection {
		if i := doc.Elements.IndexOf(opts.Guides); i >= 0 {
			res := snap.Detect(doc.Elements[i], doc.Elements, opts.Snap)
			drawGuides(dc, res, doc.Canvas)
		}
	}

	return dc, nil
}

func loadFace(size float64) (font.Face, error) {
	ttf, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return truetype.NewFace(ttf, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	}), nil
}

func drawElement(dc *gg.Context, el document.Element) {
	s := el.Style
	c := s.Frame().Center()

	dc.Push()
	defer dc.Pop()
	dc.RotateAbout(geometry.Radians(s.Rotate), c.X, c.Y)

	if bg, ok := s.Appearance["backgroundColor"].(string); ok && strings.HasPrefix(bg, "#") {
		dc.SetHexColor(bg)
		dc.DrawRectangle(s.Left, s.Top, s.Width, s.Height)
		dc.Fill()
	}

	dc.SetLineWidth(1)
	dc.SetColor(outlineColor)
	dc.DrawRectangle(s.Left, s.Top, s.Width, s.Height)
	dc.Stroke()

	text := el.Label
	switch p := el.Props.(type) {
	case document.ImageProps:
		// Placeholder cross for images.
		dc.SetColor(hintColor)
		dc.DrawLine(s.Left, s.Top, s.Left+s.Width, s.Top+s.Height)
		dc.DrawLine(s.Left+s.Width, s.Top, s.Left, s.Top+s.Height)
		dc.Stroke()
		if p.Alt != "" {
			text = p.Alt
		}
	case document.TextInputProps:
		if text == "" {
			text = p.Placeholder
			dc.SetColor(hintColor)
		}
		dc.DrawStringAnchored(text, s.Left+6, c.Y, 0, 0.35)
		return
	}

	if fg, ok := s.Appearance["color"].(string); ok && strings.HasPrefix(fg, "#") {
		dc.SetHexColor(fg)
	} else {
		dc.SetColor(outlineColor)
	}
	dc.DrawStringAnchored(text, c.X, c.Y, 0.5, 0.35)
}

func drawGuides(dc *gg.Context, res snap.Result, canvas document.CanvasSize) {
	dc.SetColor(guideColor)
	dc.SetLineWidth(1)
	dc.SetDash(guideDash)
	for _, g := range snap.Guides {
		if !res.Status[g] {
			continue
		}
		pos := res.Lines[g]
		if g.Horizontal() {
			dc.DrawLine(0, pos, canvas.Width, pos)
		} else {
			dc.DrawLine(pos, 0, pos, canvas.Height)
		}
		dc.Stroke()
	}
	dc.SetDash()
}
