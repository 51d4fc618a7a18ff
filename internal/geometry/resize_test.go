package geometry

import (
	"math"
	"testing"
)

func TestResizeEdgeHandles(t *testing.T) {
	f := Frame{Left: 100, Top: 100, Width: 50, Height: 40}

	tests := []struct {
		h       Handle
		pointer Point
		want    Frame
	}{
		{HandleRight, Point{160, 120}, Frame{Left: 100, Top: 100, Width: 60, Height: 40}},
		{HandleLeft, Point{90, 120}, Frame{Left: 90, Top: 100, Width: 60, Height: 40}},
		{HandleTop, Point{125, 80}, Frame{Left: 100, Top: 80, Width: 50, Height: 60}},
		{HandleBottom, Point{125, 150}, Frame{Left: 100, Top: 100, Width: 50, Height: 50}},
		{HandleRightBottom, Point{160, 150}, Frame{Left: 100, Top: 100, Width: 60, Height: 50}},
		{HandleLeftTop, Point{90, 95}, Frame{Left: 90, Top: 95, Width: 60, Height: 45}},
	}

	for _, tt := range tests {
		start := f.Center()
		switch tt.h {
		case HandleRight:
			start = Point{150, 120}
		case HandleLeft:
			start = Point{100, 120}
		case HandleTop:
			start = Point{125, 100}
		case HandleBottom:
			start = Point{125, 140}
		case HandleRightBottom:
			start = Point{150, 140}
		case HandleLeftTop:
			start = Point{100, 100}
		}
		got := ResizeFromHandle(tt.h, f, tt.pointer, f.Width/f.Height, false, NewPivot(f, start))
		if got != tt.want {
			t.Errorf("%s: got %+v, want %+v", tt.h, got, tt.want)
		}
	}
}

func TestResizeClampsToZero(t *testing.T) {
	f := Frame{Left: 0, Top: 0, Width: 20, Height: 20}
	pv := NewPivot(f, Point{20, 20})

	got := ResizeFromHandle(HandleRightBottom, f, Point{-50, -70}, 1, false, pv)
	if got.Width != 0 || got.Height != 0 {
		t.Fatalf("size = %vx%v, want 0x0", got.Width, got.Height)
	}
	if got.Left != 0 || got.Top != 0 {
		t.Errorf("origin moved to (%v,%v)", got.Left, got.Top)
	}

	got = ResizeFromHandle(HandleLeft, f, Point{80, 10}, 1, false, NewPivot(f, Point{0, 10}))
	if got.Width != 0 {
		t.Errorf("width = %v, want 0", got.Width)
	}
	if got.Left != 20 {
		t.Errorf("left = %v, want collapsed onto right edge 20", got.Left)
	}
}

func TestResizeLockAspectCorner(t *testing.T) {
	for _, rotate := range []float64{0, 30, 135} {
		f := Frame{Left: 200, Top: 150, Width: 120, Height: 60, Rotate: rotate}
		aspect := f.Width / f.Height
		m := FrameMatrix(f)
		corner := m.TransformPoint(HandleRightBottom.Position(f.Width, f.Height))
		pv := NewPivot(f, corner)

		for i := 1; i <= 60; i++ {
			// Steps are taken along the element's own axes so the height
			// never collapses, whatever the rotation.
			pointer := m.TransformPoint(Point{f.Width + float64(i)*3.1, f.Height + float64(i)*1.7 - 20})
			got := ResizeFromHandle(HandleRightBottom, f, pointer, aspect, true, pv)
			if got.Height == 0 {
				t.Fatalf("rotate %v step %d: collapsed", rotate, i)
			}
			if ratio := got.Width / got.Height; math.Abs(ratio-aspect) > 1e-9 {
				t.Fatalf("rotate %v step %d: ratio = %v, want %v", rotate, i, ratio, aspect)
			}
		}
	}
}

func TestResizeRotatedKeepsOppositeCorner(t *testing.T) {
	f := Frame{Left: 50, Top: 50, Width: 100, Height: 40, Rotate: 40}
	m := FrameMatrix(f)
	anchor := m.TransformPoint(Point{0, 0})
	press := m.TransformPoint(Point{f.Width, f.Height})

	got := ResizeFromHandle(HandleRightBottom, f, Point{press.X + 25, press.Y + 10}, 0, false, NewPivot(f, press))
	moved := FrameMatrix(got).TransformPoint(Point{0, 0})

	if math.Abs(moved.X-anchor.X) > 1e-9 || math.Abs(moved.Y-anchor.Y) > 1e-9 {
		t.Errorf("anchor drifted from %v to %v", anchor, moved)
	}
	if got.Rotate != f.Rotate {
		t.Errorf("rotate = %v, want %v", got.Rotate, f.Rotate)
	}
}

func TestPivotSymmetric(t *testing.T) {
	pv := NewPivot(Frame{Left: 0, Top: 0, Width: 10, Height: 20}, Point{10, 20})
	if got := pv.Symmetric(); got != (Point{0, 0}) {
		t.Errorf("Symmetric() = %v, want (0,0)", got)
	}
}

func TestParseHandle(t *testing.T) {
	if h, err := ParseHandle("rb"); err != nil || h != HandleRightBottom {
		t.Errorf("ParseHandle(rb) = %q, %v", h, err)
	}
	if _, err := ParseHandle("x"); err == nil {
		t.Error("expected error for unknown handle")
	}
}

func TestHandlePositionMidpoints(t *testing.T) {
	cases := []struct {
		h    Handle
		want Point
	}{
		{HandleLeftTop, Point{X: 0, Y: 0}},
		{HandleTop, Point{X: 50.5, Y: 0}},
		{HandleRightTop, Point{X: 101, Y: 0}},
		{HandleRight, Point{X: 101, Y: 20.5}},
		{HandleRightBottom, Point{X: 101, Y: 41}},
		{HandleBottom, Point{X: 50.5, Y: 41}},
		{HandleLeftBottom, Point{X: 0, Y: 41}},
		{HandleLeft, Point{X: 0, Y: 20.5}},
	}
	for _, tc := range cases {
		if got := tc.h.Position(101, 41); got != tc.want {
			t.Errorf("%s = %+v, want %+v", tc.h, got, tc.want)
		}
	}
}
