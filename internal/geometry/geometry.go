// Package geometry holds the pure math behind canvas manipulation: rotated
// bounding boxes, handle-driven resizing and pointer angles. Nothing in
// here keeps state.
package geometry

import "math"

// Point is a canvas-relative position in pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Frame is the geometric part of an element style. Left/Top address the
// unrotated rectangle; Rotate is in degrees around the rectangle center.
type Frame struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Rotate float64 `json:"rotate"`
}

// Center returns the center of the unrotated rectangle.
func (f Frame) Center() Point {
	return Point{X: f.Left + f.Width/2, Y: f.Top + f.Height/2}
}

// Contains reports whether p lies inside the rotated rectangle.
func (f Frame) Contains(p Point) bool {
	local := RotateAbout(f.Center(), -f.Rotate).TransformPoint(p)
	return Rect{X: f.Left, Y: f.Top, Width: f.Width, Height: f.Height}.Contains(local.X, local.Y)
}

// Bounds is an axis-aligned box with explicit edges.
type Bounds struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect returns the bounds as an origin/size rectangle.
func (b Bounds) Rect() Rect {
	return Rect{X: b.Left, Y: b.Top, Width: b.Width, Height: b.Height}
}

// RotatedBounds returns the axis-aligned bounding box of the frame after
// rotation. The box stays centered on the unrotated rectangle's center.
func RotatedBounds(f Frame) Bounds {
	if f.Rotate == 0 {
		return Bounds{
			Left:   f.Left,
			Top:    f.Top,
			Right:  f.Left + f.Width,
			Bottom: f.Top + f.Height,
			Width:  f.Width,
			Height: f.Height,
		}
	}

	rad := Radians(f.Rotate)
	cos := math.Abs(math.Cos(rad))
	sin := math.Abs(math.Sin(rad))

	newWidth := f.Width*cos + f.Height*sin
	newHeight := f.Height*cos + f.Width*sin

	left := f.Left + (f.Width-newWidth)/2
	top := f.Top - (newHeight-f.Height)/2

	return Bounds{
		Left:   left,
		Top:    top,
		Right:  left + newWidth,
		Bottom: top + newHeight,
		Width:  newWidth,
		Height: newHeight,
	}
}

// RotationAngle returns the angle in degrees of the vector from center to
// pointer, in the range (-180, 180].
func RotationAngle(center, pointer Point) float64 {
	return Degrees(math.Atan2(pointer.Y-center.Y, pointer.X-center.X))
}

// Radians converts degrees to radians.
func Radians(degrees float64) float64 {
	return degrees * math.Pi / 180.0
}

// Degrees converts radians to degrees.
func Degrees(radians float64) float64 {
	return radians * 180.0 / math.Pi
}

// Rect represents an axis-aligned bounding box.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains checks if a point is inside the rect.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

// IsEmpty checks if the rect has zero or negative area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Union returns the smallest rect containing both rects.
func (r Rect) Union(other Rect) Rect {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}

	minX := min(r.X, other.X)
	minY := min(r.Y, other.Y)
	maxX := max(r.X+r.Width, other.X+other.Width)
	maxY := max(r.Y+r.Height, other.Y+other.Height)

	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
