package geometry

import (
	"fmt"
	"math"
)

// Rect is an axis-aligned rectangle in screen or frame pixels.
// X and Y may be negative only while a display window is being clipped.
type Rect struct {
	X int16  `json:"x" yaml:"x"`
	Y int16  `json:"y" yaml:"y"`
	W uint16 `json:"width" yaml:"width"`
	H uint16 `json:"height" yaml:"height"`
}

// NewRect returns a rectangle of the given size anchored at the origin.
func NewRect(w, h uint16) Rect {
	return Rect{W: w, H: h}
}

// IsValid reports whether the rectangle has a non-empty area.
func (r Rect) IsValid() bool {
	return r.W > 0 && r.H > 0
}

// Scale multiplies all four fields by k and rounds to the nearest pixel.
func (r Rect) Scale(k float64) Rect {
	return Rect{
		X: RoundInt16(float64(r.X) * k),
		Y: RoundInt16(float64(r.Y) * k),
		W: RoundUint16(float64(r.W) * k),
		H: RoundUint16(float64(r.H) * k),
	}
}

// Contains reports whether other lies entirely within r on both axes.
func (r Rect) Contains(other Rect) bool {
	return int32(r.X) <= int32(other.X) &&
		int32(r.Y) <= int32(other.Y) &&
		int32(r.X)+int32(r.W) >= int32(other.X)+int32(other.W) &&
		int32(r.Y)+int32(r.H) >= int32(other.Y)+int32(other.H)
}

// Size returns the width and height of r.
func (r Rect) Size() Size {
	return Size{W: r.W, H: r.H}
}

func (r Rect) String() string {
	return fmt.Sprintf("[x:%d, y:%d, w:%d, h:%d]", r.X, r.Y, r.W, r.H)
}

// Size is a width/height pair, used for hardware scaling bounds.
type Size struct {
	W uint16 `json:"width" yaml:"width"`
	H uint16 `json:"height" yaml:"height"`
}

// Rect returns the size as a rectangle anchored at the origin.
func (s Size) Rect() Rect {
	return Rect{W: s.W, H: s.H}
}

// IsZero reports whether both dimensions are zero.
func (s Size) IsZero() bool {
	return s.W == 0 && s.H == 0
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.W, s.H)
}

// RoundUint16 rounds v and clamps it into the uint16 range.
// Negative values become zero so no computation yields a negative extent.
func RoundUint16(v float64) uint16 {
	v = math.Round(v)
	switch {
	case math.IsNaN(v), v <= 0:
		return 0
	case v >= math.MaxUint16:
		return math.MaxUint16
	}
	return uint16(v)
}

// RoundInt16 rounds v and clamps it into the int16 range.
func RoundInt16(v float64) int16 {
	v = math.Round(v)
	switch {
	case math.IsNaN(v):
		return 0
	case v <= math.MinInt16:
		return math.MinInt16
	case v >= math.MaxInt16:
		return math.MaxInt16
	}
	return int16(v)
}
