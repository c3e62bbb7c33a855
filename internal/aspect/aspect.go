// Package aspect computes the crop and placement rectangles of a full-screen
// video window under the TV aspect-ratio policies.
package aspect

import (
	"errors"

	"videooutputd/internal/geometry"
)

// Fixed overscan margin trimmed from broadcast sources.
const (
	OverscanHPixels = 42
	OverscanVPixels = 24
)

const (
	ratio16x9 = 16.0 / 9
	ratio4x3  = 4.0 / 3
)

// ErrGeometryPending is returned when the source frame size is not known yet.
// Callers treat it as success and wait for the next source-data update.
var ErrGeometryPending = errors.New("aspect: source geometry pending")

// ComputeWindow returns the input crop and output placement for source shown
// on screen under p. Output dimensions derive from screen, crop adjustments
// from source.
func ComputeWindow(screen, source geometry.Rect, p Params) (input, output geometry.Rect, err error) {
	if !source.IsValid() {
		return geometry.Rect{}, geometry.Rect{}, ErrGeometryPending
	}

	output = screen
	input = ApplyOverScan(source, source, bool(p.JustScan))

	switch p.Mode {
	case Mode16x9:
		output.W = geometry.RoundUint16(float64(screen.H) * ratio16x9)
	case Mode4x3:
		output.W = geometry.RoundUint16(float64(screen.H) / ratio4x3)
		output.X = centered(screen.W, output.W)
	case ModeOriginal:
		output.W = screen.W
		output.H = geometry.RoundUint16(float64(source.H) * float64(screen.W) / float64(source.W))
		output.X = centered(screen.W, output.W)
	case ModeVerticalZoom:
		output.H = screen.H
		output.W = geometry.RoundUint16(float64(screen.H) * ratio16x9)

		step := 2.0 * float64(source.H) / 100
		h := float64(input.H) + step*float64(p.VertZoomVRatio)
		input.H = geometry.RoundUint16(h)
		input.Y = geometry.RoundInt16((float64(source.H)-float64(input.H))/2 + step/2*float64(p.VertZoomVPosition))
	case ModeAllDirectionZoom:
		output.H = screen.H
		output.W = geometry.RoundUint16(float64(screen.H) * ratio16x9)

		vStep := 2.0 * float64(source.H) / 100
		hStep := 2.0 * float64(source.W) / 100

		input.H = shrink(input.H, vStep*float64(p.AllDirZoomVRatio))
		input.Y = geometry.RoundInt16((float64(source.H)-float64(input.H))/2 + vStep/2*float64(p.AllDirZoomVPosition))

		input.W = shrink(input.W, hStep*float64(p.AllDirZoomHRatio))
		input.X = geometry.RoundInt16((float64(source.W)-float64(input.W))/2 + hStep/2*float64(p.AllDirZoomHPosition))
	}

	return input, output, nil
}

// ApplyOverScan trims the overscan margin from input, keeping it centered in
// source. Nothing changes in just-scan mode or when the source is smaller
// than the margin.
func ApplyOverScan(input, source geometry.Rect, justScan bool) geometry.Rect {
	if justScan || source.W <= OverscanHPixels || source.H <= OverscanVPixels {
		return input
	}

	input.W = source.W - OverscanHPixels
	input.H = source.H - OverscanVPixels
	input.X = source.X + OverscanHPixels/2
	input.Y = source.Y + OverscanVPixels/2
	return input
}

func centered(outer, inner uint16) int16 {
	return int16((int32(outer) - int32(inner)) / 2)
}

// shrink reduces v by amount; the crop never grows past its starting size.
func shrink(v uint16, amount float64) uint16 {
	if amount < 0 {
		amount = 0
	}
	return geometry.RoundUint16(float64(v) - amount)
}
