package videooutput

import (
	"fmt"
	"log/slog"

	"videooutputd/internal/geometry"
)

// checkWindow runs the placement guards after the connection check. The
// first violated guard wins.
func checkWindow(sink *Sink, c *Client, input, output geometry.Rect, negativePosition bool) error {
	if !negativePosition && !sink.Screen().Contains(output) {
		return fmt.Errorf("%w: displayOutput %s outside screen %s", ErrInvalidParameters, output, sink.MaxUpscaleSize)
	}
	if c.SourceRect.IsValid() && input.IsValid() && !c.SourceRect.Contains(input) {
		return fmt.Errorf("%w: sourceInput %s outside video size %s", ErrInvalidParameters, input, c.SourceRect.Size())
	}
	if output.W == 0 && output.H == 0 {
		return fmt.Errorf("%w: displayOutput is required when fullScreen is false", ErrInvalidParameters)
	}

	crop := input
	if !crop.IsValid() {
		crop = c.SourceRect
	}
	minSize, maxSize := sink.MinDownscaleSize, sink.MaxUpscaleSize
	if (output.W < crop.W && output.W < minSize.W) || (output.H < crop.H && output.H < minSize.H) {
		return &ScaleLimitError{Bound: minSize, Requested: output.Size()}
	}
	if (output.W > crop.W && output.W > maxSize.W) || (output.H > crop.H && output.H > maxSize.H) {
		return &ScaleLimitError{Upscale: true, Bound: maxSize, Requested: output.Size()}
	}
	return nil
}

// clipToScreen trims a placement hanging off the screen edges and trims
// the crop by the same proportion. A placement entirely off screen ends up
// with zero size on that axis.
func clipToScreen(screen geometry.Size, input, output geometry.Rect) (geometry.Rect, geometry.Rect) {
	if input.W == 0 || input.H == 0 || output.W == 0 || output.H == 0 {
		return input, output
	}
	wRatio := float64(output.W) / float64(input.W)
	hRatio := float64(output.H) / float64(input.H)

	input.X, input.W, output.X, output.W = clipAxis(screen.W, wRatio, input.X, input.W, output.X, output.W)
	input.Y, input.H, output.Y, output.H = clipAxis(screen.H, hRatio, input.Y, input.H, output.Y, output.H)
	return input, output
}

func clipAxis(limit uint16, ratio float64, inPos int16, inLen uint16, outPos int16, outLen uint16) (int16, uint16, int16, uint16) {
	end := int32(outPos) + int32(outLen)
	switch {
	case outPos < 0:
		hidden := -int32(outPos)
		if end <= 0 {
			return inPos, 0, 0, 0
		}
		inPos = geometry.RoundInt16(float64(inPos) + float64(hidden)/ratio)
		inLen = geometry.RoundUint16(float64(end) / ratio)
		return inPos, inLen, 0, uint16(end)
	case end > int32(limit):
		visible := int32(limit) - int32(outPos)
		if visible <= 0 {
			return inPos, 0, outPos, 0
		}
		return inPos, geometry.RoundUint16(float64(visible) / ratio), outPos, uint16(visible)
	}
	return inPos, inLen, outPos, outLen
}

// applyGeometry commits a crop/placement pair for c on sink. Without a
// known source size only the placement is remembered. An unchanged pair
// succeeds without touching hardware.
func (s *Service) applyGeometry(sink *Sink, c *Client, input, output geometry.Rect) error {
	if !c.SourceRect.IsValid() {
		sink.ScaledOutputRect = output
		sink.AppliedInputRect = geometry.Rect{}
		s.log.Debug("geometry pending until source size is known",
			slog.String("sink", sink.Name),
			slog.String("output", output.String()))
		return nil
	}
	if !input.IsValid() {
		input = c.SourceRect
	}
	if !output.IsValid() {
		s.sinks.SetGeometry(sink, input, output)
		return nil
	}

	if !sink.HasGeometry(input, output) {
		if err := s.hal.ApplyScaling(sink.PlaneID, c.SourceRect, c.VideoInfo.Adaptive(), input, output); err != nil {
			s.log.Error("apply scaling failed",
				slog.String("sink", sink.Name),
				slog.String("error", err.Error()))
			return halError("applyScaling", err)
		}
		s.sinks.SetGeometry(sink, input, output)
	}
	c.State = Placed
	return nil
}
