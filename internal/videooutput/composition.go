package videooutput

import (
	"fmt"
	"sort"

	"videooutputd/internal/hal"
)

// ValidateComposition checks a proposed opacity/z-order assignment against
// every sink. It does not mutate the registry.
func ValidateComposition(proposed []Composition, sinks *SinkRegistry) error {
	for _, c := range proposed {
		if sinks.Find(c.Sink) == nil {
			return fmt.Errorf("%w: %q", ErrInvalidSink, c.Sink)
		}
	}

	n := sinks.Len()
	for _, c := range proposed {
		if c.Opacity < 0 || c.Opacity > 255 {
			return fmt.Errorf("%w: opacity %d of %s", ErrOutOfRange, c.Opacity, c.Sink)
		}
		if c.ZOrder < 0 || c.ZOrder > n-1 {
			return fmt.Errorf("%w: zOrder %d of %s", ErrOutOfRange, c.ZOrder, c.Sink)
		}
	}

	touched := make(map[string]bool, len(proposed))
	taken := make(map[int]string, n)
	for _, c := range proposed {
		if touched[c.Sink] {
			return fmt.Errorf("%w: %s listed twice", ErrInvalidParameters, c.Sink)
		}
		if other, dup := taken[c.ZOrder]; dup {
			return fmt.Errorf("%w: %s and %s at %d", ErrDuplicateZOrder, other, c.Sink, c.ZOrder)
		}
		taken[c.ZOrder] = c.Sink
		touched[c.Sink] = true
	}

	for _, s := range sinks.All() {
		if touched[s.Name] {
			continue
		}
		z := int(s.ZOrder)
		if other, dup := taken[z]; dup {
			return fmt.Errorf("%w: %s and %s at %d", ErrDuplicateZOrder, other, s.Name, z)
		}
		taken[z] = s.Name
	}
	return nil
}

// layers orders every sink by z-order, top layer first.
func layers(sinks *SinkRegistry) []hal.Layer {
	all := sinks.All()
	sort.SliceStable(all, func(i, j int) bool { return all[i].ZOrder < all[j].ZOrder })
	out := make([]hal.Layer, len(all))
	for i, s := range all {
		out[i] = hal.Layer{
			Plane:   s.PlaneID,
			Opacity: s.Opacity,
			Input:   s.AppliedInputRect,
			Output:  s.ScaledOutputRect,
		}
	}
	return out
}
