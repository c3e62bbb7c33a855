package videooutput

import (
	"videooutputd/internal/geometry"
	"videooutputd/internal/hal"
)

// SinkRegistry owns the fixed set of sinks. It is not safe for concurrent
// use; callers serialise access through the event loop.
type SinkRegistry struct {
	sinks  []Sink
	byName map[string]int
}

// NewSinkRegistry creates one sink per plane. A sink's plane id and initial
// z-order are its position in planes.
func NewSinkRegistry(planes []hal.Plane) *SinkRegistry {
	r := &SinkRegistry{
		sinks:  make([]Sink, len(planes)),
		byName: make(map[string]int, len(planes)),
	}
	for i, p := range planes {
		r.sinks[i] = Sink{
			Name:              p.Name,
			PlaneID:           hal.PlaneID(i),
			Muted:             true,
			ConnectedClientID: Unknown,
			Opacity:           255,
			ZOrder:            uint8(i),
		}
		r.byName[p.Name] = i
	}
	return r
}

// Find returns the sink called name, or nil.
func (r *SinkRegistry) Find(name string) *Sink {
	i, ok := r.byName[name]
	if !ok {
		return nil
	}
	return &r.sinks[i]
}

// At returns the sink at position i.
func (r *SinkRegistry) At(i int) *Sink {
	return &r.sinks[i]
}

// Len is the number of sinks.
func (r *SinkRegistry) Len() int {
	return len(r.sinks)
}

// All returns pointers to every sink in plane order.
func (r *SinkRegistry) All() []*Sink {
	out := make([]*Sink, len(r.sinks))
	for i := range r.sinks {
		out[i] = &r.sinks[i]
	}
	return out
}

// MarkConnected records a successful hardware connect and its scaling bounds.
func (r *SinkRegistry) MarkConnected(s *Sink, clientID string, minDownscale, maxUpscale geometry.Size) {
	s.Connected = true
	s.ConnectedClientID = clientID
	s.MinDownscaleSize = minDownscale
	s.MaxUpscaleSize = maxUpscale
}

// MarkDisconnected resets every mutable field of s to its disconnected
// default. It never touches hardware. ConnectedClientID is kept so the
// final status update still names the client; the caller clears it.
func (r *SinkRegistry) MarkDisconnected(s *Sink) {
	s.Connected = false
	s.Muted = false
	s.Opacity = 0
	s.ZOrder = 0
	s.AppliedInputRect = geometry.Rect{}
	s.ScaledOutputRect = geometry.Rect{}
	s.MaxUpscaleSize = geometry.Size{}
	s.MinDownscaleSize = geometry.Size{}
}

// SetGeometry records the committed rectangle pair. Setting the current
// pair again is a no-op.
func (r *SinkRegistry) SetGeometry(s *Sink, input, output geometry.Rect) {
	if s.HasGeometry(input, output) {
		return
	}
	s.AppliedInputRect = input
	s.ScaledOutputRect = output
}

// snapshotComposition captures opacity and z-order of every sink.
func (r *SinkRegistry) snapshotComposition() [][2]uint8 {
	out := make([][2]uint8, len(r.sinks))
	for i, s := range r.sinks {
		out[i] = [2]uint8{s.Opacity, s.ZOrder}
	}
	return out
}

func (r *SinkRegistry) restoreComposition(saved [][2]uint8) {
	for i := range r.sinks {
		r.sinks[i].Opacity = saved[i][0]
		r.sinks[i].ZOrder = saved[i][1]
	}
}
