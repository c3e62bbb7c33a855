package hal

import (
	"fmt"
	"log/slog"
	"sync"

	"videooutputd/internal/geometry"
)

// Op names a driver operation recorded by Sim.
type Op string

const (
	OpConnect     Op = "connect"
	OpDisconnect  Op = "disconnect"
	OpCaps        Op = "capabilities"
	OpScaling     Op = "applyScaling"
	OpBlanking    Op = "setBlanking"
	OpComposition Op = "commitComposition"
	OpDualVideo   Op = "setDualVideo"
)

// Call is one recorded driver invocation.
type Call struct {
	Op       Op
	Plane    PlaneID
	Source   Source
	Adaptive bool
	Blank    bool
	Enable   bool
	Frame    geometry.Rect
	Input    geometry.Rect
	Output   geometry.Rect
	Layers   []Layer
}

// Sim is an in-memory driver. It keeps plane routing state, records every
// call, and fails operations on demand.
type Sim struct {
	mu         sync.Mutex
	log        *slog.Logger
	planes     []Plane
	connected  map[PlaneID]Source
	dualVideo  bool
	nextHandle uint32
	calls      []Call
	failures   map[Op]error
}

// NewSim returns a simulated driver exposing planes.
func NewSim(planes []Plane, log *slog.Logger) *Sim {
	if log == nil {
		log = slog.Default()
	}
	return &Sim{
		log:       log.With(slog.String("component", "hal.sim")),
		planes:    append([]Plane(nil), planes...),
		connected: make(map[PlaneID]Source),
		failures:  make(map[Op]error),
	}
}

// Fail makes every subsequent op call return err until Clear is called.
// A nil err uses ErrDriver.
func (s *Sim) Fail(op Op, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		err = ErrDriver
	}
	s.failures[op] = err
}

// Clear removes every injected failure.
func (s *Sim) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = make(map[Op]error)
}

// Calls returns a copy of the recorded calls.
func (s *Sim) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// ResetCalls forgets the recorded calls.
func (s *Sim) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// DualVideo reports whether dual video mode is enabled.
func (s *Sim) DualVideo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dualVideo
}

// Routed reports whether a source is currently routed into the plane.
func (s *Sim) Routed(id PlaneID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.connected[id]
	return ok
}

func (s *Sim) Planes() []Plane {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Plane(nil), s.planes...)
}

func (s *Sim) Connect(id PlaneID, src Source) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.recordLocked(Call{Op: OpConnect, Plane: id, Source: src}); err != nil {
		return 0, err
	}
	if int(id) >= len(s.planes) {
		return 0, fmt.Errorf("%w: no plane %d", ErrDriver, id)
	}

	s.connected[id] = src
	s.nextHandle++
	s.log.Debug("plane connected", slog.Int("plane", int(id)), slog.String("source", src.Type.String()), slog.Int("port", int(src.Port)))
	return s.nextHandle, nil
}

func (s *Sim) Disconnect(id PlaneID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.recordLocked(Call{Op: OpDisconnect, Plane: id}); err != nil {
		return err
	}
	delete(s.connected, id)
	s.log.Debug("plane disconnected", slog.Int("plane", int(id)))
	return nil
}

func (s *Sim) Capabilities(id PlaneID) (geometry.Size, geometry.Size, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.recordLocked(Call{Op: OpCaps, Plane: id}); err != nil {
		return geometry.Size{}, geometry.Size{}, err
	}
	if int(id) >= len(s.planes) {
		return geometry.Size{}, geometry.Size{}, fmt.Errorf("%w: no plane %d", ErrDriver, id)
	}
	p := s.planes[id]
	return p.MinDownscale, p.MaxUpscale, nil
}

func (s *Sim) ApplyScaling(id PlaneID, source geometry.Rect, adaptive bool, input, output geometry.Rect) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.recordLocked(Call{Op: OpScaling, Plane: id, Frame: source, Adaptive: adaptive, Input: input, Output: output}); err != nil {
		return err
	}
	if _, ok := s.connected[id]; !ok {
		return fmt.Errorf("%w: plane %d not routed", ErrDriver, id)
	}
	s.log.Debug("scaling applied", slog.Int("plane", int(id)), slog.String("input", input.String()), slog.String("output", output.String()))
	return nil
}

func (s *Sim) SetBlanking(id PlaneID, blank bool, input, output geometry.Rect) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.recordLocked(Call{Op: OpBlanking, Plane: id, Blank: blank, Input: input, Output: output})
}

func (s *Sim) CommitComposition(layers []Layer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.recordLocked(Call{Op: OpComposition, Layers: append([]Layer(nil), layers...)})
}

func (s *Sim) SetDualVideo(enable bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.recordLocked(Call{Op: OpDualVideo, Enable: enable}); err != nil {
		return err
	}
	s.dualVideo = enable
	return nil
}

// recordLocked appends c and returns the injected failure for its op.
// Caller must hold s.mu.
func (s *Sim) recordLocked(c Call) error {
	s.calls = append(s.calls, c)
	if err, ok := s.failures[c.Op]; ok {
		s.log.Debug("injected driver failure", slog.String("op", string(c.Op)), slog.String("error", err.Error()))
		return err
	}
	return nil
}
