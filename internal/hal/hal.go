// Package hal defines the contract of the video pipeline driver and a
// simulated driver for hosts without video hardware.
package hal

import (
	"errors"
	"fmt"

	"videooutputd/internal/geometry"
)

// ErrDriver is the opaque failure reported by the driver layer.
var ErrDriver = errors.New("hal: driver error")

// PlaneID identifies a hardware video window.
type PlaneID uint32

// Plane describes a hardware video plane and its scaling bounds.
type Plane struct {
	Name         string        `yaml:"name" json:"sinkId"`
	MinDownscale geometry.Size `yaml:"minDownscale" json:"maxDownscaleSize"`
	MaxUpscale   geometry.Size `yaml:"maxUpscale" json:"maxUpscaleSize"`
}

// SourceType is the kind of video producer routed into a plane.
type SourceType int

const (
	SourceUnknown SourceType = iota
	SourceVDEC
	SourceHDMI
	SourceJPEG
)

var sourceNames = map[SourceType]string{
	SourceVDEC: "VDEC",
	SourceHDMI: "HDMI",
	SourceJPEG: "JPEG",
}

// ParseSource maps a source name such as "VDEC" to its SourceType.
func ParseSource(name string) (SourceType, error) {
	for t, n := range sourceNames {
		if n == name {
			return t, nil
		}
	}
	return SourceUnknown, fmt.Errorf("unsupported video source %q", name)
}

func (t SourceType) String() string {
	if n, ok := sourceNames[t]; ok {
		return n
	}
	return "unknown"
}

// Source is the input routed to a plane on connect.
type Source struct {
	Type SourceType
	Port uint8
}

// Layer is one entry of a composition commit.
type Layer struct {
	Plane   PlaneID
	Opacity uint8
	Input   geometry.Rect
	Output  geometry.Rect
}

// HAL is the driver surface used by the video output service.
// Every method is synchronous; a non-nil error means the hardware state is
// unknown and is reported to the caller as a driver error.
type HAL interface {
	// Planes lists the hardware planes in window id order.
	Planes() []Plane
	// Connect routes src into the plane and returns the driver plane handle.
	Connect(id PlaneID, src Source) (uint32, error)
	Disconnect(id PlaneID) error
	Capabilities(id PlaneID) (minDownscale, maxUpscale geometry.Size, err error)
	ApplyScaling(id PlaneID, source geometry.Rect, adaptive bool, input, output geometry.Rect) error
	SetBlanking(id PlaneID, blank bool, input, output geometry.Rect) error
	// CommitComposition applies layers ordered top layer first.
	CommitComposition(layers []Layer) error
	SetDualVideo(enable bool) error
}

// DefaultPlanes is the plane set of a dual-window UHD panel.
func DefaultPlanes() []Plane {
	return []Plane{
		{Name: "MAIN", MinDownscale: geometry.Size{W: 128, H: 72}, MaxUpscale: geometry.Size{W: 3840, H: 2160}},
		{Name: "SUB0", MinDownscale: geometry.Size{W: 128, H: 72}, MaxUpscale: geometry.Size{W: 3840, H: 2160}},
	}
}
