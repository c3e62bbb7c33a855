package videooutput

import (
	"fmt"

	"videooutputd/internal/geometry"
	"videooutputd/internal/hal"
)

// Unknown is the placeholder for an unset sink binding or client id.
const Unknown = "unknown"

// Sink is one hardware video plane and the state last committed to it.
type Sink struct {
	Name    string
	PlaneID hal.PlaneID

	Connected bool
	Muted     bool

	ConnectedClientID string

	// From driver capabilities on connect.
	MaxUpscaleSize   geometry.Size
	MinDownscaleSize geometry.Size

	AppliedInputRect geometry.Rect
	ScaledOutputRect geometry.Rect

	Opacity uint8
	ZOrder  uint8
}

// HasGeometry reports whether input and output are already committed.
func (s *Sink) HasGeometry(input, output geometry.Rect) bool {
	return s.AppliedInputRect == input && s.ScaledOutputRect == output
}

// Screen is the full display area of the sink.
func (s *Sink) Screen() geometry.Rect {
	return s.MaxUpscaleSize.Rect()
}

// ScanType is the scan mode reported by the producer.
type ScanType int

const (
	ScanProgressive ScanType = iota
	ScanInterlaced
)

// ParseScanType accepts the producer spellings of the scan type.
// An empty string means progressive.
func ParseScanType(s string) (ScanType, error) {
	switch s {
	case "", "progressive", "VIDEO_PROGRESSIVE":
		return ScanProgressive, nil
	case "interlaced", "VIDEO_INTERLACED":
		return ScanInterlaced, nil
	}
	return ScanProgressive, fmt.Errorf("%w: scanType %q", ErrSchemaValidation, s)
}

func (t ScanType) String() string {
	if t == ScanInterlaced {
		return "interlaced"
	}
	return "progressive"
}

// WindowState tracks how far a client got towards a placed window.
type WindowState int

const (
	// NoSource: no valid frame size reported yet.
	NoSource WindowState = iota
	// HasSource: frame size known, nothing committed to hardware.
	HasSource
	// Placed: a crop/placement pair has been committed.
	Placed
)

func (s WindowState) String() string {
	switch s {
	case HasSource:
		return "hasSource"
	case Placed:
		return "placed"
	}
	return "noSource"
}

// Client is a logical video producer. It outlives sink connections.
type Client struct {
	ID         string
	SinkName   string
	SourceName string
	SourceType hal.SourceType
	SourcePort uint8

	SourceRect geometry.Rect
	InputRect  geometry.Rect
	OutputRect geometry.Rect

	FullScreen bool
	Activation bool
	Available  bool
	State      WindowState

	// Implicit clients were created by connect and go away on disconnect.
	Implicit bool

	ScanType    ScanType
	FrameRate   float64
	ContentType string

	VideoInfo VideoInfo
}

func newClient(id string) *Client {
	return &Client{
		ID:          id,
		SinkName:    Unknown,
		SourceName:  Unknown,
		ContentType: Unknown,
	}
}

// detach returns the client to its unbound state after a disconnect.
func (c *Client) detach() {
	c.Activation = false
	c.Available = false
	c.State = NoSource
	c.SourceRect = geometry.Rect{}
	c.InputRect = geometry.Rect{}
}

// Composition is a requested opacity/z-order for one sink.
type Composition struct {
	Sink    string `json:"sink"`
	Opacity int    `json:"opacity"`
	ZOrder  int    `json:"zOrder"`
}

// IdentityMode selects how a request names its client.
type IdentityMode int

const (
	// ExplicitIdentity: the client registered itself and passes its id.
	ExplicitIdentity IdentityMode = iota
	// ImplicitIdentity: the client is created on connect and removed on
	// disconnect, keyed by the sink name.
	ImplicitIdentity
)

// Identity names the client a request acts for.
type Identity struct {
	Mode     IdentityMode
	ClientID string
}

// Explicit returns the identity of a registered client.
func Explicit(clientID string) Identity {
	return Identity{Mode: ExplicitIdentity, ClientID: clientID}
}

// Implicit returns the identity of the anonymous client bound to sinkName.
func Implicit(sinkName string) Identity {
	return Identity{Mode: ImplicitIdentity, ClientID: sinkName}
}

// IdentityFor picks explicit identity when context is set and implicit
// identity keyed by sinkName otherwise.
func IdentityFor(context, sinkName string) Identity {
	if context != "" {
		return Explicit(context)
	}
	return Implicit(sinkName)
}
