package videooutput

import (
	"testing"

	"videooutputd/internal/geometry"
	"videooutputd/internal/hal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSinkRegistry_initial_state(t *testing.T) {
	r := NewSinkRegistry(hal.DefaultPlanes())
	require.Equal(t, 2, r.Len())

	main := r.Find("MAIN")
	require.NotNil(t, main)
	assert.Equal(t, hal.PlaneID(0), main.PlaneID)
	assert.False(t, main.Connected)
	assert.True(t, main.Muted)
	assert.Equal(t, uint8(255), main.Opacity)
	assert.Equal(t, uint8(0), main.ZOrder)
	assert.Equal(t, Unknown, main.ConnectedClientID)

	sub := r.Find("SUB0")
	require.NotNil(t, sub)
	assert.Equal(t, hal.PlaneID(1), sub.PlaneID)
	assert.Equal(t, uint8(1), sub.ZOrder)
	assert.Same(t, sub, r.At(1))

	assert.Nil(t, r.Find("SUB1"))
}

func TestSinkRegistry_MarkDisconnected_resets_everything(t *testing.T) {
	r := NewSinkRegistry(hal.DefaultPlanes())
	s := r.Find("SUB0")
	r.MarkConnected(s, "client", geometry.Size{W: 128, H: 72}, geometry.Size{W: 3840, H: 2160})
	r.SetGeometry(s, geometry.NewRect(1920, 1080), geometry.Rect{X: 10, Y: 10, W: 640, H: 360})
	s.Muted = true
	s.Opacity = 200
	s.ZOrder = 1

	r.MarkDisconnected(s)

	assert.False(t, s.Connected)
	assert.False(t, s.Muted)
	assert.Equal(t, uint8(0), s.Opacity)
	assert.Equal(t, uint8(0), s.ZOrder)
	assert.False(t, s.AppliedInputRect.IsValid())
	assert.False(t, s.ScaledOutputRect.IsValid())
	assert.Equal(t, geometry.Rect{}, s.AppliedInputRect)
	assert.Equal(t, geometry.Rect{}, s.ScaledOutputRect)
	assert.True(t, s.MaxUpscaleSize.IsZero())
	assert.True(t, s.MinDownscaleSize.IsZero())
	assert.Equal(t, "client", s.ConnectedClientID, "cleared by the caller after the final status update")
}

func TestSinkRegistry_SetGeometry_is_idempotent(t *testing.T) {
	r := NewSinkRegistry(hal.DefaultPlanes())
	s := r.Find("MAIN")
	in, out := geometry.NewRect(1280, 720), geometry.NewRect(3840, 2160)

	r.SetGeometry(s, in, out)
	before := *s
	r.SetGeometry(s, in, out)

	assert.Equal(t, before, *s)
	assert.True(t, s.HasGeometry(in, out))
	assert.False(t, s.HasGeometry(in, geometry.NewRect(1920, 1080)))
}

func TestClientRegistry_Register_Unregister(t *testing.T) {
	r := NewClientRegistry()

	c, err := r.Register("a")
	require.NoError(t, err)
	assert.Equal(t, Unknown, c.SinkName)
	assert.Equal(t, Unknown, c.ContentType)

	_, err = r.Register("a")
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
	assert.ErrorIs(t, err, ErrInvalidParameters)

	assert.Same(t, c, r.FindByID("a"))
	require.NoError(t, r.Unregister("a"))
	assert.Nil(t, r.FindByID("a"))
	assert.ErrorIs(t, r.Unregister("a"), ErrNotRegistered)
	assert.Equal(t, 0, r.Len())
}

func TestClientRegistry_Bind_supersedes_previous(t *testing.T) {
	r := NewClientRegistry()
	a, _ := r.Register("a")
	b, _ := r.Register("b")

	assert.Nil(t, r.Bind(a, "MAIN"))
	assert.Same(t, a, r.FindBoundTo("MAIN"))

	prev := r.Bind(b, "MAIN")
	assert.Same(t, a, prev)
	assert.False(t, a.Activation)
	assert.True(t, b.Activation)
	assert.Equal(t, "MAIN", b.SinkName)
	assert.Same(t, b, r.FindBoundTo("MAIN"))

	assert.Nil(t, r.Bind(b, "MAIN"), "rebinding the same client supersedes nobody")
	assert.Nil(t, r.FindBoundTo("SUB0"))
}

func TestIdentityFor(t *testing.T) {
	assert.Equal(t, Identity{Mode: ExplicitIdentity, ClientID: "ctx"}, IdentityFor("ctx", "MAIN"))
	assert.Equal(t, Identity{Mode: ImplicitIdentity, ClientID: "MAIN"}, IdentityFor("", "MAIN"))
	assert.Equal(t, Explicit("x"), IdentityFor("x", ""))
	assert.Equal(t, Implicit("SUB0"), IdentityFor("", "SUB0"))
}

func TestParseScanType(t *testing.T) {
	for in, want := range map[string]ScanType{
		"":                  ScanProgressive,
		"progressive":       ScanProgressive,
		"VIDEO_PROGRESSIVE": ScanProgressive,
		"interlaced":        ScanInterlaced,
		"VIDEO_INTERLACED":  ScanInterlaced,
	} {
		got, err := ParseScanType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseScanType("psf")
	assert.ErrorIs(t, err, ErrSchemaValidation)
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrSchemaValidation, CodeSchemaValidation},
		{ErrInvalidSink, CodeInvalidParameters},
		{ErrInvalidClient, CodeInvalidParameters},
		{ErrAlreadyRegistered, CodeInvalidParameters},
		{ErrNotRegistered, CodeInvalidParameters},
		{ErrDuplicateZOrder, CodeInvalidParameters},
		{ErrNotImplemented, CodeNotImplemented},
		{halError("connect", hal.ErrDriver), CodeHALError},
		{ErrVideoNotConnected, CodeVideoNotConnected},
		{&ScaleLimitError{}, CodeDownscaleLimit},
		{&ScaleLimitError{Upscale: true}, CodeUpscaleLimit},
		{assert.AnError, CodeUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorCode(tt.err), tt.err.Error())
	}
}

func TestScaleLimitError_message(t *testing.T) {
	err := &ScaleLimitError{Bound: geometry.Size{W: 128, H: 72}, Requested: geometry.Size{W: 100, H: 50}}
	assert.Equal(t, "unable to downscale below 128,72, requested 100,50", err.Error())

	err.Upscale = true
	assert.Contains(t, err.Error(), "unable to upscale above")
}
