package hal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videooutputd/internal/geometry"
)

func TestParseSource(t *testing.T) {
	for _, name := range []string{"VDEC", "HDMI", "JPEG"} {
		st, err := ParseSource(name)
		require.NoError(t, err)
		assert.Equal(t, name, st.String())
	}

	st, err := ParseSource("RGB")
	assert.Error(t, err)
	assert.Equal(t, SourceUnknown, st)
}

func TestSim_connect_and_capabilities(t *testing.T) {
	sim := NewSim(DefaultPlanes(), nil)

	h1, err := sim.Connect(0, Source{Type: SourceHDMI, Port: 3})
	require.NoError(t, err)
	h2, err := sim.Connect(1, Source{Type: SourceVDEC})
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
	assert.True(t, sim.Routed(0))

	minSize, maxSize, err := sim.Capabilities(0)
	require.NoError(t, err)
	assert.Equal(t, geometry.Size{W: 128, H: 72}, minSize)
	assert.Equal(t, geometry.Size{W: 3840, H: 2160}, maxSize)

	_, err = sim.Connect(7, Source{Type: SourceVDEC})
	assert.ErrorIs(t, err, ErrDriver)

	require.NoError(t, sim.Disconnect(0))
	assert.False(t, sim.Routed(0))
}

func TestSim_scaling_requires_route(t *testing.T) {
	sim := NewSim(DefaultPlanes(), nil)
	r := geometry.NewRect(1920, 1080)

	assert.ErrorIs(t, sim.ApplyScaling(0, r, false, r, r), ErrDriver)

	_, err := sim.Connect(0, Source{Type: SourceVDEC})
	require.NoError(t, err)
	assert.NoError(t, sim.ApplyScaling(0, r, true, r, r))

	calls := sim.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, OpScaling, calls[2].Op)
	assert.True(t, calls[2].Adaptive)
}

func TestSim_fault_injection(t *testing.T) {
	sim := NewSim(DefaultPlanes(), nil)
	boom := errors.New("boom")

	sim.Fail(OpDualVideo, boom)
	assert.ErrorIs(t, sim.SetDualVideo(true), boom)
	assert.False(t, sim.DualVideo())

	sim.Fail(OpComposition, nil)
	assert.ErrorIs(t, sim.CommitComposition(nil), ErrDriver)

	sim.Clear()
	assert.NoError(t, sim.SetDualVideo(true))
	assert.True(t, sim.DualVideo())

	sim.ResetCalls()
	assert.Empty(t, sim.Calls())
}
