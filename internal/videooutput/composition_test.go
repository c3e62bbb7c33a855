package videooutput

import (
	"testing"

	"videooutputd/internal/hal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateComposition(t *testing.T) {
	tests := []struct {
		name     string
		proposed []Composition
		wantErr  error
	}{
		{"swap", []Composition{{Sink: "MAIN", Opacity: 255, ZOrder: 1}, {Sink: "SUB0", Opacity: 128, ZOrder: 0}}, nil},
		{"opacity only", []Composition{{Sink: "SUB0", Opacity: 0, ZOrder: 1}}, nil},
		{"empty", nil, nil},
		{"unknown sink", []Composition{{Sink: "SUB1", Opacity: 10, ZOrder: 0}}, ErrInvalidSink},
		{"opacity too high", []Composition{{Sink: "MAIN", Opacity: 256, ZOrder: 0}}, ErrOutOfRange},
		{"negative opacity", []Composition{{Sink: "MAIN", Opacity: -1, ZOrder: 0}}, ErrOutOfRange},
		{"zOrder past last sink", []Composition{{Sink: "MAIN", Opacity: 10, ZOrder: 2}}, ErrOutOfRange},
		{"same sink twice", []Composition{{Sink: "MAIN", Opacity: 10, ZOrder: 0}, {Sink: "MAIN", Opacity: 20, ZOrder: 1}}, ErrInvalidParameters},
		{"duplicate proposed zOrder", []Composition{{Sink: "MAIN", Opacity: 10, ZOrder: 1}, {Sink: "SUB0", Opacity: 10, ZOrder: 1}}, ErrDuplicateZOrder},
		{"collides with untouched sink", []Composition{{Sink: "MAIN", Opacity: 10, ZOrder: 1}}, ErrDuplicateZOrder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sinks := NewSinkRegistry(hal.DefaultPlanes())
			before := sinks.snapshotComposition()

			err := ValidateComposition(tt.proposed, sinks)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, CodeInvalidParameters, ErrorCode(err))
			}
			assert.Equal(t, before, sinks.snapshotComposition(), "validation must not mutate sinks")
		})
	}
}

func TestValidateComposition_untouched_sinks_colliding(t *testing.T) {
	planes := append(hal.DefaultPlanes(), hal.Plane{Name: "SUB1"})
	sinks := NewSinkRegistry(planes)
	sinks.Find("SUB0").ZOrder = 0

	err := ValidateComposition([]Composition{{Sink: "SUB1", Opacity: 1, ZOrder: 2}}, sinks)
	assert.ErrorIs(t, err, ErrDuplicateZOrder)
}

func TestLayers_top_first(t *testing.T) {
	sinks := NewSinkRegistry(hal.DefaultPlanes())
	sinks.Find("MAIN").ZOrder = 1
	sinks.Find("SUB0").ZOrder = 0
	sinks.Find("SUB0").Opacity = 40

	got := layers(sinks)
	require.Len(t, got, 2)
	assert.Equal(t, hal.PlaneID(1), got[0].Plane)
	assert.Equal(t, uint8(40), got[0].Opacity)
	assert.Equal(t, hal.PlaneID(0), got[1].Plane)
}

func TestSnapshotRestoreComposition(t *testing.T) {
	sinks := NewSinkRegistry(hal.DefaultPlanes())
	saved := sinks.snapshotComposition()

	sinks.Find("MAIN").Opacity = 3
	sinks.Find("SUB0").ZOrder = 0
	sinks.restoreComposition(saved)

	assert.Equal(t, uint8(255), sinks.Find("MAIN").Opacity)
	assert.Equal(t, uint8(1), sinks.Find("SUB0").ZOrder)
}
