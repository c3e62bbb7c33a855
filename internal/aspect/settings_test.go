package aspect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings_For_falls_back_to_default(t *testing.T) {
	s := DefaultSettings()
	s.Apps = map[string]Params{"com.example.movies": {Mode: ModeOriginal}}

	assert.Equal(t, ModeOriginal, s.For("com.example.movies").Mode)
	assert.Equal(t, Mode16x9, s.For("com.example.other").Mode)
	assert.Equal(t, Mode16x9, s.For("").Mode)
}

func TestSettings_With_copies(t *testing.T) {
	base := DefaultSettings()
	next := base.With("app", Params{Mode: Mode4x3})

	assert.Nil(t, base.Apps)
	assert.Equal(t, Mode4x3, next.For("app").Mode)

	def := next.With("", Params{Mode: ModeVerticalZoom})
	assert.Equal(t, ModeVerticalZoom, def.Default.Mode)
	assert.Equal(t, Mode16x9, next.Default.Mode)
	assert.Equal(t, Mode4x3, def.For("app").Mode)
}

func TestSettings_Validate(t *testing.T) {
	s := DefaultSettings()
	require.NoError(t, s.Validate())

	s = s.With("bad", Params{Mode: Mode16x9, AllDirZoomHRatio: 16})
	err := s.Validate()
	require.ErrorIs(t, err, ErrOutOfRange)
	assert.Contains(t, err.Error(), "app bad")
}
