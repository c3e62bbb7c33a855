package aspect

import (
	"errors"
	"fmt"
	"strings"
)

// Mode is an aspect-ratio policy.
type Mode int

const (
	Mode16x9 Mode = iota
	ModeOriginal
	Mode4x3
	ModeVerticalZoom
	ModeAllDirectionZoom
)

var modeNames = map[Mode]string{
	Mode16x9:             "16x9",
	ModeOriginal:         "original",
	Mode4x3:              "4x3",
	ModeVerticalZoom:     "vertZoom",
	ModeAllDirectionZoom: "allDirZoom",
}

// ParseMode maps a settings name such as "16x9" or "vertZoom" to a Mode.
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown aspect ratio mode %q", ErrOutOfRange, s)
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

func (m Mode) MarshalText() ([]byte, error) {
	name, ok := modeNames[m]
	if !ok {
		return nil, fmt.Errorf("%w: unknown aspect ratio mode %d", ErrOutOfRange, int(m))
	}
	return []byte(name), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// OnOff is a boolean serialized as "on" or "off".
type OnOff bool

func (o OnOff) MarshalText() ([]byte, error) {
	if o {
		return []byte("on"), nil
	}
	return []byte("off"), nil
}

func (o *OnOff) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "on", "true":
		*o = true
	case "off", "false":
		*o = false
	default:
		return fmt.Errorf("%w: expected on or off, got %q", ErrOutOfRange, string(b))
	}
	return nil
}

// Parameter ranges accepted at the settings boundary.
const (
	VertZoomRange   = 9
	AllDirZoomRange = 15
)

// ErrOutOfRange is returned by Validate for settings outside their documented range.
var ErrOutOfRange = errors.New("aspect: parameter out of range")

// Params selects the aspect-ratio policy and its zoom parameters.
type Params struct {
	Mode     Mode  `json:"arcPerApp" yaml:"arcPerApp"`
	JustScan OnOff `json:"justScan" yaml:"justScan"`

	AllDirZoomHRatio    int `json:"allDirZoomHRatio" yaml:"allDirZoomHRatio"`       // 0..15
	AllDirZoomHPosition int `json:"allDirZoomHPosition" yaml:"allDirZoomHPosition"` // -15..15
	AllDirZoomVRatio    int `json:"allDirZoomVRatio" yaml:"allDirZoomVRatio"`       // 0..15
	AllDirZoomVPosition int `json:"allDirZoomVPosition" yaml:"allDirZoomVPosition"` // -15..15

	VertZoomVRatio    int `json:"vertZoomVRatio" yaml:"vertZoomVRatio"`       // -8..9
	VertZoomVPosition int `json:"vertZoomVPosition" yaml:"vertZoomVPosition"` // depends on VertZoomVRatio
}

// DefaultParams returns the factory aspect-ratio settings.
func DefaultParams() Params {
	return Params{
		Mode:             Mode16x9,
		AllDirZoomHRatio: 12,
		AllDirZoomVRatio: 12,
	}
}

// Validate checks every parameter against its range. ComputeWindow itself
// does not validate, so settings must pass through here first.
func (p Params) Validate() error {
	if _, ok := modeNames[p.Mode]; !ok {
		return fmt.Errorf("%w: arcPerApp %d", ErrOutOfRange, int(p.Mode))
	}

	checks := []struct {
		name     string
		v        int
		min, max int
	}{
		{"allDirZoomHRatio", p.AllDirZoomHRatio, 0, AllDirZoomRange},
		{"allDirZoomHPosition", p.AllDirZoomHPosition, -AllDirZoomRange, AllDirZoomRange},
		{"allDirZoomVRatio", p.AllDirZoomVRatio, 0, AllDirZoomRange},
		{"allDirZoomVPosition", p.AllDirZoomVPosition, -AllDirZoomRange, AllDirZoomRange},
		{"vertZoomVRatio", p.VertZoomVRatio, -VertZoomRange + 1, VertZoomRange},
	}
	for _, c := range checks {
		if c.v < c.min || c.v > c.max {
			return fmt.Errorf("%w: %s must be in %d..%d, got %d", ErrOutOfRange, c.name, c.min, c.max, c.v)
		}
	}

	// The vertical position range widens with the vertical zoom ratio.
	posRange := VertZoomRange + p.VertZoomVRatio
	if p.VertZoomVPosition < -posRange || p.VertZoomVPosition > posRange {
		return fmt.Errorf("%w: vertZoomVPosition must be in %d..%d, got %d", ErrOutOfRange, -posRange, posRange, p.VertZoomVPosition)
	}

	return nil
}
