package config

import (
	"errors"
	"fmt"
	"os"

	"videooutputd/internal/hal"

	"gopkg.in/yaml.v3"
)

// Platform describes the video planes of the device.
type Platform struct {
	Planes []hal.Plane `yaml:"planes"`
}

// LoadPlatform reads the plane list from a YAML file. An empty path yields
// the default dual-plane layout.
func LoadPlatform(path string) ([]hal.Plane, error) {
	if path == "" {
		return hal.DefaultPlanes(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read platform file: %w", err)
	}
	var p Platform
	if err := yaml.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("parse platform file %s: %w", path, err)
	}
	if err := validatePlanes(p.Planes); err != nil {
		return nil, fmt.Errorf("platform file %s: %w", path, err)
	}
	return p.Planes, nil
}

func validatePlanes(planes []hal.Plane) error {
	if len(planes) == 0 {
		return errors.New("no planes")
	}
	if len(planes) > 256 {
		return fmt.Errorf("%d planes, at most 256 are supported", len(planes))
	}
	seen := make(map[string]bool, len(planes))
	for i, p := range planes {
		if p.Name == "" {
			return fmt.Errorf("plane %d has no name", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate plane %q", p.Name)
		}
		seen[p.Name] = true
		if p.MaxUpscale.W == 0 || p.MaxUpscale.H == 0 {
			return fmt.Errorf("plane %q has no maxUpscale", p.Name)
		}
		if p.MinDownscale.W > p.MaxUpscale.W || p.MinDownscale.H > p.MaxUpscale.H {
			return fmt.Errorf("plane %q minDownscale %s exceeds maxUpscale %s", p.Name, p.MinDownscale, p.MaxUpscale)
		}
	}
	return nil
}
