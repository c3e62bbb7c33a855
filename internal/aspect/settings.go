package aspect

import (
	"fmt"
	"maps"
)

// Settings holds the default parameters and per-application overrides.
type Settings struct {
	Default Params            `json:"default" yaml:"default"`
	Apps    map[string]Params `json:"apps,omitempty" yaml:"apps,omitempty"`
}

// DefaultSettings returns factory settings with no overrides.
func DefaultSettings() Settings {
	return Settings{Default: DefaultParams()}
}

// For returns the parameters applied while appID is in the foreground.
func (s Settings) For(appID string) Params {
	if p, ok := s.Apps[appID]; ok {
		return p
	}
	return s.Default
}

// With returns a copy of s where appID uses p. An empty appID replaces the
// default.
func (s Settings) With(appID string, p Params) Settings {
	out := Settings{Default: s.Default, Apps: maps.Clone(s.Apps)}
	if appID == "" {
		out.Default = p
		return out
	}
	if out.Apps == nil {
		out.Apps = make(map[string]Params)
	}
	out.Apps[appID] = p
	return out
}

// Validate checks the default and every override.
func (s Settings) Validate() error {
	if err := s.Default.Validate(); err != nil {
		return fmt.Errorf("default: %w", err)
	}
	for app, p := range s.Apps {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("app %s: %w", app, err)
		}
	}
	return nil
}
