package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"videooutputd/internal/aspect"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

// SettingsFile stores aspect-ratio settings as YAML.
type SettingsFile struct {
	path string
}

func NewSettingsFile(path string) *SettingsFile {
	return &SettingsFile{path: path}
}

func (f *SettingsFile) Path() string {
	return f.path
}

// Load reads and validates the settings. A missing file yields the
// factory settings.
func (f *SettingsFile) Load() (aspect.Settings, error) {
	b, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return aspect.DefaultSettings(), nil
	}
	if err != nil {
		return aspect.Settings{}, fmt.Errorf("read settings: %w", err)
	}

	s := aspect.DefaultSettings()
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return aspect.Settings{}, fmt.Errorf("parse settings %s: %w", f.path, err)
	}
	if err := s.Validate(); err != nil {
		return aspect.Settings{}, fmt.Errorf("settings %s: %w", f.path, err)
	}
	return s, nil
}

// Save replaces the settings file atomically.
func (f *SettingsFile) Save(s aspect.Settings) error {
	b, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	pending, err := renameio.NewPendingFile(f.path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending settings file: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	if _, err := pending.Write(b); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace settings file: %w", err)
	}
	return nil
}
