package config

import (
	"context"
	"os"

	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk YAML shape for a Static config's defaults,
// letting a caller seed model/provider/ephemeral settings from a config
// file instead of wiring them up in code.
type FileConfig struct {
	Model             string         `yaml:"model"`
	Provider          string         `yaml:"provider"`
	EphemeralSettings map[string]any `yaml:"ephemeralSettings"`
}

// LoadStatic reads a YAML config file and constructs a Static from it.
func LoadStatic(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, err
	}
	s := NewStatic(fc.Model, fc.Provider)
	ctx := context.Background()
	for k, v := range fc.EphemeralSettings {
		_ = s.SetEphemeralSetting(ctx, k, v)
	}
	return s, nil
}
