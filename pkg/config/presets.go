package config

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Preset is one named subscription filter from filters.yaml.
type Preset struct {
	Kinds   []string `yaml:"kinds,omitempty"`
	Authors []string `yaml:"authors,omitempty"`
	Since   uint64   `yaml:"since,omitempty"`
	Limit   int      `yaml:"limit,omitempty"`
}

// FilterJSON renders the preset as the relay's filter object.
func (p Preset) FilterJSON() (string, error) {
	filter := make(map[string]any)
	if len(p.Kinds) > 0 {
		filter["kinds"] = p.Kinds
	}
	if len(p.Authors) > 0 {
		filter["authors"] = p.Authors
	}
	if p.Since > 0 {
		filter["since"] = p.Since
	}
	if p.Limit > 0 {
		filter["limit"] = p.Limit
	}
	data, err := json.Marshal(filter)
	if err != nil {
		return "", fmt.Errorf("marshal filter: %w", err)
	}
	return string(data), nil
}

// LoadPresets reads the named filter presets from path. A missing file yields
// an empty map.
func LoadPresets(path string) (map[string]Preset, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is derived from the config dir
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Preset{}, nil
		}
		return nil, fmt.Errorf("read presets: %w", err)
	}

	var file struct {
		Presets map[string]Preset `yaml:"presets"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}
	if file.Presets == nil {
		file.Presets = map[string]Preset{}
	}
	return file.Presets, nil
}
