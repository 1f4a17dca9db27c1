package cmd

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/inference-sim/cachemiss/cachemodel/sweep"
)

// Preset is a named cache in presets.yaml.
type Preset struct {
	Name           string `yaml:"name" json:"name"`
	Description    string `yaml:"description" json:"description"`
	CacheSizeBytes int64  `yaml:"cache_size_bytes" json:"cache_size_bytes"`
	BlockSizeBytes int64  `yaml:"block_size_bytes" json:"block_size_bytes"`
	Associativity  int64  `yaml:"associativity" json:"associativity"`
}

// CacheConfig converts the preset for the sweep package.
func (p Preset) CacheConfig() sweep.CacheConfig {
	name := p.Description
	if name == "" {
		name = p.Name
	}
	return sweep.CacheConfig{
		Name:           name,
		CacheSizeBytes: p.CacheSizeBytes,
		BlockSizeBytes: p.BlockSizeBytes,
		Associativity:  p.Associativity,
	}
}

// SweepDefaults holds the parameters of each sweep subcommand; flags override them.
type SweepDefaults struct {
	ElementSizeBytes int64 `yaml:"element_size_bytes"`

	MatrixSizes []int64 `yaml:"matrix_sizes"`

	CurveSize           int64   `yaml:"curve_size"`
	CurveBlockSizeBytes int64   `yaml:"curve_block_size_bytes"`
	CurveAssociativity  int64   `yaml:"curve_associativity"`
	CacheSizes          []int64 `yaml:"cache_sizes"`

	AssocCacheSizeBytes int64   `yaml:"assoc_cache_size_bytes"`
	AssocBlockSizeBytes int64   `yaml:"assoc_block_size_bytes"`
	AssocSize           int64   `yaml:"assoc_size"`
	Associativities     []int64 `yaml:"associativities"`

	TilingPreset string  `yaml:"tiling_preset"`
	TilingSizes  []int64 `yaml:"tiling_sizes"`
}

// Config represents the full presets.yaml structure.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type Config struct {
	Version string        `yaml:"version"`
	Presets []Preset      `yaml:"presets"`
	Sweep   SweepDefaults `yaml:"sweep"`
}

// Preset returns the preset with the given name.
func (c Config) Preset(name string) (Preset, bool) {
	for _, p := range c.Presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

// PresetNames lists presets in file order.
func (c Config) PresetNames() []string {
	names := make([]string, 0, len(c.Presets))
	for _, p := range c.Presets {
		names = append(names, p.Name)
	}
	return names
}

// loadPresetsConfig parses presets.yaml with strict field checking: a typo
// in a key is an error rather than a silently ignored field.
func loadPresetsConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read presets file %q: %w", path, err)
	}
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse presets YAML %q: %w", path, err)
	}

	seen := make(map[string]bool, len(cfg.Presets))
	for _, p := range cfg.Presets {
		if p.Name == "" {
			return Config{}, fmt.Errorf("presets file %q: preset without a name", path)
		}
		if seen[p.Name] {
			return Config{}, fmt.Errorf("presets file %q: duplicate preset %q", path, p.Name)
		}
		seen[p.Name] = true
	}
	return cfg, nil
}
