package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Settings are the tunable parameters of a puzzle.
type Settings struct {
	GridSize     int     `json:"grid_size" yaml:"grid_size"`
	Threshold    float64 `json:"threshold" yaml:"threshold"`
	ScatterRange float64 `json:"scatter_range" yaml:"scatter_range"`
}

// DefaultSettings returns the classic 3x3 settings.
func DefaultSettings() Settings {
	return Settings{
		GridSize:     DefaultGridSize,
		Threshold:    DefaultThreshold,
		ScatterRange: DefaultScatterRange,
	}
}

// WithDefaults fills zero fields from DefaultSettings.
func (s Settings) WithDefaults() Settings {
	d := DefaultSettings()
	if s.GridSize == 0 {
		s.GridSize = d.GridSize
	}
	if s.Threshold == 0 {
		s.Threshold = d.Threshold
	}
	if s.ScatterRange == 0 {
		s.ScatterRange = d.ScatterRange
	}
	return s
}

// ValidateSettings checks ranges. Grid size errors wrap ErrInvalidGridSize,
// everything else ErrInvalidSettings.
func ValidateSettings(s Settings) error {
	if s.GridSize < MinGridSize || s.GridSize > MaxGridSize {
		return fmt.Errorf("%w: grid_size must be between %d and %d, got %d", ErrInvalidGridSize, MinGridSize, MaxGridSize, s.GridSize)
	}
	if math.IsNaN(s.Threshold) || s.Threshold < 0 || s.Threshold > FullScale {
		return fmt.Errorf("%w: threshold must be between 0 and %g, got %g", ErrInvalidSettings, FullScale, s.Threshold)
	}
	if math.IsNaN(s.ScatterRange) || s.ScatterRange <= 0 || s.ScatterRange > FullScale {
		return fmt.Errorf("%w: scatter_range must be in (0, %g], got %g", ErrInvalidSettings, FullScale, s.ScatterRange)
	}
	return nil
}

// Preset is a named difficulty level.
type Preset struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Settings    Settings `json:"settings" yaml:"settings"`
}

// ValidatePreset validates a preset for correctness.
func ValidatePreset(p *Preset) error {
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSettings)
	}
	return ValidateSettings(p.Settings)
}

// LoadPresetFile reads a preset from a .json, .yaml or .yml file.
func LoadPresetFile(filename string) (*Preset, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read preset file: %w", err)
	}
	preset, err := ParsePreset(data, filepath.Ext(filename))
	if err != nil {
		return nil, err
	}
	if preset.Name == "" {
		preset.Name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}
	preset.Settings = preset.Settings.WithDefaults()
	if err := ValidatePreset(preset); err != nil {
		return nil, err
	}
	return preset, nil
}

// ParsePreset decodes preset data; ext selects the format.
func ParsePreset(data []byte, ext string) (*Preset, error) {
	var p Preset
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to parse preset: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to parse preset: %w", err)
		}
	}
	return &p, nil
}
