package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/mcp-training/jigsaw/game/engine"
	"github.com/wricardo/mcp-training/jigsaw/game/service"
)

var (
	ErrPresetNotFound = errors.New("preset not found")
	ErrInvalidPreset  = errors.New("invalid preset")
)

// DefaultPresetName is preferred as the default when present.
const DefaultPresetName = "classic"

var presetExtensions = []string{".json", ".yaml", ".yml"}

// Manager handles preset loading and caching
type Manager struct {
	presetDir     string
	defaultPreset *engine.Preset
	presets       map[string]*engine.Preset
	mu            sync.RWMutex
}

// NewManager creates a preset manager over presetDir.
func NewManager(presetDir string) (*Manager, error) {
	if _, err := os.Stat(presetDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("preset directory does not exist: %s", presetDir)
	}

	m := &Manager{
		presetDir: presetDir,
		presets:   make(map[string]*engine.Preset),
	}
	m.defaultPreset = m.pickDefault()
	return m, nil
}

// LoadPreset loads a preset by name (file name without extension).
func (m *Manager) LoadPreset(name string) (*engine.Preset, error) {
	name = presetName(name)

	m.mu.RLock()
	if p, ok := m.presets[name]; ok {
		m.mu.RUnlock()
		return p, nil
	}
	m.mu.RUnlock()

	path, ok := m.findFile(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPresetNotFound, name)
	}
	p, err := engine.LoadPresetFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPreset, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if cached, ok := m.presets[name]; ok {
		return cached, nil
	}
	m.presets[name] = p
	return p, nil
}

// ListPresets returns every valid preset in the directory, sorted by id.
func (m *Manager) ListPresets() ([]*service.PresetInfo, error) {
	entries, err := os.ReadDir(m.presetDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read preset directory: %w", err)
	}

	seen := make(map[string]bool)
	var presets []*service.PresetInfo
	for _, entry := range entries {
		if entry.IsDir() || !hasPresetExt(entry.Name()) {
			continue
		}
		id := presetName(entry.Name())
		if seen[id] {
			continue
		}
		p, err := m.LoadPreset(id)
		if err != nil {
			// Skip invalid presets
			continue
		}
		seen[id] = true
		presets = append(presets, &service.PresetInfo{
			Filename:     entry.Name(),
			PresetID:     id,
			Name:         p.Name,
			Description:  p.Description,
			GridSize:     p.Settings.GridSize,
			Threshold:    p.Settings.Threshold,
			ScatterRange: p.Settings.ScatterRange,
		})
	}
	sort.Slice(presets, func(i, j int) bool { return presets[i].PresetID < presets[j].PresetID })
	return presets, nil
}

// GetDefault returns the default preset
func (m *Manager) GetDefault() *engine.Preset {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultPreset
}

// SetDefault sets the default preset by name
func (m *Manager) SetDefault(name string) error {
	p, err := m.LoadPreset(name)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultPreset = p
	return nil
}

// RefreshCache drops cached presets and re-reads the default.
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	m.presets = make(map[string]*engine.Preset)
	m.mu.Unlock()

	def := m.pickDefault()
	m.mu.Lock()
	m.defaultPreset = def
	m.mu.Unlock()
}

// SavePreset writes a preset as JSON and caches it.
func (m *Manager) SavePreset(name string, p *engine.Preset) error {
	if err := engine.ValidatePreset(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPreset, err)
	}
	name = presetName(name)

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal preset: %w", err)
	}
	if err := os.WriteFile(filepath.Join(m.presetDir, name+".json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write preset file: %w", err)
	}

	m.mu.Lock()
	m.presets[name] = p
	m.mu.Unlock()
	return nil
}

// pickDefault prefers classic, then the first valid preset, then built-in settings.
func (m *Manager) pickDefault() *engine.Preset {
	if p, err := m.LoadPreset(DefaultPresetName); err == nil {
		return p
	}
	if infos, err := m.ListPresets(); err == nil && len(infos) > 0 {
		if p, err := m.LoadPreset(infos[0].PresetID); err == nil {
			return p
		}
	}
	return BuiltinPreset()
}

func (m *Manager) findFile(name string) (string, bool) {
	for _, ext := range presetExtensions {
		path := filepath.Join(m.presetDir, name+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// BuiltinPreset is used when no preset files are available.
func BuiltinPreset() *engine.Preset {
	return &engine.Preset{
		Name:        DefaultPresetName,
		Description: "3x3 grid, 10% snap distance",
		Settings:    engine.DefaultSettings(),
	}
}

func presetName(name string) string {
	for _, ext := range presetExtensions {
		if strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext)
		}
	}
	return name
}

func hasPresetExt(filename string) bool {
	for _, ext := range presetExtensions {
		if strings.HasSuffix(filename, ext) {
			return true
		}
	}
	return false
}
