// Package config manages puzzle difficulty presets.
//
// Presets are JSON or YAML files in a presets directory. Each one names a
// set of engine.Settings (grid size, snap threshold, scatter range):
//
//	{
//	  "name": "classic",
//	  "description": "3x3 grid, 10% snap distance",
//	  "settings": {"grid_size": 3, "threshold": 10, "scatter_range": 80}
//	}
//
// The manager caches loaded presets and keeps a default, preferring
// "classic", then the first valid file, then built-in settings.
//
// Usage:
//
//	manager, err := config.NewManager("presets")
//	if err != nil {
//		return err
//	}
//
//	hard, err := manager.LoadPreset("hard")
//	presets, err := manager.ListPresets()
package config
