package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSettings(t *testing.T) {
	assert.NoError(t, ValidateSettings(DefaultSettings()))

	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr error
	}{
		{"zero grid", func(s *Settings) { s.GridSize = 0 }, ErrInvalidGridSize},
		{"huge grid", func(s *Settings) { s.GridSize = MaxGridSize + 1 }, ErrInvalidGridSize},
		{"negative threshold", func(s *Settings) { s.Threshold = -1 }, ErrInvalidSettings},
		{"threshold over scale", func(s *Settings) { s.Threshold = 101 }, ErrInvalidSettings},
		{"zero scatter", func(s *Settings) { s.ScatterRange = 0 }, ErrInvalidSettings},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)
			assert.ErrorIs(t, ValidateSettings(s), tt.wantErr)
		})
	}
}

func TestSettingsWithDefaults(t *testing.T) {
	s := Settings{GridSize: 5}.WithDefaults()
	assert.Equal(t, 5, s.GridSize)
	assert.Equal(t, DefaultThreshold, s.Threshold)
	assert.Equal(t, DefaultScatterRange, s.ScatterRange)
}

func TestLoadPresetFile(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "hard.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"name":"hard","description":"5x5","settings":{"grid_size":5,"threshold":5}}`), 0644))
	p, err := LoadPresetFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "hard", p.Name)
	assert.Equal(t, 5, p.Settings.GridSize)
	assert.Equal(t, 5.0, p.Settings.Threshold)
	assert.Equal(t, DefaultScatterRange, p.Settings.ScatterRange)

	yamlPath := filepath.Join(dir, "easy.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("description: two by two\nsettings:\n  grid_size: 2\n  threshold: 15\n"), 0644))
	p, err = LoadPresetFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "easy", p.Name)
	assert.Equal(t, 2, p.Settings.GridSize)
	assert.Equal(t, 15.0, p.Settings.Threshold)

	badPath := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(badPath, []byte(`{"name":"bad","settings":{"grid_size":99}}`), 0644))
	_, err = LoadPresetFile(badPath)
	assert.ErrorIs(t, err, ErrInvalidGridSize)

	_, err = LoadPresetFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
