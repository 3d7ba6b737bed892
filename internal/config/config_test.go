package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "radar.yaml")
	yaml := `
num_radars: 1
sample_rate: 96000
s: 32
w: 64
b: 16
num_threads: 8
center_freq: 1.5e9
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.NumRadars)
	assert.Equal(t, 96000.0, cfg.SampleRate)
	assert.Equal(t, 32, cfg.S)
	assert.Equal(t, 64, cfg.W)
	assert.Equal(t, 16, cfg.B)
	assert.Equal(t, 8, cfg.NumThreads)
	// Fields not present in the override file keep Default()'s values.
	assert.Equal(t, 0.95, cfg.FadeMemVal)
}

func TestValidateRejectsBadGeometry(t *testing.T) {
	cfg := Default()
	cfg.B = cfg.W + 1
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsOutOfRangeThreads(t *testing.T) {
	cfg := Default()
	cfg.NumThreads = 100
	assert.Error(t, cfg.Validate())
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load("/nonexistent/radar.yaml")
	assert.Error(t, err)
}
