package dsp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateHammingEndpoints(t *testing.T) {
	w := Generate(Hamming, 5)
	require.Len(t, w, 5)
	// Hamming window endpoints are ~0.08, not zero (unlike Hann).
	assert.InDelta(t, 0.08, w[0], 0.01)
	assert.InDelta(t, 0.08, w[len(w)-1], 0.01)
}

func TestLoadFileMismatchedLengthErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "win4s30dB.txt")
	require.NoError(t, os.WriteFile(path, []byte("1\n2\n3\n"), 0o644))

	_, err := LoadFile(path, 4)
	assert.Error(t, err)
}

func TestLoadOrDefaultFallsBackOnMissingFile(t *testing.T) {
	w := LoadOrDefault("/nonexistent/win8s30dB.txt", 8)
	assert.Equal(t, Generate(Hamming, 8), w)
}

func TestLoadOrDefaultUsesFileWhenPresent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "win3s30dB.txt")
	require.NoError(t, os.WriteFile(path, []byte("0.1\n0.5\n0.1\n"), 0o644))

	w := LoadOrDefault(path, 3)
	assert.Equal(t, []float64{0.1, 0.5, 0.1}, w)
}
