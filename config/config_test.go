package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsMatchSpecTable(t *testing.T) {
	c := New()
	assert.Equal(t, 1024, c.AudioWindowSize)
	assert.Equal(t, 128, c.AudioHopSize)
	assert.Equal(t, 1.0, c.CompressionGamma)
	assert.Equal(t, -74.0, c.NoiseCancellationLevel)
	assert.Equal(t, 15, c.HammingWindowSize)
	assert.Equal(t, 1024, c.OSSBufferSize)
	assert.Equal(t, 0.1, c.OnsetThreshold)
	assert.Equal(t, 5.0, c.OnsetThresholdMin)
	assert.Equal(t, 2048, c.OSSWindowSize)
	assert.Equal(t, 128, c.OSSHopSize)
	assert.Equal(t, 0.5, c.FrequencyDomainCompression)
	assert.Equal(t, 50.0, c.MinBPMDetection)
	assert.Equal(t, 210.0, c.MaxBPMDetection)
	assert.Equal(t, 10, c.TempoCandidates)
	assert.Equal(t, 0.9, c.TempoAccumulatorDecay)
	assert.Equal(t, 10.0, c.TempoAccumulatorGaussianW)
	assert.Equal(t, 90.0, c.MinBPMRescaled)
	assert.Equal(t, 180.0, c.MaxBPMRescaled)
	assert.Equal(t, 512, c.CBSSBufferSize)
	assert.Equal(t, 300.0, c.CBSSEta)
	assert.Equal(t, 0.9, c.CBSSAlpha)
	assert.Equal(t, 1024, c.BPSBufferSize)
	assert.Equal(t, 0.0, c.BPSEpsilonO)
	assert.Equal(t, 0.0, c.BPSEpsilonR)
	assert.Equal(t, 20, c.BPSEpsilonT)
	assert.Equal(t, 10.0, c.BPSGaussianWidth)
	assert.Equal(t, 0.4, c.BPSCooldownRatio)
	require.NoError(t, c.Validate())
}

func TestValidateRejectsHopLargerThanWindow(t *testing.T) {
	c := New()
	c.AudioHopSize = c.AudioWindowSize + 1
	assert.Error(t, c.Validate())
}

func TestValidateRejectsBadBPMRange(t *testing.T) {
	c := New()
	c.MinBPMDetection = 200
	c.MaxBPMDetection = 100
	assert.Error(t, c.Validate())
}

func TestValidateRejectsEpsilonTOutOfRange(t *testing.T) {
	c := New()
	c.BPSEpsilonT = c.BPSBufferSize
	assert.Error(t, c.Validate())
}

func TestLoadYAMLAppliesPartialOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "override.yaml")
	require.NoError(t, os.WriteFile(path, []byte("onset_threshold: 0.2\nbps_epsilon_t: 5\n"), 0o644))

	c, err := LoadYAML(path)
	require.NoError(t, err)
	assert.Equal(t, 0.2, c.OnsetThreshold)
	assert.Equal(t, 5, c.BPSEpsilonT)
	// Everything else keeps its default.
	assert.Equal(t, 1024, c.AudioWindowSize)
}

func TestLoadYAMLRejectsUnknownKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "override.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not_a_real_field: 1\n"), 0o644))

	_, err := LoadYAML(path)
	assert.Error(t, err)
}

func TestLoadYAMLRejectsInvalidResult(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "override.yaml")
	require.NoError(t, os.WriteFile(path, []byte("audio_hop_size: 99999\n"), 0o644))

	_, err := LoadYAML(path)
	assert.Error(t, err)
}
