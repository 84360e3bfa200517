// Package config holds the flat tunable surface for the beat-tracking
// pipeline (spec table §6.3) and a YAML-backed override loader in the
// shape of the teacher's preset.File: every field is a pointer in the
// on-disk schema so "unset" is distinguishable from "zero", and values
// are layered onto New()'s defaults.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the flat tunable record consumed by beat.New. All fields
// are load-once except BPSEpsilonT, BPSEpsilonO and BPSEpsilonR, whose
// pipeline copies can be changed after setup (via
// beat.Pipeline.SetEpsilonT/NudgeEpsilonT, SetEpsilonO, SetEpsilonR).
type Config struct {
	AudioWindowSize         int     // N
	AudioHopSize            int     // H
	CompressionGamma        float64
	NoiseCancellationLevel  float64 // dB
	HammingWindowSize       int     // W

	OSSBufferSize     int
	OnsetThreshold    float64
	OnsetThresholdMin float64

	OSSWindowSize               int // M
	OSSHopSize                  int
	FrequencyDomainCompression  float64
	MinBPMDetection             float64
	MaxBPMDetection             float64
	TempoCandidates             int
	TempoAccumulatorDecay       float64
	TempoAccumulatorGaussianW   float64
	MinBPMRescaled              float64
	MaxBPMRescaled              float64

	CBSSBufferSize int
	CBSSEta        float64
	CBSSAlpha      float64

	BPSBufferSize     int
	BPSEpsilonO       float64
	BPSEpsilonR       float64
	BPSEpsilonT       int
	BPSGaussianWidth  float64
	BPSCooldownRatio  float64
}

// New returns the spec-default configuration (spec.md §6.3).
func New() Config {
	return Config{
		AudioWindowSize:            1024,
		AudioHopSize:               128,
		CompressionGamma:           1,
		NoiseCancellationLevel:     -74,
		HammingWindowSize:          15,
		OSSBufferSize:              1024,
		OnsetThreshold:             0.1,
		OnsetThresholdMin:          5.0,
		OSSWindowSize:              2048,
		OSSHopSize:                 128,
		FrequencyDomainCompression: 0.5,
		MinBPMDetection:            50,
		MaxBPMDetection:            210,
		TempoCandidates:            10,
		TempoAccumulatorDecay:      0.9,
		TempoAccumulatorGaussianW:  10,
		MinBPMRescaled:             90,
		MaxBPMRescaled:             180,
		CBSSBufferSize:             512,
		CBSSEta:                    300,
		CBSSAlpha:                  0.9,
		BPSBufferSize:              1024,
		BPSEpsilonO:                0,
		BPSEpsilonR:                0,
		BPSEpsilonT:                20,
		BPSGaussianWidth:           10,
		BPSCooldownRatio:           0.4,
	}
}

// Validate checks the static tunables that don't depend on the audio
// source's sampling rate. The t_min > t_max check (which does depend
// on the source) happens in beat.New.
func (c Config) Validate() error {
	switch {
	case c.AudioWindowSize <= 0:
		return fmt.Errorf("config: audio_window_size must be > 0, got %d", c.AudioWindowSize)
	case c.AudioHopSize <= 0 || c.AudioHopSize > c.AudioWindowSize:
		return fmt.Errorf("config: audio_hop_size must be in (0, audio_window_size], got %d", c.AudioHopSize)
	case c.HammingWindowSize < 1:
		return fmt.Errorf("config: hamming_window_size must be >= 1, got %d", c.HammingWindowSize)
	case c.OSSBufferSize < 1:
		return fmt.Errorf("config: oss_buffer_size must be >= 1, got %d", c.OSSBufferSize)
	case c.OSSWindowSize < 2:
		return fmt.Errorf("config: oss_window_size must be >= 2, got %d", c.OSSWindowSize)
	case c.OSSHopSize < 1:
		return fmt.Errorf("config: oss_hop_size must be >= 1, got %d", c.OSSHopSize)
	case c.MinBPMDetection <= 0 || c.MaxBPMDetection <= c.MinBPMDetection:
		return fmt.Errorf("config: max_bpm_detection must be > min_bpm_detection > 0")
	case c.TempoCandidates < 1:
		return fmt.Errorf("config: tempo_candidates must be >= 1, got %d", c.TempoCandidates)
	case c.CBSSBufferSize < 1:
		return fmt.Errorf("config: cbss_buffer_size must be >= 1, got %d", c.CBSSBufferSize)
	case c.BPSBufferSize < 1:
		return fmt.Errorf("config: bps_buffer_size must be >= 1, got %d", c.BPSBufferSize)
	case c.BPSEpsilonT < 0 || c.BPSEpsilonT >= c.BPSBufferSize:
		return fmt.Errorf("config: bps_epsilon_t must be in [0, bps_buffer_size), got %d", c.BPSEpsilonT)
	case c.BPSGaussianWidth <= 0:
		return fmt.Errorf("config: bps_gaussian_width must be > 0, got %g", c.BPSGaussianWidth)
	case c.BPSCooldownRatio < 0:
		return fmt.Errorf("config: bps_cooldown_ratio must be >= 0, got %g", c.BPSCooldownRatio)
	}
	return nil
}

// file is the on-disk YAML override schema: every field is optional
// (nil = "use the default"), mirroring preset.File's pointer-override
// shape from the teacher repo.
type file struct {
	AudioWindowSize            *int     `yaml:"audio_window_size"`
	AudioHopSize               *int     `yaml:"audio_hop_size"`
	CompressionGamma           *float64 `yaml:"compression_gamma"`
	NoiseCancellationLevel     *float64 `yaml:"noise_cancellation_level"`
	HammingWindowSize          *int     `yaml:"hamming_window_size"`
	OSSBufferSize              *int     `yaml:"oss_buffer_size"`
	OnsetThreshold             *float64 `yaml:"onset_threshold"`
	OnsetThresholdMin          *float64 `yaml:"onset_threshold_min"`
	OSSWindowSize              *int     `yaml:"oss_window_size"`
	OSSHopSize                 *int     `yaml:"oss_hop_size"`
	FrequencyDomainCompression *float64 `yaml:"frequency_domain_compression"`
	MinBPMDetection            *float64 `yaml:"min_bpm_detection"`
	MaxBPMDetection            *float64 `yaml:"max_bpm_detection"`
	TempoCandidates            *int     `yaml:"tempo_candidates"`
	TempoAccumulatorDecay      *float64 `yaml:"tempo_accumulator_decay"`
	TempoAccumulatorGaussianW  *float64 `yaml:"tempo_accumulator_gaussian_width"`
	MinBPMRescaled             *float64 `yaml:"min_bpm_rescaled"`
	MaxBPMRescaled             *float64 `yaml:"max_bpm_rescaled"`
	CBSSBufferSize             *int     `yaml:"cbss_buffer_size"`
	CBSSEta                    *float64 `yaml:"cbss_eta"`
	CBSSAlpha                  *float64 `yaml:"cbss_alpha"`
	BPSBufferSize              *int     `yaml:"bps_buffer_size"`
	BPSEpsilonO                *float64 `yaml:"bps_epsilon_o"`
	BPSEpsilonR                *float64 `yaml:"bps_epsilon_r"`
	BPSEpsilonT                *int     `yaml:"bps_epsilon_t"`
	BPSGaussianWidth           *float64 `yaml:"bps_gaussian_width"`
	BPSCooldownRatio           *float64 `yaml:"bps_cooldown_ratio"`
}

// LoadYAML reads a partial-override YAML file and applies it on top of
// New()'s defaults. Unknown keys are rejected (yaml.v3's KnownFields),
// which is stricter than the original Python's silent-ignore: the spec
// treats a bad config as a setup-time failure (spec.md §7), not
// something to paper over.
func LoadYAML(path string) (Config, error) {
	cfg := New()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	var f file
	if err := dec.Decode(&f); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	applyOverrides(&cfg, &f)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyOverrides(c *Config, f *file) {
	setInt(&c.AudioWindowSize, f.AudioWindowSize)
	setInt(&c.AudioHopSize, f.AudioHopSize)
	setFloat(&c.CompressionGamma, f.CompressionGamma)
	setFloat(&c.NoiseCancellationLevel, f.NoiseCancellationLevel)
	setInt(&c.HammingWindowSize, f.HammingWindowSize)
	setInt(&c.OSSBufferSize, f.OSSBufferSize)
	setFloat(&c.OnsetThreshold, f.OnsetThreshold)
	setFloat(&c.OnsetThresholdMin, f.OnsetThresholdMin)
	setInt(&c.OSSWindowSize, f.OSSWindowSize)
	setInt(&c.OSSHopSize, f.OSSHopSize)
	setFloat(&c.FrequencyDomainCompression, f.FrequencyDomainCompression)
	setFloat(&c.MinBPMDetection, f.MinBPMDetection)
	setFloat(&c.MaxBPMDetection, f.MaxBPMDetection)
	setInt(&c.TempoCandidates, f.TempoCandidates)
	setFloat(&c.TempoAccumulatorDecay, f.TempoAccumulatorDecay)
	setFloat(&c.TempoAccumulatorGaussianW, f.TempoAccumulatorGaussianW)
	setFloat(&c.MinBPMRescaled, f.MinBPMRescaled)
	setFloat(&c.MaxBPMRescaled, f.MaxBPMRescaled)
	setInt(&c.CBSSBufferSize, f.CBSSBufferSize)
	setFloat(&c.CBSSEta, f.CBSSEta)
	setFloat(&c.CBSSAlpha, f.CBSSAlpha)
	setInt(&c.BPSBufferSize, f.BPSBufferSize)
	setFloat(&c.BPSEpsilonO, f.BPSEpsilonO)
	setFloat(&c.BPSEpsilonR, f.BPSEpsilonR)
	setInt(&c.BPSEpsilonT, f.BPSEpsilonT)
	setFloat(&c.BPSGaussianWidth, f.BPSGaussianWidth)
	setFloat(&c.BPSCooldownRatio, f.BPSCooldownRatio)
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
