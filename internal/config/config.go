// Package config loads the immutable parameter record produced by the
// configuration loader external collaborator. Format and loading idiom
// follow the teacher's tocalls.yaml loader (deviceid.go) via
// gopkg.in/yaml.v3.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Simulation holds the optional synthetic-target parameters.
type Simulation struct {
	Enabled    bool    `yaml:"enabled"`
	TargetBin  int     `yaml:"target_bin"`
	AmplitudeDB float64 `yaml:"amplitude_db"`
	NoiseFloorDB float64 `yaml:"noise_floor_db"`
}

// ChannelCal holds a channel's initial calibration as read from the config
// file. The pipeline does not apply it: every channel starts with zero DC
// and the identity transform until the estimator publishes coefficients.
type ChannelCal struct {
	DCReal float64      `yaml:"dc_real"`
	DCImag float64      `yaml:"dc_imag"`
	X      [2][2]float64 `yaml:"x"`
}

// Config is the immutable parameter record handed to every component at
// construction.
type Config struct {
	NumRadars       int     `yaml:"num_radars"`
	SampleRate      float64 `yaml:"sample_rate"`
	S               int     `yaml:"s"`
	W               int     `yaml:"w"`
	B               int     `yaml:"b"`
	NumThreads      int     `yaml:"num_threads"`
	CenterFreq      float64 `yaml:"center_freq"`
	Bandwidth       float64 `yaml:"bandwidth"`
	ReceiveRealOnly bool    `yaml:"receive_real_only"`
	DCCalOnly       bool    `yaml:"dc_cal_only"`
	FadeMemVal      float64 `yaml:"fade_mem_val"`

	DTIHeight   int     `yaml:"dti_height"`
	ScaleDataDB float64 `yaml:"scale_data_db"`
	MinRefDB    float64 `yaml:"min_ref_db"`

	MaxRawFileSec  float64 `yaml:"max_raw_file_sec"`
	MaxProcFileSec float64 `yaml:"max_proc_file_sec"`

	WindowFileS string `yaml:"window_file_s"`
	WindowFileW string `yaml:"window_file_w"`

	Simulation   Simulation            `yaml:"simulation"`
	InitialCal   map[int]ChannelCal    `yaml:"initial_cal"`

	RawLogDir  string `yaml:"raw_log_dir"`
	ProcLogDir string `yaml:"proc_log_dir"`
}

// Default returns a Config with the spec's end-to-end scenario defaults
// (S=64, W=128, C=2, sample_rate=48000, fade_mem_val=0.95).
func Default() Config {
	return Config{
		NumRadars:      2,
		SampleRate:     48000,
		S:              64,
		W:              128,
		B:              32,
		NumThreads:     16,
		CenterFreq:     3e9,
		Bandwidth:      50e6,
		FadeMemVal:     0.95,
		DTIHeight:      256,
		ScaleDataDB:    40,
		MinRefDB:       -100,
		MaxRawFileSec:  3600,
		MaxProcFileSec: 3600,
	}
}

// Load reads and validates a Config from a YAML file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the fields the pipeline cannot safely start without.
func (c Config) Validate() error {
	if c.NumRadars <= 0 {
		return fmt.Errorf("config: num_radars must be positive")
	}
	if c.S <= 0 || c.W <= 0 || c.B <= 0 || c.B > c.W {
		return fmt.Errorf("config: invalid S/W/B geometry (S=%d W=%d B=%d)", c.S, c.W, c.B)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("config: sample_rate must be positive")
	}
	if c.NumThreads <= 0 || c.NumThreads > 64 {
		return fmt.Errorf("config: num_threads %d out of range (1-64)", c.NumThreads)
	}
	return nil
}
