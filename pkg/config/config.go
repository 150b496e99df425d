// Package config provides configuration loading and management for
// tomorecon. It handles loading configuration from YAML files and
// provides default values, following the same
// DefaultConfig/LoadConfig/SaveConfig shape the teacher uses for its
// processing/shearlet/output/test sections.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML.
type Config struct {
	// Reconstruction parameters
	Reconstruction struct {
		NumPixels           int     `yaml:"numPixels"`
		NumProjections      int     `yaml:"numProjections"`
		NumSlices           int     `yaml:"numSlices"`
		PaddedSinogramWidth int     `yaml:"paddedSinogramWidth"`
		CenterOffset        float64 `yaml:"centerOffset"`
		CenterSlope         float64 `yaml:"centerSlope"`
		AirPixels           int     `yaml:"airPixels"`
		RingWidth           int     `yaml:"ringWidth"`
		Fluorescence        bool    `yaml:"fluorescence"`
		NumThreads          int     `yaml:"numThreads"`
		Geom                string  `yaml:"geom"` // "angleArray", "halfCircle", "fullCircle"
		PswfParam           float64 `yaml:"pswfParam"`
		Sampl               float64 `yaml:"sampl"`
		MaxPixSize          float64 `yaml:"maxPixSize"`
		ROIRelSize          float64 `yaml:"roiRelSize"`
		X0                  float64 `yaml:"x0"`
		Y0                  float64 `yaml:"y0"`
		Ltbl                int     `yaml:"ltbl"`
		Filter              string  `yaml:"filter"`
	} `yaml:"reconstruction"`

	// Preprocess parameters
	Preprocess struct {
		ZingerWidth     int     `yaml:"zingerWidth"`
		ZingerThreshold float64 `yaml:"zingerThreshold"`
		ScaleFactor     float64 `yaml:"scaleFactor"`
		OutputUint16    bool    `yaml:"outputUint16"`
	} `yaml:"preprocess"`

	// Output parameters
	Output struct {
		SaveIntermediaryResults bool `yaml:"saveIntermediaryResults"`
		Verbose                 bool `yaml:"verbose"`
	} `yaml:"output"`

	// Debug parameters
	Debug struct {
		FileName string `yaml:"fileName"` // "" routes to stdout
		Level    int    `yaml:"level"`
	} `yaml:"debug"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Reconstruction.NumThreads = runtime.NumCPU()
	cfg.Reconstruction.CenterOffset = 0
	cfg.Reconstruction.CenterSlope = 0
	cfg.Reconstruction.AirPixels = 0
	cfg.Reconstruction.RingWidth = 0
	cfg.Reconstruction.Geom = "angleArray"
	cfg.Reconstruction.PswfParam = 4.0
	cfg.Reconstruction.Sampl = 1.6
	cfg.Reconstruction.MaxPixSize = 2.0
	cfg.Reconstruction.ROIRelSize = 1.0
	cfg.Reconstruction.Ltbl = 512
	cfg.Reconstruction.Filter = "shepp"

	cfg.Preprocess.ZingerWidth = 3
	cfg.Preprocess.ZingerThreshold = 0.05
	cfg.Preprocess.ScaleFactor = 1.0
	cfg.Preprocess.OutputUint16 = true

	cfg.Output.SaveIntermediaryResults = false
	cfg.Output.Verbose = true

	cfg.Debug.FileName = ""
	cfg.Debug.Level = 0

	return cfg
}

// LoadConfig loads configuration from a YAML file. If the file
// doesn't exist, it returns the default configuration.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the
// specified path.
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
