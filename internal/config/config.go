// Package config loads the mfdetect configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-matchfilter/detect"
	"github.com/cwbudde/algo-matchfilter/preprocess"
)

// Config mirrors the detector options plus the command-line extras.
type Config struct {
	Threshold     float64       `yaml:"threshold"`
	ThresholdType string        `yaml:"threshold_type"`
	TrigInt       time.Duration `yaml:"trig_int"`
	Overlap       string        `yaml:"overlap"`
	DayLong       bool          `yaml:"day_long"`
	Backend       string        `yaml:"backend"`
	Workers       int           `yaml:"workers"`
	FullPeaks     bool          `yaml:"full_peaks"`
	GroupSize     int           `yaml:"group_size"`
	IgnoreLength  bool          `yaml:"ignore_length"`
	IgnoreBadData bool          `yaml:"ignore_bad_data"`
	SpikeTest     bool          `yaml:"spike_test"`
	PreProcessed  bool          `yaml:"pre_processed"`
	// Taper is the fraction of each raw channel tapered before filtering.
	Taper     float64 `yaml:"taper"`
	ExportDir string  `yaml:"export_dir"`
	Database  string  `yaml:"database"`

	Log   Log   `yaml:"log"`
	Fetch Fetch `yaml:"fetch"`
}

// Log configures the logger.
type Log struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Fetch configures waveform acquisition.
type Fetch struct {
	Attempts int           `yaml:"attempts"`
	Interval time.Duration `yaml:"interval"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Threshold:     8,
		ThresholdType: string(detect.MAD),
		TrigInt:       time.Second,
		Overlap:       "calculate",
		Backend:       "fft",
		SpikeTest:     true,
		Log:           Log{Level: "info"},
		Fetch:         Fetch{Attempts: 3, Interval: time.Second},
	}
}

// Load reads a YAML file over the defaults. Unknown keys are an error.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	return Parse(raw)
}

// Parse decodes YAML over the defaults.
func Parse(raw []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Options converts the file settings into detector options.
func (c Config) Options() ([]detect.Option, error) {
	typ, err := detect.ParseThresholdType(c.ThresholdType)
	if err != nil {
		return nil, err
	}

	overlap, err := detect.ParseOverlap(c.Overlap)
	if err != nil {
		return nil, err
	}

	if c.Taper < 0 || c.Taper > 1 {
		return nil, fmt.Errorf("%w: taper %g outside [0, 1]", detect.ErrConfiguration, c.Taper)
	}

	return []detect.Option{
		detect.WithThreshold(c.Threshold, typ),
		detect.WithTrigInt(c.TrigInt),
		detect.WithOverlap(overlap),
		detect.WithDayLong(c.DayLong),
		detect.WithBackend(c.Backend),
		detect.WithWorkers(c.Workers),
		detect.WithFullPeaks(c.FullPeaks),
		detect.WithGroupSize(c.GroupSize),
		detect.WithIgnoreLength(c.IgnoreLength),
		detect.WithIgnoreBadData(c.IgnoreBadData),
		detect.WithSpikeTest(c.SpikeTest),
		detect.WithPreProcessed(c.PreProcessed),
		detect.WithExportDir(c.ExportDir),
		detect.WithProcessor(preprocess.Default{Taper: c.Taper}),
	}, nil
}
