package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cwbudde/algo-matchfilter/detect"
	"github.com/cwbudde/algo-matchfilter/internal/config"
	"github.com/cwbudde/algo-matchfilter/internal/logging"
)

// addDetectFlags registers the flags shared by detect and scan.
func addDetectFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("templates", "", "Template tribe JSON file (required)")
	f.String("data", "", "Continuous data JSON file (required)")
	f.Float64("threshold", 0, "Threshold value")
	f.String("threshold-type", "", "Threshold type: absolute, MAD, av_chan_corr")
	f.Duration("trig-int", 0, "Minimum time between detections of one template")
	f.String("overlap", "", "Window overlap: calculate, none or a duration")
	f.String("backend", "", fmt.Sprintf("Correlation backend %v", detect.Backends()))
	f.Int("workers", 0, "Concurrent correlation workers (0 = all CPUs)")
	f.Bool("full-peaks", false, "Consider every local maximum")
	f.Bool("ignore-bad-data", false, "Drop failing channels instead of aborting")
	f.String("export-dir", "", "Write correlation sums as .npy files to this directory")
	f.String("db", "", "SQLite database receiving the detections")

	_ = cmd.MarkFlagRequired("templates")
	_ = cmd.MarkFlagRequired("data")
}

// loadSettings reads the config file, if any, and applies changed flags.
func loadSettings(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	}

	f := cmd.Flags()

	if f.Changed("log-level") {
		cfg.Log.Level, _ = f.GetString("log-level")
	}

	if f.Lookup("threshold") == nil {
		return cfg, nil
	}

	if f.Changed("threshold") {
		cfg.Threshold, _ = f.GetFloat64("threshold")
	}

	if f.Changed("threshold-type") {
		cfg.ThresholdType, _ = f.GetString("threshold-type")
	}

	if f.Changed("trig-int") {
		cfg.TrigInt, _ = f.GetDuration("trig-int")
	}

	if f.Changed("overlap") {
		cfg.Overlap, _ = f.GetString("overlap")
	}

	if f.Changed("backend") {
		cfg.Backend, _ = f.GetString("backend")
	}

	if f.Changed("workers") {
		cfg.Workers, _ = f.GetInt("workers")
	}

	if f.Changed("full-peaks") {
		cfg.FullPeaks, _ = f.GetBool("full-peaks")
	}

	if f.Changed("ignore-bad-data") {
		cfg.IgnoreBadData, _ = f.GetBool("ignore-bad-data")
	}

	if f.Changed("export-dir") {
		cfg.ExportDir, _ = f.GetString("export-dir")
	}

	if f.Changed("db") {
		cfg.Database, _ = f.GetString("db")
	}

	return cfg, nil
}

// setup loads settings, builds the logger and the detector options.
func setup(cmd *cobra.Command) (config.Config, *zap.Logger, []detect.Option, error) {
	if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
		color.NoColor = true
	}

	cfg, err := loadSettings(cmd)
	if err != nil {
		return cfg, nil, nil, err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return cfg, nil, nil, err
	}

	opts, err := cfg.Options()
	if err != nil {
		return cfg, nil, nil, err
	}

	return cfg, logger, append(opts, detect.WithLogger(logger)), nil
}
