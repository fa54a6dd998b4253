package detect

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cwbudde/algo-matchfilter/preprocess"
)

type overlapMode int

const (
	overlapFixed overlapMode = iota
	overlapAuto
)

// Overlap controls how much consecutive windows share.
type Overlap struct {
	mode     overlapMode
	duration time.Duration
}

var (
	// OverlapNone makes windows abut.
	OverlapNone = Overlap{}
	// OverlapAuto overlaps windows by the largest channel start spread of
	// any template in the group, so no alignment falls into a coverage gap
	// at a window boundary.
	OverlapAuto = Overlap{mode: overlapAuto}
)

// OverlapOf returns a fixed overlap.
func OverlapOf(d time.Duration) Overlap {
	return Overlap{duration: d}
}

// ParseOverlap accepts "calculate", "none", a Go duration ("30s") or a
// number of seconds.
func ParseOverlap(s string) (Overlap, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return OverlapNone, nil
	case "calculate", "auto":
		return OverlapAuto, nil
	}

	if d, err := time.ParseDuration(s); err == nil && d >= 0 {
		return OverlapOf(d), nil
	}

	sec, err := strconv.ParseFloat(s, 64)
	if err != nil || sec < 0 {
		return Overlap{}, fmt.Errorf("%w: overlap %q is not calculate, none or a duration", ErrConfiguration, s)
	}

	return OverlapOf(time.Duration(sec * float64(time.Second))), nil
}

// IsAuto reports whether the overlap is computed from the templates.
func (o Overlap) IsAuto() bool { return o.mode == overlapAuto }

// Duration returns the fixed overlap. Zero for OverlapAuto.
func (o Overlap) Duration() time.Duration { return o.duration }

// String implements fmt.Stringer.
func (o Overlap) String() string {
	if o.IsAuto() {
		return "calculate"
	}

	return o.duration.String()
}

// Config holds the detector settings. Use DefaultConfig and Options rather
// than filling it directly.
type Config struct {
	Threshold     float64
	ThresholdType ThresholdType
	// TrigInt is the minimum time between detections of one template.
	TrigInt time.Duration
	Overlap Overlap
	// DayLong processes data in whole UTC days regardless of the
	// templates' process length.
	DayLong bool
	// Backend names the correlation backend, see Backends.
	Backend string
	// Workers bounds the goroutines used within one window.
	Workers   int
	FullPeaks bool
	// GroupSize caps how many templates are correlated together; larger
	// groups are split. Zero means no limit.
	GroupSize int
	// IgnoreLength keeps channels covering less than 80% of a window.
	IgnoreLength bool
	// IgnoreBadData drops channels failing the quality checks instead of
	// failing the run.
	IgnoreBadData bool
	SpikeTest     bool
	// ExportDir, when set, receives every correlation sum as a .npy file.
	ExportDir string
	// PreProcessed treats the input stream as one ready-made window.
	PreProcessed bool
	Processor    preprocess.Processor
	Logger       *zap.Logger
}

// DefaultConfig returns a configuration detecting at 8×MAD with a one
// second trigger interval using the FFT backend.
func DefaultConfig() Config {
	return Config{
		Threshold:     8,
		ThresholdType: MAD,
		TrigInt:       time.Second,
		Overlap:       OverlapAuto,
		Backend:       "fft",
		Workers:       runtime.GOMAXPROCS(0),
		SpikeTest:     true,
		Processor:     preprocess.Default{},
		Logger:        zap.NewNop(),
	}
}

// Option configures a Detector.
type Option func(*Config)

// WithThreshold sets the threshold value and how it is interpreted.
func WithThreshold(value float64, typ ThresholdType) Option {
	return func(cfg *Config) {
		cfg.Threshold = value
		cfg.ThresholdType = typ
	}
}

// WithTrigInt sets the minimum separation between detections of one
// template.
func WithTrigInt(d time.Duration) Option {
	return func(cfg *Config) { cfg.TrigInt = d }
}

// WithOverlap sets the window overlap policy.
func WithOverlap(o Overlap) Option {
	return func(cfg *Config) { cfg.Overlap = o }
}

// WithDayLong switches to whole-day windows.
func WithDayLong(enabled bool) Option {
	return func(cfg *Config) { cfg.DayLong = enabled }
}

// WithBackend selects the correlation backend by name.
func WithBackend(name string) Option {
	return func(cfg *Config) { cfg.Backend = name }
}

// WithWorkers bounds per-window concurrency. Values below one select
// GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(cfg *Config) {
		if n < 1 {
			n = runtime.GOMAXPROCS(0)
		}

		cfg.Workers = n
	}
}

// WithFullPeaks enables exhaustive local-maximum peak finding.
func WithFullPeaks(enabled bool) Option {
	return func(cfg *Config) { cfg.FullPeaks = enabled }
}

// WithGroupSize limits the number of templates correlated together.
func WithGroupSize(n int) Option {
	return func(cfg *Config) { cfg.GroupSize = n }
}

// WithIgnoreLength disables the 80% coverage rule.
func WithIgnoreLength(enabled bool) Option {
	return func(cfg *Config) { cfg.IgnoreLength = enabled }
}

// WithIgnoreBadData drops failing channels instead of returning
// ErrDataQuality.
func WithIgnoreBadData(enabled bool) Option {
	return func(cfg *Config) { cfg.IgnoreBadData = enabled }
}

// WithSpikeTest enables or disables the spike check.
func WithSpikeTest(enabled bool) Option {
	return func(cfg *Config) { cfg.SpikeTest = enabled }
}

// WithExportDir writes correlation sums to dir.
func WithExportDir(dir string) Option {
	return func(cfg *Config) { cfg.ExportDir = dir }
}

// WithPreProcessed marks the input as already processed.
func WithPreProcessed(enabled bool) Option {
	return func(cfg *Config) { cfg.PreProcessed = enabled }
}

// WithProcessor replaces the default pre-processing.
func WithProcessor(p preprocess.Processor) Option {
	return func(cfg *Config) { cfg.Processor = p }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(cfg *Config) { cfg.Logger = l }
}

// ApplyOptions applies opts to DefaultConfig.
func ApplyOptions(opts ...Option) Config {
	cfg := DefaultConfig()

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return cfg
}

func (c Config) validate() error {
	if _, err := ParseThresholdType(string(c.ThresholdType)); err != nil {
		return err
	}

	if c.TrigInt < 0 {
		return fmt.Errorf("%w: negative trigger interval %s", ErrConfiguration, c.TrigInt)
	}

	if c.Overlap.Duration() < 0 {
		return fmt.Errorf("%w: negative overlap %s", ErrConfiguration, c.Overlap)
	}

	if c.GroupSize < 0 {
		return fmt.Errorf("%w: negative group size %d", ErrConfiguration, c.GroupSize)
	}

	if c.Processor == nil && !c.PreProcessed {
		return fmt.Errorf("%w: no pre-processor", ErrConfiguration)
	}

	return nil
}
