// Package preprocess prepares raw continuous data for correlation: the
// contract every processor must honour and a default implementation that
// detrends, resamples, band-pass filters and pads each channel onto the
// window grid.
package preprocess

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cwbudde/algo-matchfilter/dsp/filter/butter"
	"github.com/cwbudde/algo-matchfilter/dsp/resample"
	"github.com/cwbudde/algo-matchfilter/dsp/window"
	"github.com/cwbudde/algo-matchfilter/template"
	"github.com/cwbudde/algo-matchfilter/waveform"
)

// ErrInvalidParams is returned when the processing parameters cannot be
// realised, such as a highcut at or above the Nyquist frequency.
var ErrInvalidParams = errors.New("preprocess: invalid parameters")

// Params describes the target of processing one channel for one window.
type Params struct {
	LowCut      float64
	HighCut     float64
	FilterOrder int
	SampleRate  float64
	// Start and Length define the window the output must cover exactly.
	Start  time.Time
	Length time.Duration
}

// FromProcessing builds Params for a window of the given start and length.
func FromProcessing(p template.Processing, start time.Time, length time.Duration) Params {
	return Params{
		LowCut:      p.LowCut,
		HighCut:     p.HighCut,
		FilterOrder: p.FilterOrder,
		SampleRate:  p.SampleRate,
		Start:       start,
		Length:      length,
	}
}

// Samples returns the number of samples a window of these Params holds.
func (p Params) Samples() int {
	return int(math.Round(p.Length.Seconds() * p.SampleRate))
}

// Validate checks the parameters without touching any data.
func (p Params) Validate() error {
	if !(p.SampleRate > 0) || p.Length <= 0 {
		return fmt.Errorf("%w: rate %g Hz, length %s", ErrInvalidParams, p.SampleRate, p.Length)
	}

	if _, err := butter.Band(p.LowCut, p.HighCut, p.FilterOrder, p.SampleRate); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}

	return nil
}

// Processor prepares one channel of raw data for one window.
//
// Implementations must return a trace sampled at p.SampleRate that starts at
// p.Start and holds p.Samples() samples, or an empty trace when the channel
// is unusable. They must not modify the input and must be safe for
// concurrent use.
type Processor interface {
	Process(ctx context.Context, tr waveform.Trace, p Params) (waveform.Trace, error)
}

// Default is the built-in Processor.
type Default struct {
	// Quality selects the resampling kernel.
	Quality resample.Quality
	// MaxZeroFraction is the fraction of exactly-zero samples above which
	// a channel is considered dead and returned empty. Zero means 0.5.
	MaxZeroFraction float64
	// Taper is the fraction of each channel cosine-tapered before
	// filtering, half at each end. Zero disables tapering.
	Taper float64
}

// Process detrends, resamples, filters and pads tr.
func (d Default) Process(ctx context.Context, tr waveform.Trace, p Params) (waveform.Trace, error) {
	out := waveform.Trace{ID: tr.ID, StartTime: p.Start, SampleRate: p.SampleRate}

	if err := p.Validate(); err != nil {
		return out, err
	}

	if err := ctx.Err(); err != nil {
		return out, err
	}

	if tr.Len() == 0 || !(tr.SampleRate > 0) {
		return out, nil
	}

	maxZero := d.MaxZeroFraction
	if maxZero <= 0 {
		maxZero = 0.5
	}

	if float64(tr.ZeroCount()) > maxZero*float64(tr.Len()) {
		return out, nil
	}

	data := Detrend(tr.Data)

	if tr.SampleRate != p.SampleRate {
		var err error

		data, err = resample.Rates(data, tr.SampleRate, p.SampleRate, resample.WithQuality(d.Quality))
		if err != nil {
			return out, fmt.Errorf("preprocess: resample %s: %w", tr.ID, err)
		}
	}

	sections, err := butter.Band(p.LowCut, p.HighCut, p.FilterOrder, p.SampleRate)
	if err != nil {
		return out, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}

	window.Taper(data, d.Taper)

	data = butter.ZeroPhase(data, sections)

	shift := int(math.Round(tr.StartTime.Sub(p.Start).Seconds() * p.SampleRate))
	out.Data = Place(data, shift, p.Samples())

	return out, nil
}

// Detrend returns data with the straight line through its first and last
// samples removed.
func Detrend(data []float64) []float64 {
	out := make([]float64, len(data))

	n := len(data)
	if n == 0 {
		return out
	}

	first := data[0]

	slope := 0.0
	if n > 1 {
		slope = (data[n-1] - first) / float64(n-1)
	}

	for i, v := range data {
		out[i] = v - first - slope*float64(i)
	}

	return out
}

// Place copies data into a zeroed buffer of n samples so that data[0] lands
// at index shift. Samples falling outside the buffer are dropped.
func Place(data []float64, shift, n int) []float64 {
	out := make([]float64, n)

	for i, v := range data {
		if j := i + shift; j >= 0 && j < n {
			out[j] = v
		}
	}

	return out
}
