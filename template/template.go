// Package template defines matched-filter templates, the processing
// parameters they were cut with, and the checks that decide whether a set
// of templates can be correlated against the same processed data.
package template

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cwbudde/algo-matchfilter/waveform"
)

var (
	// ErrInvalid is returned for a template that cannot be used at all.
	ErrInvalid = errors.New("template: invalid template")
	// ErrIncompatible is returned when templates in one group disagree on
	// processing parameters or length.
	ErrIncompatible = errors.New("template: incompatible templates")
)

// Processing describes how a template's waveforms were prepared. Two
// templates can share correlation work only when their Processing values
// are equal.
type Processing struct {
	LowCut        float64       `json:"lowcut" yaml:"lowcut"`
	HighCut       float64       `json:"highcut" yaml:"highcut"`
	FilterOrder   int           `json:"filt_order" yaml:"filt_order"`
	SampleRate    float64       `json:"samp_rate" yaml:"samp_rate"`
	ProcessLength time.Duration `json:"process_len" yaml:"process_len"`
}

// String returns a compact description used in log fields.
func (p Processing) String() string {
	return fmt.Sprintf("%g-%gHz order=%d rate=%gHz len=%s",
		p.LowCut, p.HighCut, p.FilterOrder, p.SampleRate, p.ProcessLength)
}

// Template is a short multi-channel waveform of a known event, together
// with the processing it was cut with. Templates are never mutated by the
// detection pipeline.
type Template struct {
	Name       string
	Stream     waveform.Stream
	Processing Processing
	// Prepick is how long before the phase pick each channel was cut.
	Prepick time.Duration
}

// Validate checks a single template for internal consistency.
func (t *Template) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalid)
	}

	if len(t.Stream) == 0 {
		return fmt.Errorf("%w: %s has no channels", ErrInvalid, t.Name)
	}

	if t.Processing.SampleRate <= 0 || t.Processing.ProcessLength <= 0 {
		return fmt.Errorf("%w: %s has unset processing (%s)", ErrInvalid, t.Name, t.Processing)
	}

	n := t.Stream[0].Len()
	for i := range t.Stream {
		tr := &t.Stream[i]
		if tr.Len() == 0 {
			return fmt.Errorf("%w: %s channel %s is empty", ErrInvalid, t.Name, tr.ID)
		}

		if tr.Len() != n {
			return fmt.Errorf("%w: %s channel %s has %d samples, want %d",
				ErrInvalid, t.Name, tr.ID, tr.Len(), n)
		}

		if tr.HasNaN() {
			return fmt.Errorf("%w: %s channel %s contains masked samples", ErrInvalid, t.Name, tr.ID)
		}

		if !sameRate(tr.SampleRate, t.Processing.SampleRate) {
			return fmt.Errorf("%w: %s channel %s sampled at %g Hz, processing says %g Hz",
				ErrInvalid, t.Name, tr.ID, tr.SampleRate, t.Processing.SampleRate)
		}
	}

	return nil
}

// Len returns the per-channel sample count.
func (t *Template) Len() int {
	if len(t.Stream) == 0 {
		return 0
	}

	return t.Stream[0].Len()
}

// ReferenceStart returns the earliest channel start.
func (t *Template) ReferenceStart() time.Time {
	return t.Stream.StartTime()
}

// Span returns the spread between the earliest and latest channel start.
func (t *Template) Span() time.Duration {
	if len(t.Stream) == 0 {
		return 0
	}

	ref := t.ReferenceStart()

	var span time.Duration

	for i := range t.Stream {
		if d := t.Stream[i].StartTime.Sub(ref); d > span {
			span = d
		}
	}

	return span
}

// Offsets returns each channel's start relative to the earliest channel,
// in samples at the processing rate.
func (t *Template) Offsets() []int {
	ref := t.ReferenceStart()
	out := make([]int, len(t.Stream))

	for i := range t.Stream {
		out[i] = int(math.Round(t.Stream[i].StartTime.Sub(ref).Seconds() * t.Processing.SampleRate))
	}

	return out
}

// ValidateGroup checks that every template in group is valid and uniquely
// named, that all share identical processing and that they have equal lengths. It runs before any
// correlation work.
func ValidateGroup(group []*Template) error {
	if len(group) == 0 {
		return fmt.Errorf("%w: empty template group", ErrInvalid)
	}

	first := group[0]
	if err := first.Validate(); err != nil {
		return err
	}

	names := map[string]bool{first.Name: true}

	for _, t := range group[1:] {
		if err := t.Validate(); err != nil {
			return err
		}

		if names[t.Name] {
			return fmt.Errorf("%w: duplicate template name %s", ErrInvalid, t.Name)
		}

		names[t.Name] = true

		if t.Processing != first.Processing {
			return fmt.Errorf("%w: %s processed as %s, %s processed as %s",
				ErrIncompatible, first.Name, first.Processing, t.Name, t.Processing)
		}

		if t.Len() != first.Len() {
			return fmt.Errorf("%w: %s has %d samples per channel, %s has %d",
				ErrIncompatible, first.Name, first.Len(), t.Name, t.Len())
		}
	}

	return nil
}

func sameRate(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(math.Abs(a), math.Abs(b))
}
