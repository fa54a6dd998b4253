package waveform

import (
	"math"
	"strings"
	"time"
)

// ChannelID identifies one recording channel.
type ChannelID struct {
	Network  string `json:"network"`
	Station  string `json:"station"`
	Location string `json:"location"`
	Channel  string `json:"channel"`
}

// String returns the dotted NET.STA.LOC.CHA form.
func (id ChannelID) String() string {
	return strings.Join([]string{id.Network, id.Station, id.Location, id.Channel}, ".")
}

// Matches reports whether id matches pattern, where an empty or "*" field
// in pattern matches anything.
func (id ChannelID) Matches(pattern ChannelID) bool {
	return matchField(pattern.Network, id.Network) &&
		matchField(pattern.Station, id.Station) &&
		matchField(pattern.Location, id.Location) &&
		matchField(pattern.Channel, id.Channel)
}

func matchField(pattern, value string) bool {
	return pattern == "" || pattern == "*" || pattern == value
}

// ParseChannelID parses the dotted NET.STA.LOC.CHA form. Missing trailing
// fields are left empty.
func ParseChannelID(s string) ChannelID {
	parts := strings.SplitN(s, ".", 4)
	for len(parts) < 4 {
		parts = append(parts, "")
	}

	return ChannelID{Network: parts[0], Station: parts[1], Location: parts[2], Channel: parts[3]}
}

// Trace is one channel of evenly sampled data.
type Trace struct {
	ID         ChannelID `json:"id"`
	StartTime  time.Time `json:"start_time"`
	SampleRate float64   `json:"sample_rate"`
	Data       []float64 `json:"data"`
}

// Len returns the number of samples.
func (t *Trace) Len() int { return len(t.Data) }

// Delta returns the sample interval.
func (t *Trace) Delta() time.Duration {
	if t.SampleRate <= 0 {
		return 0
	}

	return Seconds(1 / t.SampleRate)
}

// EndTime returns the time of the last sample. For an empty trace it equals
// the start time.
func (t *Trace) EndTime() time.Time {
	if len(t.Data) == 0 || t.SampleRate <= 0 {
		return t.StartTime
	}

	return t.StartTime.Add(Seconds(float64(len(t.Data)-1) / t.SampleRate))
}

// Duration returns the time covered by the samples, n/rate.
func (t *Trace) Duration() time.Duration {
	if t.SampleRate <= 0 {
		return 0
	}

	return Seconds(float64(len(t.Data)) / t.SampleRate)
}

// TimeAt returns the absolute time of sample i.
func (t *Trace) TimeAt(i int) time.Time {
	return t.StartTime.Add(Seconds(float64(i) / t.SampleRate))
}

// Copy returns a deep copy of the trace.
func (t *Trace) Copy() Trace {
	out := *t
	out.Data = append([]float64(nil), t.Data...)

	return out
}

// Slice returns a deep copy of the samples whose times fall in [start, end).
// Samples stay on the trace's original time grid. The result may be empty.
func (t *Trace) Slice(start, end time.Time) Trace {
	out := Trace{ID: t.ID, SampleRate: t.SampleRate, StartTime: start}
	if t.SampleRate <= 0 || !end.After(start) {
		return out
	}

	i0 := sampleIndexAtOrAfter(t.StartTime, start, t.SampleRate)
	i1 := sampleIndexAtOrAfter(t.StartTime, end, t.SampleRate)
	i0 = clamp(i0, 0, len(t.Data))
	i1 = clamp(i1, 0, len(t.Data))

	out.StartTime = t.TimeAt(i0)
	if i1 > i0 {
		out.Data = append([]float64(nil), t.Data[i0:i1]...)
	}

	return out
}

// HasNaN reports whether any sample is NaN.
func (t *Trace) HasNaN() bool {
	for _, v := range t.Data {
		if math.IsNaN(v) {
			return true
		}
	}

	return false
}

// ZeroCount returns the number of samples that are exactly zero.
func (t *Trace) ZeroCount() int {
	n := 0

	for _, v := range t.Data {
		if v == 0 {
			n++
		}
	}

	return n
}

// Seconds converts fractional seconds to a Duration rounded to the
// nearest nanosecond.
func Seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}

// sampleIndexAtOrAfter returns the index of the first sample at or after
// at. A tolerance of a microsecond absorbs rounding in sample times.
func sampleIndexAtOrAfter(origin, at time.Time, rate float64) int {
	pos := at.Sub(origin).Seconds() * rate

	return int(math.Ceil(pos - 1e-6*rate))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}
