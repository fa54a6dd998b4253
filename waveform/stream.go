package waveform

import (
	"slices"
	"time"
)

// Stream is an ordered collection of traces.
type Stream []Trace

// Copy returns a deep copy of the stream.
func (s Stream) Copy() Stream {
	out := make(Stream, len(s))
	for i := range s {
		out[i] = s[i].Copy()
	}

	return out
}

// Select returns the traces whose ID matches pattern. The returned traces
// share sample storage with s.
func (s Stream) Select(pattern ChannelID) Stream {
	var out Stream

	for i := range s {
		if s[i].ID.Matches(pattern) {
			out = append(out, s[i])
		}
	}

	return out
}

// Find returns the first trace with exactly the given ID.
func (s Stream) Find(id ChannelID) (*Trace, bool) {
	for i := range s {
		if s[i].ID == id {
			return &s[i], true
		}
	}

	return nil, false
}

// IDs returns the distinct channel IDs in order of first appearance.
func (s Stream) IDs() []ChannelID {
	ids := make([]ChannelID, 0, len(s))

	for i := range s {
		if !slices.Contains(ids, s[i].ID) {
			ids = append(ids, s[i].ID)
		}
	}

	return ids
}

// Duplicates returns channel IDs that appear on more than one trace.
func (s Stream) Duplicates() []ChannelID {
	seen := make(map[ChannelID]int, len(s))

	var dup []ChannelID

	for i := range s {
		seen[s[i].ID]++
		if seen[s[i].ID] == 2 {
			dup = append(dup, s[i].ID)
		}
	}

	return dup
}

// StartTime returns the earliest trace start. Zero for an empty stream.
func (s Stream) StartTime() time.Time {
	var t time.Time

	for i := range s {
		if i == 0 || s[i].StartTime.Before(t) {
			t = s[i].StartTime
		}
	}

	return t
}

// EndTime returns the latest trace end. Zero for an empty stream.
func (s Stream) EndTime() time.Time {
	var t time.Time

	for i := range s {
		if end := s[i].EndTime(); i == 0 || end.After(t) {
			t = end
		}
	}

	return t
}

// Slice returns deep copies of every trace cut to [start, end). Traces with
// no samples in the interval are kept with empty data so callers can report
// them.
func (s Stream) Slice(start, end time.Time) Stream {
	out := make(Stream, len(s))
	for i := range s {
		out[i] = s[i].Slice(start, end)
	}

	return out
}

// Sort orders traces by channel ID string.
func (s Stream) Sort() {
	slices.SortStableFunc(s, func(a, b Trace) int {
		switch as, bs := a.ID.String(), b.ID.String(); {
		case as < bs:
			return -1
		case as > bs:
			return 1
		default:
			return 0
		}
	})
}
