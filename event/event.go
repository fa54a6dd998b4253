// Package event holds the minimal event description synthesized for a
// detection: an origin time and one phase pick per contributing channel.
package event

import (
	"time"

	"github.com/cwbudde/algo-matchfilter/waveform"
)

// Pick is an arrival time on one channel.
type Pick struct {
	Channel waveform.ChannelID `json:"channel"`
	Time    time.Time          `json:"time"`
	Phase   string             `json:"phase,omitempty"`
}

// Origin is the event's source time. Location is not estimated.
type Origin struct {
	Time time.Time `json:"time"`
}

// Event is a detected event.
type Event struct {
	ResourceID string   `json:"resource_id"`
	Origin     Origin   `json:"origin"`
	Picks      []Pick   `json:"picks"`
	Comments   []string `json:"comments,omitempty"`
}

// Pick returns the pick on the given channel.
func (e *Event) Pick(id waveform.ChannelID) (Pick, bool) {
	for _, p := range e.Picks {
		if p.Channel == id {
			return p, true
		}
	}

	return Pick{}, false
}

// FirstArrival returns the earliest pick time, or the origin time when the
// event has no picks.
func (e *Event) FirstArrival() time.Time {
	t := e.Origin.Time

	for i, p := range e.Picks {
		if i == 0 || p.Time.Before(t) {
			t = p.Time
		}
	}

	return t
}
