// Package acquire downloads continuous data in chunks and runs detection
// on each chunk as it arrives.
//
// Data comes from a Client. A Fetcher wraps a Client with a bounded number
// of paced attempts, and a Runner walks a time range chunk by chunk, keeping
// everything detected so far when a download finally fails.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cwbudde/algo-matchfilter/waveform"
)

var (
	// ErrExhausted is returned when every fetch attempt failed.
	ErrExhausted = errors.New("acquire: retries exhausted")
	// ErrNoData is returned by MemoryClient when no request matched.
	ErrNoData = errors.New("acquire: no data")
)

// Request asks for one channel over [Start, End). Empty or "*" fields in ID
// match any value.
type Request struct {
	ID    waveform.ChannelID
	Start time.Time
	End   time.Time
}

// String implements fmt.Stringer.
func (r Request) String() string {
	return fmt.Sprintf("%s %s - %s", r.ID, r.Start.UTC().Format(time.RFC3339), r.End.UTC().Format(time.RFC3339))
}

// Client is a source of continuous waveforms, such as a data center.
type Client interface {
	Waveforms(ctx context.Context, reqs []Request) (waveform.Stream, error)
}

// MemoryClient serves requests from a stream held in memory.
type MemoryClient struct {
	Stream waveform.Stream
}

// Waveforms returns copies of the matching traces cut to each request.
func (c *MemoryClient) Waveforms(ctx context.Context, reqs []Request) (waveform.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out waveform.Stream

	for _, req := range reqs {
		for _, tr := range c.Stream.Select(req.ID) {
			if cut := tr.Slice(req.Start, req.End); cut.Len() > 0 {
				out = append(out, cut)
			}
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w for %d requests", ErrNoData, len(reqs))
	}

	return out, nil
}
