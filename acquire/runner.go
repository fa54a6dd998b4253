package acquire

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/cwbudde/algo-matchfilter/detect"
	"github.com/cwbudde/algo-matchfilter/template"
	"github.com/cwbudde/algo-matchfilter/waveform"
)

// Pad is the extra data requested on each side of a chunk, on top of the
// tribe's largest channel spread.
const Pad = 300 * time.Second

// minCoverage is the fraction of a chunk a downloaded channel must cover.
const minCoverage = 0.8

// Runner downloads data chunk by chunk and detects a tribe in each chunk.
type Runner struct {
	fetcher  *Fetcher
	tribe    *template.Tribe
	detector *detect.Detector
	log      *zap.Logger
}

// NewRunner builds a Runner. Chunks are processed without overlap, so any
// overlap option is replaced.
func NewRunner(fetcher *Fetcher, tribe *template.Tribe, opts ...detect.Option) (*Runner, error) {
	if err := tribe.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", detect.ErrConfiguration, err)
	}

	if tribe.Len() == 0 {
		return nil, fmt.Errorf("%w: empty tribe", detect.ErrConfiguration)
	}

	opts = append(slices.Clone(opts), detect.WithOverlap(detect.OverlapNone))

	d, err := detect.New(opts...)
	if err != nil {
		return nil, err
	}

	return &Runner{fetcher: fetcher, tribe: tribe, detector: d, log: d.Config().Logger}, nil
}

// Requests returns one request per distinct template channel for the chunk
// [start, end) padded by the tribe's spread and Pad.
func (r *Runner) Requests(start, end time.Time) []Request {
	pad := r.tribe.MaxSpan() + Pad
	seen := make(map[waveform.ChannelID]bool)

	var out []Request

	for _, t := range r.tribe.Templates {
		for i := range t.Stream {
			id := t.Stream[i].ID
			if seen[id] {
				continue
			}

			seen[id] = true
			out = append(out, Request{ID: id, Start: start.Add(-pad), End: end.Add(pad)})
		}
	}

	slices.SortFunc(out, func(a, b Request) int {
		switch as, bs := a.ID.String(), b.ID.String(); {
		case as < bs:
			return -1
		case as > bs:
			return 1
		default:
			return 0
		}
	})

	return out
}

// Run detects over [start, end) in chunks of the tribe's longest process
// length. The last chunk may extend past end so it is always complete.
// When a fetch is exhausted or detection fails, the detections of the
// chunks already processed are returned together with the error.
func (r *Runner) Run(ctx context.Context, start, end time.Time) (*detect.Party, error) {
	length := r.tribe.MaxProcessLength()
	trigInt := r.detector.Config().TrigInt
	party := detect.NewParty()

	for chunk := start; chunk.Before(end); chunk = chunk.Add(length) {
		chunkEnd := chunk.Add(length)
		log := r.log.With(zap.Time("chunk_start", chunk), zap.Time("chunk_end", chunkEnd))

		res := r.fetcher.Fetch(ctx, r.Requests(chunk, chunkEnd))
		if res.Err != nil {
			log.Error("giving up on chunk", zap.Int("attempts", res.Attempts), zap.Error(res.Err))
			party.Finalize(trigInt)

			return party, res.Err
		}

		// The request padding only absorbs servers returning short or
		// misaligned data. Chunks are cut back to exactly one process
		// length so each one forms a single detection window.
		st := r.usable(res.Stream.Slice(chunk, chunkEnd), length, log)
		if len(st) == 0 {
			log.Warn("no usable data in chunk")
			continue
		}

		p, err := r.detector.DetectTribe(ctx, r.tribe, st)
		party.Merge(p)

		if err != nil {
			party.Finalize(trigInt)
			return party, err
		}

		log.Info("chunk done", zap.Int("detections", p.Len()))
	}

	party.Finalize(trigInt)

	return party, nil
}

// usable drops channels that are mostly zeros or cover less than 80% of the
// chunk.
func (r *Runner) usable(st waveform.Stream, length time.Duration, log *zap.Logger) waveform.Stream {
	out := st[:0]

	for i := range st {
		tr := &st[i]

		switch {
		case tr.Len() == 0:
			continue
		case tr.ZeroCount() > tr.Len()-tr.ZeroCount():
			log.Warn("channel has more zeros than data, removing", zap.Stringer("channel", tr.ID))
			continue
		case float64(tr.Len()) < minCoverage*length.Seconds()*tr.SampleRate:
			log.Warn("channel covers less than 80% of the chunk, removing",
				zap.Stringer("channel", tr.ID), zap.Int("samples", tr.Len()))

			continue
		}

		out = append(out, *tr)
	}

	return out
}
