package detect

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-matchfilter/preprocess"
	"github.com/cwbudde/algo-matchfilter/template"
	"github.com/cwbudde/algo-matchfilter/waveform"
)

// minCoverage is the fraction of a window a channel must cover to be used.
const minCoverage = 0.8

// Span is one planned window of continuous data, [Start, End).
type Span struct {
	Index int
	Start time.Time
	End   time.Time
}

// Window is a processed window ready for correlation. All channels share
// start time, sample rate and length.
type Window struct {
	Index      int
	Start      time.Time
	SampleRate float64
	Stream     waveform.Stream
}

// Len returns the per-channel sample count.
func (w *Window) Len() int {
	if len(w.Stream) == 0 {
		return 0
	}

	return w.Stream[0].Len()
}

// End returns the time just past the last sample.
func (w *Window) End() time.Time {
	return w.Start.Add(waveform.Seconds(float64(w.Len()) / w.SampleRate))
}

// Chunker splits continuous data into processed windows.
type Chunker struct {
	Processing template.Processing
	// Overlap is the resolved overlap between consecutive windows.
	Overlap      time.Duration
	DayLong      bool
	IgnoreLength bool
	Processor    preprocess.Processor
	Workers      int
	Logger       *zap.Logger
}

// Length returns the window length.
func (c *Chunker) Length() time.Duration {
	if c.DayLong {
		return 24 * time.Hour
	}

	return c.Processing.ProcessLength
}

func (c *Chunker) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}

	return c.Logger
}

// Plan lays out windows over st. Data after the last complete window is not
// covered; a warning reports it.
func (c *Chunker) Plan(st waveform.Stream) []Span {
	log := c.logger()
	length := c.Length()

	overlap := c.Overlap
	if overlap >= length {
		log.Warn("overlap not shorter than process length, using no overlap",
			zap.Duration("overlap", overlap), zap.Duration("process_length", length))

		overlap = 0
	}

	start, end := st.StartTime(), st.EndTime()
	if c.DayLong {
		start = c.dayStart(st)
	}

	rate := c.Processing.SampleRate
	dataLen := math.Round(end.Sub(start).Seconds()*rate) + 1
	chunkLen := (length - overlap).Seconds() * rate

	n := int(math.Floor(dataLen / chunkLen))
	if n <= 0 {
		log.Error("data shorter than process length, nothing to process",
			zap.Duration("data", end.Sub(start)), zap.Duration("process_length", length))

		return nil
	}

	step := length - overlap
	spans := make([]Span, n)

	for i := range spans {
		s := start.Add(time.Duration(i) * step)
		spans[i] = Span{Index: i, Start: s, End: s.Add(length)}
	}

	if last := spans[n-1].End; last.Before(end) {
		log.Warn("data after the last window will not be processed",
			zap.Time("from", last), zap.Time("to", end), zap.Duration("remainder", end.Sub(last)))
	}

	return spans
}

// dayStart returns the start of the first day-long window. Channels starting
// on different days are processed from midnight of the last start day.
func (c *Chunker) dayStart(st waveform.Stream) time.Time {
	var (
		latest   time.Time
		multiDay bool
	)

	first := midnight(st[0].StartTime)

	for i := range st {
		d := midnight(st[i].StartTime)
		if !d.Equal(first) {
			multiDay = true
		}

		if d.After(latest) {
			latest = d
		}
	}

	if multiDay {
		c.logger().Warn("channels start on different days, using the last start day",
			zap.Time("day", latest))

		return latest
	}

	return st.StartTime()
}

func midnight(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Window cuts span from st and processes it. A nil window without error
// means the window was skipped for data quality; the reason is logged.
// st is not modified.
func (c *Chunker) Window(ctx context.Context, st waveform.Stream, span Span) (*Window, error) {
	log := c.logger().With(zap.Int("window", span.Index), zap.Time("start", span.Start))
	length := c.Length()

	cut := st.Slice(span.Start, span.End)

	raw := make(waveform.Stream, 0, len(cut))
	for i := range cut {
		tr := &cut[i]
		if tr.Len() == 0 {
			continue
		}

		if !c.IgnoreLength && tr.Duration().Seconds() < minCoverage*length.Seconds() {
			log.Warn("channel covers less than 80% of the window, removing",
				zap.Stringer("channel", tr.ID), zap.Duration("coverage", tr.Duration()))

			continue
		}

		raw = append(raw, *tr)
	}

	if len(raw) == 0 {
		log.Warn("no usable data in window, skipping")
		return nil, nil
	}

	params := preprocess.FromProcessing(c.Processing, span.Start, length)
	processed := make(waveform.Stream, len(raw))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, c.Workers))

	for i := range raw {
		g.Go(func() error {
			out, err := c.Processor.Process(gctx, raw[i], params)
			processed[i] = out

			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	usable := processed[:0]
	for i := range processed {
		if processed[i].Len() > 0 {
			usable = append(usable, processed[i])
		}
	}

	if len(usable) == 0 {
		log.Warn("data quality insufficient, skipping window")
		return nil, nil
	}

	n := usable[0].Len()
	for i := range usable {
		n = min(n, usable[i].Len())
	}

	if !c.IgnoreLength && float64(n) < minCoverage*length.Seconds()*c.Processing.SampleRate {
		log.Warn("processed data too short, skipping window", zap.Int("samples", n))
		return nil, nil
	}

	for i := range usable {
		usable[i].Data = usable[i].Data[:n]
	}

	log.Debug("window ready", zap.Int("channels", len(usable)), zap.Int("samples", n))

	return &Window{
		Index:      span.Index,
		Start:      span.Start,
		SampleRate: c.Processing.SampleRate,
		Stream:     usable,
	}, nil
}
