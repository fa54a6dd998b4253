package detect

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-matchfilter/preprocess"
	"github.com/cwbudde/algo-matchfilter/stats/robust"
	"github.com/cwbudde/algo-matchfilter/template"
	"github.com/cwbudde/algo-matchfilter/waveform"
)

// meanTolerance is the largest |mean| of a correlation sum accepted without
// a warning.
const meanTolerance = 0.05

// Detector runs matched-filter detection. A Detector is immutable after New
// and may be shared between goroutines.
type Detector struct {
	cfg     Config
	backend Backend
	log     *zap.Logger
}

// New validates the options and returns a Detector. Invalid options fail
// here with ErrConfiguration, before any data is touched.
func New(opts ...Option) (*Detector, error) {
	cfg := ApplyOptions(opts...)
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	backend, err := LookupBackend(cfg.Backend)
	if err != nil {
		return nil, err
	}

	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Detector{cfg: cfg, backend: backend, log: cfg.Logger}, nil
}

// Config returns the detector's configuration.
func (d *Detector) Config() Config { return d.cfg }

// DetectTribe splits the tribe into groups of compatible templates and runs
// Detect on each, merging the results. On error the party holds everything
// detected before the failure.
func (d *Detector) DetectTribe(ctx context.Context, tribe *template.Tribe, st waveform.Stream) (*Party, error) {
	if err := tribe.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	party := NewParty()

	groups := tribe.Groups()
	for i, group := range groups {
		d.log.Info("detecting with template group",
			zap.Int("group", i+1), zap.Int("groups", len(groups)),
			zap.Int("templates", len(group)), zap.Stringer("processing", group[0].Processing))

		p, err := d.Detect(ctx, group, st)
		party.Merge(p)

		if err != nil {
			party.Finalize(d.cfg.TrigInt)
			return party, err
		}
	}

	party.Finalize(d.cfg.TrigInt)

	return party, nil
}

// Detect correlates a group of compatible templates against continuous data
// and returns a Party with one Family per template. Windows are processed
// one at a time; a cancelled window contributes nothing and the party built
// from earlier windows is returned with the context error.
func (d *Detector) Detect(ctx context.Context, group []*template.Template, st waveform.Stream) (*Party, error) {
	if err := template.ValidateGroup(group); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	proc := group[0].Processing

	chunker := d.chunker(group)
	if err := preprocess.FromProcessing(proc, time.Time{}, chunker.Length()).Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	party := NewParty()
	for _, t := range group {
		party.Add(&Family{Template: t})
	}

	st, err := d.preflight(group, st)
	if err != nil {
		return party, err
	}

	if len(st) == 0 {
		d.log.Warn("no data for any template channel")
		return party, nil
	}

	var spans []Span
	if d.cfg.PreProcessed {
		spans = []Span{{Start: st.StartTime(), End: st.EndTime()}}
	} else {
		spans = chunker.Plan(st)
	}

	for _, span := range spans {
		if err := ctx.Err(); err != nil {
			party.Finalize(d.cfg.TrigInt)
			return party, err
		}

		var w *Window
		if d.cfg.PreProcessed {
			w, err = preparedWindow(st, proc.SampleRate)
		} else {
			w, err = chunker.Window(ctx, st, span)
		}

		if err != nil {
			party.Finalize(d.cfg.TrigInt)

			if errors.Is(err, preprocess.ErrInvalidParams) {
				err = fmt.Errorf("%w: %w", ErrConfiguration, err)
			}

			return party, err
		}

		if w == nil {
			continue
		}

		dets, err := d.matchSubgroups(ctx, group, w)
		if err != nil {
			party.Finalize(d.cfg.TrigInt)
			return party, err
		}

		for _, f := range dets {
			party.Add(f)
		}
	}

	party.Finalize(d.cfg.TrigInt)

	return party, nil
}

func (d *Detector) chunker(group []*template.Template) *Chunker {
	overlap := d.cfg.Overlap.Duration()
	if d.cfg.Overlap.IsAuto() {
		for _, t := range group {
			overlap = max(overlap, t.Span())
		}
	}

	if d.cfg.DayLong && group[0].Processing.ProcessLength != 24*time.Hour {
		d.log.Warn("templates were not processed as day-long data, processing day-long anyway",
			zap.Duration("process_length", group[0].Processing.ProcessLength))
	}

	return &Chunker{
		Processing:   group[0].Processing,
		Overlap:      overlap,
		DayLong:      d.cfg.DayLong,
		IgnoreLength: d.cfg.IgnoreLength,
		Processor:    d.cfg.Processor,
		Workers:      d.cfg.Workers,
		Logger:       d.log,
	}
}

// preparedWindow turns an already processed stream into a single window
// over the interval every channel covers.
func preparedWindow(st waveform.Stream, rate float64) (*Window, error) {
	start, end := st[0].StartTime, st[0].EndTime()
	for i := range st {
		if st[i].StartTime.After(start) {
			start = st[i].StartTime
		}

		if e := st[i].EndTime(); e.Before(end) {
			end = e
		}
	}

	// Include the last common sample.
	end = end.Add(waveform.Seconds(0.5 / rate))

	cut := st.Slice(start, end)

	n := cut[0].Len()
	for i := range cut {
		n = min(n, cut[i].Len())
	}

	if n == 0 {
		return nil, fmt.Errorf("%w: pre-processed channels do not overlap", ErrDataQuality)
	}

	for i := range cut {
		cut[i].Data = cut[i].Data[:n]
	}

	return &Window{Start: cut[0].StartTime, SampleRate: rate, Stream: cut}, nil
}

// matchSubgroups runs MatchWindow on GroupSize-sized slices of the group
// and returns one Family per template that produced detections.
func (d *Detector) matchSubgroups(ctx context.Context, group []*template.Template, w *Window) ([]*Family, error) {
	size := d.cfg.GroupSize
	if size <= 0 || size > len(group) {
		size = len(group)
	}

	var out []*Family

	for lo := 0; lo < len(group); lo += size {
		sub := group[lo:min(lo+size, len(group))]

		dets, err := d.MatchWindow(ctx, sub, w)
		if err != nil {
			return nil, err
		}

		byName := make(map[string]*Family, len(sub))
		for _, t := range sub {
			byName[t.Name] = &Family{Template: t}
		}

		for _, det := range dets {
			f := byName[det.TemplateName]
			f.Detections = append(f.Detections, det)
		}

		for _, t := range sub {
			if f := byName[t.Name]; f.Len() > 0 {
				out = append(out, f)
			}
		}
	}

	return out, nil
}

// MatchWindow correlates a compatible group against one processed window
// and returns the detections, ordered by template then time.
func (d *Detector) MatchWindow(ctx context.Context, group []*template.Template, w *Window) ([]*Detection, error) {
	log := d.log.With(zap.Int("window", w.Index), zap.Time("start", w.Start))

	if rate := group[0].Processing.SampleRate; !sameRate(w.SampleRate, rate) {
		return nil, fmt.Errorf("%w: window sampled at %g Hz, templates at %g Hz", ErrDataQuality, w.SampleRate, rate)
	}

	cc, err := d.backend.Correlate(ctx, group, w, d.cfg.Workers)
	if err != nil {
		return nil, err
	}

	for i, sum := range cc.Sums {
		if len(sum) == 0 {
			return nil, fmt.Errorf("%w: empty correlation sum for %s", ErrCorrelation, group[i].Name)
		}
	}

	thresholds := Thresholds(d.cfg.ThresholdType, d.cfg.Threshold, cc.Sums, cc.NoChans)

	for i, sum := range cc.Sums {
		if mean := robust.Mean(sum); math.Abs(mean) > meanTolerance && cc.NoChans[i] > 0 {
			log.Warn("mean of correlation sum is not zero, check the data",
				zap.String("template", group[i].Name), zap.Float64("mean", mean))
		}

		if d.cfg.ExportDir != "" {
			path, err := exportCCCSum(d.cfg.ExportDir, group[i].Name, w.Start, w.End(), sum)
			if err != nil {
				return nil, err
			}

			log.Debug("exported correlation sum", zap.String("path", path))
		}
	}

	minSep := int(d.cfg.TrigInt.Seconds() * w.SampleRate)
	peaks := make([][]Peak, len(group))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, d.cfg.Workers))

	for i := range group {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			peaks[i] = FindPeaks(cc.Sums[i], thresholds[i], minSep, d.cfg.FullPeaks)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var dets []*Detection

	for i, t := range group {
		for _, p := range peaks[i] {
			dets = append(dets, &Detection{
				TemplateName:   t.Name,
				DetectTime:     w.Start.Add(waveform.Seconds(float64(p.Index) / w.SampleRate)),
				NoChans:        cc.NoChans[i],
				DetectVal:      p.Value,
				Threshold:      thresholds[i],
				ThresholdType:  d.cfg.ThresholdType,
				ThresholdInput: d.cfg.Threshold,
				Channels:       append([]waveform.ChannelID(nil), cc.Channels[i]...),
			})
		}
	}

	log.Info("window correlated", zap.Int("templates", len(group)), zap.Int("detections", len(dets)))

	return dets, nil
}
