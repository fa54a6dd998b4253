package detect

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/cwbudde/algo-matchfilter/internal/testutil"
	"github.com/cwbudde/algo-matchfilter/template"
	"github.com/cwbudde/algo-matchfilter/waveform"
)

const testRate = 50.0

var testProcessing = template.Processing{
	LowCut:        2,
	HighCut:       8,
	FilterOrder:   4,
	SampleRate:    testRate,
	ProcessLength: 200 * time.Second,
}

// twoStation returns seconds of noise on stations AAA and BBB and a
// template cut from it at 100 s on AAA and 102 s on BBB.
func twoStation(seconds int) (waveform.Stream, *template.Template) {
	n := seconds*int(testRate) + 1

	st := waveform.Stream{
		testutil.Trace("AAA", t0, testRate, testutil.DeterministicNoise(1, 1, n)),
		testutil.Trace("BBB", t0, testRate, testutil.DeterministicNoise(2, 1, n)),
	}

	cut := func(tr waveform.Trace, at time.Duration) waveform.Trace {
		return tr.Slice(t0.Add(at), t0.Add(at+4*time.Second))
	}

	tmpl := &template.Template{
		Name:       "quake",
		Processing: testProcessing,
		Stream: waveform.Stream{
			cut(st[0], 100*time.Second),
			cut(st[1], 102*time.Second),
		},
	}

	return st, tmpl
}

func TestDetectAlignsChannelOffsets(t *testing.T) {
	st, tmpl := twoStation(200)

	for _, backend := range []string{"time", "fft"} {
		t.Run(backend, func(t *testing.T) {
			d, err := New(
				WithBackend(backend),
				WithThreshold(1.5, Absolute),
				WithPreProcessed(true),
				WithLogger(zaptest.NewLogger(t)),
			)
			if err != nil {
				t.Fatalf("New error = %v", err)
			}

			party, err := d.Detect(context.Background(), []*template.Template{tmpl}, st)
			if err != nil {
				t.Fatalf("Detect error = %v", err)
			}

			dets := party.Detections()
			if len(dets) != 1 {
				t.Fatalf("detections = %d, want 1", len(dets))
			}

			got := dets[0]
			if off := got.DetectTime.Sub(t0); off != 100*time.Second {
				t.Fatalf("detect time = %s after start, want 100s", off)
			}

			testutil.RequireNear(t, "detect_val", got.DetectVal, 2, 1e-6)

			if got.NoChans != 2 || len(got.Channels) != 2 {
				t.Fatalf("channels = %d (%v), want 2", got.NoChans, got.Channels)
			}

			if got.ThresholdType != Absolute || got.Threshold != 1.5 {
				t.Fatalf("threshold = %v %s", got.Threshold, got.ThresholdType)
			}
		})
	}
}

func TestDetectMADFindsEvent(t *testing.T) {
	st, tmpl := twoStation(200)

	d, err := New(WithPreProcessed(true), WithTrigInt(2*time.Second))
	if err != nil {
		t.Fatalf("New error = %v", err)
	}

	party, err := d.Detect(context.Background(), []*template.Template{tmpl}, st)
	if err != nil {
		t.Fatalf("Detect error = %v", err)
	}

	found := false

	for _, det := range party.Detections() {
		if det.DetectTime.Equal(t0.Add(100 * time.Second)) {
			found = true
		}

		if det.DetectVal <= det.Threshold {
			t.Fatalf("detection %s not above its threshold", det)
		}
	}

	if !found {
		t.Fatalf("no detection at 100 s among %d", party.Len())
	}
}

func TestDetectChunkedAcrossWindows(t *testing.T) {
	st, tmpl := twoStation(400)

	d, err := New(
		WithThreshold(1.5, Absolute),
		WithProcessor(passthrough{}),
		WithLogger(zaptest.NewLogger(t)),
	)
	if err != nil {
		t.Fatalf("New error = %v", err)
	}

	party, err := d.Detect(context.Background(), []*template.Template{tmpl}, st)
	if err != nil {
		t.Fatalf("Detect error = %v", err)
	}

	dets := party.Detections()
	if len(dets) != 1 || !dets[0].DetectTime.Equal(t0.Add(100*time.Second)) {
		t.Fatalf("detections = %v, want one at 100 s", dets)
	}

	testutil.RequireNear(t, "detect_val", dets[0].DetectVal, 2, 1e-6)
}

func TestDetectIsDeterministic(t *testing.T) {
	st, tmpl := twoStation(200)

	other := &template.Template{
		Name:       "other",
		Processing: testProcessing,
		Stream: waveform.Stream{
			st[0].Slice(t0.Add(50*time.Second), t0.Add(54*time.Second)),
			st[1].Slice(t0.Add(51*time.Second), t0.Add(55*time.Second)),
		},
	}

	run := func() []Detection {
		d, err := New(WithPreProcessed(true), WithWorkers(3), WithThreshold(0.3, AvChanCorr))
		if err != nil {
			t.Fatalf("New error = %v", err)
		}

		party, err := d.Detect(context.Background(), []*template.Template{tmpl, other}, st)
		if err != nil {
			t.Fatalf("Detect error = %v", err)
		}

		var out []Detection
		for _, det := range party.Detections() {
			out = append(out, *det)
		}

		return out
	}

	first := run()
	if len(first) < 2 {
		t.Fatalf("detections = %d, want both templates to detect", len(first))
	}

	if second := run(); !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated run differs")
	}
}

func TestDetectRejectsIncompatibleGroup(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*template.Template)
	}{
		{"process length", func(tm *template.Template) { tm.Processing.ProcessLength = time.Hour }},
		{"band", func(tm *template.Template) { tm.Processing.HighCut = 9 }},
		{"filter order", func(tm *template.Template) { tm.Processing.FilterOrder = 3 }},
		{"sample rate", func(tm *template.Template) {
			tm.Processing.SampleRate = 100
			for i := range tm.Stream {
				tm.Stream[i].SampleRate = 100
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, tmpl := twoStation(200)

			other := &template.Template{Name: "other", Processing: tmpl.Processing, Stream: tmpl.Stream.Copy()}
			tt.mutate(other)

			// Correlation would panic on a nil backend; failing early
			// means it is never reached.
			d, err := New(WithPreProcessed(true))
			if err != nil {
				t.Fatalf("New error = %v", err)
			}

			d.backend = nil

			_, err = d.Detect(context.Background(), []*template.Template{tmpl, other}, st)
			if !errors.Is(err, ErrConfiguration) || !errors.Is(err, template.ErrIncompatible) {
				t.Fatalf("error = %v, want ErrConfiguration wrapping ErrIncompatible", err)
			}
		})
	}
}

func TestDetectRejectsDuplicateNames(t *testing.T) {
	st, tmpl := twoStation(200)

	twin := &template.Template{
		Name:       tmpl.Name,
		Processing: testProcessing,
		Stream: waveform.Stream{
			st[0].Slice(t0.Add(50*time.Second), t0.Add(54*time.Second)),
			st[1].Slice(t0.Add(52*time.Second), t0.Add(56*time.Second)),
		},
	}

	d, err := New(WithPreProcessed(true))
	if err != nil {
		t.Fatalf("New error = %v", err)
	}

	d.backend = nil

	party, err := d.Detect(context.Background(), []*template.Template{tmpl, twin}, st)
	if !errors.Is(err, ErrConfiguration) || !errors.Is(err, template.ErrInvalid) {
		t.Fatalf("error = %v, want ErrConfiguration wrapping ErrInvalid", err)
	}

	if party != nil && len(party.Detections()) != 0 {
		t.Fatalf("detections = %d, want none", len(party.Detections()))
	}
}

func TestDetectAllChannelsShort(t *testing.T) {
	full, tmpl := twoStation(400)

	// AAA covers 140 s of the first window, BBB 138 s of the second.
	st := waveform.Stream{
		full[0].Slice(t0, t0.Add(140*time.Second)),
		full[1].Slice(t0.Add(260*time.Second), t0.Add(400*time.Second+time.Millisecond)),
	}

	logger, logs := observed(zap.WarnLevel)

	d, err := New(WithProcessor(passthrough{}), WithLogger(logger))
	if err != nil {
		t.Fatalf("New error = %v", err)
	}

	party, err := d.Detect(context.Background(), []*template.Template{tmpl}, st)
	if err != nil {
		t.Fatalf("Detect error = %v", err)
	}

	if party.Len() != 0 || len(party.Families()) != 1 {
		t.Fatalf("party = %d detections in %d families, want one empty family", party.Len(), len(party.Families()))
	}

	if logs.FilterMessageSnippet("80%").Len() != 2 {
		t.Fatalf("want two coverage warnings, got %v", logs.All())
	}
}

func TestDetectRejectsHighcutAboveNyquist(t *testing.T) {
	st, tmpl := twoStation(200)
	tmpl.Processing.HighCut = 30

	d, err := New()
	if err != nil {
		t.Fatalf("New error = %v", err)
	}

	if _, err := d.Detect(context.Background(), []*template.Template{tmpl}, st); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("error = %v, want ErrConfiguration", err)
	}
}

func TestNewRejectsBadOptions(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"threshold type", []Option{WithThreshold(1, ThresholdType("median"))}},
		{"backend", []Option{WithBackend("gpu")}},
		{"trig int", []Option{WithTrigInt(-time.Second)}},
		{"group size", []Option{WithGroupSize(-1)}},
		{"processor", []Option{WithProcessor(nil)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.opts...); !errors.Is(err, ErrConfiguration) {
				t.Fatalf("error = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestDetectDataQuality(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(waveform.Stream) waveform.Stream
	}{
		{"masked gap", func(st waveform.Stream) waveform.Stream {
			st[1].Data[500] = math.NaN()
			return st
		}},
		{"spike", func(st waveform.Stream) waveform.Stream {
			st[1].Data[500] = 1e9
			return st
		}},
		{"duplicate channel", func(st waveform.Stream) waveform.Stream {
			extra := st[1].Slice(t0.Add(150*time.Second), t0.Add(160*time.Second))
			extra.StartTime = t0.Add(300 * time.Second)

			return append(st, extra)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, tmpl := twoStation(200)
			st = tt.mutate(st.Copy())

			d, err := New(WithPreProcessed(true), WithThreshold(0.75, AvChanCorr))
			if err != nil {
				t.Fatalf("New error = %v", err)
			}

			if _, err := d.Detect(context.Background(), []*template.Template{tmpl}, st); !errors.Is(err, ErrDataQuality) {
				t.Fatalf("error = %v, want ErrDataQuality", err)
			}

			d, err = New(WithPreProcessed(true), WithThreshold(0.75, AvChanCorr), WithIgnoreBadData(true))
			if err != nil {
				t.Fatalf("New error = %v", err)
			}

			party, err := d.Detect(context.Background(), []*template.Template{tmpl}, st)
			if err != nil {
				t.Fatalf("Detect with bad data ignored error = %v", err)
			}

			dets := party.Detections()
			if len(dets) != 1 || dets[0].NoChans != 1 {
				t.Fatalf("detections = %v, want one single-channel detection", dets)
			}
		})
	}
}

func TestDetectNoMatchingChannels(t *testing.T) {
	_, tmpl := twoStation(200)
	st := waveform.Stream{testutil.Trace("ZZZ", t0, testRate, testutil.DeterministicNoise(3, 1, 10001))}

	d, err := New(WithPreProcessed(true))
	if err != nil {
		t.Fatalf("New error = %v", err)
	}

	party, err := d.Detect(context.Background(), []*template.Template{tmpl}, st)
	if err != nil {
		t.Fatalf("Detect error = %v", err)
	}

	if f, ok := party.Family("quake"); !ok || f.Len() != 0 {
		t.Fatalf("want an empty family for quake")
	}
}

func TestDetectCancelled(t *testing.T) {
	st, tmpl := twoStation(400)

	d, err := New(WithProcessor(passthrough{}))
	if err != nil {
		t.Fatalf("New error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	party, err := d.Detect(ctx, []*template.Template{tmpl}, st)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}

	if party == nil || party.Len() != 0 {
		t.Fatalf("want an empty partial party")
	}
}

func TestDetectExportsCorrelationSums(t *testing.T) {
	st, tmpl := twoStation(200)
	dir := t.TempDir()

	d, err := New(WithPreProcessed(true), WithThreshold(1.5, Absolute), WithExportDir(dir))
	if err != nil {
		t.Fatalf("New error = %v", err)
	}

	if _, err := d.Detect(context.Background(), []*template.Template{tmpl}, st); err != nil {
		t.Fatalf("Detect error = %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "quake-*_cccsum.npy"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("exported files = %v, %v", matches, err)
	}

	f, err := os.Open(matches[0])
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	sum, err := ReadNPY(f)
	if err != nil {
		t.Fatalf("ReadNPY error = %v", err)
	}

	if want := st[0].Len() - tmpl.Len() + 1; len(sum) != want {
		t.Fatalf("sum length = %d, want %d", len(sum), want)
	}

	idx, peak := testutil.ArgMax(sum)
	if idx != 5000 {
		t.Fatalf("peak at %d, want 5000", idx)
	}

	testutil.RequireNear(t, "peak", peak, 2, 1e-6)
}

func TestDetectTribe(t *testing.T) {
	st, tmpl := twoStation(200)

	slow := &template.Template{
		Name:       "slow",
		Processing: testProcessing,
		Stream:     waveform.Stream{st[0].Slice(t0.Add(20*time.Second), t0.Add(26*time.Second))},
	}
	slow.Processing.LowCut = 1

	tribe := &template.Tribe{Templates: []*template.Template{tmpl, slow}}

	d, err := New(WithPreProcessed(true), WithThreshold(0.9, AvChanCorr))
	if err != nil {
		t.Fatalf("New error = %v", err)
	}

	party, err := d.DetectTribe(context.Background(), tribe, st)
	if err != nil {
		t.Fatalf("DetectTribe error = %v", err)
	}

	if len(party.Families()) != 2 {
		t.Fatalf("families = %d, want 2", len(party.Families()))
	}

	for _, name := range []string{"quake", "slow"} {
		f, ok := party.Family(name)
		if !ok || f.Len() != 1 {
			t.Fatalf("family %s = %v, want one detection", name, f)
		}
	}
}

func TestBackendRegistry(t *testing.T) {
	names := Backends()
	if !reflect.DeepEqual(names, []string{"fft", "time"}) {
		t.Fatalf("Backends = %v", names)
	}

	if _, err := LookupBackend("nope"); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("LookupBackend error = %v, want ErrConfiguration", err)
	}
}
