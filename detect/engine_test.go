package detect

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cwbudde/algo-matchfilter/internal/testutil"
	"github.com/cwbudde/algo-matchfilter/template"
	"github.com/cwbudde/algo-matchfilter/waveform"
)

// canned returns fixed correlation sums looked up by template name, laid
// out in the order of the group it is called with.
type canned struct {
	sums    map[string][]float64
	noChans map[string]int
	calls   atomic.Int32
}

func (c *canned) Correlate(_ context.Context, group []*template.Template, _ *Window, _ int) (*Correlations, error) {
	c.calls.Add(1)

	out := &Correlations{
		Sums:     make([][]float64, len(group)),
		NoChans:  make([]int, len(group)),
		Channels: make([][]waveform.ChannelID, len(group)),
	}

	for i, t := range group {
		out.Sums[i] = c.sums[t.Name]
		out.NoChans[i] = c.noChans[t.Name]
		out.Channels[i] = t.Stream.IDs()[:c.noChans[t.Name]]
	}

	return out, nil
}

func registerBackend(t *testing.T, name string, b Backend) {
	t.Helper()

	RegisterBackend(name, b)
	t.Cleanup(func() {
		backendsMu.Lock()
		delete(backends, name)
		backendsMu.Unlock()
	})
}

func TestCustomBackend(t *testing.T) {
	const n = 1000

	st, a := twoStation(200)
	a.Name = "a"
	b := &template.Template{Name: "b", Processing: a.Processing, Stream: a.Stream.Copy()}

	sumA := make([]float64, n)
	sumA[200], sumA[201], sumA[600] = 1.8, 1.7, 1.6

	sumB := make([]float64, n)
	sumB[400], sumB[800] = -3, 2.5

	backend := &canned{
		sums:    map[string][]float64{"a": sumA, "b": sumB},
		noChans: map[string]int{"a": 2, "b": 1},
	}
	registerBackend(t, "canned", backend)

	d, err := New(WithBackend("canned"), WithThreshold(0.8, AvChanCorr), WithTrigInt(time.Second))
	if err != nil {
		t.Fatalf("New error = %v", err)
	}

	// The backend is resolved when the detector is built.
	registerBackend(t, "canned", &canned{})

	w := &Window{
		Start:      t0,
		SampleRate: testRate,
		Stream: waveform.Stream{
			st[0].Slice(t0, t0.Add(20*time.Second)),
			st[1].Slice(t0, t0.Add(20*time.Second)),
		},
	}

	want := map[string]struct {
		at        time.Duration
		val       float64
		noChans   int
		threshold float64
	}{
		"a": {at: 4 * time.Second, val: 1.8, noChans: 2, threshold: 1.6},
		"b": {at: 16 * time.Second, val: 2.5, noChans: 1, threshold: 0.8},
	}

	for _, group := range [][]*template.Template{{a, b}, {b, a}} {
		dets, err := d.MatchWindow(context.Background(), group, w)
		if err != nil {
			t.Fatalf("MatchWindow error = %v", err)
		}

		if len(dets) != 2 {
			t.Fatalf("detections = %d, want 2", len(dets))
		}

		for _, det := range dets {
			exp := want[det.TemplateName]

			if got := det.DetectTime.Sub(t0); got != exp.at {
				t.Errorf("%s: detect time %s, want %s", det.TemplateName, got, exp.at)
			}

			testutil.RequireNear(t, det.TemplateName+" value", det.DetectVal, exp.val, 0)
			testutil.RequireNear(t, det.TemplateName+" threshold", det.Threshold, exp.threshold, 1e-12)

			if det.NoChans != exp.noChans || len(det.Channels) != exp.noChans {
				t.Errorf("%s: %d channels (%v), want %d", det.TemplateName, det.NoChans, det.Channels, exp.noChans)
			}
		}
	}

	if got := backend.calls.Load(); got != 2 {
		t.Fatalf("backend calls = %d, want 2", got)
	}
}
