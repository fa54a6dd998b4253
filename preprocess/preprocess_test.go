package preprocess

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/cwbudde/algo-matchfilter/internal/testutil"
	"github.com/cwbudde/algo-matchfilter/template"
)

var t0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func params() Params {
	return FromProcessing(template.Processing{
		LowCut: 2, HighCut: 8, FilterOrder: 4, SampleRate: 50, ProcessLength: time.Minute,
	}, t0, time.Minute)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"highcut at nyquist", func(p *Params) { p.HighCut = 25 }},
		{"no rate", func(p *Params) { p.SampleRate = 0 }},
		{"no length", func(p *Params) { p.Length = 0 }},
		{"inverted band", func(p *Params) { p.LowCut = 10 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := params()
			tt.mutate(&p)

			if err := p.Validate(); !errors.Is(err, ErrInvalidParams) {
				t.Fatalf("Validate() = %v, want ErrInvalidParams", err)
			}

			tr := testutil.Trace("A", t0, 50, testutil.DeterministicNoise(1, 1, 3000))
			if _, err := (Default{}).Process(context.Background(), tr, p); !errors.Is(err, ErrInvalidParams) {
				t.Fatalf("Process() = %v, want ErrInvalidParams", err)
			}
		})
	}
}

func TestProcessFillsWindow(t *testing.T) {
	p := params()
	tr := testutil.Trace("A", t0.Add(10*time.Second), 100, testutil.DeterministicNoise(1, 1, 4000))

	out, err := (Default{}).Process(context.Background(), tr, p)
	if err != nil {
		t.Fatal(err)
	}

	if out.Len() != 3000 || out.SampleRate != 50 || !out.StartTime.Equal(t0) {
		t.Fatalf("out = %d samples at %g Hz from %v", out.Len(), out.SampleRate, out.StartTime)
	}

	for i := range 500 {
		if out.Data[i] != 0 {
			t.Fatalf("sample %d before data start = %v, want 0", i, out.Data[i])
		}
	}

	if out.Data[1000] == 0 {
		t.Fatal("data missing after start offset")
	}

	testutil.RequireFinite(t, out.Data)

	if tr.Data[0] == 0 {
		t.Fatal("input modified")
	}
}

func TestProcessDeadChannel(t *testing.T) {
	data := testutil.DeterministicNoise(1, 1, 3000)
	for i := range 2000 {
		data[i] = 0
	}

	out, err := (Default{}).Process(context.Background(), testutil.Trace("A", t0, 50, data), params())
	if err != nil {
		t.Fatal(err)
	}

	if out.Len() != 0 {
		t.Fatalf("len = %d, want 0 for a mostly-zero channel", out.Len())
	}
}

func TestProcessCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := testutil.Trace("A", t0, 50, testutil.DeterministicNoise(1, 1, 3000))
	if _, err := (Default{}).Process(ctx, tr, params()); !errors.Is(err, context.Canceled) {
		t.Fatalf("Process() = %v, want context.Canceled", err)
	}
}

func TestDetrend(t *testing.T) {
	in := []float64{1, 3, 5, 7}
	testutil.RequireSliceNearlyEqual(t, Detrend(in), []float64{0, 0, 0, 0}, 1e-12)

	if got := Detrend([]float64{4}); got[0] != 0 {
		t.Fatalf("Detrend single = %v", got)
	}
}

func TestPlace(t *testing.T) {
	testutil.RequireSliceNearlyEqual(t, Place([]float64{1, 2, 3}, 2, 4), []float64{0, 0, 1, 2}, 0)
	testutil.RequireSliceNearlyEqual(t, Place([]float64{1, 2, 3}, -1, 4), []float64{2, 3, 0, 0}, 0)
}

func TestSamples(t *testing.T) {
	p := params()
	if p.Samples() != 3000 {
		t.Fatalf("Samples() = %d", p.Samples())
	}

	p.Length = 1500 * time.Millisecond
	p.SampleRate = 3

	if got := p.Samples(); got != int(math.Round(4.5)) {
		t.Fatalf("Samples() = %d", got)
	}
}

func TestProcessTaper(t *testing.T) {
	p := params()
	tr := testutil.Trace("A", t0.Add(10*time.Second), 100, testutil.DeterministicNoise(1, 1, 4000))

	energy := func(d Default) float64 {
		out, err := d.Process(context.Background(), tr, p)
		if err != nil {
			t.Fatal(err)
		}

		var e float64
		for _, v := range out.Data[500:600] {
			e += v * v
		}

		return e
	}

	plain := energy(Default{})
	tapered := energy(Default{Taper: 0.5})

	if !(tapered < 0.25*plain) {
		t.Fatalf("tapered onset energy %v not well below untapered %v", tapered, plain)
	}
}
