package template

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/cwbudde/algo-matchfilter/internal/testutil"
	"github.com/cwbudde/algo-matchfilter/waveform"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

var defaultProcessing = Processing{
	LowCut:        2,
	HighCut:       8,
	FilterOrder:   4,
	SampleRate:    50,
	ProcessLength: time.Hour,
}

func newTemplate(name string, offsets ...time.Duration) *Template {
	st := make(waveform.Stream, len(offsets))
	for i, off := range offsets {
		st[i] = waveform.Trace{
			ID:         waveform.ChannelID{Network: "NZ", Station: string(rune('A' + i)), Channel: "HHZ"},
			StartTime:  t0.Add(off),
			SampleRate: defaultProcessing.SampleRate,
			Data:       testutil.DeterministicNoise(int64(i+1), 1, 100),
		}
	}

	return &Template{Name: name, Stream: st, Processing: defaultProcessing}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Template)
	}{
		{"empty name", func(t *Template) { t.Name = "" }},
		{"no channels", func(t *Template) { t.Stream = nil }},
		{"unset rate", func(t *Template) { t.Processing.SampleRate = 0 }},
		{"rate mismatch", func(t *Template) { t.Stream[0].SampleRate = 100 }},
		{"unequal channels", func(t *Template) { t.Stream[1].Data = t.Stream[1].Data[:50] }},
		{"masked sample", func(t *Template) { t.Stream[0].Data[3] = math.NaN() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := newTemplate("a", 0, time.Second)
			tt.mutate(tmpl)

			if err := tmpl.Validate(); !errors.Is(err, ErrInvalid) {
				t.Fatalf("Validate() = %v, want ErrInvalid", err)
			}
		})
	}

	if err := newTemplate("ok", 0).Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
}

func TestValidateGroupMismatch(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Processing)
	}{
		{"process length", func(p *Processing) { p.ProcessLength = 2 * time.Hour }},
		{"band", func(p *Processing) { p.HighCut = 9 }},
		{"sample rate", func(p *Processing) { p.SampleRate = 100 }},
		{"filter order", func(p *Processing) { p.FilterOrder = 3 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTemplate("a", 0)
			b := newTemplate("b", 0)
			tt.mutate(&b.Processing)

			for i := range b.Stream {
				b.Stream[i].SampleRate = b.Processing.SampleRate
			}

			if err := ValidateGroup([]*Template{a, b}); !errors.Is(err, ErrIncompatible) {
				t.Fatalf("ValidateGroup() = %v, want ErrIncompatible", err)
			}
		})
	}
}

func TestValidateGroupLength(t *testing.T) {
	a := newTemplate("a", 0)
	b := newTemplate("b", 0)
	b.Stream[0].Data = b.Stream[0].Data[:80]

	if err := ValidateGroup([]*Template{a, b}); !errors.Is(err, ErrIncompatible) {
		t.Fatalf("ValidateGroup() = %v, want ErrIncompatible", err)
	}

	if err := ValidateGroup(nil); !errors.Is(err, ErrInvalid) {
		t.Fatalf("ValidateGroup(nil) = %v, want ErrInvalid", err)
	}

	if err := ValidateGroup([]*Template{a, newTemplate("c", time.Second)}); err != nil {
		t.Fatalf("ValidateGroup() = %v", err)
	}
}

func TestValidateGroupDuplicateName(t *testing.T) {
	a := newTemplate("a", 0)
	b := newTemplate("a", time.Second)

	err := ValidateGroup([]*Template{a, b})
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("ValidateGroup() = %v, want ErrInvalid", err)
	}

	if errors.Is(err, ErrIncompatible) {
		t.Fatalf("ValidateGroup() = %v, duplicate names are not a processing mismatch", err)
	}
}

func TestSpanAndOffsets(t *testing.T) {
	tmpl := newTemplate("a", 2*time.Second, 0, 500*time.Millisecond)

	if got := tmpl.Span(); got != 2*time.Second {
		t.Fatalf("Span = %v, want 2s", got)
	}

	want := []int{100, 0, 25}
	got := tmpl.Offsets()

	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Offsets = %v, want %v", got, want)
		}
	}
}

func TestTribeGroups(t *testing.T) {
	a := newTemplate("a", 0)
	b := newTemplate("b", 0)
	c := newTemplate("c", 0)
	b.Processing.FilterOrder = 2

	tribe := &Tribe{Templates: []*Template{a, b, c}}

	groups := tribe.Groups()
	if len(groups) != 2 {
		t.Fatalf("len(groups) = %d, want 2", len(groups))
	}

	if len(groups[0]) != 2 || groups[0][0] != a || groups[0][1] != c {
		t.Fatalf("group 0 = %v", groups[0])
	}

	if len(groups[1]) != 1 || groups[1][0] != b {
		t.Fatalf("group 1 = %v", groups[1])
	}

	for _, g := range groups {
		if err := ValidateGroup(g); err != nil {
			t.Fatalf("ValidateGroup(group) = %v", err)
		}
	}
}

func TestTribeValidateDuplicate(t *testing.T) {
	tribe := &Tribe{Templates: []*Template{newTemplate("a", 0), newTemplate("a", 0)}}
	if err := tribe.Validate(); !errors.Is(err, ErrInvalid) {
		t.Fatalf("Validate() = %v, want ErrInvalid", err)
	}

	if _, ok := tribe.Get("a"); !ok {
		t.Fatal("Get(a) not found")
	}
}
