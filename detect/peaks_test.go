package detect

import (
	"reflect"
	"testing"
)

func TestFindPeaksFastMode(t *testing.T) {
	x := []float64{0, 1, 3, 2, 0, 0, 4, 5, 4, 0, 2, 0}

	got := FindPeaks(x, 1.5, 0, false)
	want := []Peak{{Index: 2, Value: 3}, {Index: 7, Value: 5}, {Index: 10, Value: 2}}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FindPeaks = %v, want %v", got, want)
	}
}

func TestFindPeaksStrictThreshold(t *testing.T) {
	x := []float64{0, 2, 0, 2.5, 0}

	got := FindPeaks(x, 2, 0, false)
	if len(got) != 1 || got[0].Index != 3 {
		t.Fatalf("FindPeaks = %v, want only the peak above threshold", got)
	}
}

func TestFindPeaksFullMode(t *testing.T) {
	// Two local maxima inside one run above threshold.
	x := []float64{0, 3, 2, 4, 4, 1, 0}

	fast := FindPeaks(x, 1, 0, false)
	if len(fast) != 1 || fast[0].Index != 3 {
		t.Fatalf("fast = %v, want single peak at 3", fast)
	}

	full := FindPeaks(x, 1, 0, true)
	want := []Peak{{Index: 1, Value: 3}, {Index: 3, Value: 4}}

	if !reflect.DeepEqual(full, want) {
		t.Fatalf("full = %v, want %v", full, want)
	}
}

func TestFindPeaksMinSeparation(t *testing.T) {
	x := make([]float64, 100)
	x[10] = 3
	x[14] = 5
	x[20] = 4
	x[60] = 2

	got := FindPeaks(x, 1, 8, true)
	want := []Peak{{Index: 14, Value: 5}, {Index: 60, Value: 2}}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FindPeaks = %v, want %v", got, want)
	}

	for i := 1; i < len(got); i++ {
		if got[i].Index-got[i-1].Index < 8 {
			t.Fatalf("peaks %v and %v closer than 8 samples", got[i-1], got[i])
		}
	}
}

func TestFindPeaksTieKeepsEarlier(t *testing.T) {
	x := []float64{0, 2, 0, 0, 2, 0}

	got := FindPeaks(x, 1, 5, true)
	if len(got) != 1 || got[0].Index != 1 {
		t.Fatalf("FindPeaks = %v, want the earlier of two equal peaks", got)
	}
}

func TestFindPeaksNoneAbove(t *testing.T) {
	if got := FindPeaks([]float64{0.1, 0.2, 0.1}, 1, 0, false); len(got) != 0 {
		t.Fatalf("FindPeaks = %v, want none", got)
	}

	if got := FindPeaks(nil, 0, 10, true); got != nil {
		t.Fatalf("FindPeaks(nil) = %v, want nil", got)
	}
}
