package detect

import (
	"slices"
	"time"

	"github.com/cwbudde/algo-matchfilter/template"
)

// Family groups the detections of one template.
type Family struct {
	Template   *template.Template
	Detections []*Detection
}

// Name returns the template name.
func (f *Family) Name() string { return f.Template.Name }

// Len returns the number of detections.
func (f *Family) Len() int { return len(f.Detections) }

// Sort orders detections by time.
func (f *Family) Sort() {
	slices.SortStableFunc(f.Detections, func(a, b *Detection) int {
		return a.DetectTime.Compare(b.DetectTime)
	})
}

// Decluster removes detections that lie within trigInt of a stronger
// detection of the same family, keeping the one with the larger DetectVal.
// Ties go to the earlier detection. The result is sorted by time, and
// running it again changes nothing.
func (f *Family) Decluster(trigInt time.Duration) {
	f.Sort()

	if trigInt <= 0 || len(f.Detections) < 2 {
		f.Detections = dedupeExact(f.Detections)
		return
	}

	order := slices.Clone(f.Detections)
	slices.SortStableFunc(order, func(a, b *Detection) int {
		switch {
		case a.DetectVal > b.DetectVal:
			return -1
		case a.DetectVal < b.DetectVal:
			return 1
		default:
			return a.DetectTime.Compare(b.DetectTime)
		}
	})

	var kept []*Detection

	for _, d := range order {
		clash := false

		for _, k := range kept {
			if absDuration(k.DetectTime.Sub(d.DetectTime)) < trigInt {
				clash = true
				break
			}
		}

		if !clash {
			kept = append(kept, d)
		}
	}

	f.Detections = kept
	f.Sort()
}

// dedupeExact drops detections repeating the time of their predecessor,
// as produced when overlapping windows see the same peak. Input must be
// sorted.
func dedupeExact(ds []*Detection) []*Detection {
	if len(ds) < 2 {
		return ds
	}

	out := ds[:1]

	for _, d := range ds[1:] {
		last := out[len(out)-1]
		if d.DetectTime.Equal(last.DetectTime) {
			if d.DetectVal > last.DetectVal {
				out[len(out)-1] = d
			}

			continue
		}

		out = append(out, d)
	}

	return out
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}

	return d
}
