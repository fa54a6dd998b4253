package detect

import (
	"slices"
)

// Peak is one accepted maximum of a correlation sum.
type Peak struct {
	Index int
	Value float64
}

// FindPeaks returns local maxima of x strictly above threshold such that no
// two accepted peaks are closer than minSep samples. Stronger peaks win;
// ties go to the earlier sample. The result is ordered by index.
//
// In fast mode each contiguous run above threshold contributes only its
// largest sample; with full set every local maximum is a candidate.
func FindPeaks(x []float64, threshold float64, minSep int, full bool) []Peak {
	var candidates []Peak
	if full {
		candidates = localMaxima(x, threshold)
	} else {
		candidates = runMaxima(x, threshold)
	}

	return decluster(candidates, minSep)
}

func localMaxima(x []float64, threshold float64) []Peak {
	var out []Peak

	n := len(x)
	for i := 0; i < n; i++ {
		v := x[i]
		if !(v > threshold) {
			continue
		}

		if i > 0 && x[i-1] >= v {
			continue
		}

		// Walk a plateau; its first sample is the candidate.
		j := i
		for j+1 < n && x[j+1] == v {
			j++
		}

		if j+1 < n && x[j+1] > v {
			continue
		}

		out = append(out, Peak{Index: i, Value: v})
		i = j
	}

	return out
}

func runMaxima(x []float64, threshold float64) []Peak {
	var out []Peak

	inRun := false

	var best Peak

	for i, v := range x {
		above := v > threshold

		switch {
		case above && !inRun:
			inRun = true
			best = Peak{Index: i, Value: v}
		case above && v > best.Value:
			best = Peak{Index: i, Value: v}
		case !above && inRun:
			inRun = false

			out = append(out, best)
		}
	}

	if inRun {
		out = append(out, best)
	}

	return out
}

// decluster keeps the strongest candidates subject to the minimum
// separation.
func decluster(candidates []Peak, minSep int) []Peak {
	if len(candidates) == 0 {
		return nil
	}

	if minSep <= 1 {
		return candidates
	}

	order := slices.Clone(candidates)
	slices.SortStableFunc(order, func(a, b Peak) int {
		switch {
		case a.Value > b.Value:
			return -1
		case a.Value < b.Value:
			return 1
		default:
			return a.Index - b.Index
		}
	})

	var kept []Peak

	for _, c := range order {
		if !tooClose(kept, c.Index, minSep) {
			kept = append(kept, c)
		}
	}

	slices.SortFunc(kept, func(a, b Peak) int { return a.Index - b.Index })

	return kept
}

func tooClose(kept []Peak, idx, minSep int) bool {
	for _, k := range kept {
		d := k.Index - idx
		if d < 0 {
			d = -d
		}

		if d < minSep {
			return true
		}
	}

	return false
}
