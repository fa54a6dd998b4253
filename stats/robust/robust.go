// Package robust provides order statistics used for noise-adaptive
// thresholds and data-quality tests.
package robust

import (
	"math"
	"slices"

	vecmath "github.com/cwbudde/algo-vecmath"
)

// Median returns the median of x, averaging the two middle values for even
// lengths. NaN for an empty slice. x is not modified.
func Median(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}

	s := slices.Clone(x)
	slices.Sort(s)

	return sortedMedian(s)
}

// MedianAbs returns the median of |x|. For a zero-mean trace this is the
// median absolute deviation.
func MedianAbs(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}

	return sortedMedian(sortedAbs(x))
}

// AbsQuantile returns the largest of the lowest fraction q of |x| values,
// i.e. the element at index int(q*len)-1 of the sorted magnitudes. q is
// clamped to (0, 1]; at least one element is always considered.
func AbsQuantile(x []float64, q float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}

	s := sortedAbs(x)

	k := int(math.Min(1, math.Max(q, 0)) * float64(len(s)))
	if k < 1 {
		k = 1
	}

	return s[k-1]
}

// Mean returns the arithmetic mean of x, or 0 for an empty slice.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}

	return vecmath.Sum(x) / float64(len(x))
}

// MeanVariance returns the mean and population variance of x using
// Welford's update.
func MeanVariance(x []float64) (mean, variance float64) {
	var m2 float64

	for i, v := range x {
		d := v - mean
		mean += d / float64(i+1)
		m2 += d * (v - mean)
	}

	if len(x) > 0 {
		variance = m2 / float64(len(x))
	}

	return mean, variance
}

func sortedAbs(x []float64) []float64 {
	s := make([]float64, len(x))
	for i, v := range x {
		s[i] = math.Abs(v)
	}

	slices.Sort(s)

	return s
}

func sortedMedian(s []float64) float64 {
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}

	return 0.5 * (s[n/2-1] + s[n/2])
}
