package xcorr

import (
	"errors"
	"fmt"
	"math"

	vecmath "github.com/cwbudde/algo-vecmath"
)

// Errors returned by the correlation kernels.
var (
	ErrEmptyInput = errors.New("xcorr: empty input")
	// ErrTooShort is returned when the template is longer than the data.
	ErrTooShort = errors.New("xcorr: data shorter than template")
	// ErrNormalization is returned when a coefficient falls outside [-1, 1]
	// by more than Tolerance.
	ErrNormalization = errors.New("xcorr: normalization error")
)

const (
	// Tolerance is how far beyond ±1 a coefficient may drift from rounding
	// before it is treated as a normalization failure. Values within the
	// tolerance are clamped.
	Tolerance = 0.01

	// varianceFloor is the window variance, relative to the mean power of
	// the whole segment, below which a coefficient is forced to zero.
	varianceFloor = 1e-10
)

// Normalize returns the template with its mean removed, scaled to unit
// L2 norm. A constant template has no defined shape and is returned as
// zeros.
func Normalize(template []float64) []float64 {
	out := make([]float64, len(template))
	if len(template) == 0 {
		return out
	}

	mean := vecmath.Sum(template) / float64(len(template))
	for i, v := range template {
		out[i] = v - mean
	}

	norm := math.Sqrt(vecmath.DotProduct(out, out))
	if norm == 0 {
		clear(out)
		return out
	}

	vecmath.ScaleBlockInPlace(out, 1/norm)

	return out
}

// NormalizedTime correlates template against data with direct dot products.
// The result has len(data)-len(template)+1 samples.
func NormalizedTime(template, data []float64) ([]float64, error) {
	if err := checkLengths(len(template), len(data)); err != nil {
		return nil, err
	}

	m := len(template)
	t := Normalize(template)
	norms := newWindowNorms(data, m)
	out := make([]float64, len(data)-m+1)

	for k := range out {
		if !norms.usable(k) {
			continue
		}

		out[k] = vecmath.DotProduct(t, data[k:k+m]) / norms.norm(k)
	}

	return finish(out)
}

func checkLengths(m, n int) error {
	if m == 0 || n == 0 {
		return ErrEmptyInput
	}

	if m > n {
		return fmt.Errorf("%w: template %d samples, data %d", ErrTooShort, m, n)
	}

	return nil
}

// windowNorms holds the demeaned energy of every length-m window of a data
// segment. Because the template is zero-mean, the window mean drops out of
// the numerator and only the denominator needs it.
type windowNorms struct {
	energy []float64
	floor  float64
}

func newWindowNorms(data []float64, m int) windowNorms {
	n := len(data)
	offset := vecmath.Sum(data) / float64(n)

	// Prefix sums of the globally demeaned data keep cancellation small.
	s1 := make([]float64, n+1)
	s2 := make([]float64, n+1)

	for i, v := range data {
		d := v - offset
		s1[i+1] = s1[i] + d
		s2[i+1] = s2[i] + d*d
	}

	energy := make([]float64, n-m+1)
	for k := range energy {
		sum := s1[k+m] - s1[k]
		e := (s2[k+m] - s2[k]) - sum*sum/float64(m)
		energy[k] = math.Max(e, 0)
	}

	meanPower := s2[n] / float64(n)

	return windowNorms{energy: energy, floor: varianceFloor * meanPower * float64(m)}
}

func (w windowNorms) usable(k int) bool {
	return w.energy[k] > w.floor && w.energy[k] > 0
}

func (w windowNorms) norm(k int) float64 {
	return math.Sqrt(w.energy[k])
}

// finish replaces NaN with zero and clamps values within Tolerance of ±1.
func finish(cc []float64) ([]float64, error) {
	var bad int

	for i, v := range cc {
		switch {
		case math.IsNaN(v):
			cc[i] = 0
		case math.Abs(v) > 1+Tolerance:
			bad++
		case v > 1:
			cc[i] = 1
		case v < -1:
			cc[i] = -1
		}
	}

	if bad > 0 {
		return cc, fmt.Errorf("%w: %d values beyond ±%g", ErrNormalization, bad, 1+Tolerance)
	}

	return cc, nil
}
