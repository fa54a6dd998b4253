// Package window provides the tapers used around filtering and resampling.
package window

import (
	"errors"
	"fmt"
	"math"

	vecmath "github.com/cwbudde/algo-vecmath"
)

var errMismatchedLength = errors.New("window: samples and coefficients must have same length")

// Hann returns a symmetric Hann window of n samples.
func Hann(n int) []float64 {
	return Tukey(n, 1)
}

// Tukey returns a symmetric cosine taper of n samples. A fraction alpha of
// the window is tapered, half at each end; 0 is rectangular and 1 is Hann.
func Tukey(n int, alpha float64) []float64 {
	out := make([]float64, n)
	alpha = math.Min(math.Max(alpha, 0), 1)

	for i := range out {
		out[i] = tukeyAt(samplePosition(i, n), alpha)
	}

	return out
}

// Taper multiplies data in place by a Tukey window of matching length.
func Taper(data []float64, alpha float64) {
	if len(data) < 2 || alpha <= 0 {
		return
	}

	vecmath.MulBlockInPlace(data, Tukey(len(data), alpha))
}

// Apply multiplies samples by coeffs into a new slice.
func Apply(samples, coeffs []float64) ([]float64, error) {
	if len(samples) != len(coeffs) {
		return nil, fmt.Errorf("%w: %d vs %d", errMismatchedLength, len(samples), len(coeffs))
	}

	out := make([]float64, len(samples))
	vecmath.MulBlock(out, samples, coeffs)

	return out, nil
}

// KaiserAt evaluates the Kaiser window at normalized position t in [-1, 1].
func KaiserAt(t, beta float64) float64 {
	if beta <= 0 {
		return 1
	}

	if t < -1 || t > 1 {
		return 0
	}

	return BesselI0(beta*math.Sqrt(1-t*t)) / BesselI0(beta)
}

// BesselI0 returns the modified Bessel function of the first kind, order 0.
func BesselI0(x float64) float64 {
	sum := 1.0
	term := 1.0

	x2 := (x * x) / 4
	for k := 1; k < 200; k++ {
		term *= x2 / float64(k*k)

		sum += term
		if term < 1e-16*sum {
			break
		}
	}

	return sum
}

func samplePosition(i, n int) float64 {
	if n <= 1 {
		return 0.5
	}

	return float64(i) / float64(n-1)
}

func tukeyAt(x, alpha float64) float64 {
	if alpha <= 0 {
		return 1
	}

	a := alpha / 2

	switch {
	case x < a:
		return 0.5 * (1 - math.Cos(math.Pi*x/a))
	case x <= 1-a:
		return 1
	default:
		return 0.5 * (1 - math.Cos(math.Pi*(1-x)/a))
	}
}
