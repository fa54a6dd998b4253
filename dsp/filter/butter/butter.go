// Package butter designs Butterworth lowpass, highpass and bandpass
// cascades and applies them with zero phase shift.
//
// Bandpass filters are built as a highpass cascade at the low corner
// followed by a lowpass cascade at the high corner, each of the requested
// order. ZeroPhase runs the cascade forward and backward so arrival times
// are not delayed by the filter.
package butter

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-matchfilter/dsp/filter/biquad"
)

// ErrInvalidBand is returned for corner frequencies outside (0, Nyquist)
// or an inverted band.
var ErrInvalidBand = errors.New("butter: invalid band")

// Lowpass designs a lowpass Butterworth cascade.
//
// For odd orders, the final section is first-order (B2=A2=0).
func Lowpass(freq float64, order int, sampleRate float64) []biquad.Coefficients {
	if order <= 0 {
		return nil
	}

	sections := make([]biquad.Coefficients, 0, (order+1)/2)
	for i := order/2 - 1; i >= 0; i-- {
		sections = append(sections, LowpassRBJ(freq, butterworthQ(order, i), sampleRate))
	}

	if order%2 != 0 {
		sections = append(sections, firstOrderLP(freq, sampleRate))
	}

	return sections
}

// Highpass designs a highpass Butterworth cascade.
//
// For odd orders, the final section is first-order (B2=A2=0).
func Highpass(freq float64, order int, sampleRate float64) []biquad.Coefficients {
	if order <= 0 {
		return nil
	}

	sections := make([]biquad.Coefficients, 0, (order+1)/2)
	for i := order/2 - 1; i >= 0; i-- {
		sections = append(sections, HighpassRBJ(freq, butterworthQ(order, i), sampleRate))
	}

	if order%2 != 0 {
		sections = append(sections, firstOrderHP(freq, sampleRate))
	}

	return sections
}

// Band designs the cascade for a [low, high] Hz passband. A zero low corner
// yields a lowpass, a zero high corner a highpass, and both zero no filter
// at all.
func Band(low, high float64, order int, sampleRate float64) ([]biquad.Coefficients, error) {
	nyquist := sampleRate / 2

	switch {
	case sampleRate <= 0:
		return nil, fmt.Errorf("%w: sample rate %g", ErrInvalidBand, sampleRate)
	case order <= 0 && (low > 0 || high > 0):
		return nil, fmt.Errorf("%w: filter order %d", ErrInvalidBand, order)
	case low < 0 || high < 0:
		return nil, fmt.Errorf("%w: negative corner %g-%g Hz", ErrInvalidBand, low, high)
	case high >= nyquist:
		return nil, fmt.Errorf("%w: highcut %g Hz at or above Nyquist %g Hz", ErrInvalidBand, high, nyquist)
	case low >= nyquist:
		return nil, fmt.Errorf("%w: lowcut %g Hz at or above Nyquist %g Hz", ErrInvalidBand, low, nyquist)
	case low > 0 && high > 0 && low >= high:
		return nil, fmt.Errorf("%w: lowcut %g Hz not below highcut %g Hz", ErrInvalidBand, low, high)
	}

	var sections []biquad.Coefficients
	if low > 0 {
		sections = append(sections, Highpass(low, order, sampleRate)...)
	}

	if high > 0 {
		sections = append(sections, Lowpass(high, order, sampleRate)...)
	}

	return sections, nil
}

// LowpassRBJ designs a second-order lowpass (RBJ cookbook).
func LowpassRBJ(freq, q, sampleRate float64) biquad.Coefficients {
	w0, ok := normalizedW0(freq, sampleRate)
	if !ok {
		return biquad.Coefficients{}
	}

	cw := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * q)
	a0 := 1 + alpha

	return biquad.Coefficients{
		B0: (1 - cw) / 2 / a0,
		B1: (1 - cw) / a0,
		B2: (1 - cw) / 2 / a0,
		A1: -2 * cw / a0,
		A2: (1 - alpha) / a0,
	}
}

// HighpassRBJ designs a second-order highpass (RBJ cookbook).
func HighpassRBJ(freq, q, sampleRate float64) biquad.Coefficients {
	w0, ok := normalizedW0(freq, sampleRate)
	if !ok {
		return biquad.Coefficients{}
	}

	cw := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * q)
	a0 := 1 + alpha

	return biquad.Coefficients{
		B0: (1 + cw) / 2 / a0,
		B1: -(1 + cw) / a0,
		B2: (1 + cw) / 2 / a0,
		A1: -2 * cw / a0,
		A2: (1 - alpha) / a0,
	}
}

func normalizedW0(freq, sampleRate float64) (float64, bool) {
	if sampleRate <= 0 || freq <= 0 || freq >= sampleRate/2 {
		return 0, false
	}

	return 2 * math.Pi * freq / sampleRate, true
}

// butterworthQ returns the Q of the index-th conjugate pole pair of an
// order-N Butterworth prototype.
func butterworthQ(order, index int) float64 {
	s := math.Sin(math.Pi * float64(2*index+1) / (2 * float64(order)))
	if s == 0 {
		return 1 / math.Sqrt2
	}

	return 1 / (2 * s)
}

func firstOrderLP(freq, sampleRate float64) biquad.Coefficients {
	if sampleRate <= 0 || freq <= 0 || freq >= sampleRate/2 {
		return biquad.Coefficients{}
	}

	k := math.Tan(math.Pi * freq / sampleRate)
	norm := 1 / (1 + k)

	return biquad.Coefficients{B0: k * norm, B1: k * norm, A1: (k - 1) * norm}
}

func firstOrderHP(freq, sampleRate float64) biquad.Coefficients {
	if sampleRate <= 0 || freq <= 0 || freq >= sampleRate/2 {
		return biquad.Coefficients{}
	}

	k := math.Tan(math.Pi * freq / sampleRate)
	norm := 1 / (1 + k)

	return biquad.Coefficients{B0: norm, B1: -norm, A1: (k - 1) * norm}
}
