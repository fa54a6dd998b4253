package xcorr

import (
	"fmt"
	"sync"

	algofft "github.com/MeKo-Christian/algo-fft"
)

// Spectrum is the precomputed transform of a data segment, ready to be
// correlated against any number of templates of one length. A Spectrum is
// read-only after construction and safe for concurrent use.
type Spectrum struct {
	n, m    int
	fftSize int
	freq    []complex128
	norms   windowNorms
}

// NewSpectrum transforms data for correlation with templates of
// templateLen samples.
func NewSpectrum(data []float64, templateLen int) (*Spectrum, error) {
	if err := checkLengths(templateLen, len(data)); err != nil {
		return nil, err
	}

	// Valid lags never wrap once the transform covers the data.
	fftSize := nextPowerOf2(len(data))

	plan, err := acquirePlan(fftSize)
	if err != nil {
		return nil, err
	}
	defer releasePlan(fftSize, plan)

	padded := make([]complex128, fftSize)
	for i, v := range data {
		padded[i] = complex(v, 0)
	}

	freq := make([]complex128, fftSize)
	if err := plan.Forward(freq, padded); err != nil {
		return nil, fmt.Errorf("xcorr: forward FFT failed: %w", err)
	}

	return &Spectrum{
		n:       len(data),
		m:       templateLen,
		fftSize: fftSize,
		freq:    freq,
		norms:   newWindowNorms(data, templateLen),
	}, nil
}

// Len returns the number of correlation samples Correlate produces.
func (s *Spectrum) Len() int { return s.n - s.m + 1 }

// Correlate returns the normalized cross-correlation of template against
// the segment.
func (s *Spectrum) Correlate(template []float64) ([]float64, error) {
	if len(template) != s.m {
		return nil, fmt.Errorf("xcorr: template has %d samples, spectrum built for %d", len(template), s.m)
	}

	plan, err := acquirePlan(s.fftSize)
	if err != nil {
		return nil, err
	}
	defer releasePlan(s.fftSize, plan)

	buf := make([]complex128, s.fftSize)
	for i, v := range Normalize(template) {
		buf[i] = complex(v, 0)
	}

	tFreq := make([]complex128, s.fftSize)
	if err := plan.Forward(tFreq, buf); err != nil {
		return nil, fmt.Errorf("xcorr: forward FFT failed: %w", err)
	}

	// Multiply data spectrum by the conjugate template spectrum.
	for i, d := range s.freq {
		t := tFreq[i]
		tFreq[i] = d * complex(real(t), -imag(t))
	}

	if err := plan.Inverse(buf, tFreq); err != nil {
		return nil, fmt.Errorf("xcorr: inverse FFT failed: %w", err)
	}

	out := make([]float64, s.Len())
	for k := range out {
		if s.norms.usable(k) {
			out[k] = real(buf[k]) / s.norms.norm(k)
		}
	}

	return finish(out)
}

// NormalizedFFT correlates template against data through a one-off
// Spectrum.
func NormalizedFFT(template, data []float64) ([]float64, error) {
	s, err := NewSpectrum(data, len(template))
	if err != nil {
		return nil, err
	}

	return s.Correlate(template)
}

// Plans carry scratch space, so each size keeps a pool instead of sharing
// one plan between goroutines.
var planPools sync.Map // int -> *sync.Pool

func acquirePlan(size int) (*algofft.Plan[complex128], error) {
	pool, _ := planPools.LoadOrStore(size, &sync.Pool{})
	if p, ok := pool.(*sync.Pool).Get().(*algofft.Plan[complex128]); ok {
		return p, nil
	}

	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return nil, fmt.Errorf("xcorr: failed to create FFT plan: %w", err)
	}

	return plan, nil
}

func releasePlan(size int, plan *algofft.Plan[complex128]) {
	if pool, ok := planPools.Load(size); ok {
		pool.(*sync.Pool).Put(plan)
	}
}

// nextPowerOf2 returns the next power of 2 >= n.
func nextPowerOf2(n int) int {
	if n <= 1 {
		return 1
	}

	p := 1
	for p < n {
		p *= 2
	}

	return p
}
