// Package xcorr computes normalized cross-correlation of a short template
// against a longer data segment.
//
// Every output sample k is the Pearson correlation coefficient between the
// template and the data window x[k:k+m], so results lie in [-1, 1]. Windows
// whose variance is negligible relative to the segment produce 0 rather than
// amplified noise, NaN results are replaced by 0, and values that exceed
// ±1 by more than a small tolerance are reported as ErrNormalization.
//
// Two kernels are provided:
//
//   - NormalizedTime: direct dot products, O(n*m), best for short segments
//   - Spectrum: FFT cross-correlation; the segment spectrum is computed once
//     and reused for every template correlated against it
//
// # Usage
//
//	cc, err := xcorr.NormalizedTime(template, data)
//
//	sp, err := xcorr.NewSpectrum(data, len(template))
//	cc, err := sp.Correlate(template)
package xcorr
