// Package resample converts evenly sampled data between arbitrary sample
// rates with a Kaiser-windowed sinc interpolator.
//
// Output sample j sits exactly at input time j*inRate/outRate, so the first
// output sample keeps the time of the first input sample and no group delay
// is introduced. When downsampling the sinc cutoff follows the output
// Nyquist frequency, which provides the anti-aliasing filter.
//
// # Usage
//
//	out, err := resample.Rates(samples, 200, 50)
//	out, err := resample.Rates(samples, 100, 40, resample.WithQuality(resample.QualityBest))
package resample
