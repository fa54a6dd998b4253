// Package detect runs matched-filter detection of known waveforms in
// continuous multi-channel data.
//
// A Detector takes a group of compatible templates (same processing, same
// length) and a continuous stream. The stream is checked for gaps, duplicate
// channels and spikes, cut into overlapping windows and processed like the
// templates were. Every template channel is then correlated against the
// matching window channel with normalized cross-correlation, and the
// per-channel results are summed after shifting each by the channel's offset
// within the template, so a sum of N means all N channels matched exactly.
//
// Peaks of the sum above a threshold become Detections, collected per
// template in a Family and per run in a Party:
//
//	d, err := detect.New(
//		detect.WithThreshold(8, detect.MAD),
//		detect.WithTrigInt(time.Second),
//	)
//	if err != nil {
//		return err
//	}
//
//	party, err := d.DetectTribe(ctx, tribe, stream)
//
// # Backends
//
// Correlation runs through a named Backend. "time" computes direct dot
// products; "fft" (the default) transforms each window channel once and
// reuses the spectrum for every template. Further backends can be added
// with RegisterBackend.
//
// # Errors
//
// Failures fall into three categories, testable with errors.Is:
// ErrConfiguration, ErrDataQuality and ErrCorrelation. Cancellation returns
// the context's error together with the detections of the windows that
// completed.
package detect
