package detect

import "errors"

// Error categories returned by the detector. Underlying causes are wrapped,
// so callers can test with errors.Is against both the category and the
// specific cause.
var (
	// ErrConfiguration reports invalid options or an incompatible template
	// group. It is returned before any correlation work starts.
	ErrConfiguration = errors.New("detect: configuration error")
	// ErrDataQuality reports continuous data that cannot be correlated:
	// masked gaps, duplicate channels, sample-rate mismatches or spikes.
	ErrDataQuality = errors.New("detect: data quality error")
	// ErrCorrelation reports a correlation run that produced no usable
	// output. It aborts the run.
	ErrCorrelation = errors.New("detect: correlation failure")
)
