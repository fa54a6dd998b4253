package detect

import (
	"fmt"

	"github.com/cwbudde/algo-matchfilter/stats/robust"
)

// ThresholdType selects how the raw threshold value is turned into an
// absolute detection threshold.
type ThresholdType string

const (
	// Absolute uses the threshold value as-is.
	Absolute ThresholdType = "absolute"
	// MAD multiplies the value by the median absolute value of the
	// correlation sum, adapting to the noise level of each window.
	MAD ThresholdType = "MAD"
	// AvChanCorr multiplies the value by the number of channels used, so
	// the value reads as an average per-channel correlation.
	AvChanCorr ThresholdType = "av_chan_corr"
)

// ParseThresholdType validates a threshold type name.
func ParseThresholdType(s string) (ThresholdType, error) {
	switch t := ThresholdType(s); t {
	case Absolute, MAD, AvChanCorr:
		return t, nil
	default:
		return "", fmt.Errorf("%w: threshold type %q not in {absolute, MAD, av_chan_corr}", ErrConfiguration, s)
	}
}

// Threshold returns the absolute threshold for one correlation sum built
// from noChans channels.
func (t ThresholdType) Threshold(value float64, sum []float64, noChans int) float64 {
	switch t {
	case MAD:
		return value * robust.MedianAbs(sum)
	case AvChanCorr:
		return value * float64(noChans)
	default:
		return value
	}
}

// Thresholds computes one threshold per template of a correlation set.
func Thresholds(t ThresholdType, value float64, sums [][]float64, noChans []int) []float64 {
	out := make([]float64, len(sums))
	for i := range sums {
		out[i] = t.Threshold(value, sums[i], noChans[i])
	}

	return out
}
