package butter

import (
	"slices"

	"github.com/cwbudde/algo-matchfilter/dsp/filter/biquad"
)

// ZeroPhase filters data forward and backward through the cascade, giving
// zero phase shift and squared magnitude response. The ends are extended by
// odd reflection and the filter state is settled on the first sample of each
// pass to suppress edge transients. data is not modified.
func ZeroPhase(data []float64, sections []biquad.Coefficients) []float64 {
	out := slices.Clone(data)
	if len(sections) == 0 || len(data) < 2 {
		return out
	}

	pad := min(3*(2*len(sections)+1), len(data)-1)
	ext := oddExtend(data, pad)

	chain := biquad.NewChain(sections)
	chain.Settle(ext[0])
	chain.ProcessBlock(ext)

	slices.Reverse(ext)
	chain.Reset()
	chain.Settle(ext[0])
	chain.ProcessBlock(ext)
	slices.Reverse(ext)

	copy(out, ext[pad:pad+len(data)])

	return out
}

// oddExtend mirrors pad samples about each end point.
func oddExtend(x []float64, pad int) []float64 {
	n := len(x)
	ext := make([]float64, n+2*pad)

	for i := range pad {
		ext[i] = 2*x[0] - x[pad-i]
		ext[pad+n+i] = 2*x[n-1] - x[n-2-i]
	}

	copy(ext[pad:], x)

	return ext
}
