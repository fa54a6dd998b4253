// Package testutil provides deterministic signals, synthetic waveform
// builders and tolerance helpers shared by the package tests.
package testutil

import (
	"math"
	"math/rand"
	"time"

	"github.com/cwbudde/algo-matchfilter/waveform"
)

// DeterministicSine generates a deterministic sine wave.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate

	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}

	return out
}

// DeterministicNoise generates white noise with a fixed seed for reproducibility.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))

	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}

	return out
}

// Burst returns seeded noise shaped by a Hann envelope, a stand-in for a
// short seismic arrival.
func Burst(seed int64, amplitude float64, length int) []float64 {
	out := DeterministicNoise(seed, amplitude, length)
	if length < 2 {
		return out
	}

	for i := range out {
		out[i] *= 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(length-1))
	}

	return out
}

// Embed adds src into dst starting at sample at. Samples falling outside dst
// are dropped.
func Embed(dst, src []float64, at int) {
	for i, v := range src {
		if j := at + i; j >= 0 && j < len(dst) {
			dst[j] += v
		}
	}
}

// Trace builds a trace on channel "NZ.<station>..HHZ".
func Trace(station string, start time.Time, rate float64, data []float64) waveform.Trace {
	return waveform.Trace{
		ID:         waveform.ChannelID{Network: "NZ", Station: station, Channel: "HHZ"},
		StartTime:  start,
		SampleRate: rate,
		Data:       data,
	}
}
