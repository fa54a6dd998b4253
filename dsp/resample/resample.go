package resample

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-matchfilter/dsp/window"
)

var (
	// ErrInvalidRate indicates an invalid input/output sample rate.
	ErrInvalidRate = errors.New("resample: invalid sample rate")
)

// Quality controls default interpolation kernel settings.
type Quality int

const (
	// QualityFast prioritizes lower CPU usage.
	QualityFast Quality = iota
	// QualityBalanced is the default quality/performance trade-off.
	QualityBalanced
	// QualityBest prioritizes stopband attenuation and passband flatness.
	QualityBest
)

// Profile exposes default kernel parameters for each quality mode.
type Profile struct {
	// ZeroCrossings is the number of sinc zero crossings on each side of
	// the kernel centre.
	ZeroCrossings     int
	CutoffScale       float64
	KaiserBeta        float64
	NominalStopbandDB float64
}

// QualityProfile returns the default profile used by quality mode q.
func QualityProfile(q Quality) Profile {
	switch q {
	case QualityFast:
		return Profile{ZeroCrossings: 8, CutoffScale: 0.88, KaiserBeta: 5.0, NominalStopbandDB: 55}
	case QualityBest:
		return Profile{ZeroCrossings: 32, CutoffScale: 0.96, KaiserBeta: 9.0, NominalStopbandDB: 90}
	default:
		return Profile{ZeroCrossings: 16, CutoffScale: 0.92, KaiserBeta: 7.5, NominalStopbandDB: 75}
	}
}

type config struct {
	quality       Quality
	zeroCrossings int
	cutoffScale   float64
	kaiserBeta    float64
}

// Option configures the resampler.
type Option func(*config)

// WithQuality selects a predefined quality mode.
func WithQuality(q Quality) Option {
	return func(cfg *config) {
		cfg.quality = q
	}
}

// WithZeroCrossings overrides the kernel half-width in sinc zero crossings.
func WithZeroCrossings(n int) Option {
	return func(cfg *config) {
		if n > 0 {
			cfg.zeroCrossings = n
		}
	}
}

// WithCutoffScale overrides normalized cutoff scaling in range (0, 1].
// 1.0 equals the theoretical anti-aliasing cutoff.
func WithCutoffScale(v float64) Option {
	return func(cfg *config) {
		if v > 0 && v <= 1 {
			cfg.cutoffScale = v
		}
	}
}

// WithKaiserBeta overrides the Kaiser window beta parameter.
func WithKaiserBeta(beta float64) Option {
	return func(cfg *config) {
		if beta >= 0 {
			cfg.kaiserBeta = beta
		}
	}
}

func defaultConfig() config {
	return config{quality: QualityBalanced, kaiserBeta: -1}
}

func (c config) finalized() config {
	p := QualityProfile(c.quality)
	if c.zeroCrossings <= 0 {
		c.zeroCrossings = p.ZeroCrossings
	}

	if c.cutoffScale <= 0 || c.cutoffScale > 1 {
		c.cutoffScale = p.CutoffScale
	}

	if c.kaiserBeta < 0 {
		c.kaiserBeta = p.KaiserBeta
	}

	return c
}

// Resampler converts blocks from one fixed rate to another.
type Resampler struct {
	inRate, outRate float64

	cutoff    float64 // normalized to the input rate
	halfWidth float64 // kernel half-width in input samples
	beta      float64
	i0Beta    float64
}

// New creates a resampler from inRate to outRate (Hz).
func New(inRate, outRate float64, opts ...Option) (*Resampler, error) {
	if !(inRate > 0) || !(outRate > 0) || math.IsInf(inRate, 0) || math.IsInf(outRate, 0) {
		return nil, fmt.Errorf("%w: %g -> %g Hz", ErrInvalidRate, inRate, outRate)
	}

	cfg := defaultConfig()

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	cfg = cfg.finalized()

	cutoff := math.Min(1, outRate/inRate) * cfg.cutoffScale

	return &Resampler{
		inRate:    inRate,
		outRate:   outRate,
		cutoff:    cutoff,
		halfWidth: float64(cfg.zeroCrossings) / cutoff,
		beta:      cfg.kaiserBeta,
		i0Beta:    window.BesselI0(cfg.kaiserBeta),
	}, nil
}

// Rates is a one-shot helper converting input from inRate to outRate.
func Rates(input []float64, inRate, outRate float64, opts ...Option) ([]float64, error) {
	r, err := New(inRate, outRate, opts...)
	if err != nil {
		return nil, err
	}

	return r.Process(input), nil
}

// OutputLen returns the number of samples Process produces for n inputs:
// the input duration n/inRate expressed at the output rate, rounded.
func (r *Resampler) OutputLen(n int) int {
	if n <= 0 {
		return 0
	}

	return int(math.Round(float64(n) * r.outRate / r.inRate))
}

// Process converts one block. Equal rates return a copy.
func (r *Resampler) Process(input []float64) []float64 {
	out := make([]float64, r.OutputLen(len(input)))
	if r.inRate == r.outRate {
		copy(out, input)
		return out
	}

	step := r.inRate / r.outRate
	n := len(input)

	for j := range out {
		t := float64(j) * step
		lo := max(0, int(math.Ceil(t-r.halfWidth)))
		hi := min(n-1, int(math.Floor(t+r.halfWidth)))

		var acc, wsum float64

		for k := lo; k <= hi; k++ {
			w := r.kernel(t - float64(k))
			acc += w * input[k]
			wsum += w
		}

		// Renormalizing keeps DC level exact near the block edges.
		if wsum != 0 {
			out[j] = acc / wsum
		}
	}

	return out
}

func (r *Resampler) kernel(u float64) float64 {
	return r.cutoff * sinc(r.cutoff*u) * kaiser(u/r.halfWidth, r.beta, r.i0Beta)
}

func sinc(x float64) float64 {
	if math.Abs(x) < 1e-12 {
		return 1
	}

	pix := math.Pi * x

	return math.Sin(pix) / pix
}

// kaiser evaluates the Kaiser window at normalized position t in [-1, 1]
// with I0(beta) precomputed.
func kaiser(t, beta, i0Beta float64) float64 {
	if beta == 0 {
		return 1
	}

	a := math.Sqrt(math.Max(0, 1-t*t))

	return window.BesselI0(beta*a) / i0Beta
}
