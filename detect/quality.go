package detect

import (
	"fmt"
	"math"

	vecmath "github.com/cwbudde/algo-vecmath"
	"go.uber.org/zap"

	"github.com/cwbudde/algo-matchfilter/stats/robust"
	"github.com/cwbudde/algo-matchfilter/template"
	"github.com/cwbudde/algo-matchfilter/waveform"
)

const (
	spikePercentile = 0.99
	spikeMultiplier = 1e7
)

// HasSpike reports whether any sample exceeds twice the 99th-percentile
// magnitude by more than the spike multiplier, the signature of a
// digitizer glitch.
func HasSpike(data []float64) bool {
	if len(data) == 0 {
		return false
	}

	ref := robust.AbsQuantile(data, spikePercentile)
	if ref == 0 {
		return false
	}

	return vecmath.MaxAbs(data) > 2*ref*spikeMultiplier
}

// preflight checks the continuous stream before any window is cut and
// returns the channels to process. Channels not used by the group are
// dropped. With IgnoreBadData, failing channels are dropped with a warning
// rather than failing the run.
func (d *Detector) preflight(group []*template.Template, st waveform.Stream) (waveform.Stream, error) {
	if len(st) == 0 {
		return nil, fmt.Errorf("%w: empty stream", ErrDataQuality)
	}

	used := make(map[waveform.ChannelID]bool)

	for _, t := range group {
		for i := range t.Stream {
			used[t.Stream[i].ID] = true
		}
	}

	dup := make(map[waveform.ChannelID]bool)
	for _, id := range st.Duplicates() {
		dup[id] = true
	}

	out := make(waveform.Stream, 0, len(st))

	for i := range st {
		tr := &st[i]
		if !used[tr.ID] {
			continue
		}

		var problem string

		switch {
		case !(tr.SampleRate > 0):
			problem = fmt.Sprintf("non-positive sample rate %g", tr.SampleRate)
		case dup[tr.ID]:
			problem = "channel appears on several traces (unmerged gaps)"
		case tr.HasNaN():
			problem = "masked gaps present, fill gaps before detection"
		case d.cfg.PreProcessed && !sameRate(tr.SampleRate, group[0].Processing.SampleRate):
			problem = fmt.Sprintf("sampled at %g Hz, templates at %g Hz", tr.SampleRate, group[0].Processing.SampleRate)
		case d.cfg.SpikeTest && HasSpike(tr.Data):
			problem = "spike detected"
		}

		if problem == "" {
			out = append(out, *tr)
			continue
		}

		if !d.cfg.IgnoreBadData {
			return nil, fmt.Errorf("%w: %s: %s", ErrDataQuality, tr.ID, problem)
		}

		d.log.Warn("removing channel failing quality checks",
			zap.Stringer("channel", tr.ID), zap.String("problem", problem))
	}

	return out, nil
}

func sameRate(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(math.Abs(a), math.Abs(b))
}
