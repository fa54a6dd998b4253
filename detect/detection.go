package detect

import (
	"fmt"
	"strings"
	"time"

	"github.com/cwbudde/algo-matchfilter/event"
	"github.com/cwbudde/algo-matchfilter/template"
	"github.com/cwbudde/algo-matchfilter/waveform"
)

// Detection is one thresholded correlation peak. Detections are created by
// the detector and never modified afterwards.
type Detection struct {
	TemplateName string
	// DetectTime is the time of the template's earliest channel start at
	// the peak. It is not corrected for the template's prepick.
	DetectTime     time.Time
	NoChans        int
	DetectVal      float64
	Threshold      float64
	ThresholdType  ThresholdType
	ThresholdInput float64
	Channels       []waveform.ChannelID
}

// ID returns a stable identifier built from template name and time.
func (d *Detection) ID() string {
	return fmt.Sprintf("%s_%s", strings.ReplaceAll(d.TemplateName, " ", "_"),
		d.DetectTime.UTC().Format("20060102_150405.000000"))
}

// String implements fmt.Stringer.
func (d *Detection) String() string {
	return fmt.Sprintf("%s at %s: %.4f (threshold %.4f, %d channels)",
		d.TemplateName, d.DetectTime.UTC().Format(time.RFC3339Nano), d.DetectVal, d.Threshold, d.NoChans)
}

// Event builds the minimal event description for the detection: one pick
// per contributing template channel at the detection time plus that
// channel's offset and the template's prepick, and an origin at the
// detection time plus prepick. t must be the template that produced d.
// The event is built on each call; detections do not carry it.
func (d *Detection) Event(t *template.Template) *event.Event {
	ev := &event.Event{
		ResourceID: d.ID(),
		Origin:     event.Origin{Time: d.DetectTime.Add(t.Prepick)},
		Comments: []string{
			fmt.Sprintf("Template: %s", d.TemplateName),
			fmt.Sprintf("threshold=%g, threshold_type=%s, threshold_input=%g",
				d.Threshold, d.ThresholdType, d.ThresholdInput),
			fmt.Sprintf("detect_val=%g", d.DetectVal),
		},
	}

	used := make(map[waveform.ChannelID]bool, len(d.Channels))
	for _, id := range d.Channels {
		used[id] = true
	}

	ref := t.ReferenceStart()

	for i := range t.Stream {
		tr := &t.Stream[i]
		if !used[tr.ID] {
			continue
		}

		ev.Picks = append(ev.Picks, event.Pick{
			Channel: tr.ID,
			Time:    d.DetectTime.Add(tr.StartTime.Sub(ref)).Add(t.Prepick),
		})
	}

	return ev
}
