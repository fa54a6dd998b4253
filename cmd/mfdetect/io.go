package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/cwbudde/algo-matchfilter/template"
	"github.com/cwbudde/algo-matchfilter/waveform"
)

// processingFile is template.Processing with the process length in
// seconds.
type processingFile struct {
	LowCut      float64 `json:"lowcut"`
	HighCut     float64 `json:"highcut"`
	FilterOrder int     `json:"filt_order"`
	SampleRate  float64 `json:"samp_rate"`
	ProcessLen  float64 `json:"process_len"`
}

type templateFile struct {
	Name       string          `json:"name"`
	Processing processingFile  `json:"processing"`
	Prepick    float64         `json:"prepick"`
	Stream     waveform.Stream `json:"stream"`
}

func readJSON(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	return nil
}

// readStream reads a JSON array of traces.
func readStream(path string) (waveform.Stream, error) {
	var st waveform.Stream
	if err := readJSON(path, &st); err != nil {
		return nil, err
	}

	st.Sort()

	return st, nil
}

// readTribe reads a JSON array of templates.
func readTribe(path string) (*template.Tribe, error) {
	var files []templateFile
	if err := readJSON(path, &files); err != nil {
		return nil, err
	}

	tribe := &template.Tribe{Templates: make([]*template.Template, len(files))}

	for i, f := range files {
		tribe.Templates[i] = &template.Template{
			Name:    f.Name,
			Stream:  f.Stream,
			Prepick: waveform.Seconds(f.Prepick),
			Processing: template.Processing{
				LowCut:        f.Processing.LowCut,
				HighCut:       f.Processing.HighCut,
				FilterOrder:   f.Processing.FilterOrder,
				SampleRate:    f.Processing.SampleRate,
				ProcessLength: waveform.Seconds(f.Processing.ProcessLen),
			},
		}
	}

	if err := tribe.Validate(); err != nil {
		return nil, err
	}

	return tribe, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("time %q is not RFC 3339", s)
	}

	return t.UTC(), nil
}
