// Package waveform holds the continuous-data model shared by the detection
// pipeline: channel identifiers, single-channel traces and multi-channel
// streams.
//
// Traces carry evenly sampled data starting at an absolute time. Gaps must
// be filled before data reaches the detector; a NaN sample marks a masked
// gap and is rejected by the quality checks.
//
// # Usage
//
//	st := waveform.Stream{
//		{ID: waveform.ChannelID{Network: "NZ", Station: "WVZ", Channel: "HHZ"},
//			StartTime: t0, SampleRate: 100, Data: samples},
//	}
//	part := st.Slice(t0.Add(time.Hour), t0.Add(2*time.Hour))
package waveform
