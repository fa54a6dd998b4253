package detect

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	vecmath "github.com/cwbudde/algo-vecmath"
	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-matchfilter/dsp/xcorr"
	"github.com/cwbudde/algo-matchfilter/template"
	"github.com/cwbudde/algo-matchfilter/waveform"
)

// Correlations holds one correlation sum per template of a group, indexed
// like the group.
type Correlations struct {
	Sums     [][]float64
	NoChans  []int
	Channels [][]waveform.ChannelID
}

// Backend computes correlation sums of a template group against a window.
// Implementations must return results indexed by template position and
// must not modify the templates or the window.
type Backend interface {
	Correlate(ctx context.Context, group []*template.Template, w *Window, workers int) (*Correlations, error)
}

var (
	backendsMu sync.RWMutex
	backends   = map[string]Backend{
		"time": kernelBackend{prepare: prepareTime},
		"fft":  kernelBackend{prepare: prepareFFT},
	}
)

// RegisterBackend makes a backend available by name, replacing any backend
// previously registered under it.
func RegisterBackend(name string, b Backend) {
	backendsMu.Lock()
	defer backendsMu.Unlock()

	backends[name] = b
}

// LookupBackend returns the backend registered under name.
func LookupBackend(name string) (Backend, error) {
	backendsMu.RLock()
	defer backendsMu.RUnlock()

	b, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown correlation backend %q (have %v)", ErrConfiguration, name, backendNames())
	}

	return b, nil
}

// Backends returns the registered backend names, sorted.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()

	return backendNames()
}

func backendNames() []string {
	names := make([]string, 0, len(backends))
	for n := range backends {
		names = append(names, n)
	}

	slices.Sort(names)

	return names
}

// channelKernel correlates templates against one prepared window channel.
type channelKernel interface {
	Correlate(template []float64) ([]float64, error)
}

type timeKernel struct{ data []float64 }

func (k timeKernel) Correlate(t []float64) ([]float64, error) {
	return xcorr.NormalizedTime(t, k.data)
}

func prepareTime(data []float64, _ int) (channelKernel, error) {
	return timeKernel{data: data}, nil
}

func prepareFFT(data []float64, m int) (channelKernel, error) {
	return xcorr.NewSpectrum(data, m)
}

// kernelBackend runs one task per (template, channel) pair on a bounded
// pool and stacks the results in template channel order.
type kernelBackend struct {
	prepare func(data []float64, m int) (channelKernel, error)
}

func (b kernelBackend) Correlate(ctx context.Context, group []*template.Template, w *Window, workers int) (*Correlations, error) {
	m := group[0].Len()

	n := w.Len()
	if n < m {
		return nil, fmt.Errorf("%w: window of %d samples shorter than templates of %d", ErrCorrelation, n, m)
	}

	workers = max(1, workers)

	// Prepare every window channel a template needs, once.
	needed := make(map[waveform.ChannelID]int)

	for _, t := range group {
		for i := range t.Stream {
			if _, ok := needed[t.Stream[i].ID]; ok {
				continue
			}

			if idx := slices.IndexFunc(w.Stream, func(tr waveform.Trace) bool { return tr.ID == t.Stream[i].ID }); idx >= 0 {
				needed[t.Stream[i].ID] = idx
			}
		}
	}

	kernels := make(map[waveform.ChannelID]channelKernel, len(needed))

	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for id, idx := range needed {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			k, err := b.prepare(w.Stream[idx].Data, m)
			if err != nil {
				return fmt.Errorf("%s: %w", id, err)
			}

			mu.Lock()
			kernels[id] = k
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, wrapCorrelation(err)
	}

	// slots[i][j] is template i, template channel j; nil when the window
	// lacks that channel.
	slots := make([][][]float64, len(group))

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, t := range group {
		slots[i] = make([][]float64, len(t.Stream))

		for j := range t.Stream {
			k, ok := kernels[t.Stream[j].ID]
			if !ok {
				continue
			}

			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}

				cc, err := k.Correlate(t.Stream[j].Data)
				if err != nil {
					return fmt.Errorf("%s %s: %w", t.Name, t.Stream[j].ID, err)
				}

				slots[i][j] = cc

				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, wrapCorrelation(err)
	}

	return stack(group, slots, n-m+1), nil
}

// stack sums each template's channel correlations aligned on the
// template's earliest channel: output sample k reads each channel at k plus
// that channel's offset. Positions past the end of a channel's trace
// receive nothing from it.
func stack(group []*template.Template, slots [][][]float64, length int) *Correlations {
	out := &Correlations{
		Sums:     make([][]float64, len(group)),
		NoChans:  make([]int, len(group)),
		Channels: make([][]waveform.ChannelID, len(group)),
	}

	for i, t := range group {
		sum := make([]float64, length)
		offsets := t.Offsets()

		for j, cc := range slots[i] {
			pad := offsets[j]
			if cc == nil || pad >= length {
				continue
			}

			vecmath.AddBlockInPlace(sum[:length-pad], cc[pad:])

			out.NoChans[i]++
			out.Channels[i] = append(out.Channels[i], t.Stream[j].ID)
		}

		out.Sums[i] = sum
	}

	return out
}

func wrapCorrelation(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	return fmt.Errorf("%w: %w", ErrCorrelation, err)
}
