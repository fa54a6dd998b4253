package acquire

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cwbudde/algo-matchfilter/waveform"
)

// DefaultAttempts is the number of tries a Fetcher makes by default.
const DefaultAttempts = 3

// Result is the outcome of one Fetch.
type Result struct {
	Stream   waveform.Stream
	Attempts int
	Err      error
}

// Exhausted reports whether the fetch gave up after using every attempt.
func (r Result) Exhausted() bool { return errors.Is(r.Err, ErrExhausted) }

// Fetcher retries a Client a bounded number of times. Attempts are paced by
// a token-bucket limiter shared by every Fetch call.
type Fetcher struct {
	client   Client
	attempts int
	limiter  *rate.Limiter
	log      *zap.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithAttempts sets how many times a request is tried.
func WithAttempts(n int) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.attempts = n
		}
	}
}

// WithInterval sets the minimum time between attempts.
func WithInterval(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if d > 0 {
			f.limiter = rate.NewLimiter(rate.Every(d), 1)
		} else {
			f.limiter = rate.NewLimiter(rate.Inf, 1)
		}
	}
}

// WithFetchLogger sets the logger.
func WithFetchLogger(l *zap.Logger) FetcherOption {
	return func(f *Fetcher) {
		if l != nil {
			f.log = l
		}
	}
}

// NewFetcher returns a Fetcher making DefaultAttempts tries at most one
// second apart unless configured otherwise.
func NewFetcher(client Client, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:   client,
		attempts: DefaultAttempts,
		limiter:  rate.NewLimiter(rate.Every(time.Second), 1),
		log:      zap.NewNop(),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch requests reqs until the client succeeds or the attempts run out.
// Context errors end the loop immediately and are returned unwrapped.
func (f *Fetcher) Fetch(ctx context.Context, reqs []Request) Result {
	var lastErr error

	for attempt := 1; attempt <= f.attempts; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return Result{Attempts: attempt - 1, Err: err}
		}

		st, err := f.client.Waveforms(ctx, reqs)
		if err == nil {
			return Result{Stream: st, Attempts: attempt}
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{Attempts: attempt, Err: ctxErr}
		}

		lastErr = err

		f.log.Warn("waveform request failed",
			zap.Int("attempt", attempt), zap.Int("attempts", f.attempts),
			zap.Int("requests", len(reqs)), zap.Error(err))
	}

	return Result{
		Attempts: f.attempts,
		Err:      fmt.Errorf("%w after %d attempts: %w", ErrExhausted, f.attempts, lastErr),
	}
}
