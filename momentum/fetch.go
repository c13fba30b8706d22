package momentum

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tbc399/command-line-trader/internal/logger"
	"github.com/tbc399/command-line-trader/market"
)

const (
	// DefaultRetries is the per-symbol retry budget for transient fetch
	// failures.
	DefaultRetries = 3

	// DefaultChunkSize bounds how many symbol fetches run concurrently.
	DefaultChunkSize = 100

	// DefaultChunkPause is the mandatory pause between chunks so the
	// provider's rate limit is respected.
	DefaultChunkPause = 2 * time.Second

	defaultRetryPause = 500 * time.Millisecond
)

// Series is the fetched bar sequence for one symbol. Bars is empty when the
// fetch was rate limited or exhausted its retry budget.
type Series struct {
	Symbol string
	Bars   []market.PriceBar
}

// Fetcher retrieves intraday bar series for a universe of symbols in
// rate-limit-respecting chunks.
type Fetcher struct {
	Data       market.Data
	Interval   time.Duration // bar resample interval
	Retries    int           // per-symbol retry budget, DefaultRetries if zero
	ChunkSize  int           // concurrent fetches per chunk, DefaultChunkSize if zero
	ChunkPause time.Duration // pause between chunks, DefaultChunkPause if zero
	RetryPause time.Duration // pause between retry attempts

	sleep func(context.Context, time.Duration)
}

func (f *Fetcher) retries() int {
	if f.Retries > 0 {
		return f.Retries
	}
	return DefaultRetries
}

func (f *Fetcher) chunkSize() int {
	if f.ChunkSize > 0 {
		return f.ChunkSize
	}
	return DefaultChunkSize
}

func (f *Fetcher) chunkPause() time.Duration {
	if f.ChunkPause > 0 {
		return f.ChunkPause
	}
	return DefaultChunkPause
}

func (f *Fetcher) retryPause() time.Duration {
	if f.RetryPause > 0 {
		return f.RetryPause
	}
	return defaultRetryPause
}

func (f *Fetcher) pause(ctx context.Context, d time.Duration) {
	if f.sleep != nil {
		f.sleep(ctx, d)
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// FetchOne fetches the bar series for a single symbol starting at start.
// Transient failures are retried up to the retry budget; a rate-limited
// response or an exhausted budget yields an empty series. Failures never
// propagate: a symbol that cannot be fetched is simply excluded from the
// scored set.
func (f *Fetcher) FetchOne(ctx context.Context, symbol string, start time.Time) []market.PriceBar {
	for attempt := 1; attempt <= f.retries(); attempt++ {
		bars, err := f.Data.IntradayBars(ctx, symbol, f.Interval, start)
		if err == nil {
			return bars
		}
		if errors.Is(err, market.ErrRateLimited) {
			// Retrying against an exhausted quota only compounds the limit.
			logger.Debug("rate limited fetching %s, skipping", symbol)
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
		logger.Debug("fetch %s attempt %d/%d: %v", symbol, attempt, f.retries(), err)
		if attempt < f.retries() {
			f.pause(ctx, f.retryPause())
		}
	}
	logger.Warn("giving up on %s after %d attempts", symbol, f.retries())
	return nil
}

// FetchAll fetches bar series for all symbols, preserving input order in the
// result. Symbols are partitioned into fixed-size chunks processed in order;
// fetches within a chunk run concurrently and each chunk is followed by a
// pause. Per-symbol failures leave an empty series without affecting the
// rest of the batch.
func (f *Fetcher) FetchAll(ctx context.Context, symbols []string, start time.Time) []Series {
	out := make([]Series, len(symbols))
	size := f.chunkSize()

	for lo := 0; lo < len(symbols); lo += size {
		if ctx.Err() != nil {
			break
		}

		hi := lo + size
		if hi > len(symbols) {
			hi = len(symbols)
		}

		var wg sync.WaitGroup
		for i := lo; i < hi; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				out[i] = Series{
					Symbol: symbols[i],
					Bars:   f.FetchOne(ctx, symbols[i], start),
				}
			}(i)
		}
		wg.Wait()

		if hi < len(symbols) {
			f.pause(ctx, f.chunkPause())
		}
	}
	return out
}
