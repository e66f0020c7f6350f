package fetcher

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	datasource "market-gateway/src/data_source"
	"market-gateway/src/helpers"
	"market-gateway/src/interfaces"
	"market-gateway/src/logger"
	"market-gateway/src/models"
)

// -----------------------------------------------------------------------------
// Fetcher
// -----------------------------------------------------------------------------

// Fetcher resolves a source id against the registry and invokes the provider
// with bounded retries. Transient failures (network, timeout, upstream
// throttling) are retried with exponential backoff; permanent failures
// (unknown source, missing capability) fail immediately.
type Fetcher struct {
	Registry *datasource.Registry
	Logger   *logger.Logger

	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration

	// sleep is swappable so tests can observe the backoff schedule.
	sleep func(ctx context.Context, d time.Duration) error
}

// -----------------------------------------------------------------------------

func NewFetcher(registry *datasource.Registry, cfg models.MRetryConfig, log *logger.Logger) *Fetcher {
	return &Fetcher{
		Registry:       registry,
		Logger:         log,
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: time.Duration(cfg.InitialBackoffMs) * time.Millisecond,
		maxBackoff:     time.Duration(cfg.MaxBackoffMs) * time.Millisecond,
		sleep:          sleepWithContext,
	}
}

// -----------------------------------------------------------------------------

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// -----------------------------------------------------------------------------
// Operations
// -----------------------------------------------------------------------------

func (f *Fetcher) FetchQuote(ctx context.Context, source, symbol string) (*models.MQuote, error) {
	provider, err := f.resolve(source, interfaces.CapabilityQuote)
	if err != nil {
		return nil, err
	}
	return fetchWithRetry(f, ctx, "quote "+source+":"+symbol, func(ctx context.Context) (*models.MQuote, error) {
		return provider.FetchQuote(ctx, symbol)
	})
}

// -----------------------------------------------------------------------------

func (f *Fetcher) FetchOHLCV(ctx context.Context, source, symbol string, since int64, limit int) ([]models.MOHLCV, error) {
	provider, err := f.resolve(source, interfaces.CapabilityHistorical)
	if err != nil {
		return nil, err
	}
	return fetchWithRetry(f, ctx, "historical "+source+":"+symbol, func(ctx context.Context) ([]models.MOHLCV, error) {
		return provider.FetchOHLCV(ctx, symbol, since, limit)
	})
}

// -----------------------------------------------------------------------------

func (f *Fetcher) ListInstruments(ctx context.Context, source string) ([]string, error) {
	provider, err := f.resolve(source, interfaces.CapabilityMarkets)
	if err != nil {
		return nil, err
	}
	return fetchWithRetry(f, ctx, "markets "+source, func(ctx context.Context) ([]string, error) {
		return provider.ListInstruments(ctx)
	})
}

// -----------------------------------------------------------------------------

func (f *Fetcher) resolve(source, capability string) (interfaces.IMarketProvider, error) {
	provider, err := f.Registry.Get(source)
	if err != nil {
		return nil, err
	}
	if !provider.Supports(capability) {
		return nil, &helpers.UnsupportedCapabilityError{Source: source, Capability: capability}
	}
	return provider, nil
}

// -----------------------------------------------------------------------------
// Retry Loop
// -----------------------------------------------------------------------------

func fetchWithRetry[T any](f *Fetcher, ctx context.Context, operation string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < f.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := f.sleep(ctx, f.backoffDelay(attempt)); err != nil {
				return zero, err
			}
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !helpers.IsTransient(err) {
			// Permanent failure: retrying cannot succeed.
			return zero, err
		}

		f.Logger.Warning("Fetch %s failed (attempt %d/%d): %v", operation, attempt+1, f.maxAttempts, err)
	}

	return zero, helpers.NewTransientError(
		fmt.Sprintf("upstream fetch failed after %d attempts", f.maxAttempts), lastErr)
}

// -----------------------------------------------------------------------------

// backoffDelay returns the wait before the given (1-based) retry attempt:
// initial * 2^(attempt-1), capped, with up to 10% jitter added.
func (f *Fetcher) backoffDelay(attempt int) time.Duration {
	delay := f.initialBackoff << (attempt - 1)
	if delay > f.maxBackoff || delay <= 0 {
		delay = f.maxBackoff
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/10 + 1))
	return delay + jitter
}
