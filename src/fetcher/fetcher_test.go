package fetcher

import (
	"context"
	"errors"
	"testing"
	"time"

	datasource "market-gateway/src/data_source"
	"market-gateway/src/helpers"
	"market-gateway/src/interfaces"
	"market-gateway/src/logger"
	"market-gateway/src/models"
)

// fakeProvider counts invocations and fails according to its script.
type fakeProvider struct {
	name        string
	capability  map[string]bool
	quoteCalls  int
	failWith    error
	failTimes   int // fail this many calls, then succeed; negative = always
	panicsOnce  bool
	quote       *models.MQuote
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Supports(capability string) bool {
	if p.capability == nil {
		return true
	}
	return p.capability[capability]
}

func (p *fakeProvider) FetchQuote(ctx context.Context, symbol string) (*models.MQuote, error) {
	p.quoteCalls++
	if p.panicsOnce {
		p.panicsOnce = false
		panic("provider blew up")
	}
	if p.failTimes < 0 || p.quoteCalls <= p.failTimes {
		return nil, p.failWith
	}
	if p.quote != nil {
		return p.quote, nil
	}
	return &models.MQuote{Symbol: symbol, Bid: 1, Ask: 2, Last: 1.5}, nil
}

func (p *fakeProvider) FetchOHLCV(ctx context.Context, symbol string, since int64, limit int) ([]models.MOHLCV, error) {
	return nil, nil
}

func (p *fakeProvider) ListInstruments(ctx context.Context) ([]string, error) {
	return []string{"BTC/USDT"}, nil
}

var _ interfaces.IMarketProvider = (*fakeProvider)(nil)

// -----------------------------------------------------------------------------

func newTestFetcher(t *testing.T, provider interfaces.IMarketProvider) (*Fetcher, *[]time.Duration) {
	t.Helper()

	log := logger.NewLogger("ERROR", "test")
	registry := datasource.NewRegistry(log)
	if provider != nil {
		if err := registry.Register(provider); err != nil {
			t.Fatalf("Register() failed: %v", err)
		}
	}

	cfg := models.MRetryConfig{MaxAttempts: 3, InitialBackoffMs: 500, MaxBackoffMs: 5000}
	f := NewFetcher(registry, cfg, log)

	var sleeps []time.Duration
	f.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	return f, &sleeps
}

// -----------------------------------------------------------------------------

func TestFetchQuote_TransientRetriesExhausted(t *testing.T) {
	provider := &fakeProvider{
		name:      "dummy",
		failWith:  helpers.NewTransientError("connection reset", nil),
		failTimes: -1,
	}
	f, sleeps := newTestFetcher(t, provider)

	_, err := f.FetchQuote(context.Background(), "dummy", "BTC/USDT")
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if !helpers.IsTransient(err) {
		t.Errorf("exhausted retries should surface a transient error, got %T", err)
	}
	if provider.quoteCalls != 3 {
		t.Errorf("quoteCalls = %d, want 3", provider.quoteCalls)
	}

	// Backoff schedule: 500ms then 1s, each with at most 10% jitter.
	if len(*sleeps) != 2 {
		t.Fatalf("len(sleeps) = %d, want 2", len(*sleeps))
	}
	wantBase := []time.Duration{500 * time.Millisecond, time.Second}
	for i, d := range *sleeps {
		if d < wantBase[i] || d > wantBase[i]+wantBase[i]/10 {
			t.Errorf("sleep[%d] = %v, want within [%v, %v]", i, d, wantBase[i], wantBase[i]+wantBase[i]/10)
		}
	}
}

// -----------------------------------------------------------------------------

func TestFetchQuote_TransientThenSuccess(t *testing.T) {
	provider := &fakeProvider{
		name:      "dummy",
		failWith:  helpers.NewTransientError("timeout", nil),
		failTimes: 1,
	}
	f, _ := newTestFetcher(t, provider)

	quote, err := f.FetchQuote(context.Background(), "dummy", "BTC/USDT")
	if err != nil {
		t.Fatalf("FetchQuote() error = %v", err)
	}
	if quote.Symbol != "BTC/USDT" {
		t.Errorf("quote.Symbol = %q, want BTC/USDT", quote.Symbol)
	}
	if provider.quoteCalls != 2 {
		t.Errorf("quoteCalls = %d, want 2", provider.quoteCalls)
	}
}

// -----------------------------------------------------------------------------

func TestFetchQuote_PermanentFailsImmediately(t *testing.T) {
	provider := &fakeProvider{
		name:      "dummy",
		failWith:  errors.New("bad status: 400"),
		failTimes: -1,
	}
	f, sleeps := newTestFetcher(t, provider)

	_, err := f.FetchQuote(context.Background(), "dummy", "BTC/USDT")
	if err == nil {
		t.Fatal("expected error")
	}
	if provider.quoteCalls != 1 {
		t.Errorf("quoteCalls = %d, want 1 (no retry on permanent failure)", provider.quoteCalls)
	}
	if len(*sleeps) != 0 {
		t.Errorf("unexpected backoff sleeps: %v", *sleeps)
	}
}

// -----------------------------------------------------------------------------

func TestFetchQuote_UnknownSource(t *testing.T) {
	f, _ := newTestFetcher(t, nil)

	_, err := f.FetchQuote(context.Background(), "nope", "BTC/USDT")
	var unsupported *helpers.UnsupportedSourceError
	if !errors.As(err, &unsupported) {
		t.Fatalf("error = %v, want UnsupportedSourceError", err)
	}
	if unsupported.Source != "nope" {
		t.Errorf("Source = %q, want nope", unsupported.Source)
	}
}

// -----------------------------------------------------------------------------

func TestFetchOHLCV_UnsupportedCapability(t *testing.T) {
	provider := &fakeProvider{
		name:       "quotesonly",
		capability: map[string]bool{interfaces.CapabilityQuote: true},
	}
	f, _ := newTestFetcher(t, provider)

	_, err := f.FetchOHLCV(context.Background(), "quotesonly", "BTC/USDT", 0, 100)
	var unsupported *helpers.UnsupportedCapabilityError
	if !errors.As(err, &unsupported) {
		t.Fatalf("error = %v, want UnsupportedCapabilityError", err)
	}
	if helpers.IsTransient(err) {
		t.Error("capability errors must be permanent")
	}
}

// -----------------------------------------------------------------------------

func TestBackoffDelayCap(t *testing.T) {
	f, _ := newTestFetcher(t, nil)

	// Far past the doubling range the delay must stay at the cap (plus jitter).
	d := f.backoffDelay(10)
	if d < 5*time.Second || d > 5*time.Second+500*time.Millisecond {
		t.Errorf("backoffDelay(10) = %v, want capped near 5s", d)
	}
}
