package subscription

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"market-gateway/src/helpers"
	"market-gateway/src/logger"
	"market-gateway/src/models"
)

// -----------------------------------------------------------------------------
// Test doubles
// -----------------------------------------------------------------------------

// countingFetcher serves canned quotes and counts invocations.
type countingFetcher struct {
	calls    atomic.Int64
	failWith error
	panics   atomic.Bool
}

func (f *countingFetcher) FetchQuote(ctx context.Context, source, symbol string) (*models.MQuote, error) {
	n := f.calls.Add(1)
	if f.panics.Load() {
		f.panics.Store(false)
		panic("poll blew up")
	}
	if f.failWith != nil {
		return nil, f.failWith
	}
	return &models.MQuote{
		Symbol:    symbol,
		Bid:       100,
		Ask:       101,
		Last:      100.5,
		Timestamp: n,
	}, nil
}

// chanSubscriber buffers delivered messages on a channel.
type chanSubscriber struct {
	ch chan *models.MStreamMessage
}

func newChanSubscriber() *chanSubscriber {
	return &chanSubscriber{ch: make(chan *models.MStreamMessage, 64)}
}

func (s *chanSubscriber) Deliver(msg *models.MStreamMessage) bool {
	select {
	case s.ch <- msg:
		return true
	default:
		return false
	}
}

func (s *chanSubscriber) recv(t *testing.T) *models.MStreamMessage {
	t.Helper()
	select {
	case msg := <-s.ch:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a message")
		return nil
	}
}

// blockedSubscriber always reports a full buffer.
type blockedSubscriber struct {
	dropped atomic.Int64
}

func (s *blockedSubscriber) Deliver(msg *models.MStreamMessage) bool {
	s.dropped.Add(1)
	return false
}

// -----------------------------------------------------------------------------

func newTestManager(fetcher QuoteFetcher) *Manager {
	return NewManager(fetcher, 10*time.Millisecond, logger.NewLogger("ERROR", "test"))
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// -----------------------------------------------------------------------------
// Tests
// -----------------------------------------------------------------------------

func TestSubscribe_SharedPollTask(t *testing.T) {
	fetcher := &countingFetcher{}
	m := newTestManager(fetcher)
	defer m.Stop()

	key := SubscriptionKey{Exchange: "binance", Symbol: "BTC/USDT"}
	sub1 := newChanSubscriber()
	sub2 := newChanSubscriber()

	m.Subscribe(key, sub1)
	m.Subscribe(key, sub2)

	counts := m.ActiveKeys()
	if len(counts) != 1 {
		t.Fatalf("ActiveKeys() has %d keys, want 1", len(counts))
	}
	if counts["binance::BTC/USDT"] != 2 {
		t.Errorf("subscriber count = %d, want 2", counts["binance::BTC/USDT"])
	}

	// Both subscribers see frames from the one shared task.
	msg1 := sub1.recv(t)
	msg2 := sub2.recv(t)
	if msg1.Type != models.MessageTypeTicker || msg2.Type != models.MessageTypeTicker {
		t.Errorf("message types = %q/%q, want ticker", msg1.Type, msg2.Type)
	}
	if msg1.Data == nil || msg1.Data.Last != 100.5 {
		t.Errorf("msg1.Data = %+v, want Last=100.5", msg1.Data)
	}
}

// -----------------------------------------------------------------------------

func TestUnsubscribe_LastOutStopsPolling(t *testing.T) {
	fetcher := &countingFetcher{}
	m := newTestManager(fetcher)
	defer m.Stop()

	key := SubscriptionKey{Exchange: "binance", Symbol: "BTC/USDT"}
	sub1 := newChanSubscriber()
	sub2 := newChanSubscriber()
	m.Subscribe(key, sub1)
	m.Subscribe(key, sub2)

	waitFor(t, "first poll", func() bool { return fetcher.calls.Load() > 0 })

	// First unsubscribe: the task keeps running for the remaining subscriber.
	m.Unsubscribe(key, sub1)
	before := fetcher.calls.Load()
	waitFor(t, "polling to continue", func() bool { return fetcher.calls.Load() > before })

	// Last unsubscribe: the key disappears and polling stops.
	m.Unsubscribe(key, sub2)
	if len(m.ActiveKeys()) != 0 {
		t.Fatal("key state should be released after the last unsubscribe")
	}

	time.Sleep(30 * time.Millisecond)
	settled := fetcher.calls.Load()
	time.Sleep(50 * time.Millisecond)
	if got := fetcher.calls.Load(); got != settled {
		t.Errorf("polling continued after last unsubscribe: %d -> %d", settled, got)
	}
}

// -----------------------------------------------------------------------------

func TestUnsubscribe_UnknownIsNoop(t *testing.T) {
	m := newTestManager(&countingFetcher{})
	defer m.Stop()

	// Neither an unknown key nor an unknown subscriber may panic or mutate.
	m.Unsubscribe(SubscriptionKey{Exchange: "nope", Symbol: "X/Y"}, newChanSubscriber())

	key := SubscriptionKey{Exchange: "binance", Symbol: "BTC/USDT"}
	sub := newChanSubscriber()
	m.Subscribe(key, sub)
	m.Unsubscribe(key, newChanSubscriber())

	if counts := m.ActiveKeys(); counts["binance::BTC/USDT"] != 1 {
		t.Errorf("subscriber count = %d, want 1", counts["binance::BTC/USDT"])
	}
}

// -----------------------------------------------------------------------------

func TestResubscribe_StartsFreshTask(t *testing.T) {
	fetcher := &countingFetcher{}
	m := newTestManager(fetcher)
	defer m.Stop()

	key := SubscriptionKey{Exchange: "binance", Symbol: "BTC/USDT"}
	sub := newChanSubscriber()

	m.Subscribe(key, sub)
	sub.recv(t)
	m.Unsubscribe(key, sub)

	sub2 := newChanSubscriber()
	m.Subscribe(key, sub2)
	if msg := sub2.recv(t); msg.Type != models.MessageTypeTicker {
		t.Errorf("message type = %q, want ticker", msg.Type)
	}
	if counts := m.ActiveKeys(); counts["binance::BTC/USDT"] != 1 {
		t.Errorf("subscriber count = %d, want 1", counts["binance::BTC/USDT"])
	}
}

// -----------------------------------------------------------------------------

func TestPoll_ErrorsBroadcastAsErrorFrames(t *testing.T) {
	fetcher := &countingFetcher{failWith: helpers.NewTransientError("upstream down", nil)}
	m := newTestManager(fetcher)
	defer m.Stop()

	sub := newChanSubscriber()
	m.Subscribe(SubscriptionKey{Exchange: "binance", Symbol: "BTC/USDT"}, sub)

	msg := sub.recv(t)
	if msg.Type != models.MessageTypeError {
		t.Fatalf("message type = %q, want error", msg.Type)
	}
	if msg.Error == "" {
		t.Error("error frame should carry the failure detail")
	}
	if msg.Data != nil {
		t.Error("error frame must not carry quote data")
	}

	// The loop survives failures and keeps emitting.
	if again := sub.recv(t); again.Type != models.MessageTypeError {
		t.Errorf("second frame type = %q, want error", again.Type)
	}
}

// -----------------------------------------------------------------------------

func TestPoll_PanicIsContained(t *testing.T) {
	fetcher := &countingFetcher{}
	fetcher.panics.Store(true)
	m := newTestManager(fetcher)
	defer m.Stop()

	sub := newChanSubscriber()
	m.Subscribe(SubscriptionKey{Exchange: "binance", Symbol: "BTC/USDT"}, sub)

	// The first iteration panics; the task must survive and deliver later.
	if msg := sub.recv(t); msg.Type != models.MessageTypeTicker {
		t.Errorf("message type = %q, want ticker", msg.Type)
	}
}

// -----------------------------------------------------------------------------

func TestSubscribe_ReplaysLastMessage(t *testing.T) {
	fetcher := &countingFetcher{}
	m := newTestManager(fetcher)
	defer m.Stop()

	key := SubscriptionKey{Exchange: "binance", Symbol: "BTC/USDT"}
	sub1 := newChanSubscriber()
	m.Subscribe(key, sub1)
	sub1.recv(t)

	// A late joiner gets the most recent frame without waiting for a poll.
	late := newChanSubscriber()
	m.Subscribe(key, late)

	select {
	case msg := <-late.ch:
		if msg.Type != models.MessageTypeTicker {
			t.Errorf("replayed type = %q, want ticker", msg.Type)
		}
	default:
		t.Error("last message should be replayed synchronously on subscribe")
	}
}

// -----------------------------------------------------------------------------

func TestBroadcast_SlowSubscriberSkipped(t *testing.T) {
	fetcher := &countingFetcher{}
	m := newTestManager(fetcher)
	defer m.Stop()

	key := SubscriptionKey{Exchange: "binance", Symbol: "BTC/USDT"}
	blocked := &blockedSubscriber{}
	healthy := newChanSubscriber()
	m.Subscribe(key, blocked)
	m.Subscribe(key, healthy)

	// The healthy subscriber keeps receiving while the blocked one drops.
	healthy.recv(t)
	healthy.recv(t)
	if blocked.dropped.Load() == 0 {
		t.Error("blocked subscriber should have been offered and skipped")
	}
}

// -----------------------------------------------------------------------------

// staticGate reports a fixed open/closed state for every source.
type staticGate struct{ open atomic.Bool }

func (g *staticGate) IsOpen(source string, at time.Time) bool { return g.open.Load() }

func TestPoll_ClosedSessionSkipsFetch(t *testing.T) {
	fetcher := &countingFetcher{}
	m := newTestManager(fetcher)
	defer m.Stop()

	gate := &staticGate{}
	m.SetSessionGate(gate)

	sub := newChanSubscriber()
	m.Subscribe(SubscriptionKey{Exchange: "nyse", Symbol: "AAPL"}, sub)

	time.Sleep(40 * time.Millisecond)
	if got := fetcher.calls.Load(); got != 0 {
		t.Fatalf("fetch calls = %d while closed, want 0", got)
	}

	gate.open.Store(true)
	if msg := sub.recv(t); msg.Type != models.MessageTypeTicker {
		t.Errorf("message type = %q, want ticker after open", msg.Type)
	}
}

// -----------------------------------------------------------------------------

func TestStop_CancelsAllTasks(t *testing.T) {
	fetcher := &countingFetcher{}
	m := newTestManager(fetcher)

	m.Subscribe(SubscriptionKey{Exchange: "binance", Symbol: "BTC/USDT"}, newChanSubscriber())
	m.Subscribe(SubscriptionKey{Exchange: "binance", Symbol: "ETH/USDT"}, newChanSubscriber())

	waitFor(t, "first polls", func() bool { return fetcher.calls.Load() >= 2 })

	m.Stop()
	if len(m.ActiveKeys()) != 0 {
		t.Error("Stop() should release every key")
	}

	settled := fetcher.calls.Load()
	time.Sleep(50 * time.Millisecond)
	if got := fetcher.calls.Load(); got != settled {
		t.Errorf("polling continued after Stop(): %d -> %d", settled, got)
	}
}
