package subscription

import (
	"context"
	"sync"
	"time"

	"market-gateway/src/interfaces"
	"market-gateway/src/logger"
	"market-gateway/src/metrics"
	"market-gateway/src/models"
)

// -----------------------------------------------------------------------------
// SubscriptionKey
// -----------------------------------------------------------------------------

// SubscriptionKey identifies one logical live-data stream. All subscribers
// with equal keys share exactly one poll task.
type SubscriptionKey struct {
	Exchange string
	Symbol   string
}

func (k SubscriptionKey) String() string {
	return k.Exchange + "::" + k.Symbol
}

// -----------------------------------------------------------------------------
// Collaborator contracts
// -----------------------------------------------------------------------------

// QuoteFetcher is the slice of the retrying fetcher the poll loop needs.
type QuoteFetcher interface {
	FetchQuote(ctx context.Context, source, symbol string) (*models.MQuote, error)
}

// SessionGate reports whether a source's venue is currently open. A nil gate
// means every source trades around the clock.
type SessionGate interface {
	IsOpen(source string, at time.Time) bool
}

// -----------------------------------------------------------------------------
// Manager
// -----------------------------------------------------------------------------

// Manager owns, per subscription key, a reference-counted subscriber set and
// at most one background poll task. The first subscriber starts the task; the
// last unsubscribe cancels it and releases all key state, in one critical
// section so a racing subscribe never observes a keyless running task or a
// taskless key.
type Manager struct {
	Fetcher QuoteFetcher
	Gate    SessionGate
	Logger  *logger.Logger

	interval time.Duration

	mu      sync.Mutex
	entries map[SubscriptionKey]*entry
}

// entry holds the per-key state. The manager lock guards the entries map and
// subscribe/unsubscribe transitions; the entry lock guards the subscriber set
// and last message on the broadcast hot path, so unrelated keys never contend.
type entry struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu          sync.Mutex
	subscribers map[interfaces.ISubscriber]struct{}
	last        *models.MStreamMessage
}

// -----------------------------------------------------------------------------

func NewManager(fetcher QuoteFetcher, pollInterval time.Duration, log *logger.Logger) *Manager {
	return &Manager{
		Fetcher:  fetcher,
		Logger:   log,
		interval: pollInterval,
		entries:  make(map[SubscriptionKey]*entry),
	}
}

// -----------------------------------------------------------------------------

// SetSessionGate installs an optional market-hours gate for poll loops.
func (m *Manager) SetSessionGate(gate SessionGate) {
	m.Gate = gate
}

// -----------------------------------------------------------------------------
// Subscribe / Unsubscribe
// -----------------------------------------------------------------------------

// Subscribe registers a subscriber for the key, starting the key's poll task
// if this is the first subscriber. The most recent message for the key, if
// any, is replayed to the new subscriber immediately.
func (m *Manager) Subscribe(key SubscriptionKey, sub interfaces.ISubscriber) {
	m.mu.Lock()
	e, exists := m.entries[key]
	if !exists {
		ctx, cancel := context.WithCancel(context.Background())
		e = &entry{
			cancel:      cancel,
			done:        make(chan struct{}),
			subscribers: make(map[interfaces.ISubscriber]struct{}),
		}
		m.entries[key] = e
		go m.pollLoop(ctx, key, e)
		metrics.ActiveSubscriptions.Inc()
		m.Logger.Info("Started poll task for %s", key)
	}

	// Added while still holding the manager lock: a concurrent unsubscribe of
	// the key's last other subscriber cannot tear the entry down between our
	// lookup and this add.
	e.mu.Lock()
	e.subscribers[sub] = struct{}{}
	last := e.last
	e.mu.Unlock()
	m.mu.Unlock()

	if last != nil {
		sub.Deliver(last)
	}
}

// -----------------------------------------------------------------------------

// Unsubscribe removes a subscriber from the key. Removing the last subscriber
// cancels the poll task and drops the key's state entirely, so a later
// subscribe starts fresh. Unknown keys and subscribers are no-ops.
func (m *Manager) Unsubscribe(key SubscriptionKey, sub interfaces.ISubscriber) {
	m.mu.Lock()
	e, exists := m.entries[key]
	if !exists {
		m.mu.Unlock()
		return
	}

	e.mu.Lock()
	delete(e.subscribers, sub)
	empty := len(e.subscribers) == 0
	e.mu.Unlock()

	if empty {
		// Cancellation happens under the manager lock, atomically with the
		// key's removal: a subscribe racing this call either finds the entry
		// still here (and keeps the task alive via its subscriber) or finds
		// no entry and starts a fresh task.
		e.cancel()
		delete(m.entries, key)
		metrics.ActiveSubscriptions.Dec()
		m.Logger.Info("Stopped poll task for %s (no subscribers left)", key)
	}
	m.mu.Unlock()
}

// -----------------------------------------------------------------------------
// Poll Loop
// -----------------------------------------------------------------------------

func (m *Manager) pollLoop(ctx context.Context, key SubscriptionKey, e *entry) {
	defer close(e.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// Poll immediately so the first subscriber is not kept waiting a full
	// interval for its first frame.
	for {
		m.pollOnce(ctx, key, e)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// -----------------------------------------------------------------------------

// pollOnce performs one fetch-and-broadcast iteration. Provider failures are
// broadcast as typed error frames; a panic is contained to this iteration so
// one bad round never kills the loop.
func (m *Manager) pollOnce(ctx context.Context, key SubscriptionKey, e *entry) {
	defer func() {
		if r := recover(); r != nil {
			m.Logger.Error("Poll iteration for %s panicked: %v", key, r)
		}
	}()

	if m.Gate != nil && !m.Gate.IsOpen(key.Exchange, time.Now()) {
		metrics.PollCount.WithLabelValues(key.Exchange, "closed").Inc()
		return
	}

	msg := &models.MStreamMessage{
		Exchange:  key.Exchange,
		Symbol:    key.Symbol,
		Timestamp: time.Now().UnixMilli(),
	}

	quote, err := m.Fetcher.FetchQuote(ctx, key.Exchange, key.Symbol)
	if err != nil {
		if ctx.Err() != nil {
			return // cancelled mid-fetch, nobody is listening
		}
		msg.Type = models.MessageTypeError
		msg.Error = err.Error()
		metrics.PollCount.WithLabelValues(key.Exchange, "error").Inc()
	} else {
		msg.Type = models.MessageTypeTicker
		msg.Data = quote
		metrics.PollCount.WithLabelValues(key.Exchange, "ok").Inc()
	}

	m.broadcast(e, msg)
}

// -----------------------------------------------------------------------------

// broadcast delivers a message to every current subscriber of the entry.
// Delivery is non-blocking per subscriber: a slow or broken one is skipped
// for this round and cleaned up later through the normal unsubscribe path.
func (m *Manager) broadcast(e *entry, msg *models.MStreamMessage) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.last = msg
	for sub := range e.subscribers {
		if !sub.Deliver(msg) {
			metrics.DroppedMessages.Inc()
		}
	}
}

// -----------------------------------------------------------------------------
// Introspection / Shutdown
// -----------------------------------------------------------------------------

// ActiveKeys returns subscriber counts per active key.
func (m *Manager) ActiveKeys() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := make(map[string]int, len(m.entries))
	for key, e := range m.entries {
		e.mu.Lock()
		counts[key.String()] = len(e.subscribers)
		e.mu.Unlock()
	}
	return counts
}

// -----------------------------------------------------------------------------

// Stop cancels every poll task and waits for them to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	entries := make([]*entry, 0, len(m.entries))
	for key, e := range m.entries {
		e.cancel()
		entries = append(entries, e)
		delete(m.entries, key)
		metrics.ActiveSubscriptions.Dec()
	}
	m.mu.Unlock()

	for _, e := range entries {
		<-e.done
	}
	m.Logger.Info("Subscription manager stopped")
}
