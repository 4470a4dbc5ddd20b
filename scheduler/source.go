package scheduler

import (
	"sync"
	"time"
)

// DefaultFPS is the TickerSource rate when none is given.
const DefaultFPS = 60

// ManualSource queues frame callbacks until the host calls Step.
// It is safe for concurrent use.
type ManualSource struct {
	mu    sync.Mutex
	queue []func(time.Time)
}

// RequestFrame implements FrameSource.
func (m *ManualSource) RequestFrame(fn func(time.Time)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, fn)
}

// Step runs the callbacks queued before the call and returns how many ran.
// Callbacks queued while stepping wait for the next Step.
func (m *ManualSource) Step(now time.Time) int {
	m.mu.Lock()
	queue := m.queue
	m.queue = nil
	m.mu.Unlock()
	for _, fn := range queue {
		fn(now)
	}
	return len(queue)
}

// Pending returns the number of queued callbacks.
func (m *ManualSource) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// TickerSource delivers queued callbacks on a fixed-rate ticker goroutine.
type TickerSource struct {
	mu     sync.Mutex
	queue  []func(time.Time)
	done   chan struct{}
	once   sync.Once
	ticker *time.Ticker
}

// NewTickerSource starts a ticker at fps frames per second.
// A non-positive fps selects DefaultFPS.
func NewTickerSource(fps int) *TickerSource {
	if fps <= 0 {
		fps = DefaultFPS
	}
	t := &TickerSource{
		done:   make(chan struct{}),
		ticker: time.NewTicker(time.Second / time.Duration(fps)),
	}
	go t.run()
	return t
}

// RequestFrame implements FrameSource. Requests after Close are dropped.
func (t *TickerSource) RequestFrame(fn func(time.Time)) {
	select {
	case <-t.done:
		return
	default:
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.queue = append(t.queue, fn)
}

func (t *TickerSource) run() {
	for {
		select {
		case <-t.done:
			return
		case now := <-t.ticker.C:
			t.mu.Lock()
			queue := t.queue
			t.queue = nil
			t.mu.Unlock()
			for _, fn := range queue {
				fn(now)
			}
		}
	}
}

// Close stops the ticker goroutine.
func (t *TickerSource) Close() error {
	t.once.Do(func() {
		t.ticker.Stop()
		close(t.done)
	})
	return nil
}
