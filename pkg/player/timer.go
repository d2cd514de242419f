package player

import (
	"sync"
	"time"
)

// DefaultTickInterval is used when a Timer is given a non-positive interval.
const DefaultTickInterval = time.Millisecond

// Timer calls a function at a fixed interval from its own goroutine.
//
// Ticks that fall due while the callback is still running are dropped, never
// run late. The next call happens on the next interval boundary.
type Timer struct {
	interval time.Duration
	fn       func()
	onDrop   func(n uint64)

	ticker  *time.Ticker
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	mu sync.Mutex
}

// NewTimer creates a stopped timer that will call fn every interval.
func NewTimer(interval time.Duration, fn func()) *Timer {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Timer{interval: interval, fn: fn}
}

// Start starts the timer. Starting a running timer does nothing.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return
	}

	t.running = true
	t.stopCh = make(chan struct{})
	t.doneCh = make(chan struct{})
	t.ticker = time.NewTicker(t.interval)

	go t.run(t.ticker, t.stopCh, t.doneCh)
}

func (t *Timer) run(ticker *time.Ticker, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			start := time.Now()
			t.fn()
			t.dropOverlap(ticker, time.Since(start))
		}
	}
}

// dropOverlap discards the tick time.Ticker buffered during a callback that
// took elapsed and reports every tick that fell due meanwhile.
func (t *Timer) dropOverlap(ticker *time.Ticker, elapsed time.Duration) {
	t.mu.Lock()
	missed := uint64(elapsed / t.interval)
	onDrop := t.onDrop
	t.mu.Unlock()

	select {
	case <-ticker.C:
		if missed == 0 {
			missed = 1
		}
	default:
	}

	if missed > 0 && onDrop != nil {
		onDrop(missed)
	}
}

// SetDropHandler sets a function told how many ticks were dropped because
// the callback overran them.
func (t *Timer) SetDropHandler(fn func(n uint64)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDrop = fn
}

// Stop stops the timer and waits for an in-flight call to return. It must
// not be called from the callback itself.
func (t *Timer) Stop() {
	t.mu.Lock()

	if !t.running {
		t.mu.Unlock()
		return
	}

	t.running = false
	close(t.stopCh)
	doneCh := t.doneCh
	ticker := t.ticker
	t.stopCh = nil
	t.doneCh = nil
	t.ticker = nil

	t.mu.Unlock()

	<-doneCh
	ticker.Stop()
}

// IsRunning returns whether the timer is currently running.
func (t *Timer) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Interval returns the current interval.
func (t *Timer) Interval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interval
}

// SetInterval changes the interval. A running timer is reset in place, so
// this is safe to call from the callback.
func (t *Timer) SetInterval(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultTickInterval
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.interval = interval
	if t.running {
		t.ticker.Reset(interval)
	}
}
