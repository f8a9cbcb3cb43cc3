package engine

import (
	"sync"
	"time"
)

// RoundTimer is the single-flight countdown behind one session. Starting a
// new countdown replaces any previous one, so at most one timer is live per
// session. Stop and Start may race with an in-flight tick; callers discard
// stale callbacks by checking their own round generation, which keeps the
// "no timer fires after its round resolved" property at the session level.
type RoundTimer struct {
	interval time.Duration

	mu   sync.Mutex
	stop chan struct{}
}

// NewRoundTimer returns a timer ticking once per interval. Production code
// passes time.Second; tests shrink the interval for speed.
func NewRoundTimer(interval time.Duration) *RoundTimer {
	if interval <= 0 {
		interval = time.Second
	}
	return &RoundTimer{interval: interval}
}

// Start begins a countdown from limitSeconds. onTick receives the remaining
// seconds after every tick, including the final zero; onExpire fires at most
// once, after the zero tick. Any previous countdown is cancelled first.
func (t *RoundTimer) Start(limitSeconds int, onTick func(remaining int), onExpire func()) {
	t.mu.Lock()
	if t.stop != nil {
		close(t.stop)
	}
	stop := make(chan struct{})
	t.stop = stop
	t.mu.Unlock()

	go func() {
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		remaining := limitSeconds
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				select {
				case <-stop:
					return
				default:
				}
				remaining--
				if remaining > 0 {
					onTick(remaining)
					continue
				}
				onTick(0)
				onExpire()
				return
			}
		}
	}()
}

// Stop cancels the current countdown. Safe to call when no countdown runs.
func (t *RoundTimer) Stop() {
	t.mu.Lock()
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
	t.mu.Unlock()
}
