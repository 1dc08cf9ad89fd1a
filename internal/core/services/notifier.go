package services

import (
	"sync"
	"time"

	"github.com/samjmc/dashchat/internal/core/domain"
	"github.com/samjmc/dashchat/internal/logger"
)

// DefaultDebounceWindow is the quiet period before a change notification fires.
const DefaultDebounceWindow = 500 * time.Millisecond

// ChangeNotifier coalesces bursts of dashboard mutation events into a single
// "context is stale, refresh now" callback after a quiet period. Each widget
// instance owns its own notifier: the timer and callback are instance state,
// never package globals. Missed notifications are not queued.
type ChangeNotifier struct {
	mu       sync.Mutex
	timer    *time.Timer
	window   time.Duration
	callback func()
	closed   bool
	wg       sync.WaitGroup
}

// NewChangeNotifier creates a notifier that invokes callback once per quiet
// window. A non-positive window falls back to the default.
func NewChangeNotifier(window time.Duration, callback func()) *ChangeNotifier {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &ChangeNotifier{
		window:   window,
		callback: callback,
	}
}

// Notify records one event: it resets the single debounce timer
// (clear-before-set, so duplicate firings are impossible) and arms a new
// quiet window.
func (n *ChangeNotifier) Notify() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return
	}
	if n.timer != nil {
		n.timer.Stop()
	}
	n.timer = time.AfterFunc(n.window, n.fire)
}

// fire runs at quiet-window expiry.
func (n *ChangeNotifier) fire() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.timer = nil
	cb := n.callback
	n.mu.Unlock()

	if cb != nil {
		cb()
	}
}

// Subscribe consumes a dashboard event stream, debouncing every event. It
// returns immediately; consumption stops when the channel closes or the
// notifier is closed.
func (n *ChangeNotifier) Subscribe(events <-chan domain.DashboardEvent) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		for ev := range events {
			logger.Debug("Dashboard event: %s", ev.Kind)
			n.Notify()
		}
	}()
}

// Close stops the pending timer, if any. A closed notifier never fires again.
// Close does not wait for event channels to close.
func (n *ChangeNotifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.closed = true
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}
