package chat

import (
	"sync"
	"time"
)

const (
	// DefaultScrollThreshold is how close to the top (in pixels) the
	// viewport must be before an upward scroll requests older messages.
	DefaultScrollThreshold = 100

	autoScrollClearAfter = time.Second
)

// ScrollMonitor turns raw viewport scroll offsets into "load older
// messages" triggers. Near-top alone is not enough: the user must also be
// scrolling upward, which filters out bounces and programmatic jumps. While
// the auto-scrolling flag is set (the app correcting its own scroll
// position after a prepend) triggers are suppressed entirely, otherwise the
// correction itself would fire the next fetch in a loop.
type ScrollMonitor struct {
	mu            sync.Mutex
	threshold     float64
	lastTop       float64
	autoScrolling bool
	clearTimer    *time.Timer
	clearAfter    time.Duration

	gate    func() bool
	trigger func()
}

// NewScrollMonitor builds a monitor. gate is consulted before anything else
// on each scroll event (typically: page not loading, history remains, no
// fetch in flight); trigger requests the next page. threshold <= 0 selects
// the default.
func NewScrollMonitor(gate func() bool, trigger func(), threshold float64) *ScrollMonitor {
	if threshold <= 0 {
		threshold = DefaultScrollThreshold
	}
	return &ScrollMonitor{
		threshold:  threshold,
		gate:       gate,
		trigger:    trigger,
		clearAfter: autoScrollClearAfter,
	}
}

// OnScroll feeds the current scroll offset of the chat viewport. The caller
// reports the offset of whichever element actually scrolls; no internal
// debounce is applied.
func (m *ScrollMonitor) OnScroll(top float64) {
	if m.gate != nil && !m.gate() {
		return
	}

	m.mu.Lock()
	scrollingUp := top < m.lastTop
	m.lastTop = top
	suppressed := m.autoScrolling
	threshold := m.threshold
	m.mu.Unlock()

	if suppressed {
		return
	}
	if scrollingUp && top <= threshold {
		m.trigger()
	}
}

// SetAutoScrolling marks upcoming scroll movement as self-inflicted.
// Setting it true arms a timer that clears the flag after one second in
// case the caller forgets to.
func (m *ScrollMonitor) SetAutoScrolling(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.autoScrolling = on
	if m.clearTimer != nil {
		m.clearTimer.Stop()
		m.clearTimer = nil
	}
	if on {
		m.clearTimer = time.AfterFunc(m.clearAfter, func() {
			m.mu.Lock()
			m.autoScrolling = false
			m.clearTimer = nil
			m.mu.Unlock()
		})
	}
}

// AutoScrolling reports whether triggers are currently suppressed.
func (m *ScrollMonitor) AutoScrolling() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.autoScrolling
}

// PreserveScrollTop returns the scroll offset that keeps the viewport
// visually stable after older messages grew the content above the visible
// area: the old offset shifted by the height delta. Callers apply it
// synchronously after the new content is measured, before the next paint.
func PreserveScrollTop(prevHeight, newHeight, top float64) float64 {
	return top + (newHeight - prevHeight)
}
