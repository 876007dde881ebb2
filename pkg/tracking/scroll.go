package tracking

import (
	"context"
	"sync"
	"time"
)

// DefaultScrollFlushDelay is how long scrolling must pause before the
// running maximum is sent
const DefaultScrollFlushDelay = time.Second

// ScrollTracker keeps the deepest scroll position of one page visit and
// sends it when scrolling pauses, when the page is hidden and when it
// closes. A value is only sent when it beats the last one sent.
type ScrollTracker struct {
	tracker *Tracker
	path    string
	queryID string
	delay   time.Duration
	ctx     context.Context

	mu      sync.Mutex
	max     int
	flushed int
	timer   *time.Timer
	closed  bool
}

// NewScrollTracker starts tracking a page visit. Timer-driven flushes use ctx.
func (t *Tracker) NewScrollTracker(ctx context.Context, path, queryID string, delay time.Duration) *ScrollTracker {
	if delay <= 0 {
		delay = DefaultScrollFlushDelay
	}
	return &ScrollTracker{tracker: t, path: path, queryID: queryID, delay: delay, ctx: ctx}
}

// Record notes a scroll position in percent
func (s *ScrollTracker) Record(pct float64) {
	v := clampPercent(pct)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || v <= s.max {
		return
	}
	s.max = v
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, s.onPause)
}

func (s *ScrollTracker) onPause() {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if !closed {
		s.Flush(s.ctx)
	}
}

// Max returns the running maximum
func (s *ScrollTracker) Max() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.max
}

// Flush sends the running maximum if it beats the last value the server
// accepted. It reports whether the send succeeded.
func (s *ScrollTracker) Flush(ctx context.Context) bool {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	v := s.max
	if v <= s.flushed {
		s.mu.Unlock()
		return false
	}
	prev := s.flushed
	s.flushed = v
	s.mu.Unlock()

	if s.tracker.LogScroll(ctx, s.path, s.queryID, v) >= 0 {
		return true
	}
	s.mu.Lock()
	if s.flushed == v {
		s.flushed = prev
	}
	s.mu.Unlock()
	return false
}

// Hide flushes when the page goes to the background
func (s *ScrollTracker) Hide(ctx context.Context) bool {
	return s.Flush(ctx)
}

// Close stops tracking the visit and sends the final maximum. Positions
// recorded after Close are ignored.
func (s *ScrollTracker) Close(ctx context.Context) bool {
	s.mu.Lock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	return s.Flush(ctx)
}

func clampPercent(pct float64) int {
	switch {
	case pct != pct || pct < 0:
		return 0
	case pct > 100:
		return 100
	default:
		return int(pct)
	}
}
