package drafts

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/zfogg/searchstudy/pkg/logger"
	"github.com/zfogg/searchstudy/pkg/pages"
)

// DefaultAutosaveDelay is the debounce between the last edit and the save
const DefaultAutosaveDelay = 500 * time.Millisecond

// Autosaver commits a page's latest value after edits settle. A commit is
// skipped when the page is blank or serializes to the bytes the store last
// saw for the current participant.
type Autosaver struct {
	store *Store
	delay time.Duration
	ctx   context.Context

	mu      sync.Mutex
	pending pages.Page
	timer   *time.Timer
	stopped bool
}

// NewAutosaver returns an Autosaver writing to store. Timer-driven commits
// use ctx.
func NewAutosaver(ctx context.Context, store *Store, delay time.Duration) *Autosaver {
	if delay <= 0 {
		delay = DefaultAutosaveDelay
	}
	return &Autosaver{store: store, delay: delay, ctx: ctx}
}

// Prime records p as already committed, typically the draft the page was
// hydrated from
func (a *Autosaver) Prime(p pages.Page) {
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	a.store.remember(a.store.scope(), p.PageID(), data)
}

// Update records the latest value and re-arms the debounce timer
func (a *Autosaver) Update(p pages.Page) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return
	}
	a.pending = p
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.delay, func() { a.Tick(a.ctx) })
}

// Tick diffs the latest value against the last commit and saves it when it
// changed. It reports whether a save happened.
func (a *Autosaver) Tick(ctx context.Context) bool {
	a.mu.Lock()
	p := a.pending
	a.mu.Unlock()

	if p == nil || pages.IsBlank(p) {
		return false
	}
	data, err := json.Marshal(p)
	if err != nil {
		logger.Warn("Failed to encode draft", "page", p.PageID(), "err", err)
		return false
	}
	if bytes.Equal(data, a.store.snapshot(p.PageID())) {
		return false
	}

	if err := a.store.save(ctx, p.PageID(), data); err != nil {
		logger.Warn("Autosave failed", "page", p.PageID(), "err", err)
		return false
	}
	logger.Debug("Draft autosaved", "page", p.PageID())
	return true
}

// Flush commits immediately, as when the participant navigates away
func (a *Autosaver) Flush(ctx context.Context) bool {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.mu.Unlock()
	return a.Tick(ctx)
}

// Stop cancels any pending commit. Later updates are ignored.
func (a *Autosaver) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopped = true
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}
